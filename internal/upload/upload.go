// Package upload persists avatar files under the static images directory.
//
// Files land on the local disk (not object storage) because the API serves
// them straight back at GET /Images/<name> via http.FileServer. The stored
// path recorded on the user row is relative ("Images/<name>") so responses
// work regardless of where the server is mounted.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"github.com/anfirdaus/userfinder/internal/apperror"
)

// MaxAvatarBytes caps a single avatar upload. Enforced here with a limited
// reader and again at the HTTP layer with http.MaxBytesReader.
const MaxAvatarBytes = 5 << 20 // 5 MiB

// urlPrefix is the public mount point for stored files. GET /Images/<name>
// must return exactly the bytes written here.
const urlPrefix = "Images"

// Saver writes uploaded files into a directory with collision-resistant
// names.
//
// WHY xid NAMES?
// The obvious choice — keeping the client's filename — collides as soon as
// two users upload "avatar.png", and worse, a crafted name like
// "../../etc/cron.d/x" escapes the directory. Generating an xid per upload
// removes both problems: names are unique across concurrent requests and
// contain no path separators.
type Saver struct {
	dir string
}

// NewSaver creates a Saver rooted at dir, creating the directory if needed.
func NewSaver(dir string) (*Saver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: creating images directory %s: %w", dir, err)
	}
	return &Saver{dir: dir}, nil
}

// Save writes one multipart file into the images directory and returns the
// public relative path to store on the user record, e.g. "Images/cnb2qk….png".
//
// Only the extension of the original filename survives, and only if it's a
// plausible image extension — everything else about the client-supplied
// name is discarded.
func (s *Saver) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	if header == nil {
		return "", apperror.ValidationFailed("avatar", "uploaded file is missing headers")
	}
	if header.Size > MaxAvatarBytes {
		return "", apperror.ValidationFailed("avatar",
			fmt.Sprintf("avatar must be %d bytes or smaller", MaxAvatarBytes))
	}

	name := xid.New().String() + safeExt(header.Filename)
	dst := filepath.Join(s.dir, name)

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("upload: creating %s: %w", dst, err)
	}
	defer out.Close()

	// +1 so an over-limit stream is detectable even when the client lied
	// about (or omitted) the size in the part header.
	written, err := io.Copy(out, io.LimitReader(file, MaxAvatarBytes+1))
	if err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("upload: writing %s: %w", dst, err)
	}
	if written > MaxAvatarBytes {
		os.Remove(dst)
		return "", apperror.ValidationFailed("avatar",
			fmt.Sprintf("avatar must be %d bytes or smaller", MaxAvatarBytes))
	}

	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("upload: flushing %s: %w", dst, err)
	}

	return path.Join(urlPrefix, name), nil
}

// Remove deletes a previously saved file. The argument is a path Save
// returned ("Images/<name>"); anything else — an absolute path, a traversal,
// a path outside the mount — is refused rather than resolved.
func (s *Saver) Remove(storedPath string) error {
	name, ok := strings.CutPrefix(storedPath, urlPrefix+"/")
	if !ok || name == "" || name != filepath.Base(name) {
		return fmt.Errorf("upload: %q is not a stored avatar path", storedPath)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("upload: removing %s: %w", name, err)
	}
	return nil
}

// Dir returns the directory files are stored in, for wiring the static
// file server.
func (s *Saver) Dir() string {
	return s.dir
}

// safeExt returns a lowercased image extension from the client filename,
// or "" when the extension is missing or not an image type we serve.
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return ext
	default:
		return ""
	}
}
