package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/anfirdaus/userfinder/internal/apperror"
	"github.com/anfirdaus/userfinder/internal/auth"
	"github.com/anfirdaus/userfinder/internal/model"
	"github.com/anfirdaus/userfinder/internal/service"
	"github.com/anfirdaus/userfinder/internal/upload"
)

// maxUpdateBody caps a PATCH request body. Slightly above the avatar limit
// to leave room for the multipart framing and scalar fields.
const maxUpdateBody = upload.MaxAvatarBytes + 1<<20

// UserHandler exposes the five user endpoints plus login.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → POST /register: create an account
//   - HandleLogin    → POST /login: verify credentials, return a JWT
//   - HandleList     → GET /users: all users
//   - HandleGet      → GET /user/{id}: one user
//   - HandleUpdate   → PATCH /user/{id}: scalar fields + optional avatar (auth)
//   - HandleDelete   → DELETE /user/{id}: remove a user (auth)
//
// Handlers only parse HTTP and shape responses; every rule that matters
// (validation, permissions, uniqueness) lives in the service.
type UserHandler struct {
	users   *service.UserService
	avatars *upload.Saver
	logger  *slog.Logger
}

// NewUserHandler creates a UserHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewUserHandler(users *service.UserService, avatars *upload.Saver, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:   users,
		avatars: avatars,
		logger:  logger,
	}
}

// registerRequest is the expected body of POST /register.
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest is the expected body of POST /login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the payload inside the {data: ...} envelope on login.
type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// HandleRegister creates a new account.
//
// HTTP: POST /api/v1/register
// BODY: {"name": "...", "email": "...", "password": "..."}
//
// 201 with the created user on success. The response never contains the
// password in any form — model.User excludes the hash from serialization.
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("register: invalid JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	user, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusCreated, user)
}

// HandleLogin verifies credentials and issues a session token.
//
// HTTP: POST /api/v1/login
// BODY: {"email": "...", "password": "..."}
//
// 201 with {token, user} on success, 401 on any credential failure.
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("login: invalid JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	result, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusCreated, loginResponse{
		Token: result.Token,
		User:  result.User,
	})
}

// HandleList returns all users.
//
// HTTP: GET /api/v1/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, users)
}

// HandleGet returns a single user by ID.
//
// HTTP: GET /api/v1/user/{id}
//
// A non-numeric id is treated as 404, not 400: "/user/abc" names a
// resource that cannot exist, and it must never produce a 500.
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, user)
}

// HandleUpdate applies scalar field changes and an optional avatar upload.
//
// HTTP: PATCH /api/v1/user/{id}
// AUTH: bearer token (RequireAuth middleware)
// BODY: multipart/form-data or application/x-www-form-urlencoded
//   - name:   optional new display name
//   - avatar: optional file part (multipart only)
//
// Requests carrying a "password", "id", or "email" field are rejected with
// 400 — none of them may change through this path, and silently dropping
// them would hide the mistake from the caller.
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, but don't trust route wiring.
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpdateBody)

	input, avatarFile, avatarHeader, err := parseUpdateForm(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if avatarFile != nil {
		defer avatarFile.Close()

		path, err := h.avatars.Save(avatarFile, avatarHeader)
		if err != nil {
			h.logger.Error("update: storing avatar failed",
				slog.Int64("userID", id),
				slog.String("error", err.Error()),
			)
			writeError(w, err)
			return
		}
		input.Avatar = &path
	}

	user, err := h.users.Update(r.Context(), caller, id, input)
	if err != nil {
		// The avatar was written before the service ran its permission and
		// existence checks. A rejected update must not leave the file behind,
		// or a forbidden PATCH becomes a way to fill the disk.
		if input.Avatar != nil {
			if rmErr := h.avatars.Remove(*input.Avatar); rmErr != nil {
				h.logger.Warn("update: removing avatar after rejected update",
					slog.Int64("userID", id),
					slog.String("error", rmErr.Error()),
				)
			}
		}
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, user)
}

// HandleDelete removes a user.
//
// HTTP: DELETE /api/v1/user/{id}
// AUTH: bearer token; self-deletion or admin (enforced by the service)
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.users.Delete(r.Context(), caller, id); err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]int64{"deleted": id})
}

// parseID extracts the numeric {id} path parameter. Anything that doesn't
// parse as a positive integer is a 404.
func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NotFound("user", raw)
	}
	return id, nil
}

// parseUpdateForm reads the PATCH body in either multipart/form-data or
// urlencoded form, rejects immutable fields, and hands back the optional
// avatar file part for the caller to persist (and close).
func parseUpdateForm(r *http.Request) (service.UpdateInput, multipart.File, *multipart.FileHeader, error) {
	var input service.UpdateInput

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var file multipart.File
	var header *multipart.FileHeader

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxUpdateBody); err != nil {
			return input, nil, nil, apperror.ValidationFailed("body", "malformed multipart upload")
		}

		f, fh, err := r.FormFile("avatar")
		switch {
		case err == nil:
			file, header = f, fh
		case errors.Is(err, http.ErrMissingFile):
			// no avatar part — scalar-only update, fine
		default:
			return input, nil, nil, apperror.ValidationFailed("avatar", "malformed avatar upload")
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return input, nil, nil, apperror.ValidationFailed("body", "malformed form body")
		}
	default:
		// Anything else (JSON, plain text, no header) would parse as zero
		// fields and silently no-op. Tell the caller their body was ignored.
		return input, nil, nil, apperror.ValidationFailed("body",
			"content type must be multipart/form-data or application/x-www-form-urlencoded")
	}

	// Immutable fields: reject loudly rather than ignore silently.
	for _, field := range []string{"password", "id", "email"} {
		if _, present := r.Form[field]; present {
			closeQuietly(file)
			return input, nil, nil, apperror.ValidationFailed(field,
				field+" cannot be changed through this endpoint")
		}
	}

	if names, present := r.Form["name"]; present && len(names) > 0 {
		input.Name = &names[0]
	}

	return input, file, header, nil
}

func closeQuietly(file multipart.File) {
	if file != nil {
		file.Close()
	}
}
