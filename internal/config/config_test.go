package config

import (
	"strings"
	"testing"
)

// setValidEnv sets the minimum environment for a successful Load.
// t.Setenv automatically restores the previous values after the test.
func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-at-least-16-chars!!")
	t.Setenv("PORT", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("IMAGES_DIR", "")
	t.Setenv("ADMIN_EMAIL", "")
}

func TestLoad_Defaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.DBPath != "data/userfinder.db" {
		t.Errorf("DBPath = %q, want default", cfg.DBPath)
	}
	if cfg.ImagesDir != "images" {
		t.Errorf("ImagesDir = %q, want default", cfg.ImagesDir)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setValidEnv(t)
	t.Setenv("PORT", "5000")
	t.Setenv("DB_PATH", "/tmp/test.db")
	t.Setenv("IMAGES_DIR", "/tmp/avatars")
	t.Setenv("ADMIN_EMAIL", "root@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 5000 {
		t.Errorf("Port = %d, want 5000", cfg.Port)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ImagesDir != "/tmp/avatars" {
		t.Errorf("ImagesDir = %q", cfg.ImagesDir)
	}
	if cfg.AdminEmail != "root@example.com" {
		t.Errorf("AdminEmail = %q", cfg.AdminEmail)
	}
}

func TestLoad_MissingSecretFails(t *testing.T) {
	setValidEnv(t)
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without JWT_SECRET")
	}
}

func TestLoad_ShortSecretFails(t *testing.T) {
	setValidEnv(t)
	t.Setenv("JWT_SECRET", "too-short")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should reject a short JWT_SECRET")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("error %q should name JWT_SECRET", err)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	setValidEnv(t)

	for _, bad := range []string{"abc", "-1", "0", "70000"} {
		t.Setenv("PORT", bad)
		if _, err := Load(); err == nil {
			t.Errorf("Load() accepted PORT=%q", bad)
		}
	}
}
