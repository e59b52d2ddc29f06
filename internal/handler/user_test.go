package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anfirdaus/userfinder/internal/apperror"
	"github.com/anfirdaus/userfinder/internal/auth"
	"github.com/anfirdaus/userfinder/internal/handler"
	"github.com/anfirdaus/userfinder/internal/model"
	"github.com/anfirdaus/userfinder/internal/service"
	"github.com/anfirdaus/userfinder/internal/upload"
)

// memRepo is a minimal in-memory repository.UserRepository for driving the
// handlers without SQLite.
type memRepo struct {
	users  map[int64]*model.User
	nextID int64
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[int64]*model.User), nextID: 1}
}

func (m *memRepo) Create(ctx context.Context, user *model.User) error {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperror.Conflict("user", "email "+user.Email+" is already registered")
		}
	}
	user.ID = m.nextID
	m.nextID++
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", fmt.Sprintf("%d", id))
	}
	copied := *u
	return &copied, nil
}

func (m *memRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *memRepo) List(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	for id := int64(1); id < m.nextID; id++ {
		if u, ok := m.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (m *memRepo) Update(ctx context.Context, user *model.User) error {
	existing, ok := m.users[user.ID]
	if !ok {
		return apperror.NotFound("user", fmt.Sprintf("%d", user.ID))
	}
	*existing = *user
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return apperror.NotFound("user", fmt.Sprintf("%d", id))
	}
	delete(m.users, id)
	return nil
}

// newTestHandler wires a UserHandler with in-memory storage and a temp
// avatar directory.
func newTestHandler(t *testing.T) *handler.UserHandler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)

	svc := service.NewUserService(newMemRepo(), tokens, passwords, "", logger)

	avatars, err := upload.NewSaver(t.TempDir())
	if err != nil {
		t.Fatalf("NewSaver: %v", err)
	}

	return handler.NewUserHandler(svc, avatars, logger)
}

func postJSON(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestUserHandler_HandleRegister(t *testing.T) {
	t.Run("valid registration", func(t *testing.T) {
		h := newTestHandler(t)

		rr := postJSON(h.HandleRegister, "/api/v1/register",
			`{"name":"Alice","email":"alice@example.com","password":"hunter22"}`)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp struct {
			Data model.User `json:"data"`
		}
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "Alice", resp.Data.Name)
		assert.NotZero(t, resp.Data.ID)
	})

	t.Run("response body never contains a password field", func(t *testing.T) {
		h := newTestHandler(t)

		rr := postJSON(h.HandleRegister, "/api/v1/register",
			`{"name":"Alice","email":"alice@example.com","password":"hunter22"}`)

		assert.Equal(t, http.StatusCreated, rr.Code)
		body := strings.ToLower(rr.Body.String())
		assert.NotContains(t, body, "password")
		assert.NotContains(t, body, "hunter22")
		assert.NotContains(t, body, "$2") // bcrypt prefix
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		h := newTestHandler(t)

		rr := postJSON(h.HandleRegister, "/api/v1/register", `{"name":`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		h := newTestHandler(t)

		rr := postJSON(h.HandleRegister, "/api/v1/register", `{"email":"a@b.com"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		h := newTestHandler(t)

		first := postJSON(h.HandleRegister, "/api/v1/register",
			`{"name":"Alice","email":"alice@example.com","password":"hunter22"}`)
		assert.Equal(t, http.StatusCreated, first.Code)

		second := postJSON(h.HandleRegister, "/api/v1/register",
			`{"name":"Alice Again","email":"alice@example.com","password":"hunter23"}`)
		assert.Equal(t, http.StatusConflict, second.Code)
	})
}

func TestUserHandler_HandleLogin(t *testing.T) {
	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		h := newTestHandler(t)

		postJSON(h.HandleRegister, "/api/v1/register",
			`{"name":"Alice","email":"alice@example.com","password":"hunter22"}`)

		wrongPass := postJSON(h.HandleLogin, "/api/v1/login",
			`{"email":"alice@example.com","password":"wrong"}`)
		noUser := postJSON(h.HandleLogin, "/api/v1/login",
			`{"email":"nobody@example.com","password":"whatever"}`)

		assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
		assert.Equal(t, http.StatusUnauthorized, noUser.Code)
		assert.Equal(t, wrongPass.Body.String(), noUser.Body.String(),
			"login failure bodies must match exactly or accounts can be enumerated")
	})

	t.Run("valid credentials return a token and the user", func(t *testing.T) {
		h := newTestHandler(t)

		postJSON(h.HandleRegister, "/api/v1/register",
			`{"name":"Alice","email":"alice@example.com","password":"hunter22"}`)

		rr := postJSON(h.HandleLogin, "/api/v1/login",
			`{"email":"alice@example.com","password":"hunter22"}`)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp struct {
			Data struct {
				Token string     `json:"token"`
				User  model.User `json:"user"`
			} `json:"data"`
		}
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Data.Token)
		assert.Equal(t, "alice@example.com", resp.Data.User.Email)
	})
}

func TestUserHandler_HandleGet(t *testing.T) {
	getUser := func(h *handler.UserHandler, id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/user/"+id, nil)
		req.SetPathValue("id", id)
		rr := httptest.NewRecorder()
		h.HandleGet(rr, req)
		return rr
	}

	t.Run("round-trip after register", func(t *testing.T) {
		h := newTestHandler(t)

		reg := postJSON(h.HandleRegister, "/api/v1/register",
			`{"name":"Alice","email":"alice@example.com","password":"hunter22"}`)
		var created struct {
			Data model.User `json:"data"`
		}
		assert.NoError(t, json.NewDecoder(reg.Body).Decode(&created))

		rr := getUser(h, fmt.Sprintf("%d", created.Data.ID))
		assert.Equal(t, http.StatusOK, rr.Code)

		var fetched struct {
			Data model.User `json:"data"`
		}
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&fetched))
		assert.Equal(t, "Alice", fetched.Data.Name)
		assert.Equal(t, "alice@example.com", fetched.Data.Email)
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		h := newTestHandler(t)
		assert.Equal(t, http.StatusNotFound, getUser(h, "9999").Code)
	})

	t.Run("non-numeric id is 404 never 500", func(t *testing.T) {
		h := newTestHandler(t)
		for _, id := range []string{"abc", "12abc", "-1", "0", ""} {
			rr := getUser(h, id)
			assert.Equal(t, http.StatusNotFound, rr.Code, "id=%q", id)
		}
	})
}

func TestUserHandler_HandleList(t *testing.T) {
	h := newTestHandler(t)

	postJSON(h.HandleRegister, "/api/v1/register",
		`{"name":"Alice","email":"alice@example.com","password":"hunter22"}`)
	postJSON(h.HandleRegister, "/api/v1/register",
		`{"name":"Bob","email":"bob@example.com","password":"hunter22"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	rr := httptest.NewRecorder()
	h.HandleList(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data []model.User `json:"data"`
	}
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Data, 2)
	assert.NotContains(t, strings.ToLower(rr.Body.String()), "password")
}

func TestUserHandler_UnauthenticatedMutations(t *testing.T) {
	// Handlers behind RequireAuth still re-check the context themselves;
	// calling them without an identity must 401, never panic.
	h := newTestHandler(t)

	patch := httptest.NewRequest(http.MethodPatch, "/api/v1/user/1", strings.NewReader("name=X"))
	patch.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	patch.SetPathValue("id", "1")
	rr := httptest.NewRecorder()
	h.HandleUpdate(rr, patch)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	del := httptest.NewRequest(http.MethodDelete, "/api/v1/user/1", nil)
	del.SetPathValue("id", "1")
	rr = httptest.NewRecorder()
	h.HandleDelete(rr, del)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
