package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/therma-erp/therma-erp/internal/auth"
	"github.com/therma-erp/therma-erp/internal/shared"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	if s.user == nil || s.user.Username != username {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	s.user.PasswordHash = hash
	return nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func newAuthRouter(t *testing.T, repo auth.Repository) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, auth.NewService(repo), sessionManager)
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r, sessionManager
}

func serveWithSession(t *testing.T, manager *shared.SessionManager, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	sess, err := manager.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	require.NoError(t, manager.Commit(ctx, res, req, sess))
	return res, sess
}

func hashedUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	return &auth.User{ID: 1, Username: "a3", Email: "a3@therma.local", PasswordHash: string(hashed), IsActive: true}
}

func TestLoginSuccessBindsSession(t *testing.T) {
	repo := &stubRepo{user: hashedUser(t, "correctpass")}
	router, manager := newAuthRouter(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"a3","password":"correctpass"}`))
	req.Header.Set("Content-Type", "application/json")
	res, sess := serveWithSession(t, manager, router, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "1", sess.User())
	require.Contains(t, repo.sessions, sess.ID)
}

func TestLoginInvalidCredentials(t *testing.T) {
	router, manager := newAuthRouter(t, &stubRepo{user: hashedUser(t, "correctpass")})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"a3","password":"wrongpass"}`))
	req.Header.Set("Content-Type", "application/json")
	res, sess := serveWithSession(t, manager, router, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Empty(t, sess.User())
}

func TestLoginInactiveUser(t *testing.T) {
	user := hashedUser(t, "correctpass")
	user.IsActive = false
	router, manager := newAuthRouter(t, &stubRepo{user: user})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"a3","password":"correctpass"}`))
	req.Header.Set("Content-Type", "application/json")
	res, _ := serveWithSession(t, manager, router, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestChangePasswordRejectsWrongCurrent(t *testing.T) {
	repo := &stubRepo{user: hashedUser(t, "correctpass")}
	router, manager := newAuthRouter(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/change-password", strings.NewReader(`{"current_password":"nope","new_password":"fresh"}`))
	req.Header.Set("Content-Type", "application/json")
	sess, err := manager.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser("1")
	ctx := shared.ContextWithSession(req.Context(), sess)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req.WithContext(ctx))

	require.Equal(t, http.StatusBadRequest, res.Code)
}
