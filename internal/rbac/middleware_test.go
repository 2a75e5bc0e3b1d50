package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/therma-erp/therma-erp/internal/shared"
)

type staticSource struct {
	principal Principal
	err       error
}

func (s staticSource) MembershipsFor(ctx context.Context, userID int64) (Principal, error) {
	if s.err != nil {
		return Principal{}, s.err
	}
	p := s.principal
	p.UserID = userID
	return p, nil
}

func requestWithUser(userID string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if userID == "" {
		return r
	}
	sess := &shared.Session{}
	sess.SetUser(userID)
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

func TestRequireAnyDeniesAnonymous(t *testing.T) {
	mw := Middleware{Source: staticSource{principal: Principal{Roles: NewRoleSet(RoleDirector)}}}
	called := false
	h := mw.RequireAny(RoleDirector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithUser(""))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, called)
}

func TestRequireAnyDeniesInsufficientRole(t *testing.T) {
	mw := Middleware{Source: staticSource{principal: Principal{Roles: NewRoleSet(RoleManager)}}}
	h := mw.RequireAny(RoleSupplier, RoleDirector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithUser("7"))

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAnyAdmitsIntersectingRole(t *testing.T) {
	mw := Middleware{Source: staticSource{principal: Principal{Roles: NewRoleSet(RoleSupplier, RoleWarehouse)}}}
	var got Principal
	h := mw.RequireAny(RoleSupplier, RoleDirector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		got = p
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithUser("7"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(7), got.UserID)
	require.True(t, got.Roles.Has(RoleSupplier))
}

func TestZeroRolePrincipal(t *testing.T) {
	mw := Middleware{Source: staticSource{principal: Principal{Roles: NewRoleSet()}}}

	rec := httptest.NewRecorder()
	denied := mw.RequireAny(RoleAccountant)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	denied.ServeHTTP(rec, requestWithUser("9"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	open := mw.RequireAuthenticated()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	open.ServeHTTP(rec, requestWithUser("9"))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthorize(t *testing.T) {
	director := Principal{Roles: NewRoleSet(RoleDirector)}
	nobody := Principal{Roles: NewRoleSet()}

	require.True(t, Authorize(director, RoleSupplier, RoleDirector))
	require.False(t, Authorize(nobody, RoleSupplier, RoleDirector))
	require.True(t, Authorize(nobody))
}

func TestParseRoleRejectsUnknown(t *testing.T) {
	_, ok := ParseRole("superadmin")
	require.False(t, ok)

	role, ok := ParseRole("warehouse")
	require.True(t, ok)
	require.Equal(t, RoleWarehouse, role)
}
