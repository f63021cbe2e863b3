package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupAndLogin(t *testing.T) {
	e := newTestEnv(t)

	var signup struct {
		Token string `json:"token"`
		User  struct {
			ID       uint   `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	}
	e.do(t, e.jsonReq(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "newcomer",
		"email":    "newcomer@example.org",
		"password": "TestPass123!",
	}), http.StatusCreated, &signup)
	require.NotEmpty(t, signup.Token)
	assert.Equal(t, "newcomer", signup.User.Username)

	// No sysadmin exists yet, so the registration notice goes to the
	// configured fallback address.
	assert.Contains(t, e.mailer.sent, "fallback@example.org")

	var login struct {
		Token string `json:"token"`
	}
	e.do(t, e.jsonReq(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "newcomer@example.org",
		"password": "TestPass123!",
	}), http.StatusOK, &login)
	assert.NotEmpty(t, login.Token)
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	e := newTestEnv(t)
	e.createUser(t, "existing", false)

	e.do(t, e.jsonReq(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "another",
		"email":    "existing@example.org",
		"password": "TestPass123!",
	}), http.StatusConflict, nil)
}

func TestSignupShortPasswordRejected(t *testing.T) {
	e := newTestEnv(t)

	e.do(t, e.jsonReq(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "weak",
		"email":    "weak@example.org",
		"password": "short",
	}), http.StatusBadRequest, nil)
}

func TestLoginWrongPassword(t *testing.T) {
	e := newTestEnv(t)
	e.createUser(t, "victim", false)

	e.do(t, e.jsonReq(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "victim@example.org",
		"password": "WrongPass999!",
	}), http.StatusUnauthorized, nil)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	e := newTestEnv(t)

	e.do(t, e.jsonReq(t, http.MethodGet, "/api/access-requests/me", "", nil),
		http.StatusUnauthorized, nil)
}
