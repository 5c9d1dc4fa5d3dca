package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
)

type fakeVerifier struct {
	tokens map[string]*auth.Token
}

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := f.tokens[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("invalid token")
}

func TestExtractToken(t *testing.T) {
	testCases := []struct {
		name          string
		authHeader    string
		expectedToken string
	}{
		{"Valid Bearer token", "Bearer test-token-123", "test-token-123"},
		{"Missing Bearer prefix", "test-token-123", ""},
		{"Empty auth header", "", ""},
		{"Bearer with no token", "Bearer ", ""},
		{"Lowercase scheme", "bearer test-token-123", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedToken, extractToken(tc.authHeader))
		})
	}
}

func TestAuthenticator(t *testing.T) {
	verifier := fakeVerifier{tokens: map[string]*auth.Token{
		"good": {UID: "uid-1", Claims: map[string]interface{}{"email": "pm@example.com", "name": "PM"}},
	}}
	authn := NewAuthenticator(verifier)

	var gotID, gotEmail, gotName string
	handler := authn.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetUserIDFromContext(r)
		gotEmail = GetUserEmailFromContext(r)
		gotName = GetUserNameFromContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/departments", nil)
		req.Header.Set("Authorization", "Bearer good")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "uid-1", gotID)
		assert.Equal(t, "pm@example.com", gotEmail)
		assert.Equal(t, "PM", gotName)
	})

	t.Run("missing header", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/departments", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"error":"Unauthorized: No token provided"}`, rr.Body.String())
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/departments", nil)
		req.Header.Set("Authorization", "Bearer forged")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("preflight passes through", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/departments", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestAuthenticator_Disabled(t *testing.T) {
	var gotID string
	handler := NewAuthenticator(nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetUserIDFromContext(r)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/test", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, DevUserID, gotID)
}

func TestGetUserIDFromContext(t *testing.T) {
	req := WithUserID(httptest.NewRequest(http.MethodGet, "/api/test", nil), "test-user-123")
	assert.Equal(t, "test-user-123", GetUserIDFromContext(req))
	assert.Equal(t, "", GetUserIDFromContext(httptest.NewRequest(http.MethodGet, "/api/test", nil)))
}
