package middleware

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"sitebooks/backend/config"
	"sitebooks/backend/logger"
)

// Define context keys
type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "user_email"
	UserNameKey  contextKey = "user_name"
)

// DevUserID is the identity used when AUTH_DISABLED is set.
const DevUserID = "dev-user"

// TokenVerifier checks a Firebase ID token. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// NewFirebaseVerifier initializes the Firebase Admin SDK. Credentials come
// from FIREBASE_SERVICE_ACCOUNT_JSON, then FIREBASE_SERVICE_ACCOUNT_BASE64,
// then application default credentials.
func NewFirebaseVerifier(ctx context.Context, cfg *config.Config) (TokenVerifier, error) {
	log := logger.WithComponent("auth")

	var opts []option.ClientOption
	switch {
	case cfg.FirebaseCredentials != "":
		log.Info().Msg("Using JSON Firebase credentials from environment")
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.FirebaseCredentials)))
	case cfg.FirebaseCredentialsB64 != "":
		log.Info().Msg("Using base64-encoded Firebase credentials from environment")
		credBytes, err := base64.StdEncoding.DecodeString(cfg.FirebaseCredentialsB64)
		if err != nil {
			return nil, fmt.Errorf("error decoding base64 Firebase credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(credBytes))
	default:
		log.Info().Msg("No Firebase credentials found, using application default credentials")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}
	return client, nil
}

// Authenticator verifies Firebase ID tokens on incoming requests.
type Authenticator struct {
	verifier TokenVerifier
}

// NewAuthenticator returns an Authenticator. A nil verifier disables
// verification and authenticates every request as DevUserID.
func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// Middleware verifies the bearer token and puts the caller's identity in the
// request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth for OPTIONS requests (CORS preflight)
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if a.verifier == nil {
			ctx := withIdentity(r.Context(), DevUserID, "dev@localhost", "Developer")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		idToken := extractToken(r.Header.Get("Authorization"))
		if idToken == "" {
			WriteError(w, http.StatusUnauthorized, "Unauthorized: No token provided")
			return
		}

		token, err := a.verifier.VerifyIDToken(r.Context(), idToken)
		if err != nil {
			log := logger.WithComponent("auth")
			log.Warn().Err(err).Msg("Error verifying token")
			WriteError(w, http.StatusUnauthorized, "Unauthorized: Invalid token")
			return
		}

		email, _ := token.Claims["email"].(string)
		name, _ := token.Claims["name"].(string)
		ctx := withIdentity(r.Context(), token.UID, email, name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func withIdentity(ctx context.Context, userID, email, name string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, UserEmailKey, email)
	return context.WithValue(ctx, UserNameKey, name)
}

// extractToken gets the token from the Authorization header
func extractToken(authHeader string) string {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

// GetUserIDFromContext retrieves the user ID from the request context
func GetUserIDFromContext(r *http.Request) string {
	userID, _ := r.Context().Value(UserIDKey).(string)
	return userID
}

// GetUserEmailFromContext retrieves the verified email from the request context
func GetUserEmailFromContext(r *http.Request) string {
	email, _ := r.Context().Value(UserEmailKey).(string)
	return email
}

// GetUserNameFromContext retrieves the display name from the request context
func GetUserNameFromContext(r *http.Request) string {
	name, _ := r.Context().Value(UserNameKey).(string)
	return name
}

// WithUserID returns a copy of r authenticated as userID. Used by tests and
// internal callers that bypass token verification.
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), UserIDKey, userID))
}
