// Package auth provides HMAC-based API key authentication for the HTTP API.
package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/solatis/tagkeeper/internal/types"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// organizationIDKey is the context key for the authenticated organization.
const organizationIDKey = contextKey("organization_id")

// Queries defines the database operations authentication needs.
// Implemented by *db.Queries.
type Queries interface {
	Get(ctx context.Context, name string, dest interface{}, args ...interface{}) error
	Exec(ctx context.Context, name string, args ...interface{}) (sql.Result, error)
}

// Authenticator validates API keys using HMAC-SHA256 signatures.
// Holds an in-memory secret map for O(1) lookup; the key hash itself is
// verified against the api_keys table.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
}

// NewAuthenticator creates an authenticator over HMAC secrets and queries.
func NewAuthenticator(secrets map[string][]byte, queries Queries) *Authenticator {
	return &Authenticator{secrets: secrets, queries: queries}
}

// Authenticate validates an API key and returns the owning organization.
// Each failure mode gets its own error so the middleware can map status
// codes without string matching.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (types.OrganizationID, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	keyHash := ComputeKeyHash(secret, apiKey)

	var row struct {
		APIKeyID       string         `db:"api_key_id"`
		OrganizationID string         `db:"organization_id"`
		RevokedAt      sql.NullString `db:"revoked_at"`
		LastUsedAt     sql.NullString `db:"last_used_at"`
	}
	err = a.queries.Get(ctx, "get-api-key-by-hash", &row, keyHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("database error: %w", err)
	}

	if row.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	// Update last_used_at at most once a minute to keep the hot path from
	// writing on every request.
	if shouldUpdateLastUsed(row.LastUsedAt) {
		_, _ = a.queries.Exec(ctx, "update-api-key-last-used",
			types.FormatTime(time.Now().UTC()), row.APIKeyID)
	}

	return types.OrganizationID(row.OrganizationID), nil
}

func shouldUpdateLastUsed(lastUsed sql.NullString) bool {
	if !lastUsed.Valid || lastUsed.String == "" {
		return true
	}
	at, err := types.ParseTime(lastUsed.String)
	if err != nil {
		return true
	}
	return time.Since(at) > time.Minute
}

// Middleware authenticates every request from the X-Api-Key header and
// injects the organization into the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-Api-Key")
		if apiKey == "" {
			writeAuthError(w, http.StatusUnauthorized, ErrMissingKey)
			return
		}

		org, err := a.Authenticate(r.Context(), apiKey)
		if err != nil {
			switch {
			case errors.Is(err, ErrKeyRevoked):
				writeAuthError(w, http.StatusForbidden, err)
			case errors.Is(err, ErrInvalidKeyFormat),
				errors.Is(err, ErrUnknownKey),
				errors.Is(err, ErrInvalidKey):
				writeAuthError(w, http.StatusUnauthorized, err)
			default:
				// Database trouble is the server's problem, not the key's.
				writeAuthError(w, http.StatusServiceUnavailable, errors.New("authentication unavailable"))
			}
			return
		}

		ctx := context.WithValue(r.Context(), organizationIDKey, org)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeAuthError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// OrganizationIDFromContext extracts the authenticated organization.
// Returns the empty id when the request did not pass the middleware.
func OrganizationIDFromContext(ctx context.Context) types.OrganizationID {
	if org, ok := ctx.Value(organizationIDKey).(types.OrganizationID); ok {
		return org
	}
	return ""
}
