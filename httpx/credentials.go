package httpx

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/oauth"
	"github.com/mbolis/quick-forms/config"
	"golang.org/x/crypto/bcrypt"
)

// Claims set on every token issued by the bearer server.
const (
	ClaimUserID = "uid"
	ClaimRoles  = "roles"
)

const refreshTTL = 8760 * time.Hour

type credentialsVerifier struct {
	db *sql.DB
}

func CredentialsVerifier(db *sql.DB) oauth.CredentialsVerifier {
	return &credentialsVerifier{db}
}

// NewBearerServer issues password and refresh grants for the users table.
func NewBearerServer(db *sql.DB, cfg config.Config) *oauth.BearerServer {
	return oauth.NewBearerServer(cfg.TokenSecret, cfg.TokenTTL, CredentialsVerifier(db), nil)
}

func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	var hash string
	err := cs.db.
		QueryRowContext(r.Context(), "SELECT password_hash FROM users WHERE username = $1", username).
		Scan(&hash)
	if err != nil {
		return err
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	_, err := cs.db.Exec(
		"INSERT INTO tokens (username, token_id, refresh_token_id, expiration) VALUES ($1, $2, $3, $4)",
		credential,
		tokenID,
		refreshTokenID,
		time.Now().UTC().Add(refreshTTL),
	)
	return err
}
func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	var ok bool

	// expired tokens are kept and never match again
	cs.db.
		QueryRow(`
			DELETE FROM tokens
			WHERE username = $1
				AND token_id = $2
				AND refresh_token_id = $3
				AND expiration > $4
			RETURNING TRUE`,
			credential,
			tokenID,
			refreshTokenID,
			time.Now().UTC(),
		).
		Scan(&ok)
	if !ok {
		return errors.New("could not refresh")
	}
	return nil
}
func (cs *credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	var id int64
	var roles string
	err := cs.db.
		QueryRowContext(r.Context(), "SELECT id, roles FROM users WHERE username = $1", credential).
		Scan(&id, &roles)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		ClaimUserID: strconv.FormatInt(id, 10),
		ClaimRoles:  roles,
	}, nil
}
func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}
func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errors.New("not supported")
}
