package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/inventory-web/internal/core/domain"
)

const defaultTokenTTL = time.Hour

// Tokens issues and verifies the HS256 access tokens of the self-hosted backend.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issue signs an access token for user.
func (t *Tokens) Issue(user domain.User) (string, time.Time, error) {
	now := t.now().UTC()
	exp := now.Add(t.ttl)
	claims := accessClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp.Truncate(time.Second), nil
}

// Verify returns the user the token was issued to.
func (t *Tokens) Verify(token string) (domain.User, error) {
	return t.parse(token, jwt.WithTimeFunc(t.now))
}

// Owner returns the user a token signed by this backend was issued to, even
// after it has expired. Only the signature is checked.
func (t *Tokens) Owner(token string) (domain.User, error) {
	return t.parse(token, jwt.WithoutClaimsValidation())
}

func (t *Tokens) parse(token string, opts ...jwt.ParserOption) (domain.User, error) {
	claims := &accessClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return t.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return domain.User{}, domain.ErrForbidden
	}
	return domain.User{ID: claims.Subject, Email: claims.Email}, nil
}

// authorize checks the session carried by ctx. Row access on this backend
// requires a signed-in user.
func (t *Tokens) authorize(ctx context.Context) (domain.User, error) {
	sess := domain.SessionFromContext(ctx)
	if sess == nil || sess.AccessToken == "" {
		return domain.User{}, domain.ErrForbidden
	}
	return t.Verify(sess.AccessToken)
}
