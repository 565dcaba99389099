// Package auth mints and resolves the bearer tokens of the mock backend.
//
// Tokens are ordinary HS256 JWTs so the front-end's auth plumbing works
// unchanged against the fixture; no refresh or revocation exists here.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/datakin/workbench/pkg/db"
	"github.com/datakin/workbench/pkg/domain"
	"github.com/datakin/workbench/pkg/fixture/dispatch"
)

const DefaultTTL = 12 * time.Hour

type Tokens struct {
	secret []byte
	users  *db.Collection[domain.User, *domain.User]
	ttl    time.Duration
	now    func() time.Time
}

var _ dispatch.Resolver = (*Tokens)(nil)

// New builds a token mint over the user collection. ttl is taken as given;
// a non-positive ttl mints tokens that are expired on arrival.
func New(secret []byte, users *db.Collection[domain.User, *domain.User], ttl time.Duration) *Tokens {
	return &Tokens{secret: secret, users: users, ttl: ttl, now: time.Now}
}

// Issue signs a token for user.
func (t *Tokens) Issue(user domain.User) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	})
	return token.SignedString(t.secret)
}

// Resolve verifies the token and looks its subject up in the user
// collection. Unparseable tokens and unknown subjects resolve to nobody;
// handlers see a nil user and must fail on their own if they need one.
func (t *Tokens) Resolve(token string) (domain.User, bool) {
	parsed, err := jwt.ParseWithClaims(
		token,
		&jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil || !parsed.Valid {
		return domain.User{}, false
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return domain.User{}, false
	}

	user, err := t.users.Get(claims.Subject)
	if err != nil {
		return domain.User{}, false
	}
	return user, true
}
