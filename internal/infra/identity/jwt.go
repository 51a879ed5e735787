package identity

import (
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	zlog "github.com/rs/zerolog/log"
)

const defaultTokenTTL = 24 * time.Hour

var (
	ErrMissingSecret = errors.New("jwt secret is required")
	ErrInvalidToken  = errors.New("invalid token")
)

// JWT derives the current user from an HS256 token whose subject is the user id.
type JWT struct {
	secret []byte
	issuer string

	mu  sync.RWMutex
	uid string
}

// NewJWT creates a JWT identity. issuer is checked when non-empty.
func NewJWT(secret, issuer string) (*JWT, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &JWT{secret: []byte(secret), issuer: issuer}, nil
}

// Issue signs a token for uid valid for ttl (zero: one day).
func (j *JWT) Issue(uid string, ttl time.Duration) (string, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return "", errors.New("user id is required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    j.issuer,
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// Verify validates a token and returns its subject.
func (j *JWT) Verify(token string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), &claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "failed to parse token"), ErrInvalidToken)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// SignIn verifies token and makes its subject the current user.
func (j *JWT) SignIn(token string) (string, error) {
	uid, err := j.Verify(token)
	if err != nil {
		return "", err
	}
	j.mu.Lock()
	j.uid = uid
	j.mu.Unlock()
	zlog.Info().Msgf("identity: signed in: uid=%s", uid)
	return uid, nil
}

// SignOut returns to an anonymous session.
func (j *JWT) SignOut() {
	j.mu.Lock()
	j.uid = ""
	j.mu.Unlock()
}

// CurrentUser returns the signed-in user.
func (j *JWT) CurrentUser() (string, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.uid, j.uid != ""
}
