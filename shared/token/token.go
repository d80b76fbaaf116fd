// Package token выпускает и проверяет сессионные токены (JWT, HS256).
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL - время жизни сессии
const DefaultTTL = 24 * time.Hour

var (
	ErrMalformed = errors.New("token malformed")
	ErrExpired   = errors.New("token expired")
	ErrSignature = errors.New("token signature invalid")
)

// Claims - полезная нагрузка токена: sub, email, role, exp
type Claims struct {
	Subject   string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// Expired сообщает, истёк ли токен к моменту now
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

type jwtClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer подписывает и проверяет токены общим секретом
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock подменяет часы (для тестов)
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue выпускает токен для субъекта; ExpiresAt в claims игнорируется и считается от TTL
func (i *Issuer) Issue(c Claims) (string, Claims, error) {
	now := i.now()
	c.ExpiresAt = now.Add(i.ttl).Truncate(time.Second)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Email: c.Email,
		Role:  c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
	})
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, c, nil
}

// Parse проверяет подпись и срок действия
func (i *Issuer) Parse(raw string) (Claims, error) {
	var jc jwtClaims
	_, err := jwt.ParseWithClaims(raw, &jc, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Claims{}, ErrSignature
	default:
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromJWT(jc), nil
}

// DecodeUnverified читает payload без проверки подписи.
// Клиент так узнаёт срок действия своего токена, доверять результату нельзя.
func DecodeUnverified(raw string) (Claims, error) {
	var jc jwtClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &jc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if jc.Subject == "" || jc.ExpiresAt == nil {
		return Claims{}, ErrMalformed
	}
	return fromJWT(jc), nil
}

func fromJWT(jc jwtClaims) Claims {
	c := Claims{Subject: jc.Subject, Email: jc.Email, Role: jc.Role}
	if jc.ExpiresAt != nil {
		c.ExpiresAt = jc.ExpiresAt.Time
	}
	return c
}
