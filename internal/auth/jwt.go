package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenInvalid   = errors.New("token is invalid")
)

// Kind separates admin-console sessions from customer sessions
type Kind string

const (
	KindStaff Kind = "staff"
	KindUser  Kind = "user"
)

type AppMetadata struct {
	IsSuperAdmin bool `json:"isSuperAdmin"`
}

// Claims is the JWT payload
type Claims struct {
	Kind        Kind        `json:"kind"`
	Role        string      `json:"role,omitempty"`
	AppMetadata AppMetadata `json:"app_metadata"`
	jwt.RegisteredClaims
}

// Identity is the authenticated principal of a request.
// Role is the value embedded at login and is informational only;
// authorization always re-resolves the current role.
type Identity struct {
	ID           uuid.UUID `json:"id"`
	Kind         Kind      `json:"kind"`
	Role         string    `json:"role,omitempty"`
	IsSuperAdmin bool      `json:"is_super_admin"`
}

func (i Identity) IsStaff() bool { return i.Kind == KindStaff }

// TokenManager issues and verifies HS256 session tokens
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the lifetime of issued tokens
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for the identity and returns it with its expiry
func (m *TokenManager) Issue(id Identity) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := Claims{
		Kind:        id.Kind,
		Role:        id.Role,
		AppMetadata: AppMetadata{IsSuperAdmin: id.IsSuperAdmin},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   id.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Parse verifies the token signature, issuer and expiry and returns its identity
func (m *TokenManager) Parse(tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrTokenMalformed
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if claims.Kind != KindStaff && claims.Kind != KindUser {
		return nil, ErrTokenInvalid
	}

	return &Identity{
		ID:           id,
		Kind:         claims.Kind,
		Role:         claims.Role,
		IsSuperAdmin: claims.AppMetadata.IsSuperAdmin,
	}, nil
}
