// ABOUTME: JWT issuance and validation for gateway session tokens
// ABOUTME: Mints HS256-signed access/refresh pairs with per-token jti for revocation

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// refreshTokenLifetime is fixed regardless of the configured access lifetime.
const refreshTokenLifetime = 30 * 24 * time.Hour

// Token errors
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token expired")
	ErrMalformedToken = errors.New("malformed token")
	ErrMissingClaim   = errors.New("missing required claim")
)

// Claims is the verified payload of a gateway token. The subject is the
// user ID assigned by the identity service; the jti identifies this exact
// token for revocation checks.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenPair is a freshly issued access/refresh token pair. The token IDs are
// exposed so callers can record the access jti in the session store; the
// server keeps no copy of the token material itself.
type TokenPair struct {
	AccessToken    string
	RefreshToken   string
	AccessTokenID  string
	RefreshTokenID string
	ExpiresIn      int64 // seconds until the access token expires
}

// Issuer mints and validates HS256-signed token pairs using a shared secret.
// Validation checks signature and expiry only; revocation is enforced a
// layer above by the session cross-check in the middleware.
type Issuer struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

// NewIssuer creates an Issuer with the given signing secret and access-token
// lifetime.
func NewIssuer(secret []byte, accessTTL time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}
	if accessTTL <= 0 {
		return nil, errors.New("access token lifetime must be positive")
	}
	return &Issuer{secret: secret, accessTTL: accessTTL, now: time.Now}, nil
}

// Issue creates an access/refresh pair for the subject. Both tokens carry
// independent jtis; the refresh expiry is fixed at 30 days.
func (i *Issuer) Issue(subject, email, role string) (*TokenPair, error) {
	now := i.now()

	accessID := uuid.New().String()
	access, err := i.sign(subject, email, role, accessID, now, now.Add(i.accessTTL))
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	refreshID := uuid.New().String()
	refresh, err := i.sign(subject, email, role, refreshID, now, now.Add(refreshTokenLifetime))
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:    access,
		RefreshToken:   refresh,
		AccessTokenID:  accessID,
		RefreshTokenID: refreshID,
		ExpiresIn:      int64(i.accessTTL / time.Second),
	}, nil
}

func (i *Issuer) sign(subject, email, role, tokenID string, iat, exp time.Time) (string, error) {
	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        tokenID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Validate verifies signature integrity and expiry and returns the claims.
// Returns ErrExpiredToken past exp, ErrMalformedToken for unparseable input,
// and ErrInvalidToken for any other verification failure.
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return i.now() }))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: jti", ErrMissingClaim)
	}

	return claims, nil
}
