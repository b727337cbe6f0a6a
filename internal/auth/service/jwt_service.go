package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	"github.com/allisson/credvault/internal/errors"
)

// Claims are the bearer token claims. Subject is the user id; Orgs lists organization ids.
type Claims struct {
	Orgs []string `json:"orgs,omitempty"`
	jwt.RegisteredClaims
}

// JWTService verifies and issues HS256 tokens shared with the platform's identity service.
type JWTService struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewJWTService creates a JWTService. An empty issuer disables the issuer check.
func NewJWTService(secret, issuer string, leeway time.Duration) (*JWTService, error) {
	if len(secret) < 32 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "JWT secret must be at least 32 bytes")
	}
	return &JWTService{secret: []byte(secret), issuer: issuer, leeway: leeway}, nil
}

// Verify implements TokenVerifier.
func (s *JWTService) Verify(tokenString string) (*authDomain.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(authDomain.ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, authDomain.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return nil, authDomain.ErrInvalidSubject
	}

	orgIDs := make([]uuid.UUID, 0, len(claims.Orgs))
	for _, raw := range claims.Orgs {
		orgID, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(authDomain.ErrInvalidToken, "invalid org id %q", raw)
		}
		orgIDs = append(orgIDs, orgID)
	}

	principal := authDomain.NewPrincipal(userID, orgIDs...)
	return &principal, nil
}

// Issue implements TokenIssuer.
func (s *JWTService) Issue(principal authDomain.Principal, ttl time.Duration) (string, error) {
	now := time.Now()

	orgs := make([]string, 0, len(principal.OrgIDs))
	for _, orgID := range principal.OrgIDs {
		orgs = append(orgs, orgID.String())
	}

	claims := Claims{
		Orgs: orgs,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   principal.UserID.String(),
			ID:        uuid.Must(uuid.NewV7()).String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
