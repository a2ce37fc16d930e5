package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = 24 * time.Hour

var ErrMissingOrganization = errors.New("token has no organization")

type JWTManager struct {
	secretKey []byte
	issuer    string
	audience  string
	ttl       time.Duration
	now       func() time.Time
}

// Claims carries the caller's tenant. Subject identifies the user or integration.
type Claims struct {
	OrganizationID string   `json:"org_id"`
	Roles          []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func CreateJWTManager(secretKey, issuer, audience string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTManager{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		audience:  audience,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (j *JWTManager) GenerateToken(orgID, subject string, roles []string) (string, error) {
	return j.GenerateTokenWithTTL(orgID, subject, roles, j.ttl)
}

func (j *JWTManager) GenerateTokenWithTTL(orgID, subject string, roles []string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(orgID) == "" {
		return "", ErrMissingOrganization
	}

	now := j.now()
	claims := &Claims{
		OrganizationID: orgID,
		Roles:          roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)

	var claims Claims
	token, err := parser.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return j.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.OrganizationID) == "" {
		return nil, ErrMissingOrganization
	}
	return &claims, nil
}

func (j *JWTManager) RefreshToken(tokenString string) (string, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return "", fmt.Errorf("invalid token for refresh: %w", err)
	}
	return j.GenerateToken(claims.OrganizationID, claims.Subject, claims.Roles)
}
