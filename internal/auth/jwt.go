package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenService issues and parses the bearer tokens that carry a tenant
// session. Token distribution (sign-in flows) lives outside this
// service.
type TokenService struct {
	secretKey []byte
	expiresIn time.Duration
}

func NewTokenService(secret string, expiresIn time.Duration) *TokenService {
	return &TokenService{
		secretKey: []byte(secret),
		expiresIn: expiresIn,
	}
}

func (s *TokenService) IssueToken(tenantID, subject string) (string, error) {
	claims := jwt.MapClaims{
		"tenant_id": tenantID,
		"sub":       subject,
		"exp":       time.Now().Add(s.expiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

func (s *TokenService) ParseToken(tokenStr string) (Session, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return Session{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, ErrInvalidToken
	}
	tenantID, _ := claims["tenant_id"].(string)
	subject, _ := claims["sub"].(string)
	if tenantID == "" || subject == "" {
		return Session{}, ErrInvalidToken
	}
	return Session{TenantID: tenantID, Subject: subject}, nil
}
