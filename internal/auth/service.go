// Package auth issues and validates the access tokens protecting the API.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/imranpollob/nft-rental-marketplace/internal/config"
	"github.com/imranpollob/nft-rental-marketplace/internal/fault"
	"github.com/imranpollob/nft-rental-marketplace/internal/identity"
)

// Service signs and verifies HS256 access tokens.
type Service struct {
	cfg config.Config
}

// NewService builds an auth service instance.
func NewService(cfg config.Config) *Service {
	return &Service{cfg: cfg}
}

// Token is an issued access token with its lifetime in seconds.
type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Issue signs an access token for the user.
func (s *Service) Issue(user identity.User) (Token, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.AccessTokenTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, ExpiresIn: int64(s.cfg.AccessTokenTTL.Seconds())}, nil
}

// Claims carries the verified token payload.
type Claims struct {
	UserID string
	Role   string
}

// Verify parses the token and returns its claims.
func (s *Service) Verify(token string) (Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fault.Authorization("unexpected signing method %s", t.Method.Alg())
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return Claims{}, fault.Authorization("invalid token")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fault.Authorization("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return Claims{}, fault.Authorization("token missing subject")
	}
	return Claims{UserID: sub, Role: role}, nil
}
