package service

import (
	"errors"
	"fmt"
	"time"

	"ai-memo-app/src/config"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "ai-memo-app"

// ErrInvalidToken is returned for malformed, expired or foreign tokens
var ErrInvalidToken = errors.New("invalid token")

// JWTClaims JWT内のカスタムクレーム
type JWTClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// JWTService JWT管理サービスのインターフェース
type JWTService interface {
	GenerateToken(subject string) (string, error)
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// jwtService JWT管理サービスの実装
type jwtService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService JWT管理サービスを作成
func NewJWTService(cfg *config.Config) JWTService {
	return &jwtService{
		secret: []byte(cfg.Auth.JWTSecret),
		ttl:    cfg.Auth.TokenTTL,
		now:    time.Now,
	}
}

// GenerateToken API用のトークンを生成
func (s *jwtService) GenerateToken(subject string) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("jwt secret is not configured")
	}
	now := s.now()
	claims := &JWTClaims{
		Scope: "memos",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken トークンを検証
func (s *jwtService) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.Scope != "memos" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
