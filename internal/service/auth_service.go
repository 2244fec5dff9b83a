package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrServiceTokenInvalid 服务间调用令牌无效
	ErrServiceTokenInvalid = errors.New("invalid service token")
	// ErrServiceSecretMissing 未配置服务间调用密钥
	ErrServiceSecretMissing = errors.New("service jwt secret missing")
)

// ServiceClaims 服务间调用 JWT 声明（subject 为调用方名称）
type ServiceClaims struct {
	Caller string `json:"caller"`
	jwt.RegisteredClaims
}

// AuthService 服务间调用鉴权
type AuthService struct {
	secret []byte
	now    func() time.Time
}

// NewAuthService 创建鉴权服务
func NewAuthService(secret string) *AuthService {
	return &AuthService{
		secret: []byte(strings.TrimSpace(secret)),
		now:    time.Now,
	}
}

// Configured 是否配置了密钥
func (s *AuthService) Configured() bool {
	return s != nil && len(s.secret) > 0
}

// GenerateServiceToken 签发 HS256 服务令牌
func (s *AuthService) GenerateServiceToken(caller string, ttl time.Duration) (string, time.Time, error) {
	if !s.Configured() {
		return "", time.Time{}, ErrServiceSecretMissing
	}
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return "", time.Time{}, newValidationError("caller", "is required")
	}
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := ServiceClaims{
		Caller: caller,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseServiceToken 解析服务令牌
func (s *AuthService) ParseServiceToken(tokenString string) (*ServiceClaims, error) {
	if !s.Configured() {
		return nil, ErrServiceSecretMissing
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrServiceTokenInvalid, err)
	}

	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid || strings.TrimSpace(claims.Caller) == "" {
		return nil, ErrServiceTokenInvalid
	}
	return claims, nil
}
