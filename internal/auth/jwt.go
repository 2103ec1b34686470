package auth

import (
	"errors"
	"time"

	"group_assist/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenManager выпускает и проверяет пары access/refresh токенов.
// Секреты и сроки жизни приходят из конфигурации при создании.
type TokenManager struct {
	cfg config.JWTConfig
}

func NewTokenManager(cfg config.JWTConfig) *TokenManager {
	return &TokenManager{cfg: cfg}
}

func (m *TokenManager) GenerateAccessToken(userID uint) (string, error) {
	return generateToken(userID, m.cfg.AccessTTL, m.cfg.AccessSecret)
}

func (m *TokenManager) GenerateRefreshToken(userID uint) (string, error) {
	return generateToken(userID, m.cfg.RefreshTTL, m.cfg.RefreshSecret)
}

// ParseAccessToken возвращает user_id из валидного access токена.
func (m *TokenManager) ParseAccessToken(tokenString string) (uint, error) {
	return parseToken(tokenString, m.cfg.AccessSecret)
}

// ParseRefreshToken возвращает user_id из валидного refresh токена.
func (m *TokenManager) ParseRefreshToken(tokenString string) (uint, error) {
	return parseToken(tokenString, m.cfg.RefreshSecret)
}

func generateToken(userID uint, duration time.Duration, secret []byte) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(duration).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseToken(tokenString string, secret []byte) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, ErrInvalidToken
	}

	return uint(userID), nil
}
