package auth

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/outpost-game/outpost/internal/app/logger/logging"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCostFactor = 10

// TokenLifetime is how long an issued token stays valid.
const TokenLifetime = 7 * 24 * time.Hour

type Password []byte

// NewPassword creates a new password from a plain text string.
func NewPassword(text string) (Password, error) {
	pwd, err := bcrypt.GenerateFromPassword([]byte(text), bcryptCostFactor)
	if err != nil {
		slog.Warn("Could not hash password", logging.Error(err))
	}
	return pwd, err
}

// String returns the password as a string.
func (p Password) String() string {
	return string(p)
}

// CheckPassword checks if a password matches a hash.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// SignToken issues a JWT with the user id as the subject.
func SignToken(secretKey []byte, userID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
}

// VerifyToken parses a bearer token and returns the user id it was issued for.
func VerifyToken(secretKey []byte, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("missing subject claim")
	}
	return claims.Subject, nil
}
