package utils

import (
	"errors"
	"time"

	"skywatch/config"

	"github.com/golang-jwt/jwt"
)

func opsSecret() []byte {
	secret := config.AppConfig.OpsJWTSecret
	if secret == "" {
		secret = "skywatch-dev"
	}
	return []byte(secret)
}

// GenerateOpsToken creates a signed JWT for an operator of the monitoring
// API. The subject identifies the caller (dashboard, on-call tooling).
// The token expires after the specified duration.
func GenerateOpsToken(subject string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(opsSecret())
}

// ValidateOpsToken parses and validates a token string and returns the token if valid.
func ValidateOpsToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return opsSecret(), nil
	})
}

// ExtractSubjectFromToken extracts the subject from a valid JWT token string.
// It returns the extracted subject or an error if validation fails.
func ExtractSubjectFromToken(tokenString string) (string, error) {
	token, err := ValidateOpsToken(tokenString)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("token does not contain a valid 'sub' claim")
	}

	return sub, nil
}
