package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type resetClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateResetToken creates a signed short-lived token for the
// forgot-password flow.
func GenerateResetToken(secret, email string, ttl time.Duration) (string, error) {
	claims := &resetClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseResetToken validates the token and returns the embedded email.
func ParseResetToken(secret, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &resetClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(*resetClaims); ok && token.Valid {
		return claims.Email, nil
	}

	return "", jwt.ErrTokenInvalidClaims
}
