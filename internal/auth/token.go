package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"learning_assist/internal/models"
)

// TokenTTL is how long an issued user token stays valid.
const TokenTTL = 7 * 24 * time.Hour

// Claims is the user identity embedded in a signed token.
type Claims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	UserType string `json:"user_type"`
}

// GenerateToken creates a signed token carrying the user's identity claims.
func GenerateToken(u *models.User, secret []byte) (string, error) {
	claims := jwt.MapClaims{
		"user_id":   u.UserID,
		"email":     u.Email,
		"user_type": u.UserType,
		"exp":       time.Now().Add(TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyToken validates a token's signature and expiry and returns the
// embedded claims.
func VerifyToken(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims := &Claims{}
	claims.UserID, _ = mapClaims["user_id"].(string)
	claims.Email, _ = mapClaims["email"].(string)
	claims.UserType, _ = mapClaims["user_type"].(string)
	if claims.UserID == "" {
		return nil, errors.New("token has no user identity")
	}
	return claims, nil
}
