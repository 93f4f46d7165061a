package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type JwtCustomClaim struct {
	ID   int    `json:"id"`
	Role string `json:"role"`
	jwt.StandardClaims
}

var (
	jwtSecret        = []byte(secretFromEnv("JWT_SECRET", "shopbooks-access-secret"))
	jwtRefreshSecret = []byte(secretFromEnv("JWT_REFRESH_SECRET", "shopbooks-refresh-secret"))
)

func secretFromEnv(key string, fallback string) string {
	secret := os.Getenv(key)
	if secret == "" {
		return fallback
	}
	return secret
}

func tokenLifespanHours(key string, fallback int) int {
	lifespan, err := strconv.Atoi(os.Getenv(key))
	if err != nil || lifespan <= 0 {
		return fallback
	}
	return lifespan
}

// JwtGenerate issues the short-lived access token (default 7 days, TOKEN_HOUR_LIFESPAN to override).
func JwtGenerate(userID int, role string) (string, error) {
	lifespan := tokenLifespanHours("TOKEN_HOUR_LIFESPAN", 24*7)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		ID:   userID,
		Role: role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Hour * time.Duration(lifespan)).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	})

	return t.SignedString(jwtSecret)
}

// JwtGenerateRefresh issues the long-lived refresh token (default 30 days,
// REFRESH_TOKEN_HOUR_LIFESPAN to override). Signed with a separate secret so an
// access token can never be replayed as a refresh token.
func JwtGenerateRefresh(userID int, role string) (string, error) {
	lifespan := tokenLifespanHours("REFRESH_TOKEN_HOUR_LIFESPAN", 24*30)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		ID:   userID,
		Role: role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Hour * time.Duration(lifespan)).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	})

	return t.SignedString(jwtRefreshSecret)
}

func JwtValidate(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return jwtSecret, nil
	})
}

func JwtValidateRefresh(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return jwtRefreshSecret, nil
	})
}
