package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims der Tokens des Identity-Providers. Subject ist die User-ID (UUID).
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// ErrInvalidToken meldet ein Token ohne gültige User-ID.
var ErrInvalidToken = errors.New("invalid token")

// GenerateToken signiert ein HS256-Token. Wird von Tests und lokalen Werkzeugen genutzt,
// im Betrieb stellt der Identity-Provider die Tokens aus.
func GenerateToken(userID, email, name, secret, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken prüft Signatur, Ablauf und, falls gesetzt, den Issuer. Das Subject muss
// eine UUID sein, da es als Profil-ID gespeichert wird.
func ValidateToken(tokenString, secret, issuer string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || uuid.Validate(claims.Subject) != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
