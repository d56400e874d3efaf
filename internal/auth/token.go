// Package auth provides the identity collaborator for the lending API:
// password hashing, JWT issue/verify, the request middleware and the single
// role predicate that gates administrative catalog mutation. The lending
// engine itself is role-agnostic and only ever sees opaque user IDs.
package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrSuraphong/library-testing/internal/model"
)

const tokenTTL = 24 * time.Hour

// Claims carried in the bearer token.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	s := os.Getenv("JWT_SECRET")
	if s == "" {
		s = "dev_secret_change_me"
	}
	return []byte(s)
}

// GenerateToken issues a signed HS256 token for the user.
func GenerateToken(userID, username, role string) (string, error) {
	now := time.Now()

	claims := Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "library-lending",
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// ParseToken validates a token string and returns its claims.
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return jwtSecret(), nil
		})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// CanManageCatalog is the authorization predicate for administrative book
// mutation. Borrow and return are open to every authenticated user.
func CanManageCatalog(role string) bool {
	return role == model.RoleAdmin
}
