package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jarvis-chat/bugstream/pkg/bugstream"
)

// JWT-based implementation of the token validation capability the streaming
// service delegates to, plus token issuance for the login endpoint and CLI.

// Claims are the JWT token claims.
type Claims struct {
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuth handles JWT token creation and validation.
type JWTAuth struct {
	secretKey []byte
	tokenTTL  time.Duration
}

// NewJWTAuth creates a new JWT authentication handler.
func NewJWTAuth(secretKey string) *JWTAuth {
	return &JWTAuth{
		secretKey: []byte(secretKey),
		tokenTTL:  24 * time.Hour,
	}
}

// GenerateToken creates a new JWT token for a user.
func (j *JWTAuth) GenerateToken(userID string, isAdmin bool) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("userID cannot be empty")
	}

	now := time.Now()
	expiresAt := now.Add(j.tokenTTL)

	claims := Claims{
		UserID:  userID,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (j *JWTAuth) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token cannot be empty")
	}

	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	return claims, nil
}

// Authenticate implements bugstream.TokenValidator for the streaming core.
func (j *JWTAuth) Authenticate(token string) (bugstream.Identity, error) {
	claims, err := j.ValidateToken(token)
	if err != nil {
		return bugstream.Identity{}, err
	}
	return bugstream.Identity{UserID: claims.UserID, Admin: claims.IsAdmin}, nil
}

var _ bugstream.TokenValidator = (*JWTAuth)(nil)
