// internal/common/utils/jwt.go
// Validation of access tokens minted by the auth service

package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

type JWTClaims struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Type      string `json:"type"` // "access" or "refresh"
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat"`
	Issuer    string `json:"iss"`
}

// GenerateJWT signs claims with HS256. The auth service issues real tokens;
// this exists for tooling and tests.
func GenerateJWT(claims *JWTClaims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  strconv.FormatInt(claims.UserID, 10),
		"email":    claims.Email,
		"username": claims.Username,
		"type":     claims.Type,
		"exp":      claims.ExpiresAt,
		"iat":      claims.IssuedAt,
		"iss":      claims.Issuer,
	})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateJWT verifies an access token and returns its claims
func ValidateJWT(tokenString string, secret string) (*JWTClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := parseUserID(claims["user_id"])
	if err != nil {
		return nil, err
	}

	out := &JWTClaims{
		UserID:    userID,
		Email:     getStringClaim(claims, "email"),
		Username:  getStringClaim(claims, "username"),
		Type:      getStringClaim(claims, "type"),
		ExpiresAt: getInt64Claim(claims, "exp"),
		IssuedAt:  getInt64Claim(claims, "iat"),
		Issuer:    getStringClaim(claims, "iss"),
	}
	if out.Type != "" && out.Type != "access" {
		return nil, fmt.Errorf("%w: %s token", ErrInvalidToken, out.Type)
	}
	return out, nil
}

// TokenFromRequest reads a bearer token from the Authorization header, or
// from the token query parameter for websocket clients that cannot set headers
func TokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", ErrInvalidToken
		}
		return parts[1], nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

// user_id is a string in tokens from the auth service; accept numbers too
func parseUserID(v interface{}) (int64, error) {
	switch id := v.(type) {
	case string:
		userID, err := strconv.ParseInt(id, 10, 64)
		if err != nil || userID <= 0 {
			return 0, fmt.Errorf("%w: bad user_id", ErrInvalidToken)
		}
		return userID, nil
	case float64:
		if id <= 0 || id != float64(int64(id)) {
			return 0, fmt.Errorf("%w: bad user_id", ErrInvalidToken)
		}
		return int64(id), nil
	}
	return 0, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
}

func getStringClaim(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}

func getInt64Claim(claims jwt.MapClaims, key string) int64 {
	if val, ok := claims[key].(float64); ok {
		return int64(val)
	}
	return 0
}
