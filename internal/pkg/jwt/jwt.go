package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrInvalidToken indicates a token that failed validation or carries the
// wrong type claim.
var ErrInvalidToken = errors.New("invalid token")

// Service issues and validates tokens for the notification API. Access
// tokens authorize REST calls; stream tokens are short-lived credentials for
// the SSE endpoint, which cannot carry an Authorization header.
type Service interface {
	GenerateAccessToken(userID string) (token string, expiresAt int64, err error)
	GenerateStreamToken(userID string) (token string, expiresIn int, err error)
	ValidateStreamToken(tokenString string) (userID string, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	secretKey             string
	accessExpiration      time.Duration
	streamTokenExpiration time.Duration
	tokenAuth             *jwtauth.JWTAuth
}

func NewJWTService(secretKey string, accessExpiration, streamTokenExpiration time.Duration) Service {
	return &JWTService{
		secretKey:             secretKey,
		accessExpiration:      accessExpiration,
		streamTokenExpiration: streamTokenExpiration,
		tokenAuth:             jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func (j *JWTService) GenerateAccessToken(userID string) (string, int64, error) {
	expiresAt := time.Now().Add(j.accessExpiration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id": userID,
		"type":    "access",
		"exp":     expiresAt,
	})
	return tokenString, expiresAt, err
}

// GenerateStreamToken issues a short-lived token scoped to the SSE stream.
func (j *JWTService) GenerateStreamToken(userID string) (string, int, error) {
	expiresIn := int(j.streamTokenExpiration.Seconds())

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id": userID,
		"type":    "stream",
		"exp":     time.Now().Add(j.streamTokenExpiration).Unix(),
	})
	return tokenString, expiresIn, err
}

// ValidateStreamToken verifies a stream token and returns the user it was
// issued for.
func (j *JWTService) ValidateStreamToken(tokenString string) (string, error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return "", ErrInvalidToken
	}

	if tokenType, ok := claims["type"].(string); !ok || tokenType != "stream" {
		return "", ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}

	return userID, nil
}
