package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/codepet/classroom-sync-api/internal/models"
	appErrors "github.com/codepet/classroom-sync-api/pkg/errors"
)

// AuthService verifies bearer tokens issued by the upstream auth layer. This
// service never issues tokens or stores credentials.
type AuthService struct {
	secret []byte
}

// NewAuthService constructs the service with the shared signing secret.
func NewAuthService(secret string) *AuthService {
	return &AuthService{secret: []byte(secret)}
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.OwnerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.OwnerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.OwnerClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.OwnerID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token missing owner identity")
	}

	return claims, nil
}
