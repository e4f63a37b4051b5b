package jwttoken

import (
	"time"

	"claimdesk/internal/platform/middleware"
	"claimdesk/pkg/domain"
)

func ToMiddlewareClaims(claims *Claims) *middleware.JWTClaims {
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &middleware.JWTClaims{
		UserID:    domain.UserID(claims.UserID),
		JTI:       claims.ID, // JWT ID for revocation tracking
		ExpiresAt: expiresAt,
	}
}

type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
