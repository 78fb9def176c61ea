package jwttoken

import (
	"shiplog/internal/platform/middleware"
)

// MiddlewareAdapter bridges JWTService to the middleware's validator
// interface so the middleware package never imports jwt internals.
type MiddlewareAdapter struct {
	service *JWTService
}

func NewMiddlewareAdapter(service *JWTService) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*middleware.Claims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.Claims{ActorID: claims.ActorID, Role: claims.Role}, nil
}
