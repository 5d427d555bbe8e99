package service

import "github.com/rookgm/creditmart/internal/models"

type TokenService interface {
	CreateToken(subject, role string) (string, error)
	VerifyToken(tokenString string) (*models.TokenPayload, error)
}
