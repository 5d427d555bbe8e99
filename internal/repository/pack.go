package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rookgm/creditmart/internal/models"
	"github.com/rookgm/creditmart/internal/repository/postgres"
)

const (
	selectPackQuery = `
						SELECT id, name, credits, price::text, currency FROM credit_packs
						WHERE id = $1
`
)

// PackRepository implements PackRepository interface
type PackRepository struct {
	db *postgres.DB
}

// NewPackRepository creates new PackRepository instance
func NewPackRepository(db *postgres.DB) *PackRepository {
	return &PackRepository{db: db}
}

// GetPack returns credit pack by id
func (pr *PackRepository) GetPack(ctx context.Context, packID string) (*models.CreditPack, error) {
	p := models.CreditPack{}
	err := pr.db.QueryRow(ctx, selectPackQuery, packID).Scan(&p.ID, &p.Name, &p.Credits, &p.Price, &p.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPackNotFound
		}
		return nil, err
	}
	return &p, nil
}
