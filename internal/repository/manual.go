package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marca-labs/brandgov/internal/domain"
)

type ManualRepository struct {
	db dbtx
}

func NewManualRepository(pool *pgxpool.Pool) *ManualRepository {
	return &ManualRepository{db: pool}
}

func NewManualRepositoryWithTx(tx pgx.Tx) *ManualRepository {
	return &ManualRepository{db: tx}
}

func (r *ManualRepository) Create(ctx context.Context, m *domain.BrandManual) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO brand_manuals (id, product_name, tone, audience, raw_input, manual_markdown, created_by_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.ProductName, nullableString(m.Tone), nullableString(m.Audience), nullableString(m.RawInput), m.ManualMarkdown, m.CreatedByID, m.CreatedAt,
	)
	return err
}

func (r *ManualRepository) GetByID(ctx context.Context, id string) (*domain.BrandManual, error) {
	var m domain.BrandManual
	var tone, audience, rawInput *string
	err := r.db.QueryRow(ctx,
		`SELECT id, product_name, tone, audience, raw_input, manual_markdown, created_by_id, created_at
		 FROM brand_manuals WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.ProductName, &tone, &audience, &rawInput, &m.ManualMarkdown, &m.CreatedByID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrManualNotFound
		}
		return nil, err
	}
	if tone != nil {
		m.Tone = *tone
	}
	if audience != nil {
		m.Audience = *audience
	}
	if rawInput != nil {
		m.RawInput = *rawInput
	}
	return &m, nil
}

func (r *ManualRepository) List(ctx context.Context) ([]*domain.BrandManual, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, product_name, tone, audience, raw_input, manual_markdown, created_by_id, created_at
		 FROM brand_manuals ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var manuals []*domain.BrandManual
	for rows.Next() {
		var m domain.BrandManual
		var tone, audience, rawInput *string
		if err := rows.Scan(&m.ID, &m.ProductName, &tone, &audience, &rawInput, &m.ManualMarkdown, &m.CreatedByID, &m.CreatedAt); err != nil {
			return nil, err
		}
		if tone != nil {
			m.Tone = *tone
		}
		if audience != nil {
			m.Audience = *audience
		}
		if rawInput != nil {
			m.RawInput = *rawInput
		}
		manuals = append(manuals, &m)
	}
	return manuals, rows.Err()
}
