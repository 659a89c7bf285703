package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marca-labs/brandgov/internal/domain"
)

type AuditRepository struct {
	db dbtx
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: pool}
}

func NewAuditRepositoryWithTx(tx pgx.Tx) *AuditRepository {
	return &AuditRepository{db: tx}
}

func (r *AuditRepository) Create(ctx context.Context, a *domain.MultimodalAudit) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO multimodal_audits (id, asset_id, approver_id, image_key, verdict, explanation, confidence, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.AssetID, a.ApproverID, nullableString(a.ImageKey), a.Verdict, a.Explanation, a.Confidence, a.CreatedAt,
	)
	return err
}

func (r *AuditRepository) HasPassingAudit(ctx context.Context, assetID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM multimodal_audits WHERE asset_id = $1 AND verdict = $2)`,
		assetID, domain.VerdictPass,
	).Scan(&exists)
	return exists, err
}

func (r *AuditRepository) LatestByAsset(ctx context.Context, assetID string) (*domain.MultimodalAudit, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, asset_id, approver_id, image_key, verdict, explanation, confidence, created_at
		 FROM multimodal_audits WHERE asset_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		assetID,
	)
	a, err := scanAudit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *AuditRepository) ListByAsset(ctx context.Context, assetID string) ([]*domain.MultimodalAudit, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, asset_id, approver_id, image_key, verdict, explanation, confidence, created_at
		 FROM multimodal_audits WHERE asset_id = $1
		 ORDER BY created_at DESC, id DESC`,
		assetID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audits []*domain.MultimodalAudit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}

func scanAudit(row pgx.Row) (*domain.MultimodalAudit, error) {
	var a domain.MultimodalAudit
	var imageKey *string
	err := row.Scan(&a.ID, &a.AssetID, &a.ApproverID, &imageKey, &a.Verdict, &a.Explanation, &a.Confidence, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if imageKey != nil {
		a.ImageKey = *imageKey
	}
	return &a, nil
}
