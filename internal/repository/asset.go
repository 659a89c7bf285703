package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marca-labs/brandgov/internal/domain"
	"github.com/marca-labs/brandgov/internal/pagination"
	"github.com/marca-labs/brandgov/internal/service"
)

type AssetRepository struct {
	db dbtx
}

func NewAssetRepository(pool *pgxpool.Pool) *AssetRepository {
	return &AssetRepository{db: pool}
}

func NewAssetRepositoryWithTx(tx pgx.Tx) *AssetRepository {
	return &AssetRepository{db: tx}
}

const assetColumns = `id, manual_id, created_by_id, asset_type, brief, generated_text,
	workflow_status, reviewer_a_id, reviewer_b_id, rejection_reason, created_at, updated_at`

func (r *AssetRepository) Create(ctx context.Context, a *domain.CreativeAsset) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO creative_assets
			(id, manual_id, created_by_id, asset_type, brief, generated_text, workflow_status,
			 reviewer_a_id, reviewer_b_id, rejection_reason, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.ManualID, a.CreatedByID, a.AssetType, a.Brief, a.GeneratedText, a.Status,
		nullableString(a.ReviewerAID), nullableString(a.ReviewerBID), nullableString(a.RejectionReason),
		a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *AssetRepository) GetByID(ctx context.Context, id string) (*domain.CreativeAsset, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+assetColumns+` FROM creative_assets WHERE id = $1`,
		id,
	)
	a, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAssetNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AssetRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.AssetPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+assetColumns+`
			 FROM creative_assets
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+assetColumns+`
			 FROM creative_assets
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.CreativeAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &service.AssetPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// UpdateStatus applies an optimistic status mutation: the row only changes
// when it is still in the expected status. A vanished row distinguishes
// "asset gone" from "asset moved on".
func (r *AssetRepository) UpdateStatus(ctx context.Context, update service.StatusUpdate) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE creative_assets
		 SET workflow_status = $1,
		     reviewer_a_id = COALESCE($2, reviewer_a_id),
		     reviewer_b_id = COALESCE($3, reviewer_b_id),
		     rejection_reason = $4,
		     updated_at = $5
		 WHERE id = $6 AND workflow_status = $7`,
		update.To,
		nullableString(update.ReviewerAID),
		nullableString(update.ReviewerBID),
		nullableString(update.RejectionReason),
		time.Now().UTC(),
		update.AssetID,
		update.Expected,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM creative_assets WHERE id = $1)`,
			update.AssetID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrAssetNotFound
		}
		return domain.ErrStatusConflict
	}
	return nil
}

func scanAsset(row pgx.Row) (*domain.CreativeAsset, error) {
	var a domain.CreativeAsset
	var reviewerA, reviewerB, reason *string
	err := row.Scan(
		&a.ID, &a.ManualID, &a.CreatedByID, &a.AssetType, &a.Brief, &a.GeneratedText,
		&a.Status, &reviewerA, &reviewerB, &reason, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reviewerA != nil {
		a.ReviewerAID = *reviewerA
	}
	if reviewerB != nil {
		a.ReviewerBID = *reviewerB
	}
	if reason != nil {
		a.RejectionReason = *reason
	}
	return &a, nil
}
