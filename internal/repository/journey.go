package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marca-labs/brandgov/internal/domain"
)

// JourneyRepository persists the append-only asset event trail. Rows are
// never updated or deleted.
type JourneyRepository struct {
	db dbtx
}

func NewJourneyRepository(pool *pgxpool.Pool) *JourneyRepository {
	return &JourneyRepository{db: pool}
}

func NewJourneyRepositoryWithTx(tx pgx.Tx) *JourneyRepository {
	return &JourneyRepository{db: tx}
}

// Append inserts one event. The stored timestamp is clamped to the
// asset's latest event so per-asset timestamps never go backwards even
// across clock skew.
func (r *JourneyRepository) Append(ctx context.Context, e *domain.AssetJourneyEvent) error {
	payload := e.Payload
	if payload == nil {
		payload = domain.JourneyPayload{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO asset_journey_events
			(id, asset_id, actor_id, event_type, from_status, to_status, note, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
			GREATEST(
				now(),
				COALESCE((SELECT MAX(created_at) FROM asset_journey_events WHERE asset_id = $2), now())
			))`,
		e.ID, e.AssetID, nullableString(e.ActorID), e.EventType,
		nullableString(string(e.FromStatus)), nullableString(string(e.ToStatus)),
		nullableString(e.Note), raw,
	)
	return err
}

// ListByAsset returns the full trail in chronological order, insertion
// order breaking timestamp ties.
func (r *JourneyRepository) ListByAsset(ctx context.Context, assetID string) ([]*domain.AssetJourneyEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, asset_id, actor_id, event_type, from_status, to_status, note, payload, created_at
		 FROM asset_journey_events WHERE asset_id = $1
		 ORDER BY created_at ASC, seq ASC`,
		assetID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.AssetJourneyEvent
	for rows.Next() {
		var e domain.AssetJourneyEvent
		var actorID, fromStatus, toStatus, note *string
		var raw []byte
		if err := rows.Scan(&e.ID, &e.AssetID, &actorID, &e.EventType, &fromStatus, &toStatus, &note, &raw, &e.CreatedAt); err != nil {
			return nil, err
		}
		if actorID != nil {
			e.ActorID = *actorID
		}
		if fromStatus != nil {
			e.FromStatus = domain.WorkflowStatus(*fromStatus)
		}
		if toStatus != nil {
			e.ToStatus = domain.WorkflowStatus(*toStatus)
		}
		if note != nil {
			e.Note = *note
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Payload); err != nil {
				return nil, err
			}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
