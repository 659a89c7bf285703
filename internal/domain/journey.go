package domain

import "time"

// JourneyEventType identifies what happened to an asset. The set is open:
// new event types may appear without a storage or schema change, so this is
// not validated against a closed enum.
type JourneyEventType string

const (
	EventAssetCreated    JourneyEventType = "asset_created"
	EventReviewAApproved JourneyEventType = "review_a_approved"
	EventReviewARejected JourneyEventType = "review_a_rejected"
	EventAuditCheck      JourneyEventType = "audit_check"
	EventAuditFail       JourneyEventType = "audit_fail"
	EventAuditError      JourneyEventType = "audit_error"
	EventReviewBApproved JourneyEventType = "review_b_approved"
	EventReviewBRejected JourneyEventType = "review_b_rejected"
)

// JourneyPayload is a schema-flexible key-value payload attached to events.
type JourneyPayload map[string]any

// AssetJourneyEvent is one immutable record in an asset's append-only
// trail. Events are never updated or deleted; per-asset timestamps are
// non-decreasing.
type AssetJourneyEvent struct {
	ID         string
	AssetID    string
	ActorID    string
	EventType  JourneyEventType
	FromStatus WorkflowStatus
	ToStatus   WorkflowStatus
	Note       string
	Payload    JourneyPayload
	CreatedAt  time.Time
}
