package service

import (
	"context"
	"fmt"
	"time"

	"github.com/marca-labs/brandgov/internal/domain"
	"github.com/marca-labs/brandgov/internal/pagination"
	"github.com/marca-labs/brandgov/internal/telemetry"
)

// StatusUpdate is a conditional status mutation: it only applies when the
// asset's current status still matches Expected at commit time.
type StatusUpdate struct {
	AssetID         string
	Expected        domain.WorkflowStatus
	To              domain.WorkflowStatus
	ReviewerAID     string
	ReviewerBID     string
	RejectionReason string
}

// AssetRepositoryInterface defines the repository interface for creative asset persistence
type AssetRepositoryInterface interface {
	Create(ctx context.Context, a *domain.CreativeAsset) error
	GetByID(ctx context.Context, id string) (*domain.CreativeAsset, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*AssetPageResult, error)
	UpdateStatus(ctx context.Context, update StatusUpdate) error
}

// AssetPageResult is one page of assets from a cursor listing.
type AssetPageResult struct {
	Items      []*domain.CreativeAsset
	NextCursor string
	HasMore    bool
}

// AuditRepositoryInterface defines the repository interface for multimodal audit persistence
type AuditRepositoryInterface interface {
	Create(ctx context.Context, a *domain.MultimodalAudit) error
	HasPassingAudit(ctx context.Context, assetID string) (bool, error)
	LatestByAsset(ctx context.Context, assetID string) (*domain.MultimodalAudit, error)
	ListByAsset(ctx context.Context, assetID string) ([]*domain.MultimodalAudit, error)
}

// JourneyRepositoryInterface defines the repository interface for the append-only journey trail
type JourneyRepositoryInterface interface {
	Append(ctx context.Context, e *domain.AssetJourneyEvent) error
	ListByAsset(ctx context.Context, assetID string) ([]*domain.AssetJourneyEvent, error)
}

// WorkflowEngine owns the asset status state machine. It trusts the role
// it is handed (resolution happens upstream) and only checks it against
// the transition table. Status mutations are optimistic: they are
// conditioned on the expected pre-state, so of two racing reviewers
// exactly one wins and the loser gets a conflict.
type WorkflowEngine struct {
	assets   AssetRepositoryInterface
	audits   AuditRepositoryInterface
	txRunner TxRunner
	uuidGen  UUIDGenerator
}

// NewWorkflowEngine creates a new WorkflowEngine instance
func NewWorkflowEngine(assets AssetRepositoryInterface, audits AuditRepositoryInterface, txRunner TxRunner) *WorkflowEngine {
	return &WorkflowEngine{
		assets:   assets,
		audits:   audits,
		txRunner: txRunner,
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

// NewWorkflowEngineWithUUIDGen creates a WorkflowEngine with a custom UUID generator (for testing)
func NewWorkflowEngineWithUUIDGen(assets AssetRepositoryInterface, audits AuditRepositoryInterface, txRunner TxRunner, uuidGen UUIDGenerator) *WorkflowEngine {
	return &WorkflowEngine{
		assets:   assets,
		audits:   audits,
		txRunner: txRunner,
		uuidGen:  uuidGen,
	}
}

// ReviewInput represents a requested review transition
type ReviewInput struct {
	AssetID string
	ActorID string
	Role    domain.Role
	Action  domain.WorkflowAction
	Reason  string
}

// Review applies a review transition from the workflow table. It fails
// with a typed domain error when the action is undefined for the asset's
// status, the role does not match, a required precondition is missing, or
// the status changed concurrently since it was read.
func (e *WorkflowEngine) Review(ctx context.Context, input ReviewInput) (*domain.CreativeAsset, error) {
	ctx, span := telemetry.StartSpan(ctx, "WorkflowEngine.Review", telemetry.SpanAttributes{
		AssetID:   input.AssetID,
		Operation: string(input.Action),
	})
	defer span.End()

	tr, ok := domain.TransitionFor(input.Action)
	if !ok || input.Action == domain.ActionAuditImage {
		return nil, domain.ErrInvalidTransition
	}

	if input.Role != tr.Role {
		return nil, domain.ErrRoleNotPermitted
	}

	asset, err := e.assets.GetByID(ctx, input.AssetID)
	if err != nil {
		return nil, err
	}

	if asset.Status != tr.From {
		if domain.IsTerminal(asset.Status) {
			return nil, domain.ErrAssetTerminal
		}
		return nil, domain.ErrInvalidTransition
	}

	if tr.RequiresReason && input.Reason == "" {
		return nil, domain.ErrRejectionReason
	}

	if tr.RequiresPassingAudit {
		hasPass, err := e.audits.HasPassingAudit(ctx, input.AssetID)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodePersistence, "failed to check audits", err)
		}
		if !hasPass {
			return nil, domain.ErrNoPassingAudit
		}
	}

	update := StatusUpdate{
		AssetID:  input.AssetID,
		Expected: tr.From,
		To:       tr.To,
	}
	switch tr.Role {
	case domain.RoleApproverA:
		update.ReviewerAID = input.ActorID
	case domain.RoleApproverB:
		update.ReviewerBID = input.ActorID
	}
	if tr.To == domain.StatusRejected {
		update.RejectionReason = input.Reason
	}

	event := &domain.AssetJourneyEvent{
		ID:         e.uuidGen.NewString(),
		AssetID:    input.AssetID,
		ActorID:    input.ActorID,
		EventType:  eventForAction(input.Action),
		FromStatus: tr.From,
		ToStatus:   tr.To,
		Note:       noteForAction(input.Action, input.Reason),
		Payload:    domain.JourneyPayload{},
		CreatedAt:  time.Now().UTC(),
	}
	if input.Reason != "" {
		event.Payload["rejection_reason"] = input.Reason
	}

	// The conditional update and the journey append commit together, so
	// the losing side of a race records neither.
	err = e.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Assets().UpdateStatus(ctx, update); err != nil {
			return err
		}
		return repos.Journey().Append(ctx, event)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	asset.Status = tr.To
	asset.UpdatedAt = time.Now().UTC()
	if update.ReviewerAID != "" {
		asset.ReviewerAID = update.ReviewerAID
	}
	if update.ReviewerBID != "" {
		asset.ReviewerBID = update.ReviewerBID
	}
	asset.RejectionReason = update.RejectionReason

	return asset, nil
}

func eventForAction(action domain.WorkflowAction) domain.JourneyEventType {
	switch action {
	case domain.ActionReviewAApprove:
		return domain.EventReviewAApproved
	case domain.ActionReviewAReject:
		return domain.EventReviewARejected
	case domain.ActionReviewBApprove:
		return domain.EventReviewBApproved
	case domain.ActionReviewBReject:
		return domain.EventReviewBRejected
	}
	return domain.JourneyEventType(string(action))
}

func noteForAction(action domain.WorkflowAction, reason string) string {
	switch action {
	case domain.ActionReviewAApprove:
		return "Approver A approved and sent to Approver B"
	case domain.ActionReviewAReject:
		return fmt.Sprintf("Approver A rejected: %s", reason)
	case domain.ActionReviewBApprove:
		return "Approver B approved the asset"
	case domain.ActionReviewBReject:
		return fmt.Sprintf("Approver B rejected: %s", reason)
	}
	return string(action)
}
