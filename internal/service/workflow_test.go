package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marca-labs/brandgov/internal/domain"
	"github.com/marca-labs/brandgov/internal/pagination"
)

// MockAssetRepository is a mock implementation of AssetRepositoryInterface
type MockAssetRepository struct {
	mock.Mock
}

func (m *MockAssetRepository) Create(ctx context.Context, a *domain.CreativeAsset) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAssetRepository) GetByID(ctx context.Context, id string) (*domain.CreativeAsset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreativeAsset), args.Error(1)
}

func (m *MockAssetRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*AssetPageResult, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AssetPageResult), args.Error(1)
}

func (m *MockAssetRepository) UpdateStatus(ctx context.Context, update StatusUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

// MockAuditRepository is a mock implementation of AuditRepositoryInterface
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, a *domain.MultimodalAudit) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAuditRepository) HasPassingAudit(ctx context.Context, assetID string) (bool, error) {
	args := m.Called(ctx, assetID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuditRepository) LatestByAsset(ctx context.Context, assetID string) (*domain.MultimodalAudit, error) {
	args := m.Called(ctx, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MultimodalAudit), args.Error(1)
}

func (m *MockAuditRepository) ListByAsset(ctx context.Context, assetID string) ([]*domain.MultimodalAudit, error) {
	args := m.Called(ctx, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.MultimodalAudit), args.Error(1)
}

// MockJourneyRepository is a mock implementation of JourneyRepositoryInterface
type MockJourneyRepository struct {
	mock.Mock
}

func (m *MockJourneyRepository) Append(ctx context.Context, e *domain.AssetJourneyEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockJourneyRepository) ListByAsset(ctx context.Context, assetID string) ([]*domain.AssetJourneyEvent, error) {
	args := m.Called(ctx, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AssetJourneyEvent), args.Error(1)
}

func pendingAsset(status domain.WorkflowStatus) *domain.CreativeAsset {
	now := time.Now().UTC().Add(-time.Hour)
	return &domain.CreativeAsset{
		ID:            "asset-1",
		ManualID:      "manual-1",
		CreatedByID:   "creator-1",
		AssetType:     domain.AssetTypeProductDescription,
		Brief:         "a brief",
		GeneratedText: "generated copy",
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestWorkflowEngine_Review(t *testing.T) {
	ctx := context.Background()

	newEngine := func(assets *MockAssetRepository, audits *MockAuditRepository, journey *MockJourneyRepository) *WorkflowEngine {
		runner := &testTxRunner{repos: &testTxRepos{assets: assets, audits: audits, journey: journey}}
		return NewWorkflowEngineWithUUIDGen(assets, audits, runner, NewMockUUIDGenerator("event-1"))
	}

	t.Run("approver A approval moves pending_a to pending_b", func(t *testing.T) {
		assets := new(MockAssetRepository)
		audits := new(MockAuditRepository)
		journey := new(MockJourneyRepository)
		engine := newEngine(assets, audits, journey)

		assets.On("GetByID", mock.Anything, "asset-1").Return(pendingAsset(domain.StatusPendingA), nil)
		assets.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(u StatusUpdate) bool {
			return u.AssetID == "asset-1" &&
				u.Expected == domain.StatusPendingA &&
				u.To == domain.StatusPendingB &&
				u.ReviewerAID == "approver-a-1"
		})).Return(nil)
		journey.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.AssetJourneyEvent) bool {
			return e.EventType == domain.EventReviewAApproved &&
				e.FromStatus == domain.StatusPendingA &&
				e.ToStatus == domain.StatusPendingB &&
				e.ActorID == "approver-a-1"
		})).Return(nil)

		result, err := engine.Review(ctx, ReviewInput{
			AssetID: "asset-1",
			ActorID: "approver-a-1",
			Role:    domain.RoleApproverA,
			Action:  domain.ActionReviewAApprove,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusPendingB, result.Status)
		assert.Equal(t, "approver-a-1", result.ReviewerAID)
		assets.AssertExpectations(t)
		journey.AssertExpectations(t)
	})

	t.Run("rejection requires a reason", func(t *testing.T) {
		assets := new(MockAssetRepository)
		engine := newEngine(assets, new(MockAuditRepository), new(MockJourneyRepository))

		assets.On("GetByID", mock.Anything, "asset-1").Return(pendingAsset(domain.StatusPendingA), nil)

		_, err := engine.Review(ctx, ReviewInput{
			AssetID: "asset-1",
			ActorID: "approver-a-1",
			Role:    domain.RoleApproverA,
			Action:  domain.ActionReviewAReject,
		})

		require.ErrorIs(t, err, domain.ErrRejectionReason)
		assets.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
	})

	t.Run("rejection records the reason in status and journey", func(t *testing.T) {
		assets := new(MockAssetRepository)
		audits := new(MockAuditRepository)
		journey := new(MockJourneyRepository)
		engine := newEngine(assets, audits, journey)

		assets.On("GetByID", mock.Anything, "asset-1").Return(pendingAsset(domain.StatusPendingA), nil)
		assets.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(u StatusUpdate) bool {
			return u.To == domain.StatusRejected && u.RejectionReason == "off-brand colors"
		})).Return(nil)
		journey.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.AssetJourneyEvent) bool {
			return e.EventType == domain.EventReviewARejected &&
				e.Payload["rejection_reason"] == "off-brand colors"
		})).Return(nil)

		result, err := engine.Review(ctx, ReviewInput{
			AssetID: "asset-1",
			ActorID: "approver-a-1",
			Role:    domain.RoleApproverA,
			Action:  domain.ActionReviewAReject,
			Reason:  "off-brand colors",
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusRejected, result.Status)
		assert.Equal(t, "off-brand colors", result.RejectionReason)
	})

	t.Run("wrong role is forbidden", func(t *testing.T) {
		engine := newEngine(new(MockAssetRepository), new(MockAuditRepository), new(MockJourneyRepository))

		_, err := engine.Review(ctx, ReviewInput{
			AssetID: "asset-1",
			ActorID: "creator-1",
			Role:    domain.RoleCreator,
			Action:  domain.ActionReviewAApprove,
		})

		require.ErrorIs(t, err, domain.ErrRoleNotPermitted)
	})

	t.Run("approver B approval requires a passing audit", func(t *testing.T) {
		assets := new(MockAssetRepository)
		audits := new(MockAuditRepository)
		engine := newEngine(assets, audits, new(MockJourneyRepository))

		assets.On("GetByID", mock.Anything, "asset-1").Return(pendingAsset(domain.StatusPendingB), nil)
		audits.On("HasPassingAudit", mock.Anything, "asset-1").Return(false, nil)

		_, err := engine.Review(ctx, ReviewInput{
			AssetID: "asset-1",
			ActorID: "approver-b-1",
			Role:    domain.RoleApproverB,
			Action:  domain.ActionReviewBApprove,
		})

		require.ErrorIs(t, err, domain.ErrNoPassingAudit)
		assets.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
	})

	t.Run("approver B approval succeeds with a passing audit", func(t *testing.T) {
		assets := new(MockAssetRepository)
		audits := new(MockAuditRepository)
		journey := new(MockJourneyRepository)
		engine := newEngine(assets, audits, journey)

		assets.On("GetByID", mock.Anything, "asset-1").Return(pendingAsset(domain.StatusPendingB), nil)
		audits.On("HasPassingAudit", mock.Anything, "asset-1").Return(true, nil)
		assets.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(u StatusUpdate) bool {
			return u.Expected == domain.StatusPendingB &&
				u.To == domain.StatusApproved &&
				u.ReviewerBID == "approver-b-1"
		})).Return(nil)
		journey.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.AssetJourneyEvent) bool {
			return e.EventType == domain.EventReviewBApproved
		})).Return(nil)

		result, err := engine.Review(ctx, ReviewInput{
			AssetID: "asset-1",
			ActorID: "approver-b-1",
			Role:    domain.RoleApproverB,
			Action:  domain.ActionReviewBApprove,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, result.Status)
	})

	t.Run("terminal assets accept no further reviews", func(t *testing.T) {
		assets := new(MockAssetRepository)
		engine := newEngine(assets, new(MockAuditRepository), new(MockJourneyRepository))

		assets.On("GetByID", mock.Anything, "asset-1").Return(pendingAsset(domain.StatusApproved), nil)

		_, err := engine.Review(ctx, ReviewInput{
			AssetID: "asset-1",
			ActorID: "approver-a-1",
			Role:    domain.RoleApproverA,
			Action:  domain.ActionReviewAApprove,
		})

		require.ErrorIs(t, err, domain.ErrAssetTerminal)
	})

	t.Run("action undefined for current status is invalid", func(t *testing.T) {
		assets := new(MockAssetRepository)
		engine := newEngine(assets, new(MockAuditRepository), new(MockJourneyRepository))

		// Asset already in pending_b, but approver A tries their review again.
		assets.On("GetByID", mock.Anything, "asset-1").Return(pendingAsset(domain.StatusPendingB), nil)

		_, err := engine.Review(ctx, ReviewInput{
			AssetID: "asset-1",
			ActorID: "approver-a-1",
			Role:    domain.RoleApproverA,
			Action:  domain.ActionReviewAApprove,
		})

		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("concurrent status change surfaces as conflict", func(t *testing.T) {
		assets := new(MockAssetRepository)
		audits := new(MockAuditRepository)
		journey := new(MockJourneyRepository)
		engine := newEngine(assets, audits, journey)

		assets.On("GetByID", mock.Anything, "asset-1").Return(pendingAsset(domain.StatusPendingA), nil)
		assets.On("UpdateStatus", mock.Anything, mock.Anything).Return(domain.ErrStatusConflict)

		_, err := engine.Review(ctx, ReviewInput{
			AssetID: "asset-1",
			ActorID: "approver-a-1",
			Role:    domain.RoleApproverA,
			Action:  domain.ActionReviewAApprove,
		})

		require.ErrorIs(t, err, domain.ErrStatusConflict)
		// Losing side of the race appends no journey event.
		journey.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("audit action is not a review", func(t *testing.T) {
		engine := newEngine(new(MockAssetRepository), new(MockAuditRepository), new(MockJourneyRepository))

		_, err := engine.Review(ctx, ReviewInput{
			AssetID: "asset-1",
			ActorID: "approver-b-1",
			Role:    domain.RoleApproverB,
			Action:  domain.ActionAuditImage,
		})

		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("missing asset propagates not found", func(t *testing.T) {
		assets := new(MockAssetRepository)
		engine := newEngine(assets, new(MockAuditRepository), new(MockJourneyRepository))

		assets.On("GetByID", mock.Anything, "asset-1").Return(nil, domain.ErrAssetNotFound)

		_, err := engine.Review(ctx, ReviewInput{
			AssetID: "asset-1",
			ActorID: "approver-a-1",
			Role:    domain.RoleApproverA,
			Action:  domain.ActionReviewAApprove,
		})

		require.ErrorIs(t, err, domain.ErrAssetNotFound)
	})
}
