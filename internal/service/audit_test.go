package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marca-labs/brandgov/internal/domain"
)

// MockRetriever is a mock implementation of Retriever
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, manualID, query string, k int) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, manualID, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}

// MockVisionClient is a mock implementation of VisionClient
type MockVisionClient struct {
	mock.Mock
}

func (m *MockVisionClient) AuditImage(ctx context.Context, prompt string, image []byte, mimeType string, schema json.RawMessage) (string, error) {
	args := m.Called(ctx, prompt, image, mimeType, schema)
	return args.String(0), args.Error(1)
}

// MockImageStore is a mock implementation of ImageStore
type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func TestParseAuditDecision(t *testing.T) {
	t.Run("parses bare JSON", func(t *testing.T) {
		d, err := ParseAuditDecision(`{"verdict": "pass", "explanation": "All rules respected.", "confidence": 0.92}`)
		require.NoError(t, err)
		assert.Equal(t, domain.VerdictPass, d.Verdict)
		assert.Equal(t, "All rules respected.", d.Explanation)
		assert.InDelta(t, 0.92, d.Confidence, 1e-9)
	})

	t.Run("parses fenced JSON", func(t *testing.T) {
		raw := "```json\n{\"verdict\": \"fail\", \"explanation\": \"Logo cropped.\", \"confidence\": 0.7}\n```"
		d, err := ParseAuditDecision(raw)
		require.NoError(t, err)
		assert.Equal(t, domain.VerdictFail, d.Verdict)
	})

	t.Run("parses JSON embedded in prose", func(t *testing.T) {
		raw := `Here is my assessment: {"verdict": "pass", "explanation": "ok", "confidence": 0.8} hope that helps`
		d, err := ParseAuditDecision(raw)
		require.NoError(t, err)
		assert.Equal(t, domain.VerdictPass, d.Verdict)
	})

	t.Run("unknown verdict string defaults to fail", func(t *testing.T) {
		d, err := ParseAuditDecision(`{"verdict": "maybe", "explanation": "unsure", "confidence": 0.5}`)
		require.NoError(t, err)
		assert.Equal(t, domain.VerdictFail, d.Verdict)
	})

	t.Run("clamps confidence into the unit interval", func(t *testing.T) {
		d, err := ParseAuditDecision(`{"verdict": "pass", "explanation": "x", "confidence": 1.7}`)
		require.NoError(t, err)
		assert.Equal(t, 1.0, d.Confidence)

		d, err = ParseAuditDecision(`{"verdict": "fail", "explanation": "x", "confidence": -0.3}`)
		require.NoError(t, err)
		assert.Equal(t, 0.0, d.Confidence)
	})

	t.Run("fills a default explanation", func(t *testing.T) {
		d, err := ParseAuditDecision(`{"verdict": "pass", "confidence": 0.9}`)
		require.NoError(t, err)
		assert.NotEmpty(t, d.Explanation)
	})

	t.Run("rejects responses without JSON", func(t *testing.T) {
		_, err := ParseAuditDecision("I am unable to audit this image.")
		require.Error(t, err)

		_, err = ParseAuditDecision("")
		require.Error(t, err)
	})
}

func TestAuditService_AuditImage(t *testing.T) {
	ctx := context.Background()

	ruleChunks := []domain.ScoredChunk{
		{Chunk: domain.ManualChunk{ChunkIndex: 0, ChunkText: "Logo needs clear space."}, Score: 0.9},
		{Chunk: domain.ManualChunk{ChunkIndex: 1, ChunkText: "Palette is teal and white."}, Score: 0.8},
	}

	input := AuditInput{
		AssetID:  "asset-1",
		ActorID:  "approver-b-1",
		Role:     domain.RoleApproverB,
		Image:    []byte("fake-image-bytes"),
		MimeType: "image/png",
		Filename: "banner.png",
	}

	newService := func(assets *MockAssetRepository, journey *MockJourneyRepository, retriever *MockRetriever, vision *MockVisionClient, audits *MockAuditRepository) *AuditService {
		runner := &testTxRunner{repos: &testTxRepos{assets: assets, audits: audits, journey: journey}}
		return NewAuditServiceWithUUIDGen(assets, journey, retriever, vision, nil, runner, NewMockUUIDGenerator("key-1", "audit-1", "event-1"))
	}

	t.Run("passing audit records the verdict and an audit_check event", func(t *testing.T) {
		assets := new(MockAssetRepository)
		journey := new(MockJourneyRepository)
		retriever := new(MockRetriever)
		vision := new(MockVisionClient)
		audits := new(MockAuditRepository)
		service := newService(assets, journey, retriever, vision, audits)

		assets.On("GetByID", mock.Anything, "asset-1").Return(pendingAsset(domain.StatusPendingB), nil)
		retriever.On("Retrieve", mock.Anything, "manual-1", mock.Anything, DefaultAuditTopK).Return(ruleChunks, nil)
		vision.On("AuditImage", mock.Anything, mock.MatchedBy(func(prompt string) bool {
			// Retrieved rules end up in the prompt.
			return strings.Contains(prompt, "Logo needs clear space.")
		}), input.Image, "image/png", mock.Anything).Return(`{"verdict": "pass", "explanation": "On brand.", "confidence": 0.95}`, nil)
		audits.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.MultimodalAudit) bool {
			return a.AssetID == "asset-1" &&
				a.ApproverID == "approver-b-1" &&
				a.Verdict == domain.VerdictPass &&
				a.Confidence == 0.95
		})).Return(nil)
		journey.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.AssetJourneyEvent) bool {
			return e.EventType == domain.EventAuditCheck &&
				e.FromStatus == domain.StatusPendingB &&
				e.ToStatus == domain.StatusPendingB &&
				e.Payload["verdict"] == "pass"
		})).Return(nil)

		audit, err := service.AuditImage(ctx, input)

		require.NoError(t, err)
		assert.Equal(t, domain.VerdictPass, audit.Verdict)
		audits.AssertExpectations(t)
		journey.AssertExpectations(t)
	})

	t.Run("failing audit records an audit_fail event and keeps the status", func(t *testing.T) {
		assets := new(MockAssetRepository)
		journey := new(MockJourneyRepository)
		retriever := new(MockRetriever)
		vision := new(MockVisionClient)
		audits := new(MockAuditRepository)
		service := newService(assets, journey, retriever, vision, audits)

		assets.On("GetByID", mock.Anything, "asset-1").Return(pendingAsset(domain.StatusPendingB), nil)
		retriever.On("Retrieve", mock.Anything, "manual-1", mock.Anything, DefaultAuditTopK).Return(ruleChunks, nil)
		vision.On("AuditImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(`{"verdict": "fail", "explanation": "Wrong palette.", "confidence": 0.88}`, nil)
		audits.On("Create", mock.Anything, mock.Anything).Return(nil)
		journey.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.AssetJourneyEvent) bool {
			return e.EventType == domain.EventAuditFail &&
				e.Payload["explanation"] == "Wrong palette."
		})).Return(nil)

		audit, err := service.AuditImage(ctx, input)

		require.NoError(t, err)
		assert.Equal(t, domain.VerdictFail, audit.Verdict)
	})

	t.Run("provider failure records audit_error and no audit row", func(t *testing.T) {
		assets := new(MockAssetRepository)
		journey := new(MockJourneyRepository)
		retriever := new(MockRetriever)
		vision := new(MockVisionClient)
		audits := new(MockAuditRepository)
		service := newService(assets, journey, retriever, vision, audits)

		assets.On("GetByID", mock.Anything, "asset-1").Return(pendingAsset(domain.StatusPendingB), nil)
		retriever.On("Retrieve", mock.Anything, "manual-1", mock.Anything, DefaultAuditTopK).Return(ruleChunks, nil)
		vision.On("AuditImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("model overloaded"))
		journey.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.AssetJourneyEvent) bool {
			return e.EventType == domain.EventAuditError &&
				e.Payload["error"] != nil
		})).Return(nil)

		_, err := service.AuditImage(ctx, input)

		require.Error(t, err)
		assert.Equal(t, domain.ErrCodeExternalService, domain.ErrorCode(err))
		audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		journey.AssertExpectations(t)
	})

	t.Run("unparseable verdict records audit_error", func(t *testing.T) {
		assets := new(MockAssetRepository)
		journey := new(MockJourneyRepository)
		retriever := new(MockRetriever)
		vision := new(MockVisionClient)
		audits := new(MockAuditRepository)
		service := newService(assets, journey, retriever, vision, audits)

		assets.On("GetByID", mock.Anything, "asset-1").Return(pendingAsset(domain.StatusPendingB), nil)
		retriever.On("Retrieve", mock.Anything, "manual-1", mock.Anything, DefaultAuditTopK).Return(ruleChunks, nil)
		vision.On("AuditImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("no JSON here", nil)
		journey.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.AssetJourneyEvent) bool {
			return e.EventType == domain.EventAuditError
		})).Return(nil)

		_, err := service.AuditImage(ctx, input)

		require.Error(t, err)
		assert.Equal(t, domain.ErrCodeExternalService, domain.ErrorCode(err))
	})

	t.Run("only approver B may audit", func(t *testing.T) {
		service := newService(new(MockAssetRepository), new(MockJourneyRepository), new(MockRetriever), new(MockVisionClient), new(MockAuditRepository))

		bad := input
		bad.Role = domain.RoleApproverA

		_, err := service.AuditImage(ctx, bad)

		require.ErrorIs(t, err, domain.ErrRoleNotPermitted)
	})

	t.Run("audits are rejected outside pending_b", func(t *testing.T) {
		assets := new(MockAssetRepository)
		service := newService(assets, new(MockJourneyRepository), new(MockRetriever), new(MockVisionClient), new(MockAuditRepository))

		assets.On("GetByID", mock.Anything, "asset-1").Return(pendingAsset(domain.StatusPendingA), nil)

		_, err := service.AuditImage(ctx, input)

		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("requires an image", func(t *testing.T) {
		service := newService(new(MockAssetRepository), new(MockJourneyRepository), new(MockRetriever), new(MockVisionClient), new(MockAuditRepository))

		bad := input
		bad.Image = nil

		_, err := service.AuditImage(ctx, bad)

		require.Error(t, err)
		assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))
	})
}
