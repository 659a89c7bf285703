package service

import (
	"context"
	"strings"
	"time"

	"github.com/marca-labs/brandgov/internal/domain"
	"github.com/marca-labs/brandgov/internal/pagination"
	"github.com/marca-labs/brandgov/internal/telemetry"
)

// DefaultGenerationTopK is the number of manual chunks retrieved as
// generation context.
const DefaultGenerationTopK = 5

// CreativeAssetService generates creative assets grounded in a brand
// manual: retrieve the most relevant manual chunks for the brief, compose
// a bounded prompt, call the text provider and persist the result in
// pending_a together with its first journey event.
type CreativeAssetService struct {
	assets     AssetRepositoryInterface
	manuals    ManualRepositoryInterface
	audits     AuditRepositoryInterface
	journey    JourneyRepositoryInterface
	retriever  Retriever
	composer   *PromptComposer
	textClient TextClient
	txRunner   TxRunner
	uuidGen    UUIDGenerator
	topK       int
}

// NewCreativeAssetService creates a new CreativeAssetService instance
func NewCreativeAssetService(
	assets AssetRepositoryInterface,
	manuals ManualRepositoryInterface,
	audits AuditRepositoryInterface,
	journey JourneyRepositoryInterface,
	retriever Retriever,
	composer *PromptComposer,
	textClient TextClient,
	txRunner TxRunner,
	topK int,
) *CreativeAssetService {
	if topK <= 0 {
		topK = DefaultGenerationTopK
	}
	return &CreativeAssetService{
		assets:     assets,
		manuals:    manuals,
		audits:     audits,
		journey:    journey,
		retriever:  retriever,
		composer:   composer,
		textClient: textClient,
		txRunner:   txRunner,
		uuidGen:    &DefaultUUIDGenerator{},
		topK:       topK,
	}
}

// NewCreativeAssetServiceWithUUIDGen creates a CreativeAssetService with a custom UUID generator (for testing)
func NewCreativeAssetServiceWithUUIDGen(
	assets AssetRepositoryInterface,
	manuals ManualRepositoryInterface,
	audits AuditRepositoryInterface,
	journey JourneyRepositoryInterface,
	retriever Retriever,
	composer *PromptComposer,
	textClient TextClient,
	txRunner TxRunner,
	topK int,
	uuidGen UUIDGenerator,
) *CreativeAssetService {
	s := NewCreativeAssetService(assets, manuals, audits, journey, retriever, composer, textClient, txRunner, topK)
	s.uuidGen = uuidGen
	return s
}

// GenerateAssetInput represents the input for generating a creative asset
type GenerateAssetInput struct {
	ManualID    string
	CreatedByID string
	AssetType   domain.AssetType
	Brief       string
}

// ListAssetsInput carries cursor pagination parameters for asset listing.
type ListAssetsInput struct {
	Cursor string
	Limit  int
}

// ListAssetsOutput is one page of assets.
type ListAssetsOutput struct {
	Items   []*domain.CreativeAsset
	Cursor  string
	HasMore bool
}

// Generate produces a new creative asset for the given manual and brief.
// The asset row and its asset_created journey event commit in one
// transaction; a provider failure persists nothing.
func (s *CreativeAssetService) Generate(ctx context.Context, input GenerateAssetInput) (*domain.CreativeAsset, error) {
	ctx, span := telemetry.StartSpan(ctx, "CreativeAssetService.Generate", telemetry.SpanAttributes{
		ManualID:  input.ManualID,
		UserID:    input.CreatedByID,
		Operation: "generate_asset",
	})
	defer span.End()

	if !domain.IsValidAssetType(input.AssetType) {
		return nil, domain.ErrInvalidAssetType
	}
	brief := strings.TrimSpace(input.Brief)
	if brief == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "brief is required")
	}

	manual, err := s.manuals.GetByID(ctx, input.ManualID)
	if err != nil {
		return nil, err
	}

	ranked, err := s.retriever.Retrieve(ctx, manual.ID, brief, s.topK)
	if err != nil {
		return nil, err
	}

	systemPrompt, userPrompt := s.composer.Compose(ComposeInput{
		AssetType:   input.AssetType,
		Brief:       brief,
		ProductName: manual.ProductName,
		Tone:        manual.Tone,
		Audience:    manual.Audience,
	}, ranked)

	text, err := s.textClient.GenerateText(ctx, systemPrompt, userPrompt, nil)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeExternalService, "asset generation failed", err)
	}

	now := time.Now().UTC()
	asset := &domain.CreativeAsset{
		ID:            s.uuidGen.NewString(),
		ManualID:      manual.ID,
		CreatedByID:   input.CreatedByID,
		AssetType:     input.AssetType,
		Brief:         brief,
		GeneratedText: text,
		Status:        domain.StatusPendingA,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := domain.ValidateAsset(asset); err != nil {
		return nil, err
	}

	event := &domain.AssetJourneyEvent{
		ID:        s.uuidGen.NewString(),
		AssetID:   asset.ID,
		ActorID:   input.CreatedByID,
		EventType: domain.EventAssetCreated,
		ToStatus:  domain.StatusPendingA,
		Note:      "Asset generated and queued for review",
		Payload: domain.JourneyPayload{
			"asset_type":     string(input.AssetType),
			"brief":          brief,
			"manual_id":      manual.ID,
			"context_chunks": len(ranked),
		},
		CreatedAt: now,
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Assets().Create(ctx, asset); err != nil {
			return err
		}
		return repos.Journey().Append(ctx, event)
	})
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodePersistence, "failed to persist asset", err)
	}

	return asset, nil
}

// GetByID retrieves a creative asset by its ID
func (s *CreativeAssetService) GetByID(ctx context.Context, id string) (*domain.CreativeAsset, error) {
	return s.assets.GetByID(ctx, id)
}

// List retrieves a page of creative assets, newest first
func (s *CreativeAssetService) List(ctx context.Context, input ListAssetsInput) (*ListAssetsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var cursor *pagination.Cursor
	if input.Cursor != "" {
		c, err := pagination.DecodeCursor(input.Cursor)
		if err != nil {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
		}
		cursor = c
	}

	page, err := s.assets.ListWithCursor(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}
	return &ListAssetsOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// Journey returns the chronological event trail of an asset.
func (s *CreativeAssetService) Journey(ctx context.Context, assetID string) ([]*domain.AssetJourneyEvent, error) {
	if _, err := s.assets.GetByID(ctx, assetID); err != nil {
		return nil, err
	}
	return s.journey.ListByAsset(ctx, assetID)
}

// Audits returns all audit attempts recorded for an asset, newest first.
func (s *CreativeAssetService) Audits(ctx context.Context, assetID string) ([]*domain.MultimodalAudit, error) {
	if _, err := s.assets.GetByID(ctx, assetID); err != nil {
		return nil, err
	}
	return s.audits.ListByAsset(ctx, assetID)
}

// LatestAudit returns the most recent audit for an asset, or nil when no
// audit has been attempted yet.
func (s *CreativeAssetService) LatestAudit(ctx context.Context, assetID string) (*domain.MultimodalAudit, error) {
	if _, err := s.assets.GetByID(ctx, assetID); err != nil {
		return nil, err
	}
	return s.audits.LatestByAsset(ctx, assetID)
}
