package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marca-labs/brandgov/internal/domain"
	"github.com/marca-labs/brandgov/internal/telemetry"
)

// ManualRepositoryInterface defines the repository interface for brand manual persistence
type ManualRepositoryInterface interface {
	Create(ctx context.Context, m *domain.BrandManual) error
	GetByID(ctx context.Context, id string) (*domain.BrandManual, error)
	List(ctx context.Context) ([]*domain.BrandManual, error)
}

// TextClient defines the interface for structured text generation
type TextClient interface {
	GenerateText(ctx context.Context, system, user string, schema json.RawMessage) (string, error)
}

// Indexer defines the chunk-indexing interface the manual service consumes
type Indexer interface {
	IndexManual(ctx context.Context, manualID, text string) (int, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

var manualSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"brand_essence": {"type": "string"},
		"voice_and_tone": {"type": "string"},
		"language_dos_and_donts": {"type": "string"},
		"visual_identity": {"type": "string"},
		"compliance_rules": {"type": "string"}
	},
	"required": ["brand_essence", "voice_and_tone", "language_dos_and_donts", "visual_identity", "compliance_rules"],
	"additionalProperties": false
}`)

const manualSystemPrompt = "You are a senior brand strategist. Write a complete, " +
	"prescriptive brand manual for the product described by the user. Each section " +
	"must contain concrete, enforceable rules a reviewer could check content " +
	"against, in markdown. Return ONLY valid JSON matching the indicated schema."

// manualSections fixes the render order of the generated manual.
var manualSections = []struct {
	key     string
	heading string
}{
	{"brand_essence", "Brand Essence"},
	{"voice_and_tone", "Voice and Tone"},
	{"language_dos_and_donts", "Language Do's and Don'ts"},
	{"visual_identity", "Visual Identity"},
	{"compliance_rules", "Compliance Rules"},
}

// BrandManualService handles business logic for brand manuals: generation
// via the text provider, persistence and chunk indexing.
type BrandManualService struct {
	manualRepo ManualRepositoryInterface
	textClient TextClient
	indexer    Indexer
	uuidGen    UUIDGenerator
}

// NewBrandManualService creates a new BrandManualService instance
func NewBrandManualService(manualRepo ManualRepositoryInterface, textClient TextClient, indexer Indexer) *BrandManualService {
	return &BrandManualService{
		manualRepo: manualRepo,
		textClient: textClient,
		indexer:    indexer,
		uuidGen:    &DefaultUUIDGenerator{},
	}
}

// NewBrandManualServiceWithUUIDGen creates a new BrandManualService with custom UUID generator (for testing)
func NewBrandManualServiceWithUUIDGen(manualRepo ManualRepositoryInterface, textClient TextClient, indexer Indexer, uuidGen UUIDGenerator) *BrandManualService {
	return &BrandManualService{
		manualRepo: manualRepo,
		textClient: textClient,
		indexer:    indexer,
		uuidGen:    uuidGen,
	}
}

// CreateManualInput represents the input for creating a brand manual
type CreateManualInput struct {
	ProductName string
	Tone        string
	Audience    string
	RawInput    string
	CreatedByID string
}

// Create generates the manual markdown from the input brief, persists it
// and indexes it for retrieval. The manual is committed before indexing
// starts; a failed indexing run is recoverable through Reindex.
func (s *BrandManualService) Create(ctx context.Context, input CreateManualInput) (*domain.BrandManual, error) {
	ctx, span := telemetry.StartSpan(ctx, "BrandManualService.Create", telemetry.SpanAttributes{
		UserID:    input.CreatedByID,
		Operation: "create_manual",
	})
	defer span.End()

	manual := &domain.BrandManual{
		ID:          s.uuidGen.NewString(),
		ProductName: strings.TrimSpace(input.ProductName),
		Tone:        strings.TrimSpace(input.Tone),
		Audience:    strings.TrimSpace(input.Audience),
		RawInput:    strings.TrimSpace(input.RawInput),
		CreatedByID: input.CreatedByID,
		CreatedAt:   time.Now().UTC(),
	}
	if manual.ProductName == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "product name is required")
	}
	if manual.CreatedByID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "creator is required")
	}

	markdown, err := s.generateMarkdown(ctx, manual)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	manual.ManualMarkdown = markdown
	if err := domain.ValidateManual(manual); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid manual", err)
	}

	if err := s.manualRepo.Create(ctx, manual); err != nil {
		span.SetError(err)
		return nil, err
	}

	if _, err := s.indexer.IndexManual(ctx, manual.ID, manual.ManualMarkdown); err != nil {
		span.SetError(err)
		return nil, err
	}

	return manual, nil
}

// GetByID retrieves a brand manual by its ID
func (s *BrandManualService) GetByID(ctx context.Context, id string) (*domain.BrandManual, error) {
	return s.manualRepo.GetByID(ctx, id)
}

// List retrieves all brand manuals, newest first
func (s *BrandManualService) List(ctx context.Context) ([]*domain.BrandManual, error) {
	return s.manualRepo.List(ctx)
}

// Reindex rebuilds a manual's chunk set from its stored markdown and
// returns the number of chunks indexed.
func (s *BrandManualService) Reindex(ctx context.Context, manualID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "BrandManualService.Reindex", telemetry.SpanAttributes{
		ManualID:  manualID,
		Operation: "reindex_manual",
	})
	defer span.End()

	manual, err := s.manualRepo.GetByID(ctx, manualID)
	if err != nil {
		return 0, err
	}
	return s.indexer.IndexManual(ctx, manual.ID, manual.ManualMarkdown)
}

func (s *BrandManualService) generateMarkdown(ctx context.Context, m *domain.BrandManual) (string, error) {
	userPrompt := fmt.Sprintf(
		"Product: %s\nDesired tone: %s\nTarget audience: %s\n\nAdditional notes from the brand team:\n%s",
		m.ProductName, m.Tone, m.Audience, m.RawInput,
	)

	raw, err := s.textClient.GenerateText(ctx, manualSystemPrompt, userPrompt, manualSchema)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeExternalService, "manual generation failed", err)
	}

	obj, err := extractJSONObject(raw)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeExternalService, "manual generation returned an invalid payload", err)
	}

	var sections map[string]string
	if err := json.Unmarshal(obj, &sections); err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeExternalService, "manual generation returned an invalid payload", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Brand Manual: %s\n", m.ProductName)
	for _, sec := range manualSections {
		body := strings.TrimSpace(sections[sec.key])
		if body == "" {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", sec.heading, body)
	}
	markdown := b.String()
	if strings.TrimSpace(strings.TrimPrefix(markdown, "# Brand Manual: "+m.ProductName)) == "" {
		return "", domain.NewDomainError(domain.ErrCodeExternalService, "manual generation returned no content")
	}
	return markdown, nil
}
