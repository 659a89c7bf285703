package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/marca-labs/brandgov/internal/domain"
	"github.com/marca-labs/brandgov/internal/telemetry"
)

// VisionClient defines the interface for the vision-audit provider
type VisionClient interface {
	AuditImage(ctx context.Context, prompt string, image []byte, mimeType string, schema json.RawMessage) (string, error)
}

// Retriever defines the retrieval interface the audit engine consumes
type Retriever interface {
	Retrieve(ctx context.Context, manualID, query string, k int) ([]domain.ScoredChunk, error)
}

// ImageStore persists audit images in object storage
type ImageStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// DefaultAuditTopK is the number of manual chunks retrieved as audit context.
const DefaultAuditTopK = 8

const auditQuery = "Visual and brand identity rules for auditing images: logo, " +
	"color palette, typography, photographic style, composition, iconography, " +
	"visual prohibitions and brand consistency."

var auditSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"verdict": {"type": "string", "enum": ["pass", "fail"]},
		"explanation": {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	},
	"required": ["verdict", "explanation", "confidence"],
	"additionalProperties": false
}`)

// AuditDecision is the parsed outcome of a vision-audit response.
type AuditDecision struct {
	Verdict     domain.AuditVerdict
	Explanation string
	Confidence  float64
}

// AuditService runs the automated multimodal compliance check: retrieve
// brand-rule context, send it with the image to the vision provider, parse
// the verdict, and record both the audit row and a journey event. A
// provider failure leaves the asset untouched and records no audit row,
// but an outcome event is still appended for traceability.
type AuditService struct {
	assets    AssetRepositoryInterface
	journey   JourneyRepositoryInterface
	retriever Retriever
	vision    VisionClient
	images    ImageStore
	txRunner  TxRunner
	uuidGen   UUIDGenerator
	topK      int
}

// NewAuditService creates a new AuditService instance. images may be nil
// when no object storage is configured; audit images are then recorded by
// label only.
func NewAuditService(
	assets AssetRepositoryInterface,
	journey JourneyRepositoryInterface,
	retriever Retriever,
	vision VisionClient,
	images ImageStore,
	txRunner TxRunner,
) *AuditService {
	return &AuditService{
		assets:    assets,
		journey:   journey,
		retriever: retriever,
		vision:    vision,
		images:    images,
		txRunner:  txRunner,
		uuidGen:   &DefaultUUIDGenerator{},
		topK:      DefaultAuditTopK,
	}
}

// NewAuditServiceWithUUIDGen creates an AuditService with a custom UUID generator (for testing)
func NewAuditServiceWithUUIDGen(
	assets AssetRepositoryInterface,
	journey JourneyRepositoryInterface,
	retriever Retriever,
	vision VisionClient,
	images ImageStore,
	txRunner TxRunner,
	uuidGen UUIDGenerator,
) *AuditService {
	s := NewAuditService(assets, journey, retriever, vision, images, txRunner)
	s.uuidGen = uuidGen
	return s
}

// AuditInput represents one requested multimodal audit
type AuditInput struct {
	AssetID  string
	ActorID  string
	Role     domain.Role
	Image    []byte
	MimeType string
	Filename string
}

// AuditImage runs one compliance check attempt for an asset in pending_b.
// Every attempt is recorded independently; retries never overwrite a
// prior outcome.
func (s *AuditService) AuditImage(ctx context.Context, input AuditInput) (*domain.MultimodalAudit, error) {
	ctx, span := telemetry.StartSpan(ctx, "AuditService.AuditImage", telemetry.SpanAttributes{
		AssetID:   input.AssetID,
		Operation: "audit_image",
	})
	defer span.End()

	tr, _ := domain.TransitionFor(domain.ActionAuditImage)
	if input.Role != tr.Role {
		return nil, domain.ErrRoleNotPermitted
	}
	if len(input.Image) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "audit image is required")
	}

	asset, err := s.assets.GetByID(ctx, input.AssetID)
	if err != nil {
		return nil, err
	}
	if asset.Status != tr.From {
		if domain.IsTerminal(asset.Status) {
			return nil, domain.ErrAssetTerminal
		}
		return nil, domain.ErrInvalidTransition
	}

	ranked, err := s.retriever.Retrieve(ctx, asset.ManualID, auditQuery, s.topK)
	if err != nil {
		return nil, err
	}
	rules := make([]string, 0, len(ranked))
	for _, sc := range ranked {
		rules = append(rules, sc.Chunk.ChunkText)
	}

	imageKey := s.storeImage(ctx, input)

	prompt := buildAuditPrompt(strings.Join(rules, "\n\n"))

	raw, err := s.vision.AuditImage(ctx, prompt, input.Image, input.MimeType, auditSchema)
	if err != nil {
		s.recordAuditError(ctx, asset, input.ActorID, imageKey, err)
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeExternalService, "vision audit provider call failed", err)
	}

	decision, err := ParseAuditDecision(raw)
	if err != nil {
		s.recordAuditError(ctx, asset, input.ActorID, imageKey, err)
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeExternalService, "vision audit provider returned an invalid payload", err)
	}

	audit := &domain.MultimodalAudit{
		ID:          s.uuidGen.NewString(),
		AssetID:     asset.ID,
		ApproverID:  input.ActorID,
		ImageKey:    imageKey,
		Verdict:     decision.Verdict,
		Explanation: decision.Explanation,
		Confidence:  decision.Confidence,
		CreatedAt:   time.Now().UTC(),
	}

	eventType := domain.EventAuditCheck
	note := "Multimodal audit passed"
	if decision.Verdict == domain.VerdictFail {
		eventType = domain.EventAuditFail
		note = "Multimodal audit failed"
	}

	event := &domain.AssetJourneyEvent{
		ID:         s.uuidGen.NewString(),
		AssetID:    asset.ID,
		ActorID:    input.ActorID,
		EventType:  eventType,
		FromStatus: asset.Status,
		ToStatus:   asset.Status,
		Note:       note,
		Payload: domain.JourneyPayload{
			"verdict":     string(decision.Verdict),
			"confidence":  decision.Confidence,
			"explanation": decision.Explanation,
			"audit_id":    audit.ID,
			"image_key":   imageKey,
		},
		CreatedAt: time.Now().UTC(),
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Audits().Create(ctx, audit); err != nil {
			return err
		}
		return repos.Journey().Append(ctx, event)
	})
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodePersistence, "failed to record audit", err)
	}

	return audit, nil
}

// storeImage uploads the audit image when object storage is configured.
// Storage trouble never blocks the audit itself; the key is recorded
// either way so the attempt stays traceable.
func (s *AuditService) storeImage(ctx context.Context, input AuditInput) string {
	ext := extensionFor(input.MimeType)
	label := input.Filename
	if label == "" {
		label = "inline" + ext
	}
	key := fmt.Sprintf("audits/%s/%s-%s", input.AssetID, s.uuidGen.NewString(), label)

	if s.images != nil {
		if err := s.images.PutObject(ctx, key, input.Image, input.MimeType); err != nil {
			log.Printf("audit image upload failed (continuing): %v", err)
		}
	}
	return key
}

// recordAuditError appends the failure outcome to the journey. Best
// effort: the caller's error is what surfaces.
func (s *AuditService) recordAuditError(ctx context.Context, asset *domain.CreativeAsset, actorID, imageKey string, cause error) {
	event := &domain.AssetJourneyEvent{
		ID:         s.uuidGen.NewString(),
		AssetID:    asset.ID,
		ActorID:    actorID,
		EventType:  domain.EventAuditError,
		FromStatus: asset.Status,
		ToStatus:   asset.Status,
		Note:       "Multimodal audit could not be completed",
		Payload: domain.JourneyPayload{
			"error":     cause.Error(),
			"image_key": imageKey,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.journey.Append(ctx, event); err != nil {
		log.Printf("failed to append audit error event: %v", err)
	}
}

func buildAuditPrompt(manualContext string) string {
	return "Audit the image against the brand manual. Follow these instructions exactly:\n" +
		"1) Check logo, palette, typography, photographic style, composition, iconography and prohibitions.\n" +
		"2) If anything fails, explain how to fix the image (what to change, remove or adjust).\n" +
		"3) Return ONLY valid JSON matching the indicated schema.\n\n" +
		"Relevant manual rules:\n" + manualContext
}

// ParseAuditDecision extracts a verdict from the raw provider response.
// The response should be bare JSON but fenced or prose-wrapped payloads
// are tolerated.
func ParseAuditDecision(raw string) (*AuditDecision, error) {
	obj, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Verdict     string  `json:"verdict"`
		Explanation string  `json:"explanation"`
		Confidence  float64 `json:"confidence"`
	}
	if err := json.Unmarshal(obj, &parsed); err != nil {
		return nil, fmt.Errorf("malformed audit payload: %w", err)
	}

	verdict := domain.VerdictFail
	if parsed.Verdict == string(domain.VerdictPass) {
		verdict = domain.VerdictPass
	}

	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	explanation := parsed.Explanation
	if explanation == "" {
		explanation = "No explanation returned"
	}

	return &AuditDecision{
		Verdict:     verdict,
		Explanation: explanation,
		Confidence:  confidence,
	}, nil
}

var (
	fenceOpenRe  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceCloseRe = regexp.MustCompile("\\s*```$")
	jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)
)

func extractJSONObject(raw string) (json.RawMessage, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("empty model response")
	}

	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimSpace(fenceOpenRe.ReplaceAllString(cleaned, ""))
		cleaned = strings.TrimSpace(fenceCloseRe.ReplaceAllString(cleaned, ""))
	}

	if json.Valid([]byte(cleaned)) && strings.HasPrefix(cleaned, "{") {
		return json.RawMessage(cleaned), nil
	}

	match := jsonObjectRe.FindString(cleaned)
	if match == "" {
		return nil, fmt.Errorf("no JSON object found in model response")
	}
	if !json.Valid([]byte(match)) {
		return nil, fmt.Errorf("no valid JSON object found in model response")
	}
	return json.RawMessage(match), nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
