package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marca-labs/brandgov/internal/api"
	"github.com/marca-labs/brandgov/internal/api/middleware"
	"github.com/marca-labs/brandgov/internal/domain"
	"github.com/marca-labs/brandgov/internal/service"
)

type AssetService interface {
	Generate(ctx context.Context, input service.GenerateAssetInput) (*domain.CreativeAsset, error)
	GetByID(ctx context.Context, id string) (*domain.CreativeAsset, error)
	List(ctx context.Context, input service.ListAssetsInput) (*service.ListAssetsOutput, error)
	Journey(ctx context.Context, assetID string) ([]*domain.AssetJourneyEvent, error)
	Audits(ctx context.Context, assetID string) ([]*domain.MultimodalAudit, error)
	LatestAudit(ctx context.Context, assetID string) (*domain.MultimodalAudit, error)
}

type AssetHandler struct {
	svc AssetService
}

func NewAssetHandler(svc AssetService) *AssetHandler {
	return &AssetHandler{svc: svc}
}

type GenerateAssetRequest struct {
	ManualID  string `json:"manual_id"`
	AssetType string `json:"asset_type"`
	Brief     string `json:"brief"`
}

type AssetResponse struct {
	ID              string `json:"id"`
	ManualID        string `json:"manual_id"`
	CreatedByID     string `json:"created_by_id"`
	AssetType       string `json:"asset_type"`
	Brief           string `json:"brief"`
	GeneratedText   string `json:"generated_text"`
	WorkflowStatus  string `json:"workflow_status"`
	ReviewerAID     string `json:"reviewer_a_id,omitempty"`
	ReviewerBID     string `json:"reviewer_b_id,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func assetToResponse(a *domain.CreativeAsset) *AssetResponse {
	return &AssetResponse{
		ID:              a.ID,
		ManualID:        a.ManualID,
		CreatedByID:     a.CreatedByID,
		AssetType:       string(a.AssetType),
		Brief:           a.Brief,
		GeneratedText:   a.GeneratedText,
		WorkflowStatus:  string(a.Status),
		ReviewerAID:     a.ReviewerAID,
		ReviewerBID:     a.ReviewerBID,
		RejectionReason: a.RejectionReason,
		CreatedAt:       a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       a.UpdatedAt.Format(time.RFC3339),
	}
}

type AuditResponse struct {
	ID          string  `json:"id"`
	AssetID     string  `json:"asset_id"`
	ApproverID  string  `json:"approver_id"`
	ImageKey    string  `json:"image_key,omitempty"`
	Verdict     string  `json:"verdict"`
	Explanation string  `json:"explanation"`
	Confidence  float64 `json:"confidence"`
	CreatedAt   string  `json:"created_at"`
}

func auditToResponse(a *domain.MultimodalAudit) *AuditResponse {
	return &AuditResponse{
		ID:          a.ID,
		AssetID:     a.AssetID,
		ApproverID:  a.ApproverID,
		ImageKey:    a.ImageKey,
		Verdict:     string(a.Verdict),
		Explanation: a.Explanation,
		Confidence:  a.Confidence,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

type JourneyEventResponse struct {
	ID         string                `json:"id"`
	AssetID    string                `json:"asset_id"`
	ActorID    string                `json:"actor_id,omitempty"`
	EventType  string                `json:"event_type"`
	FromStatus string                `json:"from_status,omitempty"`
	ToStatus   string                `json:"to_status,omitempty"`
	Note       string                `json:"note,omitempty"`
	Payload    domain.JourneyPayload `json:"payload,omitempty"`
	CreatedAt  string                `json:"created_at"`
}

func journeyEventToResponse(e *domain.AssetJourneyEvent) *JourneyEventResponse {
	return &JourneyEventResponse{
		ID:         e.ID,
		AssetID:    e.AssetID,
		ActorID:    e.ActorID,
		EventType:  string(e.EventType),
		FromStatus: string(e.FromStatus),
		ToStatus:   string(e.ToStatus),
		Note:       e.Note,
		Payload:    e.Payload,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
	}
}

func (h *AssetHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req GenerateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ManualID == "" {
		api.Error(w, http.StatusBadRequest, "manual_id is required")
		return
	}
	if req.Brief == "" {
		api.Error(w, http.StatusBadRequest, "brief is required")
		return
	}

	asset, err := h.svc.Generate(r.Context(), service.GenerateAssetInput{
		ManualID:    req.ManualID,
		CreatedByID: user.ID,
		AssetType:   domain.AssetType(req.AssetType),
		Brief:       req.Brief,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, assetToResponse(asset))
}

func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	asset, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, assetToResponse(asset))
}

type AssetListResponse struct {
	Items   []*AssetResponse `json:"items"`
	Cursor  string           `json:"cursor,omitempty"`
	HasMore bool             `json:"has_more"`
}

func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	out, err := h.svc.List(r.Context(), service.ListAssetsInput{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*AssetResponse, 0, len(out.Items))
	for _, a := range out.Items {
		items = append(items, assetToResponse(a))
	}

	api.Success(w, http.StatusOK, &AssetListResponse{
		Items:   items,
		Cursor:  out.Cursor,
		HasMore: out.HasMore,
	})
}

func (h *AssetHandler) Journey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	events, err := h.svc.Journey(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*JourneyEventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, journeyEventToResponse(e))
	}

	api.Success(w, http.StatusOK, items)
}

func (h *AssetHandler) Audits(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	audits, err := h.svc.Audits(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*AuditResponse, 0, len(audits))
	for _, a := range audits {
		items = append(items, auditToResponse(a))
	}

	api.Success(w, http.StatusOK, items)
}

func (h *AssetHandler) LatestAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	audit, err := h.svc.LatestAudit(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if audit == nil {
		api.Success(w, http.StatusOK, nil)
		return
	}

	api.Success(w, http.StatusOK, auditToResponse(audit))
}
