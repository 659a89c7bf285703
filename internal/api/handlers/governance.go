package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marca-labs/brandgov/internal/api"
	"github.com/marca-labs/brandgov/internal/api/middleware"
	"github.com/marca-labs/brandgov/internal/domain"
	"github.com/marca-labs/brandgov/internal/service"
)

// maxAuditImageBytes caps the uploaded evidence image size.
const maxAuditImageBytes = 10 * 1024 * 1024

type WorkflowService interface {
	Review(ctx context.Context, input service.ReviewInput) (*domain.CreativeAsset, error)
}

type AuditImageService interface {
	AuditImage(ctx context.Context, input service.AuditInput) (*domain.MultimodalAudit, error)
}

type GovernanceHandler struct {
	workflow WorkflowService
	audit    AuditImageService
}

func NewGovernanceHandler(workflow WorkflowService, audit AuditImageService) *GovernanceHandler {
	return &GovernanceHandler{workflow: workflow, audit: audit}
}

type ReviewRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// ReviewA handles the first-stage text review decision.
func (h *GovernanceHandler) ReviewA(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, domain.ActionReviewAApprove, domain.ActionReviewAReject)
}

// ReviewB handles the final-stage review decision.
func (h *GovernanceHandler) ReviewB(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, domain.ActionReviewBApprove, domain.ActionReviewBReject)
}

func (h *GovernanceHandler) review(w http.ResponseWriter, r *http.Request, approve, reject domain.WorkflowAction) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var action domain.WorkflowAction
	switch req.Decision {
	case "approve":
		action = approve
	case "reject":
		action = reject
	default:
		api.Error(w, http.StatusBadRequest, "decision must be approve or reject")
		return
	}

	asset, err := h.workflow.Review(r.Context(), service.ReviewInput{
		AssetID: id,
		ActorID: user.ID,
		Role:    user.Role,
		Action:  action,
		Reason:  req.Reason,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, assetToResponse(asset))
}

// AuditImage accepts a multipart image upload and runs the automated
// compliance audit against the asset's brand manual.
func (h *GovernanceHandler) AuditImage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := r.ParseMultipartForm(maxAuditImageBytes); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxAuditImageBytes+1))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read image")
		return
	}
	if len(image) > maxAuditImageBytes {
		api.Error(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}

	audit, err := h.audit.AuditImage(r.Context(), service.AuditInput{
		AssetID:  id,
		ActorID:  user.ID,
		Role:     user.Role,
		Image:    image,
		MimeType: mimeType,
		Filename: header.Filename,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, auditToResponse(audit))
}
