package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marca-labs/brandgov/internal/api"
	"github.com/marca-labs/brandgov/internal/api/middleware"
	"github.com/marca-labs/brandgov/internal/domain"
	"github.com/marca-labs/brandgov/internal/service"
)

type ManualService interface {
	Create(ctx context.Context, input service.CreateManualInput) (*domain.BrandManual, error)
	GetByID(ctx context.Context, id string) (*domain.BrandManual, error)
	List(ctx context.Context) ([]*domain.BrandManual, error)
	Reindex(ctx context.Context, manualID string) (int, error)
}

type ManualRetriever interface {
	Retrieve(ctx context.Context, manualID, query string, k int) ([]domain.ScoredChunk, error)
}

type ManualHandler struct {
	svc       ManualService
	retriever ManualRetriever
}

func NewManualHandler(svc ManualService, retriever ManualRetriever) *ManualHandler {
	return &ManualHandler{svc: svc, retriever: retriever}
}

type CreateManualRequest struct {
	ProductName string `json:"product_name"`
	Tone        string `json:"tone"`
	Audience    string `json:"audience"`
	RawInput    string `json:"raw_input"`
}

type ManualResponse struct {
	ID             string `json:"id"`
	ProductName    string `json:"product_name"`
	Tone           string `json:"tone,omitempty"`
	Audience       string `json:"audience,omitempty"`
	ManualMarkdown string `json:"manual_markdown"`
	CreatedByID    string `json:"created_by_id"`
	CreatedAt      string `json:"created_at"`
}

func manualToResponse(m *domain.BrandManual) *ManualResponse {
	return &ManualResponse{
		ID:             m.ID,
		ProductName:    m.ProductName,
		Tone:           m.Tone,
		Audience:       m.Audience,
		ManualMarkdown: m.ManualMarkdown,
		CreatedByID:    m.CreatedByID,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
}

func (h *ManualHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProductName == "" {
		api.Error(w, http.StatusBadRequest, "product_name is required")
		return
	}

	manual, err := h.svc.Create(r.Context(), service.CreateManualInput{
		ProductName: req.ProductName,
		Tone:        req.Tone,
		Audience:    req.Audience,
		RawInput:    req.RawInput,
		CreatedByID: user.ID,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, manualToResponse(manual))
}

func (h *ManualHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	manual, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, manualToResponse(manual))
}

func (h *ManualHandler) List(w http.ResponseWriter, r *http.Request) {
	manuals, err := h.svc.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*ManualResponse, 0, len(manuals))
	for _, m := range manuals {
		items = append(items, manualToResponse(m))
	}

	api.Success(w, http.StatusOK, items)
}

type ReindexResponse struct {
	ManualID string `json:"manual_id"`
	Chunks   int    `json:"chunks"`
}

func (h *ManualHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	chunks, err := h.svc.Reindex(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &ReindexResponse{ManualID: id, Chunks: chunks})
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type SearchResult struct {
	ChunkIndex int     `json:"chunk_index"`
	ChunkText  string  `json:"chunk_text"`
	Score      float64 `json:"score"`
}

func (h *ManualHandler) Search(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	chunks, err := h.retriever.Retrieve(r.Context(), id, req.Query, req.TopK)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]*SearchResult, 0, len(chunks))
	for _, sc := range chunks {
		results = append(results, &SearchResult{
			ChunkIndex: sc.Chunk.ChunkIndex,
			ChunkText:  sc.Chunk.ChunkText,
			Score:      sc.Score,
		})
	}

	api.Success(w, http.StatusOK, results)
}
