package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/legisearch/legisearch/internal/api"
	"github.com/legisearch/legisearch/internal/service"
)

// maxUploadBytes caps a single document upload. Legal codes run long but a
// PDF past this size is almost certainly not a statute.
const maxUploadBytes = 50 << 20

type IngestService interface {
	IngestPDF(ctx context.Context, data []byte, filename string) (*service.IngestStats, error)
	IngestText(ctx context.Context, text, source string) (*service.IngestStats, error)
}

type DocumentHandler struct {
	svc IngestService
}

func NewDocumentHandler(svc IngestService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type IngestTextRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

type IngestResponse struct {
	DocumentID string   `json:"document_id"`
	Source     string   `json:"source"`
	Pages      int      `json:"pages"`
	Chunks     int      `json:"chunks"`
	Skipped    int      `json:"skipped"`
	Unchanged  bool     `json:"unchanged"`
	Warnings   []string `json:"warnings,omitempty"`
}

func ingestToResponse(stats *service.IngestStats) *IngestResponse {
	return &IngestResponse{
		DocumentID: stats.DocumentID,
		Source:     stats.Source,
		Pages:      stats.Pages,
		Chunks:     stats.Chunks,
		Skipped:    stats.Skipped,
		Unchanged:  stats.Unchanged,
		Warnings:   stats.Warnings,
	}
}

// Ingest accepts either a multipart PDF upload (field "file") or a JSON body
// with a raw text document.
func (h *DocumentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		h.ingestUpload(w, r)
		return
	}

	var req IngestTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		api.Error(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.Source == "" {
		api.Error(w, http.StatusBadRequest, "source is required")
		return
	}

	stats, err := h.svc.IngestText(r.Context(), req.Text, req.Source)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, ingestToResponse(stats))
}

func (h *DocumentHandler) ingestUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(data) > maxUploadBytes {
		api.Error(w, http.StatusRequestEntityTooLarge, "uploaded file too large")
		return
	}
	if len(data) == 0 {
		api.Error(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	stats, err := h.svc.IngestPDF(r.Context(), data, header.Filename)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, ingestToResponse(stats))
}
