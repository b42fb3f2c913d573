package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/legisearch/legisearch/internal/api"
	"github.com/legisearch/legisearch/internal/domain"
)

type AskService interface {
	Ask(ctx context.Context, question string) (*domain.Answer, error)
}

type AskHandler struct {
	svc AskService
}

func NewAskHandler(svc AskService) *AskHandler {
	return &AskHandler{svc: svc}
}

type AskRequest struct {
	Question string `json:"question"`
}

type AnswerSourceResponse struct {
	ChunkID   string  `json:"chunk_id"`
	Excerpt   string  `json:"excerpt"`
	Article   string  `json:"article,omitempty"`
	Chapitre  string  `json:"chapitre,omitempty"`
	Section   string  `json:"section,omitempty"`
	Page      int     `json:"page"`
	Source    string  `json:"source"`
	Relevance float64 `json:"relevance"`
}

type AnswerSectionResponse struct {
	Theme    string   `json:"theme"`
	Text     string   `json:"text"`
	ChunkIDs []string `json:"chunk_ids,omitempty"`
}

type AskResponse struct {
	Question      string                  `json:"question"`
	Answer        string                  `json:"answer"`
	Sections      []AnswerSectionResponse `json:"sections,omitempty"`
	Sources       []AnswerSourceResponse  `json:"sources"`
	Model         string                  `json:"model"`
	LowConfidence bool                    `json:"low_confidence"`
}

func answerToResponse(a *domain.Answer) *AskResponse {
	sections := make([]AnswerSectionResponse, len(a.Sections))
	for i, s := range a.Sections {
		sections[i] = AnswerSectionResponse{
			Theme:    s.Theme,
			Text:     s.Text,
			ChunkIDs: s.ChunkIDs,
		}
	}

	sources := make([]AnswerSourceResponse, len(a.Sources))
	for i, s := range a.Sources {
		sources[i] = AnswerSourceResponse{
			ChunkID:   s.ChunkID,
			Excerpt:   s.Excerpt,
			Article:   s.Article,
			Chapitre:  s.Chapitre,
			Section:   s.Section,
			Page:      s.Page,
			Source:    s.Source,
			Relevance: s.Relevance,
		}
	}

	return &AskResponse{
		Question:      a.Question,
		Answer:        a.Text,
		Sections:      sections,
		Sources:       sources,
		Model:         a.Model,
		LowConfidence: a.LowConfidence,
	}
}

func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := h.svc.Ask(r.Context(), req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, answerToResponse(answer))
}
