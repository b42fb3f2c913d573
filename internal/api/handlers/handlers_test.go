package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legisearch/legisearch/internal/domain"
	"github.com/legisearch/legisearch/internal/pagination"
	"github.com/legisearch/legisearch/internal/service"
)

type stubIngestService struct {
	stats *service.IngestStats
	err   error

	lastData   []byte
	lastName   string
	lastText   string
	lastSource string
}

func (s *stubIngestService) IngestPDF(_ context.Context, data []byte, filename string) (*service.IngestStats, error) {
	s.lastData = data
	s.lastName = filename
	return s.stats, s.err
}

func (s *stubIngestService) IngestText(_ context.Context, text, source string) (*service.IngestStats, error) {
	s.lastText = text
	s.lastSource = source
	return s.stats, s.err
}

type stubAskService struct {
	answer *domain.Answer
	err    error

	lastQuestion string
}

func (s *stubAskService) Ask(_ context.Context, question string) (*domain.Answer, error) {
	s.lastQuestion = question
	return s.answer, s.err
}

type stubStatsService struct {
	stats   service.IndexStats
	history []service.ConversationEntry
}

func (s *stubStatsService) Stats() service.IndexStats            { return s.stats }
func (s *stubStatsService) History() []service.ConversationEntry { return s.history }

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestDocumentHandler_IngestText(t *testing.T) {
	svc := &stubIngestService{stats: &service.IngestStats{
		DocumentID: "loi-2024-txt",
		Source:     "loi-2024.txt",
		Pages:      1,
		Chunks:     4,
	}}
	h := NewDocumentHandler(svc)

	body := `{"text": "Article 1er. Les données sont protégées.", "source": "loi-2024.txt"}`
	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "loi-2024.txt", svc.lastSource)

	var resp IngestResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, "loi-2024-txt", resp.DocumentID)
	assert.Equal(t, 4, resp.Chunks)
}

func TestDocumentHandler_IngestText_MissingText(t *testing.T) {
	h := NewDocumentHandler(&stubIngestService{})

	body := `{"source": "loi-2024.txt"}`
	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentHandler_IngestText_MissingSource(t *testing.T) {
	h := NewDocumentHandler(&stubIngestService{})

	body := `{"text": "Article 1er."}`
	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentHandler_IngestText_InvalidJSON(t *testing.T) {
	h := NewDocumentHandler(&stubIngestService{})

	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentHandler_IngestText_IngestionError(t *testing.T) {
	h := NewDocumentHandler(&stubIngestService{err: domain.ErrEmptyDocument})

	body := `{"text": "   .   ", "source": "blank.txt"}`
	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDocumentHandler_IngestUpload(t *testing.T) {
	svc := &stubIngestService{stats: &service.IngestStats{
		DocumentID: "loi-2024-pdf",
		Source:     "loi-2024.pdf",
		Pages:      3,
		Chunks:     12,
	}}
	h := NewDocumentHandler(svc)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "loi-2024.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "loi-2024.pdf", svc.lastName)
	assert.Equal(t, []byte("%PDF-1.4 fake"), svc.lastData)
}

func TestDocumentHandler_IngestUpload_MissingFile(t *testing.T) {
	h := NewDocumentHandler(&stubIngestService{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("name", "loi-2024.pdf"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskHandler_Ask(t *testing.T) {
	svc := &stubAskService{answer: &domain.Answer{
		Question: "Quels sont les droits des auteurs ?",
		Text:     "### En bref\nLes auteurs disposent de droits moraux.",
		Sections: []domain.AnswerSection{
			{Theme: "Droits moraux", Text: "Le droit moral est perpétuel.", ChunkIDs: []string{"loi-2024:0"}},
		},
		Sources: []domain.AnswerSource{
			{ChunkID: "loi-2024:0", Excerpt: "Article 1er...", Article: "Article 1er", Page: 1, Source: "loi-2024.pdf", Relevance: 0.91},
		},
		Model: "gpt-4o-mini",
	}}
	h := NewAskHandler(svc)

	body := `{"question": "Quels sont les droits des auteurs ?"}`
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Ask(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Quels sont les droits des auteurs ?", svc.lastQuestion)

	var resp AskResponse
	decodeData(t, rec, &resp)
	assert.Contains(t, resp.Answer, "droits moraux")
	require.Len(t, resp.Sections, 1)
	assert.Equal(t, "Droits moraux", resp.Sections[0].Theme)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "loi-2024:0", resp.Sources[0].ChunkID)
	assert.InDelta(t, 0.91, resp.Sources[0].Relevance, 1e-9)
	assert.False(t, resp.LowConfidence)
}

func TestAskHandler_Ask_EmptyQuestion(t *testing.T) {
	h := NewAskHandler(&stubAskService{})

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question": "   "}`))
	rec := httptest.NewRecorder()

	h.Ask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskHandler_Ask_NoIndex(t *testing.T) {
	h := NewAskHandler(&stubAskService{err: domain.ErrIndexNotFound})

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question": "Que dit la loi ?"}`))
	rec := httptest.NewRecorder()

	h.Ask(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAskHandler_Ask_GenerationError(t *testing.T) {
	h := NewAskHandler(&stubAskService{err: domain.ErrGenerationTimeout})

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question": "Que dit la loi ?"}`))
	rec := httptest.NewRecorder()

	h.Ask(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStatsHandler_Stats(t *testing.T) {
	svc := &stubStatsService{stats: service.IndexStats{
		Documents:     2,
		Chunks:        37,
		SkippedChunks: 1,
		BuiltAt:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Conversations: 5,
	}}
	h := NewStatsHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()

	h.Stats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp service.IndexStats
	decodeData(t, rec, &resp)
	assert.Equal(t, 2, resp.Documents)
	assert.Equal(t, 37, resp.Chunks)
	assert.Equal(t, 5, resp.Conversations)
}

func TestStatsHandler_History_NewestFirst(t *testing.T) {
	svc := &stubStatsService{history: []service.ConversationEntry{
		{ID: "q1", Question: "Que dit l'article 3 ?", AskedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)},
		{ID: "q2", Question: "Quels sont les droits voisins ?", AskedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)},
	}}
	h := NewStatsHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	rec := httptest.NewRecorder()

	h.History(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp pagination.PageResult[service.ConversationEntry]
	decodeData(t, rec, &resp)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "q2", resp.Items[0].ID)
	assert.Equal(t, "q1", resp.Items[1].ID)
	assert.False(t, resp.HasMore)
}

func TestStatsHandler_History_Paginated(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	svc := &stubStatsService{history: []service.ConversationEntry{
		{ID: "q1", AskedAt: base},
		{ID: "q2", AskedAt: base.Add(time.Minute)},
		{ID: "q3", AskedAt: base.Add(2 * time.Minute)},
	}}
	h := NewStatsHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/history?limit=2", nil)
	rec := httptest.NewRecorder()

	h.History(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var first pagination.PageResult[service.ConversationEntry]
	decodeData(t, rec, &first)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "q3", first.Items[0].ID)
	assert.Equal(t, "q2", first.Items[1].ID)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.Cursor)

	req = httptest.NewRequest(http.MethodGet, "/history?limit=2&cursor="+url.QueryEscape(first.Cursor), nil)
	rec = httptest.NewRecorder()

	h.History(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var second pagination.PageResult[service.ConversationEntry]
	decodeData(t, rec, &second)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "q1", second.Items[0].ID)
	assert.False(t, second.HasMore)
	assert.Empty(t, second.Cursor)
}

func TestStatsHandler_History_InvalidCursor(t *testing.T) {
	h := NewStatsHandler(&stubStatsService{})

	req := httptest.NewRequest(http.MethodGet, "/history?cursor=%21%21not-base64", nil)
	rec := httptest.NewRecorder()

	h.History(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsHandler_History_Empty(t *testing.T) {
	h := NewStatsHandler(&stubStatsService{})

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	rec := httptest.NewRecorder()

	h.History(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)
}
