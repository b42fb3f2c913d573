//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legisearch/legisearch/internal/api/handlers"
	"github.com/legisearch/legisearch/internal/config"
	"github.com/legisearch/legisearch/internal/index"
	"github.com/legisearch/legisearch/internal/repository"
	"github.com/legisearch/legisearch/internal/server"
	"github.com/legisearch/legisearch/internal/service"
	"github.com/legisearch/legisearch/internal/storage"
	"github.com/legisearch/legisearch/internal/testutil"
)

const testAPIKey = "lgs_e2e_0123456789abcdef"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	Pool       *pgxpool.Pool
	Store      *repository.SnapshotRepository
	Archive    *storage.Archive
	Pipeline   *service.Pipeline
	Server     *httptest.Server
	HTTPClient *http.Client
	Config     *config.Config
}

// SetupE2EEnv starts Postgres and RustFS containers, wires the full pipeline
// with deterministic embedding and completion fakes, and serves the HTTP API.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	archive, err := storage.NewArchive(ctx, storage.ArchiveConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "legisearch-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 archive: %v", err)
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	cfg := newTestConfig()
	store := repository.NewSnapshotRepository(pool)
	pipeline := service.NewPipeline(cfg, &hashEmbedder{}, &cannedLLM{}, store, archive)

	srv := httptest.NewServer(server.NewRouter(server.RouterConfig{
		APIKey:          testAPIKey,
		DocumentHandler: handlers.NewDocumentHandler(pipeline),
		AskHandler:      handlers.NewAskHandler(pipeline),
		StatsHandler:    handlers.NewStatsHandler(pipeline),
	}))
	t.Cleanup(srv.Close)

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		Pool:       pool,
		Store:      store,
		Archive:    archive,
		Pipeline:   pipeline,
		Server:     srv,
		HTTPClient: srv.Client(),
		Config:     cfg,
	}
}

func newTestConfig() *config.Config {
	return &config.Config{
		Retrieval: config.RetrievalConfig{
			TopKResults:         20,
			ResultsPerSubQuery:  5,
			SimilarityThreshold: 0.3,
			SemanticWeight:      0.6,
			LexicalWeight:       0.4,
			MultiQueryCount:     3,
		},
		Chunking: config.ChunkingConfig{
			MaxChunkSize: 1500,
			ChunkOverlap: 200,
			MinChunkSize: 100,
		},
		LLM: config.LLMConfig{
			Model:             "fake-model",
			Temperature:       0.1,
			MaxTokens:         2048,
			DecomposeTimeout:  60,
			SynthesizeTimeout: 300,
		},
	}
}

// hashEmbedder produces deterministic bag-of-words vectors so related texts
// end up with high cosine similarity without any external service.
type hashEmbedder struct{}

const embedderDims = 32

func (e *hashEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, embedderDims)
	for _, tok := range index.Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%embedderDims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

// cannedLLM answers decomposition calls (empty system prompt) with a fixed
// sub-query list and synthesis calls with a fixed structured answer.
type cannedLLM struct{}

func (l *cannedLLM) Complete(_ context.Context, systemPrompt, userPrompt string, _ float64, _ int) (string, error) {
	if systemPrompt == "" {
		return `["protection des données personnelles", "obligations du responsable de traitement"]`, nil
	}
	return "### En bref\nLes données personnelles sont protégées par la loi.\n\n" +
		"### Explication détaillée\n\n#### Protection des données\nL'Article 1er pose le principe de protection.\n\n" +
		"### Sources\n- Article 1er", nil
}

func (env *E2ETestEnv) doJSON(method, path string, body interface{}) (*http.Response, []byte) {
	env.T.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			env.T.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, reader)
	if err != nil {
		env.T.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := env.HTTPClient.Do(req)
	if err != nil {
		env.T.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		env.T.Fatalf("failed to read response body: %v", err)
	}
	return resp, data
}

func decodeEnvelope(t *testing.T, data []byte, out interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v (%s)", err, string(data))
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("failed to decode data: %v (%s)", err, string(envelope.Data))
	}
}

func frenchStatute() string {
	var b strings.Builder
	b.WriteString("TITRE I - DISPOSITIONS GÉNÉRALES\n\n")
	b.WriteString("CHAPITRE I - Protection des données\n\n")
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&b, "Article %d\n", i)
		b.WriteString("Les données personnelles font l'objet d'une protection particulière. ")
		b.WriteString("Le responsable de traitement veille à la licéité, la loyauté et la transparence du traitement. ")
		b.WriteString("Toute personne dispose d'un droit d'accès, de rectification et d'effacement de ses données.\n\n")
	}
	b.WriteString("CHAPITRE II - Sanctions\n\n")
	b.WriteString("Article 4\n")
	b.WriteString("Tout manquement aux obligations du présent titre est puni d'une amende administrative. ")
	b.WriteString("Le montant de l'amende est proportionné à la gravité du manquement constaté.\n")
	return b.String()
}
