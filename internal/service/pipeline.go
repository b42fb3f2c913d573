package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/legisearch/legisearch/internal/chunker"
	"github.com/legisearch/legisearch/internal/config"
	"github.com/legisearch/legisearch/internal/domain"
	"github.com/legisearch/legisearch/internal/extract"
	"github.com/legisearch/legisearch/internal/index"
	"github.com/legisearch/legisearch/internal/telemetry"
)

// SnapshotStore persists index snapshots across process restarts.
type SnapshotStore interface {
	Save(ctx context.Context, snap *index.Snapshot) error
	Load(ctx context.Context) (*index.Snapshot, error)
}

// DocumentArchive stores raw uploaded documents. Optional; archiving
// failures never abort ingestion.
type DocumentArchive interface {
	Store(ctx context.Context, key string, data []byte, contentType string) error
}

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	DocumentID string   `json:"document_id"`
	Source     string   `json:"source"`
	Pages      int      `json:"pages"`
	Chunks     int      `json:"chunks"`
	Skipped    int      `json:"skipped"`
	Warnings   []string `json:"warnings,omitempty"`
	Unchanged  bool     `json:"unchanged"`
}

// IndexStats describes the currently published index.
type IndexStats struct {
	Documents     int       `json:"documents"`
	Chunks        int       `json:"chunks"`
	SkippedChunks int       `json:"skipped_chunks"`
	BuiltAt       time.Time `json:"built_at"`
	Conversations int       `json:"conversations"`
}

// Pipeline wires extraction, chunking, indexing, retrieval and synthesis
/// into the two top-level operations: ingest a document, answer a question.
type Pipeline struct {
	cfg         *config.Config
	builder     *index.Builder
	store       SnapshotStore
	archive     DocumentArchive
	handle      *index.Handle
	decomposer  *QueryDecomposer
	retriever   *HybridRetriever
	synthesizer *AnswerSynthesizer
	history     *ConversationLog

	// Indexing is single-writer; readers always see the last published
	// snapshot.
	ingestMu sync.Mutex
}

// NewPipeline creates a new Pipeline instance. archive may be nil.
func NewPipeline(cfg *config.Config, embedder index.Embedder, llm CompletionClient, store SnapshotStore, archive DocumentArchive) *Pipeline {
	handle := index.NewHandle()
	return &Pipeline{
		cfg:     cfg,
		builder: index.NewBuilder(embedder),
		store:   store,
		archive: archive,
		handle:  handle,
		decomposer: NewQueryDecomposer(
			llm,
			cfg.Retrieval.MultiQueryCount,
			time.Duration(cfg.LLM.DecomposeTimeout)*time.Second,
		),
		retriever: NewHybridRetriever(embedder, handle, cfg.Retrieval),
		synthesizer: NewAnswerSynthesizer(
			llm,
			cfg.LLM.Model,
			cfg.LLM.Temperature,
			cfg.LLM.MaxTokens,
			time.Duration(cfg.LLM.SynthesizeTimeout)*time.Second,
		),
		history: NewConversationLog(),
	}
}

// Restore loads the persisted snapshot into the read handle. A missing
// snapshot is not an error; the pipeline starts with an empty index.
func (p *Pipeline) Restore(ctx context.Context) error {
	snap, err := p.store.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			return nil
		}
		return err
	}
	p.handle.Publish(snap)
	log.Printf("restored index snapshot: %d documents, %d chunks", len(snap.Documents()), snap.Len())
	return nil
}

// Snapshots returns the read handle for the published index.
func (p *Pipeline) Snapshots() *index.Handle {
	return p.handle
}

// IngestPDF extracts text from raw PDF bytes and ingests the result.
func (p *Pipeline) IngestPDF(ctx context.Context, data []byte, filename string) (*IngestStats, error) {
	pages, warnings, err := extract.Pages(data, filename)
	if err != nil {
		return nil, err
	}

	if p.archive != nil {
		if err := p.archive.Store(ctx, filename, data, "application/pdf"); err != nil {
			log.Printf("failed to archive document %s: %v", filename, err)
			telemetry.CaptureError(ctx, err)
		}
	}

	stats, err := p.Ingest(ctx, pages, filename)
	if err != nil {
		return nil, err
	}
	stats.Warnings = append(warnings, stats.Warnings...)
	return stats, nil
}

// IngestText ingests already-extracted plain text as a single-page document.
func (p *Pipeline) IngestText(ctx context.Context, text, source string) (*IngestStats, error) {
	pages, err := extract.PagesFromText(text, source)
	if err != nil {
		return nil, err
	}
	return p.Ingest(ctx, pages, source)
}

// Ingest chunks and indexes a document, persists the resulting snapshot and
// publishes it atomically. A document whose fingerprint matches the indexed
// version is skipped. No partial index is ever published: any failure
// before the final publish leaves the previous snapshot in place.
func (p *Pipeline) Ingest(ctx context.Context, pages []domain.Page, source string) (*IngestStats, error) {
	p.ingestMu.Lock()
	defer p.ingestMu.Unlock()

	doc := domain.NewDocument(documentID(source), source, pages, time.Now())

	ctx, span := telemetry.StartSpan(ctx, "Pipeline.Ingest", telemetry.SpanAttributes{
		DocumentID: doc.ID,
		Source:     source,
		Operation:  "ingest",
	})
	defer span.End()

	current := p.handle.Current()
	if current.HasDocument(doc.ID, doc.Fingerprint) {
		return &IngestStats{
			DocumentID: doc.ID,
			Source:     source,
			Pages:      len(pages),
			Unchanged:  true,
		}, nil
	}

	chunkCfg := chunker.Config{
		MaxSize: p.cfg.Chunking.MaxChunkSize,
		Overlap: p.cfg.Chunking.ChunkOverlap,
		MinSize: p.cfg.Chunking.MinChunkSize,
	}
	chunks := chunker.ChunkDocument(doc, chunkCfg)
	if len(chunks) == 0 {
		span.SetError(domain.ErrEmptyDocument)
		return nil, domain.ErrEmptyDocument
	}

	result, err := p.builder.Build(ctx, chunks)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if len(result.Skipped) > 0 {
		log.Printf("index build: %d/%d chunks skipped for %s", len(result.Skipped), len(chunks), source)
	}

	docs, entries, skipped := mergeSnapshot(current, doc, result)
	snap := index.NewSnapshot(docs, entries, skipped)

	if err := p.store.Save(ctx, snap); err != nil {
		span.SetError(err)
		return nil, err
	}
	p.handle.Publish(snap)

	return &IngestStats{
		DocumentID: doc.ID,
		Source:     source,
		Pages:      len(pages),
		Chunks:     len(chunks),
		Skipped:    len(result.Skipped),
	}, nil
}

// mergeSnapshot replaces doc's previous entries, if any, with the fresh
// build while keeping every other document untouched.
func mergeSnapshot(current *index.Snapshot, doc *domain.Document, result *index.BuildResult) ([]index.DocumentRef, []index.Entry, []string) {
	var docs []index.DocumentRef
	for _, ref := range current.Documents() {
		if ref.ID != doc.ID {
			docs = append(docs, ref)
		}
	}
	docs = append(docs, index.DocumentRef{
		ID:          doc.ID,
		Source:      doc.Source,
		Fingerprint: doc.Fingerprint,
		Pages:       len(doc.Pages),
		IngestedAt:  doc.IngestedAt,
	})

	var entries []index.Entry
	for _, e := range current.Entries() {
		if e.Chunk.DocumentID != doc.ID {
			entries = append(entries, e)
		}
	}
	entries = append(entries, result.Entries...)

	var skipped []string
	prefix := doc.ID + ":"
	for _, id := range current.Skipped() {
		if !strings.HasPrefix(id, prefix) {
			skipped = append(skipped, id)
		}
	}
	skipped = append(skipped, result.Skipped...)

	return docs, entries, skipped
}

// Ask answers a question against the published index. Decomposition
// failures degrade to the original question; synthesis failures are
// surfaced as generation errors.
func (p *Pipeline) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	snap := p.handle.Current()
	if snap.Len() == 0 {
		return nil, domain.ErrIndexNotFound
	}

	started := time.Now()
	queries := p.decomposer.Decompose(ctx, question)

	ctx, span := telemetry.StartSpan(ctx, "Pipeline.Ask", telemetry.SpanAttributes{
		SubQueries: len(queries),
		Operation:  "ask",
	})
	defer span.End()

	// Sub-query searches are independent reads against the same snapshot
	// and run in parallel. Aggregation is order-independent.
	perQuery := make([][]domain.ScoredChunk, len(queries))
	lowConf := make([]bool, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			result, err := p.retriever.Search(ctx, q, p.cfg.Retrieval.ResultsPerSubQuery)
			if err != nil {
				errs[i] = err
				return
			}
			perQuery[i] = result.Chunks
			lowConf[i] = result.LowConfidence
		}(i, q)
	}
	wg.Wait()

	var firstErr error
	succeeded := 0
	lowConfidence := true
	for i := range queries {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		succeeded++
		if !lowConf[i] {
			lowConfidence = false
		}
	}
	if succeeded == 0 {
		span.SetError(firstErr)
		return nil, firstErr
	}
	if firstErr != nil {
		log.Printf("partial retrieval failure, continuing with %d/%d sub-queries: %v", succeeded, len(queries), firstErr)
	}

	candidates := Aggregate(perQuery, p.cfg.Retrieval.TopKResults)
	if len(candidates) == 0 {
		return nil, domain.ErrIndexNotFound
	}

	answer, err := p.synthesizer.Synthesize(ctx, question, candidates)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	answer.LowConfidence = lowConfidence

	p.history.Append(ConversationEntry{
		ID:            uuid.NewString(),
		Question:      question,
		Answer:        answer.Text,
		Model:         answer.Model,
		SubQueries:    queries,
		SourceCount:   len(answer.Sources),
		LowConfidence: answer.LowConfidence,
		DurationMs:    int(time.Since(started).Milliseconds()),
		AskedAt:       started,
	})

	return answer, nil
}

// Stats reports on the published index and conversation history.
func (p *Pipeline) Stats() IndexStats {
	snap := p.handle.Current()
	return IndexStats{
		Documents:     len(snap.Documents()),
		Chunks:        snap.Len(),
		SkippedChunks: len(snap.Skipped()),
		BuiltAt:       snap.BuiltAt(),
		Conversations: p.history.Len(),
	}
}

// History returns the recorded conversation entries, oldest first.
func (p *Pipeline) History() []ConversationEntry {
	return p.history.Entries()
}

// documentID derives a stable identifier from the source name so
// re-ingesting the same file replaces its chunks instead of duplicating
// them.
func documentID(source string) string {
	var b strings.Builder
	dash := true
	for _, r := range strings.ToLower(strings.TrimSpace(source)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
		} else if !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
