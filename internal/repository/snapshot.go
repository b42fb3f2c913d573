package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/legisearch/legisearch/internal/domain"
	"github.com/legisearch/legisearch/internal/index"
)

// SnapshotRepository persists index snapshots in Postgres, embeddings in a
// pgvector column. Save replaces the whole snapshot transactionally so a
// reader never observes a half-written index.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new SnapshotRepository instance
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Save stores the snapshot, replacing any previous one.
func (r *SnapshotRepository) Save(ctx context.Context, snap *index.Snapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM index_documents`); err != nil {
		return err
	}

	for _, doc := range snap.Documents() {
		_, err := tx.Exec(ctx,
			`INSERT INTO index_documents (id, source, fingerprint, pages, ingested_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			doc.ID, doc.Source, doc.Fingerprint, doc.Pages, doc.IngestedAt.UTC(),
		)
		if err != nil {
			return err
		}
	}

	skipped := make(map[string]bool, len(snap.Skipped()))
	for _, id := range snap.Skipped() {
		skipped[id] = true
	}

	for _, e := range snap.Entries() {
		var embedding any
		if len(e.Embedding) > 0 {
			embedding = pgvector.NewVector(e.Embedding)
		}
		meta := e.Chunk.Metadata
		_, err := tx.Exec(ctx,
			`INSERT INTO index_chunks
				(id, document_id, position, start_offset, content,
				 titre, chapitre, section, article, level, page, source,
				 embedding, skipped)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			e.Chunk.ID,
			e.Chunk.DocumentID,
			e.Chunk.Position,
			e.Chunk.Start,
			e.Chunk.Text,
			meta.Titre,
			meta.Chapitre,
			meta.Section,
			meta.Article,
			string(meta.Level),
			meta.Page,
			meta.Source,
			embedding,
			skipped[e.Chunk.ID],
		)
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO index_meta (id, built_at) VALUES (TRUE, $1)
		 ON CONFLICT (id) DO UPDATE SET built_at = EXCLUDED.built_at`,
		snap.BuiltAt().UTC(),
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Load reads the persisted snapshot and rebuilds its in-memory indexes.
// Returns domain.ErrSnapshotNotFound when nothing has been saved yet.
func (r *SnapshotRepository) Load(ctx context.Context) (*index.Snapshot, error) {
	var builtAt time.Time
	err := r.pool.QueryRow(ctx, `SELECT built_at FROM index_meta WHERE id = TRUE`).Scan(&builtAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, err
	}

	docRows, err := r.pool.Query(ctx,
		`SELECT id, source, fingerprint, pages, ingested_at FROM index_documents ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer docRows.Close()

	var documents []index.DocumentRef
	for docRows.Next() {
		var ref index.DocumentRef
		if err := docRows.Scan(&ref.ID, &ref.Source, &ref.Fingerprint, &ref.Pages, &ref.IngestedAt); err != nil {
			return nil, err
		}
		documents = append(documents, ref)
	}
	if err := docRows.Err(); err != nil {
		return nil, err
	}

	chunkRows, err := r.pool.Query(ctx,
		`SELECT id, document_id, position, start_offset, content,
		        titre, chapitre, section, article, level, page, source,
		        embedding, skipped
		 FROM index_chunks ORDER BY document_id, position`)
	if err != nil {
		return nil, err
	}
	defer chunkRows.Close()

	var entries []index.Entry
	var skipped []string
	for chunkRows.Next() {
		var (
			chunk     domain.Chunk
			level     string
			embedding *pgvector.Vector
			wasSkip   bool
		)
		err := chunkRows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.Position,
			&chunk.Start,
			&chunk.Text,
			&chunk.Metadata.Titre,
			&chunk.Metadata.Chapitre,
			&chunk.Metadata.Section,
			&chunk.Metadata.Article,
			&level,
			&chunk.Metadata.Page,
			&chunk.Metadata.Source,
			&embedding,
			&wasSkip,
		)
		if err != nil {
			return nil, err
		}
		chunk.Metadata.Level = domain.StructureLevel(level)

		entry := index.Entry{Chunk: chunk}
		if embedding != nil {
			entry.Embedding = embedding.Slice()
		}
		entries = append(entries, entry)
		if wasSkip {
			skipped = append(skipped, chunk.ID)
		}
	}
	if err := chunkRows.Err(); err != nil {
		return nil, err
	}

	return index.NewSnapshot(documents, entries, skipped), nil
}

// Reset removes the persisted snapshot.
func (r *SnapshotRepository) Reset(ctx context.Context) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM index_documents`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM index_meta`); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
