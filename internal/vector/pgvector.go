package vector

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iamvkosarev/rag-chat-gateway/config"
	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PGVectorStore searches a Postgres table with a pgvector embedding column.
// The table needs content, doc_name, "references" and embedding columns.
type PGVectorStore struct {
	db    *sql.DB
	query string
}

func OpenPGVectorStore(cfg config.Postgres) (*PGVectorStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("vector postgres dsn is not set")
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return NewPGVectorStore(db, cfg.Table), nil
}

func NewPGVectorStore(db *sql.DB, table string) *PGVectorStore {
	return &PGVectorStore{
		db: db,
		query: fmt.Sprintf(
			`SELECT content, doc_name, "references", 1 - (embedding <=> $1) AS similarity
			FROM %s ORDER BY embedding <=> $1 LIMIT $2`,
			pq.QuoteIdentifier(table),
		),
	}
}

func (p *PGVectorStore) Search(ctx context.Context, vector []float32, limit int) ([]model.VectorDocument, error) {
	rows, err := p.db.QueryContext(ctx, p.query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	docs := make([]model.VectorDocument, 0, limit)
	for rows.Next() {
		var (
			doc           model.VectorDocument
			docName, refs sql.NullString
		)
		if err = rows.Scan(&doc.Content, &docName, &refs, &doc.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan vector document: %w", err)
		}
		doc.Metadata = model.DocumentMetadata{DocName: docName.String, References: refs.String}
		docs = append(docs, doc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vector documents: %w", err)
	}
	return docs, nil
}

func (p *PGVectorStore) Close() error {
	return p.db.Close()
}
