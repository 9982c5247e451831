// File path: internal/sqlite/catalog.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/marginalia-dev/redline/internal/corpus"
)

// DocumentInfo summarises one catalogued document.
type DocumentInfo struct {
	ID         string    `json:"id" db:"id"`
	Title      string    `json:"title,omitempty" db:"title"`
	Domain     string    `json:"domain,omitempty" db:"domain"`
	Version    string    `json:"version,omitempty" db:"version"`
	Chunks     int       `json:"chunks" db:"chunks"`
	IngestedAt time.Time `json:"ingested_at" db:"ingested_at"`
}

// PersistDocument records the document and its chunks in one transaction,
// superseding any previous chunks for the same document id.
func (s *Store) PersistDocument(ctx context.Context, doc corpus.Document, chunks []corpus.Chunk) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite store not initialised")
	}
	if strings.TrimSpace(doc.ID) == "" {
		return errors.New("document id required")
	}
	ingested := doc.IngestedAt
	if ingested.IsZero() {
		ingested = time.Now().UTC()
	}
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents(id, title, domain, version, rule_tags, ingested_at)
                         VALUES(?, ?, ?, ?, ?, ?)
                         ON CONFLICT(id) DO UPDATE SET
                                title = excluded.title,
                                domain = excluded.domain,
                                version = excluded.version,
                                rule_tags = excluded.rule_tags,
                                ingested_at = excluded.ingested_at`,
			doc.ID, nullIfEmpty(doc.Title), nullIfEmpty(doc.Domain), nullIfEmpty(doc.Version),
			nullIfEmpty(strings.Join(doc.RuleTags, ",")), ingested); err != nil {
			return fmt.Errorf("upsert document: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ?`, doc.ID); err != nil {
			return fmt.Errorf("supersede chunks: %w", err)
		}
		for _, chunk := range chunks {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO chunks(id, doc_id, position, text, token_count, structural_type,
                                        section_title, section_level, rule_tags, overlap_before, overlap_after)
                                 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				chunk.ID, doc.ID, chunk.Index, chunk.Text, chunk.TokenCount, string(chunk.Structural),
				nullIfEmpty(chunk.SectionTitle), chunk.SectionLevel,
				nullIfEmpty(strings.Join(chunk.RuleTags, ",")),
				nullIfEmpty(chunk.OverlapBefore), nullIfEmpty(chunk.OverlapAfter)); err != nil {
				return fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
			}
		}
		return nil
	})
}

// Documents lists the catalogued documents with their chunk counts, newest
// first.
func (s *Store) Documents(ctx context.Context) ([]DocumentInfo, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite store not initialised")
	}
	rows, err := s.db.QueryxContext(ctx,
		`SELECT d.id, COALESCE(d.title, '') AS title, COALESCE(d.domain, '') AS domain,
                        COALESCE(d.version, '') AS version, d.ingested_at,
                        (SELECT COUNT(*) FROM chunks c WHERE c.doc_id = d.id) AS chunks
                 FROM documents d
                 ORDER BY d.ingested_at DESC, d.id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var docs []DocumentInfo
	for rows.Next() {
		var info DocumentInfo
		if err := rows.StructScan(&info); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, info)
	}
	return docs, rows.Err()
}

// DocumentChunks returns the stored chunks of one document in ingest order.
func (s *Store) DocumentChunks(ctx context.Context, docID string) ([]corpus.Chunk, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite store not initialised")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc_id, position, text, token_count, structural_type,
                        COALESCE(section_title, ''), COALESCE(section_level, 0),
                        COALESCE(rule_tags, ''), COALESCE(overlap_before, ''), COALESCE(overlap_after, '')
                 FROM chunks WHERE doc_id = ? ORDER BY position`, docID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()
	var chunks []corpus.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// DeleteDocument removes a document and, via the foreign key cascade, its
// chunks.
func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite store not initialised")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, docID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func scanChunk(rows *sql.Rows) (corpus.Chunk, error) {
	var chunk corpus.Chunk
	var structural, ruleTags string
	if err := rows.Scan(&chunk.ID, &chunk.DocID, &chunk.Index, &chunk.Text, &chunk.TokenCount,
		&structural, &chunk.SectionTitle, &chunk.SectionLevel,
		&ruleTags, &chunk.OverlapBefore, &chunk.OverlapAfter); err != nil {
		return corpus.Chunk{}, fmt.Errorf("scan chunk: %w", err)
	}
	chunk.Structural = corpus.StructuralType(structural)
	if ruleTags != "" {
		chunk.RuleTags = strings.Split(ruleTags, ",")
	}
	return chunk, nil
}
