// File path: internal/corpus/store.go
package corpus

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Store persists chunked documents as one JSONL file per document id.
// Re-ingesting a document replaces its file wholesale, superseding the
// previous chunks without mutating them in place.
type Store struct {
	path string
	mu   sync.RWMutex
}

// DocumentInfo summarises one stored document.
type DocumentInfo struct {
	ID     string `json:"id"`
	Chunks int    `json:"chunks"`
}

// NewStore opens (creating if needed) the corpus directory.
func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("corpus store path required")
	}
	root := determineRoot(path)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create corpus dir: %w", err)
	}
	return &Store{path: root}, nil
}

// ReplaceChunks supersedes any stored chunks for the document with the
// provided set.
func (s *Store) ReplaceChunks(ctx context.Context, docID string, chunks []Chunk) error {
	filePath, err := s.documentFile(docID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.OpenFile(filePath, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open corpus file: %w", err)
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	for _, chunk := range chunks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := enc.Encode(chunk); err != nil {
			return fmt.Errorf("encode chunk: %w", err)
		}
	}
	return nil
}

// Chunks returns the stored chunks for one document in ingest order.
func (s *Store) Chunks(ctx context.Context, docID string) ([]Chunk, error) {
	if s == nil {
		return nil, errors.New("corpus store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readDocument(ctx, docID)
}

// AllChunks returns every stored chunk across all documents.
func (s *Store) AllChunks(ctx context.Context) ([]Chunk, error) {
	if s == nil {
		return nil, errors.New("corpus store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}
	var all []Chunk
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		docID, ok := decodeDocumentFile(entry.Name())
		if !ok {
			continue
		}
		chunks, err := s.readDocument(ctx, docID)
		if err != nil {
			return nil, err
		}
		all = append(all, chunks...)
	}
	return all, nil
}

// Documents lists stored documents with their chunk counts.
func (s *Store) Documents(ctx context.Context) ([]DocumentInfo, error) {
	if s == nil {
		return nil, errors.New("corpus store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.path)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}
	infos := make([]DocumentInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		docID, ok := decodeDocumentFile(entry.Name())
		if !ok {
			continue
		}
		chunks, err := s.readDocument(ctx, docID)
		if err != nil {
			return nil, err
		}
		infos = append(infos, DocumentInfo{ID: docID, Chunks: len(chunks)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// Root returns the backing directory.
func (s *Store) Root() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) readDocument(ctx context.Context, docID string) ([]Chunk, error) {
	filePath, err := s.documentFile(docID)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open corpus file: %w", err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64<<10), 8<<20)
	var chunks []Chunk
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var chunk Chunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return nil, fmt.Errorf("decode chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}
	return chunks, nil
}

func (s *Store) documentFile(docID string) (string, error) {
	trimmed := strings.TrimSpace(docID)
	if trimmed == "" {
		return "", fmt.Errorf("document id required")
	}
	encoded := base64.RawURLEncoding.EncodeToString([]byte(trimmed))
	return filepath.Join(s.path, fmt.Sprintf("doc_%s.jsonl", encoded)), nil
}

func decodeDocumentFile(name string) (string, bool) {
	if !strings.HasPrefix(name, "doc_") || !strings.HasSuffix(name, ".jsonl") {
		return "", false
	}
	encoded := strings.TrimSuffix(strings.TrimPrefix(name, "doc_"), ".jsonl")
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func determineRoot(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "."
	}
	info, err := os.Stat(trimmed)
	if err == nil {
		if info.IsDir() {
			return trimmed
		}
		return filepath.Dir(trimmed)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return filepath.Dir(trimmed)
	}
	if ext := filepath.Ext(trimmed); ext != "" {
		dir := filepath.Dir(trimmed)
		if dir == "" || dir == "." {
			return "."
		}
		return dir
	}
	return trimmed
}
