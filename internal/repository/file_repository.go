// internal/repository/file_repository.go
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"printer-service/internal/model"
)

// fileState is the on-disk document of the file store.
type fileState struct {
	Printers       []*model.Printer `json:"printers"`
	ReceiptCounter int64            `json:"receipt_counter"`
}

// FileRepository keeps the printer registry in a single JSON file.
// This is the default store: one POS station, no external services.
// Every mutation rewrites the file atomically via rename.
type FileRepository struct {
	path   string
	logger *zap.Logger

	mu    sync.Mutex
	state fileState
}

// NewFileRepository loads the registry from path, creating the parent
// directory when needed. Stored printers are normalized to the
// disconnected state.
func NewFileRepository(path string, logger *zap.Logger) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	r := &FileRepository{path: path, logger: logger}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run, empty registry.
	case err != nil:
		return nil, fmt.Errorf("read printer registry: %w", err)
	default:
		if err := json.Unmarshal(data, &r.state); err != nil {
			return nil, fmt.Errorf("parse printer registry: %w", err)
		}
	}

	for i, p := range r.state.Printers {
		identity := p.Identity()
		r.state.Printers[i] = &identity
	}

	logger.Info("printer registry loaded",
		zap.String("path", path),
		zap.Int("printers", len(r.state.Printers)),
		zap.Int64("receipt_counter", r.state.ReceiptCounter))
	return r, nil
}

func (r *FileRepository) Save(_ context.Context, printer *model.Printer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity := printer.Identity()
	replaced := false
	for i, p := range r.state.Printers {
		if p.ID == identity.ID {
			r.state.Printers[i] = &identity
			replaced = true
			break
		}
	}
	if !replaced {
		r.state.Printers = append(r.state.Printers, &identity)
	}
	return r.persistLocked()
}

func (r *FileRepository) List(_ context.Context) ([]*model.Printer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.Printer, 0, len(r.state.Printers))
	for _, p := range r.state.Printers {
		identity := p.Identity()
		out = append(out, &identity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *FileRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.state.Printers {
		if p.ID == id {
			r.state.Printers = append(r.state.Printers[:i], r.state.Printers[i+1:]...)
			return r.persistLocked()
		}
	}
	return ErrNotFound
}

func (r *FileRepository) NextReceiptNumber(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.ReceiptCounter++
	if err := r.persistLocked(); err != nil {
		r.state.ReceiptCounter--
		return 0, err
	}
	return r.state.ReceiptCounter, nil
}

func (r *FileRepository) PeekReceiptNumber(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.ReceiptCounter + 1, nil
}

func (r *FileRepository) Close() error {
	return nil
}

// persistLocked writes the registry through a temp file so a crash
// mid-write never corrupts the document. Caller holds mu.
func (r *FileRepository) persistLocked() error {
	data, err := json.MarshalIndent(&r.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode printer registry: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write printer registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace printer registry: %w", err)
	}
	return nil
}
