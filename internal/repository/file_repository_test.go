package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/model"
)

func newTestRepo(t *testing.T) (*FileRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "printers.json")
	repo, err := NewFileRepository(path, zap.NewNop())
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	return repo, path
}

func testPrinter() *model.Printer {
	return &model.Printer{
		ID:        "AA:BB:CC:DD:EE:FF",
		Name:      "PT-210",
		Model:     "PT-210",
		Transport: model.TransportBluetooth,
		Address:   "AA:BB:CC:DD:EE:FF",
		Connected: true,
		State:     model.StateConnected,
		LastSeen:  time.Now(),
	}
}

func TestFileRepositoryRoundTripForcesDisconnected(t *testing.T) {
	ctx := context.Background()
	repo, path := newTestRepo(t)

	if err := repo.Save(ctx, testPrinter()); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Reload from disk as on service restart.
	reloaded, err := NewFileRepository(path, zap.NewNop())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	printers, err := reloaded.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(printers) != 1 {
		t.Fatalf("got %d printers, want 1", len(printers))
	}
	p := printers[0]
	if p.Connected {
		t.Error("stored printer loaded as connected")
	}
	if p.State != model.StateDisconnected {
		t.Errorf("state = %s, want %s", p.State, model.StateDisconnected)
	}
	if p.Name != "PT-210" || p.Transport != model.TransportBluetooth {
		t.Errorf("identity lost: %+v", p)
	}
}

func TestFileRepositorySaveUpserts(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	p := testPrinter()
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	p.Name = "Cocina"
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("save again: %v", err)
	}

	printers, _ := repo.List(ctx)
	if len(printers) != 1 {
		t.Fatalf("duplicate entry after upsert: %d", len(printers))
	}
	if printers[0].Name != "Cocina" {
		t.Errorf("name not updated: %q", printers[0].Name)
	}
}

func TestFileRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	if err := repo.Delete(ctx, "missing"); err != ErrNotFound {
		t.Errorf("delete unknown: got %v, want ErrNotFound", err)
	}

	p := testPrinter()
	repo.Save(ctx, p)
	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	printers, _ := repo.List(ctx)
	if len(printers) != 0 {
		t.Errorf("printer not removed: %d", len(printers))
	}
}

func TestFileRepositoryReceiptCounter(t *testing.T) {
	ctx := context.Background()
	repo, path := newTestRepo(t)

	peek, err := repo.PeekReceiptNumber(ctx)
	if err != nil || peek != 1 {
		t.Fatalf("peek = %d, %v; want 1", peek, err)
	}
	// Peek must not consume.
	if again, _ := repo.PeekReceiptNumber(ctx); again != 1 {
		t.Errorf("peek consumed the counter: %d", again)
	}

	for want := int64(1); want <= 3; want++ {
		n, err := repo.NextReceiptNumber(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if n != want {
			t.Errorf("receipt number = %d, want %d", n, want)
		}
	}

	// Counter survives restart.
	reloaded, err := NewFileRepository(path, zap.NewNop())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if n, _ := reloaded.NextReceiptNumber(ctx); n != 4 {
		t.Errorf("counter after reload = %d, want 4", n)
	}
}
