// internal/repository/interfaces.go
package repository

import (
	"context"
	"errors"

	"printer-service/internal/model"
)

// ErrNotFound is returned when a printer id is unknown to the store.
var ErrNotFound = errors.New("printer not found")

// PrinterRepository persists printer identities and allocates receipt
// numbers. Connection state is deliberately not stored; a remembered
// printer always loads as disconnected. Implementations must be safe
// for concurrent use.
type PrinterRepository interface {
	// Save inserts or updates a printer identity.
	Save(ctx context.Context, printer *model.Printer) error
	// List returns all remembered printers, disconnected.
	List(ctx context.Context) ([]*model.Printer, error)
	// Delete forgets a printer. Deleting an unknown id returns
	// ErrNotFound.
	Delete(ctx context.Context, id string) error

	// NextReceiptNumber allocates the next consecutive receipt number.
	NextReceiptNumber(ctx context.Context) (int64, error)
	// PeekReceiptNumber returns the number the next allocation would
	// yield without consuming it. Previews use this.
	PeekReceiptNumber(ctx context.Context) (int64, error)

	Close() error
}
