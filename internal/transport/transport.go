// Package transport abstracts the physical links to receipt printers.
// Each transport can enumerate nearby devices and open a byte-stream
// connection; everything above this package is link-agnostic.
package transport

import (
	"context"
	"errors"

	"printer-service/internal/model"
)

var (
	// ErrUnsupported means the transport cannot run on this host, for
	// example no Bluetooth adapter is present.
	ErrUnsupported = errors.New("transport not available on this host")
	// ErrClosed is returned by writes on a connection that was closed
	// or dropped by the peer.
	ErrClosed = errors.New("connection closed")
	// ErrNoWritableCharacteristic means a BLE device exposes no
	// characteristic the driver can print through.
	ErrNoWritableCharacteristic = errors.New("device has no writable print characteristic")
)

// Discovered is one device found during a scan.
type Discovered struct {
	ID        string
	Name      string
	Model     string
	Transport model.TransportKind
	Address   string
	RSSI      int
}

// Connection is an open link to a printer. Write must be safe to call
// from one goroutine at a time; callers serialize sends per printer.
type Connection interface {
	Write(ctx context.Context, data []byte) error
	IsOpen() bool
	Close() error
}

// DropHandler is invoked once when the peer closes the link outside a
// deliberate Close call. It runs on a transport goroutine.
type DropHandler func(reason string)

// Transport discovers printers on one kind of physical link and opens
// connections to them.
type Transport interface {
	Kind() model.TransportKind
	// Supported reports whether the link can be used on this host.
	Supported() bool
	// Scan enumerates reachable devices until ctx is done. A scan cut
	// short returns the devices seen so far, not an error.
	Scan(ctx context.Context) ([]Discovered, error)
	// Connect opens a link to the printer. onDrop fires if the peer
	// disconnects after a successful connect.
	Connect(ctx context.Context, printer *model.Printer, onDrop DropHandler) (Connection, error)
}
