// internal/service/connection_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/config"
	"printer-service/internal/model"
	"printer-service/internal/repository"
	"printer-service/internal/transport"
	"printer-service/internal/utils"
)

var (
	// ErrInvalidDevice means the requested printer id is not known.
	ErrInvalidDevice = errors.New("invalid device")
	// ErrNotConnected means the printer exists but has no open link.
	ErrNotConnected = errors.New("printer not connected")
	// ErrNoPrinter means no printer at all is connected.
	ErrNoPrinter = errors.New("no printer connected")
)

// StateListener receives printer lifecycle notifications. Connection
// problems surface as state changes on this interface, not as panics
// in the caller.
type StateListener interface {
	OnPrinterConnected(printer model.Printer)
	OnPrinterDisconnected(printer model.Printer, reason string)
	OnPrintCompleted(printerID, jobID string)
	OnPrintFailed(printerID, jobID string, err error)
}

// entry pairs the current printer record with its open connection.
// Mutations build a fresh entry and swap the pointer under the service
// lock, so readers always observe a consistent record.
type entry struct {
	printer model.Printer
	conn    transport.Connection
}

// ConnectionService owns the printer registry and every link
// lifecycle: scanning, connecting, disconnecting, drop handling and
// persistence of printer identities.
type ConnectionService struct {
	cfg        *config.Config
	repo       repository.PrinterRepository
	transports map[model.TransportKind]transport.Transport
	logger     *utils.ServiceLogger

	mu       sync.RWMutex
	printers map[string]*entry
	order    []string
	listener StateListener
	lastErr  string

	scanMu     sync.Mutex
	scanCancel context.CancelFunc
	scanSeq    uint64
}

// NewConnectionService builds the service and preloads remembered
// printers from the repository. Loaded printers are offline until the
// operator reconnects them.
func NewConnectionService(
	cfg *config.Config,
	repo repository.PrinterRepository,
	transports []transport.Transport,
	logger *utils.ServiceLogger,
) (*ConnectionService, error) {
	s := &ConnectionService{
		cfg:        cfg,
		repo:       repo,
		transports: make(map[model.TransportKind]transport.Transport, len(transports)),
		logger:     logger,
		printers:   make(map[string]*entry),
	}
	for _, t := range transports {
		s.transports[t.Kind()] = t
	}

	stored, err := repo.List(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load remembered printers: %w", err)
	}
	for _, p := range stored {
		identity := p.Identity()
		s.printers[p.ID] = &entry{printer: identity}
		s.order = append(s.order, p.ID)
	}
	logger.Info("printer registry ready", zap.Int("remembered", len(stored)))
	return s, nil
}

// SetListener wires the event sink. Must be called before any
// connection activity.
func (s *ConnectionService) SetListener(l StateListener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

// TransportSupported reports whether a transport kind can be used on
// this host.
func (s *ConnectionService) TransportSupported(kind model.TransportKind) bool {
	t, ok := s.transports[kind]
	return ok && t.Supported()
}

// Scan discovers printers on the given transport and merges them into
// the registry. Starting a scan cancels any scan already in flight;
// only one runs at a time. A scan that times out with nothing found
// returns an empty result, not an error.
func (s *ConnectionService) Scan(ctx context.Context, kind model.TransportKind) ([]model.Printer, error) {
	t, ok := s.transports[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown transport %s", transport.ErrUnsupported, kind)
	}
	if !t.Supported() {
		s.setLastError(fmt.Sprintf("%s unavailable on this host", kind))
		return nil, transport.ErrUnsupported
	}

	timeout := s.cfg.Bluetooth.ScanTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.scanMu.Lock()
	if s.scanCancel != nil {
		s.scanCancel()
	}
	s.scanCancel = cancel
	s.scanSeq++
	seq := s.scanSeq
	s.scanMu.Unlock()

	discovered, err := t.Scan(scanCtx)

	// Only clear our own cancel; a newer scan may have replaced it.
	s.scanMu.Lock()
	if s.scanSeq == seq {
		s.scanCancel = nil
	}
	s.scanMu.Unlock()

	if err != nil {
		s.setLastError(err.Error())
		return nil, err
	}

	var merged []model.Printer
	for _, d := range discovered {
		merged = append(merged, s.merge(d))
	}
	return merged, nil
}

// CancelScan stops the scan in flight, if any.
func (s *ConnectionService) CancelScan() {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	if s.scanCancel != nil {
		s.scanCancel()
		s.scanCancel = nil
	}
}

// merge folds one discovery into the registry. A device matches an
// existing record by id first, then by name for renamed adapters that
// advertise a fresh random address. Unnamed devices never match by
// name. Connection state of the existing record is preserved.
func (s *ConnectionService) merge(d transport.Discovered) model.Printer {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if e, ok := s.printers[d.ID]; ok {
		p := e.printer
		p.Name = pickName(p.Name, d.Name)
		if d.Model != "" {
			p.Model = d.Model
		}
		p.RSSI = d.RSSI
		p.LastSeen = now
		s.printers[d.ID] = &entry{printer: p, conn: e.conn}
		s.persist(&p)
		return p
	}

	if d.Name != model.UnknownDeviceName {
		for _, id := range s.order {
			e := s.printers[id]
			if e.printer.Name == d.Name && e.printer.Transport == d.Transport {
				p := e.printer
				if d.Model != "" {
					p.Model = d.Model
				}
				p.RSSI = d.RSSI
				p.LastSeen = now
				s.printers[id] = &entry{printer: p, conn: e.conn}
				s.persist(&p)
				return p
			}
		}
	}

	p := model.Printer{
		ID:        d.ID,
		Name:      d.Name,
		Model:     d.Model,
		Transport: d.Transport,
		Address:   d.Address,
		RSSI:      d.RSSI,
		State:     model.StateDiscovered,
		LastSeen:  now,
	}
	s.printers[d.ID] = &entry{printer: p}
	s.order = append(s.order, d.ID)
	s.persist(&p)
	return p
}

func pickName(existing, found string) string {
	if found == model.UnknownDeviceName && existing != "" {
		return existing
	}
	return found
}

// Connect opens a link to the printer and promotes it to connected.
// Connecting an already connected printer is a no-op.
func (s *ConnectionService) Connect(ctx context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.printers[id]
	if !ok {
		s.mu.Unlock()
		return ErrInvalidDevice
	}
	if e.printer.IsConnected() {
		s.mu.Unlock()
		return nil
	}
	p := e.printer
	p.State = model.StateConnecting
	s.printers[id] = &entry{printer: p}
	s.mu.Unlock()

	t, ok := s.transports[p.Transport]
	if !ok || !t.Supported() {
		s.demote(id)
		return transport.ErrUnsupported
	}

	timeout := s.cfg.Bluetooth.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := t.Connect(cctx, &p, func(reason string) {
		s.handleDrop(id, reason)
	})
	if err != nil {
		s.demote(id)
		s.setLastError(err.Error())
		utils.NewPrinterLogger(s.logger.Logger, id, string(p.Transport)).
			LogConnection("connect", false, err)
		return err
	}

	s.mu.Lock()
	p.Connected = true
	p.State = model.StateConnected
	p.LastSeen = time.Now()
	s.printers[id] = &entry{printer: p, conn: conn}
	listener := s.listener
	s.persist(&p)
	s.mu.Unlock()

	utils.NewPrinterLogger(s.logger.Logger, id, string(p.Transport)).
		LogConnection("connect", true, nil)
	if listener != nil {
		listener.OnPrinterConnected(p)
	}
	return nil
}

// Disconnect tears down the link. Disconnecting a printer that is not
// connected is a no-op.
func (s *ConnectionService) Disconnect(ctx context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.printers[id]
	if !ok {
		s.mu.Unlock()
		return ErrInvalidDevice
	}
	conn := e.conn
	p := e.printer
	if conn == nil && !p.IsConnected() {
		s.mu.Unlock()
		return nil
	}
	p.State = model.StateDisconnecting
	s.printers[id] = &entry{printer: p, conn: conn}
	s.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			s.logger.Warn("close printer connection",
				zap.String("printer_id", id), zap.Error(err))
		}
	}

	p = s.demote(id)
	utils.NewPrinterLogger(s.logger.Logger, id, string(p.Transport)).
		LogConnection("disconnect", true, nil)

	s.mu.RLock()
	listener := s.listener
	s.mu.RUnlock()
	if listener != nil {
		listener.OnPrinterDisconnected(p, "manual disconnect")
	}
	return nil
}

// Forget removes a remembered printer. Connected printers are
// disconnected first.
func (s *ConnectionService) Forget(ctx context.Context, id string) error {
	s.mu.RLock()
	_, ok := s.printers[id]
	s.mu.RUnlock()
	if !ok {
		return ErrInvalidDevice
	}
	if err := s.Disconnect(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.printers, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// handleDrop runs when the transport reports an unsolicited
// disconnect. The printer demotes to disconnected and listeners are
// told; in-flight sends fail on their next write.
func (s *ConnectionService) handleDrop(id string, reason string) {
	s.mu.RLock()
	e, ok := s.printers[id]
	s.mu.RUnlock()
	if !ok {
		return
	}
	if conn := e.conn; conn != nil {
		conn.Close()
	}

	p := s.demote(id)
	s.setLastError(fmt.Sprintf("printer %s disconnected: %s", p.Name, reason))
	s.logger.Warn("printer link dropped",
		zap.String("printer_id", id), zap.String("reason", reason))

	s.mu.RLock()
	listener := s.listener
	s.mu.RUnlock()
	if listener != nil {
		listener.OnPrinterDisconnected(p, reason)
	}
}

// demote clears the connection handle and marks the printer
// disconnected, returning the updated record.
func (s *ConnectionService) demote(id string) model.Printer {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.printers[id]
	if !ok {
		return model.Printer{ID: id}
	}
	p := e.printer
	p.Connected = false
	p.State = model.StateDisconnected
	s.printers[id] = &entry{printer: p}
	return p
}

// List returns a snapshot of every known printer in discovery order.
func (s *ConnectionService) List() []model.Printer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Printer, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.printers[id].printer)
	}
	return out
}

// Get returns one printer record.
func (s *ConnectionService) Get(id string) (model.Printer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.printers[id]
	if !ok {
		return model.Printer{}, false
	}
	return e.printer, true
}

// DefaultPrinterID returns the first connected printer. Print requests
// without an explicit target go here.
func (s *ConnectionService) DefaultPrinterID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if s.printers[id].printer.IsConnected() {
			return id, true
		}
	}
	return "", false
}

// connection returns the open link for a printer, or ErrNotConnected.
// A record still marked connected over a dead link is demoted here, so
// the registry catches up even when the transport gave no drop signal.
func (s *ConnectionService) connection(id string) (transport.Connection, error) {
	s.mu.RLock()
	e, ok := s.printers[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidDevice
	}
	if e.printer.IsConnected() && e.conn != nil && !e.conn.IsOpen() {
		s.handleDrop(id, "connection closed")
		return nil, ErrNotConnected
	}
	if !e.printer.IsConnected() || e.conn == nil {
		return nil, ErrNotConnected
	}
	return e.conn, nil
}

// LastError returns the most recent user-facing failure, empty when
// none is pending.
func (s *ConnectionService) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ClearLastError resets the pending failure message.
func (s *ConnectionService) ClearLastError() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *ConnectionService) setLastError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

// persist stores a printer identity, logging instead of failing: a
// broken registry file must not break printing. Caller holds mu.
func (s *ConnectionService) persist(p *model.Printer) {
	if err := s.repo.Save(context.Background(), p); err != nil {
		s.logger.Warn("persist printer identity",
			zap.String("printer_id", p.ID), zap.Error(err))
	}
}

// Shutdown closes every open connection. Remembered identities stay
// in the repository.
func (s *ConnectionService) Shutdown(ctx context.Context) {
	s.CancelScan()

	s.mu.Lock()
	ids := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if s.printers[id].conn != nil {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.Disconnect(ctx, id); err != nil {
			s.logger.Warn("disconnect on shutdown",
				zap.String("printer_id", id), zap.Error(err))
		}
	}
}
