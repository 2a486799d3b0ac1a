// internal/service/print_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"printer-service/internal/config"
	"printer-service/internal/format"
	"printer-service/internal/model"
	"printer-service/internal/repository"
	"printer-service/internal/transport"
	"printer-service/internal/utils"
)

// PrintResult reports a dispatched job back to the caller.
type PrintResult struct {
	JobID         string `json:"job_id"`
	PrinterID     string `json:"printer_id"`
	ReceiptNumber int64  `json:"receipt_number,omitempty"`
	PayloadBytes  int    `json:"payload_bytes"`
}

// PrintService renders documents and dispatches them over printer
// links. Sends to the same printer are serialized; payloads go out in
// small chunks with a pacing delay because BLE printer firmware drops
// data pushed faster than the mechanism prints.
type PrintService struct {
	cfg         *config.Config
	connections *ConnectionService
	repo        repository.PrinterRepository
	logger      *utils.ServiceLogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPrintService(
	cfg *config.Config,
	connections *ConnectionService,
	repo repository.PrinterRepository,
	logger *utils.ServiceLogger,
) *PrintService {
	return &PrintService{
		cfg:         cfg,
		connections: connections,
		repo:        repo,
		logger:      logger,
		locks:       make(map[string]*sync.Mutex),
	}
}

func (ps *PrintService) lockFor(printerID string) *sync.Mutex {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	l, ok := ps.locks[printerID]
	if !ok {
		l = &sync.Mutex{}
		ps.locks[printerID] = l
	}
	return l
}

// defaultSettings maps the configured rendering defaults.
func (ps *PrintService) defaultSettings() model.PrinterSettings {
	p := ps.cfg.Printer
	return model.PrinterSettings{
		PaperWidth: p.PaperWidth,
		Density:    p.Density,
		CutPaper:   p.CutPaper,
		PartialCut: p.PartialCut,
		OpenDrawer: p.OpenDrawer,
		FeedLines:  p.FeedLines,
	}
}

// ExchangeRate returns the configured CRC per USD rate for closures.
func (ps *PrintService) ExchangeRate() decimal.Decimal {
	return decimal.NewFromFloat(ps.cfg.Printer.ExchangeRate)
}

// resolveTarget picks the explicit printer or falls back to the first
// connected one.
func (ps *PrintService) resolveTarget(printerID string) (string, error) {
	if printerID != "" {
		return printerID, nil
	}
	id, ok := ps.connections.DefaultPrinterID()
	if !ok {
		return "", ErrNoPrinter
	}
	return id, nil
}

// Send pushes a raw payload to one printer with bounded retries. The
// attempt budget covers transient radio hiccups; a persistently failing
// link is torn down so the state surface shows the truth.
func (ps *PrintService) Send(ctx context.Context, printerID string, jobID string, payload []byte) error {
	lock := ps.lockFor(printerID)
	lock.Lock()
	defer lock.Unlock()

	conn, err := ps.connections.connection(printerID)
	if err != nil {
		return err
	}

	attempts := ps.cfg.Bluetooth.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryDelay := ps.cfg.Bluetooth.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 200 * time.Millisecond
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = ps.writeChunked(ctx, conn, payload)
		if lastErr == nil {
			p, _ := ps.connections.Get(printerID)
			utils.NewPrinterLogger(ps.logger.Logger, printerID, string(p.Transport)).
				LogPrint(jobID, len(payload), attempt, time.Since(start), nil)
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			break
		}
		if attempt < attempts {
			ps.logger.Warn("print attempt failed, retrying",
				zap.String("printer_id", printerID),
				zap.String("job_id", jobID),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			select {
			case <-time.After(retryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = attempts
			}
		}
	}

	p, _ := ps.connections.Get(printerID)
	utils.NewPrinterLogger(ps.logger.Logger, printerID, string(p.Transport)).
		LogPrint(jobID, len(payload), attempts, time.Since(start), lastErr)

	if errors.Is(lastErr, transport.ErrClosed) || !conn.IsOpen() {
		ps.connections.handleDrop(printerID, fmt.Sprintf("write failure: %v", lastErr))
	}
	return fmt.Errorf("print failed after %d attempts: %w", attempts, lastErr)
}

// writeChunked slices the payload into chunk-sized writes with a
// pacing delay between them. The final chunk gets no trailing delay.
func (ps *PrintService) writeChunked(ctx context.Context, conn transport.Connection, payload []byte) error {
	chunkSize := ps.cfg.Bluetooth.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 20
	}
	delay := ps.cfg.Bluetooth.ChunkDelay
	if delay < 0 {
		delay = 0
	}

	for offset := 0; offset < len(payload); offset += chunkSize {
		end := offset + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		if err := conn.Write(ctx, payload[offset:end]); err != nil {
			return err
		}
		if end < len(payload) && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// PrintReceipt renders the receipt, allocates its consecutive number
// when the caller has none, and dispatches it.
func (ps *PrintService) PrintReceipt(ctx context.Context, printerID string, doc *model.ReceiptDocument) (*PrintResult, error) {
	target, err := ps.resolveTarget(printerID)
	if err != nil {
		return nil, err
	}

	if doc.ReceiptNumber == 0 {
		n, err := ps.repo.NextReceiptNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("allocate receipt number: %w", err)
		}
		doc.ReceiptNumber = n
	}
	if doc.Timestamp.IsZero() {
		doc.Timestamp = time.Now()
	}

	payload := format.Receipt(doc, ps.defaultSettings())
	result := &PrintResult{
		JobID:         uuid.New().String(),
		PrinterID:     target,
		ReceiptNumber: doc.ReceiptNumber,
		PayloadBytes:  len(payload),
	}

	if err := ps.send(ctx, target, result.JobID, payload); err != nil {
		return nil, err
	}
	return result, nil
}

// PreviewReceipt renders the receipt as screen text without consuming
// a receipt number.
func (ps *PrintService) PreviewReceipt(ctx context.Context, doc *model.ReceiptDocument) (string, error) {
	if doc.ReceiptNumber == 0 {
		n, err := ps.repo.PeekReceiptNumber(ctx)
		if err != nil {
			return "", fmt.Errorf("peek receipt number: %w", err)
		}
		doc.ReceiptNumber = n
	}
	if doc.Timestamp.IsZero() {
		doc.Timestamp = time.Now()
	}
	return format.ReceiptPreview(doc, ps.defaultSettings()), nil
}

// PrintClosure renders and dispatches the daily closure report.
func (ps *PrintService) PrintClosure(ctx context.Context, printerID string, doc *model.ClosureDocument, includeOrders bool) (*PrintResult, error) {
	target, err := ps.resolveTarget(printerID)
	if err != nil {
		return nil, err
	}
	ps.applyClosureDefaults(doc)

	payload := format.Closure(doc, ps.defaultSettings(), includeOrders)
	result := &PrintResult{
		JobID:        uuid.New().String(),
		PrinterID:    target,
		PayloadBytes: len(payload),
	}

	if err := ps.send(ctx, target, result.JobID, payload); err != nil {
		return nil, err
	}
	return result, nil
}

// PreviewClosure renders the closure report as screen text.
func (ps *PrintService) PreviewClosure(_ context.Context, doc *model.ClosureDocument, includeOrders bool) string {
	ps.applyClosureDefaults(doc)
	return format.ClosurePreview(doc, ps.defaultSettings(), includeOrders)
}

func (ps *PrintService) applyClosureDefaults(doc *model.ClosureDocument) {
	if doc.Date.IsZero() {
		doc.Date = time.Now()
	}
	if doc.ExchangeRate.IsZero() {
		doc.ExchangeRate = ps.ExchangeRate()
	}
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = time.Now()
	}
}

// PrintTest dispatches a short self-test ticket to verify the link
// end to end.
func (ps *PrintService) PrintTest(ctx context.Context, printerID string) (*PrintResult, error) {
	target, err := ps.resolveTarget(printerID)
	if err != nil {
		return nil, err
	}
	p, ok := ps.connections.Get(target)
	if !ok {
		return nil, ErrInvalidDevice
	}

	payload := format.TestPage(p, ps.defaultSettings())
	result := &PrintResult{
		JobID:        uuid.New().String(),
		PrinterID:    target,
		PayloadBytes: len(payload),
	}
	if err := ps.send(ctx, target, result.JobID, payload); err != nil {
		return nil, err
	}
	return result, nil
}

// send wraps Send with listener notifications.
func (ps *PrintService) send(ctx context.Context, printerID, jobID string, payload []byte) error {
	err := ps.Send(ctx, printerID, jobID, payload)

	ps.connections.mu.RLock()
	listener := ps.connections.listener
	ps.connections.mu.RUnlock()
	if listener != nil {
		if err != nil {
			listener.OnPrintFailed(printerID, jobID, err)
		} else {
			listener.OnPrintCompleted(printerID, jobID)
		}
	}
	return err
}
