package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/config"
	"printer-service/internal/model"
	"printer-service/internal/transport"
	"printer-service/internal/utils"
)

// fakeConn records writes and can be programmed to fail.
type fakeConn struct {
	mu       sync.Mutex
	writes   [][]byte
	failures int
	failErr  error
	open     bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{open: true}
}

func (c *fakeConn) Write(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return transport.ErrClosed
	}
	if c.failures > 0 {
		c.failures--
		if c.failErr != nil {
			return c.failErr
		}
		return transport.ErrClosed
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.writes = append(c.writes, buf)
	return nil
}

func (c *fakeConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

func (c *fakeConn) attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

// fakeTransport serves canned scan results and connections.
type fakeTransport struct {
	kind      model.TransportKind
	supported bool

	mu         sync.Mutex
	found      []transport.Discovered
	conns      map[string]*fakeConn
	connectErr error
	drops      map[string]transport.DropHandler
}

func newFakeTransport(kind model.TransportKind) *fakeTransport {
	return &fakeTransport{
		kind:      kind,
		supported: true,
		conns:     make(map[string]*fakeConn),
		drops:     make(map[string]transport.DropHandler),
	}
}

func (t *fakeTransport) Kind() model.TransportKind { return t.kind }
func (t *fakeTransport) Supported() bool           { return t.supported }

func (t *fakeTransport) Scan(_ context.Context) ([]transport.Discovered, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]transport.Discovered, len(t.found))
	copy(out, t.found)
	return out, nil
}

func (t *fakeTransport) Connect(_ context.Context, p *model.Printer, onDrop transport.DropHandler) (transport.Connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connectErr != nil {
		return nil, t.connectErr
	}
	conn := newFakeConn()
	t.conns[p.ID] = conn
	t.drops[p.ID] = onDrop
	return conn, nil
}

func (t *fakeTransport) dropPeer(id, reason string) {
	t.mu.Lock()
	drop := t.drops[id]
	conn := t.conns[id]
	delete(t.drops, id)
	t.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	if drop != nil {
		drop(reason)
	}
}

// memoryRepo is an in-memory PrinterRepository for tests.
type memoryRepo struct {
	mu       sync.Mutex
	printers map[string]model.Printer
	counter  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{printers: make(map[string]model.Printer)}
}

func (r *memoryRepo) Save(_ context.Context, p *model.Printer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printers[p.ID] = p.Identity()
	return nil
}

func (r *memoryRepo) List(_ context.Context) ([]*model.Printer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Printer, 0, len(r.printers))
	for _, p := range r.printers {
		cp := p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.printers, id)
	return nil
}

func (r *memoryRepo) NextReceiptNumber(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	return r.counter, nil
}

func (r *memoryRepo) PeekReceiptNumber(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counter + 1, nil
}

func (r *memoryRepo) Close() error { return nil }

// recordingListener captures lifecycle events.
type recordingListener struct {
	mu           sync.Mutex
	connected    []string
	disconnected []string
	reasons      []string
	completed    []string
	failed       []string
}

func (l *recordingListener) OnPrinterConnected(p model.Printer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = append(l.connected, p.ID)
}

func (l *recordingListener) OnPrinterDisconnected(p model.Printer, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disconnected = append(l.disconnected, p.ID)
	l.reasons = append(l.reasons, reason)
}

func (l *recordingListener) OnPrintCompleted(printerID, jobID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.completed = append(l.completed, jobID)
}

func (l *recordingListener) OnPrintFailed(printerID, jobID string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed = append(l.failed, jobID)
}

func testConfig() *config.Config {
	return &config.Config{
		Printer: config.PrinterConfig{
			PaperWidth:   32,
			Density:      3,
			CutPaper:     true,
			FeedLines:    3,
			ExchangeRate: 520,
		},
		Bluetooth: config.BluetoothConfig{
			ScanTimeout:    time.Second,
			ConnectTimeout: time.Second,
			ChunkSize:      20,
			ChunkDelay:     0,
			RetryAttempts:  3,
			RetryDelay:     time.Millisecond,
		},
	}
}

func testServiceLogger() *utils.ServiceLogger {
	return utils.NewServiceLogger(zap.NewNop(), "test")
}

func bleDiscovery(id, name string) transport.Discovered {
	return transport.Discovered{
		ID:        id,
		Name:      name,
		Transport: model.TransportBluetooth,
		Address:   id,
		RSSI:      -60,
	}
}
