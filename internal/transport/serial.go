package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"printer-service/internal/model"
)

// SerialOptions holds the line parameters applied to every serial
// printer. Receipt printers almost universally run 9600 8N1.
type SerialOptions struct {
	BaudRate     int
	DataBits     int
	StopBits     int
	Parity       string
	WriteTimeout time.Duration
}

// SerialTransport reaches printers attached to RS-232 or USB-serial
// ports. Discovery lists the host's ports; there is no probing, the
// operator picks the right one.
type SerialTransport struct {
	opts   SerialOptions
	logger *zap.Logger
}

func NewSerial(opts SerialOptions, logger *zap.Logger) *SerialTransport {
	if opts.BaudRate <= 0 {
		opts.BaudRate = 9600
	}
	if opts.DataBits <= 0 {
		opts.DataBits = 8
	}
	if opts.StopBits <= 0 {
		opts.StopBits = 1
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &SerialTransport{opts: opts, logger: logger}
}

func (t *SerialTransport) Kind() model.TransportKind {
	return model.TransportSerial
}

func (t *SerialTransport) Supported() bool {
	_, err := serial.GetPortsList()
	return err == nil
}

func (t *SerialTransport) Scan(ctx context.Context) ([]Discovered, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	found := make([]Discovered, 0, len(ports))
	for _, port := range ports {
		found = append(found, Discovered{
			ID:        port,
			Name:      "Serial " + port,
			Transport: model.TransportSerial,
			Address:   port,
		})
	}
	t.logger.Info("serial scan finished", zap.Int("ports", len(found)))
	return found, nil
}

func (t *SerialTransport) Connect(ctx context.Context, printer *model.Printer, _ DropHandler) (Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: t.opts.BaudRate,
		DataBits: t.opts.DataBits,
		Parity:   parseParity(t.opts.Parity),
		StopBits: parseStopBits(t.opts.StopBits),
	}
	port, err := serial.Open(printer.Address, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", printer.Address, err)
	}
	t.logger.Info("serial printer connected",
		zap.String("port", printer.Address),
		zap.Int("baud", t.opts.BaudRate))
	return &serialConnection{port: port, timeout: t.opts.WriteTimeout, open: true}, nil
}

func parseParity(s string) serial.Parity {
	switch strings.ToLower(s) {
	case "even":
		return serial.EvenParity
	case "odd":
		return serial.OddParity
	default:
		return serial.NoParity
	}
}

func parseStopBits(n int) serial.StopBits {
	if n == 2 {
		return serial.TwoStopBits
	}
	return serial.OneStopBit
}

type serialConnection struct {
	port    serial.Port
	timeout time.Duration

	mu   sync.Mutex
	open bool
}

func (c *serialConnection) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for len(data) > 0 {
		n, err := c.port.Write(data)
		if err != nil {
			return fmt.Errorf("serial write: %w", err)
		}
		data = data[n:]
	}
	return nil
}

func (c *serialConnection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *serialConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil
	}
	c.open = false
	if err := c.port.Close(); err != nil {
		return fmt.Errorf("close serial port: %w", err)
	}
	return nil
}
