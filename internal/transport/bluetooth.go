package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"printer-service/internal/model"
)

// writerUUIDSuffixes are the characteristic UUIDs thermal printers
// commonly expose for raw data. FF02 and AE01 cover the generic
// Chinese BLE printer boards, 2AF1 is the standard BLE print service.
var writerUUIDSuffixes = []string{"ff02", "ae01", "ae03", "2af1"}

// BluetoothOptions tunes scanning and connection behavior.
type BluetoothOptions struct {
	ConnectTimeout time.Duration
}

// BluetoothTransport drives BLE printers through the host adapter.
// The adapter is enabled lazily on first use so hosts without
// Bluetooth can still run the service for serial and USB printers.
type BluetoothTransport struct {
	adapter *bluetooth.Adapter
	opts    BluetoothOptions
	logger  *zap.Logger

	mu        sync.Mutex
	enabled   bool
	enableErr error
	drops     map[string]DropHandler
}

// NewBluetooth returns a BLE transport over the default host adapter.
func NewBluetooth(opts BluetoothOptions, logger *zap.Logger) *BluetoothTransport {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 15 * time.Second
	}
	return &BluetoothTransport{
		adapter: bluetooth.DefaultAdapter,
		opts:    opts,
		logger:  logger,
		drops:   make(map[string]DropHandler),
	}
}

func (t *BluetoothTransport) Kind() model.TransportKind {
	return model.TransportBluetooth
}

// ensureEnabled brings the adapter up once. A failed enable is cached;
// BlueZ does not recover without operator action so retrying every
// call only spams the log.
func (t *BluetoothTransport) ensureEnabled() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled {
		return nil
	}
	if t.enableErr != nil {
		return t.enableErr
	}
	if err := t.adapter.Enable(); err != nil {
		t.enableErr = fmt.Errorf("%w: %v", ErrUnsupported, err)
		t.logger.Warn("bluetooth adapter unavailable", zap.Error(err))
		return t.enableErr
	}
	t.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		addr := device.Address.String()
		t.mu.Lock()
		drop := t.drops[addr]
		delete(t.drops, addr)
		t.mu.Unlock()
		if drop != nil {
			drop("peer disconnected")
		}
	})
	t.enabled = true
	return nil
}

func (t *BluetoothTransport) Supported() bool {
	return t.ensureEnabled() == nil
}

// Scan collects advertising devices until ctx is done. Devices are
// deduplicated by address; the strongest observed RSSI wins.
func (t *BluetoothTransport) Scan(ctx context.Context) ([]Discovered, error) {
	if err := t.ensureEnabled(); err != nil {
		return nil, err
	}

	results := make(chan Discovered, 32)
	scanDone := make(chan error, 1)

	go func() {
		scanDone <- t.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
			name := r.LocalName()
			if name == "" {
				name = model.UnknownDeviceName
			}
			addr := r.Address.String()
			select {
			case results <- Discovered{
				ID:        addr,
				Name:      name,
				Transport: model.TransportBluetooth,
				Address:   addr,
				RSSI:      int(r.RSSI),
			}:
			default:
				// A full buffer just drops a duplicate advertisement.
			}
		})
	}()

	seen := make(map[string]int)
	var found []Discovered
	for {
		select {
		case d := <-results:
			if i, ok := seen[d.ID]; ok {
				if d.RSSI > found[i].RSSI {
					found[i].RSSI = d.RSSI
				}
				if found[i].Name == model.UnknownDeviceName && d.Name != model.UnknownDeviceName {
					found[i].Name = d.Name
				}
				continue
			}
			seen[d.ID] = len(found)
			found = append(found, d)
		case <-ctx.Done():
			if err := t.adapter.StopScan(); err != nil {
				t.logger.Debug("stop scan", zap.Error(err))
			}
			<-scanDone
			t.logger.Info("bluetooth scan finished", zap.Int("devices", len(found)))
			return found, nil
		case err := <-scanDone:
			if err != nil {
				return nil, fmt.Errorf("bluetooth scan: %w", err)
			}
			return found, nil
		}
	}
}

// Connect dials the printer, discovers its GATT services and picks the
// first writable print characteristic.
func (t *BluetoothTransport) Connect(ctx context.Context, printer *model.Printer, onDrop DropHandler) (Connection, error) {
	if err := t.ensureEnabled(); err != nil {
		return nil, err
	}

	mac, err := bluetooth.ParseMAC(printer.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid bluetooth address %q: %w", printer.Address, err)
	}
	addr := bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}}

	timeout := t.opts.ConnectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remain := time.Until(deadline); remain < timeout {
			timeout = remain
		}
	}

	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	done := make(chan connectResult, 1)
	go func() {
		dev, err := t.adapter.Connect(addr, bluetooth.ConnectionParams{
			ConnectionTimeout: bluetooth.NewDuration(timeout),
		})
		done <- connectResult{device: dev, err: err}
	}()

	var device bluetooth.Device
	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("connect %s: %w", printer.Address, res.err)
		}
		device = res.device
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	writer, err := findWriter(device)
	if err != nil {
		if derr := device.Disconnect(); derr != nil {
			t.logger.Debug("disconnect after failed discovery", zap.Error(derr))
		}
		return nil, err
	}

	key := addr.String()
	t.mu.Lock()
	t.drops[key] = onDrop
	t.mu.Unlock()

	t.logger.Info("bluetooth printer connected",
		zap.String("address", printer.Address),
		zap.String("characteristic", writer.UUID().String()))

	return &bleConnection{transport: t, device: device, writer: writer, addr: key, open: true}, nil
}

func findWriter(device bluetooth.Device) (bluetooth.DeviceCharacteristic, error) {
	var zero bluetooth.DeviceCharacteristic
	services, err := device.DiscoverServices(nil)
	if err != nil {
		return zero, fmt.Errorf("discover services: %w", err)
	}
	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			continue
		}
		for _, c := range chars {
			if isWriterUUID(c.UUID().String()) {
				return c, nil
			}
		}
	}
	return zero, ErrNoWritableCharacteristic
}

func isWriterUUID(uuid string) bool {
	u := strings.ToLower(uuid)
	for _, suffix := range writerUUIDSuffixes {
		// Short UUIDs sit in bytes 5..8 of the canonical base form.
		if strings.HasPrefix(u, "0000"+suffix) || strings.HasSuffix(u, suffix) {
			return true
		}
	}
	return false
}

type bleConnection struct {
	transport *BluetoothTransport
	device    bluetooth.Device
	writer    bluetooth.DeviceCharacteristic
	addr      string

	mu   sync.Mutex
	open bool
}

func (c *bleConnection) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.writer.WriteWithoutResponse(data); err != nil {
		return fmt.Errorf("ble write: %w", err)
	}
	return nil
}

func (c *bleConnection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *bleConnection) Close() error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return nil
	}
	c.open = false
	c.mu.Unlock()

	t := c.transport
	t.mu.Lock()
	delete(t.drops, c.addr)
	t.mu.Unlock()

	if err := c.device.Disconnect(); err != nil {
		return fmt.Errorf("ble disconnect: %w", err)
	}
	return nil
}
