package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"printer-service/internal/model"
)

// USBOptions pins the transport to a specific vendor and product when
// set; zero values allow any device of the printer class.
type USBOptions struct {
	VendorID  uint16
	ProductID uint16
}

// USBTransport reaches printers wired over USB. Devices are identified
// by their vid:pid pair, which doubles as the stored printer address.
type USBTransport struct {
	opts   USBOptions
	logger *zap.Logger

	mu  sync.Mutex
	ctx *gousb.Context
}

func NewUSB(opts USBOptions, logger *zap.Logger) *USBTransport {
	return &USBTransport{opts: opts, logger: logger}
}

func (t *USBTransport) Kind() model.TransportKind {
	return model.TransportUSB
}

func (t *USBTransport) context() *gousb.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx == nil {
		t.ctx = gousb.NewContext()
	}
	return t.ctx
}

func (t *USBTransport) Supported() bool {
	return true
}

// Shutdown releases the libusb context. Open connections must be
// closed first.
func (t *USBTransport) Shutdown() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx == nil {
		return nil
	}
	err := t.ctx.Close()
	t.ctx = nil
	return err
}

func isPrinterDesc(desc *gousb.DeviceDesc) bool {
	if desc.Class == gousb.ClassPrinter {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}
	return false
}

func (t *USBTransport) Scan(ctx context.Context) ([]Discovered, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	devs, err := t.context().OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if t.opts.VendorID != 0 && uint16(desc.Vendor) != t.opts.VendorID {
			return false
		}
		if t.opts.ProductID != 0 && uint16(desc.Product) != t.opts.ProductID {
			return false
		}
		return isPrinterDesc(desc)
	})

	// Devices are opened briefly to read their product string, then
	// released; nothing stays claimed after the scan.
	found := make([]Discovered, 0, len(devs))
	for _, d := range devs {
		id := fmt.Sprintf("%s:%s", d.Desc.Vendor, d.Desc.Product)
		productModel := ""
		if p, perr := d.Product(); perr == nil {
			productModel = p
		}
		found = append(found, Discovered{
			ID:        id,
			Name:      fmt.Sprintf("USB Printer %s", id),
			Model:     productModel,
			Transport: model.TransportUSB,
			Address:   id,
		})
		d.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("usb scan: %w", err)
	}
	t.logger.Info("usb scan finished", zap.Int("devices", len(found)))
	return found, nil
}

func (t *USBTransport) Connect(ctx context.Context, printer *model.Printer, _ DropHandler) (Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var vid, pid gousb.ID
	if _, err := fmt.Sscanf(printer.Address, "%04x:%04x", &vid, &pid); err != nil {
		return nil, fmt.Errorf("invalid usb address %q: %w", printer.Address, err)
	}

	dev, err := t.context().OpenDeviceWithVIDPID(vid, pid)
	if err != nil {
		return nil, fmt.Errorf("open usb device %s: %w", printer.Address, err)
	}
	if dev == nil {
		return nil, fmt.Errorf("usb device %s not found", printer.Address)
	}
	if err := dev.SetAutoDetach(true); err != nil {
		t.logger.Debug("auto detach", zap.Error(err))
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("claim usb interface: %w", err)
	}

	var out *gousb.OutEndpoint
	for _, ep := range intf.Setting.Endpoints {
		if ep.Direction == gousb.EndpointDirectionOut {
			out, err = intf.OutEndpoint(ep.Number)
			break
		}
	}
	if err != nil || out == nil {
		done()
		dev.Close()
		if err == nil {
			err = fmt.Errorf("usb device %s has no output endpoint", printer.Address)
		}
		return nil, err
	}

	t.logger.Info("usb printer connected", zap.String("device", printer.Address))
	return &usbConnection{dev: dev, release: done, out: out, open: true}, nil
}

type usbConnection struct {
	dev     *gousb.Device
	release func()
	out     *gousb.OutEndpoint

	mu   sync.Mutex
	open bool
}

func (c *usbConnection) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrClosed
	}
	if _, err := c.out.WriteContext(ctx, data); err != nil {
		return fmt.Errorf("usb write: %w", err)
	}
	return nil
}

func (c *usbConnection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *usbConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil
	}
	c.open = false
	c.release()
	if err := c.dev.Close(); err != nil {
		return fmt.Errorf("close usb device: %w", err)
	}
	return nil
}
