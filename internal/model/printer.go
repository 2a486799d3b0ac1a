package model

import "time"

// TransportKind identifies the physical link used to reach a printer.
type TransportKind string

const (
	TransportBluetooth TransportKind = "BLUETOOTH"
	TransportSerial    TransportKind = "SERIAL"
	TransportUSB       TransportKind = "USB"
)

// PrinterState is the lifecycle state of a printer connection.
type PrinterState string

const (
	StateDiscovered    PrinterState = "DISCOVERED"
	StateConnecting    PrinterState = "CONNECTING"
	StateConnected     PrinterState = "CONNECTED"
	StateDisconnecting PrinterState = "DISCONNECTING"
	StateDisconnected  PrinterState = "DISCONNECTED"
)

// UnknownDeviceName is the placeholder used for devices that advertise no name.
const UnknownDeviceName = "Unknown Device"

// Printer describes a discovered or remembered receipt printer.
//
// ID is the transport-level identity of the device: the MAC address for
// Bluetooth printers, the port path for serial printers and the vid:pid
// pair for USB printers. Address is what the transport dials; for most
// devices it equals ID.
type Printer struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Model     string        `json:"model,omitempty"`
	Transport TransportKind `json:"transport"`
	Address   string        `json:"address"`
	RSSI      int           `json:"rssi,omitempty"`
	Connected bool          `json:"connected"`
	State     PrinterState  `json:"state"`
	LastSeen  time.Time     `json:"last_seen"`
}

// IsConnected reports whether the printer is usable for printing.
func (p *Printer) IsConnected() bool {
	return p.Connected && p.State == StateConnected
}

// Identity returns a copy holding only the fields that survive restarts.
// A remembered printer always comes back disconnected.
func (p *Printer) Identity() Printer {
	return Printer{
		ID:        p.ID,
		Name:      p.Name,
		Model:     p.Model,
		Transport: p.Transport,
		Address:   p.Address,
		Connected: false,
		State:     StateDisconnected,
		LastSeen:  p.LastSeen,
	}
}
