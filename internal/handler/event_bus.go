// internal/handler/event_bus.go
package handler

import (
	"sync"
	"time"

	"printer-service/internal/model"
)

// Event represents an internal event
type Event struct {
	Type      string      `json:"type"`
	PrinterID string      `json:"printer_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// EventBus provides pub/sub messaging between service and handler layers
type EventBus struct {
	subscribers map[string][]chan Event
	events      chan Event
	mutex       sync.RWMutex
	done        chan struct{}
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan Event),
		events:      make(chan Event, 1000),
		done:        make(chan struct{}),
	}
}

// Start starts the event bus processing loop
func (eb *EventBus) Start() {
	for {
		select {
		case event := <-eb.events:
			eb.distributeEvent(event)
		case <-eb.done:
			return
		}
	}
}

// Stop stops the event bus
func (eb *EventBus) Stop() {
	close(eb.done)
}

// Publish publishes an event without blocking the caller
func (eb *EventBus) Publish(event Event) {
	event.Timestamp = time.Now()

	select {
	case eb.events <- event:
	default:
		// Bus full, drop the event
	}
}

// Subscribe subscribes to events of a specific type
func (eb *EventBus) Subscribe(eventType string) <-chan Event {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	ch := make(chan Event, 100)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// distributeEvent distributes an event to all subscribers
func (eb *EventBus) distributeEvent(event Event) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for _, ch := range eb.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
			// Subscriber slow, drop the event
		}
	}

	for _, ch := range eb.subscribers["*"] {
		select {
		case ch <- event:
		default:
		}
	}
}

// PrinterEventHandler forwards printer state changes to WebSocket clients
type PrinterEventHandler struct {
	websocketHandler *WebSocketHandler
}

// NewPrinterEventHandler creates a new printer event handler
func NewPrinterEventHandler(websocketHandler *WebSocketHandler) *PrinterEventHandler {
	return &PrinterEventHandler{
		websocketHandler: websocketHandler,
	}
}

// OnPrinterConnected handles printer connected events
func (h *PrinterEventHandler) OnPrinterConnected(printer model.Printer) {
	h.websocketHandler.BroadcastPrinterEvent(printer.ID, "printer_connected", map[string]interface{}{
		"printer": printer,
	})
}

// OnPrinterDisconnected handles printer disconnected events
func (h *PrinterEventHandler) OnPrinterDisconnected(printer model.Printer, reason string) {
	h.websocketHandler.BroadcastPrinterEvent(printer.ID, "printer_disconnected", map[string]interface{}{
		"printer": printer,
		"reason":  reason,
	})
}

// OnPrintCompleted handles print job completion events
func (h *PrinterEventHandler) OnPrintCompleted(printerID, jobID string) {
	h.websocketHandler.BroadcastPrinterEvent(printerID, "print_completed", map[string]interface{}{
		"job_id": jobID,
	})
}

// OnPrintFailed handles print job failure events
func (h *PrinterEventHandler) OnPrintFailed(printerID, jobID string, err error) {
	h.websocketHandler.BroadcastPrinterEvent(printerID, "print_failed", map[string]interface{}{
		"job_id": jobID,
		"error":  err.Error(),
	})
}
