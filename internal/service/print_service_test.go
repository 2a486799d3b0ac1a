package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"printer-service/internal/model"
	"printer-service/internal/transport"
)

func connectedPrintService(t *testing.T) (*PrintService, *ConnectionService, *fakeTransport, *memoryRepo) {
	t.Helper()
	ft := newFakeTransport(model.TransportBluetooth)
	ft.found = []transport.Discovered{bleDiscovery("AA:11", "PT-210")}
	conns, repo := newConnService(t, ft)
	conns.Scan(context.Background(), model.TransportBluetooth)
	if err := conns.Connect(context.Background(), "AA:11"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	ps := NewPrintService(testConfig(), conns, repo, testServiceLogger())
	return ps, conns, ft, repo
}

func (t *fakeTransport) conn(id string) *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[id]
}

func TestSendChunksPayload(t *testing.T) {
	ps, _, ft, _ := connectedPrintService(t)

	payload := make([]byte, 53)
	for i := range payload {
		payload[i] = byte(i)
	}
	if err := ps.Send(context.Background(), "AA:11", "job-1", payload); err != nil {
		t.Fatalf("send: %v", err)
	}

	conn := ft.conn("AA:11")
	if got := len(conn.writes); got != 3 {
		t.Fatalf("chunk count = %d, want 3", got)
	}
	var total []byte
	for i, w := range conn.writes {
		if len(w) > 20 {
			t.Errorf("chunk %d size %d exceeds 20", i, len(w))
		}
		total = append(total, w...)
	}
	if len(total) != len(payload) {
		t.Errorf("reassembled %d bytes, want %d", len(total), len(payload))
	}
	for i := range total {
		if total[i] != payload[i] {
			t.Fatalf("payload corrupted at byte %d", i)
		}
	}
}

func TestSendNotConnected(t *testing.T) {
	ps, conns, _, _ := connectedPrintService(t)
	conns.Disconnect(context.Background(), "AA:11")

	err := ps.Send(context.Background(), "AA:11", "job-1", []byte("x"))
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("got %v, want ErrNotConnected", err)
	}
}

func TestSendRetriesExactBudget(t *testing.T) {
	ps, _, ft, _ := connectedPrintService(t)
	conn := ft.conn("AA:11")
	conn.mu.Lock()
	conn.failures = 100
	conn.failErr = errors.New("garbled write")
	conn.mu.Unlock()

	err := ps.Send(context.Background(), "AA:11", "job-1", []byte("payload"))
	if err == nil {
		t.Fatal("send succeeded with failing connection")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("error does not report attempt budget: %v", err)
	}
	conn.mu.Lock()
	consumed := 100 - conn.failures
	conn.mu.Unlock()
	if consumed != 3 {
		t.Errorf("write attempts = %d, want exactly 3", consumed)
	}
}

func TestSendRecoversOnRetry(t *testing.T) {
	ps, _, ft, _ := connectedPrintService(t)
	conn := ft.conn("AA:11")
	conn.mu.Lock()
	conn.failures = 1
	conn.failErr = errors.New("transient")
	conn.mu.Unlock()

	if err := ps.Send(context.Background(), "AA:11", "job-1", []byte("ok")); err != nil {
		t.Fatalf("send did not recover: %v", err)
	}
	if conn.attempts() != 1 {
		t.Errorf("successful writes = %d, want 1", conn.attempts())
	}
}

func TestSendClosedLinkTearsDown(t *testing.T) {
	ps, conns, ft, _ := connectedPrintService(t)
	listener := &recordingListener{}
	conns.SetListener(listener)

	ft.conn("AA:11").Close()

	err := ps.Send(context.Background(), "AA:11", "job-1", []byte("x"))
	if err == nil {
		t.Fatal("send on closed link succeeded")
	}
	p, _ := conns.Get("AA:11")
	if p.IsConnected() {
		t.Error("printer still marked connected after closed-link send")
	}
}

func TestPrintToDefaultWithNoPrinter(t *testing.T) {
	ft := newFakeTransport(model.TransportBluetooth)
	conns, repo := newConnService(t, ft)
	ps := NewPrintService(testConfig(), conns, repo, testServiceLogger())

	_, err := ps.PrintReceipt(context.Background(), "", &model.ReceiptDocument{})
	if !errors.Is(err, ErrNoPrinter) {
		t.Errorf("got %v, want ErrNoPrinter", err)
	}
}

func TestPrintReceiptAllocatesNumber(t *testing.T) {
	ps, _, _, repo := connectedPrintService(t)

	doc := &model.ReceiptDocument{
		Company:  model.CompanyInfo{Name: "Soda"},
		Currency: "CRC",
		Subtotal: decimal.NewFromInt(1000),
		Total:    decimal.NewFromInt(1100),
	}
	res, err := ps.PrintReceipt(context.Background(), "", doc)
	if err != nil {
		t.Fatalf("print receipt: %v", err)
	}
	if res.ReceiptNumber != 1 {
		t.Errorf("first receipt number = %d, want 1", res.ReceiptNumber)
	}
	if res.JobID == "" || res.PayloadBytes == 0 {
		t.Errorf("incomplete result: %+v", res)
	}

	res2, _ := ps.PrintReceipt(context.Background(), "", &model.ReceiptDocument{
		Company: model.CompanyInfo{Name: "Soda"},
	})
	if res2.ReceiptNumber != 2 {
		t.Errorf("second receipt number = %d, want 2", res2.ReceiptNumber)
	}

	if peek, _ := repo.PeekReceiptNumber(context.Background()); peek != 3 {
		t.Errorf("counter out of sync: peek = %d", peek)
	}
}

func TestPreviewDoesNotConsumeNumber(t *testing.T) {
	ps, _, _, repo := connectedPrintService(t)

	preview, err := ps.PreviewReceipt(context.Background(), &model.ReceiptDocument{
		Company: model.CompanyInfo{Name: "Soda"},
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !strings.Contains(preview, "Recibo: 000001") {
		t.Errorf("preview shows wrong number:\n%s", preview)
	}
	if n, _ := repo.NextReceiptNumber(context.Background()); n != 1 {
		t.Errorf("preview consumed a receipt number: next = %d", n)
	}
}

func TestPrintCompletionEvents(t *testing.T) {
	ps, conns, ft, _ := connectedPrintService(t)
	listener := &recordingListener{}
	conns.SetListener(listener)

	res, err := ps.PrintReceipt(context.Background(), "AA:11", &model.ReceiptDocument{
		Company: model.CompanyInfo{Name: "Soda"},
	})
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	listener.mu.Lock()
	completed := append([]string(nil), listener.completed...)
	listener.mu.Unlock()
	if len(completed) != 1 || completed[0] != res.JobID {
		t.Errorf("completion event missing: %v", completed)
	}

	ft.conn("AA:11").Close()
	if _, err := ps.PrintReceipt(context.Background(), "AA:11", &model.ReceiptDocument{
		Company: model.CompanyInfo{Name: "Soda"},
	}); err == nil {
		t.Fatal("print on closed link succeeded")
	}
	listener.mu.Lock()
	failed := len(listener.failed)
	listener.mu.Unlock()
	if failed != 1 {
		t.Errorf("failure events = %d, want 1", failed)
	}
}

func TestPrintClosureAppliesConfiguredRate(t *testing.T) {
	ps, _, _, _ := connectedPrintService(t)

	doc := &model.ClosureDocument{
		Company:     model.CompanyInfo{Name: "Soda"},
		Date:        time.Date(2026, 8, 28, 22, 0, 0, 0, time.UTC),
		OpeningCash: decimal.NewFromInt(5000),
		ClosingCash: decimal.NewFromInt(5000),
		Orders: []model.ClosureOrder{
			{Number: 1, Currency: "USD", Method: model.PaymentCash, Total: decimal.NewFromInt(10)},
		},
	}
	preview := ps.PreviewClosure(context.Background(), doc, false)
	if !strings.Contains(preview, "Tipo cambio") || !strings.Contains(preview, "520") {
		t.Errorf("configured exchange rate not shown:\n%s", preview)
	}
	if doc.ExchangeRate.IsZero() {
		t.Error("exchange rate default not applied to document")
	}
	if doc.GeneratedAt.IsZero() {
		t.Error("generation timestamp not stamped")
	}
}

func TestSendSerializedPerPrinter(t *testing.T) {
	ps, _, ft, _ := connectedPrintService(t)

	done := make(chan error, 2)
	payload := make([]byte, 40)
	go func() { done <- ps.Send(context.Background(), "AA:11", "job-a", payload) }()
	go func() { done <- ps.Send(context.Background(), "AA:11", "job-b", payload) }()
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent send: %v", err)
		}
	}

	// Chunks of the two jobs must not interleave: writes come in two
	// uninterrupted runs of two chunks each.
	conn := ft.conn("AA:11")
	if len(conn.writes) != 4 {
		t.Fatalf("writes = %d, want 4", len(conn.writes))
	}
	if len(conn.writes[0]) != 20 || len(conn.writes[1]) != 20 {
		t.Errorf("first job chunks wrong: %d, %d", len(conn.writes[0]), len(conn.writes[1]))
	}
}
