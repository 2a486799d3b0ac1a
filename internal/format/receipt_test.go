package format

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"printer-service/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func baseReceipt() *model.ReceiptDocument {
	return &model.ReceiptDocument{
		Company: model.CompanyInfo{
			Name:  "Soda La Esquina",
			Phone: "2222-3333",
		},
		ReceiptNumber: 42,
		Table:         "5",
		Timestamp:     time.Date(2026, 8, 29, 13, 45, 0, 0, time.UTC),
		Currency:      "CRC",
		Items: []model.ReceiptItem{
			{Name: "Casado con pollo", Quantity: 2, UnitPrice: dec("4000"), Subtotal: dec("8000")},
			{Name: "Refresco natural", Quantity: 2, UnitPrice: dec("1000"), Subtotal: dec("2000")},
		},
		Subtotal:      dec("10000"),
		ServiceCharge: dec("1000"),
		Total:         dec("11000"),
		Payment: &model.Payment{
			Method:   model.PaymentCash,
			Currency: "CRC",
			Amount:   dec("11000"),
			Received: dec("15000"),
			Change:   dec("4000"),
		},
	}
}

func previewLines(t *testing.T, doc *model.ReceiptDocument) []string {
	t.Helper()
	return strings.Split(ReceiptPreview(doc, model.DefaultSettings()), "\n")
}

func lineIndex(lines []string, substr string) int {
	for i, l := range lines {
		if strings.Contains(l, substr) {
			return i
		}
	}
	return -1
}

func TestReceiptServiceChargeOrder(t *testing.T) {
	lines := previewLines(t, baseReceipt())

	sub := lineIndex(lines, "Subtotal")
	srv := lineIndex(lines, "Servicio")
	tot := lineIndex(lines, "TOTAL")
	if sub < 0 || srv < 0 || tot < 0 {
		t.Fatalf("missing totals lines: %v", lines)
	}
	if !(sub < srv && srv < tot) {
		t.Errorf("totals out of order: subtotal=%d servicio=%d total=%d", sub, srv, tot)
	}
	if !strings.Contains(lines[tot], "11000") {
		t.Errorf("total line wrong: %q", lines[tot])
	}
	if !strings.Contains(lines[srv], "1000") {
		t.Errorf("service line wrong: %q", lines[srv])
	}
}

func TestReceiptRemoveServiceDiscount(t *testing.T) {
	doc := baseReceipt()
	doc.Discount = &model.Discount{
		Kind:       model.DiscountRemoveService,
		Amount:     dec("1000"),
		Reason:     "Cliente frecuente",
		Authorizer: "Maria",
	}
	doc.ServiceCharge = decimal.Zero
	doc.Total = dec("10000")

	preview := ReceiptPreview(doc, model.DefaultSettings())
	lines := strings.Split(preview, "\n")

	waiver := lineIndex(lines, "SIN SERVICIO")
	if waiver < 0 {
		t.Fatalf("waiver line missing:\n%s", preview)
	}
	if !strings.Contains(lines[waiver], "-") || !strings.Contains(lines[waiver], "1000") {
		t.Errorf("waiver shows no negative amount: %q", lines[waiver])
	}
	srv := lineIndex(lines, "Servicio ")
	if srv < 0 {
		t.Fatalf("waived service charge not shown:\n%s", preview)
	}
	if srv != waiver-1 {
		t.Errorf("waiver line not directly under service line: servicio=%d waiver=%d", srv, waiver)
	}
	if !strings.Contains(lines[srv], "1000") || strings.Contains(lines[srv], "-") {
		t.Errorf("service line should show the original positive charge: %q", lines[srv])
	}
	tot := lineIndex(lines, "TOTAL")
	if tot < 0 || !strings.Contains(lines[tot], "10000") {
		t.Errorf("total after waiver wrong: %v", lines[tot])
	}
	if lineIndex(lines, "Motivo: Cliente frecuente") < 0 {
		t.Errorf("discount reason missing:\n%s", preview)
	}
	if lineIndex(lines, "Autoriza: Maria") < 0 {
		t.Errorf("authorizer missing:\n%s", preview)
	}
}

func TestReceiptPercentageDiscount(t *testing.T) {
	doc := baseReceipt()
	doc.Discount = &model.Discount{
		Kind:       model.DiscountPercentage,
		Percentage: dec("10"),
		Amount:     dec("1100"),
	}
	doc.Total = dec("9900")

	lines := previewLines(t, doc)
	idx := lineIndex(lines, "Descuento (10%)")
	if idx < 0 {
		t.Fatalf("discount line missing: %v", lines)
	}
	if !strings.Contains(lines[idx], "-") {
		t.Errorf("discount not negative: %q", lines[idx])
	}
}

func TestReceiptSplitConsolidated(t *testing.T) {
	doc := baseReceipt()
	doc.Payment = nil
	doc.Splits = []model.SplitPart{
		{Method: model.PaymentCash, Amount: dec("5500")},
		{Method: model.PaymentCard, Amount: dec("5500")},
	}

	preview := ReceiptPreview(doc, model.DefaultSettings())
	if n := strings.Count(preview, "CUENTA DIVIDIDA"); n != 1 {
		t.Errorf("banner printed %d times", n)
	}
	if strings.Count(preview, "Parte 1/2") != 1 || strings.Count(preview, "Parte 2/2") != 1 {
		t.Errorf("split stanzas missing:\n%s", preview)
	}
	if !strings.Contains(preview, string(model.PaymentCash)) ||
		!strings.Contains(preview, string(model.PaymentCard)) {
		t.Errorf("split methods missing:\n%s", preview)
	}
}

func TestReceiptLinesRespectPaperWidth(t *testing.T) {
	doc := baseReceipt()
	doc.Items = append(doc.Items, model.ReceiptItem{
		Name:      "Un nombre de producto larguisimo que jamas cabria en el papel",
		Quantity:  1,
		UnitPrice: dec("500"),
		Subtotal:  dec("500"),
		Notes:     "sin cebolla, sin culantro, extra de todo lo demas",
	})
	settings := model.DefaultSettings()

	for _, line := range strings.Split(ReceiptPreview(doc, settings), "\n") {
		if n := len([]rune(line)); n > settings.PaperWidth {
			t.Errorf("line exceeds %d chars (%d): %q", settings.PaperWidth, n, line)
		}
	}
}

func TestReceiptDeterministic(t *testing.T) {
	doc := baseReceipt()
	s := model.DefaultSettings()
	a := Receipt(doc, s)
	b := Receipt(doc, s)
	if string(a) != string(b) {
		t.Error("same document produced different payloads")
	}
}

func TestReceiptCashChange(t *testing.T) {
	lines := previewLines(t, baseReceipt())
	if lineIndex(lines, "Recibido") < 0 {
		t.Error("received amount missing")
	}
	idx := lineIndex(lines, "Cambio")
	if idx < 0 || !strings.Contains(lines[idx], "4000") {
		t.Errorf("change line wrong: %v", lines)
	}
}

func TestReceiptNoItems(t *testing.T) {
	doc := baseReceipt()
	doc.Items = nil
	// Must not panic and still render the totals block.
	preview := ReceiptPreview(doc, model.DefaultSettings())
	if !strings.Contains(preview, "TOTAL") {
		t.Errorf("totals missing:\n%s", preview)
	}
}
