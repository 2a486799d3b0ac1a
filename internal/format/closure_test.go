package format

import (
	"strings"
	"testing"
	"time"

	"printer-service/internal/model"
)

func baseClosure() *model.ClosureDocument {
	return &model.ClosureDocument{
		Company:      model.CompanyInfo{Name: "Soda La Esquina"},
		Date:         time.Date(2026, 8, 28, 22, 0, 0, 0, time.UTC),
		OpeningCash:  dec("5000"),
		ClosingCash:  dec("7500"),
		ExchangeRate: dec("520"),
		Orders: []model.ClosureOrder{
			{Number: 1, Currency: "CRC", Method: model.PaymentCash, Total: dec("3000"),
				Timestamp: time.Date(2026, 8, 28, 12, 10, 0, 0, time.UTC)},
			{Number: 2, Currency: "CRC", Method: model.PaymentCard, Total: dec("8000"),
				Timestamp: time.Date(2026, 8, 28, 13, 25, 0, 0, time.UTC)},
		},
	}
}

func closureLines(t *testing.T, doc *model.ClosureDocument) []string {
	t.Helper()
	return strings.Split(ClosurePreview(doc, model.DefaultSettings(), false), "\n")
}

func TestClosureSectionOrder(t *testing.T) {
	lines := closureLines(t, baseClosure())

	title := lineIndex(lines, "CIERRE DE CAJA")
	company := lineIndex(lines, "Soda La Esquina")
	summary := lineIndex(lines, "RESUMEN EJECUTIVO")
	cash := lineIndex(lines, "ESTADO DE CAJA")
	sales := lineIndex(lines, "DESGLOSE DE VENTAS")
	if title < 0 || company < 0 || summary < 0 || cash < 0 || sales < 0 {
		t.Fatalf("section headings missing: %v", lines)
	}
	if !(title < company && company < summary && summary < cash && cash < sales) {
		t.Errorf("sections out of order: title=%d company=%d summary=%d cash=%d sales=%d",
			title, company, summary, cash, sales)
	}
}

func TestClosureShortageLabeled(t *testing.T) {
	// Opening 5000, cash sales 3000: expected 8000 against 7500 counted.
	lines := closureLines(t, baseClosure())

	exp := lineIndex(lines, "Esperado")
	if exp < 0 || !strings.Contains(lines[exp], "8000") {
		t.Errorf("expected-cash line wrong: %v", lines)
	}
	diff := lineIndex(lines, "Faltante")
	if diff < 0 {
		t.Fatalf("shortage label missing: %v", lines)
	}
	if !strings.Contains(lines[diff], "500") {
		t.Errorf("shortage amount wrong: %q", lines[diff])
	}
	if lineIndex(lines, "Sobrante") >= 0 {
		t.Error("both labels printed")
	}
}

func TestClosureSurplusLabeled(t *testing.T) {
	doc := baseClosure()
	doc.ClosingCash = dec("8200")
	lines := closureLines(t, doc)

	diff := lineIndex(lines, "Sobrante")
	if diff < 0 {
		t.Fatalf("surplus label missing: %v", lines)
	}
	if !strings.Contains(lines[diff], "200") {
		t.Errorf("surplus amount wrong: %q", lines[diff])
	}
}

func TestClosureExactCashNamedSurplus(t *testing.T) {
	doc := baseClosure()
	doc.ClosingCash = dec("8000")
	lines := closureLines(t, doc)
	if lineIndex(lines, "Sobrante") < 0 {
		t.Error("zero difference must print as surplus of 0")
	}
}

func TestClosureNoOrders(t *testing.T) {
	doc := baseClosure()
	doc.Orders = nil
	doc.ClosingCash = dec("5000")
	lines := closureLines(t, doc)

	avg := lineIndex(lines, "Ticket promedio")
	if avg < 0 {
		t.Fatal("average line missing")
	}
	if !strings.Contains(lines[avg], "₡0") {
		t.Errorf("average with no orders must be 0: %q", lines[avg])
	}
	cnt := lineIndex(lines, "Ordenes")
	if cnt < 0 || !strings.HasSuffix(lines[cnt], "0") {
		t.Errorf("order count wrong: %q", lines[cnt])
	}
}

func TestClosureUSDSectionSuppressed(t *testing.T) {
	preview := ClosurePreview(baseClosure(), model.DefaultSettings(), false)
	if strings.Contains(preview, "USD") {
		t.Errorf("USD lines printed with no USD orders:\n%s", preview)
	}
}

func TestClosurePerCurrencyDrawers(t *testing.T) {
	doc := baseClosure()
	doc.Orders = append(doc.Orders, model.ClosureOrder{
		Number: 3, Currency: "USD", Method: model.PaymentCash, Total: dec("10"),
		Timestamp: time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC),
	})
	doc.ClosingCashUSD = dec("10")
	lines := closureLines(t, doc)

	if lineIndex(lines, "Ventas USD") < 0 {
		t.Error("USD sales line missing")
	}
	rate := lineIndex(lines, "Tipo cambio")
	if rate < 0 || !strings.Contains(lines[rate], "520") {
		t.Errorf("exchange rate line wrong: %v", lines)
	}
	// Dollars never fold into the colones drawer.
	exp := lineIndex(lines, "Esperado")
	if exp < 0 || !strings.Contains(lines[exp], "8000") {
		t.Errorf("CRC expected cash wrong: %v", lines[exp])
	}
	expUSD := lineIndex(lines, "Esperado USD")
	if expUSD < 0 || !strings.Contains(lines[expUSD], "$10") {
		t.Errorf("USD expected cash wrong: %v", lines)
	}
	if lineIndex(lines, "Sobrante USD") < 0 {
		t.Errorf("balanced USD drawer not labeled surplus: %v", lines)
	}
	if lineIndex(lines, "Faltante") < 0 {
		t.Errorf("CRC shortage lost when USD block prints: %v", lines)
	}
}

func TestClosureTopProducts(t *testing.T) {
	doc := baseClosure()
	doc.Orders = []model.ClosureOrder{
		{Number: 1, Currency: "CRC", Method: model.PaymentCash, Total: dec("9000"),
			Items: []model.ReceiptItem{
				{Name: "Casado", Quantity: 2, Subtotal: dec("8000")},
				{Name: "Cafe", Quantity: 1, Subtotal: dec("1000")},
			}},
		{Number: 2, Currency: "CRC", Method: model.PaymentCash, Total: dec("3000"),
			Items: []model.ReceiptItem{
				{Name: "Cafe", Quantity: 3, Subtotal: dec("3000")},
			}},
	}
	doc.ClosingCash = dec("17000")
	lines := closureLines(t, doc)

	top := lineIndex(lines, "TOP PRODUCTOS")
	if top < 0 {
		t.Fatal("top products section missing")
	}
	cafe := lineIndex(lines, "4x Cafe")
	casado := lineIndex(lines, "2x Casado")
	if cafe < 0 || casado < 0 {
		t.Fatalf("aggregated quantities wrong: %v", lines)
	}
	if cafe > casado {
		t.Error("products not ordered by quantity")
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[cafe]), "1.") {
		t.Errorf("top product not ranked first: %q", lines[cafe])
	}
}

func TestClosureExpensesGrouped(t *testing.T) {
	doc := baseClosure()
	doc.Expenses = []model.Expense{
		{Category: "Proveedores", Description: "Verduras", Currency: "CRC", Amount: dec("2000")},
		{Category: "Planilla", Description: "Extra sabado", Currency: "CRC", Amount: dec("5000")},
		{Category: "Proveedores", Description: "Pollo", Currency: "CRC", Amount: dec("3000")},
	}
	lines := closureLines(t, doc)

	prov := lineIndex(lines, "Proveedores")
	plan := lineIndex(lines, "Planilla")
	if prov < 0 || plan < 0 {
		t.Fatalf("categories missing: %v", lines)
	}
	if prov > plan {
		t.Error("categories not in first-seen order")
	}
	verduras := lineIndex(lines, "Verduras")
	pollo := lineIndex(lines, "Pollo")
	if verduras < prov || pollo < prov || (plan > prov && verduras > plan) {
		t.Errorf("expenses not grouped under category: prov=%d plan=%d verduras=%d pollo=%d",
			prov, plan, verduras, pollo)
	}
	total := lineIndex(lines, "Total gastos")
	if total < 0 || !strings.Contains(lines[total], "10000") {
		t.Errorf("expense total wrong: %v", lines[total])
	}
	// Expenses never enter the drawer reconciliation.
	exp := lineIndex(lines, "Esperado")
	if exp < 0 || !strings.Contains(lines[exp], "8000") {
		t.Errorf("expenses leaked into expected cash: %v", lines[exp])
	}
}

func TestClosureNetProfit(t *testing.T) {
	doc := baseClosure()
	doc.Expenses = []model.Expense{
		{Category: "Proveedores", Description: "Gas", Currency: "CRC", Amount: dec("1000")},
	}
	lines := closureLines(t, doc)
	// Sales 11000 minus expenses 1000.
	idx := lineIndex(lines, "Utilidad neta")
	if idx < 0 || !strings.Contains(lines[idx], "10000") {
		t.Errorf("net profit wrong: %v", lines[idx])
	}
}

func TestClosureSpanishDate(t *testing.T) {
	// 2026-08-28 is a Friday.
	lines := closureLines(t, baseClosure())
	if lineIndex(lines, "Viernes 28 de Agosto de 2026") < 0 {
		t.Errorf("localized date missing: %v", lines)
	}
}

func TestClosureGeneratedFooter(t *testing.T) {
	doc := baseClosure()
	doc.GeneratedAt = time.Date(2026, 8, 28, 22, 15, 0, 0, time.UTC)
	lines := closureLines(t, doc)
	if lineIndex(lines, "Generado: 28/08/2026 22:15") < 0 {
		t.Errorf("generation timestamp missing: %v", lines)
	}
}

func TestClosureOrderDetailOptional(t *testing.T) {
	doc := baseClosure()
	with := ClosurePreview(doc, model.DefaultSettings(), true)
	without := ClosurePreview(doc, model.DefaultSettings(), false)
	if !strings.Contains(with, "ORDENES DETALLADAS") {
		t.Error("detail section missing when requested")
	}
	if strings.Contains(without, "ORDENES DETALLADAS") {
		t.Error("detail section printed when not requested")
	}
	if !strings.Contains(with, "#1 12:10") {
		t.Errorf("order detail line missing:\n%s", with)
	}
}
