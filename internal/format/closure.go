package format

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"printer-service/internal/encoding"
	"printer-service/internal/escpos"
	"printer-service/internal/model"
)

var spanishDays = [...]string{
	"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado",
}

var spanishMonths = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// topProductLimit bounds the best-sellers section of the closure.
const topProductLimit = 5

// Closure renders the end-of-day cash reconciliation report.
// includeOrders appends the per-order detail section.
func Closure(doc *model.ClosureDocument, settings model.PrinterSettings, includeOrders bool) []byte {
	b := escpos.NewBuilder()
	writeClosure(b, doc, settings, includeOrders)
	return b.Bytes()
}

// ClosurePreview renders the report as plain text.
func ClosurePreview(doc *model.ClosureDocument, settings model.PrinterSettings, includeOrders bool) string {
	b := escpos.NewPreview()
	writeClosure(b, doc, settings, includeOrders)
	return b.String()
}

// closureTotals carries every aggregate the report prints. All figures
// derive from the orders and expenses exactly once, up front.
type closureTotals struct {
	orderCount  int
	salesCRC    decimal.Decimal
	salesUSD    decimal.Decimal
	byMethodCRC map[model.PaymentMethod]decimal.Decimal
	byMethodUSD map[model.PaymentMethod]decimal.Decimal
	cashCRC     decimal.Decimal
	cashUSD     decimal.Decimal
	expensesCRC decimal.Decimal
	expensesUSD decimal.Decimal
	averageCRC  decimal.Decimal
	netProfit   decimal.Decimal
}

func tally(doc *model.ClosureDocument) closureTotals {
	t := closureTotals{
		byMethodCRC: make(map[model.PaymentMethod]decimal.Decimal),
		byMethodUSD: make(map[model.PaymentMethod]decimal.Decimal),
	}
	t.orderCount = len(doc.Orders)

	for _, o := range doc.Orders {
		if o.Currency == "USD" {
			t.salesUSD = t.salesUSD.Add(o.Total)
			t.byMethodUSD[o.Method] = t.byMethodUSD[o.Method].Add(o.Total)
			if o.Method == model.PaymentCash {
				t.cashUSD = t.cashUSD.Add(o.Total)
			}
		} else {
			t.salesCRC = t.salesCRC.Add(o.Total)
			t.byMethodCRC[o.Method] = t.byMethodCRC[o.Method].Add(o.Total)
			if o.Method == model.PaymentCash {
				t.cashCRC = t.cashCRC.Add(o.Total)
			}
		}
	}

	for _, e := range doc.Expenses {
		if e.Currency == "USD" {
			t.expensesUSD = t.expensesUSD.Add(e.Amount)
		} else {
			t.expensesCRC = t.expensesCRC.Add(e.Amount)
		}
	}

	t.netProfit = t.salesCRC.Sub(t.expensesCRC)
	if t.orderCount > 0 {
		t.averageCRC = t.salesCRC.DivRound(decimal.NewFromInt(int64(t.orderCount)), 0)
	}
	return t
}

func writeClosure(b *escpos.Builder, doc *model.ClosureDocument, s model.PrinterSettings, includeOrders bool) {
	w := s.PaperWidth
	if w <= 0 {
		w = model.DefaultSettings().PaperWidth
	}
	t := tally(doc)

	b.Init().CodePage().Density(s.Density)

	b.AlignCenter().Bold(true).DoubleSize(true)
	b.Line("CIERRE DE CAJA")
	b.DoubleSize(false)
	b.Raw(encoding.Truncate(encoding.Sanitize(doc.Company.Name), w))
	b.Bold(false)
	b.Line(longSpanishDate(doc))
	b.AlignLeft()
	b.Divider(w, '=')

	writeExecutiveSummary(b, doc, t, w)
	writeCashState(b, doc, t, w)
	writeSalesBreakdown(b, t, w)
	writeTopProducts(b, doc.Orders, w)

	if len(doc.Expenses) > 0 {
		writeExpenses(b, doc.Expenses, t, w)
	}

	if includeOrders && len(doc.Orders) > 0 {
		writeOrderDetail(b, doc.Orders, w)
	}

	b.AlignCenter()
	b.Line("Generado: " + generatedAt(doc).Format("02/01/2006 15:04"))
	finishDocument(b, s)
}

func writeExecutiveSummary(b *escpos.Builder, doc *model.ClosureDocument, t closureTotals, w int) {
	b.Bold(true).Line("RESUMEN EJECUTIVO").Bold(false)
	b.Raw(encoding.TwoColumn("Ordenes", fmt.Sprintf("%d", t.orderCount), w))
	b.Raw(encoding.TwoColumn("Ventas CRC", encoding.Money(t.salesCRC, "CRC"), w))
	if !t.salesUSD.IsZero() {
		b.Raw(encoding.TwoColumn("Ventas USD", encoding.Money(t.salesUSD, "USD"), w))
		b.Raw(encoding.TwoColumn("Tipo cambio", doc.ExchangeRate.Round(0).StringFixed(0), w))
	}
	if len(doc.Expenses) > 0 {
		b.Raw(encoding.TwoColumn("Gastos CRC", encoding.Money(t.expensesCRC, "CRC"), w))
		if !t.expensesUSD.IsZero() {
			b.Raw(encoding.TwoColumn("Gastos USD", encoding.Money(t.expensesUSD, "USD"), w))
		}
	}
	b.Bold(true)
	b.Raw(encoding.TwoColumn("Utilidad neta", encoding.Money(t.netProfit, "CRC"), w))
	b.Bold(false)
	b.Raw(encoding.TwoColumn("Ticket promedio", encoding.Money(t.averageCRC, "CRC"), w))
	b.Divider(w, '-')
}

// writeCashState prints one reconciliation block per currency. The USD
// block appears only when some USD figure is in play.
func writeCashState(b *escpos.Builder, doc *model.ClosureDocument, t closureTotals, w int) {
	b.Bold(true).Line("ESTADO DE CAJA").Bold(false)

	writeDrawerBlock(b, "", "CRC", doc.OpeningCash, t.cashCRC, doc.ClosingCash, w)

	if !t.cashUSD.IsZero() || !doc.OpeningCashUSD.IsZero() || !doc.ClosingCashUSD.IsZero() {
		writeDrawerBlock(b, " USD", "USD", doc.OpeningCashUSD, t.cashUSD, doc.ClosingCashUSD, w)
	}
	b.Divider(w, '-')
}

func writeDrawerBlock(b *escpos.Builder, suffix, cur string, opening, cashSales, closing decimal.Decimal, w int) {
	expected := opening.Add(cashSales)
	diff := closing.Sub(expected)

	b.Raw(encoding.TwoColumn("Apertura"+suffix, encoding.Money(opening, cur), w))
	b.Raw(encoding.TwoColumn("Efectivo"+suffix, encoding.Money(cashSales, cur), w))
	b.Raw(encoding.TwoColumn("Esperado"+suffix, encoding.Money(expected, cur), w))
	b.Raw(encoding.TwoColumn("Contado"+suffix, encoding.Money(closing, cur), w))
	b.Bold(true)
	b.Raw(encoding.TwoColumn(differenceLabel(diff)+suffix, encoding.Money(diff.Abs(), cur), w))
	b.Bold(false)
}

// differenceLabel names the counted-versus-expected delta the way the
// cashier reads it: surplus or shortage, never a signed number.
func differenceLabel(diff decimal.Decimal) string {
	if diff.IsNegative() {
		return "Faltante"
	}
	return "Sobrante"
}

func writeSalesBreakdown(b *escpos.Builder, t closureTotals, w int) {
	b.Bold(true).Line("DESGLOSE DE VENTAS").Bold(false)
	writeMethodBreakdown(b, t.byMethodCRC, "CRC", w)
	if len(t.byMethodUSD) > 0 {
		writeMethodBreakdown(b, t.byMethodUSD, "USD", w)
	}
	b.Divider(w, '-')
	b.Raw(encoding.TwoColumn("Total CRC", encoding.Money(t.salesCRC, "CRC"), w))
	if !t.salesUSD.IsZero() {
		b.Raw(encoding.TwoColumn("Total USD", encoding.Money(t.salesUSD, "USD"), w))
	}
	b.Divider(w, '-')
}

func writeMethodBreakdown(b *escpos.Builder, byMethod map[model.PaymentMethod]decimal.Decimal, cur string, w int) {
	// Fixed order keeps the report deterministic.
	for _, m := range []model.PaymentMethod{model.PaymentCash, model.PaymentCard, model.PaymentTransfer} {
		amt, ok := byMethod[m]
		if !ok {
			continue
		}
		b.Raw(encoding.TwoColumn(fmt.Sprintf("%s %s", m, cur), encoding.Money(amt, cur), w))
	}
}

type productStat struct {
	name     string
	quantity int
	revenue  decimal.Decimal
}

func writeTopProducts(b *escpos.Builder, orders []model.ClosureOrder, w int) {
	stats := make(map[string]*productStat)
	var names []string
	for _, o := range orders {
		for _, it := range o.Items {
			key := encoding.Sanitize(it.Name)
			st, ok := stats[key]
			if !ok {
				st = &productStat{name: key}
				stats[key] = st
				names = append(names, key)
			}
			st.quantity += it.Quantity
			st.revenue = st.revenue.Add(it.Subtotal)
		}
	}
	if len(names) == 0 {
		return
	}
	sort.SliceStable(names, func(i, j int) bool {
		a, b := stats[names[i]], stats[names[j]]
		if a.quantity != b.quantity {
			return a.quantity > b.quantity
		}
		return a.revenue.GreaterThan(b.revenue)
	})
	if len(names) > topProductLimit {
		names = names[:topProductLimit]
	}

	b.Bold(true).Line("TOP PRODUCTOS").Bold(false)
	for rank, n := range names {
		st := stats[n]
		b.Raw(encoding.TwoColumn(
			fmt.Sprintf("%d. %dx %s", rank+1, st.quantity, st.name),
			encoding.Money(st.revenue, "CRC"), w))
	}
	b.Divider(w, '-')
}

func writeExpenses(b *escpos.Builder, expenses []model.Expense, t closureTotals, w int) {
	b.Bold(true).Line("GASTOS DEL DIA").Bold(false)

	// Group by category, preserving first-seen order.
	var categories []string
	grouped := make(map[string][]model.Expense)
	for _, e := range expenses {
		cat := e.Category
		if cat == "" {
			cat = "Otros"
		}
		if _, ok := grouped[cat]; !ok {
			categories = append(categories, cat)
		}
		grouped[cat] = append(grouped[cat], e)
	}

	for _, cat := range categories {
		b.Raw(encoding.Truncate(encoding.Sanitize(cat), w))
		subCRC := decimal.Zero
		subUSD := decimal.Zero
		for _, e := range grouped[cat] {
			b.Raw(encoding.TwoColumn(
				"  "+encoding.Sanitize(e.Description),
				encoding.Money(e.Amount, e.Currency), w))
			if e.Currency == "USD" {
				subUSD = subUSD.Add(e.Amount)
			} else {
				subCRC = subCRC.Add(e.Amount)
			}
		}
		if !subCRC.IsZero() {
			b.Raw(encoding.TwoColumn("  Subtotal", encoding.Money(subCRC, "CRC"), w))
		}
		if !subUSD.IsZero() {
			b.Raw(encoding.TwoColumn("  Subtotal", encoding.Money(subUSD, "USD"), w))
		}
	}
	b.Raw(encoding.TwoColumn("Total gastos", encoding.Money(t.expensesCRC, "CRC"), w))
	b.Divider(w, '-')
}

func writeOrderDetail(b *escpos.Builder, orders []model.ClosureOrder, w int) {
	b.Bold(true).Line("ORDENES DETALLADAS").Bold(false)
	for _, o := range orders {
		head := fmt.Sprintf("#%d", o.Number)
		if o.Table != "" {
			head += " Mesa " + o.Table
		}
		head += " " + o.Timestamp.Format("15:04")
		b.Raw(encoding.Truncate(head, w))
		for _, it := range o.Items {
			b.Raw(encoding.TwoColumn(
				fmt.Sprintf("  %dx %s", it.Quantity, encoding.Sanitize(it.Name)),
				encoding.Money(it.Subtotal, o.Currency), w))
		}
		b.Raw(encoding.TwoColumn("  "+string(o.Method), encoding.Money(o.Total, o.Currency), w))
	}
	b.Divider(w, '-')
}

func generatedAt(doc *model.ClosureDocument) time.Time {
	if !doc.GeneratedAt.IsZero() {
		return doc.GeneratedAt
	}
	return doc.Date
}

func longSpanishDate(doc *model.ClosureDocument) string {
	d := doc.Date
	return fmt.Sprintf("%s %d de %s de %d",
		spanishDays[int(d.Weekday())], d.Day(), spanishMonths[int(d.Month())-1], d.Year())
}
