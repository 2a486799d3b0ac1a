// Package format renders print documents into ESC/POS payloads and
// screen previews. Formatting is deterministic: the same document and
// settings always produce the same bytes, and no monetary value is
// recomputed here. Amounts print exactly as they arrive.
package format

import (
	"fmt"

	"printer-service/internal/encoding"
	"printer-service/internal/escpos"
	"printer-service/internal/model"
)

// Receipt renders a customer receipt as a printer payload.
func Receipt(doc *model.ReceiptDocument, settings model.PrinterSettings) []byte {
	b := escpos.NewBuilder()
	writeReceipt(b, doc, settings)
	return b.Bytes()
}

// ReceiptPreview renders the same receipt as plain text for on-screen
// confirmation. The line layout matches the printed ticket.
func ReceiptPreview(doc *model.ReceiptDocument, settings model.PrinterSettings) string {
	b := escpos.NewPreview()
	writeReceipt(b, doc, settings)
	return b.String()
}

func writeReceipt(b *escpos.Builder, doc *model.ReceiptDocument, s model.PrinterSettings) {
	w := s.PaperWidth
	if w <= 0 {
		w = model.DefaultSettings().PaperWidth
	}
	cur := doc.Currency
	if cur == "" {
		cur = "CRC"
	}

	b.Init().CodePage().Density(s.Density)

	writeCompanyHeader(b, doc.Company, w)

	b.AlignLeft()
	b.Raw(fmt.Sprintf("Recibo: %06d", doc.ReceiptNumber))
	if doc.Table != "" {
		b.Line("Mesa: " + doc.Table)
	}
	if doc.Waiter != "" {
		b.Line("Atiende: " + doc.Waiter)
	}
	b.Line("Fecha: " + doc.Timestamp.Format("02/01/2006"))
	b.Line("Hora: " + doc.Timestamp.Format("15:04"))
	b.Divider(w, '-')

	if len(doc.Splits) > 0 {
		b.AlignCenter().Bold(true)
		b.Line("CUENTA DIVIDIDA")
		b.Bold(false).AlignLeft()
		b.Divider(w, '-')
	}

	writeItems(b, doc.Items, cur, w)
	b.Divider(w, '-')

	writeTotals(b, doc, cur, w)

	if doc.Payment != nil {
		b.Divider(w, '-')
		writePayment(b, doc.Payment, w)
	}
	if len(doc.Splits) > 0 {
		writeSplits(b, doc.Splits, cur, w)
	}

	b.AlignCenter()
	b.BlankLines(1)
	b.Line("¡Gracias por su visita!")
	b.Line("Vuelva pronto")

	finishDocument(b, s)
}

func writeCompanyHeader(b *escpos.Builder, c model.CompanyInfo, w int) {
	b.AlignCenter().Bold(true)
	b.Raw(encoding.Truncate(encoding.Sanitize(c.Name), w))
	b.Bold(false)
	if c.Address != "" {
		b.Raw(encoding.Truncate(encoding.Sanitize(c.Address), w))
	}
	if c.Phone != "" {
		b.Line("Tel: " + c.Phone)
	}
	if c.TaxID != "" {
		b.Line("Ced: " + c.TaxID)
	}
	b.BlankLines(1)
}

func writeItems(b *escpos.Builder, items []model.ReceiptItem, cur string, w int) {
	for _, it := range items {
		b.Raw(encoding.Truncate(encoding.Sanitize(it.Name), w))
		qty := fmt.Sprintf("%d x %s", it.Quantity, encoding.Money(it.UnitPrice, cur))
		b.Raw(encoding.TwoColumn("  "+qty, encoding.Money(it.Subtotal, cur), w))
		if it.Notes != "" {
			b.Raw(encoding.Truncate("   "+encoding.Sanitize(it.Notes), w))
		}
	}
}

// writeTotals prints the totals block. The standard service-charge
// line is replaced by an explicit waiver line when the discount
// removed it, so the ticket reads as the cashier explained it.
func writeTotals(b *escpos.Builder, doc *model.ReceiptDocument, cur string, w int) {
	b.Raw(encoding.TwoColumn("Subtotal", encoding.Money(doc.Subtotal, cur), w))

	d := doc.Discount
	switch {
	case d != nil && d.Kind == model.DiscountRemoveService:
		// The waived charge still prints, struck by the negative line
		// below it, so the ticket shows what was forgiven.
		charge := doc.ServiceCharge
		if charge.IsZero() {
			charge = d.Amount
		}
		b.Raw(encoding.TwoColumn("Servicio", encoding.Money(charge, cur), w))
		b.Raw(encoding.TwoColumn("SIN SERVICIO", "-"+encoding.Money(d.Amount, cur), w))
	case d != nil:
		if !doc.ServiceCharge.IsZero() {
			b.Raw(encoding.TwoColumn("Servicio", encoding.Money(doc.ServiceCharge, cur), w))
		}
		label := "Descuento"
		if !d.Percentage.IsZero() {
			label = fmt.Sprintf("Descuento (%s%%)", d.Percentage.Round(0).StringFixed(0))
		}
		b.Raw(encoding.TwoColumn(label, "-"+encoding.Money(d.Amount, cur), w))
	default:
		if !doc.ServiceCharge.IsZero() {
			b.Raw(encoding.TwoColumn("Servicio", encoding.Money(doc.ServiceCharge, cur), w))
		}
	}

	if d != nil && d.Reason != "" {
		b.Raw(encoding.Truncate("Motivo: "+encoding.Sanitize(d.Reason), w))
	}
	if d != nil && d.Authorizer != "" {
		b.Raw(encoding.Truncate("Autoriza: "+encoding.Sanitize(d.Authorizer), w))
	}

	b.Bold(true).DoubleSize(true)
	b.Raw(encoding.TwoColumn("TOTAL", encoding.Money(doc.Total, cur), w))
	b.DoubleSize(false).Bold(false)
}

func writePayment(b *escpos.Builder, p *model.Payment, w int) {
	b.Line(fmt.Sprintf("Pago: %s (%s)", p.Method, p.Currency))
	b.Raw(encoding.TwoColumn("Monto", encoding.Money(p.Amount, p.Currency), w))
	if p.Method == model.PaymentCash && !p.Received.IsZero() {
		b.Raw(encoding.TwoColumn("Recibido", encoding.Money(p.Received, p.Currency), w))
		if p.Change.IsPositive() {
			b.Bold(true)
			b.Raw(encoding.TwoColumn("Cambio", encoding.Money(p.Change, p.Currency), w))
			b.Bold(false)
		}
	}
}

// writeSplits prints each share of a divided bill on the same ticket,
// one stanza per part.
func writeSplits(b *escpos.Builder, splits []model.SplitPart, cur string, w int) {
	for i, part := range splits {
		b.Divider(w, '-')
		label := part.Label
		if label == "" {
			label = fmt.Sprintf("Parte %d/%d", i+1, len(splits))
		}
		b.Bold(true)
		b.Raw(encoding.Truncate(encoding.Sanitize(label), w))
		b.Bold(false)
		for _, it := range part.Items {
			b.Raw(encoding.TwoColumn(
				fmt.Sprintf("  %dx %s", it.Quantity, encoding.Sanitize(it.Name)),
				encoding.Money(it.Subtotal, cur), w))
		}
		b.Raw(encoding.TwoColumn(string(part.Method), encoding.Money(part.Amount, cur), w))
	}
}

// finishDocument handles the shared tail: feed so the text clears the
// cutter blade, cut and drawer kick per settings.
func finishDocument(b *escpos.Builder, s model.PrinterSettings) {
	feed := s.FeedLines
	if feed <= 0 {
		feed = model.DefaultSettings().FeedLines
	}
	b.Feed(feed)
	if s.CutPaper {
		b.Cut(s.PartialCut)
	}
	if s.OpenDrawer {
		b.DrawerKick(2)
	}
}
