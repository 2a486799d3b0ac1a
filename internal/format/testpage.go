package format

import (
	"time"

	"printer-service/internal/escpos"
	"printer-service/internal/model"
)

// TestPage renders a short self-test ticket used to verify a freshly
// connected printer end to end: code page, alignment, emphasis and
// the cutter.
func TestPage(p model.Printer, settings model.PrinterSettings) []byte {
	w := settings.PaperWidth
	if w <= 0 {
		w = model.DefaultSettings().PaperWidth
	}

	b := escpos.NewBuilder()
	b.Init().CodePage().Density(settings.Density)
	b.AlignCenter().Bold(true)
	b.Line("PRUEBA DE IMPRESION")
	b.Bold(false)
	b.Divider(w, '-')
	b.AlignLeft()
	b.Line("Impresora: " + p.Name)
	b.Line("Conexion: " + string(p.Transport))
	b.Line("Fecha: " + time.Now().Format("02/01/2006 15:04"))
	b.Line("Acentos: áéíóú ñÑ ¿? ¡!")
	b.Divider(w, '-')
	b.AlignCenter()
	b.Line("Impresion correcta")
	finishDocument(b, settings)
	return b.Bytes()
}
