package model

// PrinterSettings controls the physical rendering of a document.
type PrinterSettings struct {
	// PaperWidth is the printable line width in characters. 58mm paper
	// fits 32, 80mm paper fits 48.
	PaperWidth int `json:"paper_width"`
	// Density is the darkness level, clamped to 0..5 by the driver.
	Density int `json:"density"`
	// CutPaper appends a paper cut after the document.
	CutPaper bool `json:"cut_paper"`
	// PartialCut leaves a small bridge instead of a full cut.
	PartialCut bool `json:"partial_cut"`
	// OpenDrawer fires the cash drawer kick after printing.
	OpenDrawer bool `json:"open_drawer"`
	// FeedLines is the blank feed before the cut so text clears the blade.
	FeedLines int `json:"feed_lines"`
}

// DefaultSettings are the values used when no override is supplied.
func DefaultSettings() PrinterSettings {
	return PrinterSettings{
		PaperWidth: 32,
		Density:    3,
		CutPaper:   true,
		PartialCut: false,
		OpenDrawer: false,
		FeedLines:  3,
	}
}
