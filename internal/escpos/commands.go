// Package escpos assembles raw ESC/POS command streams for thermal
// receipt printers. The Builder is append-only; a document is built
// top to bottom exactly as it prints.
package escpos

// Commands holds the ESC/POS opcode sequences the builder emits.
// Values follow the Epson ESC/POS reference and are shared by the
// generic thermal mechanisms this service targets.
var Commands = struct {
	Initialize []byte

	// Character handling
	SelectCodePage850 []byte

	// Alignment
	AlignLeft   []byte
	AlignCenter []byte
	AlignRight  []byte

	// Emphasis and size
	BoldOn     []byte
	BoldOff    []byte
	SizeNormal []byte
	SizeDouble []byte

	// Paper movement
	LineFeed  []byte
	FeedLines []byte // followed by the line count byte

	// Print density, followed by the level byte
	Density []byte

	// Cutting
	CutFull    []byte
	CutPartial []byte

	// Cash drawer
	DrawerKickPin2 []byte
	DrawerKickPin5 []byte
}{
	Initialize: []byte{0x1B, 0x40},

	SelectCodePage850: []byte{0x1B, 0x74, 0x02},

	AlignLeft:   []byte{0x1B, 0x61, 0x00},
	AlignCenter: []byte{0x1B, 0x61, 0x01},
	AlignRight:  []byte{0x1B, 0x61, 0x02},

	BoldOn:     []byte{0x1B, 0x45, 0x01},
	BoldOff:    []byte{0x1B, 0x45, 0x00},
	SizeNormal: []byte{0x1D, 0x21, 0x00},
	SizeDouble: []byte{0x1D, 0x21, 0x30},

	LineFeed:  []byte{0x0A},
	FeedLines: []byte{0x1B, 0x64},

	Density: []byte{0x1D, 0x7C},

	CutFull:    []byte{0x1D, 0x56, 0x00},
	CutPartial: []byte{0x1D, 0x56, 0x01},

	DrawerKickPin2: []byte{0x1B, 0x70, 0x00, 0x19, 0x19},
	DrawerKickPin5: []byte{0x1B, 0x70, 0x01, 0x19, 0x19},
}

const (
	// MinDensity and MaxDensity bound the darkness level accepted by
	// Density; out-of-range requests are clamped.
	MinDensity = 0
	MaxDensity = 5
)
