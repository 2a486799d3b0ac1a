package escpos

import (
	"bytes"
	"strings"

	"printer-service/internal/encoding"
)

// Builder accumulates a print document as one append-only command
// stream. Text directives sanitize their input and are encoded to the
// printer code page as they are appended; control directives splice
// raw opcode bytes between the encoded runs, so a command byte is
// never re-interpreted as text. Nothing written can be removed, so
// formatters compose documents strictly top to bottom.
//
// A preview builder skips every control directive and keeps only the
// text and line breaks, yielding the plain rendition shown on screen
// before printing.
type Builder struct {
	out     bytes.Buffer
	text    strings.Builder
	preview bool
}

// NewBuilder returns a builder that emits the full command stream.
func NewBuilder() *Builder {
	return &Builder{}
}

// NewPreview returns a builder whose output contains only printable
// text and newlines.
func NewPreview() *Builder {
	return &Builder{preview: true}
}

func (b *Builder) ctl(cmd []byte) *Builder {
	if !b.preview {
		b.out.Write(cmd)
	}
	return b
}

func (b *Builder) txt(s string) {
	if !b.preview {
		b.out.Write(encoding.Encode(s))
	}
	b.text.WriteString(s)
}

func (b *Builder) newline() {
	if !b.preview {
		b.out.WriteByte('\n')
	}
	b.text.WriteByte('\n')
}

// Init resets the printer state. Always the first directive of a
// document.
func (b *Builder) Init() *Builder {
	return b.ctl(Commands.Initialize)
}

// CodePage switches the printer to code page 850 so the encoded
// Spanish characters render correctly.
func (b *Builder) CodePage() *Builder {
	return b.ctl(Commands.SelectCodePage850)
}

// Density sets the darkness level, clamped to the supported range.
func (b *Builder) Density(level int) *Builder {
	if b.preview {
		return b
	}
	if level < MinDensity {
		level = MinDensity
	}
	if level > MaxDensity {
		level = MaxDensity
	}
	b.out.Write(Commands.Density)
	b.out.WriteByte(byte(level))
	return b
}

// AlignLeft, AlignCenter and AlignRight select justification for the
// lines that follow.
func (b *Builder) AlignLeft() *Builder   { return b.ctl(Commands.AlignLeft) }
func (b *Builder) AlignCenter() *Builder { return b.ctl(Commands.AlignCenter) }
func (b *Builder) AlignRight() *Builder  { return b.ctl(Commands.AlignRight) }

// Bold toggles emphasized printing.
func (b *Builder) Bold(on bool) *Builder {
	if on {
		return b.ctl(Commands.BoldOn)
	}
	return b.ctl(Commands.BoldOff)
}

// DoubleSize toggles double width and height characters.
func (b *Builder) DoubleSize(on bool) *Builder {
	if on {
		return b.ctl(Commands.SizeDouble)
	}
	return b.ctl(Commands.SizeNormal)
}

// Text appends sanitized text without a line break.
func (b *Builder) Text(s string) *Builder {
	b.txt(encoding.Sanitize(s))
	return b
}

// Line appends sanitized text followed by a line feed.
func (b *Builder) Line(s string) *Builder {
	b.txt(encoding.Sanitize(s))
	b.newline()
	return b
}

// Raw appends a prebuilt line without sanitation. Layout helpers
// produce aligned columns whose internal spacing must survive.
func (b *Builder) Raw(s string) *Builder {
	b.txt(s)
	b.newline()
	return b
}

// Divider prints a full-width separator of the given character.
func (b *Builder) Divider(width int, ch rune) *Builder {
	if width > 0 {
		b.txt(strings.Repeat(string(ch), width))
	}
	b.newline()
	return b
}

// BlankLines feeds n empty lines.
func (b *Builder) BlankLines(n int) *Builder {
	for i := 0; i < n; i++ {
		b.newline()
	}
	return b
}

// Feed advances the paper n lines in one command.
func (b *Builder) Feed(n int) *Builder {
	if b.preview {
		return b
	}
	if n <= 0 {
		return b
	}
	if n > 255 {
		n = 255
	}
	b.out.Write(Commands.FeedLines)
	b.out.WriteByte(byte(n))
	return b
}

// Cut cuts the paper, partially when requested.
func (b *Builder) Cut(partial bool) *Builder {
	if partial {
		return b.ctl(Commands.CutPartial)
	}
	return b.ctl(Commands.CutFull)
}

// DrawerKick pulses the cash drawer solenoid on pin 2 or pin 5.
func (b *Builder) DrawerKick(pin int) *Builder {
	if pin == 5 {
		return b.ctl(Commands.DrawerKickPin5)
	}
	return b.ctl(Commands.DrawerKickPin2)
}

// String returns the plain-text rendition of the document: the
// sanitized text and line breaks without any command bytes.
func (b *Builder) String() string {
	return b.text.String()
}

// Bytes returns the printer payload. Text was encoded to the selected
// code page on append, so the stream is ready to transmit as is.
func (b *Builder) Bytes() []byte {
	return b.out.Bytes()
}
