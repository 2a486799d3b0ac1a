package escpos

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuilderInitLeadsDocument(t *testing.T) {
	got := NewBuilder().Init().CodePage().Line("hola").Bytes()
	want := append(append([]byte{}, Commands.Initialize...), Commands.SelectCodePage850...)
	if !bytes.HasPrefix(got, want) {
		t.Errorf("document does not start with init + code page: % X", got[:6])
	}
}

func TestBuilderAppendOnlyOrder(t *testing.T) {
	got := NewBuilder().
		AlignCenter().
		Bold(true).
		Line("TITULO").
		Bold(false).
		AlignLeft().
		Line("cuerpo").
		Cut(false).
		Bytes()

	idxCenter := bytes.Index(got, Commands.AlignCenter)
	idxBoldOn := bytes.Index(got, Commands.BoldOn)
	idxTitle := bytes.Index(got, []byte("TITULO"))
	idxBoldOff := bytes.Index(got, Commands.BoldOff)
	idxBody := bytes.Index(got, []byte("cuerpo"))
	idxCut := bytes.Index(got, Commands.CutFull)

	order := []int{idxCenter, idxBoldOn, idxTitle, idxBoldOff, idxBody, idxCut}
	for i, idx := range order {
		if idx < 0 {
			t.Fatalf("directive %d missing from stream", i)
		}
		if i > 0 && idx <= order[i-1] {
			t.Errorf("directive %d out of order: %v", i, order)
		}
	}
}

func TestBuilderDensityClamped(t *testing.T) {
	high := NewBuilder().Density(99).Bytes()
	if !bytes.Equal(high, append(append([]byte{}, Commands.Density...), byte(MaxDensity))) {
		t.Errorf("density 99 not clamped: % X", high)
	}
	low := NewBuilder().Density(-3).Bytes()
	if !bytes.Equal(low, append(append([]byte{}, Commands.Density...), byte(MinDensity))) {
		t.Errorf("density -3 not clamped: % X", low)
	}
}

func TestBuilderTextSanitized(t *testing.T) {
	got := NewBuilder().Line("  sin \x1B cebolla  ").String()
	if got != "sin cebolla\n" {
		t.Errorf("got %q", got)
	}
}

func TestPreviewSuppressesControlBytes(t *testing.T) {
	got := NewPreview().
		Init().
		CodePage().
		Density(3).
		AlignCenter().
		Bold(true).
		Line("RESTAURANTE").
		DoubleSize(true).
		Line("TOTAL 11000").
		Cut(false).
		DrawerKick(2).
		Feed(3).
		String()

	for _, b := range []byte(got) {
		if b < 0x20 && b != '\n' {
			t.Fatalf("preview contains control byte 0x%02X: %q", b, got)
		}
	}
	if !strings.Contains(got, "RESTAURANTE") || !strings.Contains(got, "TOTAL 11000") {
		t.Errorf("preview lost text: %q", got)
	}
}

func TestBuilderDivider(t *testing.T) {
	got := NewBuilder().Divider(8, '-').String()
	if got != "--------\n" {
		t.Errorf("got %q", got)
	}
}

func TestBuilderHighBitBytesSurvive(t *testing.T) {
	got := NewBuilder().Line("año").Feed(200).Bytes()

	// 'ñ' lands on its code page 850 point, not a UTF-8 pair.
	if !bytes.Contains(got, []byte{'a', 0xA4, 'o', '\n'}) {
		t.Errorf("text not encoded to the code page: % X", got)
	}
	want := append(append([]byte{}, Commands.FeedLines...), 200)
	if !bytes.HasSuffix(got, want) {
		t.Errorf("feed count byte corrupted: % X", got)
	}
}

func TestBuilderFeedBounds(t *testing.T) {
	got := NewBuilder().Feed(300).Bytes()
	want := append(append([]byte{}, Commands.FeedLines...), 255)
	if !bytes.Equal(got, want) {
		t.Errorf("feed not capped: % X", got)
	}
	if out := NewBuilder().Feed(0).Bytes(); len(out) != 0 {
		t.Errorf("feed 0 emitted bytes: % X", out)
	}
}
