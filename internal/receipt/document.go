package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ESC/POS control bytes.
const (
	esc = 0x1B
	gs  = 0x1D
)

var (
	cmdInit       = []byte{esc, '@'}
	cmdLeft       = []byte{esc, 'a', 0}
	cmdCenter     = []byte{esc, 'a', 1}
	cmdBoldOn     = []byte{esc, 'E', 1}
	cmdBoldOff    = []byte{esc, 'E', 0}
	cmdSizeNormal = []byte{gs, '!', 0x00}
	cmdSizeDouble = []byte{gs, '!', 0x11}
	cmdPartialCut = []byte{gs, 'V', 1}
)

// Document lays out receipt lines at a fixed character width. The same
// layout renders either as ESC/POS or, with escape codes dropped and
// centering done by padding, as plain text.
type Document struct {
	buf      bytes.Buffer
	width    int
	escapes  bool
	centered bool
}

// NewDocument starts an ESC/POS document (48 characters for 80mm paper).
func NewDocument(width int) *Document {
	d := &Document{width: width, escapes: true}
	if d.width <= 0 {
		d.width = 48
	}
	d.emit(cmdInit)
	return d
}

func NewPlainDocument(width int) *Document {
	d := NewDocument(width)
	d.buf.Reset()
	d.escapes = false
	return d
}

func (d *Document) emit(cmd []byte) {
	if d.escapes {
		d.buf.Write(cmd)
	}
}

func (d *Document) Center() *Document {
	d.centered = true
	d.emit(cmdCenter)
	return d
}

func (d *Document) Left() *Document {
	d.centered = false
	d.emit(cmdLeft)
	return d
}

func (d *Document) Bold(on bool) *Document {
	if on {
		d.emit(cmdBoldOn)
	} else {
		d.emit(cmdBoldOff)
	}
	return d
}

// Large switches double width and height.
func (d *Document) Large(on bool) *Document {
	if on {
		d.emit(cmdSizeDouble)
	} else {
		d.emit(cmdSizeNormal)
	}
	return d
}

// Line writes s clipped to the paper width.
func (d *Document) Line(s string) *Document {
	s = clip(s, d.width)
	if d.centered && !d.escapes {
		s = strings.Repeat(" ", (d.width-utf8.RuneCountInString(s))/2) + s
	}
	d.buf.WriteString(s)
	d.buf.WriteByte('\n')
	return d
}

func (d *Document) Linef(format string, args ...any) *Document {
	return d.Line(fmt.Sprintf(format, args...))
}

// Wrap breaks s on spaces over as many lines as it needs.
func (d *Document) Wrap(s string) *Document {
	var line string
	for _, w := range strings.Fields(s) {
		if line != "" && utf8.RuneCountInString(line)+1+utf8.RuneCountInString(w) > d.width {
			d.Line(line)
			line = ""
		}
		if line != "" {
			line += " "
		}
		line += w
	}
	if line != "" {
		d.Line(line)
	}
	return d
}

func (d *Document) Rule(ch rune) *Document {
	d.buf.WriteString(strings.Repeat(string(ch), d.width))
	d.buf.WriteByte('\n')
	return d
}

// Pair puts label on the left and value flush right.
func (d *Document) Pair(label, value string) *Document {
	room := max(d.width-utf8.RuneCountInString(value)-1, 1)
	label = clip(label, room)
	gap := max(d.width-utf8.RuneCountInString(label)-utf8.RuneCountInString(value), 1)
	d.buf.WriteString(label + strings.Repeat(" ", gap) + value + "\n")
	return d
}

// Finish feeds the paper past the tear bar and cuts.
func (d *Document) Finish() *Document {
	d.buf.WriteString("\n\n\n")
	d.emit(cmdPartialCut)
	return d
}

func (d *Document) Bytes() []byte  { return d.buf.Bytes() }
func (d *Document) String() string { return d.buf.String() }

func clip(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}
