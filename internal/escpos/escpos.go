package escpos

import (
	"bytes"
	"fmt"
)

// Control bytes
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	LF  byte = 0x0A
)

// LineWidth is the character width of a 58mm printer line in font A
const LineWidth = 32

// Command is one of the fixed ESC/POS directives a receipt is built from
type Command int

const (
	Init Command = iota
	AlignLeft
	AlignCenter
	AlignRight
	BoldOn
	BoldOff
	DoubleSize
	NormalSize
	UnderlineOn
	UnderlineOff
	CutPaper
	FeedLine
	Feed3
	Feed5
)

var commandBytes = [...][]byte{
	Init:         {ESC, 0x40},
	AlignLeft:    {ESC, 0x61, 0x00},
	AlignCenter:  {ESC, 0x61, 0x01},
	AlignRight:   {ESC, 0x61, 0x02},
	BoldOn:       {ESC, 0x45, 0x01},
	BoldOff:      {ESC, 0x45, 0x00},
	DoubleSize:   {GS, 0x21, 0x11},
	NormalSize:   {GS, 0x21, 0x00},
	UnderlineOn:  {ESC, 0x2D, 0x01},
	UnderlineOff: {ESC, 0x2D, 0x00},
	CutPaper:     {GS, 0x56, 0x00},
	FeedLine:     {LF},
	Feed3:        {ESC, 0x64, 0x03},
	Feed5:        {ESC, 0x64, 0x05},
}

var commandNames = [...]string{
	Init:         "INIT",
	AlignLeft:    "ALIGN_LEFT",
	AlignCenter:  "ALIGN_CENTER",
	AlignRight:   "ALIGN_RIGHT",
	BoldOn:       "BOLD_ON",
	BoldOff:      "BOLD_OFF",
	DoubleSize:   "DOUBLE_SIZE",
	NormalSize:   "NORMAL_SIZE",
	UnderlineOn:  "UNDERLINE_ON",
	UnderlineOff: "UNDERLINE_OFF",
	CutPaper:     "CUT_PAPER",
	FeedLine:     "FEED_LINE",
	Feed3:        "FEED_3",
	Feed5:        "FEED_5",
}

// Bytes returns a fresh copy of the command's byte sequence
func (c Command) Bytes() []byte {
	if c < 0 || int(c) >= len(commandBytes) {
		return nil
	}
	return append([]byte(nil), commandBytes[c]...)
}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return fmt.Sprintf("Command(%d)", int(c))
	}
	return commandNames[c]
}

// EncodeText returns the UTF-8 bytes of s, unescaped
func EncodeText(s string) []byte {
	return []byte(s)
}

// Concat joins buffers in order with a single allocation
func Concat(bufs ...[]byte) []byte {
	n := 0
	for _, b := range bufs {
		n += len(b)
	}
	out := make([]byte, 0, n)
	for _, b := range bufs {
		out = append(out, b...)
	}
	return out
}

// Builder accumulates ESC/POS output
type Builder struct {
	buf bytes.Buffer
}

func New() *Builder {
	return &Builder{}
}

// Command appends one or more directives
func (b *Builder) Command(cmds ...Command) *Builder {
	for _, c := range cmds {
		if c < 0 || int(c) >= len(commandBytes) {
			continue
		}
		b.buf.Write(commandBytes[c])
	}
	return b
}

// Text appends raw text without a line feed
func (b *Builder) Text(s string) *Builder {
	b.buf.WriteString(s)
	return b
}

// Line appends text followed by a line feed
func (b *Builder) Line(s string) *Builder {
	b.buf.WriteString(s)
	b.buf.WriteByte(LF)
	return b
}

// Raw appends arbitrary bytes
func (b *Builder) Raw(p []byte) *Builder {
	b.buf.Write(p)
	return b
}

// Len reports the number of bytes accumulated so far
func (b *Builder) Len() int {
	return b.buf.Len()
}

// Bytes returns the finished job. The result does not alias the builder.
func (b *Builder) Bytes() []byte {
	return append([]byte(nil), b.buf.Bytes()...)
}

// String returns the job as a string (for debugging)
func (b *Builder) String() string {
	return b.buf.String()
}
