package escpos

import "strings"

// Align is a line justification as set by ESC a n
type Align int

const (
	Left Align = iota
	Center
	Right
)

// Style is the print mode in effect for a line
type Style struct {
	Align     Align
	Bold      bool
	Double    bool
	Underline bool
}

// Line is one printed line recovered from a job
type Line struct {
	Text  string
	Style Style
}

// Document is the printable content of a job
type Document struct {
	Lines []Line
	Cut   bool
}

// Plain returns the document text, one line per row, without styling
func (d Document) Plain() string {
	var sb strings.Builder
	for _, l := range d.Lines {
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Decode interprets the subset of ESC/POS emitted by this package and
// returns what a printer would put on paper. Unknown sequences are skipped.
func Decode(job []byte) Document {
	var (
		doc     Document
		cur     Style
		lineSty Style
		text    []byte
		started bool
	)

	flush := func() {
		if !started {
			lineSty = cur
		}
		doc.Lines = append(doc.Lines, Line{Text: string(text), Style: lineSty})
		text = text[:0]
		started = false
	}
	arg := func(i int) (byte, bool) {
		if i < len(job) {
			return job[i], true
		}
		return 0, false
	}

	for i := 0; i < len(job); i++ {
		c := job[i]
		switch c {
		case LF:
			flush()
		case ESC:
			op, ok := arg(i + 1)
			if !ok {
				i = len(job)
				break
			}
			switch op {
			case 0x40:
				cur = Style{}
				i++
			case 0x61, 0x45, 0x2D, 0x64:
				n, ok := arg(i + 2)
				if !ok {
					i = len(job)
					break
				}
				i += 2
				switch op {
				case 0x61:
					if n <= 2 {
						cur.Align = Align(n)
					} else if n >= '0' && n <= '2' {
						cur.Align = Align(n - '0')
					}
				case 0x45:
					cur.Bold = n&1 == 1
				case 0x2D:
					cur.Underline = n != 0 && n != '0'
				case 0x64:
					if len(text) > 0 || started {
						flush()
					}
					for k := 0; k < int(n); k++ {
						flush()
					}
				}
			default:
				i++
			}
		case GS:
			op, ok := arg(i + 1)
			if !ok {
				i = len(job)
				break
			}
			switch op {
			case 0x21:
				n, ok := arg(i + 2)
				if !ok {
					i = len(job)
					break
				}
				cur.Double = n != 0
				i += 2
			case 0x56:
				m, ok := arg(i + 2)
				if !ok {
					i = len(job)
					break
				}
				i += 2
				if m == 65 || m == 66 {
					i++
				}
				if len(text) > 0 {
					flush()
				}
				doc.Cut = true
			default:
				i++
			}
		default:
			if !started {
				lineSty = cur
				started = true
			}
			text = append(text, c)
		}
	}
	if len(text) > 0 {
		flush()
	}
	return doc
}
