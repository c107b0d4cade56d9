package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/math/fixed"

	"struk-print/internal/escpos"
)

// Options configures receipt rendering
type Options struct {
	Width     int   // paper width in pixels, PaperWidth when zero
	Columns   int   // characters per normal line, escpos.LineWidth when zero
	Margin    int   // blank pixels above and below the text
	Threshold uint8 // when non-zero the result is thresholded to 1-bit
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = PaperWidth
	}
	if o.Columns <= 0 {
		o.Columns = escpos.LineWidth
	}
	if o.Margin < 0 {
		o.Margin = 0
	}
	return o
}

type renderer struct {
	opts    Options
	cell    int
	size    float64
	ascent  int
	height  int
	regular *truetype.Font
	bold    *truetype.Font
}

func newRenderer(opts Options) (*renderer, error) {
	regular, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, err
	}
	bold, err := truetype.Parse(gomonobold.TTF)
	if err != nil {
		return nil, err
	}

	r := &renderer{opts: opts, cell: opts.Width / opts.Columns, regular: regular, bold: bold}

	// Size the font so one glyph advance fills exactly one character cell
	const probe = 10.0
	adv, _ := truetype.NewFace(regular, &truetype.Options{Size: probe, DPI: DPI}).GlyphAdvance('M')
	r.size = probe * float64(r.cell) / fixedToFloat(adv)

	metrics := truetype.NewFace(regular, &truetype.Options{Size: r.size, DPI: DPI}).Metrics()
	r.ascent = metrics.Ascent.Ceil()
	r.height = metrics.Height.Ceil()
	return r, nil
}

// RenderReceipt draws a decoded job onto a strip of paper. Lines keep their
// alignment, bold, underline and double size attributes, and a cut is shown
// as a dashed line at the bottom.
func RenderReceipt(doc escpos.Document, opts Options) (image.Image, error) {
	opts = opts.withDefaults()
	r, err := newRenderer(opts)
	if err != nil {
		return nil, err
	}

	var rows []image.Image
	total := 2 * opts.Margin
	for _, l := range doc.Lines {
		img := r.line(l)
		rows = append(rows, img)
		total += img.Bounds().Dy()
	}
	if doc.Cut {
		total += r.height
	}

	out := image.NewRGBA(image.Rect(0, 0, opts.Width, total))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)

	y := opts.Margin
	for _, img := range rows {
		draw.Draw(out, img.Bounds().Add(image.Pt(0, y)), img, image.Point{}, draw.Src)
		y += img.Bounds().Dy()
	}
	if doc.Cut {
		cutY := y + opts.Margin/2 + r.height/2
		for x := 0; x < opts.Width; x++ {
			if (x/6)%2 == 0 && cutY < total {
				out.Set(x, cutY, color.Gray{96})
			}
		}
	}

	if opts.Threshold > 0 {
		return Monochrome(out, opts.Threshold), nil
	}
	return out, nil
}

// RenderJob decodes raw ESC/POS bytes and renders them
func RenderJob(job []byte, opts Options) (image.Image, error) {
	return RenderReceipt(escpos.Decode(job), opts)
}

// line renders one printed line. Text longer than the line wraps onto
// further rows like it does on paper.
func (r *renderer) line(l escpos.Line) image.Image {
	factor := 1
	if l.Style.Double {
		factor = 2
	}
	cols := r.opts.Columns / factor

	text := []rune(l.Text)
	var parts [][]rune
	for len(text) > cols {
		parts = append(parts, text[:cols])
		text = text[cols:]
	}
	parts = append(parts, text)

	img := image.NewRGBA(image.Rect(0, 0, r.opts.Width/factor, r.height*len(parts)))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	f := r.regular
	if l.Style.Bold {
		f = r.bold
	}
	c := freetype.NewContext()
	c.SetDPI(DPI)
	c.SetFont(f)
	c.SetFontSize(r.size)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(image.Black)
	c.SetHinting(font.HintingFull)

	for row, part := range parts {
		offset := 0
		switch l.Style.Align {
		case escpos.Center:
			offset = (cols - len(part)) / 2
		case escpos.Right:
			offset = cols - len(part)
		}

		baseline := row*r.height + r.ascent
		for i, ch := range part {
			if ch == ' ' {
				continue
			}
			c.DrawString(string(ch), freetype.Pt((offset+i)*r.cell, baseline))
		}

		if l.Style.Underline && len(part) > 0 {
			uy := baseline + 2
			for x := offset * r.cell; x < (offset+len(part))*r.cell; x++ {
				img.Set(x, uy, color.Black)
			}
		}
	}

	if factor > 1 {
		return scale(img, factor)
	}
	return img
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
