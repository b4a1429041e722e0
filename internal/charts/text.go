package charts

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"boardgamestats/pkg/datasetapi"
	"boardgamestats/pkg/domain"
)

const (
	cellPad    = 10
	lineHeight = 22
)

var (
	textColor   = image.NewUniform(color.RGBA{R: 33, G: 37, B: 41, A: 255})
	headerFill  = image.NewUniform(color.RGBA{R: 233, G: 236, B: 239, A: 255})
	ruleColor   = image.NewUniform(color.RGBA{R: 206, G: 212, B: 218, A: 255})
	canvasColor = image.NewUniform(color.White)
)

func drawString(dst draw.Image, x, y int, s string) {
	d := &font.Drawer{Dst: dst, Src: textColor, Face: basicfont.Face7x13, Dot: fixed.P(x, y)}
	d.DrawString(s)
}

func measure(s string) int {
	d := &font.Drawer{Face: basicfont.Face7x13}
	return d.MeasureString(s).Ceil()
}

// cellText formats a table cell; missing aggregates read "no data".
func cellText(v any) string {
	switch n := v.(type) {
	case nil:
		return domain.NoData
	case domain.OptionalFloat:
		if !n.Valid {
			return domain.NoData
		}
		return fmt.Sprintf("%.2f", n.Value)
	case float64:
		return fmt.Sprintf("%.2f", n)
	}
	return label(v)
}

// renderTable draws the X and Y columns of res as a two-column table with
// the axis labels as headers.
func renderTable(w io.Writer, spec Spec, res datasetapi.RunResult) error {
	headers := [2]string{spec.XLabel, spec.YLabel}
	if headers[0] == "" {
		headers[0] = spec.X
	}
	if headers[1] == "" {
		headers[1] = spec.Y
	}
	rows := make([][2]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		rows = append(rows, [2]string{label(row[spec.X]), cellText(row[spec.Y])})
	}
	if len(rows) == 0 {
		return renderPlaceholder(w, spec, domain.NoData)
	}

	widths := [2]int{measure(headers[0]), measure(headers[1])}
	for _, r := range rows {
		for i := range r {
			widths[i] = max(widths[i], measure(r[i]))
		}
	}
	titleHeight := 0
	if spec.Title != "" {
		titleHeight = lineHeight + cellPad
	}
	width := widths[0] + widths[1] + 4*cellPad
	width = max(width, measure(spec.Title)+2*cellPad)
	height := titleHeight + (len(rows)+1)*lineHeight + cellPad

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), canvasColor, image.Point{}, draw.Src)
	if spec.Title != "" {
		drawString(img, cellPad, cellPad+13, spec.Title)
	}
	top := titleHeight
	draw.Draw(img, image.Rect(0, top, width, top+lineHeight), headerFill, image.Point{}, draw.Src)
	col2 := widths[0] + 3*cellPad
	drawString(img, cellPad, top+15, headers[0])
	drawString(img, col2, top+15, headers[1])
	for i, r := range rows {
		y := top + (i+1)*lineHeight
		draw.Draw(img, image.Rect(0, y, width, y+1), ruleColor, image.Point{}, draw.Src)
		drawString(img, cellPad, y+15, r[0])
		drawString(img, col2, y+15, r[1])
	}
	return png.Encode(w, img)
}

// renderPlaceholder draws a blank canvas with a centred message, used when a
// result has nothing to plot.
func renderPlaceholder(w io.Writer, spec Spec, msg string) error {
	width, height := spec.size()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), canvasColor, image.Point{}, draw.Src)
	if spec.Title != "" {
		drawString(img, (width-measure(spec.Title))/2, 30, spec.Title)
	}
	drawString(img, (width-measure(msg))/2, height/2, msg)
	return png.Encode(w, img)
}
