package main

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

// Printable renditions leave out the interactive chrome: no delete or resize
// controls, no pending or drag highlight.

const (
	printPadding  = 20.0
	printFontSize = 13.0
	printRadius   = 4.0
	printKnot     = 4.0
	printBorder   = "#9a9a9a"
	printInk      = "#222222"
	printPaper    = "#ffffff"
)

// printView is the chrome-free view of doc plus the offset that moves its
// content to the padded image origin.
func printView(doc ExportDocument) (view BoardView, width, height int, dx, dy float64, err error) {
	view = BuildView(doc.Meta, doc.Notes, doc.Connections, ThemeLight, ViewState{})
	minX, minY, maxX, maxY, ok := view.bounds()
	if !ok {
		return view, 0, 0, 0, 0, ErrNothingToExport
	}
	width = int(math.Ceil(maxX-minX+2*printPadding)) + 1
	height = int(math.Ceil(maxY-minY+2*printPadding)) + 1
	return view, width, height, printPadding - minX, printPadding - minY, nil
}

// visibleLines is how many text lines fit in a note body.
func visibleLines(n NoteView) []string {
	fit := int((n.H - headerHeight - notePadding) / lineHeight)
	fit = max(fit, 1)
	if len(n.Lines) > fit {
		return n.Lines[:fit]
	}
	return n.Lines
}

type pngExporter struct{}

func (pngExporter) Export(w io.Writer, doc ExportDocument) error {
	view, width, height, dx, dy, err := printView(doc)
	if err != nil {
		return err
	}

	dc := gg.NewContext(width, height)
	dc.SetHexColor(printPaper)
	dc.Clear()

	ttfFont, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse font: %w", err)
	}
	dc.SetFontFace(truetype.NewFace(ttfFont, &truetype.Options{
		Size:    printFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	}))

	for _, n := range view.Notes {
		x, y := n.X+dx, n.Y+dy
		dc.DrawRoundedRectangle(x, y, n.W, n.H, printRadius)
		dc.SetHexColor(string(n.Color))
		dc.FillPreserve()
		dc.SetLineWidth(1)
		dc.SetHexColor(printBorder)
		dc.Stroke()

		dc.SetHexColor(printInk)
		for i, line := range visibleLines(n) {
			baseline := y + headerHeight + float64(i+1)*lineHeight - 4
			dc.DrawString(line, x+notePadding, baseline)
		}
	}

	dc.SetHexColor(linkColor)
	dc.SetLineWidth(2)
	for _, l := range view.Links {
		dc.MoveTo(l.Start.X+dx, l.Start.Y+dy)
		dc.QuadraticTo(l.Control.X+dx, l.Control.Y+dy, l.End.X+dx, l.End.Y+dy)
		dc.Stroke()
	}
	for _, l := range view.Links {
		for _, p := range []Point{l.Start, l.End} {
			dc.DrawCircle(p.X+dx, p.Y+dy, printKnot)
			dc.Fill()
		}
	}

	return dc.EncodePNG(w)
}

func (pngExporter) FileExtension() string { return ".png" }
func (pngExporter) FormatName() string    { return "PNG" }

type svgExporter struct{}

func (svgExporter) Export(w io.Writer, doc ExportDocument) error {
	view, width, height, dx, dy, err := printView(doc)
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		width, height, width, height)
	fmt.Fprintf(&sb, "<title>%s</title>\n", escapeXML(doc.Meta.Name))
	fmt.Fprintf(&sb, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", printPaper)

	for _, n := range view.Notes {
		x, y := n.X+dx, n.Y+dy
		fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="%.0f" fill="%s" stroke="%s"/>`+"\n",
			x, y, n.W, n.H, printRadius, escapeXML(string(n.Color)), printBorder)
		for i, line := range visibleLines(n) {
			baseline := y + headerHeight + float64(i+1)*lineHeight - 4
			fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" font-family="monospace" font-size="%.0f" fill="%s" xml:space="preserve">%s</text>`+"\n",
				x+notePadding, baseline, printFontSize, printInk, escapeXML(line))
		}
	}
	for _, l := range view.Links {
		fmt.Fprintf(&sb, `<path d="M %.1f %.1f Q %.1f %.1f %.1f %.1f" fill="none" stroke="%s" stroke-width="2"/>`+"\n",
			l.Start.X+dx, l.Start.Y+dy, l.Control.X+dx, l.Control.Y+dy, l.End.X+dx, l.End.Y+dy, linkColor)
	}
	for _, l := range view.Links {
		for _, p := range []Point{l.Start, l.End} {
			fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.0f" fill="%s"/>`+"\n", p.X+dx, p.Y+dy, printKnot, linkColor)
		}
	}
	sb.WriteString("</svg>\n")

	_, err = io.WriteString(w, sb.String())
	return err
}

func (svgExporter) FileExtension() string { return ".svg" }
func (svgExporter) FormatName() string    { return "SVG" }

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
