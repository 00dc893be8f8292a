// Package livemap draws a schematic track map: a ring with the start line at
// the top and every nearby car placed by its normalized lap position.
package livemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"simtelemetry/pkg/model"

	"github.com/llgcode/draw2d"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"github.com/llgcode/draw2d/draw2dsvg"
	"github.com/pkg/errors"
)

const (
	DefaultSize = 400
	MinSize     = 64
	MaxSize     = 2000
)

var (
	background = color.RGBA{0x1e, 0x1e, 0x1e, 0xff}
	trackColor = color.RGBA{0x88, 0x88, 0x88, 0xff}
	startColor = color.RGBA{0xff, 0xff, 0xff, 0xff}

	playerColor  = color.RGBA{0x2e, 0xcc, 0x40, 0xff}
	sameLapColor = color.RGBA{0xf0, 0xf0, 0xf0, 0xff}
	lapAhead     = color.RGBA{0xff, 0x41, 0x36, 0xff}
	lapBehind    = color.RGBA{0x00, 0x74, 0xd9, 0xff}
	pitColor     = color.RGBA{0x55, 0x55, 0x55, 0xff}
)

// Marker is a car on the map, in image coordinates.
type Marker struct {
	X, Y   float64
	Color  color.RGBA
	Player bool
}

type geometry struct {
	size   float64
	center float64
	radius float64
}

func newGeometry(size int) geometry {
	s := float64(size)
	return geometry{size: s, center: s / 2, radius: s * 0.4}
}

// point maps a normalized lap position onto the ring, clockwise from the top.
func (g geometry) point(norm float64) (float64, float64) {
	angle := 2*math.Pi*norm - math.Pi/2
	return g.center + g.radius*math.Cos(angle), g.center + g.radius*math.Sin(angle)
}

// Markers places the player and the relative cars on a map of the given size.
// Cars are drawn first so the player ends up on top.
func Markers(size int, t model.TelemetrySnapshot, relative []model.RelativeCarEntry) []Marker {
	g := newGeometry(size)
	markers := make([]Marker, 0, len(relative)+1)
	for _, c := range relative {
		x, y := g.point(c.TrackPosNorm)
		markers = append(markers, Marker{X: x, Y: y, Color: carColor(c)})
	}
	x, y := g.point(t.TrackPosNorm)
	return append(markers, Marker{X: x, Y: y, Color: playerColor, Player: true})
}

func carColor(c model.RelativeCarEntry) color.RGBA {
	switch {
	case c.InPit:
		return pitColor
	case c.LapsAhead > 0:
		return lapAhead
	case c.LapsAhead < 0:
		return lapBehind
	default:
		return sameLapColor
	}
}

func draw(gc draw2d.GraphicContext, g geometry, markers []Marker) {
	gc.Save()
	defer gc.Restore()

	gc.SetFillColor(background)
	draw2dkit.Rectangle(gc, 0, 0, g.size, g.size)
	gc.Fill()

	gc.SetStrokeColor(trackColor)
	gc.SetLineWidth(g.size * 0.03)
	draw2dkit.Circle(gc, g.center, g.center, g.radius)
	gc.Stroke()

	gc.SetStrokeColor(startColor)
	gc.SetLineWidth(g.size * 0.008)
	gc.MoveTo(g.center, g.center-g.radius-g.size*0.03)
	gc.LineTo(g.center, g.center-g.radius+g.size*0.03)
	gc.Stroke()

	dot := g.size * 0.02
	for _, m := range markers {
		r := dot
		if m.Player {
			r = dot * 1.4
		}
		gc.SetFillColor(m.Color)
		draw2dkit.Circle(gc, m.X, m.Y, r)
		gc.Fill()
	}
}

// WritePNG renders the map as a PNG image.
func WritePNG(w io.Writer, size int, t model.TelemetrySnapshot, relative []model.RelativeCarEntry) error {
	if err := checkSize(size); err != nil {
		return err
	}
	dest := image.NewRGBA(image.Rect(0, 0, size, size))
	draw(draw2dimg.NewGraphicContext(dest), newGeometry(size), Markers(size, t, relative))
	return errors.Wrap(png.Encode(w, dest), "encode map png")
}

// WriteSVG renders the map as an SVG document.
func WriteSVG(w io.Writer, size int, t model.TelemetrySnapshot, relative []model.RelativeCarEntry) error {
	if err := checkSize(size); err != nil {
		return err
	}
	svg := draw2dsvg.NewSvg()
	draw(draw2dsvg.NewGraphicContext(svg), newGeometry(size), Markers(size, t, relative))

	var body bytes.Buffer
	if err := xml.NewEncoder(&body).Encode(svg); err != nil {
		return errors.Wrap(err, "encode map svg")
	}
	// draw2dsvg leaves the viewport to the caller
	dims := fmt.Sprintf(`<svg width="%d" height="%d" viewBox="0 0 %d %d" `, size, size, size, size)
	doc := bytes.Replace(body.Bytes(), []byte("<svg "), []byte(dims), 1)

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrap(err, "write map svg")
	}
	_, err := w.Write(doc)
	return errors.Wrap(err, "write map svg")
}

func checkSize(size int) error {
	if size < MinSize || size > MaxSize {
		return errors.Errorf("map size %d out of range [%d, %d]", size, MinSize, MaxSize)
	}
	return nil
}
