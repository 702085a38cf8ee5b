package monitor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/dominggo/ai-osp/internal/render"
)

// Canvas is a terminal map surface. Feature layers are rasterized onto a
// braille microgrid (2x4 dots per cell) so line work stays crisp at cell
// resolution. Handles are plain ints; the Canvas forgets a handle as soon
// as it is removed.
type Canvas struct {
	mu sync.Mutex

	bbox   orb.Bound
	center orb.Point
	zoom   float64

	nextHandle int
	layers     []*canvasLayer
}

type canvasLayer struct {
	handle  int
	layerID string
	fc      *geojson.FeatureCollection
	style   render.Style
}

func NewCanvas() *Canvas {
	return &Canvas{zoom: 1.0}
}

// AddFeatureLayer rasterizes on demand; here it only validates and records.
// Geometry with no visible extent is rejected so the reconciler can surface
// the failure instead of drawing nothing silently.
func (c *Canvas) AddFeatureLayer(layerID string, fc *geojson.FeatureCollection, style render.Style) (render.Handle, error) {
	if fc == nil || len(fc.Features) == 0 {
		return nil, fmt.Errorf("layer %s has no features", layerID)
	}
	for _, f := range fc.Features {
		if f.Geometry == nil {
			return nil, fmt.Errorf("layer %s contains a feature without geometry", layerID)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextHandle++
	cl := &canvasLayer{handle: c.nextHandle, layerID: layerID, fc: fc, style: style}
	c.layers = append(c.layers, cl)
	if c.bbox == (orb.Bound{}) {
		c.bbox = padDegenerate(collectionBound(fc))
	}
	return cl.handle, nil
}

func (c *Canvas) RemoveFeatureLayer(h render.Handle) error {
	id, ok := h.(int)
	if !ok {
		return fmt.Errorf("foreign handle %v", h)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cl := range c.layers {
		if cl.handle == id {
			c.layers = append(c.layers[:i], c.layers[i+1:]...)
			return nil
		}
	}
	// Unknown handles are tolerated.
	return nil
}

func (c *Canvas) Bounds() orb.Bound {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bbox
}

func (c *Canvas) FitBounds(b orb.Bound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bbox = padDegenerate(b)
	c.center = c.bbox.Center()
	c.zoom = 1.0
}

func (c *Canvas) SetCenter(center orb.Point, zoom float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.center = center
	if zoom > 0 {
		c.zoom = zoom
	}
}

func (c *Canvas) Center() (orb.Point, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.center, c.zoom
}

// Zoom scales the view around the current center. Factor > 1 zooms in.
func (c *Canvas) Zoom(factor float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	z := c.zoom * factor
	if z < 0.1 {
		z = 0.1
	}
	if z > 64 {
		z = 64
	}
	c.zoom = z
}

// Pan shifts the view by a fraction of the bbox extent.
func (c *Canvas) Pan(dx, dy float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bbox.IsEmpty() {
		return
	}
	w := c.bbox.Max[0] - c.bbox.Min[0]
	h := c.bbox.Max[1] - c.bbox.Min[1]
	c.bbox = orb.Bound{
		Min: orb.Point{c.bbox.Min[0] + dx*w, c.bbox.Min[1] + dy*h},
		Max: orb.Point{c.bbox.Max[0] + dx*w, c.bbox.Max[1] + dy*h},
	}
}

// LayerCount reports how many feature layers are currently attached.
func (c *Canvas) LayerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.layers)
}

// Render draws all attached layers into a w-by-h cell string. Layers draw
// in attach order; later layers win contested cells.
func (c *Canvas) Render(w, h int) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if w < 1 || h < 1 {
		return ""
	}

	runes := make([][]rune, h)
	colors := make([][]string, h)
	for y := 0; y < h; y++ {
		runes[y] = make([]rune, w)
		colors[y] = make([]string, w)
		for x := 0; x < w; x++ {
			runes[y][x] = ' '
		}
	}

	for _, cl := range c.layers {
		buf := newBrailleBuf(w, h)
		for _, f := range cl.fc.Features {
			c.rasterize(buf, f.Geometry, w, h)
		}
		color := cl.style.Color
		if cl.style.Selected {
			color = selectedFeatureColor
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if r := buf.runeAt(x, y); r != ' ' {
					runes[y][x] = r
					colors[y][x] = color
				}
			}
		}
	}

	var sb strings.Builder
	for y := 0; y < h; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		// Emit runs of identical color as single styled segments.
		runStart := 0
		for x := 1; x <= w; x++ {
			if x == w || colors[y][x] != colors[y][runStart] {
				seg := string(runes[y][runStart:x])
				if color := colors[y][runStart]; color != "" {
					seg = lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(seg)
				}
				sb.WriteString(seg)
				runStart = x
			}
		}
	}
	return sb.String()
}

func (c *Canvas) rasterize(buf *brailleBuf, g orb.Geometry, w, h int) {
	switch geom := g.(type) {
	case orb.Point:
		if mx, my, ok := c.micro(geom, w, h); ok {
			buf.setPixel(mx, my)
		}
	case orb.MultiPoint:
		for _, p := range geom {
			if mx, my, ok := c.micro(p, w, h); ok {
				buf.setPixel(mx, my)
			}
		}
	case orb.LineString:
		c.rasterizeLine(buf, geom, w, h)
	case orb.MultiLineString:
		for _, ls := range geom {
			c.rasterizeLine(buf, ls, w, h)
		}
	case orb.Polygon:
		for _, ring := range geom {
			c.rasterizeLine(buf, orb.LineString(ring), w, h)
		}
	case orb.MultiPolygon:
		for _, poly := range geom {
			for _, ring := range poly {
				c.rasterizeLine(buf, orb.LineString(ring), w, h)
			}
		}
	case orb.Collection:
		for _, sub := range geom {
			c.rasterize(buf, sub, w, h)
		}
	}
}

func (c *Canvas) rasterizeLine(buf *brailleBuf, ls orb.LineString, w, h int) {
	var prevX, prevY int
	havePrev := false
	for _, p := range ls {
		mx, my, ok := c.micro(p, w, h)
		if !ok {
			havePrev = false
			continue
		}
		if havePrev {
			buf.drawLine(prevX, prevY, mx, my)
		} else {
			buf.setPixel(mx, my)
		}
		prevX, prevY = mx, my
		havePrev = true
	}
}

// micro projects a lon/lat point into microgrid coordinates (2x4 per cell),
// applying zoom around the bbox center.
func (c *Canvas) micro(p orb.Point, w, h int) (int, int, bool) {
	if c.bbox.Max[0] <= c.bbox.Min[0] || c.bbox.Max[1] <= c.bbox.Min[1] {
		return 0, 0, false
	}
	nx := (p[0] - c.bbox.Min[0]) / (c.bbox.Max[0] - c.bbox.Min[0])
	ny := (p[1] - c.bbox.Min[1]) / (c.bbox.Max[1] - c.bbox.Min[1])
	zx := 0.5 + (nx-0.5)*c.zoom
	zy := 0.5 + (ny-0.5)*c.zoom
	mx := int(zx * float64(w*2-1))
	my := int((1.0 - zy) * float64(h*4-1))
	return mx, my, true
}

// padDegenerate widens a zero-extent bound so single points still project.
func padDegenerate(b orb.Bound) orb.Bound {
	const eps = 0.0005
	if b.Max[0] <= b.Min[0] {
		b.Min[0] -= eps
		b.Max[0] += eps
	}
	if b.Max[1] <= b.Min[1] {
		b.Min[1] -= eps
		b.Max[1] += eps
	}
	return b
}

func collectionBound(fc *geojson.FeatureCollection) orb.Bound {
	var b orb.Bound
	first := true
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		fb := f.Geometry.Bound()
		if first {
			b = fb
			first = false
		} else {
			b = b.Union(fb)
		}
	}
	return b
}

// brailleBuf accumulates micro-pixels at 2x4 per terminal cell and emits
// braille runes.
type brailleBuf struct {
	w, h int
	m    [][]uint8
}

func newBrailleBuf(w, h int) *brailleBuf {
	m := make([][]uint8, h)
	for i := range m {
		m[i] = make([]uint8, w)
	}
	return &brailleBuf{w: w, h: h, m: m}
}

var brailleBits = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

func (b *brailleBuf) setPixel(mx, my int) {
	if mx < 0 || my < 0 {
		return
	}
	cx, rx := mx/2, mx%2
	cy, ry := my/4, my%4
	if cy >= b.h || cx >= b.w {
		return
	}
	b.m[cy][cx] |= brailleBits[ry][rx]
}

func (b *brailleBuf) runeAt(x, y int) rune {
	mask := b.m[y][x]
	if mask == 0 {
		return ' '
	}
	return rune(0x2800 + int(mask))
}

// drawLine uses Bresenham on the microgrid.
func (b *brailleBuf) drawLine(x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		b.setPixel(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
