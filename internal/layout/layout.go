// Package layout positions text labels around map pins so that boxes do not
// overlap each other or cover neighboring pins. Placement runs in two passes:
// a greedy direction search backed by an R-tree collision index, then a
// force-directed relaxation that nudges residual overlaps apart.
package layout

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
)

// Direction names one of the eight compass slots a label can occupy relative
// to its pin.
type Direction string

const (
	DirTop         Direction = "top"
	DirTopRight    Direction = "top-right"
	DirRight       Direction = "right"
	DirBottomRight Direction = "bottom-right"
	DirBottom      Direction = "bottom"
	DirBottomLeft  Direction = "bottom-left"
	DirLeft        Direction = "left"
	DirTopLeft     Direction = "top-left"
)

// searchOrder is the clockwise candidate sequence tried when the preferred
// slot collides.
var searchOrder = []Direction{
	DirTop, DirTopRight, DirRight, DirBottomRight,
	DirBottom, DirBottomLeft, DirLeft, DirTopLeft,
}

// jitterOffsets are small slides tried within each direction before moving on
// to the next one.
var jitterOffsets = [][2]float64{{0, 0}, {8, 0}, {-8, 0}, {0, 8}, {0, -8}}

const (
	padX = 15
	padY = 6

	greedyMargin = 2
	relaxMargin  = 3
	relaxRounds  = 10

	// maxDisplacement caps the net drift relaxation may apply to one label,
	// so a crowded neighborhood cannot drag a box far from its anchor.
	maxDisplacement = 40.0
)

// ParseDirection maps a stored slot name to a Direction, defaulting to top.
func ParseDirection(s string) Direction {
	for _, d := range searchOrder {
		if string(d) == s {
			return d
		}
	}
	return DirTop
}

// Rect is an axis-aligned pixel rectangle.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

func (r Rect) W() float64 { return r.X1 - r.X0 }
func (r Rect) H() float64 { return r.Y1 - r.Y0 }

func (r Rect) centerX() float64 { return (r.X0 + r.X1) / 2 }
func (r Rect) centerY() float64 { return (r.Y0 + r.Y1) / 2 }

// Expanded returns r grown by m on every side.
func (r Rect) Expanded(m float64) Rect {
	return Rect{r.X0 - m, r.Y0 - m, r.X1 + m, r.Y1 + m}
}

// Intersects reports whether two rectangles overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.X0 < o.X1 && o.X0 < r.X1 && r.Y0 < o.Y1 && o.Y0 < r.Y1
}

func (r Rect) shifted(dx, dy float64) Rect {
	return Rect{r.X0 + dx, r.Y0 + dy, r.X1 + dx, r.Y1 + dy}
}

// Label is one placement request. Width and Height are the measured text
// extents before box padding is applied.
type Label struct {
	AnchorX   float64
	AnchorY   float64
	Width     float64
	Height    float64
	Preferred Direction
	PinRadius float64
}

// PlacedLabel is the placement result for one label.
type PlacedLabel struct {
	AnchorX float64
	AnchorY float64
	Box     Rect
	Dir     Direction
	// Displacement is the net distance relaxation moved the box away from
	// its greedy position, never more than maxDisplacement.
	Displacement float64
}

// boxFor computes the label rectangle for one direction slot. The gap keeps
// axis-aligned boxes clear of the pin glyph; diagonal slots sit closer
// because the box corner, not its edge, faces the pin.
func boxFor(l Label, dir Direction, jx, jy float64) Rect {
	w := l.Width + padX
	h := l.Height + padY
	gap := l.PinRadius + 4
	diag := gap * 0.75

	var x, y float64
	switch dir {
	case DirTop:
		x, y = l.AnchorX-w/2, l.AnchorY-gap-h
	case DirTopRight:
		x, y = l.AnchorX+diag, l.AnchorY-diag-h
	case DirRight:
		x, y = l.AnchorX+gap, l.AnchorY-h/2
	case DirBottomRight:
		x, y = l.AnchorX+diag, l.AnchorY+diag
	case DirBottom:
		x, y = l.AnchorX-w/2, l.AnchorY+gap
	case DirBottomLeft:
		x, y = l.AnchorX-diag-w, l.AnchorY+diag
	case DirLeft:
		x, y = l.AnchorX-gap-w, l.AnchorY-h/2
	case DirTopLeft:
		x, y = l.AnchorX-diag-w, l.AnchorY-diag-h
	}
	return Rect{x + jx, y + jy, x + jx + w, y + jy + h}
}

type spatialBox struct {
	rect *rtreego.Rect
	idx  int
}

func (b *spatialBox) Bounds() *rtreego.Rect { return b.rect }

func toTreeRect(r Rect) *rtreego.Rect {
	tr, err := rtreego.NewRect(
		rtreego.Point{r.X0, r.Y0},
		[]float64{math.Max(r.W(), 1e-6), math.Max(r.H(), 1e-6)},
	)
	if err != nil {
		// Lengths are forced positive above, so construction cannot fail.
		panic(err)
	}
	return tr
}

type index struct {
	tree *rtreego.Rtree
}

func newIndex() *index {
	return &index{tree: rtreego.NewTree(2, 25, 50)}
}

func (ix *index) insert(r Rect, idx int) {
	ix.tree.Insert(&spatialBox{rect: toTreeRect(r), idx: idx})
}

// collides reports whether r intersects any indexed box other than the one
// tagged skip. A label legitimately sits close to its own pin, so that pin
// is excluded from its search.
func (ix *index) collides(r Rect, skip int) bool {
	for _, hit := range ix.tree.SearchIntersect(toTreeRect(r)) {
		if hit.(*spatialBox).idx != skip {
			return true
		}
	}
	return false
}

// Place lays out the given labels. Input order is placement priority: earlier
// labels claim their preferred slot first. The returned slice is parallel to
// the input.
func Place(labels []Label) []PlacedLabel {
	placed := make([]PlacedLabel, len(labels))
	ix := newIndex()

	// Pins occupy space too: a label must not cover another point's marker.
	for i, l := range labels {
		pr := l.PinRadius + greedyMargin
		ix.insert(Rect{l.AnchorX - pr, l.AnchorY - pr, l.AnchorX + pr, l.AnchorY + pr}, -i-1)
	}

	for i, l := range labels {
		box, dir := greedyPlace(ix, l, -i-1)
		ix.insert(box.Expanded(greedyMargin), i)
		placed[i] = PlacedLabel{
			AnchorX: l.AnchorX,
			AnchorY: l.AnchorY,
			Box:     box,
			Dir:     dir,
		}
	}

	relax(labels, placed)
	return placed
}

// greedyPlace tries the preferred slot, then the remaining slots clockwise,
// each with small jitter slides. When every candidate collides it falls back
// to the preferred slot anyway and leaves the conflict to relaxation.
func greedyPlace(ix *index, l Label, ownPin int) (Rect, Direction) {
	dirs := make([]Direction, 0, len(searchOrder))
	dirs = append(dirs, l.Preferred)
	for _, d := range searchOrder {
		if d != l.Preferred {
			dirs = append(dirs, d)
		}
	}

	for _, d := range dirs {
		for _, j := range jitterOffsets {
			box := boxFor(l, d, j[0], j[1])
			if !ix.collides(box.Expanded(greedyMargin), ownPin) {
				return box, d
			}
		}
	}
	return boxFor(l, l.Preferred, 0, 0), l.Preferred
}

// relax runs a bounded number of pairwise separation rounds. Each overlapping
// pair is pushed apart symmetrically along the vector between box centers by
// half the smaller overlap extent, and boxes straying onto a pin are pushed
// out radially. Per-label drift accumulates across rounds and is clamped at
// maxDisplacement.
func relax(labels []Label, placed []PlacedLabel) {
	n := len(placed)
	disp := make([][2]float64, n)
	for round := 0; round < relaxRounds; round++ {
		moved := false

		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				a := placed[i].Box.Expanded(relaxMargin * 0.5)
				b := placed[j].Box.Expanded(relaxMargin * 0.5)
				if !a.Intersects(b) {
					continue
				}

				ovX := math.Min(a.X1, b.X1) - math.Max(a.X0, b.X0)
				ovY := math.Min(a.Y1, b.Y1) - math.Max(a.Y0, b.Y0)
				step := math.Min(ovX, ovY) * 0.5

				dx := b.centerX() - a.centerX()
				dy := b.centerY() - a.centerY()
				dist := math.Hypot(dx, dy)
				if dist < 1e-9 {
					// Coincident centers: separate along x by convention.
					dx, dy, dist = 1, 0, 1
				}
				ux, uy := dx/dist, dy/dist

				shiftBox(&placed[i], &disp[i], -ux*step/2, -uy*step/2)
				shiftBox(&placed[j], &disp[j], ux*step/2, uy*step/2)
				moved = true
			}
		}

		for i := range placed {
			for _, l := range labels {
				if pushOffPin(&placed[i], &disp[i], l.AnchorX, l.AnchorY, l.PinRadius) {
					moved = true
				}
			}
		}

		if !moved {
			break
		}
	}
}

// shiftBox applies a relaxation step, clamping the label's accumulated drift
// at maxDisplacement.
func shiftBox(p *PlacedLabel, d *[2]float64, dx, dy float64) {
	nx, ny := d[0]+dx, d[1]+dy
	if m := math.Hypot(nx, ny); m > maxDisplacement {
		f := maxDisplacement / m
		nx, ny = nx*f, ny*f
	}
	p.Box = p.Box.shifted(nx-d[0], ny-d[1])
	d[0], d[1] = nx, ny
	p.Displacement = math.Hypot(nx, ny)
}

// pushOffPin moves a box radially when the pin circle intrudes into it.
func pushOffPin(p *PlacedLabel, d *[2]float64, px, py, radius float64) bool {
	pin := Rect{px - radius, py - radius, px + radius, py + radius}
	if !p.Box.Expanded(relaxMargin).Intersects(pin) {
		return false
	}
	// A label riding its own pin from a diagonal slot is expected; only
	// push when the box actually covers the pin center.
	if px < p.Box.X0 || px > p.Box.X1 || py < p.Box.Y0 || py > p.Box.Y1 {
		return false
	}

	dx := p.Box.centerX() - px
	dy := p.Box.centerY() - py
	dist := math.Hypot(dx, dy)
	if dist < 1e-9 {
		dx, dy, dist = 0, -1, 1
	}
	need := radius + relaxMargin + math.Min(p.Box.W(), p.Box.H())/2
	if dist >= need {
		return false
	}
	step := need - dist
	shiftBox(p, d, dx/dist*step, dy/dist*step)
	return true
}

// OverlapCount reports how many box pairs still intersect after placement.
// Useful as a quality signal when rendering dense point sets.
func OverlapCount(placed []PlacedLabel) int {
	count := 0
	for i := 0; i < len(placed); i++ {
		for j := i + 1; j < len(placed); j++ {
			if placed[i].Box.Intersects(placed[j].Box) {
				count++
			}
		}
	}
	return count
}

// SortByAnchor orders labels top-to-bottom, left-to-right so that placement
// priority is deterministic for equal-priority inputs.
func SortByAnchor(labels []Label) {
	sort.SliceStable(labels, func(i, j int) bool {
		if labels[i].AnchorY != labels[j].AnchorY {
			return labels[i].AnchorY < labels[j].AnchorY
		}
		return labels[i].AnchorX < labels[j].AnchorX
	})
}
