// Package place defines the point records flowing through the pipeline: a
// raw spreadsheet row enriched with resolved coordinates, a category tag and
// per-label presentation state.
package place

import (
	"image/color"
	"strings"

	"github.com/google/uuid"

	"github.com/sells-group/placemap/internal/layout"
)

// TypeTag is the category assigned to a point. Categories select the pin and
// label colors.
type TypeTag string

const (
	TypeA TypeTag = "A"
	TypeB TypeTag = "B"
	TypeC TypeTag = "C"
	TypeD TypeTag = "D"
)

// ParseTypeTag normalizes a sheet cell to a TypeTag. Anything that is not a
// recognized tag, including an empty cell, coerces to TypeA rather than
// failing the row.
func ParseTypeTag(s string) TypeTag {
	switch TypeTag(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeB:
		return TypeB
	case TypeC:
		return TypeC
	case TypeD:
		return TypeD
	default:
		return TypeA
	}
}

// Record is one point on the map.
type Record struct {
	ID          uuid.UUID
	RawAddress  string
	DisplayName string
	Type        TypeTag
	Order       int

	Longitude       float64
	Latitude        float64
	ResolvedAddress string
	Resolved        bool

	LabelDir layout.Direction
	Visible  bool
}

// New builds a record from sheet fields, filling the defaults: the display
// name falls back to the address, the label starts at the top slot, and the
// point is visible until layout or the user hides it.
func New(rawAddress, displayName string, tag TypeTag, order int) Record {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = strings.TrimSpace(rawAddress)
	}
	return Record{
		ID:          uuid.New(),
		RawAddress:  strings.TrimSpace(rawAddress),
		DisplayName: name,
		Type:        tag,
		Order:       order,
		LabelDir:    layout.DirTop,
		Visible:     true,
	}
}

var palette = map[TypeTag]color.RGBA{
	TypeA: {R: 0x1A, G: 0x3A, B: 0x8F, A: 0xFF},
	TypeB: {R: 0xE8, G: 0x30, B: 0x30, A: 0xFF},
	TypeC: {R: 0x2A, G: 0x9A, B: 0x2A, A: 0xFF},
	TypeD: {R: 0xE8, G: 0x7A, B: 0x00, A: 0xFF},
}

// Color returns the category color for a record's pin and label text.
func (r Record) Color() color.RGBA {
	if c, ok := palette[r.Type]; ok {
		return c
	}
	return palette[TypeA]
}
