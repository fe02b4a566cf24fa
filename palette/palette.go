// Package palette resolves palette translations to stable remap identities.
//
// A Translation packs a table kind and an index. Luminosity translations are
// generated on the fly from a color ramp and are identified by their value;
// every other translation names a Remap stored in a Table.
package palette

import (
	"errors"
	"fmt"
	"image/color"
)

// Translation selects a palette remap. Zero means untranslated.
type Translation int32

// Kind identifies a translation table.
type Kind uint16

// Translation table kinds.
const (
	KindNone Kind = iota
	KindStandard
	KindPlayers
	KindDecals
	KindBlood
	KindLuminosity Kind = 0x7f00
)

const kindShift = 16

// MakeTranslation packs a kind and index into a Translation.
func MakeTranslation(kind Kind, index int) Translation {
	return Translation(int32(kind)<<kindShift | int32(index&0xffff))
}

// Kind returns the table kind of t.
func (t Translation) Kind() Kind { return Kind(uint32(t) >> kindShift) }

// Index returns the table index of t.
func (t Translation) Index() int { return int(uint32(t) & 0xffff) }

// IsLuminosity reports whether t is a luminosity ramp translation.
func (t Translation) IsLuminosity() bool { return t.Kind() == KindLuminosity }

// String formats t as kind:index.
func (t Translation) String() string { return fmt.Sprintf("%d:%d", t.Kind(), t.Index()) }

// Remap maps palette indices to new indices and colors.
type Remap struct {
	id      uint64
	Remap   [256]uint8
	Palette [256]color.RGBA
}

// ID returns the stable identity assigned when the remap was added to a
// Table. It is zero for remaps not owned by a table.
func (r *Remap) ID() uint64 { return r.id }

// Identity returns a remap that maps every index to itself using pal.
func Identity(pal color.Palette) *Remap {
	r := &Remap{}
	for i := range r.Remap {
		r.Remap[i] = uint8(i)
		if i < len(pal) {
			r.Palette[i] = color.RGBAModel.Convert(pal[i]).(color.RGBA)
		}
	}
	return r
}

// Resolver maps a translation to its remap.
type Resolver interface {
	Resolve(t Translation) (*Remap, error)
}

// ErrUnknownTranslation is returned for translations with no remap.
var ErrUnknownTranslation = errors.New("palette: unknown translation")

// Table is a Resolver backed by per-kind slices of remaps.
// It is not safe for concurrent use.
type Table struct {
	kinds  map[Kind][]*Remap
	nextID uint64
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{kinds: make(map[Kind][]*Remap)}
}

// Add appends r to the kind's list and returns its translation.
func (tb *Table) Add(kind Kind, r *Remap) Translation {
	tb.nextID++
	r.id = tb.nextID
	list := tb.kinds[kind]
	tb.kinds[kind] = append(list, r)
	return MakeTranslation(kind, len(list))
}

// Replace swaps the remap at t for r. r receives a fresh identity so caches
// keyed on the old one no longer match.
func (tb *Table) Replace(t Translation, r *Remap) error {
	list := tb.kinds[t.Kind()]
	if t.Index() >= len(list) {
		return fmt.Errorf("%w: %s", ErrUnknownTranslation, t)
	}
	tb.nextID++
	r.id = tb.nextID
	list[t.Index()] = r
	return nil
}

// Resolve implements Resolver.
func (tb *Table) Resolve(t Translation) (*Remap, error) {
	list := tb.kinds[t.Kind()]
	if t.Index() >= len(list) || list[t.Index()] == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTranslation, t)
	}
	return list[t.Index()], nil
}
