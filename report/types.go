// Package report decodes HID report descriptors into a structured item
// stream and provides bit-level codecs for reading and writing report
// buffers, per HID 1.11.
package report

import "fmt"

// Kind identifies which of the three HID report channels an item belongs to,
// or marks a structural Collection/EndCollection item.
type Kind uint8

const (
	Input Kind = iota
	Output
	Feature
	Collection
	EndCollection
)

func (k Kind) String() string {
	switch k {
	case Input:
		return "Input"
	case Output:
		return "Output"
	case Feature:
		return "Feature"
	case Collection:
		return "Collection"
	case EndCollection:
		return "EndCollection"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// CollectionKind is the data byte of a Collection main item (HID 1.11 §6.2.2.6).
type CollectionKind uint8

const (
	CollectionPhysical CollectionKind = iota
	CollectionApplication
	CollectionLogical
	CollectionReport
	CollectionNamedArray
	CollectionUsageSwitch
	CollectionUsageModifier
)

// Flags is the bitset carried by every Input/Output/Feature main item.
type Flags uint16

const (
	FlagConst Flags = 1 << iota
	FlagVariable
	FlagRelative
	FlagWrap
	FlagNonlinear
	FlagNoPref
	FlagNullState
	FlagVolatile
	FlagBuffered
)

// Array reports whether the field is an Array (index-reporting) field, i.e.
// FlagVariable is clear.
func (f Flags) Array() bool { return f&FlagVariable == 0 }

// Usage is a 32-bit HID usage: the high 16 bits are the usage page, the low
// 16 bits are the usage ID within that page.
type Usage uint32

// NewUsage composes a Usage from a page and an ID.
func NewUsage(page, id uint16) Usage {
	return Usage(uint32(page)<<16 | uint32(id))
}

// Page returns the usage page component.
func (u Usage) Page() uint16 { return uint16(u >> 16) }

// ID returns the usage ID component within its page.
func (u Usage) ID() uint16 { return uint16(u) }

func (u Usage) String() string {
	return fmt.Sprintf("%#04x:%#04x", u.Page(), u.ID())
}

// Location describes where a field lives within a report buffer.
type Location struct {
	BitPos  uint32 // offset from the start of the report body (after the ID byte, if any)
	BitSize uint32 // width of a single element
	Count   uint32 // number of elements at this location (only >1 for Array fields)
}

// AbsInfo carries the absolute-axis metadata HID exposes for a field: its
// logical range restated alongside a derived resolution. Present only when
// a field is absolute (FlagRelative clear).
type AbsInfo struct {
	Minimum    int32
	Maximum    int32
	Resolution int32
}

// Item is one emission of the descriptor parser: either a field placement
// (Input/Output/Feature) or a structural Collection/EndCollection marker.
// An Item is a value snapshot; it is never mutated after being produced by
// Parse or an iterator.
type Item struct {
	Kind            Kind
	CollectionKind  CollectionKind // meaningful only when Kind == Collection
	CollectionLevel int            // nesting depth, 1 for a top-level collection
	TLCIndex        int            // index of the enclosing top-level collection, -1 if none yet opened

	Usage        Usage
	UsageMinimum Usage
	UsageMaximum Usage

	Location Location

	LogicalMinimum   int32
	LogicalMaximum   int32
	PhysicalMinimum  int32
	PhysicalMaximum  int32
	Unit             uint32
	UnitExponent     int32
	ReportID         uint8
	Flags            Flags
}

// Signed reports whether field values should be sign-extended, per HID 1.11
// §5.8: a field is signed if either bound of its logical range is negative.
func (it Item) Signed() bool {
	return it.LogicalMinimum < 0 || it.LogicalMaximum < 0
}

// AbsInfo derives resolution metadata for an absolute field. ok is false for
// relative fields, matching locate()'s contract in spec §4.1.
func (it Item) AbsInfo() (info AbsInfo, ok bool) {
	if it.Flags&FlagRelative != 0 {
		return AbsInfo{}, false
	}
	info = AbsInfo{Minimum: it.LogicalMinimum, Maximum: it.LogicalMaximum}
	pRange := it.PhysicalMaximum - it.PhysicalMinimum
	if pRange != 0 {
		scale := int32(1)
		for e := it.UnitExponent; e > 0; e-- {
			scale *= 10
		}
		for e := it.UnitExponent; e < 0; e++ {
			scale /= 10
		}
		if scale != 0 {
			info.Resolution = (it.LogicalMaximum - it.LogicalMinimum) / (pRange * scale)
		}
	}
	return info, true
}

// TLC is one top-level (depth-1) collection found while parsing a
// descriptor: a logical sub-device within a physical device.
type TLC struct {
	Index     int
	Usage     Usage
	ReportIDs map[uint8]bool
}
