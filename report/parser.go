package report

import "iter"

// itemType distinguishes the three HID item categories encoded in the
// prefix byte's type field (HID 1.11 §6.2.2.2).
type itemType uint8

const (
	typeMain itemType = iota
	typeGlobal
	typeLocal
	typeReserved
)

const longItemPrefix = 0xFE

type posKey struct {
	kind Kind
	id   uint8
}

// globalState is the push/pop-able HID global item state (HID 1.11 §6.2.2.7).
type globalState struct {
	usagePage    uint16
	logicalMin   int32
	logicalMax   int32
	physicalMin  int32
	physicalMax  int32
	unit         uint32
	unitExponent int32
	reportSize   uint32
	reportID     uint8
	reportCount  uint32
}

// localState is cleared after every Main item.
type localState struct {
	usages       []Usage
	usageMin     Usage
	haveUsageMin bool
	usageMax     Usage
	haveUsageMax bool
}

func (l *localState) reset() { *l = localState{} }

// Descriptor is an immutable parsed HID report descriptor: the raw bytes
// plus the item stream and cached per-(kind,report_id) maxima.
type Descriptor struct {
	raw     []byte
	items   []Item
	tlcs    []TLC
	maxBits map[posKey]uint32
	// numberedKind records, for each Kind, whether any field of that kind
	// carries a non-zero report ID (used by SizeOfReport's +1 ID-byte rule).
	numberedKind map[Kind]bool
}

// Raw returns the original descriptor bytes.
func (d *Descriptor) Raw() []byte { return d.raw }

// TLCs returns the top-level collections found in textual order.
func (d *Descriptor) TLCs() []TLC { return d.tlcs }

// Items returns every item emitted by the parser, in textual order.
func (d *Descriptor) Items() []Item { return d.items }

// Parse decodes an HID report descriptor byte stream into a Descriptor.
// Truncated items, mismatched Push/Pop, or mismatched Collection/
// EndCollection stop the parser silently at the last consistent position;
// Parse never panics and never returns an error (per spec §4.1 and §7).
func Parse(data []byte) *Descriptor {
	d := &Descriptor{
		raw:          append([]byte(nil), data...),
		maxBits:      make(map[posKey]uint32),
		numberedKind: make(map[Kind]bool),
	}

	var (
		global     globalState
		globalStk  []globalState
		local      localState
		bitPos     = make(map[posKey]uint32)
		depth      = 0
		curTLC     = -1
		delimDepth = 0
		delimFirst = true
	)

	firstUsagePage := func() uint16 { return global.usagePage }

	i := 0
	for i < len(data) {
		prefix := data[i]
		if prefix == longItemPrefix {
			// Long item: prefix, data size, long-item tag, then size data bytes.
			if i+1 >= len(data) {
				return d
			}
			size := int(data[i+1])
			if i+3+size > len(data) {
				return d
			}
			i += 3 + size
			continue
		}

		tag := prefix >> 4
		typ := itemType((prefix >> 2) & 0x3)
		sizeCode := prefix & 0x3
		size := [4]int{0, 1, 2, 4}[sizeCode]
		if i+1+size > len(data) {
			return d
		}
		raw := data[i+1 : i+1+size]
		i += 1 + size

		uval := parseUnsigned(raw)
		sval := parseSigned(raw)

		switch typ {
		case typeMain:
			// A Main item ends the local state, including delimiter capture.
			delimFirst = true
			switch tag {
			case 0x8, 0x9, 0xB: // Input, Output, Feature
				var kind Kind
				switch tag {
				case 0x8:
					kind = Input
				case 0x9:
					kind = Output
				default:
					kind = Feature
				}
				emitMainField(d, kind, Flags(uval), &global, &local, bitPos, curTLC, depth)
				local.reset()
			case 0xA: // Collection
				ckind := CollectionKind(uval)
				depth++
				if depth == 1 {
					u := effectiveUsage(local, firstUsagePage())
					curTLC = len(d.tlcs)
					d.tlcs = append(d.tlcs, TLC{Index: curTLC, Usage: u, ReportIDs: make(map[uint8]bool)})
				}
				d.items = append(d.items, Item{
					Kind:            Collection,
					CollectionKind:  ckind,
					CollectionLevel: depth,
					TLCIndex:        curTLC,
					Usage:           effectiveUsage(local, firstUsagePage()),
				})
				local.reset()
			case 0xC: // End Collection
				if depth == 0 {
					return d
				}
				d.items = append(d.items, Item{
					Kind:            EndCollection,
					CollectionLevel: depth,
					TLCIndex:        curTLC,
				})
				depth--
				if depth == 0 {
					curTLC = -1
				}
				local.reset()
			default:
				// Unknown main tag: consumed, local state still clears per spec.
				local.reset()
			}

		case typeGlobal:
			switch tag {
			case 0x0:
				global.usagePage = uint16(uval)
			case 0x1:
				global.logicalMin = sval
			case 0x2:
				global.logicalMax = sval
			case 0x3:
				global.physicalMin = sval
			case 0x4:
				global.physicalMax = sval
			case 0x5:
				global.unitExponent = sval
			case 0x6:
				global.unit = uval
			case 0x7:
				global.reportSize = uval
			case 0x8:
				global.reportID = uint8(uval)
			case 0x9:
				global.reportCount = uval
			case 0xA: // Push
				globalStk = append(globalStk, global)
			case 0xB: // Pop
				if len(globalStk) == 0 {
					return d
				}
				global = globalStk[len(globalStk)-1]
				globalStk = globalStk[:len(globalStk)-1]
			}

		case typeLocal:
			switch tag {
			case 0x0: // Usage
				u := parseLocalUsage(uval, size, firstUsagePage())
				if delimDepth == 0 || delimFirst {
					local.usages = append(local.usages, u)
				}
			case 0x1: // Usage Minimum
				u := parseLocalUsage(uval, size, firstUsagePage())
				if delimDepth == 0 || delimFirst {
					local.usageMin = u
					local.haveUsageMin = true
				}
			case 0x2: // Usage Maximum
				u := parseLocalUsage(uval, size, firstUsagePage())
				if delimDepth == 0 || delimFirst {
					local.usageMax = u
					local.haveUsageMax = true
				}
			case 0xA: // Delimiter
				if uval != 0 {
					delimDepth++
				} else if delimDepth > 0 {
					delimDepth--
					if delimDepth == 0 {
						delimFirst = false
					}
				}
			// Designator*/String* (0x3-0x5, 0x7-0x9): consumed, not retained;
			// spec's Item attributes do not surface them.
			default:
			}
		case typeReserved:
			// Unknown/reserved item: skip.
		}
	}
	return d
}

// emitMainField applies the Input/Output/Feature emission rules of spec §4.1.
func emitMainField(d *Descriptor, kind Kind, flags Flags, g *globalState, l *localState, bitPos map[posKey]uint32, curTLC, depth int) {
	key := posKey{kind: kind, id: g.reportID}
	start := bitPos[key]

	base := Item{
		Kind:            kind,
		CollectionLevel: depth,
		TLCIndex:        curTLC,
		LogicalMinimum:  g.logicalMin,
		LogicalMaximum:  g.logicalMax,
		PhysicalMinimum: g.physicalMin,
		PhysicalMaximum: g.physicalMax,
		Unit:            g.unit,
		UnitExponent:    g.unitExponent,
		ReportID:        g.reportID,
		Flags:           flags,
	}

	if g.reportID != 0 {
		d.numberedKind[kind] = true
		if curTLC >= 0 {
			d.tlcs[curTLC].ReportIDs[g.reportID] = true
		}
	}

	if flags&FlagVariable != 0 {
		for n := uint32(0); n < g.reportCount; n++ {
			it := base
			it.Usage = nthUsage(*l, n)
			it.Location = Location{BitPos: start + n*g.reportSize, BitSize: g.reportSize, Count: 1}
			d.items = append(d.items, it)
		}
	} else {
		it := base
		it.UsageMinimum = l.usageMin
		it.UsageMaximum = l.usageMax
		it.Location = Location{BitPos: start, BitSize: g.reportSize, Count: g.reportCount}
		d.items = append(d.items, it)
	}

	total := g.reportCount * g.reportSize
	bitPos[key] = start + total
	d.maxBits[key] = bitPos[key]
}

// nthUsage picks the usage for the nth variable-field element: the nth
// explicit usage, or the last explicit usage once the list is exhausted, or
// usageMin+n when only a range was declared.
func nthUsage(l localState, n uint32) Usage {
	if len(l.usages) > 0 {
		idx := n
		if idx >= uint32(len(l.usages)) {
			idx = uint32(len(l.usages) - 1)
		}
		return l.usages[idx]
	}
	if l.haveUsageMin {
		return NewUsage(l.usageMin.Page(), l.usageMin.ID()+uint16(n))
	}
	return 0
}

// effectiveUsage returns the usage a Collection item should report: its
// first explicit usage, or its usage-minimum, or usage ID 0 on the current
// usage page.
func effectiveUsage(l localState, page uint16) Usage {
	if len(l.usages) > 0 {
		return l.usages[0]
	}
	if l.haveUsageMin {
		return l.usageMin
	}
	return NewUsage(page, 0)
}

func parseLocalUsage(uval uint32, size int, page uint16) Usage {
	if size == 4 {
		return Usage(uval)
	}
	return NewUsage(page, uint16(uval))
}

func parseUnsigned(b []byte) uint32 {
	var v uint32
	for i, c := range b {
		v |= uint32(c) << (8 * uint(i))
	}
	return v
}

func parseSigned(b []byte) int32 {
	v := parseUnsigned(b)
	switch len(b) {
	case 1:
		return int32(int8(v))
	case 2:
		return int32(int16(v))
	default:
		return int32(v)
	}
}

// IterateTLC returns a lazy sequence over only the items whose enclosing
// top-level collection is tlcIndex, in textual order (spec §4.1).
func (d *Descriptor) IterateTLC(tlcIndex int) iter.Seq[Item] {
	return func(yield func(Item) bool) {
		for _, it := range d.items {
			if it.TLCIndex != tlcIndex {
				continue
			}
			if !yield(it) {
				return
			}
		}
	}
}

// HasNumberedReports reports whether any field in the descriptor, of any
// kind, carries a non-zero report ID. When false, interrupt reports carry
// no ID prefix byte (spec §4.4: "if report IDs are present the first byte
// is the ID; otherwise treat as ID=0").
func (d *Descriptor) HasNumberedReports() bool {
	for _, v := range d.numberedKind {
		if v {
			return true
		}
	}
	return false
}

// SizeOfReport returns the minimum number of bytes needed to hold every
// field of the given (kind, report_id), rounded up to a whole byte, plus one
// for the report-ID prefix byte if any report of that kind is numbered.
func (d *Descriptor) SizeOfReport(kind Kind, reportID uint8) int {
	bits := d.maxBits[posKey{kind: kind, id: reportID}]
	size := int((bits + 7) / 8)
	if d.numberedKind[kind] {
		size++
	}
	return size
}

// Locate returns the location of the nth (0-based, via occurrence) non-constant
// field in the given TLC whose usage matches, along with its flags, report ID,
// and absolute-axis info when applicable. ok is false if no such field exists.
func Locate(d *Descriptor, usage Usage, kind Kind, tlcIndex int, occurrence int) (loc Location, flags Flags, reportID uint8, abs AbsInfo, absOK bool, ok bool) {
	seen := 0
	for it := range d.IterateTLC(tlcIndex) {
		if it.Kind != kind || it.Flags&FlagConst != 0 {
			continue
		}
		matches := it.Usage == usage
		if it.Flags.Array() {
			matches = usage >= it.UsageMinimum && usage <= it.UsageMaximum
		}
		if !matches {
			continue
		}
		if seen != occurrence {
			seen++
			continue
		}
		abs, absOK = it.AbsInfo()
		return it.Location, it.Flags, it.ReportID, abs, absOK, true
	}
	return Location{}, 0, 0, AbsInfo{}, false, false
}
