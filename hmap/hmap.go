// Package hmap implements the generic usage→event mapper of spec §4.6: a
// Driver whose behavior is entirely declared by a table of MapItem entries,
// so a new device shape rarely needs a hand-written driver, only a new table.
package hmap

import (
	"context"

	"github.com/quillhid/hidcore/bus"
	"github.com/quillhid/hidcore/hiderr"
	"github.com/quillhid/hidcore/report"
)

// EventType is the class of event a binding emits, mirroring evdev's
// EV_KEY/EV_REL/EV_ABS families without depending on a concrete sink.
type EventType uint8

const (
	Key EventType = iota
	Rel
	Abs
)

// RelAbs constrains which flavor of field a Variable entry may bind to.
type RelAbs uint8

const (
	Any RelAbs = iota
	Relative
	Absolute
)

// CallbackState tells a Callback entry's function which phase of the
// Driver lifecycle it is being invoked from.
type CallbackState uint8

const (
	Attaching CallbackState = iota
	Running
	Detaching
)

// CallbackFunc is a Callback entry's handler. At Attaching it is invoked once,
// for the item its entry bound, with value 0, so it can register the events
// it may emit;
// at Running it is invoked with the field's current value on every interrupt
// that carries it; at Detaching it is invoked once more for cleanup.
type CallbackFunc func(state CallbackState, item report.Item, value int32)

// EventSink is what a Mapper pushes translated events into — an evdev-style
// external collaborator this module does not implement (spec §1's Non-goals).
type EventSink interface {
	Push(eventType EventType, code int, value int32)
	// Sync marks the end of one coalesced group of events, the way evdev's
	// EV_SYN/SYN_REPORT does.
	Sync()
}

type itemKind uint8

const (
	kindVariable itemKind = iota
	kindArrayRange
	kindArrayList
	kindCallback
)

// MapItem is one declarative binding rule. Construct with Variable,
// ArrayRange, ArrayList, or Callback — the zero value is not usable.
type MapItem struct {
	kind itemKind

	usage    report.Usage
	usageMin report.Usage
	usageMax report.Usage

	eventType EventType
	eventCode int
	relabs    RelAbs
	required  bool

	eventCodeBase int

	listUsages []report.Usage
	listCodes  []int

	callback CallbackFunc
}

// Variable binds a single variable field by usage to an event code.
func Variable(usage report.Usage, eventType EventType, eventCode int, relabs RelAbs, required bool) MapItem {
	return MapItem{kind: kindVariable, usage: usage, eventType: eventType, eventCode: eventCode, relabs: relabs, required: required}
}

// ArrayRange binds an array field whose usage range intersects
// [usageMin, usageMax] to a contiguous run of KEY codes starting at
// eventCodeBase.
func ArrayRange(usageMin, usageMax report.Usage, eventCodeBase int) MapItem {
	return MapItem{kind: kindArrayRange, usageMin: usageMin, usageMax: usageMax, eventCodeBase: eventCodeBase}
}

// ArrayList binds an array field by enumerating each usage's event code
// explicitly; usages and eventCodes must be the same length.
func ArrayList(usages []report.Usage, eventCodes []int) MapItem {
	return MapItem{kind: kindArrayList, listUsages: usages, listCodes: eventCodes}
}

// Callback binds a single usage to an ad-hoc handler function.
func Callback(usage report.Usage, fn CallbackFunc, required bool) MapItem {
	return MapItem{kind: kindCallback, usageMin: usage, usageMax: usage, callback: fn, required: required}
}

// CallbackRange binds a usage range to an ad-hoc handler function.
func CallbackRange(usageMin, usageMax report.Usage, fn CallbackFunc, required bool) MapItem {
	return MapItem{kind: kindCallback, usageMin: usageMin, usageMax: usageMax, callback: fn, required: required}
}

type bindKind uint8

const (
	boundVariable bindKind = iota
	boundVariableNullState
	boundArrayRange
	boundArrayList
	boundCallback
)

// parsedItem is one field the attach-phase parse bound to a MapItem.
type parsedItem struct {
	reportID    uint8
	loc         report.Location
	logicalMin  int32
	logicalMax  int32
	signed      bool
	relative    bool
	kind        bindKind
	item        report.Item
	eventType   EventType
	eventCode   int
	eventCodeBase int
	listUsages  []report.Usage
	listCodes   []int
	callback    CallbackFunc

	hasLastValue bool
	lastValue    int32
	heldKeys     map[int32]bool
}

// Mapper is a bus.Driver whose behavior is entirely declared by its MapItem
// table, implementing the parse/run/detach lifecycle of spec §4.6.
type Mapper struct {
	table      []MapItem
	sink       EventSink
	completion func()

	handle *bus.ChildHandle
	parsed []*parsedItem
}

// New builds a Mapper. completion, if non-nil, runs once after every
// interrupt cycle that produced at least one event (spec's "completion
// callback"), before the sync event is pushed.
func New(table []MapItem, sink EventSink, completion func()) *Mapper {
	return &Mapper{table: table, sink: sink, completion: completion}
}

// Attach implements bus.Driver: it walks every non-constant Input item in
// the bound TLC, binds each to every applicable MapItem entry that is not
// yet bound (so an entry binds at most one item, the first that applies),
// fires Attaching callbacks, and fails if any entry flagged required went
// unbound.
func (m *Mapper) Attach(h *bus.ChildHandle) error {
	m.handle = h
	desc := h.Descriptor()

	bound := make([]bool, len(m.table))
	for it := range desc.IterateTLC(h.TLCIndex()) {
		if it.Kind != report.Input || it.Flags&report.FlagConst != 0 {
			continue
		}
		for idx := range m.table {
			if bound[idx] {
				continue
			}
			mi := &m.table[idx]
			p, ok := bindItem(mi, it)
			if !ok {
				continue
			}
			bound[idx] = true
			m.parsed = append(m.parsed, p)
		}
	}

	for idx, mi := range m.table {
		if mi.required && !bound[idx] {
			return hiderr.Invalid("hmap.attach", nil)
		}
	}

	for _, p := range m.parsed {
		if p.kind == boundCallback {
			p.callback(Attaching, p.item, 0)
		}
	}

	return nil
}

// Interrupt implements bus.Driver: spec §4.6's run phase.
func (m *Mapper) Interrupt(ctx context.Context, reportID uint8, data []byte) {
	any := false
	for _, p := range m.parsed {
		if p.reportID != reportID {
			continue
		}
		switch p.kind {
		case boundVariable, boundVariableNullState:
			v := readValue(data, p.loc, p.signed)
			if p.kind == boundVariableNullState && (v < p.logicalMin || v > p.logicalMax) {
				continue
			}
			if !p.relative && p.hasLastValue && v == p.lastValue {
				continue
			}
			p.lastValue = v
			p.hasLastValue = true
			m.sink.Push(p.eventType, p.eventCode, v)
			any = true

		case boundArrayRange:
			current := currentArrayValues(data, p)
			if m.dispatchArrayTransition(p, current, func(v int32) int {
				return p.eventCodeBase + int(v-p.logicalMin)
			}) {
				any = true
			}

		case boundArrayList:
			current := currentArrayValues(data, p)
			if m.dispatchArrayTransition(p, current, func(v int32) int {
				usage := report.NewUsage(p.item.UsageMinimum.Page(), p.item.UsageMinimum.ID()+uint16(v-p.logicalMin))
				for i, u := range p.listUsages {
					if u == usage {
						return p.listCodes[i]
					}
				}
				return -1
			}) {
				any = true
			}

		case boundCallback:
			v := readValue(data, p.loc, p.signed)
			p.callback(Running, p.item, v)
			any = true
		}
	}

	if any {
		if m.completion != nil {
			m.completion()
		}
		m.sink.Sync()
	}
}

// Detach implements bus.Driver: fires Detaching callbacks.
func (m *Mapper) Detach() {
	for _, p := range m.parsed {
		if p.kind == boundCallback {
			p.callback(Detaching, p.item, 0)
		}
	}
}

// dispatchArrayTransition diffs the currently-reported array values against
// the previously held set, releasing codes no longer present and pressing
// codes newly present (spec §4.6: "releasing the previously held key").
// lookup maps a reported value to its event code, or returns a negative code
// to mean "no mapping, drop this value."
func (m *Mapper) dispatchArrayTransition(p *parsedItem, current map[int32]bool, lookup func(int32) int) bool {
	any := false
	if p.heldKeys == nil {
		p.heldKeys = make(map[int32]bool)
	}
	for v := range p.heldKeys {
		if !current[v] {
			if code := lookup(v); code >= 0 {
				m.sink.Push(Key, code, 0)
				any = true
			}
		}
	}
	for v := range current {
		if !p.heldKeys[v] {
			if code := lookup(v); code >= 0 {
				m.sink.Push(Key, code, 1)
				any = true
			}
		}
	}
	p.heldKeys = current
	return any
}

func currentArrayValues(data []byte, p *parsedItem) map[int32]bool {
	current := make(map[int32]bool)
	for idx := uint32(0); idx < p.loc.Count; idx++ {
		v := readValueAt(data, p.loc, idx, p.signed)
		if report.Clamp(v, p.logicalMin, p.logicalMax) != v {
			continue
		}
		current[v] = true
	}
	return current
}

func readValue(data []byte, loc report.Location, signed bool) int32 {
	if signed {
		return report.GetSigned(data, loc)
	}
	return int32(report.GetUnsigned(data, loc))
}

func readValueAt(data []byte, loc report.Location, idx uint32, signed bool) int32 {
	if signed {
		return report.GetSignedAt(data, loc, idx)
	}
	return int32(report.GetUnsignedAt(data, loc, idx))
}

// bindItem tests whether mi applies to it, returning the parsedItem to bind
// if so. Implements can_map_variable/can_map_array_range/can_map_array_list/
// can_map_callback from spec §4.6.
func bindItem(mi *MapItem, it report.Item) (*parsedItem, bool) {
	signed := it.Signed()
	base := &parsedItem{
		reportID:   it.ReportID,
		loc:        it.Location,
		logicalMin: it.LogicalMinimum,
		logicalMax: it.LogicalMaximum,
		signed:     signed,
		relative:   it.Flags&report.FlagRelative != 0,
		item:       it,
	}

	switch mi.kind {
	case kindVariable:
		if it.Flags.Array() || it.Usage != mi.usage {
			return nil, false
		}
		if !relabsMatches(mi.relabs, base.relative) {
			return nil, false
		}
		kind := boundVariable
		if it.Flags&report.FlagNullState != 0 {
			kind = boundVariableNullState
		}
		base.kind = kind
		base.eventType = mi.eventType
		base.eventCode = mi.eventCode
		return base, true

	case kindArrayRange:
		if !it.Flags.Array() {
			return nil, false
		}
		if it.UsageMaximum < mi.usageMin || it.UsageMinimum > mi.usageMax {
			return nil, false
		}
		base.kind = boundArrayRange
		base.eventCodeBase = mi.eventCodeBase
		return base, true

	case kindArrayList:
		if !it.Flags.Array() {
			return nil, false
		}
		matches := false
		for _, u := range mi.listUsages {
			if u >= it.UsageMinimum && u <= it.UsageMaximum {
				matches = true
				break
			}
		}
		if !matches {
			return nil, false
		}
		base.kind = boundArrayList
		base.listUsages = mi.listUsages
		base.listCodes = mi.listCodes
		return base, true

	case kindCallback:
		if it.Usage < mi.usageMin || it.Usage > mi.usageMax {
			if !(it.Flags.Array() && it.UsageMaximum >= mi.usageMin && it.UsageMinimum <= mi.usageMax) {
				return nil, false
			}
		}
		base.kind = boundCallback
		base.callback = mi.callback
		return base, true
	}
	return nil, false
}

func relabsMatches(policy RelAbs, relative bool) bool {
	switch policy {
	case Relative:
		return relative
	case Absolute:
		return !relative
	default:
		return true
	}
}
