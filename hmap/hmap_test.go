package hmap_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhid/hidcore/bus"
	"github.com/quillhid/hidcore/hmap"
	"github.com/quillhid/hidcore/match"
	"github.com/quillhid/hidcore/report"
	"github.com/quillhid/hidcore/transport"
	"github.com/quillhid/hidcore/transport/faketransport"
)

type event struct {
	typ   hmap.EventType
	code  int
	value int32
}

type recordingSink struct {
	events []event
	syncs  int
}

func (s *recordingSink) Push(typ hmap.EventType, code int, value int32) {
	s.events = append(s.events, event{typ, code, value})
}

func (s *recordingSink) Sync() { s.syncs++ }

// buttonsAndRollover: TLC usage Button page with one 1-bit variable button
// (usage 1) padded to a byte, and a 2-slot array rollover field over usage
// range 0x04..0x06.
func buttonsAndRollover() []byte {
	return []byte{
		0x05, 0x09, // Usage Page (Button)
		0x09, 0x01, // Usage (1) -- used only as the TLC's own collection usage
		0xA1, 0x01, // Collection (Application)
		0x19, 0x01, //   Usage Minimum (1)
		0x29, 0x01, //   Usage Maximum (1)
		0x15, 0x00, //   Logical Minimum (0)
		0x25, 0x01, //   Logical Maximum (1)
		0x75, 0x01, //   Report Size (1)
		0x95, 0x01, //   Report Count (1)
		0x81, 0x02, //   Input (Data,Var,Abs) -- single button, bit 0 of byte 0
		0x95, 0x01, //   Report Count (1)
		0x75, 0x07, //   Report Size (7)
		0x81, 0x01, //   Input (Const) -- padding, rest of byte 0
		0x19, 0x04, //   Usage Minimum (4)
		0x29, 0x06, //   Usage Maximum (6)
		0x15, 0x04, //   Logical Minimum (4)
		0x25, 0x06, //   Logical Maximum (6)
		0x75, 0x08, //   Report Size (8)
		0x95, 0x02, //   Report Count (2)
		0x81, 0x00, //   Input (Data,Array) -- 2 rollover slots, bytes 1-2
		0xC0, // End Collection
	}
}

func attachMapper(t *testing.T, table []hmap.MapItem, sink hmap.EventSink) (*bus.Bus, *hmap.Mapper) {
	t.Helper()
	ft := faketransport.New(transport.DeviceInfo{}, buttonsAndRollover())
	m := hmap.New(table, sink, nil)
	factories := []bus.Factory{
		{Table: []match.Entry{{MatchFlag: match.MatchUsage, Usage: report.NewUsage(0x0009, 0x0001)}}, New: func(any) bus.Driver { return m }},
	}
	b, err := bus.Attach(context.Background(), ft, factories, nil)
	require.NoError(t, err)
	return b, m
}

func TestVariableDedupesAbsoluteRepeats(t *testing.T) {
	sink := &recordingSink{}
	table := []hmap.MapItem{
		hmap.Variable(report.NewUsage(0x0009, 0x0001), hmap.Key, 256, hmap.Any, true),
	}
	_, m := attachMapper(t, table, sink)

	m.Interrupt(context.Background(), 0, []byte{0x01, 0x00, 0x00})
	m.Interrupt(context.Background(), 0, []byte{0x01, 0x00, 0x00})
	m.Interrupt(context.Background(), 0, []byte{0x00, 0x00, 0x00})

	require.Len(t, sink.events, 2)
	assert.Equal(t, event{hmap.Key, 256, 1}, sink.events[0])
	assert.Equal(t, event{hmap.Key, 256, 0}, sink.events[1])
	assert.Equal(t, 2, sink.syncs)
}

func TestArrayRangeRolloverPressAndRelease(t *testing.T) {
	sink := &recordingSink{}
	table := []hmap.MapItem{
		hmap.ArrayRange(report.NewUsage(0x0009, 0x0004), report.NewUsage(0x0009, 0x0006), 100),
	}
	_, m := attachMapper(t, table, sink)

	// byte0 = button bit, bytes 1-2 = two rollover slots holding usage 4 and 5
	m.Interrupt(context.Background(), 0, []byte{0x00, 0x04, 0x05})
	require.Len(t, sink.events, 2)
	assert.ElementsMatch(t, []event{{hmap.Key, 100, 1}, {hmap.Key, 101, 1}}, sink.events)

	sink.events = nil
	m.Interrupt(context.Background(), 0, []byte{0x00, 0x04, 0x06})
	require.Len(t, sink.events, 2)
	assert.ElementsMatch(t, []event{{hmap.Key, 101, 0}, {hmap.Key, 102, 1}}, sink.events)

	sink.events = nil
	m.Interrupt(context.Background(), 0, []byte{0x00, 0x00, 0x00})
	require.Len(t, sink.events, 2)
	assert.ElementsMatch(t, []event{{hmap.Key, 100, 0}, {hmap.Key, 102, 0}}, sink.events)
}

func TestArrayListRolloverPressAndRelease(t *testing.T) {
	sink := &recordingSink{}
	table := []hmap.MapItem{
		hmap.ArrayList(
			[]report.Usage{report.NewUsage(0x0009, 0x0004), report.NewUsage(0x0009, 0x0005), report.NewUsage(0x0009, 0x0006)},
			[]int{200, 201, 202},
		),
	}
	_, m := attachMapper(t, table, sink)

	// byte0 = button bit, bytes 1-2 = two rollover slots holding usage 4 and 5
	m.Interrupt(context.Background(), 0, []byte{0x00, 0x04, 0x05})
	require.Len(t, sink.events, 2)
	assert.ElementsMatch(t, []event{{hmap.Key, 200, 1}, {hmap.Key, 201, 1}}, sink.events)

	sink.events = nil
	m.Interrupt(context.Background(), 0, []byte{0x00, 0x04, 0x06})
	require.Len(t, sink.events, 2)
	assert.ElementsMatch(t, []event{{hmap.Key, 201, 0}, {hmap.Key, 202, 1}}, sink.events)

	sink.events = nil
	m.Interrupt(context.Background(), 0, []byte{0x00, 0x00, 0x00})
	require.Len(t, sink.events, 2)
	assert.ElementsMatch(t, []event{{hmap.Key, 200, 0}, {hmap.Key, 202, 0}}, sink.events)
}

func TestRequiredEntryUnboundDeclinesBinding(t *testing.T) {
	sink := &recordingSink{}
	table := []hmap.MapItem{
		hmap.Variable(report.NewUsage(0x0001, 0x0030), hmap.Abs, 0, hmap.Any, true), // usage never present
	}
	ft := faketransport.New(transport.DeviceInfo{}, buttonsAndRollover())
	m := hmap.New(table, sink, nil)
	factories := []bus.Factory{
		{Table: []match.Entry{{MatchFlag: match.MatchUsage, Usage: report.NewUsage(0x0009, 0x0001)}}, New: func(any) bus.Driver { return m }},
	}
	_, err := bus.Attach(context.Background(), ft, factories, nil)
	require.NoError(t, err) // a declined probe is not a bus-attach failure

	// The child never bound to a driver, so interrupts never reach it and no
	// events are produced even though the Mapper itself exists.
	m.Interrupt(context.Background(), 0, []byte{0x01, 0x00, 0x00})
	assert.Empty(t, sink.events)
}

func TestCallbackFiresAttachRunDetach(t *testing.T) {
	var states []hmap.CallbackState
	table := []hmap.MapItem{
		hmap.Callback(report.NewUsage(0x0009, 0x0001), func(state hmap.CallbackState, item report.Item, value int32) {
			states = append(states, state)
		}, true),
	}
	sink := &recordingSink{}
	b, m := attachMapper(t, table, sink)
	require.Equal(t, []hmap.CallbackState{hmap.Attaching}, states)

	m.Interrupt(context.Background(), 0, []byte{0x01, 0x00, 0x00})
	require.Equal(t, []hmap.CallbackState{hmap.Attaching, hmap.Running}, states)

	b.Detach(context.Background())
	assert.Equal(t, []hmap.CallbackState{hmap.Attaching, hmap.Running, hmap.Detaching}, states)
}
