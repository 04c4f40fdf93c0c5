// Package bus implements the transport-agnostic core of spec §4.4: it parses
// a transport's report descriptor, creates one child binding per top-level
// collection, fans interrupt reports out to whichever children subscribed to
// them, and exposes the transfer-subscription/union bookkeeping that decides
// when the transport's interrupt pipe should be running at all.
package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/quillhid/hidcore/hiderr"
	"github.com/quillhid/hidcore/match"
	"github.com/quillhid/hidcore/quirk"
	"github.com/quillhid/hidcore/report"
	"github.com/quillhid/hidcore/transport"
)

// XferFlag is the transfer-subscription bitmask a Driver requests via
// ChildHandle.SetXfer.
type XferFlag uint8

const (
	XferRead XferFlag = 1 << iota
	XferWrite
	XferGetReport
	XferSetReport
)

// Shape records the device-wide traits some hosts use to pick a parent lock
// (spec §4.4 step 2: "some hosts require the system-console lock for
// keyboards so early-boot input keeps working").
type Shape struct {
	IsKeyboard  bool
	IsMouse     bool
	HasTouchpad bool
}

// Driver is what a function driver (keyboard, mouse, touchpad, raw
// passthrough, ...) implements to bind to one TLC.
type Driver interface {
	// Attach is called once, with the child's subscription and passthrough
	// surface, while the bus's attach sequence is running. Returning an
	// error leaves the TLC unbound; the bus tries the next Factory.
	Attach(h *ChildHandle) error
	// Interrupt delivers one input report belonging to this TLC. It runs
	// with the bus lock held (spec §4.3): it must not block, and must not
	// call SetXfer, Open, Close, or a synchronous GetReport/SetReport.
	Interrupt(ctx context.Context, reportID uint8, data []byte)
	// Detach releases any driver-owned state. Called at bus detach.
	Detach()
}

// Factory is one entry in the ordered list of candidate drivers a bus tries
// against each TLC: Table is scanned via match.Find, and on a match New
// constructs the Driver that attachChild then calls Attach on.
type Factory struct {
	Table []match.Entry
	New   func(driverInfo any) Driver
}

// child is the bus's private per-TLC binding. ChildHandle is the restricted
// view of it a Driver receives.
type child struct {
	tlcIndex   int
	usage      report.Usage
	driverInfo any
	driver     Driver
	xfer       XferFlag
}

// ChildHandle is the handle a Driver uses to subscribe to transfers, reach
// sibling children, and pass requests through to the transport.
type ChildHandle struct {
	bus *Bus
	c   *child
}

// Usage returns the handle's TLC usage.
func (h *ChildHandle) Usage() report.Usage { return h.c.usage }

// TLCIndex returns the handle's zero-based top-level-collection index.
func (h *ChildHandle) TLCIndex() int { return h.c.tlcIndex }

// DriverInfo returns the opaque token the device matcher copied in.
func (h *ChildHandle) DriverInfo() any { return h.c.driverInfo }

// Descriptor returns the parsed report descriptor shared by the whole bus.
func (h *ChildHandle) Descriptor() *report.Descriptor { return h.bus.desc }

// Logger returns the bus-wide logger, ready for a driver to add its own
// attrs via .With(...).
func (h *ChildHandle) Logger() *slog.Logger { return h.bus.logger }

// Quirks returns the device's merged quirk set.
func (h *ChildHandle) Quirks() *quirk.Set { return h.bus.quirks }

// Info returns the transport-reported device identity.
func (h *ChildHandle) Info() transport.DeviceInfo { return h.bus.info }

// Shape returns the device-wide shape flags computed at attach.
func (h *ChildHandle) Shape() Shape { return h.bus.shape }

// SetXfer updates this child's transfer-subscription mask and recomputes the
// bus-wide union, starting or stopping the transport's interrupt pipe on a
// 0↔non-zero transition (spec §4.4). Must not be called from Interrupt.
func (h *ChildHandle) SetXfer(ctx context.Context, mask XferFlag) error {
	h.bus.mu.Lock()
	defer h.bus.mu.Unlock()
	h.c.xfer = mask
	return h.bus.recomputeXferLocked(ctx)
}

// Open is the simpler "just READ" subscription wrapper spec §4.4 describes
// as mutually exclusive, per child, with SetXfer: it requests XferRead.
func (h *ChildHandle) Open(ctx context.Context) error {
	return h.SetXfer(ctx, XferRead)
}

// Close is Open's inverse: it clears this child's subscription entirely.
func (h *ChildHandle) Close(ctx context.Context) error {
	return h.SetXfer(ctx, 0)
}

// FindChild performs the linear usage scan spec §4.4 describes, letting one
// driver decline to bind when another has already claimed a matching usage
// (e.g. a proprietary touchpad driver yielding to a HID-standard one).
func (h *ChildHandle) FindChild(usage report.Usage) (*ChildHandle, bool) {
	h.bus.mu.Lock()
	defer h.bus.mu.Unlock()
	for _, c := range h.bus.children {
		if c.usage == usage && c.driver != nil {
			return &ChildHandle{bus: h.bus, c: c}, true
		}
	}
	return nil, false
}

// GetReport passes a synchronous get_report through to the transport.
func (h *ChildHandle) GetReport(ctx context.Context, typ transport.ReportType, id uint8, maxLen int) ([]byte, error) {
	return h.bus.transport.GetReport(ctx, typ, id, maxLen)
}

// SetReport passes a synchronous set_report through to the transport,
// refusing with hiderr.KindUnsupported when the device's quirks say NoWrite.
func (h *ChildHandle) SetReport(ctx context.Context, typ transport.ReportType, id uint8, data []byte) error {
	if h.bus.quirks.Test(quirk.NoWrite) {
		return hiderr.Unsupported("child.set_report")
	}
	return h.bus.transport.SetReport(ctx, typ, id, data)
}

// Write passes a raw output report through to the transport, subject to the
// same NoWrite quirk check as SetReport.
func (h *ChildHandle) Write(ctx context.Context, data []byte) error {
	if h.bus.quirks.Test(quirk.NoWrite) {
		return hiderr.Unsupported("child.write")
	}
	return h.bus.transport.Write(ctx, data)
}

// Bus is the attached runtime state of one physical device: its transport,
// parsed descriptor, quirk set, and the per-TLC children bound to it.
type Bus struct {
	mu sync.Mutex

	transport transport.Transport
	desc      *report.Descriptor
	info      transport.DeviceInfo
	quirks    *quirk.Set
	logger    *slog.Logger
	shape     Shape

	children   []*child
	intrActive bool
}

// Descriptor returns the bus's parsed report descriptor.
func (b *Bus) Descriptor() *report.Descriptor { return b.desc }

// Shape returns the device-wide shape flags computed at attach.
func (b *Bus) Shape() Shape { return b.shape }

// Quirks returns the device's merged quirk set.
func (b *Bus) Quirks() *quirk.Set { return b.quirks }

// Info returns the transport-reported device identity.
func (b *Bus) Info() transport.DeviceInfo { return b.info }

// IntrActive reports whether the transport's interrupt pipe is currently
// running, i.e. whether any child's xfer mask is non-zero.
func (b *Bus) IntrActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.intrActive
}

// Attach runs the spec §4.4 attach sequence: fetch the descriptor, derive
// the device's shape, create one child per top-level collection, register
// the fan-out as the transport's interrupt callback, then offer each child
// to the ordered factories in turn.
func Attach(ctx context.Context, t transport.Transport, factories []Factory, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info := t.Info()

	raw, err := t.GetReportDescriptor(ctx)
	if err != nil {
		return nil, hiderr.Wrap("bus.attach.get_report_descr", err)
	}
	desc := report.Parse(raw)

	qs := quirk.NewSet(info.VendorID, info.ProductID, info.Version)
	if qs.Test(quirk.Ignore) {
		return nil, hiderr.NoMatch("bus.attach")
	}

	b := &Bus{
		transport: t,
		desc:      desc,
		info:      info,
		quirks:    qs,
		logger:    logger,
		shape:     deriveShape(desc),
	}

	for _, tlc := range desc.TLCs() {
		b.children = append(b.children, &child{tlcIndex: tlc.Index, usage: tlc.Usage})
	}

	reportSizes := make(map[uint8]int)
	if desc.HasNumberedReports() {
		for _, tlc := range desc.TLCs() {
			for id := range tlc.ReportIDs {
				reportSizes[id] = desc.SizeOfReport(report.Input, id)
			}
		}
	} else {
		reportSizes[0] = desc.SizeOfReport(report.Input, 0)
	}

	if err := t.IntrSetup(b.dispatch, reportSizes); err != nil {
		return nil, hiderr.Wrap("bus.attach.intr_setup", err)
	}

	for _, c := range b.children {
		b.attachChild(c, factories)
	}

	return b, nil
}

// Detach tears down every bound child and, if the interrupt pipe is still
// running, stops it.
func (b *Bus) Detach(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.children {
		if c.driver != nil {
			c.driver.Detach()
			c.driver = nil
		}
		c.xfer = 0
	}
	if b.intrActive {
		b.transport.IntrStop(ctx)
		b.intrActive = false
	}
}

// attachChild offers c to each factory in order, stopping at the first one
// whose table matches and whose Driver.Attach succeeds.
func (b *Bus) attachChild(c *child, factories []Factory) {
	for _, f := range factories {
		driverInfo, ok := match.Find(f.Table, b.info, c.usage)
		if !ok {
			continue
		}
		drv := f.New(driverInfo)
		h := &ChildHandle{bus: b, c: c}
		if err := drv.Attach(h); err != nil {
			b.logger.Warn("driver attach declined", "tlc_index", c.tlcIndex, "usage", c.usage, "err", err)
			continue
		}
		c.driverInfo = driverInfo
		c.driver = drv
		return
	}
}

// dispatch is the transport's registered interrupt callback: it strips the
// report-ID prefix byte when the descriptor uses numbered reports, then
// delivers to every child subscribed to XferRead. With numbered reports, a
// child only receives the report IDs its own TLC declares.
func (b *Bus) dispatch(ctx context.Context, buf []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	reportID := uint8(0)
	data := buf
	if b.desc.HasNumberedReports() {
		if len(buf) == 0 {
			return
		}
		reportID = buf[0]
		data = buf[1:]
	}

	tlcs := b.desc.TLCs()
	for _, c := range b.children {
		if c.driver == nil || c.xfer&XferRead == 0 {
			continue
		}
		if b.desc.HasNumberedReports() && !tlcs[c.tlcIndex].ReportIDs[reportID] {
			continue
		}
		c.driver.Interrupt(ctx, reportID, data)
	}
}

// recomputeXferLocked recomputes the union of every child's xfer mask and
// starts or stops the transport's interrupt pipe on a 0↔non-zero transition.
// Callers must hold b.mu.
func (b *Bus) recomputeXferLocked(ctx context.Context) error {
	var union XferFlag
	for _, c := range b.children {
		union |= c.xfer
	}
	switch {
	case !b.intrActive && union != 0:
		if err := b.transport.IntrStart(ctx); err != nil {
			return hiderr.Wrap("bus.intr_start", err)
		}
		b.intrActive = true
	case b.intrActive && union == 0:
		if err := b.transport.IntrStop(ctx); err != nil {
			return hiderr.Wrap("bus.intr_stop", err)
		}
		b.intrActive = false
	}
	return nil
}

// deriveShape inspects each top-level collection's usage against the
// Generic Desktop and Digitizer usage pages to set the shape flags spec
// §4.4 step 2 calls for.
func deriveShape(desc *report.Descriptor) Shape {
	var s Shape
	const (
		pageGenericDesktop = 0x0001
		usageKeyboard      = 0x0006
		usageMouse         = 0x0002
		pageDigitizer      = 0x000D
		usageTouchPad      = 0x0005
	)
	for _, tlc := range desc.TLCs() {
		switch {
		case tlc.Usage == report.NewUsage(pageGenericDesktop, usageKeyboard):
			s.IsKeyboard = true
		case tlc.Usage == report.NewUsage(pageGenericDesktop, usageMouse):
			s.IsMouse = true
		case tlc.Usage == report.NewUsage(pageDigitizer, usageTouchPad):
			s.HasTouchpad = true
		}
	}
	return s
}
