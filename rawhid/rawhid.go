// Package rawhid implements the raw character interface of spec §4.7: a
// per-open-file-description ring buffer of input reports plus the ioctl-style
// surface of spec §6, bound to one TLC as a bus.Driver. It stands in for the
// platform's uhid/hidraw device node, which this module does not implement.
package rawhid

import (
	"context"
	"errors"
	"sync"

	"github.com/quillhid/hidcore/bus"
	"github.com/quillhid/hidcore/hiderr"
	"github.com/quillhid/hidcore/report"
	"github.com/quillhid/hidcore/transport"
)

// DefaultRingSize is the default number of ring slots (spec §3: "bounded to
// N entries (default 64)"). One slot is always kept empty to disambiguate
// full from empty, so usable capacity is DefaultRingSize-1.
const DefaultRingSize = 64

// Mode selects how Read frames a dequeued report and how Write validates its
// input, the two behaviors spec §4.7 says "differ... in how a read response
// is framed and how buffer sizing works."
type Mode uint8

const (
	// ModeHidraw returns one variable-length report per Read call; Write's
	// first byte is the report ID (0 = none).
	ModeHidraw Mode = iota
	// ModeUhid returns one report per Read call, zero-padded to fill the
	// caller's buffer (a longer report is truncated to it); reads are not
	// framed to the device's input report size. Write requires the exact
	// output report size.
	ModeUhid
)

// ErrWouldBlock is returned by a non-blocking Read with an empty ring.
var ErrWouldBlock = errors.New("rawhid: would block")

// ErrDeviceGone is returned to a blocked Read once the device detaches.
var ErrDeviceGone = errors.New("rawhid: device detached")

type entry struct {
	length int
	data   []byte
}

// AsyncNotifier is the SIGIO-style callback a File's owner registers via
// SetAsync; invoked once per interrupt deposit while async is enabled.
type AsyncNotifier func()

// File is the per-open-file-description state of one open of a Device: its
// ring buffer, mode, and flow-control/notification flags.
type File struct {
	dev *Device

	cond *sync.Cond

	mode      Mode
	immediate bool
	nonblock  bool
	async     AsyncNotifier

	ring           []entry
	head, tail     int
	overflowActive bool
	eof            bool
}

func newFile(dev *Device, mode Mode, ringSize int) *File {
	if ringSize <= 1 {
		ringSize = DefaultRingSize
	}
	return &File{
		dev:  dev,
		cond: sync.NewCond(&sync.Mutex{}),
		mode: mode,
		ring: make([]entry, ringSize),
	}
}

// SetImmediate switches the read path to synchronous get_report, per
// USB_SET_IMMED (spec §6).
func (f *File) SetImmediate(on bool) {
	f.cond.L.Lock()
	defer f.cond.L.Unlock()
	f.immediate = on
}

// SetNonblocking toggles FIONBIO.
func (f *File) SetNonblocking(on bool) {
	f.cond.L.Lock()
	defer f.cond.L.Unlock()
	f.nonblock = on
}

// SetAsync registers (or, with a nil notifier, clears) the FIOASYNC
// SIGIO-style callback.
func (f *File) SetAsync(notifier AsyncNotifier) {
	f.cond.L.Lock()
	defer f.cond.L.Unlock()
	f.async = notifier
}

func (f *File) freeSlots() int {
	n := len(f.ring)
	used := (f.tail - f.head + n) % n
	return n - used - 1
}

// deposit runs from Device.Interrupt, with the bus device lock already held
// (spec §4.7's "Interrupt deposit: runs with the bus-core lock held"). It
// must not block and must not call back into the bus core synchronously;
// the about-to-overflow backpressure call is therefore deferred to a
// goroutine, which simply waits its turn for the lock Interrupt is
// currently holding (the Go analogue of handing the stop request to a
// deferred work item).
func (f *File) deposit(ctx context.Context, h *bus.ChildHandle, framed []byte) {
	f.cond.L.Lock()
	n := len(f.ring)
	next := (f.tail + 1) % n
	if next == f.head {
		f.cond.L.Unlock()
		return
	}
	f.ring[f.tail] = entry{length: len(framed), data: append([]byte(nil), framed...)}
	f.tail = next

	aboutToOverflow := f.freeSlots() == 0
	if aboutToOverflow {
		f.overflowActive = true
	}
	notifier := f.async
	f.cond.Broadcast()
	f.cond.L.Unlock()

	if notifier != nil {
		notifier()
	}
	if aboutToOverflow {
		go func() { _ = h.Close(ctx) }()
	}
}

// markEOF wakes every blocked reader with ErrDeviceGone, for bus detach.
func (f *File) markEOF() {
	f.cond.L.Lock()
	defer f.cond.L.Unlock()
	f.eof = true
	f.cond.Broadcast()
}

// PollReadable reports whether Read would return data (or EOF) without
// blocking, for a poll/kqueue-style readiness check.
func (f *File) PollReadable() bool {
	f.cond.L.Lock()
	defer f.cond.L.Unlock()
	return f.eof || f.head != f.tail
}

// Read dequeues one report. In immediate mode it instead issues a
// synchronous get_report for the device's primary input report ID (the
// lowest report ID in its TLC, or 0 when unnumbered).
// In ModeUhid, Read zero-pads or truncates the report to len(p); in
// ModeHidraw it returns the stored report verbatim.
func (f *File) Read(ctx context.Context, p []byte) (int, error) {
	f.cond.L.Lock()
	immediate := f.immediate
	f.cond.L.Unlock()
	if immediate {
		return f.readImmediate(ctx, p)
	}

	f.cond.L.Lock()
	for f.head == f.tail && !f.eof {
		if f.nonblock {
			f.cond.L.Unlock()
			return 0, hiderr.Invalid("rawhid.read", ErrWouldBlock)
		}
		f.cond.Wait()
	}
	if f.head == f.tail && f.eof {
		f.cond.L.Unlock()
		return 0, hiderr.IO("rawhid.read", ErrDeviceGone)
	}

	e := f.ring[f.head]
	f.head = (f.head + 1) % len(f.ring)
	resumed := false
	if f.overflowActive && f.freeSlots() > 0 {
		f.overflowActive = false
		resumed = true
	}
	f.cond.L.Unlock()

	n := copy(p, e.data[:e.length])
	if f.mode == ModeUhid && n < len(p) {
		for i := n; i < len(p); i++ {
			p[i] = 0
		}
		n = len(p)
	}

	if resumed {
		_ = f.dev.handle.Open(ctx)
	}
	return n, nil
}

func (f *File) readImmediate(ctx context.Context, p []byte) (int, error) {
	data, err := f.dev.handle.GetReport(ctx, transport.Input, f.dev.primaryInputID, len(p))
	if err != nil {
		return 0, hiderr.Wrap("rawhid.read.immediate", err)
	}
	n := copy(p, data)
	return n, nil
}

// Write submits an output report, per spec §4.7's write rules for each mode.
func (f *File) Write(ctx context.Context, data []byte) (int, error) {
	f.cond.L.Lock()
	mode := f.mode
	f.cond.L.Unlock()

	switch mode {
	case ModeUhid:
		if len(data) != f.dev.outputSize {
			return 0, hiderr.Invalid("rawhid.write", nil)
		}
		if err := f.dev.handle.Write(ctx, data); err != nil {
			return 0, err
		}
		return len(data), nil

	default: // ModeHidraw
		if len(data) == 0 {
			return 0, hiderr.Invalid("rawhid.write", nil)
		}
		id := data[0]
		payload := data[1:]
		if len(payload) > f.dev.info.MaxWrite && f.dev.info.MaxWrite > 0 {
			return 0, hiderr.Overflow("rawhid.write")
		}
		var out []byte
		if id != 0 {
			out = data
		} else {
			out = payload
		}
		if err := f.dev.handle.Write(ctx, out); err != nil {
			return 0, err
		}
		return len(data), nil
	}
}

// GetReport implements the USB_GET_REPORT / HIDIOCGFEATURE ioctls.
func (f *File) GetReport(ctx context.Context, typ transport.ReportType, id uint8, maxLen int) ([]byte, error) {
	return f.dev.handle.GetReport(ctx, typ, id, maxLen)
}

// SetReport implements the USB_SET_REPORT / HIDIOCSFEATURE ioctls.
func (f *File) SetReport(ctx context.Context, typ transport.ReportType, id uint8, data []byte) error {
	return f.dev.handle.SetReport(ctx, typ, id, data)
}

// Close releases the File's exclusive hold on its Device and wakes any
// blocked reader with ErrDeviceGone.
func (f *File) Close(ctx context.Context) error {
	f.dev.mu.Lock()
	if f.dev.open != f {
		f.dev.mu.Unlock()
		return hiderr.Invalid("rawhid.close", nil)
	}
	f.dev.open = nil
	f.dev.mu.Unlock()

	f.markEOF()
	return f.dev.handle.Close(ctx)
}

// Device is the bus.Driver binding one TLC to the raw character interface:
// it enforces single-open exclusivity and fans interrupts into whichever
// File currently holds the device open.
type Device struct {
	mode Mode

	handle *bus.ChildHandle
	info   transport.DeviceInfo

	mu   sync.Mutex
	open *File

	ringSize       int
	numbered       bool
	primaryInputID uint8
	outputSize     int
}

// NewDevice returns a Device that frames reads/writes according to mode,
// using DefaultRingSize ring slots.
func NewDevice(mode Mode) *Device {
	return &Device{mode: mode, ringSize: DefaultRingSize}
}

// Attach implements bus.Driver: it caches descriptor sizing needed to frame
// reports and validate writes.
func (d *Device) Attach(h *bus.ChildHandle) error {
	d.handle = h
	d.info = h.Info()
	desc := h.Descriptor()
	d.numbered = desc.HasNumberedReports()

	tlcs := desc.TLCs()
	var ids map[uint8]bool
	if h.TLCIndex() >= 0 && h.TLCIndex() < len(tlcs) {
		ids = tlcs[h.TLCIndex()].ReportIDs
	}
	if len(ids) == 0 {
		d.outputSize = desc.SizeOfReport(report.Output, 0)
	} else {
		havePrimary := false
		for id := range ids {
			if s := desc.SizeOfReport(report.Output, id); s > d.outputSize {
				d.outputSize = s
			}
			// Lowest report ID is the conventional primary input report,
			// the one USB_SET_IMMED / immediate-mode reads should target.
			if !havePrimary || id < d.primaryInputID {
				d.primaryInputID = id
				havePrimary = true
			}
		}
	}
	return nil
}

// Interrupt implements bus.Driver: it frames the incoming report (prefixing
// the report ID byte when the descriptor is numbered) and deposits it into
// whichever File currently holds the device open, if any.
func (d *Device) Interrupt(ctx context.Context, reportID uint8, data []byte) {
	d.mu.Lock()
	f := d.open
	d.mu.Unlock()
	if f == nil {
		return
	}
	framed := data
	if d.numbered {
		framed = make([]byte, 1+len(data))
		framed[0] = reportID
		copy(framed[1:], data)
	}
	f.deposit(ctx, d.handle, framed)
}

// Detach implements bus.Driver: it forces EOF on any open File.
func (d *Device) Detach() {
	d.mu.Lock()
	f := d.open
	d.open = nil
	d.mu.Unlock()
	if f != nil {
		f.markEOF()
	}
}

// Open acquires exclusive use of the device, per spec §4.7: a second opener
// while one is already open fails Busy.
func (d *Device) Open(ctx context.Context) (*File, error) {
	d.mu.Lock()
	if d.open != nil {
		d.mu.Unlock()
		return nil, hiderr.Busy("rawhid.open")
	}
	f := newFile(d, d.mode, d.ringSize)
	d.open = f
	d.mu.Unlock()

	if err := d.handle.Open(ctx); err != nil {
		d.mu.Lock()
		d.open = nil
		d.mu.Unlock()
		return nil, err
	}
	return f, nil
}

// ReportDescriptor implements USB_GET_REPORT_DESC / HIDIOCGRDESC.
func (d *Device) ReportDescriptor() []byte {
	return d.handle.Descriptor().Raw()
}

// ReportDescriptorSize implements HIDIOCGRDESCSIZE.
func (d *Device) ReportDescriptorSize() int {
	return len(d.handle.Descriptor().Raw())
}

// RawInfo implements HIDIOCGRAWINFO.
func (d *Device) RawInfo() (busID, vendor, product string) {
	return d.info.BusID, hexWord(d.info.VendorID), hexWord(d.info.ProductID)
}

// RawName implements HIDIOCGRAWNAME.
func (d *Device) RawName() string { return d.info.Name }

// RawPhys implements HIDIOCGRAWPHYS. This module has no physical bus-path
// concept of its own (spec's Non-goals exclude concrete transports), so it
// reports the bus identifier the transport supplied.
func (d *Device) RawPhys() string { return d.info.BusID }

// RawUniq implements HIDIOCGRAWUNIQ.
func (d *Device) RawUniq() string { return d.info.Serial }

func hexWord(v uint16) string {
	const hex = "0123456789abcdef"
	b := [4]byte{hex[(v>>12)&0xF], hex[(v>>8)&0xF], hex[(v>>4)&0xF], hex[v&0xF]}
	return string(b[:])
}
