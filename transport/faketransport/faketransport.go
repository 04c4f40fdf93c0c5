// Package faketransport is a Transport test double: an in-memory device a
// test can feed interrupt reports into and script get_report responses for,
// standing in for the USB/I²C drivers this module does not implement.
package faketransport

import (
	"context"
	"sync"

	"github.com/quillhid/hidcore/hiderr"
	"github.com/quillhid/hidcore/transport"
)

// Transport is a scriptable in-memory transport.Transport.
type Transport struct {
	mu sync.Mutex

	info       transport.DeviceInfo
	descriptor []byte
	getReports map[transport.ReportType]map[uint8][]byte
	setReports []SetReportCall
	written    [][]byte

	intrFn      transport.InterruptFunc
	started     bool
	pollQueue   [][]byte
	unsupported map[string]bool // op name -> true to force hiderr.KindUnsupported
}

// SetReportCall records one SetReport invocation for assertions.
type SetReportCall struct {
	Type transport.ReportType
	ID   uint8
	Data []byte
}

// New returns a Transport reporting the given descriptor bytes and identity.
func New(info transport.DeviceInfo, descriptor []byte) *Transport {
	return &Transport{
		info:        info,
		descriptor:  descriptor,
		getReports:  make(map[transport.ReportType]map[uint8][]byte),
		unsupported: make(map[string]bool),
	}
}

// MarkUnsupported makes the named operation return hiderr.KindUnsupported,
// for exercising I²C-HID-style transports that lack set_idle/set_protocol.
func (t *Transport) MarkUnsupported(op string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unsupported[op] = true
}

// ScriptGetReport arranges for GetReport(typ, id) to return data.
func (t *Transport) ScriptGetReport(typ transport.ReportType, id uint8, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.getReports[typ] == nil {
		t.getReports[typ] = make(map[uint8][]byte)
	}
	t.getReports[typ][id] = data
}

// SetReportCalls returns every SetReport call received so far.
func (t *Transport) SetReportCalls() []SetReportCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SetReportCall(nil), t.setReports...)
}

// Written returns every buffer passed to Write so far.
func (t *Transport) Written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.written...)
}

// Push delivers an input report to the registered interrupt callback, as if
// it had just arrived from the wire. It is a no-op if IntrStart has not been
// called, mirroring a real transport that drops input while stopped.
func (t *Transport) Push(ctx context.Context, buf []byte) {
	t.mu.Lock()
	fn := t.intrFn
	started := t.started
	t.mu.Unlock()
	if started && fn != nil {
		fn(ctx, buf)
	}
}

// QueuePoll arranges for IntrPoll to deliver buf the next time it runs,
// bypassing the Push/IntrStart gating — a transport's polled-mode fan-out
// (spec §5) runs from the caller's own context regardless of whether the
// scheduled interrupt pipe is running.
func (t *Transport) QueuePoll(buf []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pollQueue = append(t.pollQueue, append([]byte(nil), buf...))
}

// Started reports whether IntrStart has been called more recently than IntrStop.
func (t *Transport) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

func (t *Transport) Info() transport.DeviceInfo { return t.info }

func (t *Transport) GetReportDescriptor(ctx context.Context) ([]byte, error) {
	return append([]byte(nil), t.descriptor...), nil
}

func (t *Transport) Read(ctx context.Context, maxLen int) ([]byte, error) {
	if t.unsupported["read"] {
		return nil, hiderr.Unsupported("faketransport.read")
	}
	return nil, nil
}

func (t *Transport) Write(ctx context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.written = append(t.written, append([]byte(nil), data...))
	return nil
}

func (t *Transport) GetReport(ctx context.Context, typ transport.ReportType, id uint8, maxLen int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	data := t.getReports[typ][id]
	if data == nil {
		return nil, hiderr.IO("faketransport.get_report", nil)
	}
	if len(data) > maxLen {
		data = data[:maxLen]
	}
	return append([]byte(nil), data...), nil
}

func (t *Transport) SetReport(ctx context.Context, typ transport.ReportType, id uint8, data []byte) error {
	if t.unsupported["set_report"] {
		return hiderr.Unsupported("faketransport.set_report")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setReports = append(t.setReports, SetReportCall{Type: typ, ID: id, Data: append([]byte(nil), data...)})
	return nil
}

func (t *Transport) SetIdle(ctx context.Context, durationMS int, id uint8) error {
	if t.unsupported["set_idle"] {
		return hiderr.Unsupported("faketransport.set_idle")
	}
	return nil
}

func (t *Transport) SetProtocol(ctx context.Context, protocol int) error {
	if t.unsupported["set_protocol"] {
		return hiderr.Unsupported("faketransport.set_protocol")
	}
	return nil
}

func (t *Transport) IntrSetup(fn transport.InterruptFunc, reportSizes map[uint8]int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.intrFn = fn
	return nil
}

func (t *Transport) IntrStart(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = true
	return nil
}

func (t *Transport) IntrStop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = false
	return nil
}

// IntrPoll synchronously delivers every buffer queued by QueuePoll to the
// registered callback, regardless of Started(): the polled path doesn't go
// through the normal scheduled pipe at all.
func (t *Transport) IntrPoll(ctx context.Context) {
	t.mu.Lock()
	fn := t.intrFn
	queue := t.pollQueue
	t.pollQueue = nil
	t.mu.Unlock()

	if fn == nil {
		return
	}
	for _, buf := range queue {
		fn(ctx, buf)
	}
}

var _ transport.Transport = (*Transport)(nil)
