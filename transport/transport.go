// Package transport defines the capability set the bus core expects from a
// concrete transport (USB, I²C-HID, or a test double), and the device
// identity it reports. It never implements a concrete transport: spec's
// Non-goals exclude wire-level USB and I²C drivers from this module.
package transport

import "context"

// ReportType distinguishes the three HID report channels a get/set_report
// call can address.
type ReportType uint8

const (
	Input ReportType = iota
	Output
	Feature
)

// DeviceInfo is the immutable per-physical-device identity spec §3 describes.
type DeviceInfo struct {
	BusID           string // e.g. "usb", "i2c"
	VendorID        uint16
	ProductID       uint16
	Version         uint16
	Name            string
	Serial          string
	BootProtocol    bool
	MaxRead         int
	MaxWrite        int
	MaxGetReport    int
	MaxSetReport    int
}

// InterruptFunc is the callback a transport invokes when an input report
// arrives. It runs with the bus core's device lock held (spec §4.3, §5);
// implementations must not block and must not call back into intr_start,
// intr_stop, or a synchronous get_report/set_report on the same transport.
type InterruptFunc func(ctx context.Context, buf []byte)

// Transport is the capability set a concrete transport driver implements.
// The bus core stores only this interface, never a concrete type (spec §9).
type Transport interface {
	// Info returns the transport's cached device identity.
	Info() DeviceInfo

	// GetReportDescriptor fetches the report descriptor bytes. Idempotent;
	// callers are expected to cache the result themselves if called repeatedly.
	GetReportDescriptor(ctx context.Context) ([]byte, error)

	// Read returns the next available input report. Only meaningful on
	// transports that support polling reads (I²C-HID); USB returns
	// hiderr.KindUnsupported.
	Read(ctx context.Context, maxLen int) ([]byte, error)

	// Write sends a raw output report; the first byte may be a report ID.
	Write(ctx context.Context, data []byte) error

	// GetReport fetches a report by type and ID.
	GetReport(ctx context.Context, typ ReportType, id uint8, maxLen int) ([]byte, error)

	// SetReport sends a report by type and ID.
	SetReport(ctx context.Context, typ ReportType, id uint8, data []byte) error

	// SetIdle sets the idle duration (4ms units on USB) for a report ID.
	// Returns hiderr.KindUnsupported on transports without idle control (I²C).
	SetIdle(ctx context.Context, durationMS int, id uint8) error

	// SetProtocol selects boot (0) or report (1) protocol. Returns
	// hiderr.KindUnsupported on transports without protocol switching (I²C).
	SetProtocol(ctx context.Context, protocol int) error

	// IntrSetup registers the callback the transport invokes for each
	// arriving input report, and gives the transport a chance to size its
	// buffers from the per-report-ID input report sizes the caller already
	// computed.
	IntrSetup(fn InterruptFunc, reportSizes map[uint8]int) error

	// IntrStart begins delivering input reports to the registered callback.
	// Must only be called while the bus core's device lock is held.
	IntrStart(ctx context.Context) error

	// IntrStop stops delivery and guarantees no callback is in flight once
	// it returns. Must only be called while the bus core's device lock is held.
	IntrStop(ctx context.Context) error

	// IntrPoll synchronously invokes the fan-out from the caller's context,
	// used when normal scheduling is unavailable (panic/debugger path).
	IntrPoll(ctx context.Context)
}
