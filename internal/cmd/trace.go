package cmd

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/quillhid/hidcore/bus"
	"github.com/quillhid/hidcore/internal/log"
	"github.com/quillhid/hidcore/match"
	"github.com/quillhid/hidcore/transport"
	"github.com/quillhid/hidcore/transport/faketransport"
)

// TraceCmd replays a capture file through the bus core against a real
// descriptor, tracing every interrupt report it delivers. The capture format
// is a sequence of records, each a little-endian uint16 length followed by
// that many raw report bytes, the way a recorded USB interrupt-in stream
// looks once framing is stripped.
type TraceCmd struct {
	Descriptor string `arg:"" help:"Path to a raw HID report descriptor file." type:"existingfile"`
	Capture    string `arg:"" help:"Path to a captured report stream." type:"existingfile"`
	Vendor     uint16 `help:"Vendor ID to report to the matcher." default:"0"`
	Product    uint16 `help:"Product ID to report to the matcher." default:"0"`
}

// Run attaches the bus core to a fake transport seeded with the given
// descriptor, binds a catch-all tracer driver to every child, then feeds the
// capture file through it one record at a time.
func (c *TraceCmd) Run(logger *slog.Logger, tracer log.ReportTracer) error {
	descBytes, err := os.ReadFile(c.Descriptor)
	if err != nil {
		return fmt.Errorf("read descriptor: %w", err)
	}
	capFile, err := os.Open(c.Capture)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer capFile.Close()

	info := transport.DeviceInfo{BusID: "trace", VendorID: c.Vendor, ProductID: c.Product, Name: "hiddump trace"}
	xport := faketransport.New(info, descBytes)

	factories := []bus.Factory{{
		Table: []match.Entry{{}},
		New: func(driverInfo any) bus.Driver {
			return &tracerDriver{tracer: tracer}
		},
	}}

	ctx := context.Background()
	b, err := bus.Attach(ctx, xport, factories, logger)
	if err != nil {
		return fmt.Errorf("attach bus: %w", err)
	}
	defer b.Detach(ctx)

	var lenBuf [2]byte
	for {
		if _, err := io.ReadFull(capFile, lenBuf[:]); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read record length: %w", err)
		}
		n := binary.LittleEndian.Uint16(lenBuf[:])
		buf := make([]byte, n)
		if _, err := io.ReadFull(capFile, buf); err != nil {
			return fmt.Errorf("read record body: %w", err)
		}
		xport.Push(ctx, buf)
	}
	return nil
}

// tracerDriver opens a read subscription on attach and hex-dumps every
// interrupt report it receives; it never writes back to the device.
type tracerDriver struct {
	handle *bus.ChildHandle
	tracer log.ReportTracer
}

func (d *tracerDriver) Attach(h *bus.ChildHandle) error {
	d.handle = h
	return h.Open(context.Background())
}

func (d *tracerDriver) Interrupt(ctx context.Context, reportID uint8, data []byte) {
	d.tracer.Trace(log.FromDevice, reportID, data)
}

func (d *tracerDriver) Detach() {}

var _ bus.Driver = (*tracerDriver)(nil)
