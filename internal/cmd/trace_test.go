package cmd_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhid/hidcore/internal/cmd"
	"github.com/quillhid/hidcore/internal/log"
	"github.com/quillhid/hidcore/quirk"
)

func writeCapture(t *testing.T, records ...[]byte) string {
	t.Helper()
	var buf bytes.Buffer
	for _, r := range records {
		var lenBuf [2]byte
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(r)))
		buf.Write(lenBuf[:])
		buf.Write(r)
	}
	path := filepath.Join(t.TempDir(), "capture.bin")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestTraceCmdRunFeedsCaptureThroughBus(t *testing.T) {
	descPath := filepath.Join(t.TempDir(), "boot_kbd.bin")
	require.NoError(t, os.WriteFile(descPath, quirk.BootKeyboardDescriptor, 0o644))

	capPath := writeCapture(t,
		[]byte{0x02, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00},
		[]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	)

	var out bytes.Buffer
	c := cmd.TraceCmd{Descriptor: descPath, Capture: capPath}
	err := c.Run(discardLogger(), log.NewTracer(&out))
	require.NoError(t, err)

	traced := out.String()
	assert.Contains(t, traced, "dev->host")
	assert.Contains(t, traced, "04 00 00 00 00 00")
}

func TestTraceCmdRunMissingCapture(t *testing.T) {
	descPath := filepath.Join(t.TempDir(), "boot_kbd.bin")
	require.NoError(t, os.WriteFile(descPath, quirk.BootKeyboardDescriptor, 0o644))

	c := cmd.TraceCmd{Descriptor: descPath, Capture: filepath.Join(t.TempDir(), "missing.bin")}
	err := c.Run(discardLogger(), log.NewTracer(nil))
	assert.Error(t, err)
}
