package log_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quillhid/hidcore/internal/log"
)

func TestTraceFormatsHexDump(t *testing.T) {
	var buf bytes.Buffer
	tr := log.NewTracer(&buf)
	tr.Trace(log.FromDevice, 1, []byte{0xAB, 0x00})

	out := buf.String()
	assert.Contains(t, out, "dev->host")
	assert.Contains(t, out, "id=1")
	assert.Contains(t, out, "ab 00")
}

func TestTraceNoopOnNilWriter(t *testing.T) {
	tr := log.NewTracer(nil)
	assert.NotPanics(t, func() { tr.Trace(log.ToDevice, 0, []byte{0x01}) })
}

func TestTraceSkipsEmptyData(t *testing.T) {
	var buf bytes.Buffer
	tr := log.NewTracer(&buf)
	tr.Trace(log.ToDevice, 0, nil)
	assert.Empty(t, strings.TrimSpace(buf.String()))
}
