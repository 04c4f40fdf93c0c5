package quirk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quillhid/hidcore/quirk"
	"github.com/quillhid/hidcore/report"
)

func TestLookupMatchesVersionRange(t *testing.T) {
	flags := quirk.Lookup(0x045E, 0x028E, 0x0110)
	assert.True(t, flags&quirk.IsXbox360GP != 0)

	flags = quirk.Lookup(0x045E, 0x0039, 0x0050)
	assert.True(t, flags&quirk.MsRevZ != 0)

	flags = quirk.Lookup(0x045E, 0x0039, 0x0200)
	assert.Equal(t, quirk.Flag(0), flags)
}

func TestLookupNoMatch(t *testing.T) {
	assert.Equal(t, quirk.Flag(0), quirk.Lookup(0x1111, 0x2222, 0))
}

func TestSetStaticAndDynamicUnion(t *testing.T) {
	s := quirk.NewSet(0x045E, 0x028E, 0x0110)
	assert.True(t, s.Test(quirk.IsXbox360GP))
	assert.False(t, s.Test(quirk.NoWrite))

	s.Add(quirk.NoWrite)
	assert.True(t, s.Test(quirk.NoWrite))
	assert.True(t, s.Test(quirk.IsXbox360GP|quirk.NoWrite))
	assert.Equal(t, quirk.IsXbox360GP|quirk.NoWrite, s.All())
}

func TestSetTestRequiresAllBits(t *testing.T) {
	s := quirk.NewSet(0, 0, 0)
	s.Add(quirk.BootProto)
	assert.False(t, s.Test(quirk.BootProto|quirk.MsRevZ))
}

func TestBootKeyboardDescriptorParses(t *testing.T) {
	d := report.Parse(quirk.BootKeyboardDescriptor)
	assert.Len(t, d.TLCs(), 1)
	assert.Equal(t, report.NewUsage(0x0001, 0x0006), d.TLCs()[0].Usage)
	assert.Equal(t, 8, d.SizeOfReport(report.Input, 0))
}

func TestBootMouseDescriptorParses(t *testing.T) {
	d := report.Parse(quirk.BootMouseDescriptor)
	assert.Len(t, d.TLCs(), 1)
	assert.Equal(t, report.NewUsage(0x0001, 0x0002), d.TLCs()[0].Usage)
	assert.Equal(t, 3, d.SizeOfReport(report.Input, 0))
}
