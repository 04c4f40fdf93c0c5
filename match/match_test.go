package match_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/quillhid/hidcore/match"
	"github.com/quillhid/hidcore/report"
	"github.com/quillhid/hidcore/transport"
)

func TestFindReturnsFirstMatch(t *testing.T) {
	table := []match.Entry{
		{MatchFlag: match.MatchVendor | match.MatchProduct, Vendor: 0x046D, Product: 0xC52B, DriverInfo: "logitech-receiver"},
		{MatchFlag: match.MatchUsage, Usage: report.NewUsage(0x0001, 0x0006), DriverInfo: "generic-keyboard"},
	}

	info, ok := match.Find(table, transport.DeviceInfo{VendorID: 0x046D, ProductID: 0xC52B}, 0)
	assert.True(t, ok)
	assert.Equal(t, "logitech-receiver", info)

	info, ok = match.Find(table, transport.DeviceInfo{VendorID: 0x1234, ProductID: 0x5678}, report.NewUsage(0x0001, 0x0006))
	assert.True(t, ok)
	assert.Equal(t, "generic-keyboard", info)
}

func TestFindVersionRangeInclusive(t *testing.T) {
	table := []match.Entry{
		{MatchFlag: match.MatchVendor | match.MatchVersion, Vendor: 0x1, VersionLo: 0x100, VersionHi: 0x200, DriverInfo: "v1"},
	}
	_, ok := match.Find(table, transport.DeviceInfo{VendorID: 0x1, Version: 0x099}, 0)
	assert.False(t, ok)
	_, ok = match.Find(table, transport.DeviceInfo{VendorID: 0x1, Version: 0x100}, 0)
	assert.True(t, ok)
	_, ok = match.Find(table, transport.DeviceInfo{VendorID: 0x1, Version: 0x200}, 0)
	assert.True(t, ok)
	_, ok = match.Find(table, transport.DeviceInfo{VendorID: 0x1, Version: 0x201}, 0)
	assert.False(t, ok)
}

func TestFindNoMatch(t *testing.T) {
	_, ok := match.Find(nil, transport.DeviceInfo{}, 0)
	assert.False(t, ok)
}

func TestFindLeavesTableUntouched(t *testing.T) {
	table := []match.Entry{
		{MatchFlag: match.MatchUsage, Usage: report.NewUsage(0x0001, 0x0002), DriverInfo: "generic-mouse"},
	}
	before := append([]match.Entry(nil), table...)

	_, _ = match.Find(table, transport.DeviceInfo{}, report.NewUsage(0x0001, 0x0002))

	if diff := cmp.Diff(before, table); diff != "" {
		t.Errorf("Find mutated its table (-before +after):\n%s", diff)
	}
}
