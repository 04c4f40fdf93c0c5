// Package match implements the predicate-based device matcher of spec §4.4:
// a table of candidate entries scanned in order, each entry matching iff
// every flagged field equals the device's corresponding value.
package match

import (
	"github.com/quillhid/hidcore/report"
	"github.com/quillhid/hidcore/transport"
)

// Field is a bitmask naming which fields of an Entry are significant.
// An unset field is a wildcard.
type Field uint8

const (
	MatchUsage Field = 1 << iota
	MatchBus
	MatchVendor
	MatchProduct
	MatchVersion
)

// Entry is one row of a device-matching table.
type Entry struct {
	MatchFlag Field
	Usage     report.Usage
	Bus       string
	Vendor    uint16
	Product   uint16
	VersionLo uint16
	VersionHi uint16
	// DriverInfo is an opaque token copied to the caller on a match, the way
	// spec §4.4 describes: "driver_info is copied to the child's ivars."
	DriverInfo any
}

// Find scans table in order and returns the DriverInfo of the first entry
// whose flagged fields all match info and usage. Version ranges are inclusive.
func Find(table []Entry, info transport.DeviceInfo, usage report.Usage) (driverInfo any, ok bool) {
	for _, e := range table {
		if e.MatchFlag&MatchUsage != 0 && e.Usage != usage {
			continue
		}
		if e.MatchFlag&MatchBus != 0 && e.Bus != info.BusID {
			continue
		}
		if e.MatchFlag&MatchVendor != 0 && e.Vendor != info.VendorID {
			continue
		}
		if e.MatchFlag&MatchProduct != 0 && e.Product != info.ProductID {
			continue
		}
		if e.MatchFlag&MatchVersion != 0 && (info.Version < e.VersionLo || info.Version > e.VersionHi) {
			continue
		}
		return e.DriverInfo, true
	}
	return nil, false
}
