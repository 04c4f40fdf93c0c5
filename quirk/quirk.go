// Package quirk implements the vendor/product quirk registry of spec §4.5:
// a static vendor/product/version-range table plus a per-device dynamic
// flag set a Child can extend at attach time.
package quirk

// Flag is a bitmask of per-device behavior overrides.
type Flag uint16

const (
	// Ignore marks a device the bus core refuses to attach at all
	// (known-broken or intentionally unclaimed hardware).
	Ignore Flag = 1 << iota
	// NoWrite suppresses outgoing set_report/write traffic entirely, for
	// devices that lock up or misbehave when written to.
	NoWrite
	// BootProto forces boot-protocol report shape regardless of what the
	// device's descriptor claims, for keyboards/mice with malformed
	// report-protocol descriptors.
	BootProto
	// MsRevZ inverts the sign of the wheel axis, for older Microsoft mice
	// that report it backwards.
	MsRevZ
	// IsXbox360GP marks an Xbox 360 wired gamepad, whose report layout
	// predates a usable standard HID descriptor.
	IsXbox360GP
	// HIDSampling requests timestamped delivery instead of coalesced
	// delivery for devices with input-rate-sensitive features (e.g.
	// graphics tablets reporting pressure curves).
	HIDSampling
)

// Entry is one row of the static quirk table: vendor/product match plus an
// inclusive firmware-version range.
type Entry struct {
	Vendor    uint16
	Product   uint16
	VersionLo uint16
	VersionHi uint16
	Flags     Flag
}

// staticTable holds the quirks known in advance, the way a kernel's hid-quirks
// table does. Entries here are illustrative placeholders for real hardware
// this module's Non-goals exclude enumerating exhaustively.
var staticTable = []Entry{
	{Vendor: 0x045E, Product: 0x028E, VersionLo: 0x0000, VersionHi: 0xFFFF, Flags: IsXbox360GP},
	{Vendor: 0x045E, Product: 0x0039, VersionLo: 0x0000, VersionHi: 0x0100, Flags: MsRevZ},
}

// Lookup returns the static flags for a (vendor, product, version), or 0 if
// no entry matches. Entries are scanned in table order; the first match wins.
func Lookup(vendor, product, version uint16) Flag {
	for _, e := range staticTable {
		if e.Vendor != vendor || e.Product != product {
			continue
		}
		if version < e.VersionLo || version > e.VersionHi {
			continue
		}
		return e.Flags
	}
	return 0
}

// Set is the quirk flag set bound to one attached device: the static flags
// for its identity, unioned with whatever a Child adds at attach time.
type Set struct {
	static  Flag
	dynamic Flag
}

// NewSet builds a Set seeded from the static table for the given identity.
func NewSet(vendor, product, version uint16) *Set {
	return &Set{static: Lookup(vendor, product, version)}
}

// Add unions f into the dynamic flags, for a Child that recognizes a quirk
// the static table doesn't (spec §4.5: "drivers may add flags at attach time").
func (s *Set) Add(f Flag) { s.dynamic |= f }

// Test reports whether every bit of f is set, in either the static or
// dynamic flags.
func (s *Set) Test(f Flag) bool {
	have := s.static | s.dynamic
	return have&f == f
}

// All returns the union of static and dynamic flags.
func (s *Set) All() Flag { return s.static | s.dynamic }
