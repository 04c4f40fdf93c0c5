package report_test

// Minimal HID item encoders used to build descriptor fixtures for tests.
// Real descriptors are authored by device firmware; these helpers stand in
// for that firmware so tests stay readable as item lists rather than hex dumps.

const (
	tagInput         = 0x8
	tagOutput        = 0x9
	tagCollection    = 0xA
	tagFeature       = 0xB
	tagEndCollection = 0xC

	tagUsagePage    = 0x0
	tagLogicalMin   = 0x1
	tagLogicalMax   = 0x2
	tagPhysicalMin  = 0x3
	tagPhysicalMax  = 0x4
	tagReportSize   = 0x7
	tagReportID     = 0x8
	tagReportCount  = 0x9
	tagPush         = 0xA
	tagPop          = 0xB

	tagUsage        = 0x0
	tagUsageMin     = 0x1
	tagUsageMax     = 0x2
	tagDelimiter    = 0xA

	typMain   = 0
	typGlobal = 1
	typLocal  = 2
)

func b0(tag byte, typ byte) []byte { return []byte{(tag << 4) | (typ << 2) | 0} }
func b1(tag byte, typ byte, v byte) []byte {
	return []byte{(tag << 4) | (typ << 2) | 1, v}
}
func b2(tag byte, typ byte, v uint16) []byte {
	return []byte{(tag << 4) | (typ << 2) | 2, byte(v), byte(v >> 8)}
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// bootKeyboardDescriptor mirrors the classic USB boot-keyboard report
// descriptor: modifier byte + reserved byte + 6-key array input, LED output.
func bootKeyboardDescriptor() []byte {
	return cat(
		b1(tagUsagePage, typGlobal, 0x01),   // Generic Desktop
		b1(tagUsage, typLocal, 0x06),        // Keyboard
		b1(tagCollection, typMain, 0x01),    // Application
		b1(tagUsagePage, typGlobal, 0x07),   // Key Codes
		b1(tagUsageMin, typLocal, 0xE0),
		b1(tagUsageMax, typLocal, 0xE7),
		b1(tagLogicalMin, typGlobal, 0x00),
		b1(tagLogicalMax, typGlobal, 0x01),
		b1(tagReportSize, typGlobal, 0x01),
		b1(tagReportCount, typGlobal, 0x08),
		b1(tagInput, typMain, 0x02), // modifiers: data,var,abs

		b1(tagReportCount, typGlobal, 0x01),
		b1(tagReportSize, typGlobal, 0x08),
		b1(tagInput, typMain, 0x01), // reserved byte: const

		b1(tagReportCount, typGlobal, 0x05),
		b1(tagReportSize, typGlobal, 0x01),
		b1(tagUsagePage, typGlobal, 0x08), // LEDs
		b1(tagUsageMin, typLocal, 0x01),
		b1(tagUsageMax, typLocal, 0x05),
		b1(tagOutput, typMain, 0x02), // LEDs: data,var,abs
		b1(tagReportCount, typGlobal, 0x01),
		b1(tagReportSize, typGlobal, 0x03),
		b1(tagOutput, typMain, 0x01), // padding: const

		b1(tagReportCount, typGlobal, 0x06),
		b1(tagReportSize, typGlobal, 0x08),
		b1(tagLogicalMin, typGlobal, 0x00),
		b1(tagLogicalMax, typGlobal, 0x65),
		b1(tagUsagePage, typGlobal, 0x07),
		b1(tagUsageMin, typLocal, 0x00),
		b1(tagUsageMax, typLocal, 0x65),
		b1(tagInput, typMain, 0x00), // key array: data,array,abs

		b0(tagEndCollection, typMain),
	)
}

// numberedReportsDescriptor builds the two-report fixture of spec §8 S2:
// ReportID 1 carries an 8-bit button bitmap, ReportID 2 a 16-bit absolute X axis.
func numberedReportsDescriptor() []byte {
	return cat(
		b1(tagUsagePage, typGlobal, 0x01), // Generic Desktop
		b1(tagUsage, typLocal, 0x05),      // Gamepad
		b1(tagCollection, typMain, 0x01),

		b1(tagReportID, typGlobal, 0x01),
		b1(tagUsagePage, typGlobal, 0x09), // Buttons
		b1(tagUsageMin, typLocal, 0x01),
		b1(tagUsageMax, typLocal, 0x08),
		b1(tagLogicalMin, typGlobal, 0x00),
		b1(tagLogicalMax, typGlobal, 0x01),
		b1(tagReportSize, typGlobal, 0x01),
		b1(tagReportCount, typGlobal, 0x08),
		b1(tagInput, typMain, 0x02), // buttons 1-8: data,var,abs

		b1(tagReportID, typGlobal, 0x02),
		b1(tagUsagePage, typGlobal, 0x01), // Generic Desktop
		b1(tagUsage, typLocal, 0x30),      // X
		b2(tagLogicalMin, typGlobal, 0x0000),
		b2(tagLogicalMax, typGlobal, 0xFFFF),
		b1(tagReportSize, typGlobal, 0x10),
		b1(tagReportCount, typGlobal, 0x01),
		b1(tagInput, typMain, 0x02), // X: data,var,abs

		b0(tagEndCollection, typMain),
	)
}

// arrayRangeDescriptor builds the spec §8 S3 fixture: a keyboard TLC
// exposing an 8-position array field over usages 0xE0..0xE7.
func arrayRangeDescriptor() []byte {
	return cat(
		b1(tagUsagePage, typGlobal, 0x01),
		b1(tagUsage, typLocal, 0x06),
		b1(tagCollection, typMain, 0x01),
		b1(tagUsagePage, typGlobal, 0x07),
		b1(tagUsageMin, typLocal, 0xE0),
		b1(tagUsageMax, typLocal, 0xE7),
		b1(tagLogicalMin, typGlobal, 0x00),
		b1(tagLogicalMax, typGlobal, 0x07),
		b1(tagReportSize, typGlobal, 0x08),
		b1(tagReportCount, typGlobal, 0x01),
		b1(tagInput, typMain, 0x00), // array
		b0(tagEndCollection, typMain),
	)
}

// touchpadFanoutDescriptor builds the spec §8 S4 fixture: two sibling TLCs,
// a Digitizer/Touchpad (ReportID 3) and a Digitizer/Configuration (ReportID 4).
func touchpadFanoutDescriptor() []byte {
	return cat(
		b1(tagUsagePage, typGlobal, 0x0D), // Digitizers
		b1(tagUsage, typLocal, 0x05),      // Touch Pad
		b1(tagCollection, typMain, 0x01),
		b1(tagReportID, typGlobal, 0x03),
		b1(tagUsagePage, typGlobal, 0x09),
		b1(tagUsageMin, typLocal, 0x01),
		b1(tagUsageMax, typLocal, 0x01),
		b1(tagLogicalMin, typGlobal, 0x00),
		b1(tagLogicalMax, typGlobal, 0x01),
		b1(tagReportSize, typGlobal, 0x01),
		b1(tagReportCount, typGlobal, 0x01),
		b1(tagInput, typMain, 0x02),
		b1(tagReportSize, typGlobal, 0x07),
		b1(tagReportCount, typGlobal, 0x01),
		b1(tagInput, typMain, 0x01), // padding
		b0(tagEndCollection, typMain),

		b1(tagUsagePage, typGlobal, 0x0D), // Digitizers
		b1(tagUsage, typLocal, 0x0E),      // Configuration
		b1(tagCollection, typMain, 0x01),
		b1(tagReportID, typGlobal, 0x04),
		b1(tagUsagePage, typGlobal, 0x0D),
		b1(tagUsage, typLocal, 0x52), // Input Mode
		b1(tagLogicalMin, typGlobal, 0x00),
		b1(tagLogicalMax, typGlobal, 0x0A),
		b1(tagReportSize, typGlobal, 0x08),
		b1(tagReportCount, typGlobal, 0x01),
		b1(tagFeature, typMain, 0x02),
		b0(tagEndCollection, typMain),
	)
}
