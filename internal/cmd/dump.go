package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/quillhid/hidcore/report"
)

// DumpCmd parses a raw report descriptor file and prints its structure: the
// top-level collections it declares and every field each one carries.
type DumpCmd struct {
	Path string `arg:"" help:"Path to a raw HID report descriptor file." type:"existingfile"`
}

// Run parses the descriptor and prints one line per TLC, then one indented
// line per field, in the order the parser emitted them.
func (c *DumpCmd) Run(logger *slog.Logger) error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("read descriptor: %w", err)
	}

	desc := report.Parse(data)
	logger.Info("parsed descriptor", "bytes", len(data), "tlcs", len(desc.TLCs()))

	for _, tlc := range desc.TLCs() {
		fmt.Printf("TLC[%d] usage=%s reportIDs=%s\n", tlc.Index, tlc.Usage, sortedIDs(tlc.ReportIDs))
		for it := range desc.IterateTLC(tlc.Index) {
			printItem(it)
		}
		for _, kind := range []report.Kind{report.Input, report.Output, report.Feature} {
			for id := range tlc.ReportIDs {
				if n := desc.SizeOfReport(kind, id); n > 0 {
					fmt.Printf("  size[%s id=%d] = %d bytes\n", kind, id, n)
				}
			}
			if len(tlc.ReportIDs) == 0 {
				if n := desc.SizeOfReport(kind, 0); n > 0 {
					fmt.Printf("  size[%s id=0] = %d bytes\n", kind, n)
				}
			}
		}
	}
	return nil
}

func printItem(it report.Item) {
	switch it.Kind {
	case report.Collection:
		fmt.Printf("%*scollection kind=%d usage=%s\n", it.CollectionLevel*2, "", it.CollectionKind, it.Usage)
	case report.EndCollection:
		return
	default:
		usage := it.Usage.String()
		shape := "var"
		if it.Flags.Array() {
			shape = "array"
			usage = fmt.Sprintf("%s..%s", it.UsageMinimum, it.UsageMaximum)
		}
		fmt.Printf("  %-7s %-5s usage=%-21s bit=%d size=%d count=%d range=[%d,%d] reportID=%d\n",
			it.Kind, shape, usage,
			it.Location.BitPos, it.Location.BitSize, it.Location.Count,
			it.LogicalMinimum, it.LogicalMaximum, it.ReportID)
	}
}

func sortedIDs(ids map[uint8]bool) []uint8 {
	out := make([]uint8, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
