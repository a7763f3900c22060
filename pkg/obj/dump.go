package obj

import (
	"fmt"
	"io"
	"sort"
)

// DumpImage writes a detailed debugging representation of img to w. This
// output is intended for human inspection, not for parsing back; use
// SaveYAML/LoadYAML for a round-trippable representation.
func DumpImage(w io.Writer, img *Image) error {
	d := &imageDumper{w: w, img: img}
	return d.dump()
}

type imageDumper struct {
	w   io.Writer
	img *Image
}

func (d *imageDumper) dump() error {
	d.dumpHeader()
	d.dumpSections()
	d.dumpSymbols()
	d.dumpSplits()
	d.dumpLinkOrder()
	return nil
}

func (d *imageDumper) dumpHeader() {
	kind := "executable"
	if d.img.Kind == ImageRelocatable {
		kind = "relocatable"
	}
	fmt.Fprintf(d.w, "=== Image: %s (%s) ===\n", d.img.Name, kind)
	if d.img.Comment != nil {
		fmt.Fprintf(d.w, "Comment: version %d, %d bytes\n", d.img.Comment.Version, len(d.img.Comment.Data))
	}
	if len(d.img.BlockedRanges) > 0 {
		fmt.Fprintf(d.w, "Blocked ranges: %d\n", len(d.img.BlockedRanges))
		for _, r := range d.img.BlockedRanges {
			fmt.Fprintf(d.w, "  [%#010x, %#010x)\n", r.Start, r.End)
		}
	}
	fmt.Fprintln(d.w)
}

func (d *imageDumper) dumpSections() {
	fmt.Fprintf(d.w, "=== Sections (%d) ===\n", len(d.img.Sections))
	for i := range d.img.Sections {
		s := &d.img.Sections[i]
		fmt.Fprintf(d.w, "  [%2d] %-12s %-6s %#010x - %#010x (align %d, %d relocs)\n",
			i, s.Name, s.Kind, s.Address, s.End(), s.Align, len(s.Relocations))
	}
	fmt.Fprintln(d.w)
}

func (d *imageDumper) dumpSymbols() {
	fmt.Fprintf(d.w, "=== Symbols (%d) ===\n", len(d.img.Symbols))
	for i := range d.img.Symbols {
		s := &d.img.Symbols[i]
		section := "abs/common"
		if s.Section != NoSection {
			section = d.img.Sections[s.Section].Name
		}
		size := ""
		if s.SizeKnown {
			size = fmt.Sprintf(" size:%#x", s.Size)
		}
		fmt.Fprintf(d.w, "  [%4d] %-30s %-10s %-8s %-8s %s@%#010x%s\n",
			i, s.Name, s.Kind, s.Scope, flagString(s), section, s.Address, size)
	}
	fmt.Fprintln(d.w)
}

func flagString(s *Symbol) string {
	var out string
	if s.Flags.Hidden {
		out += "H"
	}
	if s.Flags.ExternallyReferenced {
		out += "X"
	}
	if out == "" {
		return "-"
	}
	return out
}

func (d *imageDumper) dumpSplits() {
	fmt.Fprintf(d.w, "=== Splits (%d) ===\n", len(d.img.Splits))
	keys := make([]SplitKey, 0, len(d.img.Splits))
	for k := range d.img.Splits {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Section != keys[j].Section {
			return keys[i].Section < keys[j].Section
		}
		return keys[i].Start < keys[j].Start
	})
	for _, k := range keys {
		sp := d.img.Splits[k]
		common := ""
		if sp.Common {
			common = " common"
		}
		auto := ""
		if sp.Autogenerated {
			auto = " auto"
		}
		fmt.Fprintf(d.w, "  %-12s %#010x unit:%-20s%s%s\n", d.img.Sections[k.Section].Name, k.Start, sp.Unit, common, auto)
	}
	fmt.Fprintln(d.w)
}

func (d *imageDumper) dumpLinkOrder() {
	fmt.Fprintf(d.w, "=== Link order (%d) ===\n", len(d.img.LinkOrder))
	for i, u := range d.img.LinkOrder {
		auto := ""
		if u.Autogenerated {
			auto = " (autogenerated)"
		}
		fmt.Fprintf(d.w, "  %3d. %s%s\n", i, u.Name, auto)
	}
}
