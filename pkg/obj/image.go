package obj

import "sort"

// ImageKind distinguishes a fully-linked input image from an output
// relocatable object produced by the splitter.
type ImageKind int

const (
	ImageExecutable ImageKind = iota
	ImageRelocatable
)

// AddressRange is a half-open [Start, End) byte range, used for the
// blocked-from-relocation set (symbols tagged noreloc).
type AddressRange struct {
	Start, End uint32
}

// Contains reports whether addr falls within the range.
func (r AddressRange) Contains(addr uint32) bool {
	return addr >= r.Start && addr < r.End
}

// Comment is the compiler-comment metadata blob: an opaque byte sequence
// tagged with a version, treated as a black box per the core's scope.
type Comment struct {
	Version uint8
	Data    []byte
}

// Image is the in-memory representation of an executable or a single
// relocatable object: sections, symbol table, split map, link order, and
// the auxiliary tables the split propagator and splitter consult.
//
// Shaped after pkg/hw/cpu/mc/programfile.go's ProgramFileContents: a
// single value-holding struct with accessor/mutator methods, rather than
// an interface, since this domain has exactly one backing representation
// (there is no alternate Image source to abstract over).
type Image struct {
	Kind ImageKind
	Name string

	Sections []Section
	Symbols  []Symbol

	// Splits is keyed by (section index, start address) so propagator
	// passes can look up and mutate a specific split in O(1).
	Splits map[SplitKey]*Split

	// LinkOrder is the ordered list of unit descriptors. Reading a splits
	// file or a YAML image fills it in file order; UpdateSplits replaces it
	// with the order the link-order resolver computes.
	LinkOrder []Unit

	// NamedSections maps a split's start address to an output section name
	// override (e.g. ".ctors$10"), consulted by the splitter.
	NamedSections map[uint32]string

	// BlockedRanges holds address ranges carried by noreloc symbols; the
	// splitter must not synthesize relocations targeting these ranges.
	BlockedRanges []AddressRange

	Comment *Comment
}

// NewImage returns an empty Image of the given kind.
func NewImage(kind ImageKind, name string) *Image {
	return &Image{
		Kind:          kind,
		Name:          name,
		Splits:        make(map[SplitKey]*Split),
		NamedSections: make(map[uint32]string),
	}
}

// SectionByName returns a section's index by name, or -1 if not found.
func (img *Image) SectionByName(name string) int {
	for i := range img.Sections {
		if img.Sections[i].Name == name {
			return i
		}
	}
	return -1
}

// SectionContaining returns the index of the section owning addr, or -1.
func (img *Image) SectionContaining(addr uint32) int {
	for i := range img.Sections {
		s := &img.Sections[i]
		if addr >= s.Address && addr < s.End() {
			return i
		}
	}
	return -1
}

// SymbolAt returns the index of a symbol with the given address and kind in
// the given section, or -1 if none exists.
func (img *Image) SymbolAt(section int, addr uint32, kind SymbolKind) int {
	for i := range img.Symbols {
		sym := &img.Symbols[i]
		if sym.Section == section && sym.Address == addr && sym.Kind == kind {
			return i
		}
	}
	return -1
}

// SymbolsInRange returns the indices of every symbol owned by section whose
// address falls within [start, end), sorted by address (ties broken by
// table order) so passes that walk "in address order" get a deterministic
// result regardless of how the loader populated the symbol table.
func (img *Image) SymbolsInRange(section int, start, end uint32) []int {
	var out []int
	for i := range img.Symbols {
		sym := &img.Symbols[i]
		if sym.Section == section && sym.Address >= start && sym.Address < end {
			out = append(out, i)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return img.Symbols[out[i]].Address < img.Symbols[out[j]].Address
	})
	return out
}

// SplitAt returns the split owning addr within section, or nil.
//
// A split owns addr when Start <= addr and addr < ResolvedEnd(next split's
// Start or section end); since that requires neighbor context, this walks
// the section's sorted splits rather than doing a single map probe.
func (img *Image) SplitAt(section int, addr uint32) *Split {
	splits := img.SplitsInSection(section)
	for i, sp := range splits {
		var end uint32
		if i+1 < len(splits) {
			end = sp.ResolvedEnd(splits[i+1].Start)
		} else {
			end = sp.ResolvedEnd(img.Sections[section].End())
		}
		if addr >= sp.Start && addr < end {
			return sp
		}
	}
	return nil
}

// SplitsInSection returns every split belonging to section, sorted by
// Start address.
func (img *Image) SplitsInSection(section int) []*Split {
	var out []*Split
	for key, sp := range img.Splits {
		if key.Section == section {
			out = append(out, sp)
		}
	}
	sortSplits(out)
	return out
}

func sortSplits(splits []*Split) {
	for i := 1; i < len(splits); i++ {
		for j := i; j > 0 && splits[j-1].Start > splits[j].Start; j-- {
			splits[j-1], splits[j] = splits[j], splits[j-1]
		}
	}
}

// AddSplit inserts a split into the image's split map, keyed by its section
// and start address.
func (img *Image) AddSplit(sp *Split) {
	img.Splits[SplitKey{Section: sp.Section, Start: sp.Start}] = sp
}

// IsBlocked reports whether addr falls inside a noreloc-tagged range.
func (img *Image) IsBlocked(addr uint32) bool {
	for _, r := range img.BlockedRanges {
		if r.Contains(addr) {
			return true
		}
	}
	return false
}

// RenamedSection returns the output section name override for a split
// starting at addr, or ("", false) if none was registered.
func (img *Image) RenamedSection(addr uint32) (string, bool) {
	name, ok := img.NamedSections[addr]
	return name, ok
}
