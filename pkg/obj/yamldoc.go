package obj

import (
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppcsplit/ppcsplit/pkg/utils"
)

// Doc is a flat YAML rendering of an Image that LoadYAML reads back.
// Section original addresses and ELF indices, the externally-referenced
// symbol flag and units' compiler-comment settings are not carried, so
// they do not survive a SaveYAML/LoadYAML round trip. The core
// model (spec section 2) is built in memory by an upstream ELF loader,
// an external collaborator out of this repository's scope; Doc is the
// stand-in wire format this CLI uses instead, so `obj dump --format=yaml`
// and `obj split`/`obj asm`'s input can exercise the exact same model
// without pulling in an ELF reader.
type Doc struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`

	Sections []SectionDoc `yaml:"sections"`
	Symbols  []SymbolDoc  `yaml:"symbols"`
	Splits   []SplitDoc   `yaml:"splits,omitempty"`
	LinkOrder []UnitDoc   `yaml:"link_order,omitempty"`

	NamedSections map[string]string `yaml:"named_sections,omitempty"`
	BlockedRanges []RangeDoc        `yaml:"blocked_ranges,omitempty"`

	CommentVersion *uint8 `yaml:"comment_version,omitempty"`
	CommentData    []byte `yaml:"comment_data,omitempty"`
}

type SectionDoc struct {
	Name       string       `yaml:"name"`
	Kind       string       `yaml:"kind"`
	Address    uint32       `yaml:"address"`
	Size       uint32       `yaml:"size"`
	Align      uint32       `yaml:"align,omitempty"`
	Data       []byte       `yaml:"data,omitempty"`
	FileOffset uint32       `yaml:"file_offset,omitempty"`
	Relocations []RelocDoc  `yaml:"relocations,omitempty"`
}

type RelocDoc struct {
	Kind    string `yaml:"kind"`
	Address uint32 `yaml:"address"`
	Target  int    `yaml:"target"`
	Addend  int32  `yaml:"addend,omitempty"`
}

type SymbolDoc struct {
	Name          string `yaml:"name"`
	DemangledName string `yaml:"demangled_name,omitempty"`
	Address       uint32 `yaml:"address"`
	Section       int    `yaml:"section"`
	Size          uint32 `yaml:"size,omitempty"`
	SizeKnown     bool   `yaml:"size_known,omitempty"`
	Kind          string `yaml:"kind,omitempty"`
	Scope         string `yaml:"scope,omitempty"`
	Hidden        bool   `yaml:"hidden,omitempty"`
	Align         uint32 `yaml:"align,omitempty"`
	HasAlign      bool   `yaml:"has_align,omitempty"`
	Data          string `yaml:"data,omitempty"`
}

type SplitDoc struct {
	Section       int    `yaml:"section"`
	Start         uint32 `yaml:"start"`
	End           uint32 `yaml:"end,omitempty"`
	Unit          string `yaml:"unit"`
	Align         uint32 `yaml:"align,omitempty"`
	HasAlign      bool   `yaml:"has_align,omitempty"`
	Common        bool   `yaml:"common,omitempty"`
	Autogenerated bool   `yaml:"autogenerated,omitempty"`
	Rename        string `yaml:"rename,omitempty"`
}

type UnitDoc struct {
	Name          string `yaml:"name"`
	Autogenerated bool   `yaml:"autogenerated,omitempty"`
}

type RangeDoc struct {
	Start uint32 `yaml:"start"`
	End   uint32 `yaml:"end"`
}

// ToDoc converts img into its flat YAML document form.
func (img *Image) ToDoc() Doc {
	doc := Doc{Name: img.Name}
	if img.Kind == ImageRelocatable {
		doc.Kind = "relocatable"
	} else {
		doc.Kind = "executable"
	}

	for i := range img.Sections {
		s := &img.Sections[i]
		sd := SectionDoc{
			Name: s.Name, Kind: s.Kind.String(), Address: s.Address, Size: s.Size,
			Align: s.Align, FileOffset: s.FileOffset,
		}
		if s.Kind != SectionBss {
			sd.Data = s.Data
		}
		for _, r := range s.Relocations {
			sd.Relocations = append(sd.Relocations, RelocDoc{
				Kind: r.Kind.String(), Address: r.Address, Target: r.Target, Addend: r.Addend,
			})
		}
		doc.Sections = append(doc.Sections, sd)
	}

	for i := range img.Symbols {
		s := &img.Symbols[i]
		doc.Symbols = append(doc.Symbols, SymbolDoc{
			Name: s.Name, DemangledName: s.DemangledName, Address: s.Address, Section: s.Section,
			Size: s.Size, SizeKnown: s.SizeKnown, Kind: s.Kind.String(), Scope: s.Scope.String(),
			Hidden: s.Flags.Hidden, Align: s.Align, HasAlign: s.HasAlign, Data: dataKindToStr(s.Data),
		})
	}

	for k, sp := range img.Splits {
		doc.Splits = append(doc.Splits, SplitDoc{
			Section: k.Section, Start: k.Start, End: sp.End, Unit: sp.Unit,
			Align: sp.Align, HasAlign: sp.HasAlign, Common: sp.Common,
			Autogenerated: sp.Autogenerated, Rename: sp.Rename,
		})
	}

	for _, u := range img.LinkOrder {
		doc.LinkOrder = append(doc.LinkOrder, UnitDoc{Name: u.Name, Autogenerated: u.Autogenerated})
	}

	if len(img.NamedSections) > 0 {
		doc.NamedSections = make(map[string]string, len(img.NamedSections))
		for addr, name := range img.NamedSections {
			doc.NamedSections[addrKey(addr)] = name
		}
	}
	for _, r := range img.BlockedRanges {
		doc.BlockedRanges = append(doc.BlockedRanges, RangeDoc{Start: r.Start, End: r.End})
	}
	if img.Comment != nil {
		v := img.Comment.Version
		doc.CommentVersion = &v
		doc.CommentData = img.Comment.Data
	}
	return doc
}

// ToImage converts a parsed Doc back into an Image.
func (doc *Doc) ToImage() (*Image, error) {
	kind := ImageExecutable
	if doc.Kind == "relocatable" {
		kind = ImageRelocatable
	}
	img := NewImage(kind, doc.Name)

	for _, sd := range doc.Sections {
		sec := Section{
			Name: sd.Name, Kind: sectionKindFromStr(sd.Kind), Address: sd.Address,
			Size: sd.Size, Align: sd.Align, Data: sd.Data, FileOffset: sd.FileOffset,
			ElfIndex: -1, Index: len(img.Sections),
		}
		for _, rd := range sd.Relocations {
			sec.Relocations = append(sec.Relocations, Relocation{
				Kind: relocKindFromStr(rd.Kind), Address: rd.Address, Target: rd.Target, Addend: rd.Addend,
			})
		}
		img.Sections = append(img.Sections, sec)
	}

	for _, sd := range doc.Symbols {
		img.Symbols = append(img.Symbols, Symbol{
			Name: sd.Name, DemangledName: sd.DemangledName, Address: sd.Address, Section: sd.Section,
			Size: sd.Size, SizeKnown: sd.SizeKnown, Kind: symbolKindFromStr(sd.Kind), Scope: symbolScopeFromStr(sd.Scope),
			Flags: SymbolFlags{Hidden: sd.Hidden}, Align: sd.Align, HasAlign: sd.HasAlign, Data: dataKindFromStr(sd.Data),
		})
	}

	for _, spd := range doc.Splits {
		img.AddSplit(&Split{
			Section: spd.Section, Start: spd.Start, End: spd.End, Unit: spd.Unit,
			Align: spd.Align, HasAlign: spd.HasAlign, Common: spd.Common,
			Autogenerated: spd.Autogenerated, Rename: spd.Rename,
		})
	}

	for _, ud := range doc.LinkOrder {
		img.LinkOrder = append(img.LinkOrder, Unit{Name: ud.Name, Autogenerated: ud.Autogenerated})
	}

	for key, name := range doc.NamedSections {
		addr, err := keyAddr(key)
		if err != nil {
			return nil, WrapError(ErrConfig, "bad named-section key %q: %v", key, err)
		}
		img.NamedSections[addr] = name
	}
	for _, rd := range doc.BlockedRanges {
		img.BlockedRanges = append(img.BlockedRanges, AddressRange{Start: rd.Start, End: rd.End})
	}
	if doc.CommentVersion != nil {
		img.Comment = &Comment{Version: *doc.CommentVersion, Data: doc.CommentData}
	}
	return img, nil
}

// LoadYAML reads a Doc from r and converts it to an Image.
func LoadYAML(r io.Reader) (*Image, error) {
	var doc Doc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, WrapError(ErrConfig, "%v", err)
	}
	return doc.ToImage()
}

// SaveYAML writes img to w as a Doc.
func SaveYAML(w io.Writer, img *Image) error {
	doc := img.ToDoc()
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return WrapError(ErrEmission, "%v", err)
	}
	return enc.Close()
}

func sectionKindFromStr(s string) SectionKind {
	switch s {
	case "code":
		return SectionCode
	case "data":
		return SectionData
	case "rodata":
		return SectionReadOnlyData
	case "bss":
		return SectionBss
	default:
		return SectionUnknown
	}
}

func relocKindFromStr(s string) RelocKind {
	switch s {
	case "PpcAddr16Hi":
		return RelocPpcAddr16Hi
	case "PpcAddr16Ha":
		return RelocPpcAddr16Ha
	case "PpcAddr16Lo":
		return RelocPpcAddr16Lo
	case "PpcRel24":
		return RelocPpcRel24
	case "PpcRel14":
		return RelocPpcRel14
	case "PpcEmbSda21":
		return RelocPpcEmbSda21
	default:
		return RelocAbsolute
	}
}

func addrKey(addr uint32) string {
	return utils.FormatUintHex(uint64(addr), 8)
}

func keyAddr(key string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(key, "0x"), 16, 32)
	return uint32(v), err
}

func symbolKindFromStr(s string) SymbolKind {
	switch s {
	case "function":
		return SymbolFunction
	case "object":
		return SymbolObject
	case "section":
		return SymbolSection
	default:
		return SymbolUnknown
	}
}

func symbolScopeFromStr(s string) SymbolScope {
	switch s {
	case "global":
		return ScopeGlobal
	case "weak":
		return ScopeWeak
	case "common":
		return ScopeCommon
	default:
		return ScopeLocal
	}
}

func dataKindToStr(k DataKind) string {
	switch k {
	case DataByte:
		return "byte"
	case DataByte2:
		return "2byte"
	case DataByte4:
		return "4byte"
	case DataByte8:
		return "8byte"
	case DataFloat:
		return "float"
	case DataDouble:
		return "double"
	case DataString:
		return "string"
	case DataString16:
		return "wstring"
	case DataStringTable:
		return "string_table"
	case DataString16Table:
		return "wstring_table"
	default:
		return ""
	}
}

func dataKindFromStr(s string) DataKind {
	switch s {
	case "byte":
		return DataByte
	case "2byte":
		return DataByte2
	case "4byte":
		return DataByte4
	case "8byte":
		return DataByte8
	case "float":
		return DataFloat
	case "double":
		return DataDouble
	case "string":
		return DataString
	case "wstring":
		return DataString16
	case "string_table":
		return DataStringTable
	case "wstring_table":
		return DataString16Table
	default:
		return DataUnknown
	}
}
