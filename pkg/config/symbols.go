// Package config reads and writes the line-oriented symbols and splits
// file formats described in spec section 7. Both formats are regex-based,
// one entry per line, matching the reference tool's own parser so that
// round-tripping a file through ReadSymbols/WriteSymbols (or
// ReadSplits/WriteSplits) is a no-op on already-canonical input (spec
// section 8's round-trip laws).
package config

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppcsplit/ppcsplit/pkg/obj"
)

var symbolLineRe = regexp.MustCompile(
	`^\s*(?P<name>[^\s=]+)\s*=\s*(?:(?P<section>[A-Za-z0-9.]+):)?(?P<addr>[0-9A-Fa-fXx]+);(?:\s*//\s*(?P<attrs>.*))?$`,
)
var commentLineRe = regexp.MustCompile(`^\s*(//|#).*$`)

func parseHex(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// ReadSymbols parses a symbols file, resolving each entry's named section
// against img and appending the resulting symbols to img.Symbols. A
// "noreloc" attribute registers an entry in img.BlockedRanges.
func ReadSymbols(r io.Reader, img *obj.Image) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		sym, err := parseSymbolLine(line, img)
		if err != nil {
			return obj.WrapError(obj.ErrConfig, "line %d: %v", lineNo, err)
		}
		if sym != nil {
			img.Symbols = append(img.Symbols, *sym)
		}
	}
	if err := scanner.Err(); err != nil {
		return obj.WrapError(obj.ErrConfig, "%v", err)
	}
	return nil
}

func parseSymbolLine(line string, img *obj.Image) (*obj.Symbol, error) {
	m := symbolLineRe.FindStringSubmatch(line)
	if m == nil {
		if commentLineRe.MatchString(line) || strings.TrimSpace(line) == "" {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse symbol line %q", line)
	}
	names := symbolLineRe.SubexpNames()
	groups := make(map[string]string, len(names))
	for i, n := range names {
		if n != "" && i < len(m) {
			groups[n] = m[i]
		}
	}

	addr, err := parseHex(groups["addr"])
	if err != nil {
		return nil, fmt.Errorf("bad address in symbol line %q: %w", line, err)
	}

	sym := &obj.Symbol{
		Name:    groups["name"],
		Address: addr,
		Section: obj.NoSection,
	}
	if sectionName := groups["section"]; sectionName != "" {
		if idx := img.SectionByName(sectionName); idx != -1 {
			sym.Section = idx
		}
	} else if idx := img.SectionContaining(addr); idx != -1 {
		sym.Section = idx
	}

	for _, attr := range strings.Split(groups["attrs"], " ") {
		attr = strings.TrimSpace(attr)
		if attr == "" {
			continue
		}
		if name, value, ok := strings.Cut(attr, ":"); ok {
			switch name {
			case "type":
				kind, ok := symbolKindFromStr(value)
				if !ok {
					return nil, fmt.Errorf("unknown symbol type %q", value)
				}
				sym.Kind = kind
			case "size":
				size, err := parseHex(value)
				if err != nil {
					return nil, fmt.Errorf("bad size in symbol line %q: %w", line, err)
				}
				sym.Size = size
				sym.SizeKnown = true
			case "scope":
				scope, ok := symbolScopeFromStr(value)
				if !ok {
					return nil, fmt.Errorf("unknown symbol scope %q", value)
				}
				sym.Scope = scope
			case "align":
				align, err := parseHex(value)
				if err != nil {
					return nil, fmt.Errorf("bad align in symbol line %q: %w", line, err)
				}
				sym.Align = align
				sym.HasAlign = true
			case "data":
				data, ok := symbolDataKindFromStr(value)
				if !ok {
					return nil, fmt.Errorf("unknown symbol data type %q", value)
				}
				sym.Data = data
			default:
				return nil, fmt.Errorf("unknown symbol attribute %q", name)
			}
		} else {
			switch attr {
			case "hidden":
				sym.Flags.Hidden = true
			case "noreloc":
				if sym.Size == 0 {
					return nil, fmt.Errorf("symbol %s requires size != 0 with noreloc", sym.Name)
				}
				img.BlockedRanges = append(img.BlockedRanges, obj.AddressRange{Start: addr, End: addr + sym.Size})
			default:
				return nil, fmt.Errorf("unknown symbol attribute %q", attr)
			}
		}
	}

	return sym, nil
}

// WriteSymbols writes every non-section symbol in img that has an owning
// section, in table order, one line per spec section 7.1's symbol-line
// grammar. Symbols with no owning section (absolute and common symbols)
// are skipped.
func WriteSymbols(w io.Writer, img *obj.Image) error {
	bw := bufio.NewWriter(w)
	for i := range img.Symbols {
		sym := &img.Symbols[i]
		if sym.Kind == obj.SymbolSection || sym.Section == obj.NoSection {
			continue
		}
		if err := writeSymbol(bw, img, sym); err != nil {
			return obj.WrapError(obj.ErrEmission, "%v", err)
		}
	}
	return bw.Flush()
}

func writeSymbol(w *bufio.Writer, img *obj.Image, sym *obj.Symbol) error {
	if _, err := fmt.Fprintf(w, "%s = ", sym.Name); err != nil {
		return err
	}
	if sym.Section != obj.NoSection {
		if _, err := fmt.Fprintf(w, "%s:", img.Sections[sym.Section].Name); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "0x%08X; //", sym.Address); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, " type:%s", symbolKindToStr(sym.Kind)); err != nil {
		return err
	}
	if sym.SizeKnown && sym.Size > 0 {
		if _, err := fmt.Fprintf(w, " size:0x%X", sym.Size); err != nil {
			return err
		}
	}
	if scope, ok := symbolScopeToStr(sym.Scope); ok {
		if _, err := fmt.Fprintf(w, " scope:%s", scope); err != nil {
			return err
		}
	}
	if sym.HasAlign {
		if _, err := fmt.Fprintf(w, " align:0x%X", sym.Align); err != nil {
			return err
		}
	}
	if kind, ok := symbolDataKindToStr(sym.Data); ok {
		if _, err := fmt.Fprintf(w, " data:%s", kind); err != nil {
			return err
		}
	}
	if sym.Flags.Hidden {
		if _, err := fmt.Fprint(w, " hidden"); err != nil {
			return err
		}
	}
	if img.IsBlocked(sym.Address) {
		if _, err := fmt.Fprint(w, " noreloc"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func symbolKindToStr(k obj.SymbolKind) string {
	switch k {
	case obj.SymbolFunction:
		return "function"
	case obj.SymbolObject:
		return "object"
	case obj.SymbolSection:
		return "section"
	default:
		return "label"
	}
}

func symbolKindFromStr(s string) (obj.SymbolKind, bool) {
	switch s {
	case "label":
		return obj.SymbolUnknown, true
	case "function":
		return obj.SymbolFunction, true
	case "object":
		return obj.SymbolObject, true
	case "section":
		return obj.SymbolSection, true
	default:
		return obj.SymbolUnknown, false
	}
}

// symbolScopeToStr mirrors the reference's priority order: common beats
// weak beats global beats local, and local (the zero value) prints
// nothing since it is the implicit default.
func symbolScopeToStr(s obj.SymbolScope) (string, bool) {
	switch s {
	case obj.ScopeCommon:
		return "common", true
	case obj.ScopeWeak:
		return "weak", true
	case obj.ScopeGlobal:
		return "global", true
	default:
		return "", false
	}
}

func symbolScopeFromStr(s string) (obj.SymbolScope, bool) {
	switch s {
	case "common":
		return obj.ScopeCommon, true
	case "weak":
		return obj.ScopeWeak, true
	case "global":
		return obj.ScopeGlobal, true
	case "local":
		return obj.ScopeLocal, true
	default:
		return obj.ScopeLocal, false
	}
}

func symbolDataKindToStr(k obj.DataKind) (string, bool) {
	switch k {
	case obj.DataByte:
		return "byte", true
	case obj.DataByte2:
		return "2byte", true
	case obj.DataByte4:
		return "4byte", true
	case obj.DataByte8:
		return "8byte", true
	case obj.DataFloat:
		return "float", true
	case obj.DataDouble:
		return "double", true
	case obj.DataString:
		return "string", true
	case obj.DataString16:
		return "wstring", true
	case obj.DataStringTable:
		return "string_table", true
	case obj.DataString16Table:
		return "wstring_table", true
	default:
		return "", false
	}
}

func symbolDataKindFromStr(s string) (obj.DataKind, bool) {
	switch s {
	case "byte":
		return obj.DataByte, true
	case "2byte":
		return obj.DataByte2, true
	case "4byte":
		return obj.DataByte4, true
	case "8byte":
		return obj.DataByte8, true
	case "float":
		return obj.DataFloat, true
	case "double":
		return obj.DataDouble, true
	case "string":
		return obj.DataString, true
	case "wstring":
		return obj.DataString16, true
	case "string_table":
		return obj.DataStringTable, true
	case "wstring_table":
		return obj.DataString16Table, true
	default:
		return obj.DataUnknown, false
	}
}
