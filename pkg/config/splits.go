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

var unitLineRe = regexp.MustCompile(`^\s*(?P<name>[^\s:]+)\s*:\s*$`)
var sectionLineRe = regexp.MustCompile(`^\s*(?P<name>\S+)\s*(?P<attrs>.*)$`)

// WriteSplits writes img's resolved link order and, for each unit, the
// section ranges it owns, per spec section 7.2.
func WriteSplits(w io.Writer, img *obj.Image) error {
	bw := bufio.NewWriter(w)
	for _, unit := range img.LinkOrder {
		if _, err := fmt.Fprintf(bw, "%s:\n", unit.Name); err != nil {
			return obj.WrapError(obj.ErrEmission, "%v", err)
		}
		for secIdx := range img.Sections {
			section := &img.Sections[secIdx]
			splits := img.SplitsInSection(secIdx)
			for i, sp := range splits {
				if sp.Unit != unit.Name {
					continue
				}
				end := sp.End
				if end == 0 {
					if i+1 < len(splits) {
						end = splits[i+1].Start
					} else {
						end = section.End()
					}
				}
				line := fmt.Sprintf("\t%-11s start:0x%08X end:0x%08X", section.Name, sp.Start, end)
				if sp.HasAlign {
					line += fmt.Sprintf(" align:%d", sp.Align)
				}
				if sp.Common {
					line += " common"
				}
				if sp.Rename != "" {
					line += fmt.Sprintf(" rename:%s", sp.Rename)
				}
				if _, err := fmt.Fprintln(bw, line); err != nil {
					return obj.WrapError(obj.ErrEmission, "%v", err)
				}
			}
		}
		if _, err := fmt.Fprintln(bw); err != nil {
			return obj.WrapError(obj.ErrEmission, "%v", err)
		}
	}
	return bw.Flush()
}

type splitLineKind int

const (
	splitLineNone splitLineKind = iota
	splitLineUnit
	splitLineSection
)

type parsedSplitLine struct {
	kind       splitLineKind
	name       string
	rename     string
	start, end uint32
	align      uint32
	hasAlign   bool
	common     bool
}

func parseSplitLine(line string) (parsedSplitLine, error) {
	if strings.TrimSpace(line) == "" || commentLineRe.MatchString(line) {
		return parsedSplitLine{kind: splitLineNone}, nil
	}
	if m := unitLineRe.FindStringSubmatch(line); m != nil {
		return parsedSplitLine{kind: splitLineUnit, name: m[unitLineRe.SubexpIndex("name")]}, nil
	}
	m := sectionLineRe.FindStringSubmatch(line)
	if m == nil {
		return parsedSplitLine{}, fmt.Errorf("failed to parse split line %q", line)
	}
	name := m[sectionLineRe.SubexpIndex("name")]
	attrs := m[sectionLineRe.SubexpIndex("attrs")]

	var start, end uint32
	var haveStart, haveEnd bool
	var align uint32
	var hasAlign, common bool
	var rename string

	for _, attr := range strings.Split(attrs, " ") {
		attr = strings.TrimSpace(attr)
		if attr == "" {
			continue
		}
		if attrName, value, ok := strings.Cut(attr, ":"); ok {
			switch attrName {
			case "start":
				v, err := parseHex(value)
				if err != nil {
					return parsedSplitLine{}, fmt.Errorf("bad start in split line %q: %w", line, err)
				}
				start, haveStart = v, true
			case "end":
				v, err := parseHex(value)
				if err != nil {
					return parsedSplitLine{}, fmt.Errorf("bad end in split line %q: %w", line, err)
				}
				end, haveEnd = v, true
			case "align":
				v, err := strconv.ParseUint(value, 10, 32)
				if err != nil {
					return parsedSplitLine{}, fmt.Errorf("bad align in split line %q: %w", line, err)
				}
				align, hasAlign = uint32(v), true
			case "rename":
				rename = value
			default:
				return parsedSplitLine{}, fmt.Errorf("unknown split attribute %q", attrName)
			}
		} else {
			switch attr {
			case "common":
				common = true
				if !hasAlign {
					align, hasAlign = 4, true
				}
			default:
				return parsedSplitLine{}, fmt.Errorf("unknown split attribute %q", attr)
			}
		}
	}

	if !haveStart || !haveEnd {
		return parsedSplitLine{}, fmt.Errorf("missing split attribute: %q", line)
	}
	return parsedSplitLine{
		kind: splitLineSection, name: name, rename: rename, start: start, end: end,
		align: align, hasAlign: hasAlign, common: common,
	}, nil
}

// ReadSplits applies a splits file to img: each unit line appends to
// img.LinkOrder, and each following indented section line registers a
// Split and, if the section name was renamed, a NamedSections entry.
func ReadSplits(r io.Reader, img *obj.Image) error {
	scanner := bufio.NewScanner(r)
	var currentUnit string
	haveUnit := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		parsed, err := parseSplitLine(scanner.Text())
		if err != nil {
			return obj.WrapError(obj.ErrConfig, "line %d: %v", lineNo, err)
		}
		switch parsed.kind {
		case splitLineUnit:
			img.LinkOrder = append(img.LinkOrder, obj.Unit{Name: parsed.name})
			currentUnit, haveUnit = parsed.name, true
		case splitLineSection:
			if !haveUnit {
				return obj.WrapError(obj.ErrConfig, "line %d: section %s defined outside of unit", lineNo, parsed.name)
			}
			secIdx := img.SectionByName(parsed.name)
			if secIdx == -1 {
				return obj.WrapError(obj.ErrConfig, "line %d: unknown section %q", lineNo, parsed.name)
			}
			sp := &obj.Split{
				Section: secIdx, Start: parsed.start, End: parsed.end,
				Unit: currentUnit, Align: parsed.align, HasAlign: parsed.hasAlign, Common: parsed.common,
				Rename: parsed.rename,
			}
			img.AddSplit(sp)
			if parsed.rename != "" {
				img.NamedSections[parsed.start] = parsed.rename
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return obj.WrapError(obj.ErrConfig, "%v", err)
	}
	return nil
}
