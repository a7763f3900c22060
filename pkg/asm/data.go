package asm

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/ppcsplit/ppcsplit/pkg/obj"
)

// writeDataChunk renders a run of data bytes with no intervening symbol or
// relocation, dispatching on dataKind per spec section 4.7: strings,
// UTF-16 strings, string tables render as one directive per element; every
// other kind renders as fixed-width numeric directives, with NaN
// float/double values degrading to an integer directive plus a comment.
func writeDataChunk(w io.Writer, data []byte, dataKind obj.DataKind) error {
	switch dataKind {
	case obj.DataString:
		return writeString(w, data)
	case obj.DataString16:
		return writeString16Chunk(w, data)
	case obj.DataStringTable:
		return writeStringTable(w, data)
	case obj.DataString16Table:
		return writeString16Table(w, data)
	}

	chunkSize := 4
	switch dataKind {
	case obj.DataByte2:
		chunkSize = 2
	case obj.DataByte, obj.DataByte8, obj.DataDouble:
		chunkSize = 8
	}

	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		if dataKind == obj.DataByte || len(chunk) == 1 || len(chunk) == 3 || (len(chunk) >= 5 && len(chunk) <= 7) {
			if err := writeByteDirective(w, chunk); err != nil {
				return err
			}
			continue
		}
		if err := writeNumericDirective(w, chunk, dataKind); err != nil {
			return err
		}
	}
	return nil
}

func writeByteDirective(w io.Writer, chunk []byte) error {
	if _, err := fmt.Fprint(w, "\t.byte "); err != nil {
		return err
	}
	for i, b := range chunk {
		if i > 0 {
			if _, err := fmt.Fprint(w, ", "); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%#04x", b); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func writeNumericDirective(w io.Writer, chunk []byte, dataKind obj.DataKind) error {
	switch len(chunk) {
	case 8:
		bits := binary.BigEndian.Uint64(chunk)
		if dataKind == obj.DataDouble {
			f := math.Float64frombits(bits)
			if math.IsNaN(f) {
				_, err := fmt.Fprintf(w, "\t.8byte %#018x // %v\n", bits, f)
				return err
			}
			_, err := fmt.Fprintf(w, "\t.double %v\n", f)
			return err
		}
		_, err := fmt.Fprintf(w, "\t.8byte %#018x\n", bits)
		return err
	case 4:
		bits := binary.BigEndian.Uint32(chunk)
		if dataKind == obj.DataFloat {
			f := math.Float32frombits(bits)
			if math.IsNaN(float64(f)) {
				_, err := fmt.Fprintf(w, "\t.4byte %#010x // %v\n", bits, f)
				return err
			}
			_, err := fmt.Fprintf(w, "\t.float %v\n", f)
			return err
		}
		_, err := fmt.Fprintf(w, "\t.4byte %#010x\n", bits)
		return err
	case 2:
		_, err := fmt.Fprintf(w, "\t.2byte %#06x\n", binary.BigEndian.Uint16(chunk))
		return err
	default:
		return writeByteDirective(w, chunk)
	}
}

func escapeStringByte(w io.Writer, b byte) error {
	switch b {
	case '\b':
		_, err := fmt.Fprint(w, `\b`)
		return err
	case '\t':
		_, err := fmt.Fprint(w, `\t`)
		return err
	case '\n':
		_, err := fmt.Fprint(w, `\n`)
		return err
	case '\f':
		_, err := fmt.Fprint(w, `\f`)
		return err
	case '\r':
		_, err := fmt.Fprint(w, `\r`)
		return err
	case '\\':
		_, err := fmt.Fprint(w, `\\`)
		return err
	case '"':
		_, err := fmt.Fprint(w, `\"`)
		return err
	default:
		if b >= 0x20 && b < 0x7f {
			_, err := fmt.Fprintf(w, "%c", b)
			return err
		}
		_, err := fmt.Fprintf(w, "\\%03o", b)
		return err
	}
}

// writeString renders a single NUL-terminated (or, if untermianted,
// .ascii) string directive.
func writeString(w io.Writer, data []byte) error {
	terminated := len(data) > 0 && data[len(data)-1] == 0
	directive := ".string"
	if !terminated {
		directive = ".ascii"
	}
	if _, err := fmt.Fprintf(w, "\t%s \"", directive); err != nil {
		return err
	}
	body := data
	if terminated {
		body = data[:len(data)-1]
	}
	for _, b := range body {
		if err := escapeStringByte(w, b); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "\"")
	return err
}

func writeStringTable(w io.Writer, data []byte) error {
	start := 0
	for i, b := range data {
		if b == 0 {
			if err := writeString(w, data[start:i+1]); err != nil {
				return err
			}
			start = i + 1
		}
	}
	if start < len(data) {
		return writeString(w, data[start:])
	}
	return nil
}

func decodeUTF16BE(data []byte) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, obj.WrapError(obj.ErrEmission, "wstring data length %#x is not a multiple of 2", len(data))
	}
	out := make([]uint16, len(data)/2)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(data[i*2 : i*2+2])
	}
	return out, nil
}

// writeString16 renders a single NUL-terminated UTF-16 string directive;
// spec section 4.7 requires failure (not truncation) on a non-terminated
// UTF-16 string.
func writeString16(w io.Writer, units []uint16) error {
	if len(units) == 0 || units[len(units)-1] != 0 {
		return obj.WrapError(obj.ErrEmission, "non-terminated UTF-16 string")
	}
	if _, err := fmt.Fprint(w, "\t.string16 \""); err != nil {
		return err
	}
	for _, r := range units[:len(units)-1] {
		switch r {
		case '\b', '\t', '\n', '\f', '\r', '\\', '"':
			if err := escapeStringByte(w, byte(r)); err != nil {
				return err
			}
		default:
			if r >= 0x20 && r < 0x7f {
				if _, err := fmt.Fprintf(w, "%c", rune(r)); err != nil {
					return err
				}
			} else {
				if _, err := fmt.Fprintf(w, "\\%#x", r); err != nil {
					return err
				}
			}
		}
	}
	_, err := fmt.Fprintln(w, "\"")
	return err
}

func writeString16Chunk(w io.Writer, data []byte) error {
	units, err := decodeUTF16BE(data)
	if err != nil {
		return err
	}
	return writeString16(w, units)
}

func writeString16Table(w io.Writer, data []byte) error {
	units, err := decodeUTF16BE(data)
	if err != nil {
		return err
	}
	start := 0
	for i, u := range units {
		if u == 0 {
			if err := writeString16(w, units[start:i+1]); err != nil {
				return err
			}
			start = i + 1
		}
	}
	if start < len(units) {
		return writeString16(w, units[start:])
	}
	return nil
}
