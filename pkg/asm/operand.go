package asm

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppcsplit/ppcsplit/pkg/obj"
	"github.com/ppcsplit/ppcsplit/pkg/ppc"
)

// writeSymbolName escapes a symbol name for GNU-as, quoting it whenever it
// contains a character the assembler would otherwise misparse (spec
// section 4.7's symbol-name-escaping rule).
func writeSymbolName(w io.Writer, name string) error {
	if strings.ContainsAny(name, "@<\\-+") {
		_, err := fmt.Fprintf(w, "%q", name)
		return err
	}
	_, err := fmt.Fprint(w, name)
	return err
}

// writeRelocOperand renders a relocation-bearing operand: the target
// symbol's name, a suffix selected by relocation kind, and a signed
// addend (spec section 4.7's operand-rendering rule).
func writeRelocOperand(w io.Writer, symbols []obj.Symbol, rel *obj.Relocation) error {
	if err := writeSymbolName(w, symbols[rel.Target].Name); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, rel.Kind.Suffix()); err != nil {
		return err
	}
	switch {
	case rel.Addend > 0:
		_, err := fmt.Fprintf(w, "+%#x", rel.Addend)
		return err
	case rel.Addend < 0:
		_, err := fmt.Fprintf(w, "-%#x", -rel.Addend)
		return err
	default:
		return nil
	}
}

// writeBareArg renders an operand with no accompanying relocation, using
// its decoded kind to pick a register, immediate, or raw textual form.
func writeBareArg(w io.Writer, a ppc.Arg) error {
	switch a.Kind {
	case ppc.ArgGPR:
		_, err := fmt.Fprintf(w, "r%d", a.Reg)
		return err
	case ppc.ArgFPR:
		_, err := fmt.Fprintf(w, "f%d", a.Reg)
		return err
	case ppc.ArgCR:
		_, err := fmt.Fprintf(w, "cr%d", a.Reg)
		return err
	case ppc.ArgUimm:
		_, err := fmt.Fprintf(w, "%#x", uint32(a.Value))
		return err
	case ppc.ArgSimm, ppc.ArgOffset, ppc.ArgBranchDest:
		_, err := fmt.Fprintf(w, "%d", a.Value)
		return err
	default:
		_, err := fmt.Fprint(w, a.Text)
		return err
	}
}
