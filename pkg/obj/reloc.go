package obj

// RelocKind is the PowerPC relocation type a Relocation applies.
type RelocKind int

const (
	RelocAbsolute RelocKind = iota
	RelocPpcAddr16Hi
	RelocPpcAddr16Ha
	RelocPpcAddr16Lo
	RelocPpcRel24
	RelocPpcRel14
	RelocPpcEmbSda21
)

func (k RelocKind) String() string {
	switch k {
	case RelocAbsolute:
		return "Absolute"
	case RelocPpcAddr16Hi:
		return "PpcAddr16Hi"
	case RelocPpcAddr16Ha:
		return "PpcAddr16Ha"
	case RelocPpcAddr16Lo:
		return "PpcAddr16Lo"
	case RelocPpcRel24:
		return "PpcRel24"
	case RelocPpcRel14:
		return "PpcRel14"
	case RelocPpcEmbSda21:
		return "PpcEmbSda21"
	default:
		return "Unknown"
	}
}

// Suffix returns the operand suffix the assembly emitter prints for
// relocation-bearing operands, per spec section 4.7.
func (k RelocKind) Suffix() string {
	switch k {
	case RelocPpcAddr16Hi:
		return "@h"
	case RelocPpcAddr16Ha:
		return "@ha"
	case RelocPpcAddr16Lo:
		return "@l"
	case RelocPpcEmbSda21:
		return "@sda21"
	default:
		return ""
	}
}

// Relocation is a rewritable field in section bytes whose final value
// depends on a symbol's link-time address.
type Relocation struct {
	Kind RelocKind
	// Address is the virtual address of the relocated field, which lies
	// inside the owning section.
	Address uint32
	// Target is an index into the owning object's symbol table.
	Target int
	Addend int32
}
