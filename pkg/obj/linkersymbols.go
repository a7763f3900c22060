package obj

// linkerGeneratedNames enumerates symbol names the CodeWarrior linker
// synthesizes itself; no relocatable input may define them (spec section
// 4.5). Ported from the reference is_linker_generated_label table.
var linkerGeneratedNames = map[string]bool{
	"_ctors":           true,
	"_dtors":           true,
	"_f_init":          true,
	"_f_init_rom":      true,
	"_e_init":          true,
	"_fextab":          true,
	"_fextab_rom":      true,
	"_eextab":          true,
	"_fextabindex":     true,
	"_fextabindex_rom": true,
	"_eextabindex":     true,
	"_f_text":          true,
	"_f_text_rom":      true,
	"_e_text":          true,
	"_f_ctors":         true,
	"_f_ctors_rom":     true,
	"_e_ctors":         true,
	"_f_dtors":         true,
	"_f_dtors_rom":     true,
	"_e_dtors":         true,
	"_f_rodata":        true,
	"_f_rodata_rom":    true,
	"_e_rodata":        true,
	"_f_data":          true,
	"_f_data_rom":      true,
	"_e_data":          true,
	"_f_sdata":         true,
	"_f_sdata_rom":     true,
	"_e_sdata":         true,
	"_f_sbss":          true,
	"_f_sbss_rom":      true,
	"_e_sbss":          true,
	"_f_sdata2":        true,
	"_f_sdata2_rom":    true,
	"_e_sdata2":        true,
	"_f_sbss2":         true,
	"_f_sbss2_rom":     true,
	"_e_sbss2":         true,
	"_f_bss":           true,
	"_f_bss_rom":       true,
	"_e_bss":           true,
	"_f_stack":         true,
	"_f_stack_rom":     true,
	"_e_stack":         true,
	"_stack_addr":      true,
	"_stack_end":       true,
	"_db_stack_addr":   true,
	"_db_stack_end":    true,
	"_heap_addr":       true,
	"_heap_end":        true,
	"_nbfunctions":     true,
	"SIZEOF_HEADERS":   true,
	"_SDA_BASE_":       true,
	"_SDA2_BASE_":      true,
	"_ABS_SDA_BASE_":   true,
	"_ABS_SDA2_BASE_":  true,
}

// IsLinkerGeneratedSymbol reports whether name is a symbol the linker
// itself defines, which must be externalised rather than defined by any
// emitted relocatable (spec section 4.5). Ported verbatim from the
// reference implementation's is_linker_generated_label table.
func IsLinkerGeneratedSymbol(name string) bool {
	return linkerGeneratedNames[name]
}

// linkerGeneratedObjectNames is the narrower list of names marking an
// entire synthetic object whose address should not be treated as real
// section content when computing a section's end (spec section 4.5/4.6).
var linkerGeneratedObjectNames = map[string]bool{
	"_eti_init_info":  true,
	"_rom_copy_info":  true,
	"_bss_init_info":  true,
	"_ctors$99":       true,
	"_dtors$99":       true,
}

// IsLinkerGeneratedObject reports whether name marks one of the linker's
// own synthetic objects.
func IsLinkerGeneratedObject(name string) bool {
	return linkerGeneratedObjectNames[name]
}
