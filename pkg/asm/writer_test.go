package asm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppcsplit/ppcsplit/pkg/obj"
)

func TestWriteAsm_SingleFunction(t *testing.T) {
	img := obj.NewImage(obj.ImageRelocatable, "main.c")
	// addi r3, r0, 10
	code := []byte{0x38, 0x60, 0x00, 0x0A}
	img.Sections = append(img.Sections, obj.Section{
		Name: ".text", Kind: obj.SectionCode, Address: 0x1000, Size: uint32(len(code)), Data: code, Index: 0,
	})
	img.Symbols = append(img.Symbols, obj.Symbol{
		Name: "test_fn", Address: 0x1000, Section: 0, Size: uint32(len(code)), SizeKnown: true,
		Kind: obj.SymbolFunction, Scope: obj.ScopeGlobal,
	})

	var buf bytes.Buffer
	require.NoError(t, WriteAsm(&buf, img))

	output := buf.String()
	assert.Contains(t, output, ".include \"macros.inc\"")
	assert.Contains(t, output, `.file "main.c"`)
	assert.Contains(t, output, ".fn test_fn, global")
	assert.Contains(t, output, "addi r3, r0, 10")
	assert.Contains(t, output, ".endfn test_fn")
}

func TestWriteAsm_BssSkipsBetweenSymbols(t *testing.T) {
	img := obj.NewImage(obj.ImageRelocatable, "data.c")
	img.Sections = append(img.Sections, obj.Section{
		Name: ".bss", Kind: obj.SectionBss, Address: 0x4000, Size: 0x20, Index: 0,
	})
	img.Symbols = append(img.Symbols,
		obj.Symbol{Name: "g_a", Address: 0x4000, Section: 0, Size: 0x4, SizeKnown: true, Kind: obj.SymbolObject, Scope: obj.ScopeGlobal},
		obj.Symbol{Name: "g_b", Address: 0x4010, Section: 0, Size: 0x4, SizeKnown: true, Kind: obj.SymbolObject, Scope: obj.ScopeGlobal},
	)

	var buf bytes.Buffer
	require.NoError(t, WriteAsm(&buf, img))

	output := buf.String()
	assert.Contains(t, output, ".obj g_a, global")
	assert.Contains(t, output, ".obj g_b, global")
	assert.Contains(t, output, "\t.skip 0xc\n")
}

func TestWriteAsm_CommonSymbolsPrintedBeforeSections(t *testing.T) {
	img := obj.NewImage(obj.ImageRelocatable, "common.c")
	img.Sections = append(img.Sections, obj.Section{
		Name: ".bss", Kind: obj.SectionBss, Address: 0, Size: 0x10, Index: 0,
	})
	img.Symbols = append(img.Symbols, obj.Symbol{
		Name: "g_common", Section: obj.NoSection, Size: 0x10, SizeKnown: true,
		Kind: obj.SymbolObject, Scope: obj.ScopeCommon, Align: 8, HasAlign: true,
	})

	var buf bytes.Buffer
	require.NoError(t, WriteAsm(&buf, img))

	output := buf.String()
	assert.Contains(t, output, ".comm g_common, 0x10, 8")
	assert.Contains(t, output, ".section .bss")
	assert.Less(t, strings.Index(output, ".comm g_common"), strings.Index(output, ".section .bss"))
}

func TestWriteAsm_NoNameOmitsFileDirective(t *testing.T) {
	img := obj.NewImage(obj.ImageRelocatable, "")

	var buf bytes.Buffer
	require.NoError(t, WriteAsm(&buf, img))

	assert.NotContains(t, buf.String(), ".file")
}
