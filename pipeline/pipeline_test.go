package pipeline

import (
	"testing"

	"github.com/lookbusy1344/polyasm/diag"
	"github.com/lookbusy1344/polyasm/encode"
)

func defaultConfig() Config {
	return Config{
		CodeOffset: 0,
		DataOffset: 80,
		Widths:     encode.FieldWidths{Op: 5, P1: 14, P2: 5, P3: 6},
	}
}

const sample = `function Boot():
setreg [5]
add [5] [3]
jump [0]
setreg [10]
add [10] [1]

#memory BootSection:
"0x18", "0x23", "0x12", "0x11"
"0x22", "0xD0", "0x20", "0x20"
"0xFF", "0x03", "0x20", "0x88"
`

func TestRunEncodesSampleProgram(t *testing.T) {
	result, diags := Run(sample, defaultConfig())
	if hasErrors(diags) {
		t.Fatalf("unexpected errors: %v", diags)
	}
	if len(result.Words) != 8 {
		t.Fatalf("got %d words, want 8 (5 instructions + 3 memory rows)", len(result.Words))
	}

	want := []uint32{0x00000005, 0x0200C005, 0x92000000, 0x0000000A, 0x0200400A, 0x18231211, 0x22D02020, 0xFF032088}
	for i, w := range want {
		if result.Words[i].Value != w {
			t.Errorf("Words[%d] = 0x%08X, want 0x%08X", i, result.Words[i].Value, w)
		}
	}

	if result.Words[5].Address != 80 {
		t.Errorf("first memory word address = %d, want 80", result.Words[5].Address)
	}
	if result.Words[0].Section != SectionCode || result.Words[5].Section != SectionData {
		t.Error("section tagging is wrong")
	}
}

func TestRunReportsInvalidWidths(t *testing.T) {
	cfg := defaultConfig()
	cfg.Widths = encode.FieldWidths{Op: 5, P1: 14, P2: 5, P3: 5} // sums to 29, not 30
	_, diags := Run(sample, cfg)

	found := false
	for _, d := range diags {
		if d.Kind == diag.KindWidthConfig {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a width_config diagnostic, got %v", diags)
	}
}

func TestRunOrdersWordsByAddressThenSection(t *testing.T) {
	// Code and data sections are independent; overlapping addresses
	// across sections must order code first.
	src := "function A():\nsetreg [1]\n\n#memory M:\n\"0x1\", \"0x2\", \"0x3\", \"0x4\"\n"
	cfg := defaultConfig()
	cfg.DataOffset = 0 // force an address collision with the code section
	result, diags := Run(src, cfg)
	if hasErrors(diags) {
		t.Fatalf("unexpected errors: %v", diags)
	}
	if len(result.Words) != 2 {
		t.Fatalf("got %d words, want 2", len(result.Words))
	}
	if result.Words[0].Address != result.Words[1].Address {
		t.Fatalf("expected a deliberate address collision, got %d and %d", result.Words[0].Address, result.Words[1].Address)
	}
	if result.Words[0].Section != SectionCode || result.Words[1].Section != SectionData {
		t.Error("code should sort before data on an address tie")
	}
}

func TestRunSymbolTablePopulated(t *testing.T) {
	result, diags := Run(sample, defaultConfig())
	if hasErrors(diags) {
		t.Fatalf("unexpected errors: %v", diags)
	}
	if _, ok := result.SymbolTable.Functions["Boot"]; !ok {
		t.Error("expected Boot to be recorded in the symbol table")
	}
	if _, ok := result.SymbolTable.Memories["BootSection"]; !ok {
		t.Error("expected BootSection to be recorded in the symbol table")
	}
}

func hasErrors(diags []diag.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == diag.SeverityError {
			return true
		}
	}
	return false
}
