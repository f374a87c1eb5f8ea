package block

import (
	"testing"

	"github.com/lookbusy1344/polyasm/diag"
	"github.com/lookbusy1344/polyasm/lexer"
)

func parse(t *testing.T, source string) (*Program, *diag.Collector) {
	t.Helper()
	diags := diag.NewCollector()
	lines := lexer.Scan(source)
	classified := lexer.Classify(lines)
	return Parse(classified, diags), diags
}

func TestParseFunctionAndMemoryBlocks(t *testing.T) {
	prog, diags := parse(t, "function Boot():\nsetreg [5]\nadd [5] [3]\n\n#memory BootSection:\n\"0x18\", \"0x23\", \"0x12\", \"0x11\"\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Sorted())
	}
	if len(prog.Blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(prog.Blocks))
	}
	if prog.Blocks[0].Kind != KindFunction || prog.Blocks[0].Function.Name != "Boot" {
		t.Errorf("blocks[0] = %+v, want function Boot", prog.Blocks[0])
	}
	if len(prog.Blocks[0].Function.Instructions) != 2 {
		t.Errorf("got %d instructions, want 2", len(prog.Blocks[0].Function.Instructions))
	}
	if prog.Blocks[1].Kind != KindMemory || prog.Blocks[1].Memory.Name != "BootSection" {
		t.Errorf("blocks[1] = %+v, want memory BootSection", prog.Blocks[1])
	}
	if len(prog.Blocks[1].Memory.Rows) != 1 {
		t.Errorf("got %d rows, want 1", len(prog.Blocks[1].Memory.Rows))
	}
}

func TestParseMacroDecl(t *testing.T) {
	prog, diags := parse(t, "#macro LIMIT 10\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Sorted())
	}
	if len(prog.Macros) != 1 || prog.Macros[0].Name != "LIMIT" {
		t.Fatalf("macros = %+v, want one macro named LIMIT", prog.Macros)
	}
}

func TestDuplicateFunctionNameErrors(t *testing.T) {
	_, diags := parse(t, "function Boot():\nsetreg [1]\n\nfunction Boot():\nsetreg [2]\n")
	if !diags.HasErrors() {
		t.Fatal("expected a duplicate-function error")
	}
}

func TestInstructionOutsideBlockErrors(t *testing.T) {
	_, diags := parse(t, "setreg [1]\n")
	if !diags.HasErrors() {
		t.Fatal("expected an error for a statement before any block")
	}
}

func TestMissingCellsDefaultToZero(t *testing.T) {
	prog, diags := parse(t, "function Boot():\nsetreg [5]\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Sorted())
	}
	stmt := prog.Blocks[0].Function.Instructions[0]
	for i := 1; i < 3; i++ {
		if !stmt.Params[i].Resolved || stmt.Params[i].Value != 0 {
			t.Errorf("Params[%d] = %+v, want resolved zero", i, stmt.Params[i])
		}
	}
}

func TestAliasParsing(t *testing.T) {
	prog, diags := parse(t, "function Boot():\nsetreg [5] #alias entry\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Sorted())
	}
	if prog.Blocks[0].Function.Instructions[0].Alias != "entry" {
		t.Errorf("Alias = %q, want entry", prog.Blocks[0].Function.Instructions[0].Alias)
	}
}
