package encode

import (
	"testing"

	"github.com/lookbusy1344/polyasm/block"
	"github.com/lookbusy1344/polyasm/diag"
	"github.com/lookbusy1344/polyasm/expr"
)

func defaultWidths() FieldWidths {
	return FieldWidths{Op: 5, P1: 14, P2: 5, P3: 6}
}

func resolved(v int64) *expr.Node {
	return &expr.Node{Kind: expr.KindInt, IntVal: v, Resolved: true, Value: v}
}

func TestInstructionSetreg(t *testing.T) {
	inst := &block.InstructionStmt{Opcode: "setreg", Params: [3]*expr.Node{resolved(5), expr.Zero(1), expr.Zero(1)}, Line: 1}
	diags := diag.NewCollector()
	w, ok := Instruction(inst, 0, defaultWidths(), diags)
	if !ok || diags.HasErrors() {
		t.Fatalf("Instruction failed: ok=%v diags=%v", ok, diags.Sorted())
	}
	if w.Value != 0x00000005 {
		t.Errorf("setreg[5] = 0x%08X, want 0x00000005", w.Value)
	}
}

func TestInstructionAddTwoParams(t *testing.T) {
	inst := &block.InstructionStmt{Opcode: "add", Params: [3]*expr.Node{resolved(5), resolved(3), expr.Zero(1)}, Line: 1}
	diags := diag.NewCollector()
	w, ok := Instruction(inst, 0, defaultWidths(), diags)
	if !ok || diags.HasErrors() {
		t.Fatalf("Instruction failed: ok=%v diags=%v", ok, diags.Sorted())
	}
	if w.Value != 0x0200C005 {
		t.Errorf("add[5][3] = 0x%08X, want 0x0200C005", w.Value)
	}
}

func TestInstructionJumpSetsPFlag(t *testing.T) {
	inst := &block.InstructionStmt{Opcode: "jump", Params: [3]*expr.Node{resolved(0), expr.Zero(1), expr.Zero(1)}, Line: 1}
	diags := diag.NewCollector()
	w, ok := Instruction(inst, 0, defaultWidths(), diags)
	if !ok || diags.HasErrors() {
		t.Fatalf("Instruction failed: ok=%v diags=%v", ok, diags.Sorted())
	}
	if w.Value != 0x92000000 {
		t.Errorf("jump[0] = 0x%08X, want 0x92000000", w.Value)
	}
}

func TestInstructionUnknownOpcode(t *testing.T) {
	inst := &block.InstructionStmt{Opcode: "frobnicate", Line: 1}
	diags := diag.NewCollector()
	_, ok := Instruction(inst, 0, defaultWidths(), diags)
	if ok || !diags.HasErrors() {
		t.Fatal("expected unknown_opcode error")
	}
}

func TestInstructionFieldOverflow(t *testing.T) {
	// Param1 is 14 bits wide, max value 16383; 20000 overflows.
	inst := &block.InstructionStmt{Opcode: "setreg", Params: [3]*expr.Node{resolved(20000), expr.Zero(1), expr.Zero(1)}, Line: 1}
	diags := diag.NewCollector()
	_, ok := Instruction(inst, 0, defaultWidths(), diags)
	if !ok {
		t.Fatal("overflowing instruction should still encode (masked), not fail outright")
	}
	found := false
	for _, d := range diags.Sorted() {
		if d.Kind == diag.KindFieldOverflow {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a field_overflow diagnostic, got %v", diags.Sorted())
	}
}

func TestRowEncoding(t *testing.T) {
	row := &block.DataRow{Cells: [4]*expr.Node{resolved(0x18), resolved(0x23), resolved(0x12), resolved(0x11)}, Line: 1}
	diags := diag.NewCollector()
	w, ok := Row(row, 80, diags)
	if !ok || diags.HasErrors() {
		t.Fatalf("Row failed: ok=%v diags=%v", ok, diags.Sorted())
	}
	if w.Value != 0x18231211 {
		t.Errorf("Row value = 0x%08X, want 0x18231211", w.Value)
	}
	if w.Address != 80 {
		t.Errorf("Row address = %d, want 80", w.Address)
	}
}

func TestRowUnresolvedCellFails(t *testing.T) {
	unresolved := &expr.Node{Kind: expr.KindMacroRef, Name: "MISSING"}
	row := &block.DataRow{Cells: [4]*expr.Node{unresolved, resolved(0), resolved(0), resolved(0)}, Line: 1}
	diags := diag.NewCollector()
	_, ok := Row(row, 0, diags)
	if ok {
		t.Fatal("Row should fail when a cell is unresolved")
	}
}

func TestFieldWidthsValid(t *testing.T) {
	if !defaultWidths().Valid() {
		t.Error("default widths should sum to 30")
	}
	bad := FieldWidths{Op: 5, P1: 14, P2: 5, P3: 5}
	if bad.Valid() {
		t.Error("widths summing to 29 should be invalid")
	}
}

func TestBitstring(t *testing.T) {
	got := Bitstring(0x00000005)
	want := "0000 0000 0000 0000 0000 0000 0000 0101"
	if got != want {
		t.Errorf("Bitstring(5) = %q, want %q", got, want)
	}
}

func TestFieldBits(t *testing.T) {
	got := FieldBits(5, 14)
	if got != "00000000000101" {
		t.Errorf("FieldBits(5,14) = %q, want 14-bit zero-padded binary", got)
	}
}
