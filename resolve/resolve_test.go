package resolve

import (
	"testing"

	"github.com/lookbusy1344/polyasm/block"
	"github.com/lookbusy1344/polyasm/diag"
	"github.com/lookbusy1344/polyasm/expr"
	"github.com/lookbusy1344/polyasm/symtab"
)

func defineMacro(tab *symtab.Table, name string, node *expr.Node, line uint32, diags *diag.Collector) {
	tab.DefineMacro(name, node, line, diags)
}

func TestRunResolvesMacroChain(t *testing.T) {
	tab := symtab.New()
	diags := diag.NewCollector()

	// #macro A B, #macro B 5 -- A must resolve through B across passes.
	aExpr := &expr.Node{Kind: expr.KindMacroRef, Name: "B", Line: 1}
	bExpr := &expr.Node{Kind: expr.KindInt, IntVal: 5, Resolved: true, Value: 5, Line: 2}
	macroA := &block.MacroDecl{Name: "A", ValueExpr: aExpr, Line: 1}
	macroB := &block.MacroDecl{Name: "B", ValueExpr: bExpr, Line: 2}
	defineMacro(tab, "A", aExpr, 1, diags)
	defineMacro(tab, "B", bExpr, 2, diags)

	prog := &block.Program{Macros: []*block.MacroDecl{macroA, macroB}}
	Run(prog, tab, diags)

	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Sorted())
	}
	if !tab.Macros["A"].Resolved || tab.Macros["A"].Value != 5 {
		t.Errorf("Macros[A] = %+v, want resolved value 5", tab.Macros["A"])
	}
}

func TestRunDetectsMacroCycle(t *testing.T) {
	tab := symtab.New()
	diags := diag.NewCollector()

	aExpr := &expr.Node{Kind: expr.KindMacroRef, Name: "B", Line: 1}
	bExpr := &expr.Node{Kind: expr.KindMacroRef, Name: "A", Line: 2}
	macroA := &block.MacroDecl{Name: "A", ValueExpr: aExpr, Line: 1}
	macroB := &block.MacroDecl{Name: "B", ValueExpr: bExpr, Line: 2}
	defineMacro(tab, "A", aExpr, 1, diags)
	defineMacro(tab, "B", bExpr, 2, diags)

	prog := &block.Program{Macros: []*block.MacroDecl{macroA, macroB}}
	Run(prog, tab, diags)

	found := false
	for _, d := range diags.Sorted() {
		if d.Kind == diag.KindCycle {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a cycle diagnostic, got %v", diags.Sorted())
	}
}

func TestRunResolvesAliasAndFunctionRefsImmediately(t *testing.T) {
	tab := symtab.New()
	diags := diag.NewCollector()
	tab.DefineAlias("start", 42, 1, diags)
	tab.DefineFunction("Boot", symtab.FunctionEntry{StartAddress: 7, Length: 2})

	aliasCell := &expr.Node{Kind: expr.KindAliasRef, Name: "start", Line: 1}
	funcCell := &expr.Node{Kind: expr.KindFuncRef, Name: "Boot", Line: 1}
	inst := block.InstructionStmt{Opcode: "jump", Params: [3]*expr.Node{aliasCell, funcCell, expr.Zero(1)}, Line: 1}
	fb := &block.FunctionBlock{Name: "Main", Instructions: []block.InstructionStmt{inst}}
	prog := &block.Program{Blocks: []*block.Block{{Kind: block.KindFunction, Function: fb}}}

	Run(prog, tab, diags)

	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Sorted())
	}
	if !aliasCell.Resolved || aliasCell.Value != 42 {
		t.Errorf("aliasCell = %+v, want resolved 42", aliasCell)
	}
	if !funcCell.Resolved || funcCell.Value != 7 {
		t.Errorf("funcCell = %+v, want resolved 7", funcCell)
	}
}

func TestRunReportsUnresolvedSymbol(t *testing.T) {
	tab := symtab.New()
	diags := diag.NewCollector()

	missing := &expr.Node{Kind: expr.KindMacroRef, Name: "MISSING", Line: 3}
	inst := block.InstructionStmt{Opcode: "setreg", Params: [3]*expr.Node{missing, expr.Zero(3), expr.Zero(3)}, Line: 3}
	fb := &block.FunctionBlock{Name: "Main", Instructions: []block.InstructionStmt{inst}}
	prog := &block.Program{Blocks: []*block.Block{{Kind: block.KindFunction, Function: fb}}}

	Run(prog, tab, diags)

	found := false
	for _, d := range diags.Sorted() {
		if d.Kind == diag.KindUnresolvedSymbol {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an unresolved_symbol diagnostic, got %v", diags.Sorted())
	}
}

func TestRunFoldsArithmeticAcrossMacros(t *testing.T) {
	tab := symtab.New()
	diags := diag.NewCollector()

	// Cell expression "#LIMIT + 1" where LIMIT resolves to 9.
	limitExpr := &expr.Node{Kind: expr.KindInt, IntVal: 9, Resolved: true, Value: 9, Line: 1}
	macroLimit := &block.MacroDecl{Name: "LIMIT", ValueExpr: limitExpr, Line: 1}
	defineMacro(tab, "LIMIT", limitExpr, 1, diags)

	ref := &expr.Node{Kind: expr.KindMacroRef, Name: "LIMIT", Line: 2}
	one := &expr.Node{Kind: expr.KindInt, IntVal: 1, Resolved: true, Value: 1, Line: 2}
	sum := &expr.Node{Kind: expr.KindBinOp, Op: expr.OpAdd, Left: ref, Right: one, Line: 2}

	inst := block.InstructionStmt{Opcode: "setreg", Params: [3]*expr.Node{sum, expr.Zero(2), expr.Zero(2)}, Line: 2}
	fb := &block.FunctionBlock{Name: "Main", Instructions: []block.InstructionStmt{inst}}
	prog := &block.Program{Macros: []*block.MacroDecl{macroLimit}, Blocks: []*block.Block{{Kind: block.KindFunction, Function: fb}}}

	Run(prog, tab, diags)

	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Sorted())
	}
	v, ok := expr.Eval(sum)
	if !ok || v != 10 {
		t.Errorf("sum evaluated to %d, ok=%v, want 10", v, ok)
	}
}
