// Package resolve runs the multi-pass fixed-point substitution described
// in the resolver design: macro references, alias references, and
// function labels are folded into integers across repeated passes until
// one pass makes no further progress. It generalizes the teacher's
// parser.SymbolTable.ResolveForwardReferences (resolve once, error if
// anything's left) into a true multi-pass fixed point, and reuses
// parser.MacroExpander's call-stack cycle detection shape for macro
// *value* cycles (see DESIGN.md's Open Question decision).
package resolve

import (
	"github.com/samber/lo"

	"github.com/lookbusy1344/polyasm/block"
	"github.com/lookbusy1344/polyasm/diag"
	"github.com/lookbusy1344/polyasm/expr"
	"github.com/lookbusy1344/polyasm/symtab"
)

// cellWork is one cell still awaiting resolution: its expression tree
// root, plus (for a macro's own value expression) the callback that
// publishes the folded value back into the symbol table.
type cellWork struct {
	node       *expr.Node
	onResolved func()
}

// Run resolves every macro value, instruction parameter, and data-row
// cell against tab, mutating the expression trees in place. It reports
// a cycle diagnostic for any macro whose value expression chains back to
// itself, and an unresolved_symbol diagnostic for every cell still
// symbolic once passes stop making progress.
//
// Each pass folds only the work still outstanding: lo.Filter trims the
// work-list down to the cells that didn't resolve this pass, so later
// passes never re-walk a tree that's already done.
func Run(prog *block.Program, tab *symtab.Table, diags *diag.Collector) {
	detectMacroCycles(prog.Macros, diags)

	work := buildWorkList(prog, tab)
	maxPasses := 1 + len(work)
	pass := 0
	for len(work) > 0 {
		pass++
		progressed := false

		for _, item := range work {
			if foldTree(item.node, tab) {
				progressed = true
			}
			if item.node.Resolved && item.onResolved != nil {
				item.onResolved()
				progressed = true
			}
		}

		work = lo.Filter(work, func(item cellWork, _ int) bool {
			return !item.node.Resolved
		})

		if !progressed || pass >= maxPasses {
			break
		}
	}

	reportUnresolved(prog, tab, diags, pass)
}

// buildWorkList flattens every macro value, instruction parameter, and
// data-row cell in prog into a single work-list for Run's pass loop.
func buildWorkList(prog *block.Program, tab *symtab.Table) []cellWork {
	var work []cellWork

	for _, m := range prog.Macros {
		name := m.Name
		work = append(work, cellWork{
			node: m.ValueExpr,
			onResolved: func() {
				entry := tab.Macros[name]
				entry.Resolved = true
				entry.Value = entry.Expr.Value
			},
		})
	}

	for _, b := range prog.Blocks {
		switch b.Kind {
		case block.KindFunction:
			for i := range b.Function.Instructions {
				inst := &b.Function.Instructions[i]
				for p := range inst.Params {
					work = append(work, cellWork{node: inst.Params[p]})
				}
			}
		case block.KindMemory:
			for i := range b.Memory.Rows {
				row := &b.Memory.Rows[i]
				for c := range row.Cells {
					work = append(work, cellWork{node: row.Cells[c]})
				}
			}
		}
	}

	return work
}

// tryResolveLeaf attempts to fold a single reference leaf against the
// symbol table. Function and alias references are available starting
// from pass one, since the address allocator installs them before
// resolution begins; macro references become available once the
// referenced macro's own value has folded.
func tryResolveLeaf(n *expr.Node, tab *symtab.Table) bool {
	if n.Resolved {
		return false
	}
	switch n.Kind {
	case expr.KindMacroRef:
		if entry, ok := tab.Macros[n.Name]; ok && entry.Resolved {
			n.Value = entry.Value
			n.Resolved = true
			return true
		}
	case expr.KindAliasRef:
		if entry, ok := tab.Aliases[n.Name]; ok {
			n.Value = int64(entry.Address)
			n.Resolved = true
			return true
		}
	case expr.KindFuncRef:
		if entry, ok := tab.Functions[n.Name]; ok {
			n.Value = int64(entry.StartAddress)
			n.Resolved = true
			return true
		}
	}
	return false
}

// foldTree attempts to resolve n and every descendant in one pass,
// returning whether anything newly resolved.
func foldTree(n *expr.Node, tab *symtab.Table) bool {
	if n == nil || n.Resolved {
		return false
	}
	switch n.Kind {
	case expr.KindInt:
		return false
	case expr.KindMacroRef, expr.KindAliasRef, expr.KindFuncRef:
		return tryResolveLeaf(n, tab)
	case expr.KindNeg:
		progressed := foldTree(n.Left, tab)
		if n.Left.Resolved {
			if v, ok := expr.Eval(n); ok {
				n.Value = v
				n.Resolved = true
				progressed = true
			}
		}
		return progressed
	case expr.KindBinOp:
		progressedL := foldTree(n.Left, tab)
		progressedR := foldTree(n.Right, tab)
		if n.Left.Resolved && n.Right.Resolved {
			if v, ok := expr.Eval(n); ok {
				n.Value = v
				n.Resolved = true
				return true
			}
		}
		return progressedL || progressedR
	}
	return false
}

// detectMacroCycles walks the macro-reference graph (macro value exprs
// whose leaves reference other macros) and reports one cycle diagnostic
// per strongly-connected cycle found.
func detectMacroCycles(macros []*block.MacroDecl, diags *diag.Collector) {
	byName := map[string]*block.MacroDecl{}
	for _, m := range macros {
		byName[m.Name] = m
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	reported := map[string]bool{}

	var stack []string
	var visit func(name string) bool
	visit = func(name string) bool {
		m, ok := byName[name]
		if !ok {
			return false
		}
		color[name] = gray
		stack = append(stack, name)

		var deps []string
		m.ValueExpr.Walk(func(n *expr.Node) {
			if n.Kind == expr.KindMacroRef {
				deps = append(deps, n.Name)
			}
		})

		for _, dep := range deps {
			switch color[dep] {
			case white:
				if visit(dep) {
					return true
				}
			case gray:
				// Found a cycle; report every macro on the stack from
				// dep's first occurrence onward, once each.
				reportCycle(stack, dep, byName, diags, reported)
				return true
			}
		}

		stack = stack[:len(stack)-1]
		color[name] = black
		return false
	}

	for name := range byName {
		if color[name] == white {
			visit(name)
		}
	}
}

func reportCycle(stack []string, closingName string, byName map[string]*block.MacroDecl, diags *diag.Collector, reported map[string]bool) {
	start := 0
	for i, n := range stack {
		if n == closingName {
			start = i
			break
		}
	}
	cycle := append(append([]string{}, stack[start:]...), closingName)
	if reported[cycle[0]] {
		return
	}
	for _, n := range cycle {
		reported[n] = true
	}
	line := byName[cycle[0]].Line
	diags.Errorf(diag.KindCycle, line, 0, "macro cycle detected: %v", cycle)
}

// reportUnresolved emits an unresolved_symbol diagnostic for every cell
// still symbolic after the resolver stopped making progress.
func reportUnresolved(prog *block.Program, tab *symtab.Table, diags *diag.Collector, finalPass int) {
	report := func(n *expr.Node) {
		if n == nil {
			return
		}
		n.Walk(func(leaf *expr.Node) {
			if leaf.IsLeafReference() && !leaf.Resolved {
				diags.Errorf(diag.KindUnresolvedSymbol, leaf.Line, finalPass,
					"unresolved reference %q", leaf.Name)
			}
		})
	}

	for _, m := range prog.Macros {
		if entry := tab.Macros[m.Name]; !entry.Resolved {
			report(m.ValueExpr)
		}
	}
	for _, b := range prog.Blocks {
		switch b.Kind {
		case block.KindFunction:
			for i := range b.Function.Instructions {
				inst := &b.Function.Instructions[i]
				for _, p := range inst.Params {
					report(p)
				}
			}
		case block.KindMemory:
			for i := range b.Memory.Rows {
				row := &b.Memory.Rows[i]
				for _, c := range row.Cells {
					report(c)
				}
			}
		}
	}
}
