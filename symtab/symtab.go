// Package symtab holds the four PolyAsm namespaces: macros, aliases,
// functions, and memory blocks. It generalizes the teacher's
// parser.SymbolTable (forward-reference bookkeeping, one namespace) to
// four independent namespaces with a uniform last-wins redefinition
// policy. Macro *value* cycle detection is not done here; it lives in
// the resolve package (see DESIGN.md's Open Question decision).
package symtab

import (
	"sort"

	"github.com/lookbusy1344/polyasm/diag"
	"github.com/lookbusy1344/polyasm/expr"
)

// MacroEntry is a declared macro's value expression and the line it was
// (most recently) declared at. The expression starts unresolved; the
// resolver mutates it toward a single integer in place.
type MacroEntry struct {
	Expr      *expr.Node
	DefinedAt uint32
	Resolved  bool
	Value     int64
}

// AliasEntry binds a name to an address, known from layout time onward.
type AliasEntry struct {
	Address   uint32
	DefinedAt uint32
}

// FunctionEntry records a function block's layout.
type FunctionEntry struct {
	StartAddress uint32
	Length       uint32
}

// MemoryEntry records a memory block's layout.
type MemoryEntry struct {
	StartAddress uint32
	Length       uint32
}

// Table is the symbol table shared by every pipeline stage from parsing
// onward.
type Table struct {
	Macros    map[string]*MacroEntry
	Aliases   map[string]*AliasEntry
	Functions map[string]*FunctionEntry
	Memories  map[string]*MemoryEntry
}

// New returns an empty symbol table.
func New() *Table {
	return &Table{
		Macros:    map[string]*MacroEntry{},
		Aliases:   map[string]*AliasEntry{},
		Functions: map[string]*FunctionEntry{},
		Memories:  map[string]*MemoryEntry{},
	}
}

// DefineMacro installs (or replaces) a macro. A second definition of the
// same name logs a redefinition warning and replaces the first, per the
// last-wins policy.
func (t *Table) DefineMacro(name string, value *expr.Node, line uint32, diags *diag.Collector) {
	if prev, exists := t.Macros[name]; exists {
		diags.Warnf(diag.KindRedefinition, line, 0,
			"macro %q redefined (previously defined at line %d)", name, prev.DefinedAt)
	}
	t.Macros[name] = &MacroEntry{Expr: value, DefinedAt: line}
}

// DefineAlias installs (or replaces) an alias address.
func (t *Table) DefineAlias(name string, address uint32, line uint32, diags *diag.Collector) {
	if prev, exists := t.Aliases[name]; exists {
		diags.Warnf(diag.KindRedefinition, line, 0,
			"alias %q redefined (previously defined at line %d)", name, prev.DefinedAt)
	}
	t.Aliases[name] = &AliasEntry{Address: address, DefinedAt: line}
}

// DefineFunction installs (or replaces) a function's layout.
func (t *Table) DefineFunction(name string, entry FunctionEntry) {
	t.Functions[name] = &entry
}

// DefineMemory installs (or replaces) a memory block's layout.
func (t *Table) DefineMemory(name string, entry MemoryEntry) {
	t.Memories[name] = &entry
}

// MacroNames returns every declared macro name in a deterministic order,
// for the symbol-table dump.
func (t *Table) MacroNames() []string {
	return sortedKeys(t.Macros)
}

// AliasNames returns every declared alias name in a deterministic order.
func (t *Table) AliasNames() []string {
	return sortedKeys(t.Aliases)
}

// FunctionNames returns every function name in a deterministic order.
func (t *Table) FunctionNames() []string {
	return sortedKeys(t.Functions)
}

// MemoryNames returns every memory block name in a deterministic order.
func (t *Table) MemoryNames() []string {
	return sortedKeys(t.Memories)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
