// Package pipeline is the core assembly pipeline's single pure entry
// point: Run takes source text and a Config and returns the encoded
// words plus every diagnostic, with no I/O and no process-wide state,
// per the concurrency model. It wires lexer -> block -> symtab ->
// layout -> resolve -> encode in the same staged order the teacher's
// main.go orchestrates parse -> load -> run, but as a side-effect-free
// function instead of one that owns files and VM state directly.
package pipeline

import (
	"sort"

	"github.com/lookbusy1344/polyasm/block"
	"github.com/lookbusy1344/polyasm/diag"
	"github.com/lookbusy1344/polyasm/encode"
	"github.com/lookbusy1344/polyasm/expr"
	"github.com/lookbusy1344/polyasm/layout"
	"github.com/lookbusy1344/polyasm/lexer"
	"github.com/lookbusy1344/polyasm/resolve"
	"github.com/lookbusy1344/polyasm/symtab"
)

// Section distinguishes code-section words from data-section words in
// the merged output stream.
type Section int

const (
	SectionCode Section = iota
	SectionData
)

// Config is the core pipeline's configuration: section offsets and
// instruction field widths. CLI-only concerns (display base, color,
// file paths) live in the config and report packages, not here.
type Config struct {
	CodeOffset uint32
	DataOffset uint32
	Widths     encode.FieldWidths
}

// EncodedWord is one emitted 32-bit word plus enough provenance to drive
// the readable report and the terminal summary.
type EncodedWord struct {
	Address uint32
	Value   uint32
	Section Section

	// Instruction provenance (Section == SectionCode).
	FuncName    string
	Opcode      string
	ParamValues [3]int64
	Alias       string

	// Memory-row provenance (Section == SectionData).
	MemName string
	Bytes   [4]uint8
}

// Result is the pipeline's successful output: every encoded word in
// ascending address order (code before data on an address tie), plus
// the symbol table for the -d debug dump.
type Result struct {
	Words       []EncodedWord
	SymbolTable *symtab.Table
}

// Run assembles source under cfg and returns the result plus every
// diagnostic recorded, ordered by source line then resolver pass. A
// non-empty diagnostic list containing any error means Result is
// incomplete or empty; callers should still inspect Result.Words for
// whatever the pipeline managed to encode before the fatal diagnostic.
func Run(source string, cfg Config) (*Result, []diag.Diagnostic) {
	diags := diag.NewCollector()

	if !cfg.Widths.Valid() {
		diags.Errorf(diag.KindWidthConfig, 0, 0,
			"field widths opcode=%d param1=%d param2=%d param3=%d sum to %d, must sum to 30",
			cfg.Widths.Op, cfg.Widths.P1, cfg.Widths.P2, cfg.Widths.P3, cfg.Widths.Sum())
		return &Result{SymbolTable: symtab.New()}, diags.Sorted()
	}

	lines := lexer.Scan(source)
	classified := lexer.Classify(lines)
	prog := block.Parse(classified, diags)

	tab := symtab.New()
	for _, m := range prog.Macros {
		tab.DefineMacro(m.Name, m.ValueExpr, m.Line, diags)
	}

	layout.Allocate(prog.Blocks, layout.Config{CodeOffset: cfg.CodeOffset, DataOffset: cfg.DataOffset}, tab, diags)

	resolve.Run(prog, tab, diags)

	words := encodeAll(prog, cfg.Widths, diags)

	return &Result{Words: words, SymbolTable: tab}, diags.Sorted()
}

func encodeAll(prog *block.Program, widths encode.FieldWidths, diags *diag.Collector) []EncodedWord {
	var words []EncodedWord

	for _, b := range prog.Blocks {
		switch b.Kind {
		case block.KindFunction:
			fb := b.Function
			for i := range fb.Instructions {
				inst := &fb.Instructions[i]
				addr := fb.StartAddress + uint32(i) // #nosec G115 -- bounded by function length
				w, ok := encode.Instruction(inst, addr, widths, diags)
				if !ok {
					continue
				}
				var params [3]int64
				for p := range inst.Params {
					v, _ := expr.Eval(inst.Params[p])
					params[p] = v
				}
				words = append(words, EncodedWord{
					Address:     w.Address,
					Value:       w.Value,
					Section:     SectionCode,
					FuncName:    fb.Name,
					Opcode:      inst.Opcode,
					ParamValues: params,
					Alias:       inst.Alias,
				})
			}
		case block.KindMemory:
			mb := b.Memory
			for i := range mb.Rows {
				row := &mb.Rows[i]
				addr := mb.StartAddress + uint32(i) // #nosec G115 -- bounded by memory block length
				w, ok := encode.Row(row, addr, diags)
				if !ok {
					continue
				}
				var bytes [4]uint8
				for c := range row.Cells {
					v, _ := expr.Eval(row.Cells[c])
					bytes[c] = uint8(v)
				}
				words = append(words, EncodedWord{
					Address: w.Address,
					Value:   w.Value,
					Section: SectionData,
					MemName: mb.Name,
					Bytes:   bytes,
					Alias:   row.Alias,
				})
			}
		}
	}

	sort.SliceStable(words, func(i, j int) bool {
		if words[i].Address != words[j].Address {
			return words[i].Address < words[j].Address
		}
		return words[i].Section < words[j].Section // code before data on a tie
	})

	return words
}
