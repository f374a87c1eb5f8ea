// Package layout assigns code-section and data-section addresses to
// function and memory blocks, and detects overlaps within each section.
// It generalizes the teacher's loader.LoadProgramIntoVM address-
// assignment pass (one segment, one program) to PolyAsm's two
// independent sections.
package layout

import (
	"github.com/lookbusy1344/polyasm/block"
	"github.com/lookbusy1344/polyasm/diag"
	"github.com/lookbusy1344/polyasm/symtab"
)

// Config holds the two section base addresses. Field widths live in the
// encode package since they don't affect layout.
type Config struct {
	CodeOffset uint32
	DataOffset uint32
}

type span struct {
	name   string
	line   uint32
	start  uint32
	length uint32
}

// Allocate assigns StartAddress to every function and memory block in
// blocks, in source order within each partition, then records the
// resulting entries (and any instruction/row aliases) into tab. Overlap
// diagnostics are reported per section; code and data sections are
// independent address spaces, so a function and a memory block may
// legitimately share a numeric address.
func Allocate(blocks []*block.Block, cfg Config, tab *symtab.Table, diags *diag.Collector) {
	var funcSpans, memSpans []span

	codeAddr := cfg.CodeOffset
	dataAddr := cfg.DataOffset

	for _, b := range blocks {
		switch b.Kind {
		case block.KindFunction:
			fb := b.Function
			fb.StartAddress = codeAddr
			length := uint32(len(fb.Instructions)) // #nosec G115 -- instruction counts are bounded by source size
			funcSpans = append(funcSpans, span{name: fb.Name, line: fb.StartLine, start: codeAddr, length: length})
			tab.DefineFunction(fb.Name, symtab.FunctionEntry{StartAddress: codeAddr, Length: length})

			for i := range fb.Instructions {
				inst := &fb.Instructions[i]
				if inst.Alias != "" {
					tab.DefineAlias(inst.Alias, codeAddr+uint32(i), inst.Line, diags) // #nosec G115 -- bounded by function length
				}
			}
			codeAddr += length

		case block.KindMemory:
			mb := b.Memory
			mb.StartAddress = dataAddr
			length := uint32(len(mb.Rows)) // #nosec G115 -- row counts are bounded by source size
			memSpans = append(memSpans, span{name: mb.Name, line: mb.StartLine, start: dataAddr, length: length})
			tab.DefineMemory(mb.Name, symtab.MemoryEntry{StartAddress: dataAddr, Length: length})

			for i := range mb.Rows {
				row := &mb.Rows[i]
				if row.Alias != "" {
					tab.DefineAlias(row.Alias, dataAddr+uint32(i), row.Line, diags) // #nosec G115 -- bounded by memory block length
				}
			}
			dataAddr += length
		}
	}

	reportOverlaps(funcSpans, diags)
	reportOverlaps(memSpans, diags)
}

// reportOverlaps checks every pair of half-open [start, start+length)
// intervals within one section and reports one overlap diagnostic per
// intersecting pair, naming both blocks and their source lines.
func reportOverlaps(spans []span, diags *diag.Collector) {
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			if intersects(a, b) {
				diags.Errorf(diag.KindOverlap, a.line, 0,
					"block %q (line %d, [%d,%d)) overlaps block %q (line %d, [%d,%d))",
					a.name, a.line, a.start, a.start+a.length,
					b.name, b.line, b.start, b.start+b.length)
			}
		}
	}
}

func intersects(a, b span) bool {
	aEnd := a.start + a.length
	bEnd := b.start + b.length
	return a.start < bEnd && b.start < aEnd
}
