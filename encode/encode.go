// Package encode packs resolved instructions and data rows into 32-bit
// words. It mirrors the teacher's per-instruction shift/mask composition
// (encoder.Encoder builds a uint32 via "cond<<28 | ..."), retargeted from
// ARM's fixed field layout to PolyAsm's configurable field widths.
package encode

import (
	"fmt"

	"github.com/lookbusy1344/polyasm/block"
	"github.com/lookbusy1344/polyasm/diag"
	"github.com/lookbusy1344/polyasm/expr"
)

// FieldWidths are the four configurable field widths from Config. They
// must sum to 30; the two leading flag bits make 32.
type FieldWidths struct {
	Op uint
	P1 uint
	P2 uint
	P3 uint
}

// Sum returns Op+P1+P2+P3.
func (w FieldWidths) Sum() uint {
	return w.Op + w.P1 + w.P2 + w.P3
}

// Valid reports whether the widths sum to 30, as required for the two
// leading flag bits to bring the total to 32.
func (w FieldWidths) Valid() bool {
	return w.Sum() == 30
}

// Word is one encoded 32-bit machine word at a fixed address.
type Word struct {
	Address uint32
	Value   uint32
}

// Instruction encodes a single resolved instruction at address addr. The
// opcode must be known and every used parameter must already be
// resolved (the resolver guarantees this for any cell the encoder is
// reached for); field_overflow is reported per oversized parameter.
func Instruction(inst *block.InstructionStmt, addr uint32, widths FieldWidths, diags *diag.Collector) (Word, bool) {
	op, ok := Lookup(inst.Opcode)
	if !ok {
		diags.Errorf(diag.KindUnknownOpcode, inst.Line, 0, "unknown opcode %q", inst.Opcode)
		return Word{}, false
	}

	p1 := fieldValue(inst.Params[0], op.UsesP1, widths.P1, "param1", inst.Line, diags)
	p2 := fieldValue(inst.Params[1], op.UsesP2, widths.P2, "param2", inst.Line, diags)
	p3 := fieldValue(inst.Params[2], op.UsesP3, widths.P3, "param3", inst.Line, diags)

	word := op.PFlag<<31 | op.CFlag<<30
	word |= (op.Bits & mask(widths.Op)) << (widths.P3 + widths.P2 + widths.P1)
	word |= (p3 & mask(widths.P3)) << (widths.P2 + widths.P1)
	word |= (p2 & mask(widths.P2)) << widths.P1
	word |= p1 & mask(widths.P1)

	return Word{Address: addr, Value: word}, true
}

// fieldValue extracts a resolved parameter's value, masked to width, and
// reports field_overflow if the resolved value doesn't fit unsigned in
// that many bits. Cells the opcode doesn't use still encode as zero.
func fieldValue(n *expr.Node, used bool, width uint, name string, line uint32, diags *diag.Collector) uint32 {
	if !used || n == nil {
		return 0
	}
	v, ok := expr.Eval(n)
	if !ok {
		// The resolver already reported unresolved_symbol for this cell.
		return 0
	}
	limit := int64(1) << width
	if v < 0 || v >= limit {
		diags.Errorf(diag.KindFieldOverflow, line, 0,
			"%s value %d exceeds field width %d (range 0..%d)", name, v, width, limit-1)
		return uint32(v) & uint32(limit-1)
	}
	return uint32(v)
}

// Row encodes one memory row's four cells into a single 32-bit word,
// row[0] most significant, each cell masked to 8 bits.
func Row(row *block.DataRow, addr uint32, diags *diag.Collector) (Word, bool) {
	var bytes [4]uint32
	ok := true
	for i, cell := range row.Cells {
		v, resolved := expr.Eval(cell)
		if !resolved {
			ok = false
			continue
		}
		if v < 0 || v > 0xFF {
			diags.Errorf(diag.KindFieldOverflow, row.Line, 0,
				"memory cell %d value %d exceeds a byte (range 0..255)", i, v)
		}
		bytes[i] = uint32(v) & 0xFF
	}
	if !ok {
		return Word{}, false
	}
	word := bytes[0]<<24 | bytes[1]<<16 | bytes[2]<<8 | bytes[3]
	return Word{Address: addr, Value: word}, true
}

func mask(width uint) uint32 {
	if width >= 32 {
		return 0xFFFFFFFF
	}
	return (1 << width) - 1
}

// Bitstring renders a 32-bit word as 32 ASCII '0'/'1' characters grouped
// by nibble with single spaces, per the bitstring output format.
func Bitstring(w uint32) string {
	var out [39]byte // 32 bits + 7 separators
	pos := 0
	for i := 31; i >= 0; i-- {
		bit := byte('0')
		if w&(1<<uint(i)) != 0 {
			bit = '1'
		}
		out[pos] = bit
		pos++
		if i%4 == 0 && i != 0 {
			out[pos] = ' '
			pos++
		}
	}
	return string(out[:pos])
}

// FieldBits renders the low `width` bits of v as an ASCII '0'/'1' string
// of exactly `width` characters, for the readable report's per-field
// bit columns.
func FieldBits(v uint32, width uint) string {
	return fmt.Sprintf("%0*b", width, v&mask(width))
}
