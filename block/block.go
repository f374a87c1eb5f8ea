// Package block groups classified lines into typed blocks: function
// blocks, memory blocks, and top-level macro declarations. It mirrors the
// teacher's statement loop (parser.Parser) and its block/directive state
// machine (parser.Preprocessor), retargeted to PolyAsm's three block
// kinds instead of ARM directives.
package block

import (
	"fmt"
	"strings"

	"github.com/lookbusy1344/polyasm/diag"
	"github.com/lookbusy1344/polyasm/expr"
	"github.com/lookbusy1344/polyasm/lexer"
)

// Kind discriminates the two block shapes that take part in layout.
type Kind int

const (
	KindFunction Kind = iota
	KindMemory
)

// InstructionStmt is one instruction line inside a function block, after
// cell parsing but before address/resolution.
type InstructionStmt struct {
	Opcode string
	Params [3]*expr.Node // empty cell -> expr.Zero
	Alias  string
	Line   uint32
	Raw    string
}

// DataRow is one 4-cell row inside a memory block.
type DataRow struct {
	Cells [4]*expr.Node
	Alias string
	Line  uint32
	Raw   string
}

// FunctionBlock is a named, ordered list of instructions. StartAddress is
// zero until the address allocator runs.
type FunctionBlock struct {
	Name         string
	StartLine    uint32
	Instructions []InstructionStmt
	StartAddress uint32
}

// MemoryBlock is a named, ordered list of 4-byte data rows. StartAddress
// is zero until the address allocator runs.
type MemoryBlock struct {
	Name         string
	StartLine    uint32
	Rows         []DataRow
	StartAddress uint32
}

// MacroDecl is a top-level "#macro NAME VALUE" declaration.
type MacroDecl struct {
	Name      string
	ValueExpr *expr.Node
	Line      uint32
}

// Block is a tagged union of FunctionBlock and MemoryBlock. MacroDecls
// are returned separately since they never participate in address
// layout.
type Block struct {
	Kind     Kind
	Function *FunctionBlock
	Memory   *MemoryBlock
}

// Program is the parser's output: blocks in source order plus the flat
// list of top-level macro declarations.
type Program struct {
	Blocks []*Block
	Macros []*MacroDecl
}

// Parse consumes classified lines and groups them into blocks. A header
// line opens a block; the block closes on the next header, on end of
// file, or on a blank-line separator (blank lines are otherwise ignored
// inside a block).
func Parse(lines []lexer.Classified, diags *diag.Collector) *Program {
	prog := &Program{}
	funcNames := map[string]uint32{}
	memNames := map[string]uint32{}

	var cur *Block
	haveOpenedAnyBlock := false

	closeCurrent := func() { cur = nil }

	for _, cl := range lines {
		switch cl.Kind {
		case lexer.KindBlank:
			closeCurrent()

		case lexer.KindMacroDecl:
			name, valueRaw, ok := parseMacroHeader(cl.Trimmed)
			if !ok {
				diags.Errorf(diag.KindParse, cl.Line.Number, 0, "malformed macro declaration: %q", cl.Trimmed)
				continue
			}
			node, err := expr.ParseMacroValue(valueRaw, cl.Line.Number)
			if err != nil {
				diags.Errorf(diag.KindLex, cl.Line.Number, 0, "%v", err)
				continue
			}
			prog.Macros = append(prog.Macros, &MacroDecl{Name: name, ValueExpr: node, Line: cl.Line.Number})
			closeCurrent()

		case lexer.KindMemoryHeader:
			name, ok := parseMemoryHeader(cl.Trimmed)
			if !ok {
				diags.Errorf(diag.KindParse, cl.Line.Number, 0, "malformed memory-block header: %q", cl.Trimmed)
				closeCurrent()
				continue
			}
			if prevLine, dup := memNames[name]; dup {
				diags.Errorf(diag.KindParse, cl.Line.Number, 0,
					"duplicate memory block %q (previously declared at line %d)", name, prevLine)
				closeCurrent()
				continue
			}
			memNames[name] = cl.Line.Number
			mb := &MemoryBlock{Name: name, StartLine: cl.Line.Number}
			b := &Block{Kind: KindMemory, Memory: mb}
			prog.Blocks = append(prog.Blocks, b)
			cur = b
			haveOpenedAnyBlock = true

		case lexer.KindFunctionHeader:
			name, ok := parseFunctionHeader(cl.Trimmed)
			if !ok {
				diags.Errorf(diag.KindParse, cl.Line.Number, 0, "malformed function header: %q", cl.Trimmed)
				closeCurrent()
				continue
			}
			if prevLine, dup := funcNames[name]; dup {
				diags.Errorf(diag.KindParse, cl.Line.Number, 0,
					"duplicate function %q (previously declared at line %d)", name, prevLine)
				closeCurrent()
				continue
			}
			funcNames[name] = cl.Line.Number
			fb := &FunctionBlock{Name: name, StartLine: cl.Line.Number}
			b := &Block{Kind: KindFunction, Function: fb}
			prog.Blocks = append(prog.Blocks, b)
			cur = b
			haveOpenedAnyBlock = true

		case lexer.KindDataRow:
			if cur == nil || cur.Kind != KindMemory {
				diags.Errorf(diag.KindParse, cl.Line.Number, 0,
					"data row outside a #memory block: %q", cl.Trimmed)
				continue
			}
			row, err := parseDataRow(cl.Trimmed, cl.Line.Number)
			if err != nil {
				diags.Errorf(diag.KindLex, cl.Line.Number, 0, "%v", err)
				continue
			}
			cur.Memory.Rows = append(cur.Memory.Rows, *row)

		case lexer.KindInstruction:
			if cur == nil || cur.Kind != KindFunction {
				if !haveOpenedAnyBlock {
					diags.Errorf(diag.KindParse, cl.Line.Number, 0,
						"statement before first block: %q", cl.Trimmed)
				} else {
					diags.Errorf(diag.KindParse, cl.Line.Number, 0,
						"instruction outside a function block: %q", cl.Trimmed)
				}
				continue
			}
			stmt, err := parseInstruction(cl.Trimmed, cl.Line.Number)
			if err != nil {
				diags.Errorf(diag.KindLex, cl.Line.Number, 0, "%v", err)
				continue
			}
			cur.Function.Instructions = append(cur.Function.Instructions, *stmt)

		case lexer.KindUnrecognized:
			diags.Errorf(diag.KindLex, cl.Line.Number, 0, "unrecognized line: %q", cl.Trimmed)
		}
	}

	return prog
}

func parseMacroHeader(trimmed string) (name, valueRaw string, ok bool) {
	fields := strings.Fields(strings.TrimPrefix(trimmed, "#macro "))
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], strings.Join(fields[1:], ""), true
}

func parseMemoryHeader(trimmed string) (name string, ok bool) {
	body := strings.TrimPrefix(trimmed, "#memory ")
	body = strings.TrimSuffix(body, ":")
	body = strings.TrimSpace(body)
	if body == "" {
		return "", false
	}
	return body, true
}

func parseFunctionHeader(trimmed string) (name string, ok bool) {
	body := strings.TrimPrefix(trimmed, "function ")
	idx := strings.Index(body, "(")
	if idx < 0 {
		return "", false
	}
	name = strings.TrimSpace(body[:idx])
	if name == "" {
		return "", false
	}
	return name, true
}

// parseInstruction parses "<opcode> [<cell>] [<cell>] [<cell>] #alias <name>".
// Missing trailing cells default to an empty ("[]") cell, which encodes
// as zero.
func parseInstruction(trimmed string, line uint32) (*InstructionStmt, error) {
	body, alias := splitAlias(trimmed)
	opcode, cellsRaw := splitFirstField(body)

	cells, err := splitBracketCells(cellsRaw)
	if err != nil {
		return nil, err
	}

	stmt := &InstructionStmt{Opcode: opcode, Alias: alias, Line: line, Raw: trimmed}
	for i := 0; i < 3; i++ {
		if i < len(cells) {
			node, err := expr.ParseCell(cells[i], line)
			if err != nil {
				return nil, err
			}
			stmt.Params[i] = node
		} else {
			stmt.Params[i] = expr.Zero(line)
		}
	}
	return stmt, nil
}

// parseDataRow parses a comma-separated row of exactly four quoted cells,
// optionally followed by "#alias <name>".
func parseDataRow(trimmed string, line uint32) (*DataRow, error) {
	body, alias := splitAlias(trimmed)
	parts := splitTopLevelCommas(body)
	if len(parts) != 4 {
		return nil, fmt.Errorf("data row has %d cells, want 4: %q", len(parts), trimmed)
	}

	row := &DataRow{Alias: alias, Line: line, Raw: trimmed}
	for i := 0; i < 4; i++ {
		if i < len(parts) {
			node, err := expr.ParseCell(parts[i], line)
			if err != nil {
				return nil, err
			}
			row.Cells[i] = node
		} else {
			row.Cells[i] = expr.Zero(line)
		}
	}
	return row, nil
}

// splitAlias pulls a trailing "#alias <name>" off the line, if present.
func splitAlias(s string) (body, alias string) {
	idx := strings.Index(s, "#alias ")
	if idx < 0 {
		return strings.TrimSpace(s), ""
	}
	body = strings.TrimSpace(s[:idx])
	alias = strings.TrimSpace(strings.TrimPrefix(s[idx:], "#alias "))
	return body, alias
}

func splitFirstField(s string) (first, rest string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx:])
}

// splitBracketCells splits "[a] [b] [c]" into its bracketed bodies.
func splitBracketCells(s string) ([]string, error) {
	var cells []string
	i := 0
	r := []rune(s)
	for i < len(r) {
		if r[i] == ' ' || r[i] == '\t' {
			i++
			continue
		}
		if r[i] != '[' {
			return nil, errMalformedCell(s)
		}
		j := i + 1
		for j < len(r) && r[j] != ']' {
			j++
		}
		if j >= len(r) {
			return nil, errMalformedCell(s)
		}
		cells = append(cells, string(r[i+1:j]))
		i = j + 1
	}
	return cells, nil
}

func splitTopLevelCommas(s string) []string {
	var parts []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func errMalformedCell(s string) error {
	return &malformedCellError{raw: s}
}

type malformedCellError struct{ raw string }

func (e *malformedCellError) Error() string {
	return "malformed parameter cell in " + stringsQuote(e.raw)
}

func stringsQuote(s string) string { return "\"" + s + "\"" }
