// Package lexer normalizes raw PolyAsm source into classified SourceLines:
// comments stripped, whitespace trimmed, line numbers preserved so
// diagnostics always point at the original file. This mirrors the
// teacher's character-class scanning loop (parser.Lexer), retargeted from
// ARM mnemonics/operands to PolyAsm's block headers and cell sigils.
package lexer

import "strings"

// SourceLine is one line of input after comment stripping.
type SourceLine struct {
	Number uint32
	Text   string
}

// Scan splits source text into SourceLines, stripping "//"-to-end
// comments. Line numbers are 1-based and never shift: blank lines and
// comment-only lines remain as empty-text entries at their original
// position.
func Scan(source string) []SourceLine {
	rawLines := strings.Split(source, "\n")
	lines := make([]SourceLine, 0, len(rawLines))
	for i, raw := range rawLines {
		lines = append(lines, SourceLine{
			Number: uint32(i + 1), // #nosec G115 -- source files are bounded well under 2^32 lines
			Text:   stripComment(raw),
		})
	}
	return lines
}

// stripComment removes a "//"-to-end-of-line comment, leaving the
// remainder untrimmed so Classify can reason about indentation if it ever
// needs to.
func stripComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		return line[:idx]
	}
	return line
}

// LineKind categorizes a trimmed, comment-stripped line by its prefix.
type LineKind int

const (
	KindBlank LineKind = iota
	KindMacroDecl
	KindMemoryHeader
	KindFunctionHeader
	KindDataRow
	KindInstruction
	KindUnrecognized
)

// Classified is a SourceLine plus its structural category and the raw
// (trimmed) text used to build the corresponding block.InstructionStmt
// or block.DataRow.
type Classified struct {
	Line    SourceLine
	Kind    LineKind
	Trimmed string
}

// Classify assigns a LineKind to every SourceLine based on the prefix of
// its trimmed text, per the block grammar in the component design.
func Classify(lines []SourceLine) []Classified {
	out := make([]Classified, 0, len(lines))
	for _, l := range lines {
		trimmed := strings.TrimSpace(l.Text)
		out = append(out, Classified{Line: l, Kind: classifyLine(trimmed), Trimmed: trimmed})
	}
	return out
}

func classifyLine(trimmed string) LineKind {
	switch {
	case strings.TrimSpace(trimmed) == "":
		return KindBlank
	case strings.HasPrefix(trimmed, "#macro "):
		return KindMacroDecl
	case strings.HasPrefix(trimmed, "#memory ") && strings.HasSuffix(trimmed, ":"):
		return KindMemoryHeader
	case strings.HasPrefix(trimmed, "function ") && strings.Contains(trimmed, "():") && strings.HasSuffix(trimmed, ":"):
		return KindFunctionHeader
	case strings.HasPrefix(trimmed, "\""):
		return KindDataRow
	case looksLikeInstruction(trimmed):
		return KindInstruction
	default:
		return KindUnrecognized
	}
}

// looksLikeInstruction reports whether the line starts with an ASCII
// letter, a shape instructions share with function headers; callers have
// already ruled function headers out by this point.
func looksLikeInstruction(trimmed string) bool {
	if trimmed == "" {
		return false
	}
	c := trimmed[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
