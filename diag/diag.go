// Package diag collects assembly diagnostics as an explicit value instead
// of a package-global sink, so every pipeline stage can be handed the same
// collector without reaching for ambient state.
package diag

import (
	"fmt"
	"sort"
)

// Severity distinguishes fatal diagnostics from warnings.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Kind categorizes a diagnostic, matching the kinds named in the error
// handling design.
type Kind int

const (
	KindLex Kind = iota
	KindParse
	KindUnknownOpcode
	KindUnresolvedSymbol
	KindCycle
	KindOverlap
	KindFieldOverflow
	KindWidthConfig
	KindRedefinition
)

var kindNames = map[Kind]string{
	KindLex:              "lex_error",
	KindParse:            "parse_error",
	KindUnknownOpcode:    "unknown_opcode",
	KindUnresolvedSymbol: "unresolved_symbol",
	KindCycle:            "cycle",
	KindOverlap:          "overlap",
	KindFieldOverflow:    "field_overflow",
	KindWidthConfig:      "width_config",
	KindRedefinition:     "redefinition",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Diagnostic is a single record emitted by some pipeline stage.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Line     uint32
	Pass     int
	Message  string
	Names    []string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s: %s: %s", d.Line, d.Severity, d.Kind, d.Message)
}

// Collector accumulates diagnostics across a single pipeline run. It is
// owned by the caller and passed explicitly to every stage; nothing in
// this package keeps process-wide state.
type Collector struct {
	diags []Diagnostic
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends a diagnostic as-is.
func (c *Collector) Add(d Diagnostic) {
	c.diags = append(c.diags, d)
}

// Errorf records a fatal diagnostic of the given kind at the given source
// line and resolver pass (pass is 0 for stages that don't have passes).
func (c *Collector) Errorf(kind Kind, line uint32, pass int, format string, args ...any) {
	c.Add(Diagnostic{
		Kind:     kind,
		Severity: SeverityError,
		Line:     line,
		Pass:     pass,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Warnf records a non-fatal diagnostic.
func (c *Collector) Warnf(kind Kind, line uint32, pass int, format string, args ...any) {
	c.Add(Diagnostic{
		Kind:     kind,
		Severity: SeverityWarning,
		Line:     line,
		Pass:     pass,
		Message:  fmt.Sprintf(format, args...),
	})
}

// HasErrors reports whether any fatal diagnostic was recorded.
func (c *Collector) HasErrors() bool {
	for _, d := range c.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// All returns every diagnostic recorded so far, in recording order.
func (c *Collector) All() []Diagnostic {
	return c.diags
}

// Sorted returns every diagnostic ordered by source line, then by resolver
// pass, matching the determinism requirement that diagnostic order is
// reproducible across identical runs.
func (c *Collector) Sorted() []Diagnostic {
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Pass < out[j].Pass
	})
	return out
}
