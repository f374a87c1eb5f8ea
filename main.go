package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/lookbusy1344/polyasm/config"
	"github.com/lookbusy1344/polyasm/diag"
	"github.com/lookbusy1344/polyasm/encode"
	"github.com/lookbusy1344/polyasm/pipeline"
	"github.com/lookbusy1344/polyasm/report"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

func main() {
	os.Exit(run())
}

// run contains the whole CLI as a testable, exit-code-returning function
// instead of calling os.Exit directly from the middle of the flow.
func run() int {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		inputPath   = flag.String("i", "", "Input assembly file (required)")
		outputPath  = flag.String("o", "", "Output bitstring file (required)")
		profilePath = flag.String("c", "", "Path to a TOML defaults profile")
		sections    = flag.String("m", "", "Section offsets, e.g. code=0,data=0x50")
		widthsFlag  = flag.String("w", "", "Field widths, e.g. opcode=5,param1=14,param2=5,param3=6")
		readable    = flag.Bool("r", false, "Also emit <output>_readable.txt")
		withLog     = flag.Bool("l", false, "Also emit <output>.log")
		verbose     = flag.Bool("v", false, "Verbose diagnostics")
		dumpSymbols = flag.Bool("d", false, "Debug dump of symbol tables")
		numFormat   = flag.String("f", "", "Parameter display base in readable file: hex, dec, bin")
		endian      = flag.String("e", "big", "Accepted for compatibility; ignored (textual output)")
		colorFlag   = flag.String("color", "auto", "Color output: auto, always, never")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("PolyAsm %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		return 0
	}

	if *showHelp {
		printHelp()
		return 0
	}

	// -e is validated but has no effect on textual output.
	if *endian != "big" && *endian != "little" {
		fmt.Fprintf(os.Stderr, "Error: invalid -e value %q, want big or little\n", *endian)
		return 2
	}

	if *inputPath == "" || *outputPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -i and -o are both required")
		printHelp()
		return 2
	}

	profile, err := loadProfile(*profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	cfg, format, err := resolveConfig(profile, *sections, *widthsFlag, *numFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	source, err := os.ReadFile(*inputPath) // #nosec G304 -- user-specified input path
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot read %s: %v\n", *inputPath, err)
		return 2
	}

	result, diags := pipeline.Run(string(source), cfg)

	color := report.ColorEnabled(colorOverride(*colorFlag), os.Stdout)

	if err := writeBitstring(*outputPath, result); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *readable {
		if err := writeReadable(*outputPath, result, cfg.Widths, format); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	if *withLog {
		if err := writeLog(*outputPath, diags); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	if *verbose || hasErrors(diags) {
		fmt.Print(report.Summary(diags, color))
	}

	if *dumpSymbols {
		fmt.Print(report.SymbolDump(result.SymbolTable, color))
	}

	if hasErrors(diags) {
		return 1
	}
	return 0
}

func hasErrors(diags []diag.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == diag.SeverityError {
			return true
		}
	}
	return false
}

func colorOverride(flagVal string) *bool {
	switch flagVal {
	case "always":
		v := true
		return &v
	case "never":
		v := false
		return &v
	default:
		return nil
	}
}

// loadProfile loads the TOML defaults profile from path, or the default
// profile path if path is empty, or the package's built-in defaults if
// neither exists.
func loadProfile(path string) (*config.Profile, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

// resolveConfig merges the profile, then -m/-w/-f flag overrides, into a
// pipeline.Config and a display number format. CLI flags always win.
func resolveConfig(profile *config.Profile, sections, widths, numFormat string) (pipeline.Config, string, error) {
	codeOffset, err := parseUint32(profile.Sections.CodeOffset)
	if err != nil {
		return pipeline.Config{}, "", fmt.Errorf("invalid profile code offset: %w", err)
	}
	dataOffset, err := parseUint32(profile.Sections.DataOffset)
	if err != nil {
		return pipeline.Config{}, "", fmt.Errorf("invalid profile data offset: %w", err)
	}

	fieldWidths := encode.FieldWidths{
		Op: profile.Widths.Opcode,
		P1: profile.Widths.Param1,
		P2: profile.Widths.Param2,
		P3: profile.Widths.Param3,
	}

	format := profile.Display.NumberFormat
	if numFormat != "" {
		format = numFormat
	}
	if format != "hex" && format != "dec" && format != "bin" {
		return pipeline.Config{}, "", fmt.Errorf("invalid -f value %q, want hex, dec, or bin", format)
	}

	if sections != "" {
		values, err := parseKeyValues(sections)
		if err != nil {
			return pipeline.Config{}, "", fmt.Errorf("invalid -m value: %w", err)
		}
		if v, ok := values["code"]; ok {
			if codeOffset, err = parseUint32(v); err != nil {
				return pipeline.Config{}, "", fmt.Errorf("invalid -m code value: %w", err)
			}
		}
		if v, ok := values["data"]; ok {
			if dataOffset, err = parseUint32(v); err != nil {
				return pipeline.Config{}, "", fmt.Errorf("invalid -m data value: %w", err)
			}
		}
	}

	if widths != "" {
		values, err := parseKeyValues(widths)
		if err != nil {
			return pipeline.Config{}, "", fmt.Errorf("invalid -w value: %w", err)
		}
		if v, ok := values["opcode"]; ok {
			fieldWidths.Op, err = parseUintWidth(v)
			if err != nil {
				return pipeline.Config{}, "", fmt.Errorf("invalid -w opcode value: %w", err)
			}
		}
		if v, ok := values["param1"]; ok {
			fieldWidths.P1, err = parseUintWidth(v)
			if err != nil {
				return pipeline.Config{}, "", fmt.Errorf("invalid -w param1 value: %w", err)
			}
		}
		if v, ok := values["param2"]; ok {
			fieldWidths.P2, err = parseUintWidth(v)
			if err != nil {
				return pipeline.Config{}, "", fmt.Errorf("invalid -w param2 value: %w", err)
			}
		}
		if v, ok := values["param3"]; ok {
			fieldWidths.P3, err = parseUintWidth(v)
			if err != nil {
				return pipeline.Config{}, "", fmt.Errorf("invalid -w param3 value: %w", err)
			}
		}
	}

	return pipeline.Config{CodeOffset: codeOffset, DataOffset: dataOffset, Widths: fieldWidths}, format, nil
}

// parseKeyValues parses a comma-separated "key=value,key=value" string.
func parseKeyValues(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed key=value pair %q", pair)
		}
		out[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return out, nil
}

func parseUint32(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func parseUintWidth(s string) (uint, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

func printHelp() {
	fmt.Printf(`PolyAsm %s

Usage: polyasm -i <input.asm> -o <output> [options]

Options:
  -help              Show this help message
  -version           Show version information
  -i PATH            Input assembly file (required)
  -o PATH            Output bitstring file (required)
  -c PATH            TOML defaults profile
  -m code=N,data=N   Section offsets (default: code=0,data=0x50)
  -w opcode=N,param1=N,param2=N,param3=N  Field widths, must sum to 30 (default: 5,14,5,6)
  -r                 Also emit <output>_readable.txt
  -l                 Also emit <output>.log
  -v                 Verbose diagnostics
  -d                 Debug dump of symbol tables
  -f hex|dec|bin     Parameter display base in readable file (default: hex)
  -e big|little      Accepted for compatibility; ignored
  -color auto|always|never  Color the -v/-d report (default: auto)
`, Version)
}

// writeBitstring writes one 32-bit word per line, ascending address
// order, per the bitstring output format.
func writeBitstring(path string, result *pipeline.Result) error {
	f, err := os.Create(path) // #nosec G304 -- user-specified output path
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	for _, w := range result.Words {
		if _, err := fmt.Fprintln(f, encode.Bitstring(w.Value)); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

// writeReadable writes <output>_readable.txt per the readable output
// format, one line per word.
func writeReadable(outputPath string, result *pipeline.Result, widths encode.FieldWidths, format string) error {
	path := readablePath(outputPath)
	f, err := os.Create(path) // #nosec G304 -- derived from user-specified output path
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	for _, w := range result.Words {
		var line string
		if w.Section == pipeline.SectionCode {
			line = formatInstructionLine(w, widths, format)
		} else {
			line = formatMemoryLine(w)
		}
		if _, err := fmt.Fprintln(f, line); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

func formatInstructionLine(w pipeline.EncodedWord, widths encode.FieldWidths, format string) string {
	p := w.Value>>31&1 != 0
	c := w.Value>>30&1 != 0

	p3Width := widths.P3
	p2Width := widths.P2
	p1Width := widths.P1

	p3Bits := encode.FieldBits(w.Value>>(p2Width+p1Width), p3Width)
	p2Bits := encode.FieldBits(w.Value>>p1Width, p2Width)
	p1Bits := encode.FieldBits(w.Value, p1Width)

	alias := ""
	if w.Alias != "" {
		alias = fmt.Sprintf(" <- alias: %s", w.Alias)
	}

	return fmt.Sprintf("%05d | p=%s c=%s p3=%s p2=%s p1=%s | func=%s, opcode=%s, param1=%s, param2=%s, param3=%s%s",
		w.Address, boolBit(p), boolBit(c), p3Bits, p2Bits, p1Bits,
		w.FuncName, w.Opcode,
		formatValue(w.ParamValues[0], format),
		formatValue(w.ParamValues[1], format),
		formatValue(w.ParamValues[2], format),
		alias)
}

func formatMemoryLine(w pipeline.EncodedWord) string {
	alias := ""
	if w.Alias != "" {
		alias = fmt.Sprintf(" <- alias: %s", w.Alias)
	}
	return fmt.Sprintf("%05d | %02X %02X %02X %02X | mem=%s, %02X %02X %02X %02X%s",
		w.Address, w.Bytes[0], w.Bytes[1], w.Bytes[2], w.Bytes[3],
		w.MemName, w.Bytes[0], w.Bytes[1], w.Bytes[2], w.Bytes[3], alias)
}

func boolBit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatValue(v int64, format string) string {
	switch format {
	case "dec":
		return strconv.FormatInt(v, 10)
	case "bin":
		return "0b" + strconv.FormatInt(v, 2)
	default:
		return fmt.Sprintf("0x%X", v)
	}
}

// readablePath derives "<output>_readable.txt" from outputPath by
// stripping any existing extension before appending the suffix.
func readablePath(outputPath string) string {
	if idx := strings.LastIndex(outputPath, "."); idx >= 0 {
		outputPath = outputPath[:idx]
	}
	return outputPath + "_readable.txt"
}

// writeLog writes <output>.log: one record per diagnostic, via the
// standard library log package the way the teacher's ambient logging
// does, rather than a bespoke structured format.
func writeLog(outputPath string, diags []diag.Diagnostic) error {
	path := outputPath + ".log"
	f, err := os.Create(path) // #nosec G304 -- derived from user-specified output path
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	logger := log.New(f, "", log.LstdFlags)
	if len(diags) == 0 {
		logger.Println("assembly succeeded, no diagnostics")
		return nil
	}
	for _, d := range diags {
		logger.Printf("%s line=%d pass=%d kind=%s msg=%s", d.Severity, d.Line, d.Pass, d.Kind, d.Message)
	}
	return nil
}
