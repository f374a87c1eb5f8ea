package encode

// Opcode describes one mnemonic's bit-level shape: its opcode field
// value, which of the three parameter cells it consumes, and the two
// leading flag bits ("p" and "c") it sets on the encoded word. This is
// the process-wide static mapping §3 calls the InstructionSet; it is
// closed and known at build time, the same way the teacher's encoder
// routes each ARM mnemonic to a fixed encoding function.
type Opcode struct {
	Mnemonic string
	Bits     uint32
	UsesP1   bool
	UsesP2   bool
	UsesP3   bool
	PFlag    uint32
	CFlag    uint32
}

// InstructionSet is the closed mapping from mnemonic to encoding shape.
// setreg, add, and jump are the three mnemonics spec.md names explicitly;
// the rest round out a plausible small instruction set in the same
// style.
var InstructionSet = map[string]Opcode{
	"setreg": {Mnemonic: "setreg", Bits: 0x00, UsesP1: true},
	"add":    {Mnemonic: "add", Bits: 0x01, UsesP1: true, UsesP2: true},
	"sub":    {Mnemonic: "sub", Bits: 0x02, UsesP1: true, UsesP2: true},
	"and":    {Mnemonic: "and", Bits: 0x03, UsesP1: true, UsesP2: true},
	"or":     {Mnemonic: "or", Bits: 0x04, UsesP1: true, UsesP2: true},
	"xor":    {Mnemonic: "xor", Bits: 0x05, UsesP1: true, UsesP2: true},
	"shl":    {Mnemonic: "shl", Bits: 0x06, UsesP1: true, UsesP2: true},
	"shr":    {Mnemonic: "shr", Bits: 0x07, UsesP1: true, UsesP2: true},
	"cmp":    {Mnemonic: "cmp", Bits: 0x08, UsesP1: true, UsesP2: true, CFlag: 1},
	"jump":   {Mnemonic: "jump", Bits: 0x09, UsesP1: true, PFlag: 1},
	"jumpif": {Mnemonic: "jumpif", Bits: 0x0A, UsesP1: true, UsesP2: true, PFlag: 1},
	"call":   {Mnemonic: "call", Bits: 0x0B, UsesP1: true, PFlag: 1},
	"ret":    {Mnemonic: "ret", Bits: 0x0C},
	"load":   {Mnemonic: "load", Bits: 0x0D, UsesP1: true, UsesP2: true},
	"store":  {Mnemonic: "store", Bits: 0x0E, UsesP1: true, UsesP2: true},
	"nop":    {Mnemonic: "nop", Bits: 0x0F},
}

// Lookup returns the Opcode entry for mnemonic, case-sensitive (opcodes
// are always lowercase per the input format).
func Lookup(mnemonic string) (Opcode, bool) {
	op, ok := InstructionSet[mnemonic]
	return op, ok
}
