package wasmmod

import "fmt"

// ValueType mirrors api.ValueType's encoding (wazero): the Wasm binary
// format's one-byte numeric type tags.
type ValueType = byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	default:
		return fmt.Sprintf("%#x", t)
	}
}

// Opcode is a Wasm instruction's one-byte (or, for a handful, two-byte
// prefixed) opcode. Only the subset the registry (internal/registry)
// names events for is given a symbolic constant; anything else round
// trips as OpcodeUnknown carrying its raw byte(s).
type Opcode byte

const (
	OpUnreachable  Opcode = 0x00
	OpNop          Opcode = 0x01
	OpBlock        Opcode = 0x02
	OpLoop         Opcode = 0x03
	OpIf           Opcode = 0x04
	OpElse         Opcode = 0x05
	OpEnd          Opcode = 0x0b
	OpBr           Opcode = 0x0c
	OpBrIf         Opcode = 0x0d
	OpBrTable      Opcode = 0x0e
	OpReturn       Opcode = 0x0f
	OpCall         Opcode = 0x10
	OpCallIndirect Opcode = 0x11
	OpDrop         Opcode = 0x1a
	OpSelect       Opcode = 0x1b
	OpLocalGet     Opcode = 0x20
	OpLocalSet     Opcode = 0x21
	OpLocalTee     Opcode = 0x22
	OpGlobalGet    Opcode = 0x23
	OpGlobalSet    Opcode = 0x24
	OpI32Load      Opcode = 0x28
	OpI32Store     Opcode = 0x36
	OpMemorySize   Opcode = 0x3f
	OpMemoryGrow   Opcode = 0x40
	OpI32Const     Opcode = 0x41
	OpI64Const     Opcode = 0x42
	OpF32Const     Opcode = 0x43
	OpF64Const     Opcode = 0x44
	OpI32Eqz       Opcode = 0x45
	OpI32Eq        Opcode = 0x46
	OpI32Ne        Opcode = 0x47
	OpI32LtS       Opcode = 0x48
	OpI32GtS       Opcode = 0x4a
	OpI32LeS       Opcode = 0x4c
	OpI32GeS       Opcode = 0x4e
	OpI32Add       Opcode = 0x6a
	OpI32Sub       Opcode = 0x6b
	OpI32Mul       Opcode = 0x6c
	OpI32DivS      Opcode = 0x6d
	OpI32RemS      Opcode = 0x6f
)

// AllOpcodes lists every opcode constant that belongs to a registry event
// (OpNop, OpElse and OpEnd belong to none and are left out), for callers
// (internal/emitter's instruction-of-interest filter) that need to
// enumerate the raw byte values belonging to a canonical event name.
var AllOpcodes = []Opcode{
	OpUnreachable, OpBlock, OpLoop, OpIf,
	OpBr, OpBrIf, OpBrTable, OpReturn, OpCall, OpCallIndirect,
	OpDrop, OpSelect,
	OpLocalGet, OpLocalSet, OpLocalTee, OpGlobalGet, OpGlobalSet,
	OpI32Load, OpI32Store, OpMemorySize, OpMemoryGrow,
	OpI32Const, OpI64Const, OpF32Const, OpF64Const,
	OpI32Eqz, OpI32Eq, OpI32Ne, OpI32LtS, OpI32GtS, OpI32LeS, OpI32GeS,
	OpI32Add, OpI32Sub, OpI32Mul, OpI32DivS, OpI32RemS,
}

// EventName returns the registry event name (internal/registry) a given
// opcode belongs to: the snake_case instruction mnemonic, with the
// documented exceptions for the handful of opcodes whose Rust-derived
// name doesn't snake_case cleanly (spec.md §4.7).
func EventName(op Opcode) string {
	switch op {
	case OpUnreachable:
		return "unreachable"
	case OpIf:
		return "if_else"
	case OpBlock:
		return "block"
	case OpLoop:
		return "loop"
	case OpCall:
		return "call"
	case OpCallIndirect:
		return "call_indirect"
	case OpLocalGet:
		return "local_get"
	case OpLocalSet:
		return "local_set"
	case OpLocalTee:
		return "local_tee"
	case OpGlobalGet:
		return "global_get"
	case OpGlobalSet:
		return "global_set"
	case OpI32Load:
		return "load"
	case OpI32Store:
		return "store"
	case OpMemorySize:
		return "memory_size"
	case OpMemoryGrow:
		return "memory_grow"
	case OpI32Const, OpI64Const, OpF32Const, OpF64Const:
		return "const"
	case OpI32Eqz:
		return "unop"
	case OpI32Eq, OpI32Ne, OpI32LtS, OpI32GtS, OpI32LeS, OpI32GeS:
		return "binop"
	case OpI32Add, OpI32Sub, OpI32Mul, OpI32DivS, OpI32RemS:
		return "binop"
	case OpBr:
		return "br"
	case OpBrIf:
		return "br_if"
	case OpBrTable:
		return "br_table"
	case OpReturn:
		return "return"
	case OpDrop:
		return "drop"
	case OpSelect:
		return "select"
	default:
		return "unknown"
	}
}

// ExternKindFunc is the import/export-section kind byte identifying a
// function (as opposed to a table, memory, or global).
const ExternKindFunc byte = 0x00

// MemArg is an alignment/offset pair attached to a load/store instruction.
type MemArg struct {
	Align  uint32
	Offset uint32
}

// Instr is one decoded instruction: its opcode plus whichever immediate
// fields that opcode carries. Only one of the immediate fields is
// meaningful per opcode; Raw holds the original encoded immediate bytes
// so an instruction this editor doesn't specifically understand still
// round-trips byte for byte.
type Instr struct {
	Op       Opcode
	I32      int32
	I64      int64
	F32      uint32 // bit pattern
	F64      uint64 // bit pattern
	LocalIdx uint32
	GlobalIdx uint32
	FuncIdx  uint32
	TableIdx uint32
	TypeIdx  uint32
	Mem      MemArg
	BlockTy  BlockType
	Labels   []uint32 // br_table
	Raw      []byte   // unrecognized immediate payload, preserved verbatim
}

// BlockType is the result-type annotation on block/loop/if. A module with
// multi-value blocks would need the full s33 typeidx encoding; this
// editor only round-trips the common empty/single-value-type shape the
// registry's instrumentation points actually need to rewrite around.
type BlockType struct {
	Empty bool
	Val   ValueType
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValueType
	Results []ValueType
}

// Import is a decoded import-section entry; Desc holds the raw
// kind-specific descriptor bytes for kinds this editor doesn't rewrite.
type Import struct {
	Module string
	Name   string
	Kind   byte
	Desc   []byte
}

// Global is a decoded global variable: its type, mutability, and
// constant-expression initializer.
type Global struct {
	Type    ValueType
	Mutable bool
	Init    []Instr
}

// Export is a decoded export-section entry.
type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

// Local is a run of N locals sharing one type, as the binary format
// groups them.
type Local struct {
	Count uint32
	Type  ValueType
}

// Code is one decoded function body.
type Code struct {
	Locals []Local
	Body   []Instr
}

// DataSegment is a decoded data-section entry.
type DataSegment struct {
	MemIdx uint32
	Offset []Instr
	Bytes  []byte
}

// otherSection preserves a section this editor doesn't model (table,
// element, start, memory, custom) so encoding never silently drops
// parts of the original module.
type otherSection struct {
	id      byte
	payload []byte
}

// Module is the decoded, editable form of a .wasm binary (spec.md §4.8
// "a stateful editor over a mutable Wasm module").
type Module struct {
	Types     []FuncType
	Imports    []Import
	FuncTypes  []uint32 // function-section: typeidx per locally-defined func
	Globals    []Global
	Exports    []Export
	Code       []Code
	Data       []DataSegment

	importedFuncCount int
	other              []otherSection
}

// NumImportedFuncs returns how many of Module's functions are imports
// (these precede locally-defined functions in the shared function index
// space, per the Wasm spec).
func (m *Module) NumImportedFuncs() int { return m.importedFuncCount }
