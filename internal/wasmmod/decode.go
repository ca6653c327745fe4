package wasmmod

import (
	"encoding/binary"
	"fmt"
)

const (
	magic   = 0x6d736100 // "\0asm"
	version = 1
)

const (
	secCustom   = 0
	secType     = 1
	secImport   = 2
	secFunction = 3
	secTable    = 4
	secMemory   = 5
	secGlobal   = 6
	secExport   = 7
	secStart    = 8
	secElement  = 9
	secCode     = 10
	secData     = 11
)

// Decode parses a raw .wasm binary into a Module. Sections this editor
// doesn't model (table, memory, element, start, custom) are kept
// verbatim in m.other and replayed unchanged by Encode.
func Decode(b []byte) (*Module, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("wasmmod: file too short")
	}
	if binary.LittleEndian.Uint32(b[0:4]) != magic {
		return nil, fmt.Errorf("wasmmod: bad magic")
	}
	if binary.LittleEndian.Uint32(b[4:8]) != version {
		return nil, fmt.Errorf("wasmmod: unsupported version")
	}

	m := &Module{}
	off := 8
	for off < len(b) {
		id := b[off]
		off++
		size, next, err := ReadUleb32(b, off)
		if err != nil {
			return nil, err
		}
		off = next
		end := off + int(size)
		if end > len(b) {
			return nil, fmt.Errorf("wasmmod: section %d overruns file", id)
		}
		payload := b[off:end]

		switch id {
		case secType:
			if err := m.decodeTypeSection(payload); err != nil {
				return nil, err
			}
		case secImport:
			if err := m.decodeImportSection(payload); err != nil {
				return nil, err
			}
		case secFunction:
			if err := m.decodeFunctionSection(payload); err != nil {
				return nil, err
			}
		case secGlobal:
			if err := m.decodeGlobalSection(payload); err != nil {
				return nil, err
			}
		case secExport:
			if err := m.decodeExportSection(payload); err != nil {
				return nil, err
			}
		case secCode:
			if err := m.decodeCodeSection(payload); err != nil {
				return nil, err
			}
		case secData:
			if err := m.decodeDataSection(payload); err != nil {
				return nil, err
			}
		default:
			cp := make([]byte, len(payload))
			copy(cp, payload)
			m.other = append(m.other, otherSection{id: id, payload: cp})
		}
		off = end
	}
	return m, nil
}

func readVec(b []byte, off int) (count uint32, next int, err error) {
	return ReadUleb32(b, off)
}

func (m *Module) decodeTypeSection(b []byte) error {
	n, off, err := readVec(b, 0)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		if off >= len(b) || b[off] != 0x60 {
			return fmt.Errorf("wasmmod: expected functype tag")
		}
		off++
		var ft FuncType
		pc, o, err := ReadUleb32(b, off)
		if err != nil {
			return err
		}
		off = o
		ft.Params = make([]ValueType, pc)
		for j := range ft.Params {
			ft.Params[j] = b[off]
			off++
		}
		rc, o2, err := ReadUleb32(b, off)
		if err != nil {
			return err
		}
		off = o2
		ft.Results = make([]ValueType, rc)
		for j := range ft.Results {
			ft.Results[j] = b[off]
			off++
		}
		m.Types = append(m.Types, ft)
	}
	return nil
}

func readName(b []byte, off int) (string, int, error) {
	l, o, err := ReadUleb32(b, off)
	if err != nil {
		return "", off, err
	}
	end := o + int(l)
	if end > len(b) {
		return "", off, fmt.Errorf("wasmmod: truncated name")
	}
	return string(b[o:end]), end, nil
}

func (m *Module) decodeImportSection(b []byte) error {
	n, off, err := readVec(b, 0)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		mod, o, err := readName(b, off)
		if err != nil {
			return err
		}
		off = o
		name, o2, err := readName(b, off)
		if err != nil {
			return err
		}
		off = o2
		kind := b[off]
		off++
		descStart := off
		switch kind {
		case 0x00: // func: typeidx
			_, o3, err := ReadUleb32(b, off)
			if err != nil {
				return err
			}
			off = o3
			m.importedFuncCount++
		case 0x01: // table: reftype + limits
			off++
			off = skipLimits(b, off)
		case 0x02: // mem: limits
			off = skipLimits(b, off)
		case 0x03: // global: valtype + mut
			off += 2
		default:
			return fmt.Errorf("wasmmod: unknown import kind %d", kind)
		}
		desc := make([]byte, off-descStart)
		copy(desc, b[descStart:off])
		m.Imports = append(m.Imports, Import{Module: mod, Name: name, Kind: kind, Desc: desc})
	}
	return nil
}

func skipLimits(b []byte, off int) int {
	flag := b[off]
	off++
	_, off, _ = ReadUleb32(b, off)
	if flag&0x01 != 0 {
		_, off, _ = ReadUleb32(b, off)
	}
	return off
}

func (m *Module) decodeFunctionSection(b []byte) error {
	n, off, err := readVec(b, 0)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		idx, o, err := ReadUleb32(b, off)
		if err != nil {
			return err
		}
		off = o
		m.FuncTypes = append(m.FuncTypes, idx)
	}
	return nil
}

func (m *Module) decodeGlobalSection(b []byte) error {
	n, off, err := readVec(b, 0)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		ty := b[off]
		off++
		mut := b[off] != 0
		off++
		instrs, o, err := decodeExpr(b, off)
		if err != nil {
			return err
		}
		off = o
		m.Globals = append(m.Globals, Global{Type: ty, Mutable: mut, Init: instrs})
	}
	return nil
}

func (m *Module) decodeExportSection(b []byte) error {
	n, off, err := readVec(b, 0)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		name, o, err := readName(b, off)
		if err != nil {
			return err
		}
		off = o
		kind := b[off]
		off++
		idx, o2, err := ReadUleb32(b, off)
		if err != nil {
			return err
		}
		off = o2
		m.Exports = append(m.Exports, Export{Name: name, Kind: kind, Index: idx})
	}
	return nil
}

func (m *Module) decodeCodeSection(b []byte) error {
	n, off, err := readVec(b, 0)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		bodySize, o, err := ReadUleb32(b, off)
		if err != nil {
			return err
		}
		off = o
		bodyEnd := off + int(bodySize)
		localsCount, o2, err := ReadUleb32(b, off)
		if err != nil {
			return err
		}
		off = o2
		var locals []Local
		for j := uint32(0); j < localsCount; j++ {
			cnt, o3, err := ReadUleb32(b, off)
			if err != nil {
				return err
			}
			off = o3
			locals = append(locals, Local{Count: cnt, Type: b[off]})
			off++
		}
		instrs, o4, err := decodeExpr(b, off)
		if err != nil {
			return err
		}
		off = o4
		if off != bodyEnd {
			off = bodyEnd
		}
		m.Code = append(m.Code, Code{Locals: locals, Body: instrs})
	}
	return nil
}

func (m *Module) decodeDataSection(b []byte) error {
	n, off, err := readVec(b, 0)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		memIdx, o, err := ReadUleb32(b, off)
		if err != nil {
			return err
		}
		off = o
		offExpr, o2, err := decodeExpr(b, off)
		if err != nil {
			return err
		}
		off = o2
		size, o3, err := ReadUleb32(b, off)
		if err != nil {
			return err
		}
		off = o3
		bytes := make([]byte, size)
		copy(bytes, b[off:off+int(size)])
		off += int(size)
		m.Data = append(m.Data, DataSegment{MemIdx: memIdx, Offset: offExpr, Bytes: bytes})
	}
	return nil
}

// decodeExpr decodes a (possibly nested, via block/loop/if) instruction
// sequence up to and including its matching top-level 0x0b end opcode.
func decodeExpr(b []byte, off int) ([]Instr, int, error) {
	var instrs []Instr
	depth := 0
	for {
		if off >= len(b) {
			return nil, off, fmt.Errorf("wasmmod: unterminated expr")
		}
		op := Opcode(b[off])
		off++
		in := Instr{Op: op}

		switch op {
		case OpBlock, OpLoop, OpIf:
			depth++
			bt := b[off]
			off++
			if bt == 0x40 {
				in.BlockTy = BlockType{Empty: true}
			} else {
				in.BlockTy = BlockType{Val: bt}
			}
		case OpElse:
			// depth unchanged; marks the if/else boundary
		case OpEnd:
			if depth == 0 {
				instrs = append(instrs, in)
				return instrs, off, nil
			}
			depth--
		case OpBr, OpBrIf:
			v, o, err := ReadUleb32(b, off)
			if err != nil {
				return nil, off, err
			}
			in.I32 = int32(v)
			off = o
		case OpBrTable:
			n, o, err := ReadUleb32(b, off)
			if err != nil {
				return nil, off, err
			}
			off = o
			labels := make([]uint32, n+1)
			for i := range labels {
				v, o2, err := ReadUleb32(b, off)
				if err != nil {
					return nil, off, err
				}
				labels[i] = v
				off = o2
			}
			in.Labels = labels
		case OpCall:
			v, o, err := ReadUleb32(b, off)
			if err != nil {
				return nil, off, err
			}
			in.FuncIdx = v
			off = o
		case OpCallIndirect:
			v, o, err := ReadUleb32(b, off)
			if err != nil {
				return nil, off, err
			}
			in.TypeIdx = v
			off = o
			v2, o2, err := ReadUleb32(b, off)
			if err != nil {
				return nil, off, err
			}
			in.TableIdx = v2
			off = o2
		case OpLocalGet, OpLocalSet, OpLocalTee:
			v, o, err := ReadUleb32(b, off)
			if err != nil {
				return nil, off, err
			}
			in.LocalIdx = v
			off = o
		case OpGlobalGet, OpGlobalSet:
			v, o, err := ReadUleb32(b, off)
			if err != nil {
				return nil, off, err
			}
			in.GlobalIdx = v
			off = o
		case OpI32Load, OpI32Store:
			align, o, err := ReadUleb32(b, off)
			if err != nil {
				return nil, off, err
			}
			off = o
			offset, o2, err := ReadUleb32(b, off)
			if err != nil {
				return nil, off, err
			}
			off = o2
			in.Mem = MemArg{Align: align, Offset: offset}
		case OpI32Const:
			v, o, err := ReadSleb32(b, off)
			if err != nil {
				return nil, off, err
			}
			in.I32 = v
			off = o
		case OpI64Const:
			v, o, err := ReadSleb64(b, off)
			if err != nil {
				return nil, off, err
			}
			in.I64 = v
			off = o
		case OpF32Const:
			if off+4 > len(b) {
				return nil, off, fmt.Errorf("wasmmod: truncated f32 const")
			}
			in.F32 = binary.LittleEndian.Uint32(b[off:])
			off += 4
		case OpF64Const:
			if off+8 > len(b) {
				return nil, off, fmt.Errorf("wasmmod: truncated f64 const")
			}
			in.F64 = binary.LittleEndian.Uint64(b[off:])
			off += 8
		case OpMemorySize, OpMemoryGrow:
			off++ // reserved memidx byte
		default:
			// no immediate: unreachable, nop, drop, select, eqz/eq/.../binops
		}
		instrs = append(instrs, in)
	}
}
