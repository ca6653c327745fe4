package wasmmod

import "encoding/binary"

// Encode serializes m back to a .wasm binary. Sections are emitted in
// the canonical fixed order regardless of decode order; sections this
// editor doesn't model are replayed verbatim from m.other.
func Encode(m *Module) []byte {
	out := make([]byte, 0, 1024)
	out = binary.LittleEndian.AppendUint32(out, magic)
	out = binary.LittleEndian.AppendUint32(out, version)

	if len(m.Types) > 0 {
		out = appendSection(out, secType, encodeTypeSection(m))
	}
	out = appendOther(out, m, secImport)
	if len(m.Imports) > 0 {
		out = appendSection(out, secImport, encodeImportSection(m))
	}
	out = appendOther(out, m, secFunction)
	if len(m.FuncTypes) > 0 {
		out = appendSection(out, secFunction, encodeFunctionSection(m))
	}
	out = appendOther(out, m, secTable)
	out = appendOther(out, m, secMemory)
	if len(m.Globals) > 0 {
		out = appendSection(out, secGlobal, encodeGlobalSection(m))
	}
	if len(m.Exports) > 0 {
		out = appendSection(out, secExport, encodeExportSection(m))
	}
	out = appendOther(out, m, secStart)
	out = appendOther(out, m, secElement)
	out = appendOther(out, m, 12) // data count section precedes code
	if len(m.Code) > 0 {
		out = appendSection(out, secCode, encodeCodeSection(m))
	}
	if len(m.Data) > 0 {
		out = appendSection(out, secData, encodeDataSection(m))
	}
	out = appendOther(out, m, secCustom)
	return out
}

func appendOther(out []byte, m *Module, id byte) []byte {
	for _, s := range m.other {
		if s.id == id {
			out = append(out, s.id)
			out = PutUleb32(out, uint32(len(s.payload)))
			out = append(out, s.payload...)
		}
	}
	return out
}

func appendSection(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = PutUleb32(out, uint32(len(payload)))
	return append(out, payload...)
}

func encodeTypeSection(m *Module) []byte {
	var b []byte
	b = PutUleb32(b, uint32(len(m.Types)))
	for _, ft := range m.Types {
		b = append(b, 0x60)
		b = PutUleb32(b, uint32(len(ft.Params)))
		b = append(b, ft.Params...)
		b = PutUleb32(b, uint32(len(ft.Results)))
		b = append(b, ft.Results...)
	}
	return b
}

func encodeImportSection(m *Module) []byte {
	var b []byte
	b = PutUleb32(b, uint32(len(m.Imports)))
	for _, im := range m.Imports {
		b = appendName(b, im.Module)
		b = appendName(b, im.Name)
		b = append(b, im.Kind)
		b = append(b, im.Desc...)
	}
	return b
}

func appendName(b []byte, s string) []byte {
	b = PutUleb32(b, uint32(len(s)))
	return append(b, s...)
}

func encodeFunctionSection(m *Module) []byte {
	var b []byte
	b = PutUleb32(b, uint32(len(m.FuncTypes)))
	for _, idx := range m.FuncTypes {
		b = PutUleb32(b, idx)
	}
	return b
}

func encodeGlobalSection(m *Module) []byte {
	var b []byte
	b = PutUleb32(b, uint32(len(m.Globals)))
	for _, g := range m.Globals {
		b = append(b, g.Type)
		if g.Mutable {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
		b = append(b, encodeExpr(g.Init)...)
	}
	return b
}

func encodeExportSection(m *Module) []byte {
	var b []byte
	b = PutUleb32(b, uint32(len(m.Exports)))
	for _, e := range m.Exports {
		b = appendName(b, e.Name)
		b = append(b, e.Kind)
		b = PutUleb32(b, e.Index)
	}
	return b
}

func encodeCodeSection(m *Module) []byte {
	var b []byte
	b = PutUleb32(b, uint32(len(m.Code)))
	for _, c := range m.Code {
		body := encodeFuncBody(c)
		b = PutUleb32(b, uint32(len(body)))
		b = append(b, body...)
	}
	return b
}

func encodeFuncBody(c Code) []byte {
	var b []byte
	b = PutUleb32(b, uint32(len(c.Locals)))
	for _, l := range c.Locals {
		b = PutUleb32(b, l.Count)
		b = append(b, l.Type)
	}
	b = append(b, encodeExpr(c.Body)...)
	return b
}

func encodeDataSection(m *Module) []byte {
	var b []byte
	b = PutUleb32(b, uint32(len(m.Data)))
	for _, d := range m.Data {
		b = PutUleb32(b, d.MemIdx)
		b = append(b, encodeExpr(d.Offset)...)
		b = PutUleb32(b, uint32(len(d.Bytes)))
		b = append(b, d.Bytes...)
	}
	return b
}

// encodeExpr re-serializes a decoded instruction sequence, re-deriving
// each immediate's encoding from Instr's typed fields rather than
// replaying raw bytes, so edits made through the editor (internal/emitter)
// are reflected.
func encodeExpr(instrs []Instr) []byte {
	var b []byte
	for _, in := range instrs {
		b = append(b, byte(in.Op))
		switch in.Op {
		case OpBlock, OpLoop, OpIf:
			if in.BlockTy.Empty {
				b = append(b, 0x40)
			} else {
				b = append(b, in.BlockTy.Val)
			}
		case OpBr, OpBrIf:
			b = PutUleb32(b, uint32(in.I32))
		case OpBrTable:
			b = PutUleb32(b, uint32(len(in.Labels)-1))
			for _, l := range in.Labels {
				b = PutUleb32(b, l)
			}
		case OpCall:
			b = PutUleb32(b, in.FuncIdx)
		case OpCallIndirect:
			b = PutUleb32(b, in.TypeIdx)
			b = PutUleb32(b, in.TableIdx)
		case OpLocalGet, OpLocalSet, OpLocalTee:
			b = PutUleb32(b, in.LocalIdx)
		case OpGlobalGet, OpGlobalSet:
			b = PutUleb32(b, in.GlobalIdx)
		case OpI32Load, OpI32Store:
			b = PutUleb32(b, in.Mem.Align)
			b = PutUleb32(b, in.Mem.Offset)
		case OpI32Const:
			b = PutSleb32(b, in.I32)
		case OpI64Const:
			b = PutSleb64(b, in.I64)
		case OpF32Const:
			b = binary.LittleEndian.AppendUint32(b, in.F32)
		case OpF64Const:
			b = binary.LittleEndian.AppendUint64(b, in.F64)
		case OpMemorySize, OpMemoryGrow:
			b = append(b, 0)
		}
	}
	return b
}
