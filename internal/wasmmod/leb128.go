// Package wasmmod implements C9's substrate: a decoder/encoder for the
// WebAssembly binary format and a stateful module editor (internal/emitter
// drives it) that the instrumentation driver (C8) rewrites bytecode
// through. Constants and naming follow the api.ValueType idiom used
// throughout wazero's public surface.
package wasmmod

import "fmt"

// ReadUleb32 reads an unsigned LEB128-encoded uint32 starting at b[off],
// returning the value and the offset just past it.
func ReadUleb32(b []byte, off int) (uint32, int, error) {
	var result uint32
	var shift uint
	for {
		if off >= len(b) {
			return 0, off, fmt.Errorf("wasmmod: unexpected EOF reading uleb32")
		}
		by := b[off]
		off++
		result |= uint32(by&0x7f) << shift
		if by&0x80 == 0 {
			return result, off, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, off, fmt.Errorf("wasmmod: uleb32 overflow")
		}
	}
}

// ReadUleb64 reads an unsigned LEB128-encoded uint64.
func ReadUleb64(b []byte, off int) (uint64, int, error) {
	var result uint64
	var shift uint
	for {
		if off >= len(b) {
			return 0, off, fmt.Errorf("wasmmod: unexpected EOF reading uleb64")
		}
		by := b[off]
		off++
		result |= uint64(by&0x7f) << shift
		if by&0x80 == 0 {
			return result, off, nil
		}
		shift += 7
		if shift >= 70 {
			return 0, off, fmt.Errorf("wasmmod: uleb64 overflow")
		}
	}
}

// ReadSleb32 reads a signed LEB128-encoded int32.
func ReadSleb32(b []byte, off int) (int32, int, error) {
	var result int64
	var shift uint
	var by byte
	for {
		if off >= len(b) {
			return 0, off, fmt.Errorf("wasmmod: unexpected EOF reading sleb32")
		}
		by = b[off]
		off++
		result |= int64(by&0x7f) << shift
		shift += 7
		if by&0x80 == 0 {
			break
		}
		if shift >= 35 {
			return 0, off, fmt.Errorf("wasmmod: sleb32 overflow")
		}
	}
	if shift < 64 && by&0x40 != 0 {
		result |= -1 << shift
	}
	return int32(result), off, nil
}

// ReadSleb64 reads a signed LEB128-encoded int64.
func ReadSleb64(b []byte, off int) (int64, int, error) {
	var result int64
	var shift uint
	var by byte
	for {
		if off >= len(b) {
			return 0, off, fmt.Errorf("wasmmod: unexpected EOF reading sleb64")
		}
		by = b[off]
		off++
		result |= int64(by&0x7f) << shift
		shift += 7
		if by&0x80 == 0 {
			break
		}
		if shift >= 70 {
			return 0, off, fmt.Errorf("wasmmod: sleb64 overflow")
		}
	}
	if shift < 64 && by&0x40 != 0 {
		result |= -1 << shift
	}
	return result, off, nil
}

// PutUleb32 appends v to b as unsigned LEB128.
func PutUleb32(b []byte, v uint32) []byte {
	for {
		by := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b = append(b, by|0x80)
		} else {
			b = append(b, by)
			return b
		}
	}
}

// PutUleb64 appends v to b as unsigned LEB128.
func PutUleb64(b []byte, v uint64) []byte {
	for {
		by := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b = append(b, by|0x80)
		} else {
			b = append(b, by)
			return b
		}
	}
}

// PutSleb32 appends v to b as signed LEB128.
func PutSleb32(b []byte, v int32) []byte {
	more := true
	for more {
		by := byte(v & 0x7f)
		v >>= 7
		signBitSet := by&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			by |= 0x80
		}
		b = append(b, by)
	}
	return b
}

// PutSleb64 appends v to b as signed LEB128.
func PutSleb64(b []byte, v int64) []byte {
	more := true
	for more {
		by := byte(v & 0x7f)
		v >>= 7
		signBitSet := by&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			by |= 0x80
		}
		b = append(b, by)
	}
	return b
}
