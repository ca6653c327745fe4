package wasmmod_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ejrgilbert/whammc/internal/wasmmod"
)

func TestEventNameCoversEveryEnumeratedOpcode(t *testing.T) {
	for _, op := range wasmmod.AllOpcodes {
		assert.NotEqual(t, "unknown", wasmmod.EventName(op), "opcode %v should map to a registry event name", op)
	}
}

func TestEventNameGroupsArithmeticAndComparisonOpsAsBinop(t *testing.T) {
	ops := []wasmmod.Opcode{
		wasmmod.OpI32Add, wasmmod.OpI32Sub, wasmmod.OpI32Mul, wasmmod.OpI32DivS, wasmmod.OpI32RemS,
		wasmmod.OpI32Eq, wasmmod.OpI32Ne, wasmmod.OpI32LtS, wasmmod.OpI32GtS, wasmmod.OpI32LeS, wasmmod.OpI32GeS,
	}
	for _, op := range ops {
		assert.Equal(t, "binop", wasmmod.EventName(op))
	}
}

func TestEventNameGroupsEqzAsUnop(t *testing.T) {
	assert.Equal(t, "unop", wasmmod.EventName(wasmmod.OpI32Eqz))
}

func TestEventNameUnknownOpcode(t *testing.T) {
	assert.Equal(t, "unknown", wasmmod.EventName(wasmmod.Opcode(0xFF)))
}
