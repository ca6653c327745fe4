// Package api includes the small set of types and entry points a caller
// embedding whammc as a library touches, keeping the large internal/
// implementation free to change shape without breaking callers (the same
// split the teacher's own api package draws between its public wasm.go
// surface and its internal/wasm engine).
package api

import (
	"fmt"

	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/compiler"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
)

// DataType is the type system whamm expressions and compiler-provided
// globals carry. See DataTypeI32, DataTypeBoolean, etc.
//
// Note: this is a type alias so callers can compare a DataType returned
// from Compile directly against the package-level constants below.
type DataType = ast.DataType

// The closed set of data types a whamm value can carry.
var (
	DataTypeI32        = ast.I32
	DataTypeU32        = ast.U32
	DataTypeBoolean    = ast.Boolean
	DataTypeNull       = ast.Null
	DataTypeStr        = ast.Str
	DataTypeAssumeGood = ast.AssumeGood
)

// Value is a literal-bearing constant: an i32, a bool, a string, or a
// tuple of these.
type Value = ast.Value

// Diagnostic is one reported problem surfaced by a Compile call: a parse
// error, an unresolved identifier, a type error, and so on.
type Diagnostic = diagnostics.Diagnostic

// Script is one whamm source file to compile, named the way diagnostic
// spans reference it.
type Script = compiler.ScriptSource

// Options controls which registry providers a Compile call may match
// probe specs against.
type Options = compiler.Options

// CompileResult is a Compile call's output: the rewritten Wasm binary (nil
// on fatal failure) plus every diagnostic collected along the way,
// fatal or not.
type CompileResult struct {
	Wasm        []byte
	Diagnostics []*Diagnostic
}

// Compile parses scripts, expands their probe specs against the built-in
// registry, verifies and instruments wasmBytes accordingly, and returns
// the rewritten module. A non-nil error indicates a fatal diagnostic
// occurred and no output was produced (spec.md §7); CompileResult.
// Diagnostics is populated either way, so a caller can still report every
// non-fatal problem found before the fatal one.
func Compile(scripts []Script, wasmBytes []byte, opts Options) (*CompileResult, error) {
	res, errs := compiler.Compile(scripts, wasmBytes, opts)
	out := &CompileResult{Diagnostics: errs.Diagnostics}
	if res == nil {
		return out, fmt.Errorf("whammc: compile failed with %d diagnostic(s)", len(errs.Diagnostics))
	}
	out.Wasm = res.Wasm
	return out, nil
}
