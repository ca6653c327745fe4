package ast

import "github.com/ejrgilbert/whammc/internal/diagnostics"

// TupleCallTarget is the synthetic Call.Target used for a parenthesized
// tuple literal `(e, e, ...)` (spec.md §6): the parser represents a tuple
// as a Call to this compiler-internal pseudo-function rather than adding a
// separate Expr variant, since every downstream phase already has a case
// for Call.
const TupleCallTarget = "$tuple"

// BinOpKind enumerates the binary operators, grouped by precedence tier
// as specified in spec.md §4.2 (low -> high): and/or, relational,
// add/sub, mul/div/mod.
type BinOpKind int

const (
	BinAnd BinOpKind = iota
	BinOr
	BinEq
	BinNe
	BinGe
	BinGt
	BinLe
	BinLt
	BinAdd
	BinSub
	BinMul
	BinDiv
	BinMod
)

func (k BinOpKind) String() string {
	names := map[BinOpKind]string{
		BinAnd: "and", BinOr: "or", BinEq: "==", BinNe: "!=",
		BinGe: ">=", BinGt: ">", BinLe: "<=", BinLt: "<",
		BinAdd: "+", BinSub: "-", BinMul: "*", BinDiv: "/", BinMod: "%",
	}
	return names[k]
}

type UnOpKind int

const (
	UnNot UnOpKind = iota
	UnNeg
)

func (k UnOpKind) String() string {
	if k == UnNot {
		return "not"
	}
	return "neg"
}

// Expr is the closed sum from spec.md §3. Every node carries an optional
// Location, populated by the parser and used by the verifier (C5) and
// diagnostics renderer to point at the offending span.
type Expr interface {
	Loc() diagnostics.Location
	// Type returns the DataType assigned by the verifier (C5). Before
	// verification runs this returns DataType{} (kind I32 zero value);
	// callers that need the type must run after typecheck.
	Type() DataType
	SetType(DataType)
}

type exprBase struct {
	loc diagnostics.Location
	ty  DataType
}

func (e *exprBase) Loc() diagnostics.Location { return e.loc }
func (e *exprBase) Type() DataType            { return e.ty }
func (e *exprBase) SetType(t DataType)        { e.ty = t }

type UnOp struct {
	exprBase
	Op UnOpKind
	E  Expr
}

func NewUnOp(loc diagnostics.Location, op UnOpKind, e Expr) *UnOp {
	return &UnOp{exprBase: exprBase{loc: loc}, Op: op, E: e}
}

type BinOp struct {
	exprBase
	Op   BinOpKind
	L, R Expr
}

func NewBinOp(loc diagnostics.Location, op BinOpKind, l, r Expr) *BinOp {
	return &BinOp{exprBase: exprBase{loc: loc}, Op: op, L: l, R: r}
}

type Ternary struct {
	exprBase
	Cond, Conseq, Alt Expr
}

func NewTernary(loc diagnostics.Location, cond, conseq, alt Expr) *Ternary {
	return &Ternary{exprBase: exprBase{loc: loc}, Cond: cond, Conseq: conseq, Alt: alt}
}

type Call struct {
	exprBase
	Target string
	Args   []Expr
}

func NewCall(loc diagnostics.Location, target string, args []Expr) *Call {
	return &Call{exprBase: exprBase{loc: loc}, Target: target, Args: args}
}

type VarId struct {
	exprBase
	Name           string
	IsCompProvided bool
}

func NewVarId(loc diagnostics.Location, name string, compProvided bool) *VarId {
	return &VarId{exprBase: exprBase{loc: loc}, Name: name, IsCompProvided: compProvided}
}

type Primitive struct {
	exprBase
	Val Value
}

func NewPrimitive(loc diagnostics.Location, val Value) *Primitive {
	return &Primitive{exprBase: exprBase{loc: loc}, Val: val}
}
