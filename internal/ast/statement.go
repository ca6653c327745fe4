package ast

import "github.com/ejrgilbert/whammc/internal/diagnostics"

// Statement is the closed sum from spec.md §3.
type Statement interface {
	Loc() diagnostics.Location
}

type stmtBase struct {
	loc diagnostics.Location
}

func (s stmtBase) Loc() diagnostics.Location { return s.loc }

type Decl struct {
	stmtBase
	Ty    DataType
	VarId *VarId
}

func NewDecl(loc diagnostics.Location, ty DataType, v *VarId) *Decl {
	return &Decl{stmtBase: stmtBase{loc: loc}, Ty: ty, VarId: v}
}

type Assign struct {
	stmtBase
	VarId *VarId
	Expr  Expr
}

func NewAssign(loc diagnostics.Location, v *VarId, e Expr) *Assign {
	return &Assign{stmtBase: stmtBase{loc: loc}, VarId: v, Expr: e}
}

type ExprStmt struct {
	stmtBase
	Expr Expr
}

func NewExprStmt(loc diagnostics.Location, e Expr) *ExprStmt {
	return &ExprStmt{stmtBase: stmtBase{loc: loc}, Expr: e}
}

type Return struct {
	stmtBase
	Expr Expr
}

func NewReturn(loc diagnostics.Location, e Expr) *Return {
	return &Return{stmtBase: stmtBase{loc: loc}, Expr: e}
}

type Block struct {
	Stmts []Statement
	loc   diagnostics.Location
}

func NewBlock(loc diagnostics.Location, stmts []Statement) *Block {
	return &Block{Stmts: stmts, loc: loc}
}

func (b *Block) Loc() diagnostics.Location { return b.loc }
