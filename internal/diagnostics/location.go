package diagnostics

import "fmt"

// Position is a single point in a source file.
type Position struct {
	Line int // 1-based
	Col  int // 1-based
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Location is a source span, carried by every AST node that can fail to
// verify. A zero Location (Start == End == Position{}) means "synthetic",
// e.g. a compiler-provided declaration that was never written by a user.
type Location struct {
	Path  string
	Start Position
	End   Position
}

func (l Location) IsSynthetic() bool {
	return l.Start == Position{} && l.End == Position{}
}

func (l Location) String() string {
	if l.Path == "" {
		return l.Start.String()
	}
	return fmt.Sprintf("%s:%s", l.Path, l.Start)
}
