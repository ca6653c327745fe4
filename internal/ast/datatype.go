// Package ast defines the typed AST produced by the parser (spec.md §3,
// C2): Whamm -> Script* -> Provider* -> Package* -> Event* -> Probe*, plus
// expressions, statements, and functions.
package ast

import "fmt"

// DataType is the closed sum of types a whamm expression can carry
// (spec.md §3). AssumeGood is a wildcard used during error recovery: it
// compares equal to every other type so one failure doesn't cascade into
// a wall of follow-on type errors.
type DataType struct {
	Kind DataTypeKind
	// Tuple element types, only set when Kind == DataTypeTuple.
	Elems []DataType
	// Map key/value types, only set when Kind == DataTypeMap.
	Key *DataType
	Val *DataType
}

type DataTypeKind int

const (
	DataTypeI32 DataTypeKind = iota
	DataTypeU32
	DataTypeBoolean
	DataTypeNull
	DataTypeStr
	DataTypeTuple
	DataTypeMap
	DataTypeAssumeGood
)

func (k DataTypeKind) String() string {
	switch k {
	case DataTypeI32:
		return "i32"
	case DataTypeU32:
		return "u32"
	case DataTypeBoolean:
		return "bool"
	case DataTypeNull:
		return "null"
	case DataTypeStr:
		return "str"
	case DataTypeTuple:
		return "tuple"
	case DataTypeMap:
		return "map"
	case DataTypeAssumeGood:
		return "<assume-good>"
	default:
		return "<unknown>"
	}
}

func (t DataType) String() string {
	switch t.Kind {
	case DataTypeTuple:
		s := "("
		for i, e := range t.Elems {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + ")"
	case DataTypeMap:
		return fmt.Sprintf("map<%s,%s>", t.Key, t.Val)
	default:
		return t.Kind.String()
	}
}

// Equal implements the type-compatibility rule from spec.md §4.4:
// AssumeGood compares equal to everything (to suppress cascades); map and
// tuple types compare structurally.
func (t DataType) Equal(other DataType) bool {
	if t.Kind == DataTypeAssumeGood || other.Kind == DataTypeAssumeGood {
		return true
	}
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case DataTypeTuple:
		if len(t.Elems) != len(other.Elems) {
			return false
		}
		for i := range t.Elems {
			if !t.Elems[i].Equal(other.Elems[i]) {
				return false
			}
		}
		return true
	case DataTypeMap:
		return t.Key.Equal(*other.Key) && t.Val.Equal(*other.Val)
	default:
		return true
	}
}

func (t DataType) IsNumeric() bool {
	return t.Kind == DataTypeI32 || t.Kind == DataTypeU32 || t.Kind == DataTypeAssumeGood
}

var (
	I32        = DataType{Kind: DataTypeI32}
	U32        = DataType{Kind: DataTypeU32}
	Boolean    = DataType{Kind: DataTypeBoolean}
	Null       = DataType{Kind: DataTypeNull}
	Str        = DataType{Kind: DataTypeStr}
	AssumeGood = DataType{Kind: DataTypeAssumeGood}
)

func Tuple(elems ...DataType) DataType {
	return DataType{Kind: DataTypeTuple, Elems: elems}
}

func Map(key, val DataType) DataType {
	return DataType{Kind: DataTypeMap, Key: &key, Val: &val}
}
