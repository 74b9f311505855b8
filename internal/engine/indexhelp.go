package engine

import (
	"relcore/internal/ast"
	"relcore/internal/storage/index"
	"relcore/internal/storage/record"
)

// indexKeyFor builds a single-column index.Key for a literal value, used to
// drive an equality probe against a one-column ColIndex.
func indexKeyFor(v record.Value) index.Key {
	return index.MakeKey([]record.Value{v}, []bool{false})
}

func indexOpFor(op ast.CompareOp) index.RangeOp {
	switch op {
	case ast.OpEQ:
		return index.OpEQ
	case ast.OpNE:
		return index.OpNE
	case ast.OpLT:
		return index.OpLT
	case ast.OpLE:
		return index.OpLE
	case ast.OpGT:
		return index.OpGT
	case ast.OpGE:
		return index.OpGE
	default:
		return index.OpEQ
	}
}
