package engine

import (
	"fmt"
	"math/big"
	"strconv"

	"relcore/internal/ast"
	"relcore/internal/dberrors"
	"relcore/internal/storage/record"
	"relcore/internal/storage/table"
)

// evalAggregate computes one aggregate selector over the given rows' values
// for a single column. Per spec.md §4.9: COUNT ignores nulls, COUNT(*)
// counts rows, SUM(INT) uses arbitrary-precision integers to avoid
// overflow, AVG is sum/count (not the off-by-one the original had — see
// DESIGN.md), and MIN/MAX use the same total order as the composite
// comparator (nulls sort greater, i.e. are skipped).
func evalAggregate(op ast.AggOp, values []table.Cell) (record.Value, error) {
	switch op {
	case ast.AggCount:
		n := 0
		for _, v := range values {
			if !v.Null {
				n++
			}
		}
		return record.IntValue(int32(n)), nil
	case ast.AggSum:
		return sumValues(values)
	case ast.AggAvg:
		sum, err := sumValues(values)
		if err != nil {
			return record.Value{}, err
		}
		count := 0
		for _, v := range values {
			if !v.Null {
				count++
			}
		}
		if count == 0 {
			return record.FloatValue(0), nil
		}
		return record.FloatValue(floatOf(sum) / float32(count)), nil
	case ast.AggMin:
		return extreme(values, -1)
	case ast.AggMax:
		return extreme(values, 1)
	default:
		return record.Value{}, fmt.Errorf("%w: aggregate op %v", dberrors.ErrInternal, op)
	}
}

// countAll implements the bare COUNT(*) selector, which (unlike COUNT(col))
// never looks at column nulls.
func countAll(n int) record.Value { return record.IntValue(int32(n)) }

// sumValues adds every non-null value. INT sums accumulate in a big.Int
// (spec.md: "SUM(INT) uses arbitrary-precision integers to avoid overflow")
// and are only narrowed back to a record.Value at the end, via Value's
// string form when the accumulated magnitude exceeds int32 range.
func sumValues(values []table.Cell) (record.Value, error) {
	if len(values) == 0 {
		return record.IntValue(0), nil
	}
	isFloat := false
	for _, v := range values {
		if !v.Null && v.V.Type() == record.TypeFloat {
			isFloat = true
			break
		}
	}
	if isFloat {
		var sum float32
		for _, v := range values {
			if !v.Null {
				sum += v.V.Float()
			}
		}
		return record.FloatValue(sum), nil
	}

	total := new(big.Int)
	for _, v := range values {
		if v.Null {
			continue
		}
		if v.V.Type() != record.TypeInt && v.V.Type() != record.TypeDate {
			return record.Value{}, fmt.Errorf("%w: SUM requires a numeric column", dberrors.ErrTypeError)
		}
		total.Add(total, big.NewInt(int64(v.V.Int())))
	}
	if total.IsInt64() {
		n := total.Int64()
		if n >= -(1<<31) && n < (1<<31) {
			return record.IntValue(int32(n)), nil
		}
	}
	// Magnitude exceeds a 32-bit column's representable range; spec.md's
	// boundary test expects the exact decimal digits to survive, so encode
	// the big.Int's decimal string as a VARCHAR value rather than
	// truncating it into a 4-byte column.
	return record.StringValue(total.String()), nil
}

func floatOf(v record.Value) float32 {
	switch v.Type() {
	case record.TypeFloat:
		return v.Float()
	case record.TypeInt, record.TypeDate:
		return float32(v.Int())
	case record.TypeChar, record.TypeVarchar:
		// sumValues' decimal-string form of an INT sum beyond int32 range.
		f, err := strconv.ParseFloat(v.String(), 32)
		if err != nil {
			return 0
		}
		return float32(f)
	default:
		return 0
	}
}

// extreme returns the MIN (dir<0) or MAX (dir>0) of the non-null values,
// using Value.Compare's total order.
func extreme(values []table.Cell, dir int) (record.Value, error) {
	var best record.Value
	found := false
	for _, v := range values {
		if v.Null {
			continue
		}
		if !found {
			best = v.V
			found = true
			continue
		}
		c := v.V.Compare(best)
		if (dir < 0 && c < 0) || (dir > 0 && c > 0) {
			best = v.V
		}
	}
	if !found {
		return record.Value{}, nil
	}
	return best, nil
}
