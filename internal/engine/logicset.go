// Package engine implements the Executor component of spec.md §4.9: one
// handler per ast.Statement kind, and — the interesting part — a
// complementary-set (Pos/Neg) algebra for evaluating WHERE clauses over one
// or two tables without ever materialising the full universe unless a
// caller actually needs to enumerate it.
//
// Grounded on the teacher's internal/engine/exec.go dispatch-by-statement-
// type shape (small functions, one per statement kind); the logic-set
// algebra itself has no teacher precedent (the teacher evaluates WHERE by a
// direct boolean predicate) and is built fresh per spec.md §4.9/§9.
package engine

import "relcore/internal/storage/page"

// Pair is a joined row-id tuple: Right is page.None for single-table
// queries (spec.md §4.9: "right = 0 for single-table queries" — this
// implementation uses page.None as that zero/absent marker instead of the
// literal page number 0, since 0 is otherwise a valid page number here).
type Pair struct {
	Left  page.RowID
	Right page.RowID
}

// RowSet is a plain set of row-id pairs.
type RowSet map[Pair]struct{}

func newRowSet() RowSet { return make(RowSet) }

func (s RowSet) add(p Pair) { s[p] = struct{}{} }

func union(a, b RowSet) RowSet {
	out := make(RowSet, len(a)+len(b))
	for p := range a {
		out.add(p)
	}
	for p := range b {
		out.add(p)
	}
	return out
}

func intersect(a, b RowSet) RowSet {
	out := newRowSet()
	small, big := a, b
	if len(b) < len(a) {
		small, big = b, a
	}
	for p := range small {
		if _, ok := big[p]; ok {
			out.add(p)
		}
	}
	return out
}

func difference(a, b RowSet) RowSet {
	out := newRowSet()
	for p := range a {
		if _, ok := b[p]; !ok {
			out.add(p)
		}
	}
	return out
}

// Logic is the tagged Pos(S)/Neg(S) sum type from spec.md §9: a positive set
// names exactly the rows it contains; a negative set names everything
// except the rows it contains, relative to a universe materialised only at
// statement finalisation.
type Logic struct {
	neg bool
	set RowSet
}

// Pos builds a positive logic set.
func Pos(s RowSet) Logic { return Logic{neg: false, set: s} }

// Neg builds a negative logic set.
func Neg(s RowSet) Logic { return Logic{neg: true, set: s} }

// LogicTrue is the universal set: "true" for every row, expressed as Neg(∅)
// per spec.md §4.9.
func LogicTrue() Logic { return Neg(newRowSet()) }

// LogicFalse is the empty set: Pos(∅).
func LogicFalse() Logic { return Pos(newRowSet()) }

// Not flips Pos<->Neg without touching the underlying set.
func Not(l Logic) Logic { return Logic{neg: !l.neg, set: l.set} }

// Or implements the union half of spec.md §9's complementary-set algebra:
// Pos∪Pos=Pos(∪), Neg∪Neg=Neg(∩), Pos∪Neg=Neg(Neg\Pos).
func Or(a, b Logic) Logic {
	switch {
	case !a.neg && !b.neg:
		return Pos(union(a.set, b.set))
	case a.neg && b.neg:
		return Neg(intersect(a.set, b.set))
	case !a.neg && b.neg:
		return Neg(difference(b.set, a.set))
	default: // a.neg && !b.neg
		return Neg(difference(a.set, b.set))
	}
}

// And implements the intersection half: Pos∩Pos=Pos(∩), Neg∩Neg=Neg(∪),
// Pos∩Neg=Pos(Pos\Neg).
func And(a, b Logic) Logic {
	switch {
	case !a.neg && !b.neg:
		return Pos(intersect(a.set, b.set))
	case a.neg && b.neg:
		return Neg(union(a.set, b.set))
	case !a.neg && b.neg:
		return Pos(difference(a.set, b.set))
	default: // a.neg && !b.neg
		return Pos(difference(b.set, a.set))
	}
}

// Materialize resolves a Logic value to a plain positive RowSet against the
// given universe, only doing the Neg(S) = universe\S subtraction when
// actually asked to enumerate (spec.md §4.9: "the universe is only
// materialised when needed").
func (l Logic) Materialize(universe RowSet) RowSet {
	if !l.neg {
		return l.set
	}
	return difference(universe, l.set)
}
