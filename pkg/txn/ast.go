// Package txn models guarded key-value transactions and renders them into
// the four-section text block etcdctl's txn command reads from stdin.
package txn

import "etcdprobe/pkg/literal"

// Op is one node of a transaction tree. The set of implementations is
// closed: Put, Get, Compare and Txn.
type Op interface {
	txnOp()
}

// Put writes Value under Key.
type Put struct {
	Key   string
	Value literal.Value
}

// Get reads the current revision of Key.
type Get struct {
	Key string
}

// Compare guards a transaction: it compares an attribute of Key against
// Target.
type Compare struct {
	Fn     CompareFn
	Key    string
	Op     CompareOp
	Target literal.Value
}

// Txn is a guarded transaction: if all Predicates hold, the Then ops run,
// otherwise the Else ops. Branches may not contain nested Txn nodes; the
// target grammar is flat.
type Txn struct {
	Predicates []Op
	Then       []Op
	Else       []Op
}

func (Put) txnOp()     {}
func (Get) txnOp()     {}
func (Compare) txnOp() {}
func (Txn) txnOp()     {}

// CompareFn selects which attribute of a key a Compare inspects.
type CompareFn int

const (
	ModRevision CompareFn = iota
	Value
	Version
)

func (f CompareFn) String() string {
	switch f {
	case ModRevision:
		return "mod"
	case Value:
		return "val"
	case Version:
		return "ver"
	default:
		panic("unhandled default case")
	}
}

// CompareOp is the comparison operator of a predicate.
type CompareOp int

const (
	Eq CompareOp = iota
	Lt
	Gt
)

func (o CompareOp) String() string {
	switch o {
	case Eq:
		return "="
	case Lt:
		return "<"
	case Gt:
		return ">"
	default:
		panic("unhandled default case")
	}
}

// Seq normalizes a bare op, or several, into an ordered sequence. Callers
// holding a single node use Seq(op) rather than building slices by hand, so
// the single-or-sequence flexibility lives here and nowhere else.
func Seq(ops ...Op) []Op {
	out := make([]Op, len(ops))
	copy(out, ops)
	return out
}
