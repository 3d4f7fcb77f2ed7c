package txn

import (
	"fmt"
	"strings"

	"etcdprobe/pkg/literal"
)

// Encode renders op as etcdctl txn command text. It is deterministic and
// has no side effects: the same tree always yields byte-identical output.
//
// A Txn renders as four newline-joined sections (predicates, then-branch,
// else-branch, trailing empty section). Every section is always present,
// even when empty, because the reader counts blank lines rather than
// content. A non-Txn op renders as its single line.
func Encode(op Op) (string, error) {
	if t, ok := op.(Txn); ok {
		return encodeTxn(t)
	}
	return encodeLine(op)
}

func encodeTxn(t Txn) (string, error) {
	sections := make([]string, 0, 4)
	for _, ops := range [][]Op{t.Predicates, t.Then, t.Else} {
		lines := make([]string, 0, len(ops))
		for _, op := range ops {
			line, err := encodeLine(op)
			if err != nil {
				return "", err
			}
			lines = append(lines, line)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	sections = append(sections, "")
	return strings.Join(sections, "\n\n"), nil
}

func encodeLine(op Op) (string, error) {
	switch op := op.(type) {
	case Put:
		return "put " + op.Key + " " + literal.Format(op.Value), nil
	case Get:
		return "get " + op.Key, nil
	case Compare:
		// The function wraps the key even though the AST orders the key
		// first; the external grammar is authoritative here.
		return fmt.Sprintf(`%s("%s") %s %s`, op.Fn, op.Key, op.Op, literal.Format(op.Target)), nil
	case Txn:
		return "", fmt.Errorf("txn: nested transactions are not encodable")
	default:
		panic("unhandled default case")
	}
}
