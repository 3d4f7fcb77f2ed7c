package txn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etcdprobe/pkg/literal"
)

func TestEncodeLines(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{Put{Key: "k", Value: literal.String("v")}, `put k "v"`},
		{Put{Key: "k", Value: literal.Int(2)}, `put k "2"`},
		{Get{Key: "foo"}, "get foo"},
		{Compare{Fn: Value, Key: "k", Op: Eq, Target: literal.String("1")}, `val("k") = "1"`},
		{Compare{Fn: ModRevision, Key: "k", Op: Gt, Target: literal.Int(0)}, `mod("k") > "0"`},
		{Compare{Fn: Version, Key: "k", Op: Lt, Target: literal.Int(3)}, `ver("k") < "3"`},
	}

	for _, tt := range tests {
		got, err := Encode(tt.op)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestEncodeTxn(t *testing.T) {
	tx := Txn{
		Predicates: Seq(Compare{Fn: Value, Key: "k", Op: Eq, Target: literal.String("1")}),
		Then:       Seq(Put{Key: "k", Value: literal.String("2")}),
		Else:       Seq(Put{Key: "k", Value: literal.String("3")}),
	}

	got, err := Encode(tx)
	require.NoError(t, err)

	want := strings.Join([]string{
		`val("k") = "1"`,
		``,
		`put k "2"`,
		``,
		`put k "3"`,
		``,
		``,
	}, "\n")
	assert.Equal(t, want, got)
}

func TestEncodeTxnAlwaysFourSections(t *testing.T) {
	txns := []Txn{
		{},
		{Then: Seq(Put{Key: "k", Value: literal.Int(1)})},
		{Predicates: Seq(Compare{Fn: Version, Key: "k", Op: Eq, Target: literal.Int(0)})},
		{
			Predicates: Seq(
				Compare{Fn: Value, Key: "a", Op: Eq, Target: literal.Int(1)},
				Compare{Fn: Value, Key: "b", Op: Eq, Target: literal.Int(2)},
			),
			Then: Seq(Get{Key: "a"}, Get{Key: "b"}),
			Else: Seq(Get{Key: "a"}),
		},
	}

	for _, tx := range txns {
		got, err := Encode(tx)
		require.NoError(t, err)
		assert.Len(t, strings.Split(got, "\n\n"), 4, "encoded: %q", got)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	tx := Txn{
		Predicates: Seq(Compare{Fn: ModRevision, Key: "k", Op: Gt, Target: literal.Int(5)}),
		Then:       Seq(Put{Key: "k", Value: literal.String("x")}, Get{Key: "k"}),
	}

	a, err := Encode(tx)
	require.NoError(t, err)
	b, err := Encode(tx)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeRejectsNestedTxn(t *testing.T) {
	tx := Txn{Then: Seq(Txn{})}
	_, err := Encode(tx)
	assert.Error(t, err)
}
