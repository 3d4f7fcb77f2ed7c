package etcdctl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etcdprobe/pkg/literal"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestDecodeTxnResponse(t *testing.T) {
	out := fmt.Sprintf(`{
		"header": {"member_id": 11, "revision": 5, "raft_term": 2},
		"succeeded": true,
		"responses": [
			{"response_put": {"header": {"member_id": 11, "revision": 5, "raft_term": 2}}},
			{"response_range": {
				"count": 1,
				"kvs": [{
					"key": %q,
					"value": %q,
					"create_revision": 1,
					"mod_revision": 2,
					"version": 1
				}]
			}}
		]
	}`, b64(`"k"`), b64(`"v"`))

	res, err := decodeTxnResponse(out)
	require.NoError(t, err)

	assert.True(t, res.Succeeded)
	assert.Equal(t, Header{MemberID: 11, Revision: 5, RaftTerm: 2}, res.Header)
	require.Len(t, res.Results, 2)

	put, ok := res.Results[0].(PutResult)
	require.True(t, ok)
	assert.Equal(t, Header{MemberID: 11, Revision: 5, RaftTerm: 2}, put.Header)

	rng, ok := res.Results[1].(RangeResult)
	require.True(t, ok)
	assert.Equal(t, RangeResult{
		Count: 1,
		KVs: map[string]KV{
			"k": {Value: literal.String("v"), Version: 1, CreateRevision: 1, ModRevision: 2},
		},
	}, rng)
}

func TestDecodeIntegerValue(t *testing.T) {
	out := fmt.Sprintf(`{
		"header": {"member_id": 1, "revision": 9, "raft_term": 1},
		"succeeded": true,
		"responses": [
			{"response_range": {
				"count": 1,
				"kvs": [{"key": %q, "value": %q, "create_revision": 3, "mod_revision": 9, "version": 4}]
			}}
		]
	}`, b64(`"counter"`), b64(`"42"`))

	res, err := decodeTxnResponse(out)
	require.NoError(t, err)

	rng := res.Results[0].(RangeResult)
	assert.Equal(t, literal.Int(42), rng.KVs["counter"].Value)
}

func TestDecodeEmptyRange(t *testing.T) {
	out := `{
		"header": {"member_id": 1, "revision": 4, "raft_term": 1},
		"succeeded": true,
		"responses": [{"response_range": {"count": 0}}]
	}`

	res, err := decodeTxnResponse(out)
	require.NoError(t, err)

	rng := res.Results[0].(RangeResult)
	assert.Equal(t, int64(0), rng.Count)
	assert.Empty(t, rng.KVs)
}

func TestDecodeDiscriminantViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero keys", `{}`},
		{"two keys", `{"response_put": {"header": {}}, "response_range": {"count": 0}}`},
		{"unknown key", `{"response_delete_range": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := `{
				"header": {"member_id": 1, "revision": 1, "raft_term": 1},
				"succeeded": true,
				"responses": [` + tt.body + `]
			}`

			_, err := decodeTxnResponse(out)
			require.Error(t, err)

			var pErr *ProtocolError
			assert.True(t, errors.As(err, &pErr), "want ProtocolError, got %v", err)
		})
	}
}

func TestDecodeRejectsPaginatedRange(t *testing.T) {
	out := `{
		"header": {"member_id": 1, "revision": 1, "raft_term": 1},
		"succeeded": true,
		"responses": [{"response_range": {"count": 500, "more": true}}]
	}`

	_, err := decodeTxnResponse(out)
	var pErr *ProtocolError
	assert.True(t, errors.As(err, &pErr), "want ProtocolError, got %v", err)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decodeTxnResponse("not json at all")
	var pErr *ProtocolError
	assert.True(t, errors.As(err, &pErr), "want ProtocolError, got %v", err)
}

func TestDecodeRejectsBadKeyLiteral(t *testing.T) {
	out := fmt.Sprintf(`{
		"header": {"member_id": 1, "revision": 1, "raft_term": 1},
		"succeeded": true,
		"responses": [
			{"response_range": {
				"count": 1,
				"kvs": [{"key": %q, "value": %q, "create_revision": 1, "mod_revision": 1, "version": 1}]
			}}
		]
	}`, b64(`unquoted`), b64(`"v"`))

	_, err := decodeTxnResponse(out)
	var pErr *ProtocolError
	assert.True(t, errors.As(err, &pErr), "want ProtocolError, got %v", err)
}
