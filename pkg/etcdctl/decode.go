package etcdctl

import (
	"encoding/json"
	"fmt"
	"strconv"

	"etcdprobe/pkg/literal"
)

// ProtocolError means the tool's response did not have the shape this
// adapter was built against. It is fatal to the current operation: a
// malformed response is never coerced into a best-guess result.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "etcdctl: protocol violation: " + e.Reason
}

func protocolErrf(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

// perOpResponse is one element of the responses array. Exactly one key
// identifies the variant; any other key count is a protocol violation.
type perOpResponse map[string]json.RawMessage

func decodeTxnResponse(out string) (*TxnResult, error) {
	var raw txnResponse
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, protocolErrf("unparseable response: %v", err)
	}

	res := &TxnResult{
		Succeeded: raw.Succeeded,
		Header:    decodeHeader(raw.Header),
		Results:   make([]OpResult, 0, len(raw.Responses)),
	}
	for i, obj := range raw.Responses {
		opRes, err := decodePerOpResponse(obj)
		if err != nil {
			return nil, fmt.Errorf("response %d: %w", i, err)
		}
		res.Results = append(res.Results, opRes)
	}
	return res, nil
}

func decodeHeader(h responseHeader) Header {
	return Header{MemberID: h.MemberID, Revision: h.Revision, RaftTerm: h.RaftTerm}
}

func decodePerOpResponse(obj perOpResponse) (OpResult, error) {
	if len(obj) != 1 {
		return nil, protocolErrf("per-op response has %d keys, want exactly 1", len(obj))
	}

	for key, body := range obj {
		switch key {
		case "response_put":
			var put putResponse
			if err := json.Unmarshal(body, &put); err != nil {
				return nil, protocolErrf("bad response_put: %v", err)
			}
			return PutResult{Header: decodeHeader(put.Header)}, nil

		case "response_range":
			var rng rangeResponse
			if err := json.Unmarshal(body, &rng); err != nil {
				return nil, protocolErrf("bad response_range: %v", err)
			}
			return decodeRange(rng)

		default:
			return nil, protocolErrf("unknown per-op response key %q", key)
		}
	}
	panic("unreachable")
}

func decodeRange(rng rangeResponse) (OpResult, error) {
	// Pagination is unsupported; a truncated range must fail loudly
	// rather than pass for a complete one.
	if rng.More {
		return nil, protocolErrf("range response has more=true, pagination unsupported")
	}

	kvs := make(map[string]KV, len(rng.KVs))
	for _, entry := range rng.KVs {
		key, kv, err := decodeKV(entry)
		if err != nil {
			return nil, err
		}
		kvs[key] = kv
	}
	return RangeResult{Count: rng.Count, KVs: kvs}, nil
}

func decodeKV(entry kvEntry) (string, KV, error) {
	key, err := literal.Parse(string(entry.Key))
	if err != nil {
		return "", KV{}, protocolErrf("bad key literal %q: %v", entry.Key, err)
	}
	value, err := literal.Parse(string(entry.Value))
	if err != nil {
		return "", KV{}, protocolErrf("bad value literal %q: %v", entry.Value, err)
	}

	return keyString(key), KV{
		Value:          value,
		Version:        entry.Version,
		CreateRevision: entry.CreateRevision,
		ModRevision:    entry.ModRevision,
	}, nil
}

func keyString(v literal.Value) string {
	switch v := v.(type) {
	case literal.String:
		return string(v)
	case literal.Int:
		return strconv.FormatInt(int64(v), 10)
	default:
		panic("unhandled default case")
	}
}
