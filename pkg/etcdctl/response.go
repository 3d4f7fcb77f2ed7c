package etcdctl

import "etcdprobe/pkg/literal"

// Wire shapes of etcdctl's --write-out=json txn output. encoding/json
// base64-decodes the key/value fields into []byte for us; the bytes then
// still carry literal notation and go through literal.Parse.

type txnResponse struct {
	Header    responseHeader  `json:"header"`
	Succeeded bool            `json:"succeeded"`
	Responses []perOpResponse `json:"responses"`
}

type responseHeader struct {
	MemberID uint64 `json:"member_id"`
	Revision int64  `json:"revision"`
	RaftTerm uint64 `json:"raft_term"`
}

type putResponse struct {
	Header responseHeader `json:"header"`
}

type rangeResponse struct {
	Count int64     `json:"count"`
	More  bool      `json:"more"`
	KVs   []kvEntry `json:"kvs"`
}

type kvEntry struct {
	Key            []byte `json:"key"`
	Value          []byte `json:"value"`
	CreateRevision int64  `json:"create_revision"`
	ModRevision    int64  `json:"mod_revision"`
	Version        int64  `json:"version"`
}

// Normalized results handed to callers.

// Header is the cluster metadata attached to every response.
type Header struct {
	MemberID uint64
	Revision int64
	RaftTerm uint64
}

// TxnResult is the normalized outcome of one transaction. Succeeded
// reports which branch ran; Results holds one entry per executed op, in
// order.
type TxnResult struct {
	Succeeded bool
	Header    Header
	Results   []OpResult
}

// OpResult is the outcome of a single op inside a transaction. Closed set:
// PutResult and RangeResult.
type OpResult interface {
	opResult()
}

// PutResult is the outcome of a put.
type PutResult struct {
	Header Header
}

// RangeResult is the outcome of a get: the matched keys with their decoded
// values and revision metadata.
type RangeResult struct {
	Count int64
	KVs   map[string]KV
}

// KV is one decoded key-value entry of a range result.
type KV struct {
	Value          literal.Value
	Version        int64
	CreateRevision int64
	ModRevision    int64
}

func (PutResult) opResult()   {}
func (RangeResult) opResult() {}
