// Package etcdctl is a transactional key-value client that drives etcdctl
// on a cluster member over the remote runner. It renders transaction trees
// into etcdctl's txn text grammar, decodes the JSON it prints back, and
// sorts failures into definite ("provably did not apply") and indefinite
// ("effect unknown") classes.
package etcdctl

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"etcdprobe/pkg/literal"
	"etcdprobe/pkg/remote"
	"etcdprobe/pkg/txn"
)

// DefaultCommand is the administrative tool invoked on the target node.
const DefaultCommand = "etcdctl"

// Client executes transactions against one cluster member. It is
// stateless: no connection, cache or session survives a call, so a Client
// is safe for concurrent use and Close never has anything to release.
type Client struct {
	node    string
	command string
	runner  remote.Runner
}

// Open returns a client bound to node. Nothing is contacted until the
// first operation.
func Open(node string, runner remote.Runner) *Client {
	return &Client{node: node, command: DefaultCommand, runner: runner}
}

// Close releases nothing; the client holds no persistent resources.
func (c *Client) Close() {}

// Txn runs a guarded transaction: if all predicates hold, then runs,
// otherwise els. Either branch (and the predicates) may be nil.
//
// Failures come back as *ClassifiedError when the tool exited 1, as
// *ProtocolError when its output was malformed, and raw otherwise. Only a
// ClassifiedError with Definite set guarantees the ops did not apply.
func (c *Client) Txn(ctx context.Context, predicates, then, els []txn.Op) (*TxnResult, error) {
	stdin, err := txn.Encode(txn.Txn{Predicates: predicates, Then: then, Else: els})
	if err != nil {
		return nil, err
	}

	argv := []string{c.command, "txn", "--write-out=json"}
	out, err := c.runner.Run(ctx, c.node, argv, stdin)
	if err != nil {
		var cmdErr *remote.CmdError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode == 1 {
			classified := classify(cmdErr.Stderr)
			log.WithFields(log.Fields{
				"node":     c.node,
				"kind":     classified.Kind.String(),
				"definite": classified.Definite,
			}).Debug("transaction failed")
			return nil, classified
		}
		// Exit codes other than 1 (and transport failures) are not part
		// of the classification contract; hand them through untouched.
		return nil, err
	}

	return decodeTxnResponse(out)
}

// Put writes value under key unconditionally.
func (c *Client) Put(ctx context.Context, key string, value literal.Value) (*TxnResult, error) {
	return c.Txn(ctx, nil, txn.Seq(txn.Put{Key: key, Value: value}), nil)
}

// Get reads key. The range result is empty when the key does not exist.
func (c *Client) Get(ctx context.Context, key string) (RangeResult, error) {
	res, err := c.Txn(ctx, nil, txn.Seq(txn.Get{Key: key}), nil)
	if err != nil {
		return RangeResult{}, err
	}
	if len(res.Results) != 1 {
		return RangeResult{}, protocolErrf("get returned %d results, want 1", len(res.Results))
	}
	rng, ok := res.Results[0].(RangeResult)
	if !ok {
		return RangeResult{}, protocolErrf("get returned a non-range result")
	}
	return rng, nil
}

// CompareAndSwap writes next under key only if the current value is old.
// The returned result's Succeeded field reports whether the swap took;
// on failure the else-branch read carries the actual current state.
func (c *Client) CompareAndSwap(ctx context.Context, key string, old, next literal.Value) (*TxnResult, error) {
	return c.Txn(ctx,
		txn.Seq(txn.Compare{Fn: txn.Value, Key: key, Op: txn.Eq, Target: old}),
		txn.Seq(txn.Put{Key: key, Value: next}),
		txn.Seq(txn.Get{Key: key}))
}

// CreateIfAbsent writes value under key only if the key has never been
// written (version 0).
func (c *Client) CreateIfAbsent(ctx context.Context, key string, value literal.Value) (*TxnResult, error) {
	return c.Txn(ctx,
		txn.Seq(txn.Compare{Fn: txn.Version, Key: key, Op: txn.Eq, Target: literal.Int(0)}),
		txn.Seq(txn.Put{Key: key, Value: value}),
		nil)
}
