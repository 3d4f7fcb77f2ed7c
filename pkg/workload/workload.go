// Package workload drives concurrent register operations against the
// cluster and records their outcomes. The recording policy is the whole
// point: definite failures go down as fail, everything with an unknown
// outcome goes down as info, so the checker never mistakes "maybe applied"
// for "did not apply".
package workload

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"etcdprobe/pkg/etcdctl"
	"etcdprobe/pkg/history"
	"etcdprobe/pkg/literal"
	"etcdprobe/pkg/remote"
)

// Config sizes a register workload.
type Config struct {
	Nodes    []string
	Workers  int
	Ops      int
	Keys     int
	MaxValue int
	Seed     int64
}

// Counts is a point-in-time view of the run counters.
type Counts struct {
	Total   int64
	Ok      int64
	Failed  int64
	Unknown int64
}

// Stats aggregates operation outcomes across workers.
type Stats struct {
	total   atomic.Int64
	ok      atomic.Int64
	failed  atomic.Int64
	unknown atomic.Int64
}

func (s *Stats) Counts() Counts {
	return Counts{
		Total:   s.total.Load(),
		Ok:      s.ok.Load(),
		Failed:  s.failed.Load(),
		Unknown: s.unknown.Load(),
	}
}

// Register runs reads, writes and compare-and-swaps over a small keyspace.
// Each worker owns one client bound to one node.
type Register struct {
	cfg    Config
	runner remote.Runner
	hist   *history.Log
	stats  Stats
}

func NewRegister(cfg Config, runner remote.Runner, hist *history.Log) *Register {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Keys <= 0 {
		cfg.Keys = 1
	}
	if cfg.MaxValue <= 0 {
		cfg.MaxValue = 100
	}
	return &Register{cfg: cfg, runner: runner, hist: hist}
}

// Stats exposes the live counters, for the status endpoint.
func (w *Register) Stats() *Stats {
	return &w.stats
}

// Run executes the configured number of operations and blocks until all
// workers finish. A protocol violation anywhere aborts the whole run; it
// means the adapter and the tool disagree, and further results would be
// garbage.
func (w *Register) Run(ctx context.Context) error {
	var remaining atomic.Int64
	remaining.Store(int64(w.cfg.Ops))

	errs := make(chan error, w.cfg.Workers)
	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			if err := w.work(ctx, worker, &remaining); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	return <-errs
}

func (w *Register) work(ctx context.Context, worker int, remaining *atomic.Int64) error {
	node := w.cfg.Nodes[worker%len(w.cfg.Nodes)]
	client := etcdctl.Open(node, w.runner)
	defer client.Close()

	rng := rand.New(rand.NewSource(w.cfg.Seed + int64(worker)))

	for remaining.Add(-1) >= 0 {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		key := fmt.Sprintf("r%d", rng.Intn(w.cfg.Keys))
		var err error
		switch rng.Intn(3) {
		case 0:
			err = w.read(ctx, client, worker, key)
		case 1:
			err = w.write(ctx, client, worker, key, literal.Int(rng.Intn(w.cfg.MaxValue)))
		default:
			old := literal.Int(rng.Intn(w.cfg.MaxValue))
			next := literal.Int(rng.Intn(w.cfg.MaxValue))
			err = w.cas(ctx, client, worker, key, old, next)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Register) read(ctx context.Context, client *etcdctl.Client, worker int, key string) error {
	w.stats.total.Add(1)
	w.hist.Invoke(worker, "read", key, "")

	rng, err := client.Get(ctx, key)
	if err != nil {
		return w.recordFailure(worker, "read", key, err)
	}

	value := ""
	if kv, ok := rng.KVs[key]; ok {
		value = literal.Format(kv.Value)
	}
	w.hist.Ok(worker, "read", key, value)
	w.stats.ok.Add(1)
	return nil
}

func (w *Register) write(ctx context.Context, client *etcdctl.Client, worker int, key string, value literal.Value) error {
	w.stats.total.Add(1)
	w.hist.Invoke(worker, "write", key, literal.Format(value))

	if _, err := client.Put(ctx, key, value); err != nil {
		return w.recordFailure(worker, "write", key, err)
	}

	w.hist.Ok(worker, "write", key, literal.Format(value))
	w.stats.ok.Add(1)
	return nil
}

func (w *Register) cas(ctx context.Context, client *etcdctl.Client, worker int, key string, old, next literal.Value) error {
	w.stats.total.Add(1)
	value := literal.Format(old) + "->" + literal.Format(next)
	w.hist.Invoke(worker, "cas", key, value)

	res, err := client.CompareAndSwap(ctx, key, old, next)
	if err != nil {
		return w.recordFailure(worker, "cas", key, err)
	}

	if !res.Succeeded {
		// The guard failed: the swap definitely did not apply.
		w.hist.Fail(worker, "cas", key, "precondition")
		w.stats.failed.Add(1)
		return nil
	}
	w.hist.Ok(worker, "cas", key, value)
	w.stats.ok.Add(1)
	return nil
}

// recordFailure sorts an operation error into the history. Definite
// failures are recorded as fail; anything else as unknown. A protocol
// violation is returned to abort the run.
func (w *Register) recordFailure(worker int, op, key string, err error) error {
	var pErr *etcdctl.ProtocolError
	if errors.As(err, &pErr) {
		return err
	}

	var classified *etcdctl.ClassifiedError
	if errors.As(err, &classified) && classified.Definite {
		w.hist.Fail(worker, op, key, classified.Kind.String())
		w.stats.failed.Add(1)
		return nil
	}

	kind := "adapter"
	if classified != nil {
		kind = classified.Kind.String()
	}
	log.WithFields(log.Fields{"worker": worker, "op": op, "key": key, "kind": kind}).
		Warnf("operation outcome unknown: %v", err)
	w.hist.Unknown(worker, op, key, kind)
	w.stats.unknown.Add(1)
	return nil
}
