// Package nemesis injects faults into the cluster through the same remote
// runner the workload uses: killing the store process and cutting nodes
// off from their peers. Faults are best effort; a fault that fails to
// land is logged and skipped, never fatal to the run.
package nemesis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"etcdprobe/pkg/remote"
)

// Config describes the fault schedule.
type Config struct {
	Nodes []string

	// StartCmd restarts the store on a node after a kill, run through
	// `sh -c`.
	StartCmd string

	// Interval is the pause between faults, Hold how long each fault
	// stays in place.
	Interval time.Duration
	Hold     time.Duration

	Seed int64
}

// Nemesis schedules kill and partition faults.
type Nemesis struct {
	cfg    Config
	runner remote.Runner

	mu    sync.Mutex
	state string
}

func New(cfg Config, runner remote.Runner) *Nemesis {
	if cfg.StartCmd == "" {
		cfg.StartCmd = "systemctl start etcd"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.Hold <= 0 {
		cfg.Hold = 5 * time.Second
	}
	return &Nemesis{cfg: cfg, runner: runner, state: "idle"}
}

// State reports the currently active fault, for the status endpoint.
func (n *Nemesis) State() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Nemesis) setState(s string) {
	n.mu.Lock()
	n.state = s
	n.mu.Unlock()
}

// Run injects faults until ctx is cancelled, healing the last fault on the
// way out.
func (n *Nemesis) Run(ctx context.Context) {
	rng := rand.New(rand.NewSource(n.cfg.Seed))

	for {
		select {
		case <-ctx.Done():
			n.setState("idle")
			return
		case <-time.After(n.cfg.Interval):
		}

		node := n.cfg.Nodes[rng.Intn(len(n.cfg.Nodes))]
		if rng.Intn(2) == 0 {
			n.killAndRestart(ctx, node)
		} else {
			n.partitionAndHeal(ctx, node)
		}
	}
}

func (n *Nemesis) killAndRestart(ctx context.Context, node string) {
	n.setState("kill " + node)
	defer n.setState("idle")

	log.WithField("node", node).Info("nemesis: killing store process")
	n.run(ctx, node, []string{"pkill", "-9", "etcd"})

	n.hold(ctx)

	log.WithField("node", node).Info("nemesis: restarting store process")
	n.run(ctx, node, []string{"sh", "-c", n.cfg.StartCmd})
}

func (n *Nemesis) partitionAndHeal(ctx context.Context, node string) {
	n.setState("partition " + node)
	defer n.setState("idle")

	log.WithField("node", node).Info("nemesis: partitioning node from peers")
	for _, peer := range n.cfg.Nodes {
		if peer == node {
			continue
		}
		n.run(ctx, node, []string{"iptables", "-A", "INPUT", "-s", peer, "-j", "DROP"})
	}

	n.hold(ctx)

	log.WithField("node", node).Info("nemesis: healing partition")
	n.run(ctx, node, []string{"iptables", "-F", "INPUT"})
}

func (n *Nemesis) hold(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(n.cfg.Hold):
	}
}

// run executes one fault command. pkill exits 1 when nothing matched,
// which is normal when the process is already down, so exit 1 is quietly
// tolerated here.
func (n *Nemesis) run(ctx context.Context, node string, argv []string) {
	if _, err := n.runner.Run(ctx, node, argv, ""); err != nil {
		log.WithFields(log.Fields{"node": node, "cmd": argv[0]}).
			Warnf("nemesis: fault command failed: %v", err)
	}
}
