package nemesis

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etcdprobe/pkg/remote"
)

type commandLog struct {
	mu   sync.Mutex
	cmds []string
}

func (c *commandLog) runner() remote.RunnerFunc {
	return func(_ context.Context, node string, argv []string, _ string) (string, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.cmds = append(c.cmds, node+": "+strings.Join(argv, " "))
		return "", nil
	}
}

func (c *commandLog) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.cmds...)
}

func TestNemesisInjectsAndHeals(t *testing.T) {
	cmds := &commandLog{}

	n := New(Config{
		Nodes:    []string{"n1", "n2", "n3"},
		StartCmd: "systemctl start etcd",
		Interval: time.Millisecond,
		Hold:     time.Millisecond,
		Seed:     42,
	}, cmds.runner())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	n.Run(ctx)

	assert.Equal(t, "idle", n.State())

	all := cmds.all()
	require.NotEmpty(t, all, "no faults were injected")

	kills, restarts, drops, heals := 0, 0, 0, 0
	for _, cmd := range all {
		switch {
		case strings.Contains(cmd, "pkill"):
			kills++
		case strings.Contains(cmd, "systemctl start etcd"):
			restarts++
		case strings.Contains(cmd, "-j DROP"):
			drops++
		case strings.Contains(cmd, "iptables -F"):
			heals++
		}
	}
	// Every kill gets a restart and every partition gets healed.
	assert.Equal(t, kills, restarts)
	assert.Equal(t, heals > 0, drops > 0)
}

func TestNemesisToleratesFaultFailures(t *testing.T) {
	runner := remote.RunnerFunc(func(_ context.Context, node string, argv []string, _ string) (string, error) {
		return "", &remote.CmdError{Node: node, Argv: argv, ExitCode: 1, Stderr: "no process found"}
	})

	n := New(Config{
		Nodes:    []string{"n1"},
		Interval: time.Millisecond,
		Hold:     time.Millisecond,
	}, runner)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Must return cleanly despite every fault command failing.
	n.Run(ctx)
	assert.Equal(t, "idle", n.State())
}
