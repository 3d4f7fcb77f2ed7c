package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"etcdprobe/pkg/etcdctl"
	"etcdprobe/pkg/remote"
)

var checkClusterCmd = &cobra.Command{
	Use:   "check-cluster",
	Short: "Run one trivial transaction per node to verify reachability",
	RunE:  runCheckCluster,
}

func init() {
	rootCmd.AddCommand(checkClusterCmd)
}

func runCheckCluster(*cobra.Command, []string) error {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	runner := &remote.SSHRunner{
		User:    cfg.SSH.User,
		KeyFile: cfg.SSH.KeyFile,
		Timeout: time.Duration(cfg.SSH.Timeout),
	}

	ctx := context.Background()
	failures := 0
	for _, node := range cfg.Nodes {
		client := etcdctl.Open(node, runner)
		_, err := client.Get(ctx, "probe-health")
		client.Close()

		if err != nil {
			failures++
			color.Red("%s: %v", node, err)
			continue
		}
		color.Green("%s: ok", node)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d nodes unreachable", failures, len(cfg.Nodes))
	}
	return nil
}
