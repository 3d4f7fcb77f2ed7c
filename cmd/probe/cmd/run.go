package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"etcdprobe/pkg/history"
	"etcdprobe/pkg/nemesis"
	"etcdprobe/pkg/remote"
	"etcdprobe/pkg/status"
	"etcdprobe/pkg/workload"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a workload against the cluster and record its history",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(*cobra.Command, []string) error {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hist, err := history.NewLog(cfg.History)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"run": hist.RunID, "history": cfg.History}).Info("starting run")

	runner := &remote.SSHRunner{
		User:    cfg.SSH.User,
		KeyFile: cfg.SSH.KeyFile,
		Timeout: time.Duration(cfg.SSH.Timeout),
	}

	w := workload.NewRegister(workload.Config{
		Nodes:    cfg.Nodes,
		Workers:  cfg.Workers,
		Ops:      cfg.Ops,
		Keys:     cfg.Keys,
		MaxValue: cfg.MaxValue,
		Seed:     cfg.Seed,
	}, runner, hist)

	var nem *nemesis.Nemesis
	nemCtx, stopNemesis := context.WithCancel(ctx)
	defer stopNemesis()
	if cfg.Nemesis.Enabled {
		nem = nemesis.New(nemesis.Config{
			Nodes:    cfg.Nodes,
			StartCmd: cfg.Nemesis.StartCmd,
			Interval: time.Duration(cfg.Nemesis.Interval),
			Hold:     time.Duration(cfg.Nemesis.Hold),
			Seed:     cfg.Seed,
		}, runner)
		go nem.Run(nemCtx)
	}

	if cfg.StatusAddr != "" {
		srv := status.NewServer(cfg.StatusAddr, func() status.Snapshot {
			counts := w.Stats().Counts()
			snap := status.Snapshot{
				RunID:   hist.RunID,
				Ops:     counts.Total,
				Ok:      counts.Ok,
				Failed:  counts.Failed,
				Unknown: counts.Unknown,
				Nemesis: "disabled",
			}
			if nem != nil {
				snap.Nemesis = nem.State()
			}
			return snap
		})
		go func() {
			if err := <-srv.Start(); err != nil {
				log.Warnf("status server: %v", err)
			}
		}()
	}

	runErr := w.Run(ctx)
	stopNemesis()

	if err := hist.Close(); err != nil {
		return err
	}

	printSummary(w.Stats().Counts(), cfg.History)
	if runErr != nil {
		color.Red("run aborted: %v", runErr)
		return runErr
	}
	return nil
}

func printSummary(counts workload.Counts, historyPath string) {
	fmt.Println()
	color.White("operations: %d", counts.Total)
	color.Green("  ok:       %d", counts.Ok)
	color.Red("  failed:   %d (definitely not applied)", counts.Failed)
	color.Yellow("  unknown:  %d (may have applied)", counts.Unknown)
	fmt.Printf("\nhistory written to %s\n", historyPath)
}
