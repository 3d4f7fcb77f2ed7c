package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "probe",
	Short: "Linearizability probe for etcd's transaction API",
	Long: `probe drives concurrent transactions against an etcd cluster through
etcdctl, injects faults while they run, and writes an operation history
for an external consistency checker.

Failed operations are split into definite failures (provably not applied)
and unknown outcomes; the history preserves that distinction because a
checker that conflates them reports nonsense.`,
	PersistentPreRun: func(*cobra.Command, []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "probe.yaml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
