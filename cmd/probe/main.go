package main

import (
	"os"

	"etcdprobe/cmd/probe/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
