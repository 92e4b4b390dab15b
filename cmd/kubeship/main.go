// Package main is the entry point for the kubeship CLI.
//
// kubeship deploys a containerized service to a single Kubernetes cluster:
// it builds the service image, resolves how the image will be made visible
// to the cluster, reconciles the cluster resources in dependency order, and
// waits for the workload to report ready, writing an audit log throughout.
//
// Commands: deploy, destroy, status, version.
//
// For detailed usage information, run:
//
//	kubeship --help
package main

import (
	"fmt"
	"os"

	"github.com/kubeship/kubeship/cmd/kubeship/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
