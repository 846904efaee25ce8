// Copyright 2023 Kubernetes Security Workshop Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2/klogr"
	utilsexec "k8s.io/utils/exec"
)

var (
	detectFlag    = pflag.Bool("detect", false, "Detect and print the host environment, then exit")
	listToolsFlag = pflag.Bool("list-tools", false, "List the managed tools and their install strategies, then exit")
	dryRunFlag    = pflag.Bool("dry-run", false, "Print the commands that would run without executing them")
	skipFlag      = pflag.StringSlice("skip", nil, "Tool to leave out of the run, repeatable, e.g. --skip terraform")
	configFlag    = pflag.String("config", "", "Path to an optional YAML config with overrides")
)

// sourcedEnv is exported by bootstrap.sh when it is sourced. Without it the
// tools we install would not be visible in the caller's shell, so the run
// refuses to start.
const sourcedEnv = "WORKSHOP_BOOTSTRAP_SOURCED"

// Main is the CLI entry point; it returns the process exit code.
func Main() int {
	pflag.Parse()
	logger := klogr.New()

	cfg := &Config{}
	if *configFlag != "" {
		c, err := LoadConfig(*configFlag)
		if err != nil {
			logger.Error(err, "Unable to load config")
			return 1
		}
		cfg = c
	}

	if *detectFlag {
		return detectEnvironment(logger)
	}
	if *listToolsFlag {
		listTools()
		return 0
	}

	if err := requireSourced(*dryRunFlag); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	i, err := New(cfg, logger)
	if err != nil {
		logger.Error(err, "Host environment is not supported")
		return 1
	}
	for _, s := range *skipFlag {
		if err := i.SkipTool(Tool(s)); err != nil {
			logger.Error(err, "Unknown tool in --skip")
			return 1
		}
	}

	if *dryRunFlag {
		out, err := i.Preview()
		if err != nil {
			logger.Error(err, "Unable to preview install steps")
			return 1
		}
		fmt.Print(out)
		return 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchSignals(cancel, logger)

	if err := i.Run(ctx); err != nil {
		logger.Error(err, "Bootstrap did not complete")
		return 1
	}
	logger.Info("All workshop tools are installed")
	return 0
}

// requireSourced refuses a mutating run that was not launched through
// bootstrap.sh, since the tools it installs would not resolve in the
// caller's shell. Dry runs mutate nothing and stay usable without it.
func requireSourced(dryRun bool) error {
	if dryRun || os.Getenv(sourcedEnv) != "" {
		return nil
	}
	return ErrNotSourced
}

// watchSignals cancels the run context on the first termination signal. The
// step in flight is left alone; the sequencer exits at its next checkpoint.
func watchSignals(cancel context.CancelFunc, logger logr.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		s := <-ch
		logger.Info("Signal received, finishing the current step before exiting", "signal", s.String())
		cancel()
	}()
}

func detectEnvironment(logger logr.Logger) int {
	osd := &osDetector{execr: utilsexec.New()}
	env, err := osd.Detect()
	if err != nil {
		logger.Error(err, "Error detecting environment")
		return 1
	}
	fmt.Printf("Detected %s on %s\n", env.OSID, env.Arch)
	return 0
}

// listTools renders the registered tools; driving the listing through the
// registry keeps it from drifting from what is actually installed.
func listTools() {
	w := new(tabwriter.Writer)
	// minwidth, tabwidth, padding, padchar, flags
	w.Init(os.Stdout, 8, 8, 0, '\t', 0)
	defer w.Flush()

	reg := defaultRegistry((&Config{}).withDefaults())
	fmt.Fprintf(w, "%s\t%s\n", "Tool", "Install strategy")
	fmt.Fprintf(w, "%s\t%s\n", "----", "----------------")
	for _, tool := range reg.ListTools() {
		fmt.Fprintf(w, "%s\t%s\n", tool, reg.GetInstaller(tool).Strategy())
	}
}
