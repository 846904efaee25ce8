// Copyright 2023 Kubernetes Security Workshop Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	utilsexec "k8s.io/utils/exec"
)

// Error string wrapper for errors returned by the installer
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrArchNotSupported error type when the machine architecture has no tool builds
	ErrArchNotSupported = Error("unsupported machine architecture")
	// ErrOsNotSupported error type when the OS is outside the supported set
	ErrOsNotSupported = Error("unsupported operating system")
	// ErrDetectOs error type when the OS could not be detected
	ErrDetectOs = Error("error detecting OS")
	// ErrInterrupted error type when a termination signal stopped the run early
	ErrInterrupted = Error("interrupted, exiting before the next step")
	// ErrToolInstall error type when one or more tool installers failed
	ErrToolInstall = Error("error installing tool")
	// ErrNoInstaller error type when a tool has no registered installer
	ErrNoInstaller = Error("no installer registered for tool")
	// ErrNotSourced error type when the run was started without the sourced wrapper
	ErrNotSourced = Error("this bootstrapper must be launched through the sourced wrapper: source ./bootstrap.sh")
)

// Tool identifies one of the workshop's managed CLI tools. The value doubles
// as the command name used for the presence check.
type Tool string

const (
	// ToolAwsCli is the AWS command line interface
	ToolAwsCli Tool = "aws"
	// ToolEksctl is the EKS cluster management CLI
	ToolEksctl Tool = "eksctl"
	// ToolKubectl is the Kubernetes CLI
	ToolKubectl Tool = "kubectl"
	// ToolTerraform is the infrastructure-as-code CLI
	ToolTerraform Tool = "terraform"
	// ToolJq is the JSON processor
	ToolJq Tool = "jq"
)

// toolOrder is the fixed installation order. Later tools assume nothing
// about earlier ones; the order only pins down where interrupt checkpoints
// fall.
var toolOrder = []Tool{ToolAwsCli, ToolEksctl, ToolKubectl, ToolTerraform, ToolJq}

// ToolInstaller resolves the shell steps that install a single tool on the
// probed environment. Strategy is the one-line summary shown by the tool
// listing; keeping it on the installer ties the listing to what is actually
// registered.
type ToolInstaller interface {
	Steps(env Environment) ([]Step, error)
	Strategy() string
}

// cleanupper is implemented by installers whose downloads must be removed
// whether or not the install itself succeeded.
type cleanupper interface {
	CleanupSteps(env Environment) []Step
}

// failureAdvisor is implemented by installers that have manual-install
// guidance worth printing when they fail.
type failureAdvisor interface {
	AdviseOnFailure() string
}

type installer struct {
	env    Environment
	reg    registry
	execr  utilsexec.Interface
	runner *stepRunner
	repair *yarnKeyRepairer
	logger logr.Logger
	skip   map[Tool]bool
}

// New probes the host environment and returns an installer for it. Probe
// failures are fatal: every downstream installer branches on the result.
func New(cfg *Config, logger logr.Logger) (*installer, error) {
	execr := utilsexec.New()
	osd := &osDetector{execr: execr}
	env, err := osd.Detect()
	if err != nil {
		return nil, err
	}
	return newUnchecked(env, cfg, execr, logger), nil
}

// newUnchecked builds an installer for a caller-supplied environment,
// bypassing detection.
func newUnchecked(env Environment, cfg *Config, execr utilsexec.Interface, logger logr.Logger) *installer {
	cfg = cfg.withDefaults()
	runner := &stepRunner{execr: execr, logger: logger}
	i := &installer{
		env:    env,
		reg:    defaultRegistry(cfg),
		execr:  execr,
		runner: runner,
		repair: &yarnKeyRepairer{runner: runner, sourcesDir: aptSourcesDir},
		logger: logger,
		skip:   make(map[Tool]bool),
	}
	for _, s := range cfg.Skip {
		if err := i.SkipTool(Tool(s)); err != nil {
			logger.Info("Ignoring unknown tool in config skip list", "tool", s)
		}
	}
	return i
}

// SkipTool excludes a tool from the run. Unknown names are rejected so a
// typo does not silently leave the intended tool in the run.
func (i *installer) SkipTool(tool Tool) error {
	if i.reg.GetInstaller(tool) == nil {
		return errors.Wrapf(ErrNoInstaller, "cannot skip unknown tool %q", tool)
	}
	i.skip[tool] = true
	return nil
}

// Run walks the tool list in order. After every unit of work (a presence
// check or a completed install) it checks the context; a cancelled context
// stops the run before the next tool rather than killing the one in flight.
// Installer failures are collected so the remaining tools still get their
// chance, and reported together at the end.
func (i *installer) Run(ctx context.Context) error {
	var failed []string
	for _, tool := range toolOrder {
		if i.skip[tool] {
			i.logger.Info("Skipping tool", "tool", tool)
			continue
		}
		if i.present(tool) {
			i.logger.Info("Tool already installed", "tool", tool)
		} else {
			i.logger.Info("Tool not found, installing", "tool", tool)
			if err := i.installTool(tool); err != nil {
				i.logger.Error(err, "Tool installation failed", "tool", tool)
				failed = append(failed, string(tool))
			}
		}
		if ctx.Err() != nil {
			i.logger.Info("Interrupt received, exiting before the next tool")
			return ErrInterrupted
		}
	}
	if len(failed) > 0 {
		return errors.Wrapf(ErrToolInstall, "failed tools: %s", strings.Join(failed, ", "))
	}
	return nil
}

func (i *installer) present(tool Tool) bool {
	_, err := i.execr.LookPath(string(tool))
	return err == nil
}

func (i *installer) installTool(tool Tool) error {
	ti := i.reg.GetInstaller(tool)
	if ti == nil {
		return errors.Wrapf(ErrNoInstaller, "tool %q", tool)
	}

	// the terraform apt flow shares the sources.list.d directory with the
	// yarn entry some workshop images ship broken; repair it first
	if tool == ToolTerraform && i.env.Family() == familyDebian {
		i.repairYarnSource()
	}

	steps, err := ti.Steps(i.env)
	if err != nil {
		return err
	}
	runErr := i.runner.Run(steps)
	if c, ok := ti.(cleanupper); ok {
		if err := i.runner.Run(c.CleanupSteps(i.env)); err != nil {
			i.logger.Error(err, "Cleanup after install failed", "tool", tool)
		}
	}
	if runErr != nil {
		if a, ok := ti.(failureAdvisor); ok {
			i.logger.Info(a.AdviseOnFailure(), "tool", tool)
		}
		return runErr
	}
	return nil
}

// repairYarnSource is strictly best-effort: every failure is logged as a
// warning and never escalated, because the installers that follow do not
// depend on the yarn source being healthy.
func (i *installer) repairYarnSource() {
	if i.repair == nil {
		return
	}
	needs, err := i.repair.NeedsRepair()
	if err != nil {
		i.logger.Error(err, "Could not inspect apt sources, skipping yarn repair")
		return
	}
	if !needs {
		return
	}
	i.logger.Info("Broken yarn apt source detected, repairing")
	if err := i.repair.Repair(); err != nil {
		i.logger.Error(err, "Yarn apt source repair failed, continuing")
	}
}

// Preview renders the commands each absent tool would run, without executing
// anything.
func (i *installer) Preview() (string, error) {
	var b strings.Builder
	for _, tool := range toolOrder {
		if i.skip[tool] {
			continue
		}
		if i.present(tool) {
			fmt.Fprintf(&b, "%s: already installed\n", tool)
			continue
		}
		ti := i.reg.GetInstaller(tool)
		if ti == nil {
			return "", errors.Wrapf(ErrNoInstaller, "tool %q", tool)
		}
		steps, err := ti.Steps(i.env)
		if err != nil {
			return "", err
		}
		if c, ok := ti.(cleanupper); ok {
			steps = append(steps, c.CleanupSteps(i.env)...)
		}
		fmt.Fprintf(&b, "%s:\n", tool)
		for _, s := range steps {
			fmt.Fprintf(&b, "  # %s\n  %s\n", s.Desc, s.Cmd)
		}
	}
	return b.String(), nil
}
