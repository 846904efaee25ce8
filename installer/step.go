// Copyright 2023 Kubernetes Security Workshop Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	utilsexec "k8s.io/utils/exec"
)

const defaultShell = "bash"

// Step is a single shell command with a human-readable description. Steps
// are rendered as strings so a dry run can print exactly what would execute.
type Step struct {
	Desc string
	Cmd  string
}

// stepRunner executes steps sequentially through the shell. A step that has
// started always runs to completion; cancellation is handled between steps
// by the caller, never by killing a command mid-transaction.
type stepRunner struct {
	execr  utilsexec.Interface
	logger logr.Logger
}

// Run executes the steps in order and stops at the first failure.
func (r *stepRunner) Run(steps []Step) error {
	for _, s := range steps {
		if err := r.runStep(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *stepRunner) runStep(s Step) error {
	r.logger.V(1).Info("Executing step", "step", s.Desc, "cmd", s.Cmd)

	cmd := r.execr.Command(defaultShell, "-c", s.Cmd)
	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		r.logger.V(1).Info(string(out), "step", s.Desc)
	}
	if err != nil {
		return errors.Wrapf(err, "step %q failed", s.Desc)
	}
	return nil
}
