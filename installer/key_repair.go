// Copyright 2023 Kubernetes Security Workshop Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	yarnSourcePattern = "dl.yarnpkg.com"
	yarnKeyURL        = "https://dl.yarnpkg.com/debian/pubkey.gpg"
	yarnKeyringDir    = "/etc/apt/keyrings"
	yarnKeyringPath   = yarnKeyringDir + "/yarnkey.gpg"
	yarnSourceList    = aptSourcesDir + "/yarn.list"
	yarnSourceEntry   = "deb [signed-by=" + yarnKeyringPath + "] https://dl.yarnpkg.com/debian stable main"
)

// yarnKeyRepairer fixes the expired-key yarn apt source some workshop base
// images ship with, which otherwise breaks every apt-get update. Callers
// treat a failed repair as a warning; the bootstrap never depends on it.
type yarnKeyRepairer struct {
	runner     *stepRunner
	sourcesDir string
}

// NeedsRepair reports whether any source-list entry references the yarn
// package host.
func (y *yarnKeyRepairer) NeedsRepair() (bool, error) {
	stale, err := y.staleSources()
	if err != nil {
		return false, err
	}
	return len(stale) > 0, nil
}

// Repair replaces the stale yarn source with a fresh keyring-backed entry
// and refreshes the package index.
func (y *yarnKeyRepairer) Repair() error {
	stale, err := y.staleSources()
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	steps := []Step{
		{
			Desc: "remove stale yarn apt sources",
			Cmd:  fmt.Sprintf("sudo rm -f '%s'", strings.Join(stale, "' '")),
		},
		{
			Desc: "create apt keyring directory",
			Cmd:  fmt.Sprintf("sudo mkdir -p %s", yarnKeyringDir),
		},
		{
			Desc: "fetch and dearmor yarn signing key",
			Cmd:  fmt.Sprintf("curl -fsSL %s | sudo gpg --dearmor -o %s", yarnKeyURL, yarnKeyringPath),
		},
		{
			Desc: "write fresh yarn apt source",
			Cmd:  fmt.Sprintf(`echo "%s" | sudo tee %s >/dev/null`, yarnSourceEntry, yarnSourceList),
		},
		{
			Desc: "refresh apt package index",
			Cmd:  "sudo apt-get update -q",
		},
	}
	return y.runner.Run(steps)
}

// staleSources lists the source-list files under sourcesDir that reference
// the yarn package host. A missing sourcesDir means nothing to repair.
func (y *yarnKeyRepairer) staleSources() ([]string, error) {
	entries, err := os.ReadDir(y.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading apt sources directory")
	}

	var stale []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(y.sourcesDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading apt source %q", path)
		}
		if strings.Contains(string(data), yarnSourcePattern) {
			stale = append(stale, path)
		}
	}
	return stale, nil
}
