// Copyright 2023 Kubernetes Security Workshop Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"os"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// Config carries the optional overrides for a bootstrap run. The zero value
// is valid; withDefaults fills in the standard paths.
type Config struct {
	// BinDir is where single-binary tools are installed
	BinDir string `json:"binDir,omitempty"`
	// DownloadDir holds archives and binaries while installers work on them
	DownloadDir string `json:"downloadDir,omitempty"`
	// KubectlVersion pins kubectl instead of resolving the stable marker
	KubectlVersion string `json:"kubectlVersion,omitempty"`
	// Skip lists tools to leave out of the run
	Skip []string `json:"skip,omitempty"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}
	cfg := &Config{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %q", path)
	}
	return cfg, nil
}

func (c *Config) withDefaults() *Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.BinDir == "" {
		out.BinDir = "/usr/local/bin"
	}
	if out.DownloadDir == "" {
		out.DownloadDir = os.TempDir()
	}
	return &out
}
