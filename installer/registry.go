// Copyright 2023 Kubernetes Security Workshop Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"fmt"
	"sort"
)

type toolInstallerMap map[Tool]ToolInstaller

// Registry associates a Tool with the installer that knows how to put it on
// the host. Dispatch goes through this closed mapping rather than any
// name-derived lookup.
type registry struct {
	toolInstallerMap
}

func NewRegistry() registry {
	return registry{make(toolInstallerMap)}
}

// Add registers an installer for a tool. Add is expected to be called with
// literals only; a second registration for the same tool is clearly a typo
// and bug, so make it obvious.
func (r *registry) Add(tool Tool, ti ToolInstaller) {
	if _, alreadyExist := r.toolInstallerMap[tool]; alreadyExist {
		panic(fmt.Sprintf("installer for %v already exists", tool))
	}
	r.toolInstallerMap[tool] = ti
}

// ListTools returns the registered tools in lexical order.
func (r *registry) ListTools() []Tool {
	result := make([]Tool, 0, len(r.toolInstallerMap))
	for tool := range r.toolInstallerMap {
		result = append(result, tool)
	}
	sort.Slice(result, func(a, b int) bool { return result[a] < result[b] })
	return result
}

// GetInstaller returns the installer for a tool, or nil if none registered.
func (r *registry) GetInstaller(tool Tool) ToolInstaller {
	return r.toolInstallerMap[tool]
}

// defaultRegistry wires up the five workshop tools.
func defaultRegistry(cfg *Config) registry {
	reg := NewRegistry()
	reg.Add(ToolAwsCli, &awsCliInstaller{cfg: cfg})
	reg.Add(ToolEksctl, &eksctlInstaller{cfg: cfg})
	reg.Add(ToolKubectl, &kubectlInstaller{cfg: cfg})
	reg.Add(ToolTerraform, &terraformInstaller{})
	reg.Add(ToolJq, &jqInstaller{})
	return reg
}
