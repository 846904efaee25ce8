// Copyright 2023 Kubernetes Security Workshop Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"fmt"

	"github.com/pkg/errors"
)

const aptSourcesDir = "/etc/apt/sources.list.d"

// RepositorySpec describes a vendor package repository. The apt backend uses
// the key and source-entry fields; the yum backend only needs RepoURL.
type RepositorySpec struct {
	Name string

	// apt
	KeyURL         string
	KeyringPath    string
	SourceEntry    string
	SourceListPath string

	// yum
	RepoURL string
}

// packageBackend abstracts an OS family's package-management primitives so
// tool installers compose steps instead of re-branching on the OS.
type packageBackend interface {
	RefreshIndex() Step
	InstallPackage(pkg string) Step
	AddRepository(repo RepositorySpec) []Step
}

// backendFor returns the package backend for the environment's OS family.
// An unknown family is an error instructing the user to install manually.
func backendFor(env Environment) (packageBackend, error) {
	switch env.Family() {
	case familyDebian:
		return &aptBackend{}, nil
	case familyRPM:
		return &yumBackend{}, nil
	}
	return nil, errors.Wrapf(ErrOsNotSupported,
		"no package backend for os %q, install the tool manually", env.OSID)
}

type aptBackend struct{}

func (aptBackend) RefreshIndex() Step {
	return Step{Desc: "refresh apt package index", Cmd: "sudo apt-get update -q"}
}

func (aptBackend) InstallPackage(pkg string) Step {
	return Step{
		Desc: fmt.Sprintf("apt install %s", pkg),
		Cmd:  fmt.Sprintf("sudo apt-get install -y %s", pkg),
	}
}

func (aptBackend) AddRepository(repo RepositorySpec) []Step {
	return []Step{
		{
			Desc: fmt.Sprintf("register %s signing key", repo.Name),
			Cmd:  fmt.Sprintf("curl -fsSL %s | sudo gpg --dearmor -o %s", repo.KeyURL, repo.KeyringPath),
		},
		{
			Desc: fmt.Sprintf("add %s apt source", repo.Name),
			Cmd:  fmt.Sprintf(`echo "%s" | sudo tee %s >/dev/null`, repo.SourceEntry, repo.SourceListPath),
		},
	}
}

type yumBackend struct{}

func (yumBackend) RefreshIndex() Step {
	return Step{Desc: "refresh yum metadata cache", Cmd: "sudo yum makecache -q"}
}

func (yumBackend) InstallPackage(pkg string) Step {
	return Step{
		Desc: fmt.Sprintf("yum install %s", pkg),
		Cmd:  fmt.Sprintf("sudo yum install -y %s", pkg),
	}
}

func (yumBackend) AddRepository(repo RepositorySpec) []Step {
	return []Step{
		{
			Desc: "install yum-utils",
			Cmd:  "sudo yum install -y yum-utils",
		},
		{
			Desc: fmt.Sprintf("register %s yum repository", repo.Name),
			Cmd:  fmt.Sprintf("sudo yum-config-manager --add-repo %s", repo.RepoURL),
		},
	}
}
