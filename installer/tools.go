// Copyright 2023 Kubernetes Security Workshop Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
)

// awsCliInstaller installs the AWS CLI v2 from the vendor bundle. The bundle
// URL takes the raw uname -m architecture, so Environment.Arch is used as-is.
type awsCliInstaller struct {
	cfg *Config
}

func (a *awsCliInstaller) archivePath() string {
	return filepath.Join(a.cfg.DownloadDir, "awscliv2.zip")
}

func (a *awsCliInstaller) extractedTree() string {
	return filepath.Join(a.cfg.DownloadDir, "aws")
}

func (a *awsCliInstaller) Steps(env Environment) ([]Step, error) {
	return []Step{
		{
			Desc: "download aws cli bundle",
			Cmd: fmt.Sprintf("curl -sSL 'https://awscli.amazonaws.com/awscli-exe-linux-%s.zip' -o '%s'",
				env.Arch, a.archivePath()),
		},
		{
			Desc: "extract aws cli bundle",
			Cmd:  fmt.Sprintf("unzip -q -o '%s' -d '%s'", a.archivePath(), a.cfg.DownloadDir),
		},
		{
			Desc: "run bundled aws installer",
			Cmd:  fmt.Sprintf("sudo '%s/install'", a.extractedTree()),
		},
	}, nil
}

func (a *awsCliInstaller) Strategy() string {
	return "vendor bundle (all OS families)"
}

// CleanupSteps removes the archive and extracted tree; they go whether or
// not the install succeeded.
func (a *awsCliInstaller) CleanupSteps(env Environment) []Step {
	return []Step{
		{
			Desc: "remove aws cli download",
			Cmd:  fmt.Sprintf("rm -rf '%s' '%s'", a.extractedTree(), a.archivePath()),
		},
	}
}

// eksctlInstaller fetches the latest eksctl release for the kernel name plus
// the fixed amd64 suffix the vendor publishes.
type eksctlInstaller struct {
	cfg *Config
}

func (e *eksctlInstaller) Steps(env Environment) ([]Step, error) {
	tarball := filepath.Join(e.cfg.DownloadDir, "eksctl.tar.gz")
	return []Step{
		{
			Desc: "download latest eksctl release",
			Cmd: fmt.Sprintf(`curl -sL "https://github.com/eksctl-io/eksctl/releases/latest/download/eksctl_$(uname -s)_amd64.tar.gz" -o '%s'`,
				tarball),
		},
		{
			Desc: "extract eksctl",
			Cmd:  fmt.Sprintf("tar -xzf '%s' -C '%s'", tarball, e.cfg.DownloadDir),
		},
		{
			Desc: "remove eksctl tarball",
			Cmd:  fmt.Sprintf("rm -f '%s'", tarball),
		},
		{
			Desc: "move eksctl into place",
			Cmd:  fmt.Sprintf("sudo mv '%s' '%s'", filepath.Join(e.cfg.DownloadDir, "eksctl"), filepath.Join(e.cfg.BinDir, "eksctl")),
		},
	}, nil
}

func (e *eksctlInstaller) Strategy() string {
	return "latest GitHub release binary"
}

// kubectlArchMap maps uname -m architectures to the names the Kubernetes
// release mirror publishes binaries under.
var kubectlArchMap = map[string]string{
	"x86_64":  "amd64",
	"aarch64": "arm64",
}

// kubectlInstaller downloads the stable kubectl binary from the release
// channel, or a pinned version when the config sets one.
type kubectlInstaller struct {
	cfg *Config
}

func (k *kubectlInstaller) downloadPath() string {
	return filepath.Join(k.cfg.DownloadDir, "kubectl")
}

func (k *kubectlInstaller) Steps(env Environment) ([]Step, error) {
	arch, ok := kubectlArchMap[env.Arch]
	if !ok {
		// the global probe already rejects anything else; kept as a local
		// guard so this installer stands on its own
		return nil, errors.Wrapf(ErrArchNotSupported, "no kubectl binary for %q", env.Arch)
	}

	version := k.cfg.KubectlVersion
	if version == "" {
		// resolved by the shell at install time so a dry run shows the lookup
		version = "$(curl -L -s https://dl.k8s.io/release/stable.txt)"
	}

	return []Step{
		{
			Desc: "download kubectl",
			Cmd: fmt.Sprintf(`curl -sL -o '%s' "https://dl.k8s.io/release/%s/bin/linux/%s/kubectl"`,
				k.downloadPath(), version, arch),
		},
		{
			Desc: "install kubectl",
			Cmd: fmt.Sprintf("sudo install -o root -g root -m 0755 '%s' '%s'",
				k.downloadPath(), filepath.Join(k.cfg.BinDir, "kubectl")),
		},
	}, nil
}

func (k *kubectlInstaller) Strategy() string {
	return "release-channel binary"
}

func (k *kubectlInstaller) CleanupSteps(env Environment) []Step {
	return []Step{
		{Desc: "remove kubectl download", Cmd: fmt.Sprintf("rm -f '%s'", k.downloadPath())},
	}
}

const (
	hashicorpAptKeyURL     = "https://apt.releases.hashicorp.com/gpg"
	hashicorpAptKeyring    = "/usr/share/keyrings/hashicorp-archive-keyring.gpg"
	hashicorpAptSourceList = aptSourcesDir + "/hashicorp.list"
	hashicorpRHELRepoURL   = "https://rpm.releases.hashicorp.com/RHEL/hashicorp.repo"
	hashicorpAmznRepoURL   = "https://rpm.releases.hashicorp.com/AmazonLinux/hashicorp.repo"
)

// terraformInstaller registers the HashiCorp vendor repository for the OS
// family and installs terraform from it.
type terraformInstaller struct{}

func (t *terraformInstaller) Steps(env Environment) ([]Step, error) {
	backend, err := backendFor(env)
	if err != nil {
		return nil, err
	}

	var steps []Step
	switch env.Family() {
	case familyDebian:
		steps = append(steps, backend.AddRepository(RepositorySpec{
			Name:           "hashicorp",
			KeyURL:         hashicorpAptKeyURL,
			KeyringPath:    hashicorpAptKeyring,
			SourceEntry:    fmt.Sprintf("deb [signed-by=%s] https://apt.releases.hashicorp.com $(lsb_release -cs) main", hashicorpAptKeyring),
			SourceListPath: hashicorpAptSourceList,
		})...)
		steps = append(steps, backend.RefreshIndex())
	case familyRPM:
		repoURL := hashicorpRHELRepoURL
		if env.OSID == "amzn" {
			repoURL = hashicorpAmznRepoURL
		}
		steps = append(steps, backend.AddRepository(RepositorySpec{
			Name:    "hashicorp",
			RepoURL: repoURL,
		})...)
	}
	steps = append(steps, backend.InstallPackage("terraform"))
	return steps, nil
}

func (t *terraformInstaller) Strategy() string {
	return "HashiCorp apt/yum repository"
}

func (t *terraformInstaller) AdviseOnFailure() string {
	return "terraform could not be installed from the vendor repository; " +
		"install it manually from https://developer.hashicorp.com/terraform/downloads and re-run the bootstrap"
}

// jqInstaller installs jq from the distribution's own repositories.
type jqInstaller struct{}

func (j *jqInstaller) Steps(env Environment) ([]Step, error) {
	backend, err := backendFor(env)
	if err != nil {
		return nil, err
	}
	if env.Family() == familyDebian {
		return []Step{backend.RefreshIndex(), backend.InstallPackage("jq")}, nil
	}
	return []Step{backend.InstallPackage("jq")}, nil
}

func (j *jqInstaller) Strategy() string {
	return "distribution package"
}
