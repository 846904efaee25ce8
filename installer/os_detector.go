// Copyright 2023 Kubernetes Security Workshop Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	utilsexec "k8s.io/utils/exec"
)

const osReleasePath = "/etc/os-release"

type osFamily string

const (
	familyDebian  osFamily = "debian"
	familyRPM     osFamily = "rpm"
	familyUnknown osFamily = ""
)

var supportedArchs = map[string]bool{
	"x86_64":  true,
	"aarch64": true,
}

// osFamilyMap pins every supported OS identifier to its package-manager
// family. Identifiers outside this map fail the probe.
var osFamilyMap = map[string]osFamily{
	"ubuntu": familyDebian,
	"centos": familyRPM,
	"rhel":   familyRPM,
	"fedora": familyRPM,
	"amzn":   familyRPM,
}

// Environment is the immutable result of the host probe. It is computed once
// and consumed read-only by every installer.
type Environment struct {
	// Arch is the machine architecture as reported by uname -m
	Arch string
	// OSID is the ID field of /etc/os-release, e.g. "ubuntu" or "amzn"
	OSID string
}

// Family returns the package-manager family the OS belongs to.
func (e Environment) Family() osFamily {
	return osFamilyMap[e.OSID]
}

// osDetector contains all the logic for probing the host environment.
type osDetector struct {
	execr  utilsexec.Interface
	cached *Environment
}

// Detect probes the machine architecture and OS identifier. The result is
// cached; repeated calls do not re-run the probe.
func (d *osDetector) Detect() (Environment, error) {
	return d.DetectWith(d.unameMachine, d.readOSRelease)
}

// DetectWith is a helper method to enable testing of Detect with mock probe
// functions.
func (d *osDetector) DetectWith(machine, osRelease func() (string, error)) (Environment, error) {
	if d.cached != nil {
		return *d.cached, nil
	}

	arch, err := machine()
	if err != nil {
		return Environment{}, errors.Wrap(err, "reading machine architecture")
	}
	arch = strings.TrimSpace(arch)
	if !supportedArchs[arch] {
		return Environment{}, errors.Wrapf(ErrArchNotSupported, "architecture %q", arch)
	}

	content, err := osRelease()
	if err != nil {
		return Environment{}, errors.Wrap(err, "reading os-release")
	}
	id := parseOSRelease(content)
	if id == "" {
		return Environment{}, errors.Wrap(ErrDetectOs, "os-release has no ID field")
	}
	if _, ok := osFamilyMap[id]; !ok {
		return Environment{}, errors.Wrapf(ErrOsNotSupported, "os %q", id)
	}

	d.cached = &Environment{Arch: arch, OSID: id}
	return *d.cached, nil
}

func (d *osDetector) unameMachine() (string, error) {
	out, err := d.execr.Command("uname", "-m").Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (d *osDetector) readOSRelease() (string, error) {
	data, err := os.ReadFile(osReleasePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// parseOSRelease extracts the value of the ID field from os-release content.
// Values may be quoted per os-release(5).
func parseOSRelease(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "ID=") {
			continue
		}
		value := strings.TrimPrefix(line, "ID=")
		value = strings.Trim(value, `"'`)
		return value
	}
	return ""
}
