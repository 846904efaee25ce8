// Copyright 2023 Kubernetes Security Workshop Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package installer ensures the workshop's required CLI tools are present on
// the host. It probes the OS and architecture once, then walks a fixed list
// of tools, skipping the ones already on the search path and dispatching the
// rest to per-tool installers that compose shell steps from an OS-family
// package backend.
package installer
