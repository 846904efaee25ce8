// Copyright 2023 Kubernetes Security Workshop Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/kubesec-workshop/bootstrap/installer"
)

func main() {
	os.Exit(installer.Main())
}
