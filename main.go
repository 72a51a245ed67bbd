// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jcodagnone/gardecm/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
