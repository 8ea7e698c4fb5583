// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo
//
// Antbridge - ANT radio bridge for exercise equipment

package main

import (
	"os"

	"github.com/openvelo/antbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
