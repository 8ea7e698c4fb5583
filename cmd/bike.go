// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/openvelo/antbridge/pkg/monark"
	"github.com/spf13/cobra"
)

var (
	bikePort string
	bikeLoad int
)

var bikeCmd = &cobra.Command{
	Use:   "bike",
	Short: "Poll a Monark bike over its ASCII serial protocol",
	Long: `Connect to a Monark exercise bike and poll power, pulse, and cadence.

Without --bike-port, every serial port on the system is probed with the id
command until one answers like a bike (the console UART is skipped). Models
with electronic load control ("lc", and "novo" with a non-manual servo)
accept a load target via --load; the connection reconnects automatically
when the bike stops answering.`,
	RunE: runBike,
}

func init() {
	rootCmd.AddCommand(bikeCmd)
	bikeCmd.Flags().StringVar(&bikePort, "bike-port", "", "Bike serial port (default: scan all ports)")
	bikeCmd.Flags().IntVar(&bikeLoad, "load", 0, "Load target in watts (0 = leave unchanged)")
}

func runBike(cmd *cobra.Command, args []string) error {
	var port monark.Port
	if bikePort != "" {
		var err error
		port, err = monark.OpenPort(bikePort)
		if err != nil {
			return err
		}
	}

	conn := monark.NewConnection(port)
	conn.OnReading = func(r monark.Reading) {
		fmt.Printf("[%s] power %3d W   pulse %3d bpm   cadence %3d rpm\n",
			r.Time.Format("15:04:05"), r.Power, r.Pulse, r.Cadence)
	}

	if port != nil {
		if err := conn.Identify(); err != nil {
			port.Close()
			return err
		}
	}
	if bikeLoad > 0 {
		conn.SetLoad(bikeLoad)
	}

	fmt.Printf("Antbridge - Monark Bike\n")
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := conn.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
