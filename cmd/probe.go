// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package cmd

import (
	"fmt"
	"time"

	"github.com/openvelo/antbridge/pkg/ant"
	"github.com/spf13/cobra"
)

var probeTimeout int

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Reset the stick and query its identity",
	Long: `Reset the radio stick and request its version, capabilities, and serial
number.

The stick answers a reset with a startup notification once its internal
settle time passes, then each request with the corresponding control
message. Useful for checking that a stick enumerated correctly before
running the receiver.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 3, "Seconds to wait for answers")
}

func runProbe(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Antbridge - Stick Probe\n")
	fmt.Printf("Connection: %s\n\n", connInfo)

	if _, err := conn.Write(ant.NewSystemReset()); err != nil {
		return fmt.Errorf("system reset: %w", err)
	}
	// The stick needs its post-reset settle time before it answers anything.
	time.Sleep(500 * time.Millisecond)

	requests := []uint8{ant.MsgVersion, ant.MsgCapabilities, ant.MsgSerialNumber}
	for _, id := range requests {
		if _, err := conn.Write(ant.NewRequestMessage(0, id)); err != nil {
			return fmt.Errorf("request 0x%02X: %w", id, err)
		}
	}

	decoder := ant.NewDecoder()
	deadline := time.Now().Add(time.Duration(probeTimeout) * time.Second)
	answers := 0
	buf := make([]byte, 128)

	for time.Now().Before(deadline) && answers < len(requests)+1 {
		n, err := conn.Read(buf)
		if err != nil {
			if err == ErrConnectionClosed {
				break
			}
			continue
		}

		for i := 0; i < n; i++ {
			frame, decodeErr := decoder.DecodeByte(buf[i])
			if decodeErr != nil {
				// Joining mid-stream leaves sync noise; the reset flushed
				// most of it, skip the rest quietly.
				continue
			}
			if frame == nil {
				continue
			}

			switch frame.MessageID() {
			case ant.MsgNotifStartup, ant.MsgVersion, ant.MsgCapabilities, ant.MsgSerialNumber:
				fmt.Print(ant.FormatFrame(frame))
				answers++
			}
		}
	}

	if answers == 0 {
		return fmt.Errorf("no answer from stick within %d seconds", probeTimeout)
	}
	return nil
}
