// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/openvelo/antbridge/pkg/ant"
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record <file>",
	Short: "Record decoded frames to a capture file",
	Long: `Decode the radio's byte stream and append every valid frame to a capture
file for later replay.

Captures are a CBOR stream, one record per frame with its receive
timestamp. Rejected bytes are counted but not recorded; a capture only ever
contains checksum-valid frames.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Replay a capture file through the dispatcher",
	Long: `Read a capture file and run every recorded frame through dispatch and
routing, printing each frame and a final statistics summary.

Replay reproduces routing decisions offline: suppressed TX failures,
out-of-range drops, and per-channel counts come out the same as they did
live.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(replayCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("create capture file: %w", err)
	}
	defer f.Close()

	fmt.Printf("Antbridge - Recording to %s\n", args[0])
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	writer := ant.NewCaptureWriter(f)
	decoder := ant.NewDecoder()
	stats := ant.NewStatistics(channelCount)
	buf := make([]byte, 128)
	recorded := 0

	for ctx.Err() == nil {
		n, err := conn.Read(buf)
		if err != nil {
			if err == ErrConnectionClosed {
				break
			}
			log.Printf("Read error: %v", err)
			continue
		}

		for i := 0; i < n; i++ {
			frame, decodeErr := decoder.DecodeByte(buf[i])
			if frame == nil && decodeErr == nil {
				continue
			}
			stats.Update(frame, decodeErr)
			if frame == nil {
				continue
			}
			if err := writer.WriteFrame(frame); err != nil {
				return err
			}
			recorded++
		}
	}

	fmt.Printf("\nRecorded %d frames to %s\n\n", recorded, args[0])
	fmt.Print(stats.String())
	return nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open capture file: %w", err)
	}
	defer f.Close()

	fmt.Printf("Antbridge - Replaying %s\n\n", args[0])

	reader := ant.NewCaptureReader(f)
	stats := ant.NewStatistics(channelCount)
	dispatcher := ant.NewDispatcher(channelCount, stats)
	replayed := 0

	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		frame := rec.Frame()
		stats.Update(frame, nil)
		dispatcher.Dispatch(frame)
		fmt.Print(ant.FormatFrame(frame))
		replayed++
	}

	fmt.Printf("\nReplayed %d frames\n\n", replayed)
	fmt.Print(stats.String())
	return nil
}
