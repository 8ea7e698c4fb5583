// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/openvelo/antbridge/pkg/ant"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor the frame stream with error statistics",
	Long: `Track decode rejections, routing drops, and channel activity with statistics.

This command classifies every byte the radio sends:
  - Checksum failures and framing violations (bad declared lengths)
  - Suppressed TRANSFER_TX_FAILED notifications
  - Out-of-range channel indices (hardware fault indicator)
  - Per-channel frame counts and rates

By default, only rejections are displayed. Use --show-all to display valid
frames too. Rejections before the first valid frame are sync noise from
joining mid-stream and are counted separately.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just rejections)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	if useTUI {
		return runTUIMode(conn, connInfo)
	}
	return runTextMode(conn, connInfo)
}

// printDecodeError prints a decode rejection in highlighted format
func printDecodeError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n\n", timestamp, err)
}

// runTUIMode runs the monitor as a terminal UI
func runTUIMode(conn Connection, connInfo string) error {
	decoder := ant.NewDecoder()
	synchronized := false
	invalidBytesBeforeSync := 0

	// Create TUI program; the model owns the statistics and dispatcher
	m := initialModel(connInfo, channelCount, showAll)
	p := tea.NewProgram(m)

	// Reader goroutine
	go func() {
		buf := make([]byte, 128)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				if err == ErrConnectionClosed {
					p.Send(connectionLostMsg{})
					return
				}
				log.Printf("Read error: %v", err)
				continue
			}

			// Process bytes
			for i := 0; i < n; i++ {
				frame, decodeErr := decoder.DecodeByte(buf[i])

				if decodeErr != nil {
					if synchronized {
						// We're synced, this is a real rejection
						p.Send(frameMsg{decodeErr: decodeErr})
					} else {
						// Not synced yet, just count invalid bytes
						invalidBytesBeforeSync++
					}
				} else if frame != nil {
					if !synchronized {
						// First frame! We're now synchronized
						synchronized = true
						p.Send(syncMsg{invalidBytes: invalidBytesBeforeSync})
					}

					p.Send(frameMsg{frame: frame})
				}
			}
		}
	}()

	// Run TUI
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}

	return nil
}

// runTextMode runs the monitor as a plain text stream
func runTextMode(conn Connection, connInfo string) error {
	fmt.Printf("Antbridge - Monitor Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Rejections only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := ant.NewDecoder()
	stats := ant.NewStatistics(channelCount)
	dispatcher := ant.NewDispatcher(channelCount, stats)
	buf := make([]byte, 128)

	// Sync tracking - ignore decode rejections until the first valid frame
	synchronized := false
	invalidBytesBeforeSync := 0

	// Statistics ticker
	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	// Channel for non-blocking reads
	serialBuf := make(chan []byte, 10)
	go func() {
		for {
			n, err := conn.Read(buf)
			if err != nil {
				if err == ErrConnectionClosed {
					close(serialBuf)
					return
				}
				log.Printf("Read error: %v", err)
				continue
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			serialBuf <- data
		}
	}()

	for {
		select {
		case data, ok := <-serialBuf:
			if !ok {
				log.Printf("Connection closed")
				return nil
			}

			// Process bytes
			for _, b := range data {
				frame, decodeErr := decoder.DecodeByte(b)
				if frame == nil && decodeErr == nil {
					continue
				}

				if decodeErr != nil {
					if synchronized {
						// We're synced, this is a real rejection
						stats.Update(nil, decodeErr)
						printDecodeError(decodeErr)
					} else {
						// Not synced yet, just count invalid bytes
						invalidBytesBeforeSync++
					}
					continue
				}

				if !synchronized {
					// First frame! We're now synchronized
					synchronized = true
					if invalidBytesBeforeSync > 0 {
						fmt.Printf("[SYNC] Synchronized after skipping %d invalid bytes\n\n", invalidBytesBeforeSync)
					} else {
						fmt.Printf("[SYNC] Synchronized\n\n")
					}
				}

				stats.Update(frame, nil)
				dispatcher.Dispatch(frame)

				if showAll {
					fmt.Print(ant.FormatFrame(frame))
				}
			}

		case <-statsTicker.C:
			// Print statistics
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}
