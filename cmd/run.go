// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package cmd

import (
	"fmt"
	"log"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/openvelo/antbridge/pkg/ant"
	"github.com/spf13/cobra"
)

var (
	runChannel      uint8
	runDeviceType   uint8
	runDeviceNumber uint16
	runPeriod       uint16
	runFrequency    uint8
	runTargetPower  uint16
	runTargetRPM    uint8
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full receiver against an equipment channel",
	Long: `Configure one radio channel for fitness equipment and run the receive loop.

The startup sequence loads the network key, waits for the stick to settle,
then assigns the channel, sets its id, period, and frequency, and opens it.
Routed channel events and acknowledged-data frames are logged as they
arrive; TRANSFER_TX_FAILED notifications are suppressed (the equipment
re-broadcasts every 250 ms, so retrying a failed transfer is pointless).

A device number of 0 pairs with the first matching device in range.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Uint8Var(&runChannel, "channel", 0, "Radio channel to configure")
	runCmd.Flags().Uint8Var(&runDeviceType, "device-type", 11, "Device type to pair with (11 = bike power)")
	runCmd.Flags().Uint16Var(&runDeviceNumber, "device-number", 0, "Device number (0 = wildcard pairing)")
	runCmd.Flags().Uint16Var(&runPeriod, "period", 8182, "Channel period in 1/32768 s units")
	runCmd.Flags().Uint8Var(&runFrequency, "frequency", 57, "RF frequency offset from 2400 MHz")
	runCmd.Flags().Uint16Var(&runTargetPower, "power", 0, "Initial target power in watts (0 = none)")
	runCmd.Flags().Uint8Var(&runTargetRPM, "cadence", 0, "Initial target cadence in rpm (0 = none)")
}

// equipmentHandler drives one fitness-equipment channel: it owns the channel
// configuration sequence and logs routed events. Targets are stored
// atomically; they arrive from outside the receiver goroutine.
type equipmentHandler struct {
	transport ant.Transport

	channel      uint8
	deviceType   uint8
	deviceNumber uint16
	period       uint16
	frequency    uint8

	targetPower   atomic.Uint32
	targetCadence atomic.Uint32
}

func (h *equipmentHandler) ConfigureChannel() error {
	steps := []struct {
		name string
		msg  []byte
	}{
		{"assign channel", ant.NewAssignChannel(h.channel, 0x00, 0)},
		{"set channel id", ant.NewSetChannelID(h.channel, h.deviceNumber, h.deviceType, 0)},
		{"set channel period", ant.NewSetChannelPeriod(h.channel, h.period)},
		{"set channel frequency", ant.NewSetChannelFrequency(h.channel, h.frequency)},
		{"open channel", ant.NewOpenChannel(h.channel)},
	}

	for _, step := range steps {
		if _, err := h.transport.Write(step.msg); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil
}

func (h *equipmentHandler) OnChannelEvent(f *ant.Frame) {
	fmt.Print(ant.FormatFrame(f))
}

func (h *equipmentHandler) OnAckData(f *ant.Frame) {
	fmt.Print(ant.FormatFrame(f))
}

func (h *equipmentHandler) SetTargetPower(watts uint16) {
	h.targetPower.Store(uint32(watts))
	log.Printf("target power: %d W", watts)
}

func (h *equipmentHandler) SetTargetCadence(rpm uint8) {
	h.targetCadence.Store(uint32(rpm))
	log.Printf("target cadence: %d rpm", rpm)
}

func runRun(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Antbridge - Receiver\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Channel %d: device type %d, number %d, period %d, frequency %d\n",
		runChannel, runDeviceType, runDeviceNumber, runPeriod, runFrequency)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	receiver := ant.NewReceiver(conn, channelCount)
	receiver.SetHandler(&equipmentHandler{
		transport:    conn,
		channel:      runChannel,
		deviceType:   runDeviceType,
		deviceNumber: runDeviceNumber,
		period:       runPeriod,
		frequency:    runFrequency,
	})

	if runTargetPower > 0 {
		receiver.SetTargetPower(runTargetPower)
	}
	if runTargetRPM > 0 {
		receiver.SetTargetCadence(runTargetRPM)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = receiver.Run(ctx)

	fmt.Println()
	fmt.Print(receiver.Stats().String())

	if ctx.Err() != nil {
		// Normal shutdown via signal
		return nil
	}
	return err
}
