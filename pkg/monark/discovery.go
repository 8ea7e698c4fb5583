// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package monark

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Bikes talk 4800 8N1.
const (
	bikeBaudRate = 4800

	// probeReadTimeout bounds each Read during discovery; probeAnswerWait
	// bounds the whole id reply.
	probeReadTimeout = 100 * time.Millisecond
	probeAnswerWait  = time.Second
)

// ErrNoBikeFound is returned when no scanned port answers like a bike.
var ErrNoBikeFound = errors.New("no monark bike found on any serial port")

// ListPorts enumerates candidate serial port names. Overridable for tests.
var ListPorts = serial.GetPortsList

// OpenPort opens one port with the bike's line settings. Overridable for
// tests.
var OpenPort = func(name string) (Port, error) {
	mode := &serial.Mode{
		BaudRate: bikeBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", name, err)
	}
	if err := port.SetReadTimeout(probeReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %v", name, err)
	}
	return port, nil
}

// FindPort scans the system's serial ports for one that identifies as a
// Monark bike and returns it open. Ports that don't answer, or answer with
// an unrecognized model, are closed and skipped.
func FindPort() (Port, error) {
	names, err := ListPorts()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}

	for _, name := range names {
		// The Raspberry Pi console UART answers anything; never probe it.
		if name == "/dev/ttyAMA0" {
			continue
		}

		log.Printf("monark: probing %s", name)
		port, err := OpenPort(name)
		if err != nil {
			continue
		}

		if probePort(port) {
			log.Printf("monark: found bike at %s", name)
			return port, nil
		}
		port.Close()
	}

	return nil, ErrNoBikeFound
}

// probePort checks whether the port answers the id command like a bike.
// A bare carriage return first flushes any half-entered command.
func probePort(port Port) bool {
	if _, err := io.WriteString(port, "\r"); err != nil {
		return false
	}
	drainPort(port)

	if _, err := io.WriteString(port, cmdID); err != nil {
		return false
	}

	id, err := readProbeAnswer(port)
	if err != nil {
		return false
	}

	lower := strings.ToLower(id)
	return strings.Contains(lower, "lt") ||
		strings.Contains(lower, "lc") ||
		strings.Contains(lower, "novo")
}

func drainPort(port Port) {
	var buf [64]byte
	for {
		n, err := port.Read(buf[:])
		if n == 0 || err != nil {
			return
		}
	}
}

func readProbeAnswer(port Port) (string, error) {
	deadline := time.Now().Add(probeAnswerWait)
	var answer []byte
	var buf [1]byte
	for time.Now().Before(deadline) {
		n, err := port.Read(buf[:])
		if err != nil {
			return "", err
		}
		if n == 0 {
			continue
		}
		if buf[0] == '\r' {
			return string(answer), nil
		}
		answer = append(answer, buf[0])
	}
	return "", errors.New("probe timeout")
}
