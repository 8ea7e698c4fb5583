// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

// Package monark talks to Monark exercise bikes over their ASCII serial
// protocol: carriage-return-terminated commands at 4800 baud, one short
// reply per command. It polls the bike for power, pulse, and cadence, and
// writes load targets to models that accept electronic control.
package monark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Port is an open serial link to the bike. Read is expected to be bounded:
// implementations apply their own timeout and return (0, nil) when no byte
// arrived in time.
type Port interface {
	io.Reader
	io.Writer
	io.Closer
}

// Bike commands. Every command is terminated by a carriage return and
// answered by a single carriage-return-terminated line.
const (
	cmdID      = "id\r"
	cmdServo   = "servo\r"
	cmdPower   = "power\r"
	cmdPulse   = "pulse\r"
	cmdCadence = "pedal\r"
)

// Polling and reconnect timing.
const (
	defaultPollInterval = time.Second
	defaultAnswerWait   = 500 * time.Millisecond
	defaultRetryDelay   = 2 * time.Second

	// initialLoad is written once after identifying a controllable bike.
	initialLoad = 100
)

// Reading is one polled snapshot of the bike's telemetry.
type Reading struct {
	Power   uint16 // watts
	Pulse   uint8  // bpm
	Cadence uint8  // rpm
	Time    time.Time
}

// Connection polls one Monark bike. Open the port (or let Run discover it),
// then call Run from a single goroutine; SetLoad and Latest are safe from
// any goroutine.
type Connection struct {
	// PollInterval is the delay between polling rounds. AnswerWait bounds
	// how long one reply may take. RetryDelay is the pause before a
	// reconnect attempt.
	PollInterval time.Duration
	AnswerWait   time.Duration
	RetryDelay   time.Duration

	// OnReading, when set, is called after every completed polling round.
	OnReading func(Reading)

	// Find locates and opens the bike's port when none is attached.
	// Defaults to scanning the system's serial ports.
	Find func() (Port, error)

	port  Port
	id    string
	servo string

	// canControlPower is set during identification; only "lc" models and
	// "novo" models with a non-manual servo accept load commands.
	canControlPower bool

	mu          sync.Mutex
	load        int
	loadToWrite int
	latest      Reading
}

// NewConnection creates a connection that will poll the given port. A nil
// port makes Run discover one via Find.
func NewConnection(port Port) *Connection {
	return &Connection{
		PollInterval: defaultPollInterval,
		AnswerWait:   defaultAnswerWait,
		RetryDelay:   defaultRetryDelay,
		Find:         FindPort,
		port:         port,
	}
}

// ID returns the bike's identification string, empty before Identify.
func (c *Connection) ID() string {
	return c.id
}

// CanControlPower reports whether the identified model accepts load
// commands.
func (c *Connection) CanControlPower() bool {
	return c.canControlPower
}

// SetLoad stages a load target in watts; the polling loop writes it during
// the next round if the bike accepts load control.
func (c *Connection) SetLoad(watts int) {
	c.mu.Lock()
	c.loadToWrite = watts
	c.mu.Unlock()
}

// Latest returns the most recent completed reading.
func (c *Connection) Latest() Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// command drains stale reply bytes, sends one command, and returns the
// reply line with the trailing carriage return stripped.
func (c *Connection) command(cmd string) (string, error) {
	c.drain()

	if _, err := io.WriteString(c.port, cmd); err != nil {
		return "", fmt.Errorf("write %q: %w", strings.TrimSuffix(cmd, "\r"), err)
	}
	return c.readAnswer()
}

// drain discards whatever is sitting in the receive buffer. Replies to
// commands we gave up waiting on would otherwise desynchronize the
// command/reply pairing.
func (c *Connection) drain() {
	var buf [64]byte
	for {
		n, err := c.port.Read(buf[:])
		if n == 0 || err != nil {
			return
		}
	}
}

// readAnswer reads until the terminating carriage return or the answer
// deadline passes.
func (c *Connection) readAnswer() (string, error) {
	deadline := time.Now().Add(c.AnswerWait)
	var answer []byte
	var buf [1]byte
	for time.Now().Before(deadline) {
		n, err := c.port.Read(buf[:])
		if err != nil {
			return "", fmt.Errorf("read answer: %w", err)
		}
		if n == 0 {
			continue
		}
		if buf[0] == '\r' {
			return string(answer), nil
		}
		answer = append(answer, buf[0])
	}
	return "", errors.New("answer timeout")
}

// Identify asks the bike for its model string and decides whether it
// accepts load control. Controllable bikes get an initial load so the brake
// is in a defined state.
func (c *Connection) Identify() error {
	id, err := c.command(cmdID)
	if err != nil {
		return fmt.Errorf("identify: %w", err)
	}
	c.id = id

	if strings.HasPrefix(strings.ToLower(c.id), "novo") {
		servo, err := c.command(cmdServo)
		if err != nil {
			return fmt.Errorf("identify servo: %w", err)
		}
		c.servo = servo
	}

	log.Printf("monark: connected to bike %q (servo %q)", c.id, c.servo)

	lower := strings.ToLower(c.id)
	if strings.HasPrefix(lower, "lc") ||
		(strings.HasPrefix(lower, "novo") && c.servo != "manual") {
		c.canControlPower = true
		c.SetLoad(initialLoad)
	}
	return nil
}

// RequestPower polls the bike's current power output in watts.
func (c *Connection) RequestPower() (uint16, error) {
	answer, err := c.command(cmdPower)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		return 0, fmt.Errorf("parse power %q: %w", answer, err)
	}
	return uint16(v), nil
}

// RequestPulse polls the bike's heart-rate reading in bpm.
func (c *Connection) RequestPulse() (uint8, error) {
	answer, err := c.command(cmdPulse)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		return 0, fmt.Errorf("parse pulse %q: %w", answer, err)
	}
	return uint8(v), nil
}

// RequestCadence polls the bike's pedal cadence in rpm.
func (c *Connection) RequestCadence() (uint8, error) {
	answer, err := c.command(cmdCadence)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		return 0, fmt.Errorf("parse cadence %q: %w", answer, err)
	}
	return uint8(v), nil
}

// pollOnce runs one full polling round: the three telemetry requests plus
// a pending load write.
func (c *Connection) pollOnce() error {
	power, err := c.RequestPower()
	if err != nil {
		return err
	}
	pulse, err := c.RequestPulse()
	if err != nil {
		return err
	}
	cadence, err := c.RequestCadence()
	if err != nil {
		return err
	}

	reading := Reading{Power: power, Pulse: pulse, Cadence: cadence, Time: time.Now()}

	c.mu.Lock()
	c.latest = reading
	pending := c.loadToWrite != c.load && c.canControlPower
	target := c.loadToWrite
	c.mu.Unlock()

	if pending {
		if err := c.writeLoad(target); err != nil {
			return err
		}
		c.mu.Lock()
		c.load = target
		c.mu.Unlock()
	}

	if c.OnReading != nil {
		c.OnReading(reading)
	}
	return nil
}

func (c *Connection) writeLoad(watts int) error {
	cmd := fmt.Sprintf("power %d\r", watts)
	if _, err := io.WriteString(c.port, cmd); err != nil {
		return fmt.Errorf("write load: %w", err)
	}
	// The bike echoes an acknowledgement line we don't need.
	c.drain()
	return nil
}

// Run polls the bike until the context is cancelled. A missing port is
// discovered via Find; any polling failure drops the connection and
// triggers rediscovery after RetryDelay.
func (c *Connection) Run(ctx context.Context) error {
	defer c.closePort()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if c.port == nil {
			port, err := c.Find()
			if err != nil {
				log.Printf("monark: discovery failed: %v", err)
				if serr := sleepCtx(ctx, c.RetryDelay); serr != nil {
					return serr
				}
				continue
			}
			c.port = port
			if err := c.Identify(); err != nil {
				log.Printf("monark: %v", err)
				c.closePort()
				if serr := sleepCtx(ctx, c.RetryDelay); serr != nil {
					return serr
				}
				continue
			}
		}

		if err := c.pollOnce(); err != nil {
			log.Printf("monark: poll failed, reconnecting: %v", err)
			c.closePort()
			if serr := sleepCtx(ctx, c.RetryDelay); serr != nil {
				return serr
			}
			continue
		}

		if serr := sleepCtx(ctx, c.PollInterval); serr != nil {
			return serr
		}
	}
}

func (c *Connection) closePort() {
	if c.port != nil {
		c.port.Close()
		c.port = nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
