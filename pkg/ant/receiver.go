// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package ant

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Transport is the byte-level link to the radio stick. Read is expected to
// be bounded: implementations apply their own timeout and return (0, nil)
// when no byte arrived in time. The Receiver never closes the Transport;
// the caller that opened it does.
type Transport interface {
	io.Reader
	io.Writer
}

// DeviceHandler is the boundary toward the domain layer. It receives routed
// channel events from the receiver goroutine and may itself be called from
// unrelated goroutines through the target setters, so implementations must
// tolerate concurrent access.
type DeviceHandler interface {
	// ConfigureChannel performs the one-time channel setup (assign, id,
	// period, frequency, open) during receiver startup.
	ConfigureChannel() error
	// OnChannelEvent delivers a routed channel-event frame.
	OnChannelEvent(f *Frame)
	// OnAckData delivers a routed acknowledged-data frame.
	OnAckData(f *Frame)
	// SetTargetPower and SetTargetCadence carry inbound commands toward
	// the equipment. This layer forwards them without interpretation.
	SetTargetPower(watts uint16)
	SetTargetCadence(rpm uint8)
}

// Setup-phase and poll-loop timing defaults.
const (
	defaultSettleDelay = 100 * time.Millisecond
	defaultIdleDelay   = 5 * time.Millisecond

	setupWriteAttempts = 3
	setupWriteBackoff  = 250 * time.Millisecond
)

// Receiver owns the Transport, Decoder, Dispatcher, and Router for one
// radio stick. All of that state is touched only by the goroutine running
// Run; the handler boundary is the sole crossing point.
type Receiver struct {
	// NetworkKey and Network are written to the stick once during setup.
	NetworkKey [8]byte
	Network    uint8

	// SettleDelay is the pause after the network-key write; IdleDelay is
	// the pause after an empty read before polling again.
	SettleDelay time.Duration
	IdleDelay   time.Duration

	transport  Transport
	decoder    *Decoder
	dispatcher *Dispatcher
	stats      *Statistics

	mu      sync.RWMutex
	handler DeviceHandler
}

// NewReceiver creates a receiver for an already-open transport. The handler
// may be nil; target setters become no-ops and routed events are counted
// but not delivered until SetHandler attaches one.
func NewReceiver(transport Transport, channelCount int) *Receiver {
	stats := NewStatistics(channelCount)
	return &Receiver{
		NetworkKey:  DefaultNetworkKey,
		SettleDelay: defaultSettleDelay,
		IdleDelay:   defaultIdleDelay,
		transport:   transport,
		decoder:     NewDecoder(),
		dispatcher:  NewDispatcher(channelCount, stats),
		stats:       stats,
	}
}

// SetHandler attaches the device handler. Safe to call before Run or from
// another goroutine.
func (r *Receiver) SetHandler(h DeviceHandler) {
	r.mu.Lock()
	r.handler = h
	r.mu.Unlock()
}

func (r *Receiver) getHandler() DeviceHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handler
}

// Stats returns the receiver's statistics tracker.
func (r *Receiver) Stats() *Statistics {
	return r.stats
}

// SetTargetPower forwards a target power toward the equipment if a handler
// is attached; no-op otherwise.
func (r *Receiver) SetTargetPower(watts uint16) {
	if h := r.getHandler(); h != nil {
		h.SetTargetPower(watts)
	}
}

// SetTargetCadence forwards a target cadence toward the equipment if a
// handler is attached; no-op otherwise.
func (r *Receiver) SetTargetCadence(rpm uint8) {
	if h := r.getHandler(); h != nil {
		h.SetTargetCadence(rpm)
	}
}

// Run performs the one-time setup (network key, settle, channel
// configuration) and then polls the transport byte-by-byte until the
// context is cancelled. Setup failures are returned; decode rejections and
// routing drops are recovered locally and only visible in Stats.
func (r *Receiver) Run(ctx context.Context) error {
	if err := r.setup(ctx); err != nil {
		return err
	}
	return r.poll(ctx)
}

func (r *Receiver) setup(ctx context.Context) error {
	key := NewSetNetworkKey(r.Network, r.NetworkKey)
	if err := r.writeWithRetry(ctx, key); err != nil {
		return fmt.Errorf("set network key: %w", err)
	}

	if err := sleepCtx(ctx, r.SettleDelay); err != nil {
		return err
	}

	if h := r.getHandler(); h != nil {
		if err := h.ConfigureChannel(); err != nil {
			return fmt.Errorf("configure channel: %w", err)
		}
	}
	return nil
}

// writeWithRetry writes a setup command with a bounded retry. A stick that
// is still enumerating can swallow the first write.
func (r *Receiver) writeWithRetry(ctx context.Context, msg []byte) error {
	var err error
	for attempt := 0; attempt < setupWriteAttempts; attempt++ {
		if attempt > 0 {
			if serr := sleepCtx(ctx, time.Duration(attempt)*setupWriteBackoff); serr != nil {
				return serr
			}
		}
		var n int
		n, err = r.transport.Write(msg)
		if err == nil && n == len(msg) {
			return nil
		}
		if err == nil {
			err = fmt.Errorf("short write: %d of %d bytes", n, len(msg))
		}
	}
	return err
}

func (r *Receiver) poll(ctx context.Context) error {
	var buf [1]byte
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := r.transport.Read(buf[:])
		if err != nil {
			// Transient transport hiccup: count it and keep polling.
			r.stats.ReadErrors++
			if serr := sleepCtx(ctx, r.IdleDelay); serr != nil {
				return serr
			}
			continue
		}
		if n == 0 {
			if serr := sleepCtx(ctx, r.IdleDelay); serr != nil {
				return serr
			}
			continue
		}

		frame, decodeErr := r.decoder.DecodeByte(buf[0])
		if frame == nil && decodeErr == nil {
			continue
		}
		r.stats.Update(frame, decodeErr)
		if frame != nil {
			r.deliver(frame)
		}
	}
}

// deliver runs one validated frame through dispatch and routing, then
// selects the handler operation by message id.
func (r *Receiver) deliver(f *Frame) {
	event := r.dispatcher.Dispatch(f)
	if event == nil {
		return
	}

	h := r.getHandler()
	if h == nil {
		return
	}

	switch f.MessageID() {
	case MsgChannelEvent:
		h.OnChannelEvent(f)
	case MsgAckData:
		h.OnAckData(f)
	default:
		// Broadcast, channel-id, and burst frames are routed and counted
		// but carry no handler operation yet.
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
