// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package ant

import (
	"fmt"
	"time"
)

// Decoder implements the frame decoder state machine. It consumes one byte
// at a time and never buffers more than the single in-flight frame; when
// framing is lost it resynchronizes on the next sync byte it sees.
type Decoder struct {
	state    DecoderState
	checksum uint8
	length   uint8
	count    int
	frame    *Frame
}

// NewDecoder creates a new protocol decoder awaiting a sync byte.
func NewDecoder() *Decoder {
	return &Decoder{state: StateWaitForSync}
}

// Reset returns the decoder to the awaiting-sync state, abandoning any
// partial frame.
func (d *Decoder) Reset() {
	d.state = StateWaitForSync
	d.checksum = 0
	d.length = 0
	d.count = 0
	d.frame = nil
}

// State returns the current decoder state.
func (d *Decoder) State() DecoderState {
	return d.state
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a completed, checksum-valid frame, or nil while a frame is
// incomplete. Returns an error when a candidate frame is rejected (bad
// declared length, checksum mismatch); the decoder has already
// resynchronized when an error is returned, so callers may keep feeding
// bytes regardless.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	switch d.state {
	case StateWaitForSync:
		if b == SyncByte {
			d.checksum = SyncByte
			d.frame = nil
			d.state = StateGetLength
		}
		return nil, nil

	case StateGetLength:
		if b == 0 || b > MaxLength {
			d.Reset()
			return nil, fmt.Errorf("invalid length: %d (max %d)", b, MaxLength)
		}
		d.length = b
		d.checksum ^= b
		d.count = 0
		d.frame = &Frame{length: b, payload: make([]byte, 0, b)}
		d.state = StateGetMessageID
		return nil, nil

	case StateGetMessageID:
		d.frame.messageID = b
		d.checksum ^= b
		d.state = StateGetData
		return nil, nil

	case StateGetData:
		d.frame.payload = append(d.frame.payload, b)
		d.checksum ^= b
		d.count++
		if d.count >= int(d.length) {
			d.state = StateValidatePacket
		}
		return nil, nil

	case StateValidatePacket:
		frame := d.frame
		ck := d.checksum
		d.Reset()
		if b != ck {
			return nil, fmt.Errorf("checksum mismatch: expected 0x%02X, got 0x%02X", ck, b)
		}
		frame.checksum = b
		frame.timestamp = time.Now()
		return frame, nil

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", d.state)
	}
}
