// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package ant

import "time"

// Frame represents one parsed, checksum-valid protocol message. A Frame is
// produced and consumed within a single dispatch cycle; nothing in this
// package queues or retains one.
type Frame struct {
	length    uint8
	messageID uint8
	payload   []byte
	checksum  uint8
	timestamp time.Time
}

// NewFrame creates a frame with the given fields and a computed checksum.
func NewFrame(messageID uint8, payload []byte) *Frame {
	return &Frame{
		length:    uint8(len(payload)),
		messageID: messageID,
		payload:   payload,
		checksum:  Checksum(uint8(len(payload)), messageID, payload),
		timestamp: time.Now(),
	}
}

// Length returns the declared payload length.
func (f *Frame) Length() uint8 {
	return f.length
}

// MessageID returns the one-byte message discriminator.
func (f *Frame) MessageID() uint8 {
	return f.messageID
}

// Payload returns the frame's payload bytes.
func (f *Frame) Payload() []byte {
	return f.payload
}

// Checksum returns the frame's trailing checksum byte.
func (f *Frame) Checksum() uint8 {
	return f.checksum
}

// Timestamp returns the frame's decode timestamp.
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// ChannelIndex returns the channel index encoded in the low 3 bits of
// payload byte 0. Only meaningful for channel-scoped messages.
func (f *Frame) ChannelIndex() uint8 {
	if len(f.payload) == 0 {
		return 0
	}
	return f.payload[offsetChannel] & channelMask
}
