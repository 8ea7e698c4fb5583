// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

// Package ant implements the framing and message-routing layer for an
// ANT wireless sensor radio attached over a USB serial link.
//
// The radio emits a continuous byte stream of length-framed messages:
//
//	[sync] [length] [message id] [payload ...] [checksum]
//
// where checksum is the running XOR of every preceding byte. The package
// provides the byte-by-byte Decoder state machine, the Dispatcher/Router
// pair that turns validated frames into channel events, and the Receiver
// loop that owns both against a Transport.
package ant

// Framing constants
const (
	SyncByte  = 0xA4
	MaxLength = 64 // hardware maximum payload size
)

// Message ids - channel and data messages
const (
	MsgChannelEvent  = 0x40
	MsgBroadcastData = 0x4E
	MsgAckData       = 0x4F
	MsgBurstData     = 0x50
	MsgChannelID     = 0x51
	MsgChannelStatus = 0x52
)

// Message ids - stick-wide control messages
const (
	MsgVersion      = 0x3E
	MsgCapabilities = 0x54
	MsgSerialNumber = 0x61
	MsgNotifStartup = 0x6F
)

// Message ids - configuration commands (host -> stick)
const (
	MsgUnassignChannel  = 0x41
	MsgAssignChannel    = 0x42
	MsgChannelPeriod    = 0x43
	MsgSearchTimeout    = 0x44
	MsgChannelFrequency = 0x45
	MsgSetNetwork       = 0x46
	MsgTxPower          = 0x47
	MsgSystemReset      = 0x4A
	MsgOpenChannel      = 0x4B
	MsgCloseChannel     = 0x4C
	MsgRequestMessage   = 0x4D
)

// Channel event message codes (payload byte 2 of a MsgChannelEvent frame)
const (
	EventResponseNoError     = 0x00
	EventRxSearchTimeout     = 0x01
	EventRxFail              = 0x02
	EventTx                  = 0x03
	EventTransferRxFailed    = 0x04
	EventTransferTxCompleted = 0x05
	EventTransferTxFailed    = 0x06
	EventChannelClosed       = 0x07
)

// Payload byte offsets for channel-scoped frames
const (
	offsetChannel     = 0 // channel index in the low 3 bits
	offsetMessageID   = 1 // id of the message the event responds to
	offsetMessageCode = 2 // event code, MsgChannelEvent only
)

// channelMask extracts the channel index from payload byte 0. Radio channel
// indices are single-digit on this hardware class, so 3 bits suffice.
const channelMask = 0x07

// DefaultChannelCount is the channel capacity of the common stick hardware.
const DefaultChannelCount = 8

// DefaultNetworkKey is the public ANT+ network key, loaded into network 0
// during receiver setup.
var DefaultNetworkKey = [8]byte{0xB9, 0xA5, 0x21, 0xFB, 0xBD, 0x72, 0xC3, 0x45}

// DecoderState identifies a position in the framing state machine.
type DecoderState int

// Decoder states
const (
	StateWaitForSync DecoderState = iota
	StateGetLength
	StateGetMessageID
	StateGetData
	StateValidatePacket
)

// String returns the state name for diagnostics.
func (s DecoderState) String() string {
	switch s {
	case StateWaitForSync:
		return "WAIT_FOR_SYNC"
	case StateGetLength:
		return "GET_LENGTH"
	case StateGetMessageID:
		return "GET_MESSAGE_ID"
	case StateGetData:
		return "GET_DATA"
	case StateValidatePacket:
		return "VALIDATE_PACKET"
	default:
		return "UNKNOWN"
	}
}
