// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package ant

import "fmt"

// FormatMessageID returns the symbolic name of a message id.
func FormatMessageID(messageID uint8) string {
	switch messageID {
	case MsgChannelEvent:
		return "CHANNEL_EVENT"
	case MsgBroadcastData:
		return "BROADCAST_DATA"
	case MsgAckData:
		return "ACK_DATA"
	case MsgBurstData:
		return "BURST_DATA"
	case MsgChannelID:
		return "CHANNEL_ID"
	case MsgChannelStatus:
		return "CHANNEL_STATUS"

	case MsgVersion:
		return "VERSION"
	case MsgCapabilities:
		return "CAPABILITIES"
	case MsgSerialNumber:
		return "SERIAL_NUMBER"
	case MsgNotifStartup:
		return "NOTIF_STARTUP"

	case MsgUnassignChannel:
		return "UNASSIGN_CHANNEL"
	case MsgAssignChannel:
		return "ASSIGN_CHANNEL"
	case MsgChannelPeriod:
		return "CHANNEL_PERIOD"
	case MsgSearchTimeout:
		return "SEARCH_TIMEOUT"
	case MsgChannelFrequency:
		return "CHANNEL_FREQUENCY"
	case MsgSetNetwork:
		return "SET_NETWORK"
	case MsgTxPower:
		return "TX_POWER"
	case MsgSystemReset:
		return "SYSTEM_RESET"
	case MsgOpenChannel:
		return "OPEN_CHANNEL"
	case MsgCloseChannel:
		return "CLOSE_CHANNEL"
	case MsgRequestMessage:
		return "REQUEST_MESSAGE"

	default:
		return "UNKNOWN"
	}
}

// FormatEventCode returns the symbolic name of a channel event code.
func FormatEventCode(code uint8) string {
	switch code {
	case EventResponseNoError:
		return "RESPONSE_NO_ERROR"
	case EventRxSearchTimeout:
		return "RX_SEARCH_TIMEOUT"
	case EventRxFail:
		return "RX_FAIL"
	case EventTx:
		return "TX"
	case EventTransferRxFailed:
		return "TRANSFER_RX_FAILED"
	case EventTransferTxCompleted:
		return "TRANSFER_TX_COMPLETED"
	case EventTransferTxFailed:
		return "TRANSFER_TX_FAILED"
	case EventChannelClosed:
		return "CHANNEL_CLOSED"
	default:
		return "UNKNOWN"
	}
}

// FormatFrame returns a human-readable, multi-line rendering of a frame.
func FormatFrame(f *Frame) string {
	timestamp := f.Timestamp().Format("15:04:05.000")
	name := FormatMessageID(f.MessageID())

	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d\n", timestamp, name, f.MessageID(), f.Length())

	payload := f.Payload()
	switch f.MessageID() {
	case MsgChannelEvent:
		if len(payload) > offsetMessageCode {
			result += fmt.Sprintf("  Channel %d: %s (0x%02X) for %s\n",
				f.ChannelIndex(),
				FormatEventCode(payload[offsetMessageCode]),
				payload[offsetMessageCode],
				FormatMessageID(payload[offsetMessageID]))
			return result
		}

	case MsgBroadcastData, MsgAckData, MsgBurstData:
		if len(payload) > 1 {
			result += fmt.Sprintf("  Channel %d: %s\n", f.ChannelIndex(), hexDump(payload[1:]))
			return result
		}

	case MsgChannelStatus:
		if len(payload) >= 2 {
			result += fmt.Sprintf("  Channel %d: status 0x%02X\n", f.ChannelIndex(), payload[1])
			return result
		}

	case MsgChannelID:
		if len(payload) >= 5 {
			deviceNumber := uint16(payload[1]) | uint16(payload[2])<<8
			result += fmt.Sprintf("  Channel %d: device %d, type 0x%02X, tx 0x%02X\n",
				f.ChannelIndex(), deviceNumber, payload[3], payload[4])
			return result
		}

	case MsgNotifStartup:
		if len(payload) >= 1 {
			result += fmt.Sprintf("  Reason: 0x%02X\n", payload[0])
			return result
		}

	case MsgSerialNumber:
		if len(payload) >= 4 {
			serial := uint32(payload[0]) | uint32(payload[1])<<8 |
				uint32(payload[2])<<16 | uint32(payload[3])<<24
			result += fmt.Sprintf("  Serial: %d\n", serial)
			return result
		}

	case MsgVersion:
		result += fmt.Sprintf("  Version: %s\n", printableString(payload))
		return result
	}

	if len(payload) > 0 {
		result += "  Payload: " + hexDump(payload) + "\n"
	}
	return result
}

func hexDump(data []byte) string {
	result := ""
	for i, b := range data {
		if i > 0 {
			result += " "
		}
		result += fmt.Sprintf("%02X", b)
	}
	return result
}

func printableString(data []byte) string {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		if b >= 0x20 && b < 0x7F {
			out = append(out, b)
		}
	}
	return string(out)
}
