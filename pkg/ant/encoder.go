// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package ant

// EncodeMessage builds a complete wire-formatted message:
// [sync, length, id, payload..., checksum].
func EncodeMessage(messageID uint8, payload []byte) []byte {
	msg := make([]byte, 0, len(payload)+4)
	msg = append(msg, SyncByte, uint8(len(payload)), messageID)
	msg = append(msg, payload...)
	msg = append(msg, Checksum(uint8(len(payload)), messageID, payload))
	return msg
}

// Command builders create wire-ready messages for the stick's configuration
// surface. Payload layouts follow the stick's serial message reference.

// NewSetNetworkKey builds the network-key configuration command:
// [length=9][set-network id][network index][8 key bytes][checksum].
func NewSetNetworkKey(network uint8, key [8]byte) []byte {
	payload := make([]byte, 0, 9)
	payload = append(payload, network)
	payload = append(payload, key[:]...)
	return EncodeMessage(MsgSetNetwork, payload)
}

// NewAssignChannel assigns a channel to a channel type on a network.
func NewAssignChannel(channel, channelType, network uint8) []byte {
	return EncodeMessage(MsgAssignChannel, []byte{channel, channelType, network})
}

// NewSetChannelID sets the channel's device number, device type, and
// transmission type. A zero device number enables wildcard pairing.
func NewSetChannelID(channel uint8, deviceNumber uint16, deviceType, txType uint8) []byte {
	return EncodeMessage(MsgChannelID, []byte{
		channel,
		byte(deviceNumber & 0xFF),
		byte(deviceNumber >> 8),
		deviceType,
		txType,
	})
}

// NewSetChannelPeriod sets the channel message period in 1/32768 s units.
func NewSetChannelPeriod(channel uint8, period uint16) []byte {
	return EncodeMessage(MsgChannelPeriod, []byte{
		channel,
		byte(period & 0xFF),
		byte(period >> 8),
	})
}

// NewSetChannelFrequency sets the channel RF frequency as an offset from
// 2400 MHz.
func NewSetChannelFrequency(channel, frequency uint8) []byte {
	return EncodeMessage(MsgChannelFrequency, []byte{channel, frequency})
}

// NewOpenChannel opens an assigned channel.
func NewOpenChannel(channel uint8) []byte {
	return EncodeMessage(MsgOpenChannel, []byte{channel})
}

// NewCloseChannel closes an open channel.
func NewCloseChannel(channel uint8) []byte {
	return EncodeMessage(MsgCloseChannel, []byte{channel})
}

// NewSystemReset resets the stick to its power-on state. The stick answers
// with a startup notification after its internal settle time.
func NewSystemReset() []byte {
	return EncodeMessage(MsgSystemReset, []byte{0})
}

// NewRequestMessage asks the stick to send the identified message, e.g.
// MsgCapabilities or MsgSerialNumber.
func NewRequestMessage(channel, requestedID uint8) []byte {
	return EncodeMessage(MsgRequestMessage, []byte{channel, requestedID})
}

// NewAcknowledgedData builds an acknowledged-data transmit for a channel.
// The stick reports the outcome later as a channel event with a
// TRANSFER_TX_COMPLETED or TRANSFER_TX_FAILED code.
func NewAcknowledgedData(channel uint8, data [8]byte) []byte {
	payload := make([]byte, 0, 9)
	payload = append(payload, channel)
	payload = append(payload, data[:]...)
	return EncodeMessage(MsgAckData, payload)
}
