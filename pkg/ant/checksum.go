// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package ant

// Checksum computes the frame checksum: the XOR of the sync byte, the
// length byte, the message id, and every payload byte.
func Checksum(length uint8, messageID uint8, payload []byte) uint8 {
	ck := uint8(SyncByte) ^ length ^ messageID
	for _, b := range payload {
		ck ^= b
	}
	return ck
}
