// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package ant

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomWireFrame builds a valid wire frame with random id and payload.
func randomWireFrame(rng *rand.Rand) (messageID uint8, payload []byte, wire []byte) {
	messageID = uint8(rng.Intn(256))
	payload = make([]byte, rng.Intn(MaxLength)+1)
	rng.Read(payload)
	return messageID, payload, buildWireFrame(messageID, payload)
}

// ============================================================
// Decoder Fuzz Tests
// ============================================================

// TestFuzzDecoder_RandomBytes feeds random bytes to the decoder
// and verifies it doesn't crash or panic
func TestFuzzDecoder_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()

		// Generate random byte sequence of random length (1-512 bytes)
		length := rng.Intn(512) + 1
		data := make([]byte, length)
		rng.Read(data)

		for _, b := range data {
			d.DecodeByte(b)
		}
	}
}

// TestFuzzDecoder_RandomFrames generates random well-formed frames and
// verifies each one decodes to its inputs
func TestFuzzDecoder_RandomFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()
		messageID, payload, wire := randomWireFrame(rng)

		frames, errs := feedBytes(d, wire)
		if len(errs) != 0 {
			t.Fatalf("Round %d: valid frame rejected: %v", i, errs)
		}
		if len(frames) != 1 {
			t.Fatalf("Round %d: expected 1 frame, got %d", i, len(frames))
		}
		f := frames[0]
		if f.MessageID() != messageID {
			t.Errorf("Round %d: id mismatch: expected 0x%02X, got 0x%02X", i, messageID, f.MessageID())
		}
		if int(f.Length()) != len(payload) {
			t.Errorf("Round %d: length mismatch: expected %d, got %d", i, len(payload), f.Length())
		}
		for j := range payload {
			if f.Payload()[j] != payload[j] {
				t.Fatalf("Round %d: payload byte %d mismatch", i, j)
			}
		}
	}
}

// TestFuzzDecoder_CorruptedFrames corrupts one byte of a valid frame,
// verifies the corrupted frame never decodes, and verifies the decoder
// still accepts a clean frame after a flush
func TestFuzzDecoder_CorruptedFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()
		messageID, payload, wire := randomWireFrame(rng)

		// Corrupt one byte anywhere except the sync marker. XOR with a
		// non-zero value guarantees the byte actually changes.
		pos := rng.Intn(len(wire)-1) + 1
		wire[pos] ^= uint8(rng.Intn(255) + 1)

		frames, _ := feedBytes(d, wire)
		for _, f := range frames {
			// A frame may still emerge if only the id/channel region was
			// corrupted in a way the checksum byte happens to absorb; it
			// must then differ from the original somewhere.
			same := f.MessageID() == messageID && int(f.Length()) == len(payload)
			if same {
				for j := range payload {
					if f.Payload()[j] != payload[j] {
						same = false
						break
					}
				}
			}
			if same {
				t.Fatalf("Round %d: corrupted frame decoded as the original (pos %d)", i, pos)
			}
		}

		// Flush any mid-frame state with non-sync filler, then a clean
		// frame must decode.
		flush := make([]byte, MaxLength+2)
		feedBytes(d, flush)

		clean := buildWireFrame(MsgBroadcastData, []byte{0x00, 0x42})
		got, errs := feedBytes(d, clean)
		if len(errs) != 0 || len(got) != 1 {
			t.Fatalf("Round %d: decoder did not recover (frames=%d errs=%d)", i, len(got), len(errs))
		}
	}
}

// ============================================================
// Dispatcher Fuzz Tests
// ============================================================

// TestFuzzDispatcher_RandomFrames dispatches random frames and verifies
// every emitted event stays within the configured channel range
func TestFuzzDispatcher_RandomFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	channelCount := rng.Intn(DefaultChannelCount) + 1
	disp := NewDispatcher(channelCount, nil)

	for i := 0; i < rounds; i++ {
		payload := make([]byte, rng.Intn(9))
		rng.Read(payload)
		f := NewFrame(uint8(rng.Intn(256)), payload)

		event := disp.Dispatch(f)
		if event != nil && int(event.Channel) >= channelCount {
			t.Fatalf("Round %d: event for channel %d with only %d configured", i, event.Channel, channelCount)
		}
	}
}
