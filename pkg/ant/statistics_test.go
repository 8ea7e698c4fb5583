// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package ant

import (
	"strings"
	"testing"
)

// decodeErrFor produces a real decoder rejection of the requested kind, so
// classification is tested against the errors the decoder actually emits.
func decodeErrFor(t *testing.T, kind string) error {
	t.Helper()
	d := NewDecoder()
	switch kind {
	case "framing":
		d.DecodeByte(SyncByte)
		_, err := d.DecodeByte(0x00)
		if err == nil {
			t.Fatal("Expected framing rejection")
		}
		return err
	case "checksum":
		wire := buildWireFrame(MsgBroadcastData, []byte{0x01})
		wire[len(wire)-1] ^= 0xFF
		_, errs := feedBytes(d, wire)
		if len(errs) != 1 {
			t.Fatal("Expected checksum rejection")
		}
		return errs[0]
	}
	t.Fatalf("Unknown kind %s", kind)
	return nil
}

func TestStatistics_Classification(t *testing.T) {
	s := NewStatistics(DefaultChannelCount)

	s.Update(NewFrame(MsgBroadcastData, []byte{0x00}), nil)
	s.Update(nil, decodeErrFor(t, "checksum"))
	s.Update(nil, decodeErrFor(t, "checksum"))
	s.Update(nil, decodeErrFor(t, "framing"))

	if s.TotalFrames != 4 {
		t.Errorf("Expected 4 total, got %d", s.TotalFrames)
	}
	if s.ValidFrames != 1 {
		t.Errorf("Expected 1 valid, got %d", s.ValidFrames)
	}
	if s.ChecksumErrors != 2 {
		t.Errorf("Expected 2 checksum errors, got %d", s.ChecksumErrors)
	}
	if s.FramingErrors != 1 {
		t.Errorf("Expected 1 framing error, got %d", s.FramingErrors)
	}
}

func TestStatistics_CalculateRates(t *testing.T) {
	s := NewStatistics(DefaultChannelCount)
	for i := 0; i < 100; i++ {
		s.Update(NewFrame(MsgBroadcastData, []byte{0x00}), nil)
	}
	s.CalculateRates()

	if s.FrameRate <= 0 {
		t.Error("Frame rate should be positive after updates")
	}
	if s.ErrorRate != 0 {
		t.Errorf("Error rate should be zero with no rejections, got %f", s.ErrorRate)
	}
}

func TestStatistics_String(t *testing.T) {
	s := NewStatistics(DefaultChannelCount)
	s.Update(NewFrame(MsgBroadcastData, []byte{0x00}), nil)
	s.Update(nil, decodeErrFor(t, "checksum"))
	s.ChannelEvents = 1
	s.PerChannel[0] = 1
	s.SuppressedTxFailed = 2

	out := s.String()
	for _, want := range []string{
		"Total Frames:",
		"Valid Frames:",
		"Checksum Errors:",
		"Channel Events:",
		"Channel 0:",
		"TX Failed (suppressed): 2",
		"Frame Rate:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary missing %q:\n%s", want, out)
		}
	}
}

func TestStatistics_StringOmitsZeroSections(t *testing.T) {
	s := NewStatistics(DefaultChannelCount)
	out := s.String()
	for _, unwanted := range []string{"Checksum Errors:", "Framing Errors:", "TX Failed"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("Summary should omit zero-count section %q:\n%s", unwanted, out)
		}
	}
}

func TestStatistics_Reset(t *testing.T) {
	s := NewStatistics(4)
	s.Update(NewFrame(MsgBroadcastData, []byte{0x00}), nil)
	s.PerChannel[3] = 7
	s.SuppressedTxFailed = 2

	s.Reset()

	if s.TotalFrames != 0 || s.ValidFrames != 0 || s.SuppressedTxFailed != 0 {
		t.Error("Reset should zero all counters")
	}
	if len(s.PerChannel) != 4 {
		t.Errorf("Reset should preserve channel count, got %d", len(s.PerChannel))
	}
	if s.PerChannel[3] != 0 {
		t.Error("Reset should zero per-channel counters")
	}
}
