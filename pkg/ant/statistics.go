// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package ant

import (
	"fmt"
	"strings"
	"time"
)

// Statistics tracks frame counts, rejection causes, and routing outcomes.
// The decoder itself stays silent about rejected frames beyond its error
// return; this tracker is what makes self-healing visible to operators.
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Decode counters
	TotalFrames    uint64
	ValidFrames    uint64
	ChecksumErrors uint64
	FramingErrors  uint64
	ReadErrors     uint64

	// Routing counters
	ControlFrames      uint64
	ChannelEvents      uint64
	SuppressedTxFailed uint64
	OutOfRangeDrops    uint64
	IgnoredIDs         uint64
	PerChannel         []uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // rejections/sec
}

// NewStatistics creates a statistics tracker sized for the given channel
// count.
func NewStatistics(channelCount int) *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		PerChannel:     make([]uint64, channelCount),
	}
}

// Update records the outcome of one decode attempt: a valid frame, or a
// rejection error from the decoder.
func (s *Statistics) Update(frame *Frame, decodeErr error) {
	s.TotalFrames++

	if decodeErr != nil {
		if strings.HasPrefix(decodeErr.Error(), "checksum mismatch") {
			s.ChecksumErrors++
		} else {
			s.FramingErrors++
		}
		return
	}

	if frame != nil {
		s.ValidFrames++
	}
	s.LastUpdateTime = time.Now()
}

// CalculateRates calculates frame and rejection rates since StartTime.
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.ChecksumErrors+s.FramingErrors) / elapsed
	}
}

// String returns a formatted statistics summary.
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, checksumPercent, framingPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
		checksumPercent = float64(s.ChecksumErrors) * 100.0 / float64(s.TotalFrames)
		framingPercent = float64(s.FramingErrors) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, checksumPercent)
	}
	if s.FramingErrors > 0 {
		result += fmt.Sprintf("Framing Errors:  %8d (%.1f%%)\n", s.FramingErrors, framingPercent)
	}
	if s.ReadErrors > 0 {
		result += fmt.Sprintf("Read Errors:     %8d\n", s.ReadErrors)
	}
	if s.ControlFrames > 0 {
		result += fmt.Sprintf("Control Frames:  %8d\n", s.ControlFrames)
	}
	if s.ChannelEvents > 0 {
		result += fmt.Sprintf("Channel Events:  %8d\n", s.ChannelEvents)
		for ch, n := range s.PerChannel {
			if n > 0 {
				result += fmt.Sprintf("  Channel %d:      %7d\n", ch, n)
			}
		}
	}
	if s.SuppressedTxFailed > 0 {
		result += fmt.Sprintf("TX Failed (suppressed): %d\n", s.SuppressedTxFailed)
	}
	if s.OutOfRangeDrops > 0 {
		result += fmt.Sprintf("Out-of-range Drops:     %d\n", s.OutOfRangeDrops)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters.
func (s *Statistics) Reset() {
	now := time.Now()
	channels := len(s.PerChannel)
	*s = Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		PerChannel:     make([]uint64, channels),
	}
}
