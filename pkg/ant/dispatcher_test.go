// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package ant

import "testing"

// ============================================================
// Router Tests
// ============================================================

// P5: the channel index comes from the low 3 bits of payload byte 0 and is
// bounds-checked against the configured channel count.
func TestRouter_ChannelExtraction(t *testing.T) {
	// 0x0A & 0x07 == 2
	frame := NewFrame(MsgBroadcastData, []byte{0x0A, 0x11, 0x22})

	t.Run("within range", func(t *testing.T) {
		r := NewRouter(DefaultChannelCount, nil)
		event := r.Route(frame)
		if event == nil {
			t.Fatal("Expected a channel event")
		}
		if event.Channel != 2 {
			t.Errorf("Expected channel 2, got %d", event.Channel)
		}
		if event.Frame != frame {
			t.Error("Event should carry the routed frame")
		}
	})

	t.Run("out of range", func(t *testing.T) {
		stats := NewStatistics(2)
		r := NewRouter(2, stats)
		if event := r.Route(frame); event != nil {
			t.Fatalf("Channel 2 must be dropped with 2 configured channels, got event for %d", event.Channel)
		}
		if stats.OutOfRangeDrops != 1 {
			t.Errorf("Expected 1 out-of-range drop, got %d", stats.OutOfRangeDrops)
		}
	})
}

func TestRouter_EmptyPayloadDropped(t *testing.T) {
	stats := NewStatistics(DefaultChannelCount)
	r := NewRouter(DefaultChannelCount, stats)
	if event := r.Route(NewFrame(MsgBroadcastData, nil)); event != nil {
		t.Fatal("Empty payload has no channel byte and must be dropped")
	}
	if stats.OutOfRangeDrops != 1 {
		t.Errorf("Expected 1 drop, got %d", stats.OutOfRangeDrops)
	}
}

func TestRouter_PerChannelCounters(t *testing.T) {
	stats := NewStatistics(DefaultChannelCount)
	r := NewRouter(DefaultChannelCount, stats)

	r.Route(NewFrame(MsgBroadcastData, []byte{0x00}))
	r.Route(NewFrame(MsgBroadcastData, []byte{0x03}))
	r.Route(NewFrame(MsgBroadcastData, []byte{0x03}))

	if stats.ChannelEvents != 3 {
		t.Errorf("Expected 3 channel events, got %d", stats.ChannelEvents)
	}
	if stats.PerChannel[0] != 1 || stats.PerChannel[3] != 2 {
		t.Errorf("Per-channel counts wrong: %v", stats.PerChannel)
	}
}

// ============================================================
// Dispatcher Tests
// ============================================================

func TestDispatcher_ControlFramesConsumed(t *testing.T) {
	d := NewDispatcher(DefaultChannelCount, nil)

	controlIDs := []uint8{MsgNotifStartup, MsgVersion, MsgCapabilities, MsgSerialNumber}
	for _, id := range controlIDs {
		if event := d.Dispatch(NewFrame(id, []byte{0x00})); event != nil {
			t.Errorf("Control message 0x%02X must not produce a channel event", id)
		}
	}
	if d.Stats().ControlFrames != uint64(len(controlIDs)) {
		t.Errorf("Expected %d control frames, got %d", len(controlIDs), d.Stats().ControlFrames)
	}
}

// P6: a channel event carrying TRANSFER_TX_FAILED is suppressed; an
// otherwise identical frame with TRANSFER_TX_COMPLETED routes normally.
func TestDispatcher_TxFailedSuppression(t *testing.T) {
	d := NewDispatcher(DefaultChannelCount, nil)

	failed := NewFrame(MsgChannelEvent, []byte{0x01, MsgAckData, EventTransferTxFailed})
	if event := d.Dispatch(failed); event != nil {
		t.Fatal("TRANSFER_TX_FAILED event must be suppressed")
	}
	if d.Stats().SuppressedTxFailed != 1 {
		t.Errorf("Expected 1 suppressed failure, got %d", d.Stats().SuppressedTxFailed)
	}

	completed := NewFrame(MsgChannelEvent, []byte{0x01, MsgAckData, EventTransferTxCompleted})
	event := d.Dispatch(completed)
	if event == nil {
		t.Fatal("TRANSFER_TX_COMPLETED event must route")
	}
	if event.Channel != 1 {
		t.Errorf("Expected channel 1, got %d", event.Channel)
	}
}

func TestDispatcher_OtherEventCodesRoute(t *testing.T) {
	d := NewDispatcher(DefaultChannelCount, nil)

	codes := []uint8{
		EventResponseNoError,
		EventRxSearchTimeout,
		EventRxFail,
		EventTx,
		EventTransferRxFailed,
		EventChannelClosed,
	}
	for _, code := range codes {
		frame := NewFrame(MsgChannelEvent, []byte{0x02, MsgOpenChannel, code})
		if event := d.Dispatch(frame); event == nil {
			t.Errorf("Event code 0x%02X should route, got nil", code)
		}
	}
}

func TestDispatcher_ShortChannelEventRoutes(t *testing.T) {
	// An event frame too short to carry a code can't match the suppressed
	// one; it goes to the router like any channel-scoped frame.
	d := NewDispatcher(DefaultChannelCount, nil)
	if event := d.Dispatch(NewFrame(MsgChannelEvent, []byte{0x00, MsgAckData})); event == nil {
		t.Error("Short channel event should still route")
	}
}

func TestDispatcher_ChannelScopedIDs(t *testing.T) {
	d := NewDispatcher(DefaultChannelCount, nil)

	ids := []uint8{MsgAckData, MsgBroadcastData, MsgChannelStatus, MsgChannelID, MsgBurstData}
	for _, id := range ids {
		frame := NewFrame(id, []byte{0x05, 0xAA, 0xBB})
		event := d.Dispatch(frame)
		if event == nil {
			t.Errorf("Message 0x%02X should produce a channel event", id)
			continue
		}
		if event.Channel != 5 {
			t.Errorf("Message 0x%02X: expected channel 5, got %d", id, event.Channel)
		}
	}
	if d.Stats().ChannelEvents != uint64(len(ids)) {
		t.Errorf("Expected %d channel events, got %d", len(ids), d.Stats().ChannelEvents)
	}
}

func TestDispatcher_UnknownIDsIgnored(t *testing.T) {
	d := NewDispatcher(DefaultChannelCount, nil)

	for _, id := range []uint8{0x00, 0x13, 0xFF} {
		if event := d.Dispatch(NewFrame(id, []byte{0x00})); event != nil {
			t.Errorf("Unknown id 0x%02X must not produce a channel event", id)
		}
	}
	if d.Stats().IgnoredIDs != 3 {
		t.Errorf("Expected 3 ignored frames, got %d", d.Stats().IgnoredIDs)
	}
}
