// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package ant

// ChannelEvent is a validated frame resolved to a radio channel.
type ChannelEvent struct {
	Channel uint8
	Frame   *Frame
}

// Router extracts and bounds-checks the channel index of a channel-scoped
// frame. channelCount is fixed configuration tied to the stick hardware,
// never derived from frame contents.
type Router struct {
	channelCount int
	stats        *Statistics
}

// NewRouter creates a router for a stick with the given channel count.
func NewRouter(channelCount int, stats *Statistics) *Router {
	if stats == nil {
		stats = NewStatistics(channelCount)
	}
	return &Router{channelCount: channelCount, stats: stats}
}

// Route resolves a channel-scoped frame to a ChannelEvent. A channel index
// outside the configured range indicates a hardware fault; the frame is
// dropped with no recovery action beyond the statistics counter.
func (r *Router) Route(f *Frame) *ChannelEvent {
	if len(f.Payload()) == 0 {
		r.stats.OutOfRangeDrops++
		return nil
	}
	channel := f.ChannelIndex()
	if int(channel) >= r.channelCount {
		r.stats.OutOfRangeDrops++
		return nil
	}
	r.stats.ChannelEvents++
	r.stats.PerChannel[channel]++
	return &ChannelEvent{Channel: channel, Frame: f}
}

// Dispatcher decides what to do with a validated frame: discard stick-wide
// control messages, suppress failed-transfer notifications, and hand
// channel-scoped frames to the router.
type Dispatcher struct {
	router *Router
	stats  *Statistics
}

// NewDispatcher creates a dispatcher routing to channelCount channels.
// A nil stats tracker gets replaced with a private one.
func NewDispatcher(channelCount int, stats *Statistics) *Dispatcher {
	if stats == nil {
		stats = NewStatistics(channelCount)
	}
	return &Dispatcher{
		router: NewRouter(channelCount, stats),
		stats:  stats,
	}
}

// Stats returns the dispatcher's statistics tracker.
func (d *Dispatcher) Stats() *Statistics {
	return d.stats
}

// Dispatch classifies a validated frame and returns a ChannelEvent for the
// channel-scoped ones, or nil when the frame is consumed at this layer.
func (d *Dispatcher) Dispatch(f *Frame) *ChannelEvent {
	switch f.MessageID() {
	case MsgNotifStartup, MsgVersion, MsgCapabilities, MsgSerialNumber:
		// Stick-wide control messages, reserved for future use.
		d.stats.ControlFrames++
		return nil

	case MsgChannelEvent:
		if len(f.Payload()) > offsetMessageCode &&
			f.Payload()[offsetMessageCode] == EventTransferTxFailed {
			d.stats.SuppressedTxFailed++
			return nil
		}
		// TX completed and every other event code are channel-scoped.
		return d.router.Route(f)

	case MsgAckData, MsgBroadcastData, MsgChannelStatus, MsgChannelID, MsgBurstData:
		return d.router.Route(f)

	default:
		d.stats.IgnoredIDs++
		return nil
	}
}
