// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/openvelo/antbridge/pkg/ant"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for rejections, false for informational
}

// TUI model
type model struct {
	connInfo      string
	channelCount  int
	showAll       bool
	stats         *ant.Statistics
	dispatcher    *ant.Dispatcher
	eventLog      []eventLogEntry
	maxLogEntries int
	synchronized  bool
	invalidBytes  int
	width         int
	height        int
	quitting      bool
	lost          bool
}

// Messages
type tickMsg time.Time
type frameMsg struct {
	frame     *ant.Frame
	decodeErr error
}
type syncMsg struct {
	invalidBytes int
}
type connectionLostMsg struct{}

func initialModel(connInfo string, channelCount int, showAll bool) model {
	stats := ant.NewStatistics(channelCount)
	return model{
		connInfo:      connInfo,
		channelCount:  channelCount,
		showAll:       showAll,
		stats:         stats,
		dispatcher:    ant.NewDispatcher(channelCount, stats),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		synchronized:  false,
		invalidBytes:  0,
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.addLogEntry("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		// Update statistics rates
		m.stats.CalculateRates()
		return m, tickCmd()

	case syncMsg:
		m.synchronized = true
		m.invalidBytes = msg.invalidBytes
		if msg.invalidBytes > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d invalid bytes", msg.invalidBytes), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case connectionLostMsg:
		m.lost = true
		m.addLogEntry("Connection closed", true)

	case frameMsg:
		if msg.decodeErr != nil {
			m.stats.Update(nil, msg.decodeErr)
			m.addLogEntry(fmt.Sprintf("DECODE ERROR: %v", msg.decodeErr), true)
		} else if msg.frame != nil {
			m.stats.Update(msg.frame, nil)
			event := m.dispatcher.Dispatch(msg.frame)

			name := ant.FormatMessageID(msg.frame.MessageID())
			switch {
			case event != nil && msg.frame.MessageID() == ant.MsgChannelEvent:
				payload := msg.frame.Payload()
				if len(payload) >= 3 {
					m.addLogEntry(fmt.Sprintf("ch%d %s for %s",
						event.Channel,
						ant.FormatEventCode(payload[2]),
						ant.FormatMessageID(payload[1])), false)
				}
			case event == nil && msg.frame.MessageID() == ant.MsgChannelEvent:
				// Suppressed TX failure; the counter tells the story.
			case m.showAll:
				m.addLogEntry(fmt.Sprintf("%s (valid)", name), false)
			}
		}
	}

	return m, nil
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("ANTBRIDGE - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | Press 'q' to quit, 'r' to reset",
		m.connInfo, func() string {
			if m.showAll {
				return "All frames"
			}
			return "Rejections only"
		}())))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case m.lost:
		s.WriteString(errorStyle.Render("✗ Connection lost"))
		s.WriteString("\n\n")
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
		s.WriteString("\n\n")
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.invalidBytes > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d invalid bytes)", m.invalidBytes)))
		}
		s.WriteString("\n\n")
	}

	// Statistics
	m.stats.CalculateRates()
	var validPercent, errorPercent float64
	totalErrors := m.stats.ChecksumErrors + m.stats.FramingErrors
	if m.stats.TotalFrames > 0 {
		validPercent = float64(m.stats.ValidFrames) * 100.0 / float64(m.stats.TotalFrames)
		errorPercent = float64(totalErrors) * 100.0 / float64(m.stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ValidFrames, validPercent)),
		statsLabelStyle.Render("Rejected:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", totalErrors, errorPercent)),
	))

	if m.stats.ChecksumErrors > 0 || m.stats.FramingErrors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Checksum:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.ChecksumErrors)),
			statsLabelStyle.Render("Framing:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.FramingErrors)),
		))
	}

	if m.stats.SuppressedTxFailed > 0 || m.stats.OutOfRangeDrops > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("TX Failed:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.SuppressedTxFailed)),
			statsLabelStyle.Render("Out-of-range:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.OutOfRangeDrops)),
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", m.stats.FrameRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if m.stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Channel activity
	if m.stats.ChannelEvents > 0 {
		s.WriteString(statsLabelStyle.Render("Channel Activity:"))
		s.WriteString("\n")

		var max uint64 = 1
		for _, n := range m.stats.PerChannel {
			if n > max {
				max = n
			}
		}

		activity := strings.Builder{}
		for ch, n := range m.stats.PerChannel {
			bar := int(n * 20 / max)
			activity.WriteString(fmt.Sprintf("%s %s %s\n",
				statsLabelStyle.Render(fmt.Sprintf("Ch %d:", ch)),
				statsValueStyle.Render(strings.Repeat("█", bar)+strings.Repeat("░", 20-bar)),
				headerStyle.Render(fmt.Sprintf("%d", n)),
			))
		}
		s.WriteString(boxStyle.Render(strings.TrimRight(activity.String(), "\n")))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Calculate how many log entries we can show
	logHeight := m.height - 15 // Reserve space for header and stats
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
