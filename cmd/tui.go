// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/hapsim/pkg/emulator"
	"github.com/Thermoquad/hapsim/pkg/hapcan"
)

// Event log entry
type eventLogEntry struct {
	event emulator.Event
	text  string
}

// moduleRow is one line of the module table
type moduleRow struct {
	name    string
	address string
	serial  uint32
	gateway bool
}

// TUI model
type monitorModel struct {
	connInfo     string
	stats        *emulator.Statistics
	modules      []moduleRow
	eventLog     []eventLogEntry
	maxLogEntry  int
	showBus      bool
	log          viewport.Model
	followLog    bool
	width        int
	height       int
	quitting     bool
	lastSnapshot emulator.StatisticsSnapshot
}

// Messages
type tickMsg time.Time
type eventMsg emulator.Event

func newMonitorModel(connInfo string, stats *emulator.Statistics, modules []moduleRow) monitorModel {
	return monitorModel{
		connInfo:    connInfo,
		stats:       stats,
		modules:     modules,
		eventLog:    make([]eventLogEntry, 0),
		maxLogEntry: 500,
		showBus:     true,
		log:         viewport.New(76, 10),
		followLog:   true,
		width:       80,
		height:      24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "b":
			m.showBus = !m.showBus
			m.refreshLog()
			return m, nil
		case "r":
			m.stats.Reset()
			m.lastSnapshot = m.stats.Snapshot()
			return m, nil
		case "end", "G":
			m.followLog = true
			m.log.GotoBottom()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLog()
		m.refreshLog()
		return m, nil

	case tickMsg:
		m.lastSnapshot = m.stats.Snapshot()
		return m, tickCmd()

	case eventMsg:
		e := emulator.Event(msg)
		if e.Kind == emulator.EventAddress {
			m.moveModule(e.Source, e.Address)
		}
		m.addLogEntry(e)
		return m, nil
	}

	// Scrolling keys and mouse wheel go to the event log
	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	m.followLog = m.log.AtBottom()
	return m, cmd
}

func (m *monitorModel) addLogEntry(e emulator.Event) {
	m.eventLog = append(m.eventLog, eventLogEntry{event: e, text: formatEvent(e)})

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntry {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntry:]
	}
	m.refreshLog()
}

// moveModule updates the address column of the named module.
func (m *monitorModel) moveModule(name string, a hapcan.Address) {
	for i := range m.modules {
		if m.modules[i].name == name {
			m.modules[i].address = hapcan.FormatAddress(a)
			return
		}
	}
}

// logHeaderLines is the number of lines above the event log
const logHeaderLines = 11

func (m *monitorModel) resizeLog() {
	m.log.Width = m.width - 4
	m.log.Height = m.height - logHeaderLines - len(m.modules)
	if m.log.Height < 5 {
		m.log.Height = 5
	}
}

func (m *monitorModel) refreshLog() {
	var b strings.Builder
	for _, entry := range m.eventLog {
		if entry.event.Kind == emulator.EventBus && !m.showBus {
			continue
		}
		b.WriteString(eventStyle(entry.event.Kind).Render(entry.text))
		b.WriteString("\n")
	}
	m.log.SetContent(b.String())
	if m.followLog {
		m.log.GotoBottom()
	}
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func eventStyle(k emulator.EventKind) lipgloss.Style {
	switch k {
	case emulator.EventLinkIn:
		return statsValueStyle
	case emulator.EventLinkOut:
		return statsLabelStyle.UnsetBold()
	case emulator.EventDiagnostic:
		return errorStyle
	case emulator.EventAddress:
		return warningStyle
	}
	return headerStyle
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("HAPSIM - HAPCAN NETWORK EMULATOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Bus traffic: %s | 'b' toggle bus, 'r' reset stats, 'q' quit",
		m.connInfo, func() string {
			if m.showBus {
				return "shown"
			}
			return "hidden"
		}())))
	s.WriteString("\n\n")

	// Statistics
	snap := m.lastSnapshot
	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Link In:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.LinkFramesIn)),
		statsLabelStyle.Render("Link Out:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.LinkFramesOut)),
		statsLabelStyle.Render("Broadcasts:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.Broadcasts)),
		statsLabelStyle.Render("Responses:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.Responses)),
	))

	if errs := snap.Errors(); errs > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s (%s: %d, %s: %d, %s: %d, %s: %d, %s: %d)\n",
			statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d", errs)),
			headerStyle.Render("framing"), snap.InvalidFrames,
			headerStyle.Render("checksum"), snap.ChecksumErrors,
			headerStyle.Render("unknown"), snap.UnknownTypes,
			headerStyle.Render("memory"), snap.MemoryErrors,
			headerStyle.Render("link"), snap.LinkErrors,
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", snap.FrameRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if snap.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", snap.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", snap.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n")

	// Modules
	modules := strings.Builder{}
	for i, row := range m.modules {
		if i > 0 {
			modules.WriteString("\n")
		}
		role := ""
		if row.gateway {
			role = warningStyle.Render(" (interface)")
		}
		modules.WriteString(fmt.Sprintf("%s %s %s%s",
			statsLabelStyle.Render(fmt.Sprintf("%-16s", row.name)),
			statsValueStyle.Render(row.address),
			headerStyle.Render(fmt.Sprintf("serial 0x%08X", row.serial)),
			role,
		))
	}
	s.WriteString(boxStyle.Render(modules.String()))
	s.WriteString("\n")

	// Event log
	s.WriteString(statsLabelStyle.Render("Events:"))
	s.WriteString("\n")
	if len(m.eventLog) == 0 {
		s.WriteString(boxStyle.Width(m.width - 4).Render(headerStyle.Render("  (no events yet)")))
	} else {
		s.WriteString(boxStyle.Width(m.width - 4).Render(m.log.View()))
	}

	return s.String()
}
