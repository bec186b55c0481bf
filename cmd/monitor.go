// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/sondestat/pkg/sonde"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Show the latest GPS, IMU and environment values in a terminal UI",
	Long: `Display the most recent record of each kind in a live terminal UI.

The decoder runs on its own goroutine and publishes into one mailbox per
record kind; the display samples the mailboxes several times a second, so a
fast link never backs up behind the terminal.

Rejected packets (CRC failures) are listed in the event log. Press 'q' to quit.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// Messages
type tickMsg time.Time
type rejectMsg sonde.Rejection
type sessionDoneMsg struct {
	err error
}

// monitorModel is the TUI model
type monitorModel struct {
	connInfo      string
	mail          *sonde.Mailboxes
	stats         *sonde.Statistics
	spinner       spinner.Model
	started       time.Time
	gps           *sonde.GPS
	imu           *sonde.IMU
	env           *sonde.Env
	eventLog      []eventLogEntry
	maxLogEntries int
	width         int
	height        int
	quitting      bool
	done          bool
}

// formatElapsed formats a duration to a human-friendly string
func formatElapsed(d time.Duration) string {
	total := uint64(d / time.Second)
	if total == 0 {
		return "0 seconds"
	}

	seconds := total % 60
	minutes := (total / 60) % 60
	hours := (total / 3600) % 24
	days := total / 86400

	unit := func(n uint64, name string) string {
		if n == 1 {
			return "1 " + name
		}
		return fmt.Sprintf("%d %ss", n, name)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, unit(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, unit(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, unit(minutes, "minute"))
	}
	if seconds > 0 {
		parts = append(parts, unit(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func newMonitorModel(connInfo string, mail *sonde.Mailboxes, stats *sonde.Statistics) monitorModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	return monitorModel{
		connInfo:      connInfo,
		mail:          mail,
		stats:         stats,
		spinner:       s,
		started:       time.Now(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		monitorTickCmd(),
		m.spinner.Tick,
		tea.EnterAltScreen,
	)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waiting reports whether no record has been received yet
func (m monitorModel) waiting() bool {
	return m.gps == nil && m.imu == nil && m.env == nil
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.collect()
		return m, monitorTickCmd()

	case spinner.TickMsg:
		if !m.waiting() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case rejectMsg:
		m.addLogEntry(sonde.FormatRejection(sonde.Rejection(msg)), true)

	case sessionDoneMsg:
		m.done = true
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Connection error: %v", msg.err), true)
		} else {
			m.addLogEntry("Connection closed", false)
		}
	}

	return m, nil
}

// collect takes every mailbox that changed since the last tick
func (m *monitorModel) collect() {
	if gps, ok := m.mail.GPS.Take(); ok {
		m.gps = &gps
		m.checkAnomalies(gps)
	}
	if imu, ok := m.mail.IMU.Take(); ok {
		m.imu = &imu
		m.checkAnomalies(imu)
	}
	if env, ok := m.mail.Env.Take(); ok {
		m.env = &env
		m.checkAnomalies(env)
	}
}

func (m *monitorModel) checkAnomalies(r sonde.Record) {
	validationErrors := sonde.ValidateRecord(r)
	m.stats.AddAnomalies(len(validationErrors))
	for _, err := range validationErrors {
		m.addLogEntry(fmt.Sprintf("%s: %s", sonde.FormatKind(r.Kind()), err.Message), true)
	}
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   strings.TrimSuffix(message, "\n"),
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m monitorModel) View() string {
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

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
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
	s.WriteString(titleStyle.Render("SONDESTAT - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Running: %s | Press 'q' to quit",
		m.connInfo, formatElapsed(time.Since(m.started)))))
	s.WriteString("\n\n")

	if m.waiting() {
		s.WriteString(m.spinner.View())
		s.WriteString(warningStyle.Render(" Waiting for first record..."))
	} else {
		s.WriteString(valueStyle.Render("✓ Receiving"))
	}
	s.WriteString("\n\n")

	// Statistics
	snap := m.stats.Snapshot()
	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Bytes:"), valueStyle.Render(fmt.Sprintf("%d", snap.Bytes)),
		labelStyle.Render("Records:"), valueStyle.Render(fmt.Sprintf("%d", snap.TotalRecords())),
		labelStyle.Render("CRC Errors:"), errorStyle.Render(fmt.Sprintf("%d", snap.ChecksumMismatches)),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("Header Rejects:"), headerStyle.Render(fmt.Sprintf("%d", snap.HeaderMismatches)),
		labelStyle.Render("Anomalous:"), warningStyle.Render(fmt.Sprintf("%d", snap.Anomalies)),
		labelStyle.Render("Record Rate:"), valueStyle.Render(fmt.Sprintf("%.1f rec/s", snap.RecordRate)),
	))
	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Latest values
	line := func(label, value string) string {
		return fmt.Sprintf("%s %s\n", labelStyle.Render(label), valueStyle.Render(value))
	}
	age := func(h sonde.Header) string {
		return headerStyle.Render(fmt.Sprintf("seq=%d, %s ago", h.Sequence, time.Since(h.Time).Round(time.Millisecond)))
	}

	values := strings.Builder{}
	if m.gps != nil {
		values.WriteString(line("GPS Position:", sonde.FormatVec(m.gps.Position)+" "+age(m.gps.Header)))
	} else {
		values.WriteString(headerStyle.Render("GPS: (none yet)") + "\n")
	}
	if m.imu != nil {
		values.WriteString(line("IMU Mag:     ", sonde.FormatVec(m.imu.Mag)+" "+age(m.imu.Header)))
		values.WriteString(line("IMU Accel:   ", sonde.FormatVec(m.imu.Accel)))
		values.WriteString(line("IMU Gyro:    ", sonde.FormatVec(m.imu.Gyro)))
		values.WriteString(line("IMU Horizon: ", fmt.Sprintf("%.3f", m.imu.Horizon)))
	} else {
		values.WriteString(headerStyle.Render("IMU: (none yet)") + "\n")
	}
	if m.env != nil {
		values.WriteString(line("Temperature: ", fmt.Sprintf("%.2f°C", m.env.Temperature)+" "+age(m.env.Header)))
		values.WriteString(line("Humidity:    ", fmt.Sprintf("%.2f%%", m.env.Humidity)))
		values.WriteString(line("Pressure:    ", fmt.Sprintf("%.2f", m.env.Pressure)))
	} else {
		values.WriteString(headerStyle.Render("ENV: (none yet)") + "\n")
	}
	s.WriteString(labelStyle.Render("Latest Values:"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Render(strings.TrimSuffix(values.String(), "\n")))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 22 // Reserve space for header, stats and values
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

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(settings.Connection)
	if err != nil {
		return err
	}

	mail := sonde.NewMailboxes()
	stats := sonde.NewStatistics()
	p := tea.NewProgram(newMonitorModel(connInfo, mail, stats))

	onReject := func(r sonde.Rejection) {
		// Header mismatches are expected from sentinels inside payloads
		if r.Kind != sonde.KindPending {
			p.Send(rejectMsg(r))
		}
	}
	decoder := newDecoder(mail, sonde.WithStatistics(stats), sonde.WithRejectHandler(onReject))

	ctx, cancel := signalContext()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := runSession(ctx, conn, decoder)
		p.Send(sessionDoneMsg{err: err})
	}()

	_, runErr := p.Run()
	cancel()
	<-done

	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}
