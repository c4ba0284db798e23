package ui

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RelayStats mirrors the relay's /stats response.
type RelayStats struct {
	Connections   int `json:"connections"`
	Sessions      int `json:"sessions"`
	QueueSize     int `json:"queueSize"`
	ActiveMatches int `json:"activeMatches"`
	Rooms         int `json:"rooms"`
}

// StatsView renders the relay counters as a table.
func StatsView(server string, s RelayStats) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s Relay %s", IconStats, server))
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Connections", s.Connections},
		{"Sessions", s.Sessions},
		{"Waiting in queue", s.QueueSize},
		{"Active matches", s.ActiveMatches},
		{"Rooms", s.Rooms},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.Style().Color.Header = text.Colors{text.Bold, text.FgCyan}
	return t.Render()
}

// RenderStats prints the stats table.
func RenderStats(server string, s RelayStats) {
	fmt.Fprintln(Output, StatsView(server, s))
}

// MatchView renders the match notice.
func MatchView(roomID, peerID, role string) string {
	content := fmt.Sprintf("%s Matched!\n\n%s Room:  %s\n%s Peer:  %s\n%s Role:  %s",
		IconSuccess,
		IconRoom, BoldStyle.Foreground(Primary).Render(roomID),
		IconPeer, BoldStyle.Render(peerID),
		IconCall, StatusStyle.Render(role),
	)
	return SuccessBoxStyle.Render(content)
}
