package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

type CallSummary struct {
	RoomID   string
	PeerID   string
	State    string
	Duration time.Duration
	Error    string
}

func CallSummaryView(summary CallSummary) string {
	duration := "-"
	if summary.Duration > 0 {
		duration = summary.Duration.String()
	}
	peer := summary.PeerID
	if peer == "" {
		peer = "-"
	}

	rows := [][]string{
		{"Room", summary.RoomID},
		{"Peer", peer},
		{"Final state", summary.State},
		{"Connected for", duration},
	}
	if summary.Error != "" {
		rows = append(rows, []string{"Error", summary.Error})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Metric", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

func RenderCallSummary(summary CallSummary) {
	fmt.Println(CallSummaryView(summary))
}

// RoomInfoView is the banner shown before a call starts.
func RoomInfoView(roomID string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	content := fmt.Sprintf("%s Room %s\n\n%s Share this ID with the person you want to call",
		IconRoom, BoldStyle.Foreground(Primary).Render(roomID),
		IconCopy,
	)
	return boxStyle.Render(content)
}
