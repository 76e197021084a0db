package ui

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type RoomRow struct {
	RoomID  string
	Members []string
}

// RenderRooms writes the relay's room listing as a table.
func RenderRooms(w io.Writer, rooms []RoomRow) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.SetTitle("Active rooms")
	t.AppendHeader(table.Row{"#", "Room", "Members", "Sessions"})

	for i, r := range rooms {
		t.AppendRow(table.Row{i + 1, r.RoomID, len(r.Members), strings.Join(r.Members, "\n")})
	}
	t.AppendFooter(table.Row{"", "Total", len(rooms), ""})
	t.Render()
}
