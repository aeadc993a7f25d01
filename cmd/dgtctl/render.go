package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/danmuck/dgtctl/internal/board"
	"github.com/danmuck/dgtctl/internal/protocol"
)

var (
	lightSquare = lipgloss.NewStyle().Background(lipgloss.Color("180")).Foreground(lipgloss.Color("0")).Padding(0, 1)
	darkSquare  = lipgloss.NewStyle().Background(lipgloss.Color("94")).Foreground(lipgloss.Color("15")).Padding(0, 1)
	rankStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).PaddingRight(1)
	eventStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("57"))
)

// renderBoard draws the board from white's side, a8 top left.
func renderBoard(b board.Board) string {
	var out strings.Builder
	for row := 0; row < 8; row++ {
		cells := make([]string, 0, 9)
		cells = append(cells, rankStyle.Render(fmt.Sprintf("%d", 8-row)))
		for col := 0; col < 8; col++ {
			c := b[row*8+col].Char()
			style := lightSquare
			if (row+col)%2 == 1 {
				style = darkSquare
			}
			cells = append(cells, style.Render(string(c)))
		}
		out.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		out.WriteByte('\n')
	}
	files := make([]string, 0, 9)
	files = append(files, rankStyle.Render(" "))
	for col := 0; col < 8; col++ {
		files = append(files, lipgloss.NewStyle().Padding(0, 1).Render(string(rune('a'+col))))
	}
	out.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, files...))
	out.WriteByte('\n')
	return out.String()
}

func renderClock(c protocol.Clock) string {
	running := "right"
	if c.LeftUp {
		running = "left"
	}
	return fmt.Sprintf("left %s  right %s  (%s lever up)", clockTime(c.LeftTime), clockTime(c.RightTime), running)
}

func clockTime(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

func renderEvent(name, detail string) string {
	if detail == "" {
		return eventStyle.Render(name) + "\n"
	}
	return eventStyle.Render(name) + " " + detail + "\n"
}
