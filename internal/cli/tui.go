package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/orthofix/pkg/ortho"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// CandidateListModel - Interactive candidate selection
// =============================================================================

// CandidateListModel is the bubbletea model for browsing the ranked repair
// candidates of one segment.
type CandidateListModel struct {
	Title      string
	Candidates []ortho.Candidate
	Cursor     int
	Selected   *ortho.Candidate
	Height     int
	Offset     int
}

// NewCandidateListModel creates a new candidate list model.
func NewCandidateListModel(title string, cands []ortho.Candidate) CandidateListModel {
	return CandidateListModel{
		Title:      title,
		Candidates: cands,
		Height:     15,
	}
}

func (m CandidateListModel) Init() tea.Cmd {
	return nil
}

func (m CandidateListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Candidates)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Candidates) == 0 {
				return m, tea.Quit
			}
			c := m.Candidates[m.Cursor]
			m.Selected = &c
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m CandidateListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ apply  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Candidates))
	rows := candidateRows(m.Candidates[m.Offset:end], m.Offset, m.Cursor)

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := candidateTable(rows).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Candidates) {
				return lipgloss.NewStyle()
			}
			flawed := m.Candidates[idx].Ranking.NonOrthogonalArea > 0
			base := lipgloss.NewStyle()
			switch {
			case idx == m.Cursor && flawed:
				return base.Foreground(colorYellow).Bold(true)
			case idx == m.Cursor:
				return base.Foreground(colorGreen).Bold(true)
			case flawed:
				return base.Foreground(colorDim)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Candidates))))

	return b.String()
}

// =============================================================================
// Table Rendering
// =============================================================================

// candidateTable builds the bordered table shared by the interactive and
// plain views.
func candidateTable(rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "#", "Strategy", "Var", "Area", "Splits", "Moved").
		Rows(rows...)
}

// candidateRows formats cands; offset is the index of cands[0] in the full
// list and cursor the highlighted index, or -1 for none.
func candidateRows(cands []ortho.Candidate, offset, cursor int) [][]string {
	rows := make([][]string, 0, len(cands))
	for i, c := range cands {
		idx := offset + i
		marker := "  "
		if idx == cursor {
			marker = "▸ "
		}
		rows = append(rows, []string{
			marker,
			fmt.Sprintf("%d", idx+1),
			c.Strategy.String(),
			fmt.Sprintf("%d", c.Variation),
			fmt.Sprintf("%g", c.Ranking.NonOrthogonalArea),
			fmt.Sprintf("%d", c.Ranking.SplitCount),
			fmt.Sprintf("%g", c.Ranking.Displacement),
		})
	}
	return rows
}
