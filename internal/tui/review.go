// Package tui implements the interactive match review flow. Receipts whose
// best match is below the high tier queue up here so a human confirms or
// skips each link.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/booksflow/booksflow/internal/cli"
	"github.com/booksflow/booksflow/internal/model"
)

// Item is one receipt awaiting review together with its ranked matches.
type Item struct {
	Receipt *model.Receipt
	Matches *model.RankedMatches
}

// Decision records the reviewer's choice for one receipt.
type Decision struct {
	ReceiptID uuid.UUID
	EntryID   string // empty when skipped
	Skipped   bool
}

// Model drives the review session.
type Model struct {
	keymap    KeyMap
	items     []Item
	decisions []Decision
	index     int // current receipt
	cursor    int // selected candidate within the current receipt
	showHelp  bool
	quitting  bool
	done      bool
}

// NewModel creates a review session over the given items.
func NewModel(items []Item) Model {
	return Model{
		keymap: DefaultKeyMap(),
		items:  items,
		done:   len(items) == 0,
	}
}

// Decisions returns the choices made so far. Valid after the program exits.
func (m Model) Decisions() []Decision {
	return m.decisions
}

// Done reports whether every receipt was reviewed.
func (m Model) Done() bool {
	return m.done
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(keyMsg, m.keymap.Help):
		m.showHelp = !m.showHelp
		return m, nil
	}

	if m.done {
		return m, tea.Quit
	}

	current := m.items[m.index]

	switch {
	case key.Matches(keyMsg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(keyMsg, m.keymap.Down):
		if m.cursor < len(current.Matches.Candidates)-1 {
			m.cursor++
		}

	case key.Matches(keyMsg, m.keymap.Accept):
		if len(current.Matches.Candidates) == 0 {
			break
		}
		m.decisions = append(m.decisions, Decision{
			ReceiptID: current.Receipt.ID,
			EntryID:   current.Matches.Candidates[m.cursor].Entry.ID,
		})
		return m.advance()

	case key.Matches(keyMsg, m.keymap.Skip):
		m.decisions = append(m.decisions, Decision{
			ReceiptID: current.Receipt.ID,
			Skipped:   true,
		})
		return m.advance()
	}

	return m, nil
}

// advance moves to the next receipt, quitting when the queue is exhausted.
func (m Model) advance() (tea.Model, tea.Cmd) {
	m.index++
	m.cursor = 0
	if m.index >= len(m.items) {
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting || m.done {
		return cli.FormatSuccess(fmt.Sprintf("review finished: %d decisions", len(m.decisions))) + "\n"
	}

	current := m.items[m.index]
	var sb strings.Builder

	sb.WriteString(cli.RenderBox(
		fmt.Sprintf("Review %d of %d", m.index+1, len(m.items)),
		cli.FormatReceipt(current.Receipt)) + "\n\n")

	if len(current.Matches.Candidates) == 0 {
		sb.WriteString(cli.SubtleStyle.Render("no candidates, press s to skip") + "\n")
	}

	for i, cand := range current.Matches.Candidates {
		marker := "  "
		line := fmt.Sprintf("%s  %s  %.2f  score %.2f",
			cand.Entry.Date.Format("2006-01-02"),
			cand.Entry.Description,
			cand.Entry.Amount,
			cand.Score)
		if i == m.cursor {
			marker = cli.BoldStyle.Render("> ")
			line = cli.BoldStyle.Render(line)
		}
		sb.WriteString(marker + line + "\n")
		if i == m.cursor {
			for _, reason := range cand.Reasons {
				sb.WriteString(cli.SubtleStyle.Render("     · "+reason) + "\n")
			}
		}
	}

	sb.WriteString("\n" + m.helpView())
	return sb.String()
}

func (m Model) helpView() string {
	if !m.showHelp {
		return cli.SubtleStyle.Render("enter link · s skip · j/k move · ? help · q quit")
	}

	bindings := []key.Binding{
		m.keymap.Up, m.keymap.Down, m.keymap.Accept,
		m.keymap.Skip, m.keymap.Help, m.keymap.Quit,
	}
	var lines []string
	for _, b := range bindings {
		lines = append(lines, fmt.Sprintf("%-10s %s", b.Help().Key, b.Help().Desc))
	}
	return cli.SubtleStyle.Render(strings.Join(lines, "\n"))
}

// Run executes the review flow on the current terminal and returns the
// decisions made.
func Run(items []Item) ([]Decision, error) {
	program := tea.NewProgram(NewModel(items))
	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("review session failed: %w", err)
	}

	result, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", final)
	}
	return result.Decisions(), nil
}
