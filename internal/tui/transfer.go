package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/mmcdole/switchtube/internal/domain"
	"github.com/mmcdole/switchtube/internal/transfer"
	"github.com/mmcdole/switchtube/internal/tui/styles"
)

// Display width of file names, matching the plain output
const nameWidth = 60

// ErrInterrupted is returned by Run when the user quit before the work finished.
var ErrInterrupted = errors.New("interrupted")

// progressMsg carries one observer update into the Bubble Tea loop
type progressMsg domain.TransferProgress

// doneMsg reports the end of the background work
type doneMsg struct{ err error }

// Model renders a sequence of transfers: finished ones as a list, the
// current one as a progress bar or, when the size is unknown, a spinner.
type Model struct {
	bar     progress.Model
	spinner spinner.Model
	cancel  context.CancelFunc

	current  domain.TransferProgress
	active   bool
	finished []domain.TransferProgress

	done        bool
	interrupted bool
	err         error
}

// NewModel creates a transfer view; cancel is called when the user quits early.
func NewModel(cancel context.CancelFunc) Model {
	bar := progress.New(progress.WithGradient(styles.ProgressStart, styles.ProgressEnd))
	bar.Width = 40

	sp := spinner.New(
		spinner.WithSpinner(spinner.Spinner{Frames: styles.SpinnerFrames, FPS: time.Second / 10}),
		spinner.WithStyle(styles.SpinnerStyle),
	)

	if cancel == nil {
		cancel = func() {}
	}
	return Model{bar: bar, spinner: sp, cancel: cancel}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.interrupted = true
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		// name, two spaces, bar, two spaces, "1.2 GB / 3.4 GB"
		m.bar.Width = max(10, min(60, msg.Width-nameWidth-24))

	case progressMsg:
		p := domain.TransferProgress(msg)
		if m.active && p.Name != m.current.Name {
			m.finished = append(m.finished, m.current)
		}
		m.current = p
		m.active = true

	case doneMsg:
		if m.active && msg.err == nil {
			m.finished = append(m.finished, m.current)
			m.active = false
		}
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	for _, p := range m.finished {
		b.WriteString(styles.SuccessStyle.Render(styles.DoneMark))
		b.WriteString(" ")
		b.WriteString(transfer.Truncate(p.Name, nameWidth))
		b.WriteString(styles.DimStyle.Render("  " + humanize.Bytes(uint64(p.Transferred))))
		b.WriteString("\n")
	}

	if m.active {
		if m.err != nil {
			b.WriteString(styles.ErrorStyle.Render(styles.FailedMark))
			b.WriteString(" ")
		}
		b.WriteString(renderCurrent(m.current, m.bar, m.spinner))
		b.WriteString("\n")
	}

	if m.interrupted {
		b.WriteString(styles.WarningStyle.Render(styles.SkippedMark + " interrupted"))
		b.WriteString("\n")
	} else if m.err != nil {
		b.WriteString(styles.ErrorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}

	return b.String()
}

// Err returns the error the background work finished with.
func (m Model) Err() error {
	return m.err
}

func renderCurrent(p domain.TransferProgress, bar progress.Model, sp spinner.Model) string {
	name := fmt.Sprintf("%-*s", nameWidth, transfer.Truncate(p.Name, nameWidth))
	if frac, ok := p.Fraction(); ok {
		return fmt.Sprintf("%s  %s  %s / %s",
			name,
			bar.ViewAs(frac),
			humanize.Bytes(uint64(p.Transferred)),
			humanize.Bytes(uint64(p.Total)),
		)
	}
	return fmt.Sprintf("%s  %s %s", name, sp.View(), humanize.Bytes(uint64(p.Transferred)))
}

// programObserver forwards progress into a running program
type programObserver struct {
	p *tea.Program
}

func (o programObserver) OnProgress(p domain.TransferProgress) {
	o.p.Send(progressMsg(p))
}

// Run executes work while rendering its progress. Quitting the view cancels
// the context handed to work and waits for it to return.
func Run(ctx context.Context, work func(context.Context, domain.ProgressObserver) error, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(cancel), opts...)

	result := make(chan error, 1)
	go func() {
		err := work(ctx, programObserver{p: p})
		result <- err
		p.Send(doneMsg{err: err})
	}()

	final, runErr := p.Run()
	cancel()
	workErr := <-result

	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	if m, ok := final.(Model); ok && m.interrupted && !m.done {
		if workErr != nil {
			return fmt.Errorf("%w: %w", ErrInterrupted, workErr)
		}
		return ErrInterrupted
	}
	return workErr
}
