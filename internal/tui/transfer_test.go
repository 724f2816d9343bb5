package tui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/switchtube/internal/domain"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestModelDeterminateProgress(t *testing.T) {
	m := NewModel(nil)
	m, _ = update(t, m, progressMsg{Name: "v1-Intro.mp4", Transferred: 1500000, Total: 3000000})

	view := m.View()
	assert.Contains(t, view, "v1-Intro.mp4")
	assert.Contains(t, view, "1.5 MB / 3.0 MB")
	assert.Contains(t, view, "50%")
}

func TestModelIndeterminateProgress(t *testing.T) {
	m := NewModel(nil)
	m, _ = update(t, m, progressMsg{Name: "stream.mp4", Transferred: 2048, Total: -1})

	view := m.View()
	assert.Contains(t, view, "stream.mp4")
	assert.Contains(t, view, "2.0 kB")
	assert.NotContains(t, view, "%")
	assert.NotContains(t, view, " / ")
}

func TestModelListsFinishedTransfers(t *testing.T) {
	m := NewModel(nil)
	m, _ = update(t, m, progressMsg{Name: "a.mp4", Transferred: 10, Total: 10})
	m, _ = update(t, m, progressMsg{Name: "b.mp4", Transferred: 5, Total: 10})

	view := m.View()
	lines := strings.Split(strings.TrimRight(view, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "✓ a.mp4")
	assert.Contains(t, lines[1], "b.mp4")

	m, cmd := update(t, m, doneMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.NoError(t, m.Err())
	assert.Contains(t, m.View(), "✓ b.mp4")
}

func TestModelTruncatesLongNames(t *testing.T) {
	long := strings.Repeat("x", 80) + ".mp4"
	m := NewModel(nil)
	m, _ = update(t, m, progressMsg{Name: long, Transferred: 1, Total: 2})

	view := m.View()
	assert.NotContains(t, view, long)
	assert.Contains(t, view, strings.Repeat("x", 56)+"...")
}

func TestModelShowsError(t *testing.T) {
	m := NewModel(nil)
	m, _ = update(t, m, progressMsg{Name: "a.mp4", Transferred: 3, Total: 10})
	m, _ = update(t, m, doneMsg{err: errors.New("connection reset")})

	assert.EqualError(t, m.Err(), "connection reset")
	view := m.View()
	assert.Contains(t, view, "✗")
	assert.Contains(t, view, "Error: connection reset")
}

func TestModelQuitCancels(t *testing.T) {
	cancelled := false
	m := NewModel(func() { cancelled = true })

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, cancelled)
	assert.True(t, m.interrupted)
	assert.Contains(t, m.View(), "interrupted")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestRunReturnsWorkResult(t *testing.T) {
	opts := []tea.ProgramOption{tea.WithInput(nil), tea.WithOutput(io.Discard)}

	err := Run(context.Background(), func(ctx context.Context, obs domain.ProgressObserver) error {
		obs.OnProgress(domain.TransferProgress{Name: "a.mp4", Transferred: 5, Total: 10})
		obs.OnProgress(domain.TransferProgress{Name: "a.mp4", Transferred: 10, Total: 10})
		return nil
	}, opts...)
	assert.NoError(t, err)

	boom := errors.New("boom")
	err = Run(context.Background(), func(ctx context.Context, obs domain.ProgressObserver) error {
		return boom
	}, opts...)
	assert.ErrorIs(t, err, boom)
}

func TestRunCancelsWorkOnParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Run(ctx, func(ctx context.Context, obs domain.ProgressObserver) error {
		<-ctx.Done()
		return ctx.Err()
	}, tea.WithInput(nil), tea.WithOutput(io.Discard))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlainObserverDeterminate(t *testing.T) {
	var buf bytes.Buffer
	o := NewPlainObserver(&buf)

	o.OnProgress(domain.TransferProgress{Name: "a.mp4", Transferred: 0, Total: 200})
	o.OnProgress(domain.TransferProgress{Name: "a.mp4", Transferred: 1, Total: 200})
	o.OnProgress(domain.TransferProgress{Name: "a.mp4", Transferred: 100, Total: 200})
	o.OnProgress(domain.TransferProgress{Name: "a.mp4", Transferred: 200, Total: 200})
	o.Finish()

	assert.Equal(t, "\ra.mp4 0%\ra.mp4 1%\ra.mp4 50%\ra.mp4 100%\n", buf.String())
}

func TestPlainObserverIndeterminate(t *testing.T) {
	var buf bytes.Buffer
	o := NewPlainObserver(&buf)

	o.OnProgress(domain.TransferProgress{Name: "s.mp4", Transferred: 1000, Total: -1})
	o.OnProgress(domain.TransferProgress{Name: "t.mp4", Transferred: 10, Total: 10})
	o.Finish()

	assert.Equal(t, "\rs.mp4 1.0 kB\n\rt.mp4 100%\n", buf.String())
}

func TestRenderChannels(t *testing.T) {
	out := RenderChannels([]domain.Channel{{ID: "c61x4b", Name: "Maths 101"}, {ID: "42", Name: "Physics"}})
	assert.Equal(t, "c61x4b: Maths 101\n42: Physics\n", out)
}

func TestRenderSessions(t *testing.T) {
	out := RenderSessions([]domain.UploadSession{{
		Filename: "lecture.mp4",
		URL:      "https://tube.switch.ch/files/abc",
		Offset:   1000,
		Length:   4000,
	}})
	assert.Contains(t, out, "lecture.mp4")
	assert.Contains(t, out, "1.0 kB of 4.0 kB (25%)")
	assert.Contains(t, out, "https://tube.switch.ch/files/abc")
}
