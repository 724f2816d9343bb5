package tui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/mmcdole/switchtube/internal/domain"
	"github.com/mmcdole/switchtube/internal/tui/styles"
)

// RenderChannels renders one "id: name" line per channel.
func RenderChannels(channels []domain.Channel) string {
	var b strings.Builder
	for _, ch := range channels {
		b.WriteString(styles.AccentStyle.Render(ch.ID))
		b.WriteString(": ")
		b.WriteString(ch.Name)
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSessions renders the stored upload sessions, one per line.
func RenderSessions(sessions []domain.UploadSession) string {
	var b strings.Builder
	for _, s := range sessions {
		b.WriteString(styles.TitleStyle.Render(s.Filename))
		b.WriteString("  ")
		b.WriteString(styles.SubtitleStyle.Render(formatOffset(s)))
		b.WriteString("  ")
		b.WriteString(styles.DimStyle.Render(s.URL))
		b.WriteString("\n")
	}
	return b.String()
}

func formatOffset(s domain.UploadSession) string {
	out := fmt.Sprintf("%s of %s", humanize.Bytes(uint64(s.Offset)), humanize.Bytes(uint64(s.Length)))
	if s.Length > 0 {
		out += fmt.Sprintf(" (%d%%)", s.Offset*100/s.Length)
	}
	if !s.UpdatedAt.IsZero() {
		out += ", updated " + humanize.Time(s.UpdatedAt)
	}
	return out
}
