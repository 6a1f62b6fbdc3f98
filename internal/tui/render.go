package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/koscakluka/ema-realtime/core"
	"github.com/koscakluka/ema-realtime/core/conversation"
	"github.com/koscakluka/ema-realtime/core/items"
	"github.com/koscakluka/ema-realtime/core/realtime"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

const (
	processingAudioPlaceholder = "[processing audio]"
	dataSentPlaceholder        = "[data sent]"
	truncatedPlaceholder       = "[truncated]"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	toolStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	activeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)

// itemLabel is the role, or the type for items without one, the way the
// transcript header shows it.
func itemLabel(item items.Item) string {
	return "[" + strings.ReplaceAll(item.Label(), "_", " ") + "]"
}

// itemContent picks what to show for an item while its deltas are still
// arriving.
func itemContent(item items.Item) string {
	if item.Type == items.TypeFunctionCallOutput {
		return item.Formatted.Output
	}
	if tool := item.Formatted.Tool; tool != nil {
		return fmt.Sprintf("%s(%s)", tool.Name, tool.Arguments)
	}

	switch item.Role {
	case items.RoleUser:
		switch {
		case item.Formatted.Transcript != "":
			return item.Formatted.Transcript
		case len(item.Formatted.Audio) > 0:
			return processingAudioPlaceholder
		case item.Formatted.Text != "":
			return item.Formatted.Text
		}
		return dataSentPlaceholder
	case items.RoleAssistant:
		switch {
		case item.Formatted.Transcript != "":
			return item.Formatted.Transcript
		case item.Formatted.Text != "":
			return item.Formatted.Text
		}
		return truncatedPlaceholder
	}

	return item.Formatted.Text
}

func labelStyle(item items.Item) lipgloss.Style {
	switch {
	case item.Formatted.Tool != nil || item.Type == items.TypeFunctionCallOutput:
		return toolStyle
	case item.Role == items.RoleUser:
		return userStyle
	}
	return assistantStyle
}

func renderTranscript(snapshot conversation.Snapshot, width int) string {
	if len(snapshot.Items) == 0 {
		return mutedStyle.Render("Channel ready. Press c to connect and start talking.")
	}

	wrapAt := max(width-2, 10)
	var b strings.Builder
	for i, item := range snapshot.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(labelStyle(item).Render(itemLabel(item)))
		if !item.IsCompleted() {
			b.WriteString(" " + mutedStyle.Render("…"))
		}
		b.WriteString("\n")
		b.WriteString(indent.String(wordwrap.String(itemContent(item), wrapAt), 2))
		b.WriteString("\n")
	}
	return b.String()
}

func renderStatus(session orchestration.Session) string {
	parts := []string{session.State.String()}
	if session.Recording {
		parts = append(parts, activeStyle.Render("recording"))
	}
	if session.Muted {
		parts = append(parts, activeStyle.Render("muted"))
	}
	if session.Profile != nil {
		parts = append(parts, "profile: "+session.Profile.ShortName)
	}
	return strings.Join(parts, " · ")
}

func renderProfiles(profiles []realtime.Profile, active *realtime.Profile) string {
	if len(profiles) == 0 {
		return ""
	}

	entries := make([]string, 0, len(profiles))
	for i, profile := range profiles {
		if i >= 9 {
			break
		}
		entry := fmt.Sprintf("%d %s", i+1, profile.ShortName)
		if active != nil && active.ID == profile.ID {
			entry = activeStyle.Render(entry)
		}
		entries = append(entries, entry)
	}
	return "profiles: " + strings.Join(entries, "  ")
}

func renderHelp(session orchestration.Session) string {
	keys := []string{"c connect"}
	if session.Connected {
		record := "space record"
		if session.Recording {
			record = "space send"
		}
		keys = []string{"c disconnect", record, "m mute"}
	}
	keys = append(keys, "1-9 profile", "q quit")
	return mutedStyle.Render(strings.Join(keys, " • "))
}
