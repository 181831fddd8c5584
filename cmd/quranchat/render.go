package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/qurani-maai/quranchat/core/quran"
	"github.com/qurani-maai/quranchat/core/session"
	"github.com/qurani-maai/quranchat/internal/chat"
)

// renderResult prints notices, then the chapter heading if any, then the
// verses.
func renderResult(w io.Writer, res chat.Result) {
	for _, n := range res.Notices {
		fmt.Fprintln(w, n)
	}
	if res.Chapter != nil {
		fmt.Fprintf(w, "\n    سورة %s\n", res.Chapter.Name)
		if res.Chapter.Invocation != "" {
			fmt.Fprintf(w, "    %s\n", res.Chapter.Invocation)
		}
		fmt.Fprintln(w)
	}
	for _, v := range res.Verses {
		fmt.Fprintf(w, "%s ﴿%s﴾\n", v.Text, v.Number)
		if v.Caption != "" && res.Chapter == nil {
			fmt.Fprintf(w, "  %s\n", v.Caption)
		}
	}
	if len(res.Verses) > 0 && len(res.Tools) > 0 {
		fmt.Fprintf(w, "  [%s]\n", joinTools(res.Tools))
	}
}

func joinTools(tools []chat.Tool) string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = "/" + string(t)
	}
	return strings.Join(names, " ")
}

// renderHistory replays a session's messages.
func renderHistory(w io.Writer, s *session.Session) {
	for _, m := range s.Messages {
		content := m.Content
		if m.IsMarkup {
			content = session.StripMarkup(content)
		}
		switch m.Sender {
		case session.SenderUser:
			fmt.Fprintf(w, "> %s\n", content)
		default:
			fmt.Fprintln(w, content)
		}
	}
}

func renderRecent(w io.Writer, recent []session.RecentEntry, current string) {
	if len(recent) == 0 {
		fmt.Fprintln(w, "No sessions yet.")
		return
	}
	for _, e := range recent {
		marker := " "
		if e.SessionID == current {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s  %s  %s\n", marker, e.SessionID, e.LastActivity.Local().Format("2006-01-02 15:04"), e.Preview)
	}
}

// renderAll lists stored sessions oldest first. Sessions that dropped out
// of the recent index have no preview.
func renderAll(w io.Writer, ids []string, recent []session.RecentEntry, current string) {
	if len(ids) == 0 {
		fmt.Fprintln(w, "No sessions yet.")
		return
	}
	previews := make(map[string]string, len(recent))
	for _, e := range recent {
		previews[e.SessionID] = e.Preview
	}
	for _, id := range ids {
		marker := " "
		if id == current {
			marker = "*"
		}
		if p := previews[id]; p != "" {
			fmt.Fprintf(w, "%s %s  %s\n", marker, id, p)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", marker, id)
	}
}

func renderProgress(w io.Writer, p chat.Progress, table []quran.ChapterMeta) {
	fmt.Fprintf(w, "Progress: %s (%d/%d chapters)\n", p.Display, len(p.Chapters), quran.ChapterCount)
	names := make(map[string]string, len(table))
	for _, m := range table {
		names[m.ID] = m.CanonicalName
	}
	for _, id := range p.Chapters {
		fmt.Fprintf(w, "  %3s  %s\n", id, names[id])
	}
}

func renderFocus(w io.Writer, f chat.Focus) {
	fmt.Fprintf(w, "\n    %s\n    %s\n\n", f.Text, f.Caption)
}

func renderTool(w io.Writer, out chat.ToolOutput) {
	if out.Title != "" {
		fmt.Fprintln(w, out.Title)
	}
	if out.Notice != "" {
		fmt.Fprintln(w, out.Notice)
	}
	if out.Text != "" {
		fmt.Fprintln(w, out.Text)
	}
}

func joinWords(words []string) string {
	return strings.TrimSpace(strings.Join(words, " "))
}
