package chat

import (
	"context"

	"github.com/qurani-maai/quranchat/core/errors"
	"github.com/qurani-maai/quranchat/core/quran"
	"github.com/qurani-maai/quranchat/core/session"
	"github.com/qurani-maai/quranchat/internal/logging"
)

// Tool is an action offered on a displayed verse.
type Tool string

const (
	ToolCommentary Tool = "commentary"
	ToolCopy       Tool = "copy"
	ToolShare      Tool = "share"
	ToolListen     Tool = "listen"
	ToolFocus      Tool = "focus"
)

// VerseTools lists the tools offered on every displayed verse.
var VerseTools = []Tool{ToolCommentary, ToolCopy, ToolShare, ToolListen, ToolFocus}

// ParseTool maps a tool name to a Tool.
func ParseTool(name string) (Tool, bool) {
	for _, t := range VerseTools {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}

// Commentary is the explanation of one verse.
type Commentary struct {
	Ref    quran.VerseRef `json:"ref"`
	Header string         `json:"header"`
	Text   string         `json:"text"`
	Found  bool           `json:"found"`
}

// Commentary loads the commentary for ref. A verse without commentary is
// reported with Found unset and the not-found notice as Text.
func (e *Engine) Commentary(ctx context.Context, ref quran.VerseRef) (Commentary, error) {
	meta, err := e.meta(ref)
	if err != nil {
		return Commentary{}, err
	}
	text, ok, err := e.index.Commentary(ctx, ref.ChapterID, ref.Verse)
	if err != nil {
		return Commentary{}, err
	}
	c := Commentary{Ref: ref, Header: commentaryHeader(meta, ref.Verse)}
	if !ok {
		c.Text = CommentaryNotFound
		return c, nil
	}
	c.Text, c.Found = text, true
	return c, nil
}

// Focus is a single verse shown on its own, with previous/next navigation.
type Focus struct {
	Ref     quran.VerseRef `json:"ref"`
	Text    string         `json:"text"`
	Caption string         `json:"caption"`
}

// Focus shows the session's last read verse, or a random verse when the
// session has no reading position.
func (e *Engine) Focus(ctx context.Context, sessionID string) (Focus, error) {
	var ref quran.VerseRef
	last, err := e.store.LastRead(sessionID)
	if err != nil {
		return Focus{}, err
	}
	if last != nil {
		ref = *last
	} else {
		e.rngMu.Lock()
		ref = e.index.Random(e.rng)
		e.rngMu.Unlock()
	}
	return e.FocusAt(ctx, ref)
}

// Step moves from ref to the previous (dir < 0) or next verse, crossing
// chapter boundaries and wrapping between the last and first chapters.
func (e *Engine) Step(ctx context.Context, ref quran.VerseRef, dir int) (Focus, error) {
	step := 1
	if dir < 0 {
		step = -1
	}
	next, ok := e.index.Adjacent(ref, step)
	if !ok {
		return Focus{}, errors.NewValidation("ref", "no such verse "+ref.String())
	}
	return e.FocusAt(ctx, next)
}

// FocusAt shows ref in focus mode.
func (e *Engine) FocusAt(ctx context.Context, ref quran.VerseRef) (Focus, error) {
	meta, err := e.meta(ref)
	if err != nil {
		return Focus{}, err
	}
	text, err := e.index.Verse(ctx, ref)
	if err != nil {
		return Focus{}, err
	}
	return Focus{Ref: ref, Text: text, Caption: verseInfo(meta, ref.Verse)}, nil
}

// ToolOutput is what a verse tool produced. Text is the payload to copy,
// share or display; Notice is the message that accompanies it.
type ToolOutput struct {
	Tool   Tool           `json:"tool"`
	Ref    quran.VerseRef `json:"ref"`
	Title  string         `json:"title,omitempty"`
	Text   string         `json:"text,omitempty"`
	Notice string         `json:"notice,omitempty"`
}

// RunTool applies tool to ref. Corpus failures become the tool's failure
// notice. The listen tool records its notice in the session.
func (e *Engine) RunTool(ctx context.Context, sessionID string, ref quran.VerseRef, tool Tool) (ToolOutput, error) {
	meta, err := e.meta(ref)
	if err != nil {
		return ToolOutput{}, err
	}
	out := ToolOutput{Tool: tool, Ref: ref}
	ctx = logging.WithSessionID(ctx, sessionID)

	switch tool {
	case ToolCommentary:
		c, err := e.Commentary(ctx, ref)
		if err != nil {
			logging.WarnContext(ctx, "commentary failed", "ref", ref.String(), "error", err)
			out.Notice = CommentaryFailedNotice
			return out, nil
		}
		out.Notice, out.Text = c.Header, c.Text
		if !c.Found {
			out.Notice, out.Text = c.Text, ""
		}

	case ToolCopy, ToolShare:
		text, err := e.index.Verse(ctx, ref)
		if err != nil {
			logging.WarnContext(ctx, "citation failed", "ref", ref.String(), "error", err)
			out.Notice = fetchFailedNotice(ref.ChapterID)
			return out, nil
		}
		out.Text = Citation(meta, ref.Verse, text)
		if tool == ToolShare {
			out.Title = ShareTitle
			out.Text += ShareSuffix
		}

	case ToolListen:
		out.Notice = listenNotice(meta, ref.Verse)
		unlock, err := e.lock(sessionID)
		if err != nil {
			return out, err
		}
		defer unlock()
		if _, err := e.store.Append(sessionID, session.Message{Sender: session.SenderSystem, Content: out.Notice}); err != nil {
			return out, err
		}

	case ToolFocus:
		f, err := e.FocusAt(ctx, ref)
		if err != nil {
			logging.WarnContext(ctx, "focus failed", "ref", ref.String(), "error", err)
			out.Notice = FocusFailedNotice
			return out, nil
		}
		out.Text, out.Notice = f.Text, f.Caption

	default:
		return ToolOutput{}, errors.NewValidation("tool", "unknown tool "+string(tool))
	}
	return out, nil
}

// meta validates ref against the chapter table.
func (e *Engine) meta(ref quran.VerseRef) (quran.ChapterMeta, error) {
	meta, ok := e.index.Meta(ref.ChapterID)
	if !ok {
		return quran.ChapterMeta{}, errors.NewValidation("ref", "unknown chapter "+ref.ChapterID)
	}
	if !meta.Contains(ref.Verse) {
		return quran.ChapterMeta{}, errors.NewValidation("ref", "no such verse "+ref.String())
	}
	return meta, nil
}
