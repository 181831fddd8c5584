package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/qurani-maai/quranchat/core/errors"
	"github.com/qurani-maai/quranchat/core/quran"
	"github.com/qurani-maai/quranchat/core/textnorm"
	"github.com/qurani-maai/quranchat/internal/chat"
	"github.com/qurani-maai/quranchat/internal/logging"
)

const replHelp = `Commands:
  /new                 start a new session
  /sessions            list recent sessions
  /switch <id>         continue another session
  /progress            show reading progress
  /focus [ch:v]        show a verse in focus mode (last read or random)
  /next, /prev         move the focused verse
  /commentary [ch:v]   show the commentary of a verse
  /copy [ch:v]         print a citation
  /share [ch:v]        print a citation for sharing
  /listen [ch:v]       recitation
  /help                show this help
  /quit                leave`

// repl is the interactive chat loop. Plain lines go to the engine and lines
// starting with "/" are commands.
type repl struct {
	engine  *chat.Engine
	in      io.Reader
	out     io.Writer
	session string
	focus   *quran.VerseRef
}

func (r *repl) run(ctx context.Context, fresh bool) error {
	sess, err := currentSession(r.engine, fresh)
	if err != nil {
		return err
	}
	r.session = sess.ID
	renderHistory(r.out, sess)
	fmt.Fprintln(r.out, "(/help for commands)")

	sc := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(r.out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := r.command(ctx, line)
			if err != nil {
				fmt.Fprintf(r.out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		res, err := r.engine.Handle(ctx, r.session, line)
		if err != nil {
			logging.Error("chat message failed", "session_id", r.session, "error", err)
			fmt.Fprintln(r.out, chat.UnexpectedErrorNotice)
			continue
		}
		renderResult(r.out, res)
	}
}

// command runs one slash command and reports whether the loop should end.
func (r *repl) command(ctx context.Context, line string) (bool, error) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "quit", "exit":
		return true, nil

	case "help":
		fmt.Fprintln(r.out, replHelp)

	case "new":
		sess, err := r.engine.Start(true)
		if err != nil {
			return false, err
		}
		r.session, r.focus = sess.ID, nil
		renderHistory(r.out, sess)

	case "sessions":
		recent, err := r.engine.Recent()
		if err != nil {
			return false, err
		}
		renderRecent(r.out, recent, r.session)

	case "switch":
		if arg == "" {
			return false, errors.NewValidation("id", "usage: /switch <id>")
		}
		sess, err := r.engine.Switch(arg)
		if err != nil {
			return false, err
		}
		r.session, r.focus = sess.ID, nil
		renderHistory(r.out, sess)

	case "progress":
		p, err := r.engine.Progress()
		if err != nil {
			return false, err
		}
		renderProgress(r.out, p, r.engine.Chapters())

	case "focus":
		var (
			f   chat.Focus
			err error
		)
		if arg == "" {
			f, err = r.engine.Focus(ctx, r.session)
		} else {
			var ref quran.VerseRef
			if ref, err = parseRef(arg); err == nil {
				f, err = r.engine.FocusAt(ctx, ref)
			}
		}
		if err != nil {
			return false, r.focusFailed(err)
		}
		r.focus = &f.Ref
		renderFocus(r.out, f)

	case "next", "prev":
		if r.focus == nil {
			return false, errors.NewValidation("focus", "use /focus first")
		}
		dir := 1
		if name == "prev" {
			dir = -1
		}
		f, err := r.engine.Step(ctx, *r.focus, dir)
		if err != nil {
			return false, r.focusFailed(err)
		}
		r.focus = &f.Ref
		renderFocus(r.out, f)

	default:
		tool, ok := chat.ParseTool(name)
		if !ok {
			return false, errors.NewValidation("command", "unknown command /"+name)
		}
		ref, err := r.toolRef(arg)
		if err != nil {
			return false, err
		}
		out, err := r.engine.RunTool(ctx, r.session, ref, tool)
		if err != nil {
			return false, err
		}
		renderTool(r.out, out)
	}
	return false, nil
}

// focusFailed prints the focus notice for corpus failures.
func (r *repl) focusFailed(err error) error {
	if errors.Is(err, errors.ErrFetch) || errors.Is(err, errors.ErrMalformed) {
		logging.Warn("focus failed", "error", err)
		fmt.Fprintln(r.out, chat.FocusFailedNotice)
		return nil
	}
	return err
}

// toolRef parses arg, defaulting to the session's last read verse.
func (r *repl) toolRef(arg string) (quran.VerseRef, error) {
	if arg != "" {
		return parseRef(arg)
	}
	sess, err := r.engine.Session(r.session)
	if err != nil {
		return quran.VerseRef{}, err
	}
	if sess.LastRead == nil {
		return quran.VerseRef{}, errors.NewValidation("ref", "no verse read yet, give one as chapter:verse")
	}
	return *sess.LastRead, nil
}

// parseRef parses "chapter:verse" in ASCII or Arabic-Indic digits.
func parseRef(s string) (quran.VerseRef, error) {
	chapter, verse, ok := strings.Cut(textnorm.ASCIIDigits(strings.TrimSpace(s)), ":")
	if !ok {
		return quran.VerseRef{}, errors.NewValidation("ref", fmt.Sprintf("%q is not chapter:verse", s))
	}
	c, err := strconv.Atoi(strings.TrimSpace(chapter))
	if err != nil || c < 1 {
		return quran.VerseRef{}, errors.NewValidation("ref", fmt.Sprintf("invalid chapter in %q", s))
	}
	v, err := strconv.Atoi(strings.TrimSpace(verse))
	if err != nil || v < 1 {
		return quran.VerseRef{}, errors.NewValidation("ref", fmt.Sprintf("invalid verse in %q", s))
	}
	return quran.VerseRef{ChapterID: strconv.Itoa(c), Verse: v}, nil
}
