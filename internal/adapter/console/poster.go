// Package console renders review output to a terminal for local runs. It
// implements the same poster port as the GitHub adapter, so the orchestrator
// does not know whether comments land on a PR or on stdout.
package console

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/sherpai/sherpai/internal/usecase/review"
)

// ANSI color codes, applied only when writing to a TTY.
const (
	colorReset  = "\033[0m"
	colorCyan   = "\033[36m"
	colorYellow = "\033[33m"
)

// Poster writes review comments to an io.Writer.
type Poster struct {
	out      io.Writer
	colorize bool
}

// NewPoster creates a console poster for stdout, with colors when stdout is
// a terminal.
func NewPoster() *Poster {
	return &Poster{
		out:      os.Stdout,
		colorize: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// NewPosterTo creates a console poster for an arbitrary writer, uncolored.
func NewPosterTo(out io.Writer) *Poster {
	return &Poster{out: out}
}

// PostLineComment implements review.Poster.
func (p *Poster) PostLineComment(ctx context.Context, req review.LineCommentRequest) error {
	location := fmt.Sprintf("%s (diff position %d)", req.Path, req.Position)
	if p.colorize {
		location = colorCyan + location + colorReset
	}
	_, err := fmt.Fprintf(p.out, "%s\n  %s\n\n", location, req.Body)
	return err
}

// PostGeneralComment implements review.Poster.
func (p *Poster) PostGeneralComment(ctx context.Context, req review.GeneralCommentRequest) error {
	body := req.Body
	if p.colorize {
		body = colorYellow + body + colorReset
	}
	_, err := fmt.Fprintf(p.out, "%s\n\n", body)
	return err
}
