// Package static is a deterministic comment generator used when no model is
// configured. It applies a handful of mechanical checks to added lines, which
// keeps local review mode and development setups working offline.
package static

import (
	"context"
	"strings"

	"github.com/sherpai/sherpai/internal/diff"
	"github.com/sherpai/sherpai/internal/domain"
	"github.com/sherpai/sherpai/internal/usecase/review"
)

const maxLineLength = 120

// Generator implements review.CommentGenerator with fixed rules.
type Generator struct{}

// NewGenerator returns a rule-based generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate flags added lines that trip one of the mechanical checks.
// Line numbers are added-line ordinals, same contract as the model-backed
// generators.
func (g *Generator) Generate(ctx context.Context, req review.GenerateRequest) ([]domain.ReviewComment, error) {
	index := diff.Build(req.Patch)

	var comments []domain.ReviewComment
	for i, added := range index.AddedLines() {
		if text, flagged := check(added.Content); flagged {
			comments = append(comments, domain.ReviewComment{
				Line: domain.IntPtr(i + 1),
				Text: text,
			})
		}
	}
	return comments, nil
}

func check(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)

	switch {
	case strings.Contains(trimmed, "TODO") || strings.Contains(trimmed, "FIXME"):
		return "Unresolved TODO/FIXME marker in new code.", true
	case strings.Contains(trimmed, "fmt.Println("):
		return "Leftover debug print; use the project logger instead.", true
	case len(line) > maxLineLength:
		return "Line exceeds 120 characters; consider breaking it up.", true
	case line != "" && strings.TrimRight(line, " \t") != line:
		return "Trailing whitespace.", true
	}
	return "", false
}
