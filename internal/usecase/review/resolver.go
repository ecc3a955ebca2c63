package review

import (
	"github.com/sherpai/sherpai/internal/diff"
	"github.com/sherpai/sherpai/internal/domain"
)

// Resolve maps a raw model comment onto the diff for one file.
//
// A comment without a line reference becomes a GeneralComment. A comment with
// a line reference is an ordinal into the added lines of the patch: the model
// is shown the patch with additions numbered 1..k, so it never needs absolute
// file coordinates. Resolve translates that ordinal back into the raw-patch
// position the posting API requires.
//
// Both returns are nil when the ordinal falls outside the added lines.
// Models sometimes miscount or reference context or removed lines, and such
// comments are dropped rather than treated as errors.
func Resolve(raw domain.ReviewComment, index diff.Index, path string) (*domain.ResolvedComment, *domain.GeneralComment) {
	if raw.Line == nil {
		return nil, &domain.GeneralComment{Text: raw.Text}
	}

	added, ok := index.At(*raw.Line - 1)
	if !ok {
		return nil, nil
	}

	return &domain.ResolvedComment{
		Path:     path,
		Position: added.Position,
		Text:     raw.Text,
	}, nil
}
