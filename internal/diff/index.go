package diff

import "strings"

// AddedLine is a single '+' line from a patch.
type AddedLine struct {
	// Content is the line text without the leading '+'.
	Content string
	// Position is the 1-based index of the line within the raw patch text
	// stream, counting every line of the patch including hunk headers and
	// context. This is the value the hosting API expects for inline comments.
	Position int
}

// Index holds the ordered added lines of exactly one file+patch pair.
// It is built once and read-only thereafter. Positions are strictly
// increasing and preserve the order of appearance in the patch.
type Index struct {
	added []AddedLine
}

// Build walks the patch text and records every added line with its position.
// A line counts as added iff it starts with '+' and is not the '+++' file
// header. An empty patch, or one with only deletions and context, yields an
// index with zero added lines; callers skip such files entirely.
func Build(patch string) Index {
	if patch == "" {
		return Index{}
	}

	var added []AddedLine
	position := 0
	for _, line := range strings.Split(patch, "\n") {
		position++
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			added = append(added, AddedLine{
				Content:  line[1:],
				Position: position,
			})
		}
	}

	return Index{added: added}
}

// Len returns the number of added lines in the index.
func (ix Index) Len() int {
	return len(ix.added)
}

// At returns the added line at the given 0-based index.
// ok is false when i is out of range.
func (ix Index) At(i int) (AddedLine, bool) {
	if i < 0 || i >= len(ix.added) {
		return AddedLine{}, false
	}
	return ix.added[i], true
}

// AddedLines returns the full added-line sequence in patch order.
func (ix Index) AddedLines() []AddedLine {
	return ix.added
}
