package openrouter

import (
	"fmt"
	"strings"

	"github.com/sherpai/sherpai/internal/diff"
)

const systemPrompt = "You are an experienced code reviewer. You comment only on " +
	"real problems: bugs, security issues, performance traps, and misleading " +
	"code. You never praise, restate the diff, or comment on style."

// BuildPrompt renders the user prompt for one changed file. Added lines are
// numbered [Line 1], [Line 2], ... in diff order; the model must reference
// issues by that number so responses stay independent of diff positions.
func BuildPrompt(filename, instructions string, index diff.Index) string {
	var b strings.Builder

	b.WriteString("Review the following added lines from `")
	b.WriteString(filename)
	b.WriteString("`.\n\n")

	for i, line := range index.AddedLines() {
		fmt.Fprintf(&b, "[Line %d] %s\n", i+1, line.Content)
	}

	b.WriteString("\nRespond with a JSON array only. Each element has the shape\n")
	b.WriteString(`{"line": <number from the [Line N] markers>, "text": "<the comment>"}` + "\n")
	b.WriteString("Omit \"line\" for a remark about the file as a whole. ")
	b.WriteString("Return [] when there is nothing worth flagging.")

	if instructions != "" {
		b.WriteString("\n\nAdditional reviewer instructions:\n")
		b.WriteString(instructions)
	}

	return b.String()
}
