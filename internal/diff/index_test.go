package diff_test

import (
	"strings"
	"testing"

	"github.com/sherpai/sherpai/internal/diff"
)

func TestBuild_CountsEveryRawLine(t *testing.T) {
	patch := strings.Join([]string{
		"@@ -1,2 +1,3 @@",
		" ctx",
		"+added1",
		"-removed",
		"+added2",
		"+++ b/file",
	}, "\n")

	ix := diff.Build(patch)

	if ix.Len() != 2 {
		t.Fatalf("expected 2 added lines, got %d", ix.Len())
	}

	want := []diff.AddedLine{
		{Content: "added1", Position: 3},
		{Content: "added2", Position: 5},
	}
	for i, w := range want {
		got, ok := ix.At(i)
		if !ok {
			t.Fatalf("At(%d) out of range", i)
		}
		if got != w {
			t.Errorf("added[%d] = %+v, want %+v", i, got, w)
		}
	}
}

func TestBuild_PlusPlusPlusHeaderIsNeverAnAddition(t *testing.T) {
	patch := strings.Join([]string{
		"--- a/file",
		"+++ b/file",
		"@@ -1 +1 @@",
		"-old",
		"+new",
	}, "\n")

	ix := diff.Build(patch)

	if ix.Len() != 1 {
		t.Fatalf("expected 1 added line, got %d", ix.Len())
	}
	got, _ := ix.At(0)
	if got.Content != "new" {
		t.Errorf("content = %q, want %q", got.Content, "new")
	}
	// '+new' is the 5th line of the raw patch stream.
	if got.Position != 5 {
		t.Errorf("position = %d, want 5", got.Position)
	}
}

func TestBuild_EmptyPatch(t *testing.T) {
	ix := diff.Build("")
	if ix.Len() != 0 {
		t.Errorf("expected empty index, got %d added lines", ix.Len())
	}
}

func TestBuild_DeletionsAndContextOnly(t *testing.T) {
	patch := strings.Join([]string{
		"@@ -1,3 +1,2 @@",
		" keep",
		"-gone",
		" keep too",
	}, "\n")

	ix := diff.Build(patch)
	if ix.Len() != 0 {
		t.Errorf("expected 0 added lines, got %d", ix.Len())
	}
}

func TestBuild_PositionsStrictlyIncreasing(t *testing.T) {
	patch := strings.Join([]string{
		"@@ -0,0 +1,4 @@",
		"+one",
		"+two",
		"+three",
		"+four",
	}, "\n")

	ix := diff.Build(patch)
	lines := ix.AddedLines()
	if len(lines) != 4 {
		t.Fatalf("expected 4 added lines, got %d", len(lines))
	}
	for i := 1; i < len(lines); i++ {
		if lines[i].Position <= lines[i-1].Position {
			t.Errorf("positions not strictly increasing at %d: %d then %d",
				i, lines[i-1].Position, lines[i].Position)
		}
	}
}

func TestAt_OutOfRange(t *testing.T) {
	ix := diff.Build("@@ -0,0 +1 @@\n+only")
	if _, ok := ix.At(-1); ok {
		t.Error("At(-1) should be out of range")
	}
	if _, ok := ix.At(1); ok {
		t.Error("At(1) should be out of range")
	}
}
