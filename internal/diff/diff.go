// Package diff renders unified diffs for Fix/patch descriptions and
// heal_and_verify's verification report (SPEC_FULL.md §4.17), wrapping
// `github.com/sergi/go-diff/diffmatchpatch` the way the teacher's own
// internal/diff/diff.go does — adopted as the concrete dependency instead
// of hand-rolling an LCS, per the teacher's own stated reason for
// abandoning a manual implementation.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineKind discriminates one line of a rendered hunk.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineRemoved
)

// Line is one line of a hunk, tagged with its 1-based old/new line numbers
// (0 when the line does not exist on that side).
type Line struct {
	OldLine int
	NewLine int
	Content string
	Kind    LineKind
}

// Hunk is a contiguous group of changed lines plus surrounding context.
type Hunk struct {
	OldStart, OldCount int
	NewStart, NewCount int
	Lines              []Line
}

// Engine computes line-level diffs via diffmatchpatch.
type Engine struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewEngine creates a diff Engine with timeouts disabled for accuracy on
// the small source snippets AURA diffs (patches, not whole repos).
func NewEngine() *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return &Engine{dmp: dmp}
}

const contextLines = 3

// Hunks computes the hunk-grouped line diff between oldContent and
// newContent.
func (e *Engine) Hunks(oldContent, newContent string) []Hunk {
	a, b, lineArray := e.dmp.DiffLinesToChars(oldContent, newContent)
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCleanupSemantic(diffs)
	diffs = e.dmp.DiffCharsToLines(diffs, lineArray)

	ops := diffsToLines(diffs)
	return groupHunks(ops, contextLines)
}

// Unified renders a standard unified diff (---/+++/@@ headers) between
// oldContent and newContent, labeled with oldPath/newPath.
func (e *Engine) Unified(oldPath, newPath, oldContent, newContent string) string {
	hunks := e.Hunks(oldContent, newContent)
	if len(hunks) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n", oldPath)
	fmt.Fprintf(&b, "+++ %s\n", newPath)
	for _, h := range hunks {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, l := range h.Lines {
			switch l.Kind {
			case LineAdded:
				b.WriteString("+" + l.Content + "\n")
			case LineRemoved:
				b.WriteString("-" + l.Content + "\n")
			default:
				b.WriteString(" " + l.Content + "\n")
			}
		}
	}
	return b.String()
}

// DefaultEngine is a package-level Engine for callers that don't need their
// own instance (Patch/healing-report rendering rarely needs caching across
// calls at AURA's scale, unlike the teacher's whole-repo diff engine).
var DefaultEngine = NewEngine()

// Unified renders a unified diff using DefaultEngine.
func Unified(oldPath, newPath, oldContent, newContent string) string {
	return DefaultEngine.Unified(oldPath, newPath, oldContent, newContent)
}

type lineOp struct {
	kind           LineKind
	oldLine        int
	newLine        int
	content        string
}

func diffsToLines(diffs []diffmatchpatch.Diff) []lineOp {
	var ops []lineOp
	oldLine, newLine := 0, 0

	for _, d := range diffs {
		lines := strings.Split(d.Text, "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		for _, line := range lines {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				ops = append(ops, lineOp{kind: LineContext, oldLine: oldLine, newLine: newLine, content: line})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				ops = append(ops, lineOp{kind: LineRemoved, oldLine: oldLine, newLine: -1, content: line})
				oldLine++
			case diffmatchpatch.DiffInsert:
				ops = append(ops, lineOp{kind: LineAdded, oldLine: -1, newLine: newLine, content: line})
				newLine++
			}
		}
	}
	return ops
}

func groupHunks(ops []lineOp, ctx int) []Hunk {
	if len(ops) == 0 {
		return nil
	}

	var hunks []Hunk
	var cur *Hunk
	lastChange := -1

	flush := func(upTo int) {
		if cur == nil {
			return
		}
		if upTo >= 0 && upTo < len(cur.Lines) {
			cur.Lines = cur.Lines[:upTo]
		}
		for _, l := range cur.Lines {
			switch l.Kind {
			case LineRemoved:
				cur.OldCount++
			case LineAdded:
				cur.NewCount++
			default:
				cur.OldCount++
				cur.NewCount++
			}
		}
		hunks = append(hunks, *cur)
		cur = nil
	}

	for i, op := range ops {
		isChange := op.kind != LineContext
		if isChange && cur == nil {
			start := i - ctx
			if start < 0 {
				start = 0
			}
			cur = &Hunk{}
			for j := start; j < i; j++ {
				if ops[j].kind == LineContext {
					cur.Lines = append(cur.Lines, toLine(ops[j]))
				}
			}
			cur.OldStart = ops[start].oldLine + 1
			cur.NewStart = ops[start].newLine + 1
		}
		if isChange {
			lastChange = i
		}
		if cur == nil {
			continue
		}
		cur.Lines = append(cur.Lines, toLine(op))

		if op.kind == LineContext && i-lastChange > ctx {
			trimTo := len(cur.Lines) - (i - lastChange - ctx)
			flush(trimTo)
		}
	}
	flush(-1)
	return hunks
}

func toLine(op lineOp) Line {
	return Line{OldLine: op.oldLine + 1, NewLine: op.newLine + 1, Content: op.content, Kind: op.kind}
}
