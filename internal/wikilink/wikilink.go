// Package wikilink finds and rewrites double-bracket references in Markdown.
//
// A reference has the form [[target#anchor|alias]], optionally prefixed with
// "!" to embed the target. References inside fenced code blocks and inline
// code spans are ignored.
package wikilink

import (
	"bytes"
	"sort"
	"strings"
)

// Occurrence is one reference found in a document. Offsets are byte
// positions in the scanned content; Raw is content[Start:End].
type Occurrence struct {
	Raw       string `json:"raw"`
	Target    string `json:"target"`
	Anchor    string `json:"anchor,omitempty"`
	Alias     string `json:"alias,omitempty"`
	HasAnchor bool   `json:"-"`
	HasAlias  bool   `json:"-"`
	Embed     bool   `json:"embed"`

	Start       int `json:"start"`
	End         int `json:"end"`
	TargetStart int `json:"-"`
	TargetEnd   int `json:"-"`
}

// Scan returns every reference in content in document order.
func Scan(content []byte) []Occurrence {
	var out []Occurrence
	inFence := false
	var fence string

	for off := 0; off < len(content); {
		end := bytes.IndexByte(content[off:], '\n')
		if end < 0 {
			end = len(content)
		} else {
			end += off
		}
		line := string(content[off:end])

		trim := strings.TrimSpace(line)
		switch {
		case inFence:
			if strings.HasPrefix(trim, fence) && strings.Trim(trim, fence[:1]) == "" {
				inFence = false
			}
		case strings.HasPrefix(trim, "```") || strings.HasPrefix(trim, "~~~"):
			inFence = true
			fence = fenceMarker(trim)
		default:
			out = append(out, scanLine(line, off)...)
		}
		off = end + 1
	}
	return out
}

// fenceMarker returns the run of fence characters opening a code block.
func fenceMarker(trim string) string {
	c := trim[0]
	n := 0
	for n < len(trim) && trim[n] == c {
		n++
	}
	return trim[:n]
}

func scanLine(line string, base int) []Occurrence {
	if !strings.Contains(line, "[[") {
		return nil
	}
	code := codeMask(line)
	var out []Occurrence

	for i := 0; i+1 < len(line); {
		start := strings.Index(line[i:], "[[")
		if start < 0 {
			break
		}
		start += i
		if code[start] {
			i = start + 1
			continue
		}
		// [[[x]]] is not a reference.
		if (start > 0 && line[start-1] == '[') || (start+2 < len(line) && line[start+2] == '[') {
			i = start + 1
			continue
		}
		closing := strings.Index(line[start+2:], "]]")
		if closing < 0 {
			break
		}
		closeAt := start + 2 + closing
		inner := line[start+2 : closeAt]
		if nested := strings.LastIndex(inner, "[["); nested >= 0 {
			i = start + 2 + nested
			continue
		}
		if spansCode(code, start, closeAt+2) {
			i = closeAt + 2
			continue
		}
		if occ, ok := parseInner(line, start, closeAt); ok {
			occ.Start += base
			occ.End += base
			occ.TargetStart += base
			occ.TargetEnd += base
			out = append(out, occ)
		}
		i = closeAt + 2
	}
	return out
}

// parseInner splits line[start+2:closeAt] into its components.
func parseInner(line string, start, closeAt int) (Occurrence, bool) {
	innerStart := start + 2
	inner := line[innerStart:closeAt]

	targetPart := inner
	occ := Occurrence{}
	if p := strings.IndexByte(inner, '|'); p >= 0 {
		occ.HasAlias = true
		occ.Alias = inner[p+1:]
		targetPart = inner[:p]
		// Inside tables the pipe is escaped as \|; the backslash is not part of the target.
		targetPart = strings.TrimSuffix(targetPart, `\`)
	}
	if h := strings.IndexByte(targetPart, '#'); h >= 0 {
		occ.HasAnchor = true
		occ.Anchor = targetPart[h+1:]
		targetPart = targetPart[:h]
	}

	lead := len(targetPart) - len(strings.TrimLeft(targetPart, " \t"))
	target := strings.TrimSpace(targetPart)
	if target == "" && !occ.HasAnchor {
		return Occurrence{}, false
	}

	occ.Target = target
	occ.TargetStart = innerStart + lead
	occ.TargetEnd = occ.TargetStart + len(target)
	occ.Start = start
	occ.End = closeAt + 2
	if start > 0 && line[start-1] == '!' {
		occ.Embed = true
		occ.Start = start - 1
	}
	occ.Raw = line[occ.Start:occ.End]
	return occ, true
}

// codeMask marks bytes that are inside backtick code spans, backticks
// included. An unclosed backtick makes the rest of the line code.
func codeMask(line string) []bool {
	mask := make([]bool, len(line))
	for i := 0; i < len(line); i++ {
		if line[i] != '`' {
			continue
		}
		end := strings.IndexByte(line[i+1:], '`')
		stop := len(line)
		if end >= 0 {
			stop = i + 1 + end + 1
		}
		for j := i; j < stop; j++ {
			mask[j] = true
		}
		i = stop - 1
	}
	return mask
}

func spansCode(mask []bool, from, to int) bool {
	for i := from; i < to && i < len(mask); i++ {
		if mask[i] {
			return true
		}
	}
	return false
}

// ReplaceFunc returns the new target for an occurrence and whether it should
// be replaced.
type ReplaceFunc func(Occurrence) (string, bool)

// Rewrite replaces the target component of the given occurrences and leaves
// every other byte of content untouched. occs must come from Scan(content).
func Rewrite(content []byte, occs []Occurrence, fn ReplaceFunc) ([]byte, int) {
	sorted := make([]Occurrence, len(occs))
	copy(sorted, occs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TargetStart < sorted[j].TargetStart })

	var buf bytes.Buffer
	buf.Grow(len(content))
	last, n := 0, 0
	for _, o := range sorted {
		if o.TargetStart < last || o.TargetEnd > len(content) {
			continue
		}
		repl, ok := fn(o)
		if !ok || repl == o.Target {
			continue
		}
		buf.Write(content[last:o.TargetStart])
		buf.WriteString(repl)
		last = o.TargetEnd
		n++
	}
	if n == 0 {
		return content, 0
	}
	buf.Write(content[last:])
	return buf.Bytes(), n
}
