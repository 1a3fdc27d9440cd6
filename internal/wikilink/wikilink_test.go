package wikilink

import (
	"strings"
	"testing"
)

func TestScan_Components(t *testing.T) {
	content := []byte("See [[old/sub/note#Heading|Alias]] and ![[old/sub/note]].\n[[plain]]")
	occs := Scan(content)
	if len(occs) != 3 {
		t.Fatalf("got %d occurrences, want 3", len(occs))
	}

	o := occs[0]
	if o.Target != "old/sub/note" || o.Anchor != "Heading" || o.Alias != "Alias" || o.Embed {
		t.Errorf("first = %+v", o)
	}
	if string(content[o.Start:o.End]) != "[[old/sub/note#Heading|Alias]]" || o.Raw != string(content[o.Start:o.End]) {
		t.Errorf("raw offsets wrong: %q", content[o.Start:o.End])
	}
	if string(content[o.TargetStart:o.TargetEnd]) != "old/sub/note" {
		t.Errorf("target offsets wrong: %q", content[o.TargetStart:o.TargetEnd])
	}

	if e := occs[1]; !e.Embed || e.Raw != "![[old/sub/note]]" || e.HasAlias || e.HasAnchor {
		t.Errorf("embed = %+v", e)
	}
	if p := occs[2]; p.Target != "plain" || p.Start != strings.Index(string(content), "[[plain]]") {
		t.Errorf("plain = %+v", p)
	}
}

func TestScan_SkipsCode(t *testing.T) {
	content := []byte(strings.Join([]string{
		"```",
		"[[in/fence]]",
		"```",
		"inline `[[in/code]]` but [[outside]]",
		"~~~~markdown",
		"[[tilde/fence]]",
		"~~~~",
		"unclosed `tick [[after/tick]]",
	}, "\n"))
	occs := Scan(content)
	if len(occs) != 1 || occs[0].Target != "outside" {
		t.Fatalf("occurrences = %+v, want only outside", occs)
	}
}

func TestScan_EdgeCases(t *testing.T) {
	cases := map[string][]string{
		"[[a]][[b]]":       {"a", "b"},
		"[[[x]]]":          nil,
		"[[ spaced ]]":     {"spaced"},
		"[[]]":             nil,
		"[[#Self]]":        {""},
		"[[a\nb]]":         nil,
		"[[x [[y]]":        {"y"},
		"| [[t/n\\|al]] |": {"t/n"},
	}
	for in, want := range cases {
		occs := Scan([]byte(in))
		if len(occs) != len(want) {
			t.Errorf("Scan(%q) = %d occurrences, want %d", in, len(occs), len(want))
			continue
		}
		for i, o := range occs {
			if o.Target != want[i] {
				t.Errorf("Scan(%q)[%d].Target = %q, want %q", in, i, o.Target, want[i])
			}
		}
	}
}

func TestRewrite_PreservesEverythingElse(t *testing.T) {
	content := []byte("A [[old/sub/note#Heading|Alias]]\nB ![[old/sub/note]]\nC [[old-2/sub/note]]\n")
	occs := Scan(content)
	out, n := Rewrite(content, occs, func(o Occurrence) (string, bool) {
		if o.Target == "old" || strings.HasPrefix(o.Target, "old/") {
			return "new" + strings.TrimPrefix(o.Target, "old"), true
		}
		return "", false
	})
	want := "A [[new/sub/note#Heading|Alias]]\nB ![[new/sub/note]]\nC [[old-2/sub/note]]\n"
	if string(out) != want {
		t.Errorf("got %q\nwant %q", out, want)
	}
	if n != 2 {
		t.Errorf("rewritten = %d, want 2", n)
	}
}

func TestRewrite_NoMatchReturnsInput(t *testing.T) {
	content := []byte("nothing [[here]]")
	out, n := Rewrite(content, Scan(content), func(Occurrence) (string, bool) { return "", false })
	if n != 0 || string(out) != string(content) {
		t.Errorf("got %q, %d", out, n)
	}
}

func TestRewrite_EscapedTablePipe(t *testing.T) {
	content := []byte("| [[old/n\\|alias]] |")
	out, _ := Rewrite(content, Scan(content), func(o Occurrence) (string, bool) {
		return strings.Replace(o.Target, "old", "new", 1), true
	})
	if string(out) != "| [[new/n\\|alias]] |" {
		t.Errorf("got %q", out)
	}
}
