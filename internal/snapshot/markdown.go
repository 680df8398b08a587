package snapshot

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a snapshot document as markdown for humans.
// A nil document renders as a short notice.
func RenderMarkdown(s *SavedState) string {
	var b strings.Builder
	if s == nil {
		b.WriteString("# Snapshot\n\nNo snapshot has been saved yet.\n")
		return b.String()
	}

	b.WriteString("# Snapshot\n\n")
	fmt.Fprintf(&b, "Saved %s. %d group(s), %d tab(s).\n", s.SavedAt.UTC().Format(time.RFC3339), len(s.Groups), s.TabCount())

	if len(s.UngroupedTabs) > 0 {
		b.WriteString("\n## Ungrouped tabs\n\n")
		writeTabList(&b, s.UngroupedTabs)
	}

	for _, g := range s.Groups {
		fmt.Fprintf(&b, "\n## %s\n\n", headingText(g.Title))
		meta := []string{}
		if g.Color != "" {
			meta = append(meta, "color: "+string(g.Color))
		}
		if g.Collapsed {
			meta = append(meta, "collapsed")
		}
		if len(meta) > 0 {
			fmt.Fprintf(&b, "_%s_\n\n", strings.Join(meta, ", "))
		}
		if len(g.Tabs) == 0 {
			b.WriteString("(no tabs)\n")
			continue
		}
		writeTabList(&b, g.Tabs)
	}
	return b.String()
}

func writeTabList(b *strings.Builder, tabs []SavedTab) {
	for _, t := range tabs {
		label := t.Title
		if label == "" {
			label = t.URL
		}
		pin := ""
		if t.Pinned {
			pin = " (pinned)"
		}
		fmt.Fprintf(b, "- [%s](<%s>)%s\n", escapeLinkText(label), t.URL, pin)
	}
}

// headingText keeps empty or whitespace titles visible as headings.
func headingText(title string) string {
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return escapeLinkText(title)
}

var linkTextEscaper = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`, `*`, `\*`, `_`, `\_`, "`", "\\`", `<`, `\<`)

func escapeLinkText(s string) string {
	return linkTextEscaper.Replace(s)
}
