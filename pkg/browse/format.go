package browse

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/lepinkainen/reddit-feeds/pkg/feedtypes"
)

const (
	maxTitleLength   = 70
	maxContentLength = 1000
	wrapWidth        = 70
	divider          = "═══════════════════════════════════════════════════════════════════════\n"
)

// now is replaced in tests.
var now = time.Now

// wrapText wraps text to the specified width, breaking at word boundaries when possible
func wrapText(text string, width int) string {
	if width <= 0 {
		width = wrapWidth
	}

	var result, line strings.Builder
	lineLen := 0

	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)

		if lineLen > 0 && lineLen+1+wordLen > width {
			result.WriteString(line.String())
			result.WriteString("\n")
			line.Reset()
			lineLen = 0
		}

		if lineLen > 0 {
			line.WriteString(" ")
			lineLen++
		}

		line.WriteString(word)
		lineLen += wordLen
	}
	result.WriteString(line.String())

	return result.String()
}

// truncate shortens s to at most n runes, ending in "..." when cut
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// FormatCompactListItem formats a single post in compact list format
// Example: " 1. [1234↑  56💬] 2025-10-09T08:53:20Z  Post Title"
func FormatCompactListItem(index int, post feedtypes.Post) string {
	date := "unknown"
	if created := post.CreatedAt(); !created.IsZero() {
		date = created.UTC().Format(time.RFC3339)
	}

	title := truncate(post.Title, maxTitleLength)
	if post.Stickied {
		title = "📌 " + title
	}

	return fmt.Sprintf("%2d. [%4d↑ %3d💬] %s  %s", index+1, post.Score, post.NumComments, date, title)
}

// FormatDetailedItem formats a single post with all metadata
func FormatDetailedItem(post feedtypes.Post) string {
	var b strings.Builder

	b.WriteString(divider)
	fmt.Fprintf(&b, "Title: %s\n", post.Title)
	if post.URL != "" {
		fmt.Fprintf(&b, "Link: %s\n", post.URL)
	}

	if commentsLink := post.CommentsLink(); commentsLink != "" {
		fmt.Fprintf(&b, "Comments: %s\n", commentsLink)
	}

	if post.Author != "" {
		fmt.Fprintf(&b, "Author: u/%s\n", post.Author)
	}

	fmt.Fprintf(&b, "Score: %d | Comments: %d\n", post.Score, post.NumComments)

	if created := post.CreatedAt(); !created.IsZero() {
		fmt.Fprintf(&b, "Posted: %s\n", formatTimeAgo(created))
	}

	if category := post.Category(); category != "" {
		fmt.Fprintf(&b, "Subreddit: %s\n", category)
	}

	if post.Over18 {
		b.WriteString("NSFW\n")
	}

	if imageURL := post.ImageURL(); imageURL != "" {
		fmt.Fprintf(&b, "Image: %s\n", imageURL)
	}

	content := htmlToText(post.Content())
	if content == "" {
		content = post.SelfText
	}
	if content != "" {
		content = truncate(content, maxContentLength)
		b.WriteString("\nContent:\n")
		for _, line := range strings.Split(content, "\n") {
			b.WriteString(wrapText(line, wrapWidth))
			b.WriteString("\n")
		}
	}

	b.WriteString(divider)

	return b.String()
}

// blockElements start and end on their own line when rendered as text.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Blockquote: true, atom.Pre: true,
	atom.Ul: true, atom.Ol: true, atom.Table: true, atom.Tr: true, atom.Hr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
}

// htmlToText renders post HTML as plain text. Links whose text differs from
// the target keep the URL in parentheses.
func htmlToText(content string) string {
	if content == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			switch {
			case n.DataAtom == atom.Br:
				b.WriteString("\n")
				return
			case n.DataAtom == atom.Li:
				b.WriteString("\n• ")
			case blockElements[n.DataAtom]:
				b.WriteString("\n")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type != html.ElementNode {
			return
		}
		switch {
		case n.DataAtom == atom.A:
			if href := attr(n, "href"); href != "" && !strings.HasSuffix(b.String(), href) {
				fmt.Fprintf(&b, " (%s)", href)
			}
		case blockElements[n.DataAtom]:
			b.WriteString("\n")
		}
	}
	walk(doc)

	return normalizeLines(b.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// normalizeLines trims trailing space and collapses runs of blank lines
func normalizeLines(s string) string {
	var out []string
	blank := true
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// formatTimeAgo formats a time.Time as a human-readable "X ago" string
func formatTimeAgo(t time.Time) string {
	duration := now().Sub(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		mins := int(duration.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02")
	}
}
