package cli

import (
	"fmt"
	"strings"

	"github.com/bastiangx/bookserve/pkg/catalog"
	"github.com/bastiangx/bookserve/pkg/search"
	"github.com/bastiangx/bookserve/pkg/session"
	"github.com/bastiangx/bookserve/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
)

var (
	subtle = lipgloss.AdaptiveColor{Light: "#797593", Dark: "#908caa"}
	accent = lipgloss.AdaptiveColor{Light: "#907aa9", Dark: "#c4a7e7"}
	good   = lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"}
	bad    = lipgloss.AdaptiveColor{Light: "#b4637a", Dark: "#eb6f92"}

	labelStyle     = lipgloss.NewStyle().Bold(true).Width(7).Foreground(accent)
	secondaryStyle = lipgloss.NewStyle().Italic(true).Foreground(subtle)
	cursorStyle    = lipgloss.NewStyle().Bold(true).Foreground(good)
	headerStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(subtle)
	currentStyle   = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(accent)
	okStyle        = lipgloss.NewStyle().Foreground(good)
	errStyle       = lipgloss.NewStyle().Foreground(bad)
)

const (
	titleWidth  = 34
	authorWidth = 22
	codeWidth   = 14
)

// RenderDropdown draws the suggestion list of v. It returns an empty string
// when there is nothing to show.
func RenderDropdown(v session.View) string {
	if v.NoMatches {
		return mutedStyle.Render(fmt.Sprintf("No matches for %q", v.Query))
	}
	if !v.Open || len(v.Candidates) == 0 {
		return ""
	}

	var b strings.Builder
	for i, c := range v.Candidates {
		marker := "  "
		if i == v.Cursor {
			marker = cursorStyle.Render("> ")
		}
		b.WriteString(marker)
		b.WriteString(labelStyle.Render(c.Kind.Label()))
		b.WriteString(" ")
		b.WriteString(renderCandidateText(c, i == v.Cursor))
		if sec := c.Secondary(); sec != "" {
			b.WriteString(" ")
			b.WriteString(secondaryStyle.Render("(" + sec + ")"))
		}
		if i < len(v.Candidates)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderCandidateText(c suggest.Candidate, highlighted bool) string {
	if highlighted {
		return cursorStyle.Render(c.Text)
	}
	return c.Text
}

// RenderPage draws a page of search results as a table followed by a page
// strip of at most window numbers.
func RenderPage(p *search.Page, window int) string {
	if p == nil {
		return ""
	}
	if p.Total == 0 || len(p.Entries) == 0 {
		return mutedStyle.Render(fmt.Sprintf("No results for %q", p.Request.Text))
	}

	var b strings.Builder
	from, to := p.Range()
	scope := ""
	if p.Request.Field != search.FieldAll && p.Request.Field != "" {
		scope = " in " + string(p.Request.Field)
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("Showing %d-%d of %d results for %q%s", from, to, p.Total, p.Request.Text, scope)))
	b.WriteString("\n")

	for i, e := range p.Entries {
		b.WriteString(renderRow(from+i, e))
		b.WriteString("\n")
	}
	b.WriteString(RenderPageStrip(p, window))
	return b.String()
}

func renderRow(n int, e *catalog.Entry) string {
	status := e.Status.Label()
	if e.Available() {
		status = okStyle.Render(fmt.Sprintf("%s (%d)", status, e.Copies))
	} else {
		status = mutedStyle.Render(status)
	}
	return fmt.Sprintf("%3d. %s  %s  %s  %s",
		n,
		pad(truncate(e.Title, titleWidth), titleWidth),
		pad(truncate(e.Author, authorWidth), authorWidth),
		pad(e.Code, codeWidth),
		status,
	)
}

// RenderPageStrip draws "< prev  1 [2] 3  next >" with unavailable ends muted.
func RenderPageStrip(p *search.Page, window int) string {
	if p.TotalPages < 2 {
		return mutedStyle.Render(fmt.Sprintf("Page %d of %d", max(p.Page, 1), max(p.TotalPages, 1)))
	}

	parts := make([]string, 0, window+2)
	if p.HasPrev() {
		parts = append(parts, "< prev")
	} else {
		parts = append(parts, mutedStyle.Render("< prev"))
	}
	for _, n := range search.Window(p.Page, p.TotalPages, window) {
		if n == p.Page {
			parts = append(parts, currentStyle.Render(fmt.Sprintf("[%d]", n)))
			continue
		}
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	if p.HasNext() {
		parts = append(parts, "next >")
	} else {
		parts = append(parts, mutedStyle.Render("next >"))
	}
	return strings.Join(parts, " ")
}

// RenderResult formats the outcome of an action for the user.
func RenderResult(msg string, ok bool) string {
	if ok {
		return okStyle.Render(msg)
	}
	return errStyle.Render(msg)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func pad(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}
