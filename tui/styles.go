package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/lukemcguire/sitetree/result"
)

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	successStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle        = lipgloss.NewStyle().Faint(true)
	rootStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	enumeratorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).MarginRight(1)
	urlStyle        = lipgloss.NewStyle()
	countStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// RenderTree draws the page tree with box-drawing branches.
func RenderTree(root *result.Page) string {
	if root == nil {
		return ""
	}
	return buildTree(root).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(enumeratorStyle).
		RootStyle(rootStyle).
		ItemStyle(urlStyle).
		String()
}

func buildTree(page *result.Page) *tree.Tree {
	node := tree.Root(page.URL)
	for _, child := range page.Children() {
		if len(child.Children()) == 0 {
			node.Child(child.URL)
			continue
		}
		node.Child(buildTree(child))
	}
	return node
}

// renderFinished is the last frame the progress view leaves on screen. The
// tree itself is written separately once the program has exited.
func renderFinished(res *result.Result) string {
	if res == nil {
		return errorStyle.Render("No results available.") + "\n"
	}
	return successStyle.Render(fmt.Sprintf("Crawl finished: %d pages", res.Stats.Pages)) + "\n"
}

// RenderSummary produces a Lip Gloss styled report of a finished crawl: the
// tree, a one-line summary, and a table of failures by category.
func RenderSummary(res *result.Result) string {
	if res == nil || res.Root == nil {
		return errorStyle.Render("No results available.")
	}

	var builder strings.Builder

	builder.WriteString(titleStyle.Render(fmt.Sprintf("SOURCE URL: %s", res.Root.URL)))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf("MAX DEPTH: %d", res.MaxDepth)))
	builder.WriteString("\n\n")
	builder.WriteString(RenderTree(res.Root))
	builder.WriteString("\n\n")

	line := fmt.Sprintf("Mapped %d pages (%d fetched, %d failed) in %s",
		res.Stats.Pages,
		res.Stats.Fetched,
		res.Stats.Failed,
		res.Stats.Duration.Round(1_000_000), // round to ms
	)
	if res.Stats.Failed == 0 {
		builder.WriteString(successStyle.Render(line))
		builder.WriteString("\n")
		return builder.String()
	}
	builder.WriteString(titleStyle.Render(line))
	builder.WriteString("\n")

	rows := make([][]string, 0, len(res.Stats.Failures))
	for _, cat := range result.Categories() {
		if n := res.Stats.Failures[cat]; n > 0 {
			rows = append(rows, []string{result.FormatCategory(cat), strconv.Itoa(n)})
		}
	}

	failures := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Failure", "Pages").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 {
				return countStyle
			}
			return urlStyle
		}).
		Rows(rows...)

	builder.WriteString(failures.Render())
	builder.WriteString("\n")

	return builder.String()
}
