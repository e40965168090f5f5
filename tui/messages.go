package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lukemcguire/sitetree/crawler"
	"github.com/lukemcguire/sitetree/result"
)

// CrawlProgressMsg reports the outcome of a single fetch.
type CrawlProgressMsg struct {
	Fetched int
	Failed  int
	Depth   int
	URL     string
}

// CrawlDoneMsg signals the crawl has completed.
type CrawlDoneMsg struct {
	Result *result.Result
	Err    error
}

// progressClosedMsg is sent once the crawler closes its progress channel.
type progressClosedMsg struct{}

// waitForProgress returns a tea.Cmd that reads one event from the progress
// channel.
func waitForProgress(ch <-chan crawler.CrawlEvent) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return progressClosedMsg{}
		}
		return CrawlProgressMsg{
			Fetched: evt.Fetched,
			Failed:  evt.Failed,
			Depth:   evt.Depth,
			URL:     evt.URL,
		}
	}
}
