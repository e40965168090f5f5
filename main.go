// Package main provides the sitetree CLI entrypoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lukemcguire/sitetree/config"
	"github.com/lukemcguire/sitetree/crawler"
	"github.com/lukemcguire/sitetree/logging"
	"github.com/lukemcguire/sitetree/result"
	"github.com/lukemcguire/sitetree/tui"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// errMissingURL is returned when no seed URL comes from flags, env or file.
var errMissingURL = errors.New(`required flag "url" not set`)

// errInterrupted is returned when the user quits the TUI before the crawl ends.
var errInterrupted = errors.New("crawl interrupted")

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sitetree -u URL [flags]",
		Short: "Map the pages of a site as a tree",
		Long: `sitetree crawls a site from a seed URL and prints every same-domain page
it reaches as a tree, one line per page, indented by depth.

Every flag can also be set in a YAML file (--config) or through a
SITETREE_* environment variable, e.g. SITETREE_LOG_LEVEL=debug.`,
		Version:       version,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, err := cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("read config flag: %w", err)
			}
			cfg, err := config.Load(cfgPath, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return run(cmd.Context(), cfg, stdout, stderr)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	config.RegisterFlags(rootCmd.Flags())

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("sitetree %s\n", version)
		},
	})

	return rootCmd
}

func run(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) (err error) {
	if cfg.URL == "" {
		return errMissingURL
	}

	logger, logCloser, err := logging.Setup(cfg.Logging(), stderr)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer func() {
		if closeErr := logCloser.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close log file: %w", closeErr)
		}
	}()
	logger = logger.With().Str("run_id", uuid.NewString()).Logger()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []crawler.Option{crawler.WithLogger(logger)}
	var progressCh chan crawler.CrawlEvent
	if cfg.TUI {
		progressCh = make(chan crawler.CrawlEvent, 100)
		opts = append(opts, crawler.WithProgress(progressCh))
	}

	crawlerInstance, err := crawler.New(cfg.Crawler(), opts...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := crawlerInstance.Close(); closeErr != nil {
			logger.Warn().Err(closeErr).Msg("release visited set")
		}
	}()

	var res *result.Result
	if cfg.TUI {
		res, err = runTUI(ctx, crawlerInstance, progressCh, stdout)
	} else {
		res, err = crawlerInstance.Run(ctx)
	}
	if err != nil {
		return err
	}

	styled := cfg.TUI && cfg.Format == config.FormatText
	if err := writeResult(stdout, cfg.Format, res, styled); err != nil {
		return err
	}
	if !styled {
		result.PrintSummary(stderr, res.Stats)
	}
	logSummary(logger, res)
	return nil
}

func runTUI(ctx context.Context, crawlerInstance *crawler.Crawler, progressCh <-chan crawler.CrawlEvent, stdout io.Writer) (*result.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewModel(ctx, cancel, crawlerInstance, progressCh)
	finalModel, err := tea.NewProgram(model, tea.WithOutput(stdout)).Run()
	if err != nil {
		return nil, fmt.Errorf("run tui: %w", err)
	}

	final, ok := finalModel.(tui.Model)
	if !ok {
		return nil, fmt.Errorf("run tui: unexpected model %T", finalModel)
	}
	if final.Interrupted() {
		return nil, errInterrupted
	}
	if final.Err() != nil {
		return nil, final.Err()
	}
	return final.GetResult(), nil
}

// writeResult writes the tree in format. Styled text output carries its own
// header and failure summary.
func writeResult(w io.Writer, format string, res *result.Result, styled bool) error {
	switch format {
	case config.FormatJSON:
		return result.WriteJSON(w, res.Root)
	case config.FormatCSV:
		return result.WriteCSV(w, res.Root)
	default:
		if styled {
			if _, err := io.WriteString(w, tui.RenderSummary(res)); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			return nil
		}
		result.PrintTree(w, res.Root, res.MaxDepth)
		return nil
	}
}

func logSummary(logger zerolog.Logger, res *result.Result) {
	event := logger.Info().
		Int("pages", res.Stats.Pages).
		Int("height", res.Root.Height())
	for cat, n := range res.Stats.Failures {
		event = event.Int(string(cat), n)
	}
	event.Msg("tree written")
}
