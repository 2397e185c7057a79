package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"dhc-casetracker/internal/config"
	"dhc-casetracker/internal/database"
	"dhc-casetracker/internal/fetch"
	"dhc-casetracker/internal/pipeline"
	"dhc-casetracker/internal/scrape"
	"dhc-casetracker/pkg/logger"
)

var (
	searchDownload *bool
	searchNoFall   *bool
)

func init() {
	searchDownload = searchCmd.Flags().Bool("download", false, "Download discovered PDFs immediately.")
	searchNoFall = searchCmd.Flags().Bool("no-browser", false, "Disable the browser fallback fetch.")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <case-type> <case-number> <filing-year>",
	Short: "Runs one case search against the court website and prints the result.",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fatal("failed to load configuration", err)
		}

		log, err := logger.NewLogger(cfg.LogLevel, "console")
		if err != nil {
			fatal("failed to initialize logger", err)
		}
		defer log.Sync()

		db, err := database.Initialize(cfg.DatabasePath)
		if err != nil {
			fatal("failed to open database", err)
		}
		store := database.NewStore(db)

		pool := fetch.NewPool(cfg.SessionTTL, func() (*fetch.Session, error) {
			return fetch.NewSession(cfg.CourtBaseURL, cfg.RequestTimeout, cfg.FetchDelay)
		})
		defer pool.Close()

		var browser fetch.BrowserFetcher
		if !*searchNoFall {
			browser = fetch.NewBrowser(cfg, log)
		}

		fetcher := fetch.NewFetcher(pool, browser, cfg.CourtBaseURL, log)
		parser := scrape.NewParser(cfg.CourtBaseURL)
		resolver := scrape.NewResolver(cfg.DownloadDir, cfg.MaxPDFSize, cfg.RequestTimeout, log)

		p := pipeline.New(fetcher, parser, resolver, store, log, nil, *searchDownload)

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		outcome := p.Run(ctx, args[0], args[1], args[2], "cli")

		if len(outcome.FieldErrors) > 0 {
			for _, fe := range outcome.FieldErrors {
				fmt.Fprintln(os.Stderr, fe.Error())
			}
			os.Exit(2)
		}
		if outcome.Err != nil {
			fatal("search failed", outcome.Err)
		}

		printCase(outcome)
	},
}

func printCase(outcome *pipeline.Outcome) {
	c := outcome.Case

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Case", c.CaseType + " " + c.CaseNumber + "/" + fmt.Sprint(c.FilingYear)},
		{"Title", c.Title()},
		{"Status", c.Status},
		{"Filing date", tableDate(c.FilingDate)},
		{"Next hearing", tableDate(c.NextHearing)},
		{"Bench", c.Bench},
		{"Advocate", c.Advocate},
		{"Fetched via", outcome.FetchVia},
	})
	t.Render()

	if len(outcome.Documents) == 0 {
		return
	}

	docs := table.NewWriter()
	docs.SetOutputMirror(os.Stdout)
	docs.AppendHeader(table.Row{"#", "Type", "Description", "Downloaded"})
	for i, d := range outcome.Documents {
		docs.AppendRow(table.Row{i + 1, d.DocumentType, d.Description, d.IsDownloaded()})
	}
	docs.Render()

	if outcome.FailedDocs > 0 {
		fmt.Fprintf(os.Stderr, "%d document(s) could not be downloaded\n", outcome.FailedDocs)
	}
}

func tableDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02 Jan 2006")
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
