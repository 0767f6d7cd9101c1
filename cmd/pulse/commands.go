// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/pulse"
	"github.com/poiesic/pulse/api"
	"github.com/poiesic/pulse/core"
	"github.com/poiesic/pulse/ingestion"
	"github.com/poiesic/pulse/jobs"
	"github.com/poiesic/pulse/query"
)

// openDatabase loads the config named by the global flag and opens the
// configured backend.
func openDatabase(c *cli.Context) (*pulse.Database, *pulse.AppConfig, error) {
	cfg, err := pulse.LoadConfig(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := pulse.NewDatabaseFromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, cfg, nil
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Ingest and classify a single piece of feedback",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "text", Usage: "Feedback text", Required: true},
			&cli.StringFlag{Name: "source", Usage: "Source (nps, zendesk, intercom, email, other)", Value: "other"},
			&cli.StringFlag{Name: "user-id", Usage: "User id for profile context"},
			&cli.StringFlag{Name: "email", Usage: "User email"},
			&cli.StringFlag{Name: "subscription", Usage: "Subscription tier (free, starter, pro, enterprise)"},
			&cli.Float64Flag{Name: "mrr", Usage: "Monthly recurring revenue for the account"},
			&cli.StringFlag{Name: "company", Usage: "Company name"},
			&cli.StringFlag{Name: "industry", Usage: "Industry"},
			&cli.IntFlag{Name: "nps", Usage: "NPS score 0-10", Value: -1},
			&cli.StringFlag{Name: "ticket-id", Usage: "Source ticket id"},
			&cli.StringFlag{Name: "ticket-priority", Usage: "Source ticket priority"},
			&cli.BoolFlag{Name: "skip-classification", Usage: "Embed and store without classifying"},
		},
		Action: func(c *cli.Context) error {
			db, _, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			pipeline, err := db.NewIngestionPipeline()
			if err != nil {
				return err
			}

			source, err := core.ParseSource(c.String("source"))
			if err != nil {
				return err
			}

			item := &core.FeedbackItem{
				Text:           c.String("text"),
				Source:         source,
				TicketID:       c.String("ticket-id"),
				TicketPriority: c.String("ticket-priority"),
			}
			if nps := c.Int("nps"); nps >= 0 {
				item.NPSScore = &nps
			}
			if userID := c.String("user-id"); userID != "" {
				profile := &core.UserProfile{
					UserID:           userID,
					Email:            c.String("email"),
					SubscriptionType: c.String("subscription"),
					CompanyName:      c.String("company"),
					Industry:         c.String("industry"),
				}
				if c.IsSet("mrr") {
					mrr := c.Float64("mrr")
					profile.MRR = &mrr
				}
				item.Profile = profile
			}

			ingested, err := pipeline.IngestSingle(c.Context, item, c.Bool("skip-classification"))
			if err != nil {
				return fmt.Errorf("ingestion failed: %w", err)
			}

			fmt.Printf("Ingested %s\n", ingested.ID)
			if cl := ingested.Classification; cl != nil {
				fmt.Printf("  sentiment:  %s\n", cl.Sentiment)
				fmt.Printf("  topics:     %s\n", strings.Join(cl.Topics, ", "))
				fmt.Printf("  urgency:    %s\n", cl.Urgency)
				fmt.Printf("  intent:     %s\n", cl.Intent)
				fmt.Printf("  summary:    %s\n", cl.Summary)
				fmt.Printf("  confidence: %.2f\n", cl.Confidence)
			}
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Bulk import feedback from an NPS CSV or Zendesk JSON export",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "File format: csv or json (inferred from extension when omitted)",
			},
			&cli.BoolFlag{
				Name:  "background",
				Usage: "Run the import as a tracked background job",
			},
			&cli.BoolFlag{
				Name:  "profiles",
				Usage: "Treat the CSV as a user profile export instead of feedback",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one file argument")
			}
			path := c.Args().First()

			format := c.String("format")
			if format == "" {
				switch {
				case strings.HasSuffix(path, ".csv"):
					format = "csv"
				case strings.HasSuffix(path, ".json"):
					format = "json"
				default:
					return fmt.Errorf("cannot infer format of %s; pass --format", path)
				}
			}

			db, _, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			pipeline, err := db.NewIngestionPipeline()
			if err != nil {
				return err
			}

			if c.Bool("profiles") {
				if format != "csv" {
					return fmt.Errorf("profile imports only support csv")
				}
				count, err := pipeline.ImportProfilesCSV(c.Context, path)
				if err != nil {
					return fmt.Errorf("profile import failed: %w", err)
				}
				fmt.Printf("Imported %d user profiles\n", count)
				return nil
			}

			if c.Bool("background") {
				return runBackgroundImport(c, db, pipeline, path, format)
			}

			opts := &ingestion.BatchOptions{
				Progress: func(p ingestion.BatchProgress) {
					fmt.Fprintf(os.Stderr, "\rIngested %d/%d", p.Done, p.Total)
				},
			}

			var items []*core.FeedbackItem
			switch format {
			case "csv":
				items, err = pipeline.IngestNPSCSV(c.Context, path, opts)
			case "json":
				items, err = pipeline.IngestZendeskJSON(c.Context, path, opts)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			fmt.Printf("Imported %d feedback items\n", len(items))
			return nil
		},
	}
}

// runBackgroundImport submits the import as a tracked job and polls until it
// reaches a terminal state.
func runBackgroundImport(c *cli.Context, db *pulse.Database, pipeline *ingestion.Pipeline, path, format string) error {
	runner, err := db.NewImportRunner(pipeline)
	if err != nil {
		return err
	}
	defer runner.Release()

	var job jobs.Job
	switch format {
	case "csv":
		job, err = runner.SubmitNPSCSV(path)
	case "json":
		job, err = runner.SubmitZendeskJSON(path)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to queue import: %w", err)
	}

	fmt.Printf("Queued job %s\n", job.ID)
	for {
		select {
		case <-c.Context.Done():
			db.Tracker().Cancel(job.ID)
			return c.Context.Err()
		case <-time.After(200 * time.Millisecond):
		}

		current, ok := db.Tracker().Get(job.ID)
		if !ok {
			return fmt.Errorf("job %s disappeared", job.ID)
		}
		fmt.Fprintf(os.Stderr, "\r%s %d/%d", current.Status, current.Progress.Current, current.Progress.Total)
		if current.Status.Terminal() {
			fmt.Fprintln(os.Stderr)
			if current.Status == jobs.StatusFailed {
				return fmt.Errorf("import failed: %s", current.Error)
			}
			fmt.Printf("Job %s %s\n", current.ID, current.Status)
			return nil
		}
	}
}

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "sources", Usage: "Comma-separated sources (nps,zendesk,...)"},
		&cli.StringFlag{Name: "sentiments", Usage: "Comma-separated sentiments"},
		&cli.StringFlag{Name: "topics", Usage: "Comma-separated topics"},
		&cli.StringFlag{Name: "urgency", Usage: "Comma-separated urgency levels"},
		&cli.StringFlag{Name: "intents", Usage: "Comma-separated intents"},
		&cli.StringFlag{Name: "subscription-types", Usage: "Comma-separated subscription tiers"},
		&cli.Float64Flag{Name: "min-mrr", Usage: "Minimum account MRR"},
		&cli.Float64Flag{Name: "max-mrr", Usage: "Maximum account MRR"},
		&cli.IntFlag{Name: "min-nps", Usage: "Minimum NPS score"},
		&cli.IntFlag{Name: "max-nps", Usage: "Maximum NPS score"},
		&cli.IntFlag{Name: "days-back", Usage: "Only include feedback from the last N days", Value: 30},
		&cli.IntFlag{Name: "limit", Usage: "Maximum results", Value: 20},
	}
}

func paramsFromFlags(c *cli.Context) query.Params {
	params := query.Params{
		Sources:           splitFlag(c.String("sources")),
		Sentiments:        splitFlag(c.String("sentiments")),
		Topics:            splitFlag(c.String("topics")),
		UrgencyLevels:     splitFlag(c.String("urgency")),
		Intents:           splitFlag(c.String("intents")),
		SubscriptionTypes: splitFlag(c.String("subscription-types")),
		DaysBack:          c.Int("days-back"),
		Limit:             c.Int("limit"),
	}
	if c.IsSet("min-mrr") {
		v := c.Float64("min-mrr")
		params.MinMRR = &v
	}
	if c.IsSet("max-mrr") {
		v := c.Float64("max-mrr")
		params.MaxMRR = &v
	}
	if c.IsSet("min-nps") {
		v := c.Int("min-nps")
		params.MinNPS = &v
	}
	if c.IsSet("max-nps") {
		v := c.Int("max-nps")
		params.MaxNPS = &v
	}
	return params
}

func splitFlag(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search feedback with filters and optional semantic query",
		ArgsUsage: "[query text]",
		Flags:     searchFlags(),
		Action: func(c *cli.Context) error {
			db, _, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			engine, err := db.NewQueryEngine()
			if err != nil {
				return err
			}

			params := paramsFromFlags(c)
			params.QueryText = strings.Join(c.Args().Slice(), " ")

			result, err := engine.Search(c.Context, params)
			if err != nil {
				return err
			}

			printResult(result)
			return nil
		},
	}
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a natural language question about stored feedback",
		ArgsUsage: "<question>",
		Flags:     searchFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("a question is required")
			}

			db, _, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			engine, err := db.NewQueryEngine()
			if err != nil {
				return err
			}

			question := strings.Join(c.Args().Slice(), " ")
			answer, matched, err := engine.Ask(c.Context, question, paramsFromFlags(c))
			if err != nil {
				return err
			}

			fmt.Println(answer)
			fmt.Fprintf(os.Stderr, "(grounded on %d matching items)\n", matched)
			return nil
		},
	}
}

func alertsCommand() *cli.Command {
	runAlert := func(c *cli.Context, run func(engine *query.Engine) (*core.SearchResult, error)) error {
		db, _, err := openDatabase(c)
		if err != nil {
			return err
		}
		defer db.Close()

		engine, err := db.NewQueryEngine()
		if err != nil {
			return err
		}
		result, err := run(engine)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	}

	return &cli.Command{
		Name:  "alerts",
		Usage: "Proactive alert queries over recent feedback",
		Subcommands: []*cli.Command{
			{
				Name:  "churn",
				Usage: "Negative churn-flagged feedback from high-MRR accounts",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "min-mrr", Usage: "MRR floor", Value: 100},
					&cli.IntFlag{Name: "days-back", Value: 30},
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: func(c *cli.Context) error {
					return runAlert(c, func(e *query.Engine) (*core.SearchResult, error) {
						return e.ChurnRisks(c.Context, query.ChurnRiskOptions{
							MinMRR:   c.Float64("min-mrr"),
							DaysBack: c.Int("days-back"),
							Limit:    c.Int("limit"),
						})
					})
				},
			},
			{
				Name:  "urgent",
				Usage: "High-urgency issues needing immediate attention",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subscription-types", Usage: "Comma-separated subscription tiers"},
					&cli.IntFlag{Name: "days-back", Value: 7},
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: func(c *cli.Context) error {
					return runAlert(c, func(e *query.Engine) (*core.SearchResult, error) {
						return e.UrgentIssues(c.Context, query.UrgentIssueOptions{
							SubscriptionTypes: splitFlag(c.String("subscription-types")),
							DaysBack:          c.Int("days-back"),
							Limit:             c.Int("limit"),
						})
					})
				},
			},
			{
				Name:  "upsell",
				Usage: "Lower-tier users expressing interest in growth",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subscription-types", Usage: "Comma-separated subscription tiers", Value: "free,starter"},
					&cli.IntFlag{Name: "days-back", Value: 30},
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: func(c *cli.Context) error {
					return runAlert(c, func(e *query.Engine) (*core.SearchResult, error) {
						return e.UpsellOpportunities(c.Context, query.UpsellOptions{
							SubscriptionTypes: splitFlag(c.String("subscription-types")),
							DaysBack:          c.Int("days-back"),
							Limit:             c.Int("limit"),
						})
					})
				},
			},
			{
				Name:  "detractors",
				Usage: "NPS survey responses at or below the detractor threshold",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "max-nps", Value: 6},
					&cli.IntFlag{Name: "days-back", Value: 30},
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: func(c *cli.Context) error {
					return runAlert(c, func(e *query.Engine) (*core.SearchResult, error) {
						return e.DetractorFeedback(c.Context, query.NPSBandOptions{
							Threshold: c.Int("max-nps"),
							DaysBack:  c.Int("days-back"),
							Limit:     c.Int("limit"),
						})
					})
				},
			},
			{
				Name:  "promoters",
				Usage: "NPS survey responses at or above the promoter threshold",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "min-nps", Value: 9},
					&cli.IntFlag{Name: "days-back", Value: 30},
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: func(c *cli.Context) error {
					return runAlert(c, func(e *query.Engine) (*core.SearchResult, error) {
						return e.PromoterFeedback(c.Context, query.NPSBandOptions{
							Threshold: c.Int("min-nps"),
							DaysBack:  c.Int("days-back"),
							Limit:     c.Int("limit"),
						})
					})
				},
			},
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Summary statistics for recent feedback",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days-back", Value: 30},
		},
		Action: func(c *cli.Context) error {
			db, _, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			engine, err := db.NewQueryEngine()
			if err != nil {
				return err
			}

			stats, err := engine.Statistics(c.Context, c.Int("days-back"))
			if err != nil {
				return err
			}

			fmt.Printf("Total feedback: %d\n", stats.TotalCount)
			if stats.AvgNPS != nil {
				fmt.Printf("Average NPS:    %.1f\n", *stats.AvgNPS)
			}
			fmt.Println("By sentiment:")
			for _, s := range []core.Sentiment{core.SentimentPositive, core.SentimentNeutral, core.SentimentNegative} {
				fmt.Printf("  %-9s %d\n", s, stats.BySentiment[s])
			}
			fmt.Println("By urgency:")
			for _, u := range []core.Urgency{core.UrgencyHigh, core.UrgencyMedium, core.UrgencyLow} {
				fmt.Printf("  %-9s %d\n", u, stats.ByUrgency[u])
			}
			printCountMap("By source:", stats.BySource)
			printCountMap("By intent:", stats.ByIntent)
			printCountMap("By topic:", stats.ByTopic)
			return nil
		},
	}
}

func reclassifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "reclassify",
		Usage: "Re-run classification over recent feedback",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "batch-size", Value: 100},
		},
		Action: func(c *cli.Context) error {
			db, _, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			engine, err := db.NewQueryEngine()
			if err != nil {
				return err
			}

			count, err := engine.ReclassifyAll(c.Context, c.Int("batch-size"))
			if err != nil {
				return fmt.Errorf("reclassification failed after %d items: %w", count, err)
			}

			fmt.Printf("Reclassified %d feedback items\n", count)
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the REST API server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			db, cfg, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			pipeline, err := db.NewIngestionPipeline()
			if err != nil {
				return err
			}
			engine, err := db.NewQueryEngine()
			if err != nil {
				return err
			}
			runner, err := db.NewImportRunner(pipeline)
			if err != nil {
				return err
			}
			defer runner.Release()

			addr := cfg.Server.Addr
			if c.IsSet("addr") {
				addr = c.String("addr")
			}

			var token string
			if cfg.Server.TokenEnv != "" {
				token = os.Getenv(cfg.Server.TokenEnv)
			}

			handler := api.NewAppHandler(api.AppDeps{
				Engine:   engine,
				Pipeline: pipeline,
				Runner:   runner,
				Tracker:  db.Tracker(),
				Token:    token,
			})

			server := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				fmt.Fprintf(os.Stderr, "Listening on %s\n", addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}
}

func printResult(result *core.SearchResult) {
	fmt.Printf("%d matches (%d total)\n", len(result.Items), result.TotalCount)
	for _, item := range result.Items {
		line := item.Text
		if len(line) > 100 {
			line = line[:97] + "..."
		}
		fmt.Printf("- [%s] %s\n", item.Source, line)
		if cl := item.Classification; cl != nil {
			fmt.Printf("    %s / %s / %s", cl.Sentiment, cl.Urgency, cl.Intent)
			if len(cl.Topics) > 0 {
				fmt.Printf("  (%s)", strings.Join(cl.Topics, ", "))
			}
			fmt.Println()
		}
		if item.Profile != nil {
			detail := item.Profile.UserID
			if item.Profile.SubscriptionType != "" {
				detail += ", " + item.Profile.SubscriptionType
			}
			if item.Profile.MRR != nil {
				detail += fmt.Sprintf(", $%.0f MRR", *item.Profile.MRR)
			}
			fmt.Printf("    user: %s\n", detail)
		}
	}
}

func printCountMap[K ~string](title string, counts map[K]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Println(title)
	for key, count := range counts {
		fmt.Printf("  %-16s %d\n", key, count)
	}
}
