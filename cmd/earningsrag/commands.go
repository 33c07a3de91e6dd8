package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/earningsrag/config"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/ingestion"
	"github.com/poiesic/earningsrag/search"
)

func (a *app) commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "ingest",
			Usage:     "Fetch, chunk, embed and store transcripts",
			ArgsUsage: "PERIOD...",
			Description: "PERIOD is a fiscal year and quarter such as 2024Q1. Every company is\n" +
				"ingested for every period, concurrently.",
			Action: a.ingestCommand,
			Flags: []cli.Flag{
				&cli.StringSliceFlag{
					Name:     "company",
					Aliases:  []string{"C"},
					Usage:    "Company name or ticker (repeatable)",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "exchange",
					Usage: "Exchange code passed to the company resolver",
				},
				&cli.StringFlag{
					Name:  "security-type",
					Usage: "Security type passed to the company resolver",
				},
				&cli.BoolFlag{
					Name:  "defer-embeddings",
					Usage: "Store chunks without embeddings; run reembed later",
				},
				&cli.IntFlag{
					Name:  "workers",
					Usage: "Concurrent ingestions (default from config)",
				},
			},
		},
		{
			Name:      "ask",
			Usage:     "Answer a question from stored transcripts",
			ArgsUsage: "QUESTION",
			Action:    a.askCommand,
			Flags: append(filterFlags(),
				&cli.IntFlag{
					Name:  "top-k",
					Usage: "Number of chunks to retrieve (default from config)",
				},
				&cli.BoolFlag{
					Name:  "hybrid",
					Usage: "Restrict retrieval to transcripts matching the question's terms",
				},
				&cli.BoolFlag{
					Name:  "json",
					Usage: "Print the answer and sources as JSON",
				},
			),
		},
		{
			Name:      "search",
			Usage:     "Full-text search over stored transcripts",
			ArgsUsage: "QUERY",
			Action:    a.searchCommand,
			Flags: append(filterFlags(),
				&cli.IntFlag{
					Name:  "limit",
					Usage: "Maximum hits to return",
					Value: 20,
				},
				&cli.IntFlag{
					Name:  "offset",
					Usage: "Hits to skip",
				},
			),
		},
		{
			Name:   "list",
			Usage:  "List stored transcripts, newest first",
			Action: a.listCommand,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "company",
					Aliases: []string{"C"},
					Usage:   "Only list transcripts of this company",
				},
			},
		},
		{
			Name:      "show",
			Usage:     "Show a stored transcript",
			ArgsUsage: "COMPANY PERIOD",
			Action:    a.showCommand,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "text",
					Usage: "Print the full transcript text",
				},
			},
		},
		{
			Name:      "chunk",
			Usage:     "Preview the chunks of a transcript file without storing them",
			ArgsUsage: "TICKER PERIOD",
			Action:    a.chunkCommand,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "strategy",
					Usage: "Chunking strategy (paragraph, semantic; default from config)",
				},
			},
		},
		{
			Name:   "reembed",
			Usage:  "Embed stored chunks that have no embedding",
			Action: a.reembedCommand,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "batch-size",
					Usage: "Chunks per embedding call (default from config)",
				},
			},
		},
	}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "company",
			Aliases: []string{"C"},
			Usage:   "Company name or ticker",
		},
		&cli.IntFlag{
			Name:  "year",
			Usage: "Fiscal year",
		},
		&cli.IntFlag{
			Name:  "quarter",
			Usage: "Fiscal quarter (1-4)",
		},
	}
}

func filtersFromFlags(c *cli.Context) core.Filters {
	var f core.Filters
	f.Company = c.String("company")
	if c.IsSet("year") {
		year := c.Int("year")
		f.Year = &year
	}
	if c.IsSet("quarter") {
		quarter := c.Int("quarter")
		f.Quarter = &quarter
	}
	return f
}

// parsePeriod accepts 2024Q1, 2024-Q1 and 2024q1.
func parsePeriod(s string) (year, quarter int, err error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	y, q, ok := strings.Cut(upper, "Q")
	y = strings.TrimSuffix(y, "-")
	if ok {
		year, err = strconv.Atoi(y)
		if err == nil {
			quarter, err = strconv.Atoi(q)
		}
	}
	if !ok || err != nil {
		return 0, 0, fmt.Errorf("%w: period %q must look like 2024Q1", core.ErrInvalid, s)
	}
	if err := core.ValidateFiscalPeriod(year, quarter); err != nil {
		return 0, 0, err
	}
	return year, quarter, nil
}

func (a *app) ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("%w: at least one PERIOD is required", core.ErrInvalid)
	}
	var requests []ingestion.Request
	for _, arg := range c.Args().Slice() {
		year, quarter, err := parsePeriod(arg)
		if err != nil {
			return err
		}
		for _, company := range c.StringSlice("company") {
			requests = append(requests, ingestion.Request{
				Company:      company,
				ExchangeCode: c.String("exchange"),
				SecurityType: c.String("security-type"),
				Year:         year,
				Quarter:      quarter,
			})
		}
	}

	db, err := a.openDatabase(c, func(cfg *config.Config) {
		if c.IsSet("defer-embeddings") {
			cfg.Ingestion.DeferEmbeddings = c.Bool("defer-embeddings")
		}
		if c.IsSet("workers") {
			cfg.Ingestion.Workers = c.Int("workers")
		}
	})
	if err != nil {
		return err
	}
	defer db.Close()

	var failed error
	for _, o := range db.IngestAll(c.Context, requests) {
		label := fmt.Sprintf("%s %dQ%d", o.Request.Company, o.Request.Year, o.Request.Quarter)
		if o.Err != nil {
			fmt.Fprintf(a.out, "FAIL %s: %v\n", label, o.Err)
			if failed == nil {
				failed = o.Err
			}
			continue
		}
		status := "embedded"
		if o.Result.Deferred {
			status = "embeddings deferred"
		}
		fmt.Fprintf(a.out, "OK   %s: %s, %d chunks, %s\n", label, o.Result.Company.Ticker, o.Result.Chunks, status)
	}
	if failed != nil {
		return fmt.Errorf("some transcripts failed: %w", failed)
	}
	return nil
}

func (a *app) askCommand(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("%w: QUESTION is required", core.ErrInvalid)
	}
	db, err := a.openDatabase(c, func(cfg *config.Config) {
		if c.IsSet("top-k") {
			cfg.Retrieval.TopK = c.Int("top-k")
		}
		if c.IsSet("hybrid") {
			cfg.Retrieval.UseHybridFTS = c.Bool("hybrid")
		}
	})
	if err != nil {
		return err
	}
	defer db.Close()

	resp, err := db.Ask(c.Context, question, filtersFromFlags(c))
	if err != nil {
		return err
	}
	if c.Bool("json") {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintln(a.out, resp.Answer)
	if len(resp.Sources) == 0 {
		return nil
	}
	fmt.Fprintln(a.out, "\nSources:")
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for i, s := range resp.Sources {
		fmt.Fprintf(w, "[%d]\t%.3f\t%s\tpara %d\t%s\t%s\n", i+1, s.Score, s.Speaker, s.ParagraphNumber, s.ChunkID, s.Snippet)
	}
	return w.Flush()
}

func (a *app) searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	db, err := a.openDatabase(c, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	f := filtersFromFlags(c)
	page, err := db.SearchTranscripts(c.Context, search.TranscriptSearch{
		Query:   query,
		Company: f.Company,
		Year:    f.Year,
		Quarter: f.Quarter,
		Limit:   c.Int("limit"),
		Offset:  c.Int("offset"),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%d matching transcripts\n", page.Total)
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, h := range page.Hits {
		fmt.Fprintf(w, "%dQ%d\t%.3f\t%s\t%s\n", h.FiscalYear, h.FiscalQuarter, h.Rank, h.TranscriptID, h.Snippet)
	}
	return w.Flush()
}

func (a *app) listCommand(c *cli.Context) error {
	db, err := a.openDatabase(c, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.ListTranscripts(c.Context, c.String("company"))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "No transcripts stored")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tPERIOD\tWORDS\tSOURCE\tID")
	for _, r := range rows {
		ticker := ""
		if r.Company != nil {
			ticker = r.Company.Ticker
		}
		t := r.Transcript
		fmt.Fprintf(w, "%s\t%dQ%d\t%d\t%s\t%s\n", ticker, t.FiscalYear, t.FiscalQuarter, t.DocumentMeta.WordCount, t.Source, t.ID)
	}
	return w.Flush()
}

func (a *app) showCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("%w: usage: show COMPANY PERIOD", core.ErrInvalid)
	}
	year, quarter, err := parsePeriod(c.Args().Get(1))
	if err != nil {
		return err
	}
	db, err := a.openDatabase(c, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	view, err := db.ViewTranscript(c.Context, c.Args().Get(0), year, quarter)
	if err != nil {
		return err
	}
	t := view.Transcript
	fmt.Fprintf(a.out, "%s (%s) fiscal %dQ%d\n", view.Company.Name, view.Company.Ticker, t.FiscalYear, t.FiscalQuarter)
	fmt.Fprintf(a.out, "ID:         %s\n", t.ID)
	fmt.Fprintf(a.out, "Source:     %s %s\n", t.Source, t.SourceURL)
	fmt.Fprintf(a.out, "Paragraphs: %d\n", len(t.Paragraphs))
	fmt.Fprintf(a.out, "Words:      %d\n", t.DocumentMeta.WordCount)
	fmt.Fprintf(a.out, "Sentences:  %d\n", t.DocumentMeta.SentenceCount)
	fmt.Fprintf(a.out, "Chunks:     %d\n", view.Chunks)
	if len(view.Orgs) > 0 {
		fmt.Fprintf(a.out, "Organizations (%d):\n", t.OrgData.UniqueCount)
		for _, o := range view.Orgs {
			fmt.Fprintf(a.out, "  %-30s %d\n", o.Name, o.MentionCount)
		}
	}
	if c.Bool("text") {
		fmt.Fprintln(a.out)
		for _, p := range t.Paragraphs {
			fmt.Fprintf(a.out, "[%d] %s: %s\n", p.Number, p.SpeakerName(), p.Content)
		}
	}
	return nil
}

func (a *app) chunkCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("%w: usage: chunk TICKER PERIOD", core.ErrInvalid)
	}
	year, quarter, err := parsePeriod(c.Args().Get(1))
	if err != nil {
		return err
	}
	db, err := a.openDatabase(c, func(cfg *config.Config) {
		if c.IsSet("strategy") {
			cfg.Chunking.Strategy = c.String("strategy")
		}
	})
	if err != nil {
		return err
	}
	defer db.Close()

	chunks, err := db.PreviewChunks(c.Context, c.Args().Get(0), year, quarter)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d chunks\n", len(chunks))
	for _, ch := range chunks {
		header := fmt.Sprintf("#%d", ch.ChunkIndex)
		if speaker, ok := ch.Data.Speaker(); ok {
			para, _ := ch.Data.ParagraphNumber()
			header += fmt.Sprintf(" para %d %s", para, speaker)
		}
		fmt.Fprintf(a.out, "\n%s (%d chars)\n%s\n", header, len([]rune(ch.Text())), ch.Text())
	}
	return nil
}

func (a *app) reembedCommand(c *cli.Context) error {
	db, err := a.openDatabase(c, func(cfg *config.Config) {
		if c.IsSet("batch-size") {
			cfg.Ingestion.ReembedBatchSize = c.Int("batch-size")
		}
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Reembed(c.Context, a.errOut); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}
