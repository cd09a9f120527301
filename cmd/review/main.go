// Command review runs a folder of call recordings through the review pipeline,
// or searches and exports stored records.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"text/tabwriter"

	"call-review-go/internal/actionable"
	"call-review-go/internal/aggregator"
	"call-review-go/internal/app"
	"call-review-go/internal/config"
	"call-review-go/internal/dataset"
	"call-review-go/internal/logger"
	"call-review-go/internal/pipeline"
	"call-review-go/internal/types"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup happens before exit.
func run(args []string) int {
	fs := flag.NewFlagSet("review", flag.ContinueOnError)
	dir := fs.String("dir", "", "folder of recordings to review")
	manifestPath := fs.String("manifest", "", "xlsx manifest with file, salesperson and prospect columns")
	search := fs.String("search", "", "search stored records for this text")
	by := fs.String("by", "salesperson_name", "field to search: file_name, salesperson_name or prospect_name")
	export := fs.String("export", "", "write search results to this xlsx file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *dir == "" && *search == "" && *export == "" {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		logger.New().WithError(err).Error("failed to load configuration")
		return 1
	}
	log := logger.NewWith(cfg.Environment, cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("failed to initialize")
		return 1
	}
	defer a.Close(context.Background())

	if *dir != "" {
		if err := reviewDir(ctx, a, *dir, *manifestPath); err != nil {
			log.WithError(err).Error("review failed")
			return 1
		}
		return 0
	}
	if err := searchRecords(ctx, a, *by, *search, *export); err != nil {
		log.WithError(err).Error("search failed")
		return 1
	}
	return 0
}

func reviewDir(ctx context.Context, a *app.Application, dir, manifestPath string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var manifest dataset.Manifest
	if manifestPath != "" {
		if manifest, err = dataset.LoadManifestFile(manifestPath, a.Log); err != nil {
			return err
		}
	}

	var files []types.AudioInput
	meta := map[string]types.ParticipantMetadata{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read %s: %w", e.Name(), err)
		}
		files = append(files, types.AudioInput{Name: e.Name(), Data: data})
		if m, ok := manifest.Lookup(e.Name()); ok {
			meta[e.Name()] = m
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no files in %s", dir)
	}

	batch := a.Orchestrator.Start(ctx, files, meta)
	printRun(batch)

	pending := batch.Pending()
	if len(pending) == 0 {
		return nil
	}
	fmt.Printf("\n%d file(s) had no participant names and were not evaluated:\n", len(pending))
	for _, f := range pending {
		fmt.Printf("  %s\n", f.FileName)
	}
	_, err = a.Orchestrator.Discard(batch.ID)
	return err
}

func printRun(batch pipeline.Run) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tSTATE\tDURATION\tOVERALL\tMESSAGE")
	for _, f := range batch.Files {
		overall := "-"
		if f.Scorecard != nil {
			overall = fmt.Sprintf("%.1f", f.Scorecard.OverallScore)
		}
		dur := f.EstimatedDuration
		if dur == "" {
			dur = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.FileName, f.State, dur, overall, f.Message)
	}
	w.Flush()
}

func searchRecords(ctx context.Context, a *app.Application, by, query, exportPath string) error {
	field, err := types.ParseSearchField(by)
	if err != nil {
		return err
	}
	recs, err := a.Processor.Search(ctx, field, query)
	if err != nil {
		return err
	}
	summary := aggregator.Summarize(recs)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tFILE\tSALESPERSON\tPROSPECT\tDURATION\tOVERALL")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1f\n",
			r.CreatedAt.Format("2006-01-02 15:04"), r.FileName, r.SalespersonName, r.ProspectName,
			r.EstimatedDuration, r.Evaluation.OverallScore)
	}
	w.Flush()
	fmt.Printf("\n%d record(s), mean overall %.2f", summary.Count, summary.MeanOverallScore)
	if summary.WeakestDimension != "" {
		fmt.Printf(", weakest dimension %s (%.2f)", summary.WeakestDimension, summary.WeakestMean)
	}
	fmt.Println()
	card := actionable.Generate(summary)
	fmt.Printf("coaching: %s. %s.\n", card.Insight, card.Action)

	if exportPath == "" {
		return nil
	}
	out, err := os.Create(exportPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportPath, err)
	}
	defer out.Close()
	if err := dataset.ExportRecords(out, recs, summary); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", exportPath)
	return nil
}
