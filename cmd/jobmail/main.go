package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/jobmail/internal/config"
	"github.com/mikey/jobmail/internal/core"
	"github.com/mikey/jobmail/internal/di"
	"github.com/mikey/jobmail/internal/ports"
)

const usage = `Usage: jobmail <command> [flags]

Commands:
  run     Classify inbox messages and apply labels
  serve   Run the SMTP intake server
  stats   Show per-category counts from the ledger
  recent  Show recently processed messages
  clear   Delete all ledger records

Run 'jobmail <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = runCmd(args)
	case "serve":
		err = serveCmd(args)
	case "stats":
		err = statsCmd(args)
	case "recent":
		err = recentCmd(args)
	case "clear":
		err = clearCmd(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runCmd classifies matching messages as a single batch and prints a
// summary plus the updated per-category counts.
func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	query := fs.String("query", "in:inbox", "Gmail search query")
	limit := fs.Int64("limit", 0, "Maximum messages to process (0 uses classification.batch_size)")
	after := fs.String("after", "", "Only messages after this date (YYYY/MM/DD)")
	before := fs.String("before", "", "Only messages before this date (YYYY/MM/DD)")
	dryRun := fs.Bool("dry-run", false, "Classify and record but do not touch the mailbox")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if *dryRun {
		cfg.GetViper().Set("processing.dry_run", true)
	}

	container, err := di.BuildContainer(cfg)
	if err != nil {
		return fmt.Errorf("build dependency container: %w", err)
	}

	fullQuery := buildQuery(*query, *after, *before)
	batchLimit := *limit
	if batchLimit <= 0 {
		batchLimit = int64(cfg.GetClassification().BatchSize)
	}

	return container.Invoke(func(logger *zap.Logger, svc *core.Service, classifier core.Classifier, ledger core.Ledger) error {
		defer logger.Sync()
		defer closeResources(logger, classifier, ledger)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		stats, err := svc.ProcessQuery(ctx, fullQuery, batchLimit)
		if err != nil {
			return err
		}

		fmt.Printf("Found %d message(s): %d processed, %d skipped, %d errored\n",
			stats.Found, stats.Processed, stats.Skipped, stats.Errored)

		counts, err := svc.Stats(ctx)
		if err != nil {
			return fmt.Errorf("read ledger stats: %w", err)
		}
		printStats(counts)
		return nil
	})
}

// serveCmd runs the SMTP intake until interrupted.
func serveCmd(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listen := fs.String("listen", "", "Listen address (overrides smtp.listen_address)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if *listen != "" {
		cfg.GetViper().Set("smtp.listen_address", *listen)
	}

	container, err := di.BuildContainer(cfg)
	if err != nil {
		return fmt.Errorf("build dependency container: %w", err)
	}

	return container.Invoke(func(logger *zap.Logger, intake ports.MailIntake, classifier core.Classifier, ledger core.Ledger) error {
		defer logger.Sync()
		defer closeResources(logger, classifier, ledger)

		if err := intake.Start(); err != nil {
			return fmt.Errorf("start SMTP intake: %w", err)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("Shutting down...")

		if err := intake.Stop(); err != nil {
			logger.Error("Failed to stop SMTP intake", zap.Error(err))
		}
		logger.Info("Shutdown complete")
		return nil
	})
}

// statsCmd prints per-category counts from the ledger.
func statsCmd(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	container, err := di.BuildContainer(cfg)
	if err != nil {
		return fmt.Errorf("build dependency container: %w", err)
	}

	return container.Invoke(func(logger *zap.Logger, ledger core.Ledger) error {
		defer logger.Sync()
		defer closeResources(logger, ledger)

		counts, err := ledger.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("read ledger stats: %w", err)
		}
		printStats(counts)
		return nil
	})
}

// recentCmd prints the most recently processed messages, newest first.
func recentCmd(args []string) error {
	fs := flag.NewFlagSet("recent", flag.ExitOnError)
	limit := fs.Int("limit", 10, "Maximum records to show")
	category := fs.String("category", "", "Only records with this category")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	container, err := di.BuildContainer(cfg)
	if err != nil {
		return fmt.Errorf("build dependency container: %w", err)
	}

	return container.Invoke(func(logger *zap.Logger, ledger core.Ledger) error {
		defer logger.Sync()
		defer closeResources(logger, ledger)

		ctx := context.Background()
		var (
			records []*core.ProcessedEmail
			err     error
		)
		if *category != "" {
			cat, ok := core.ParseCategory(*category)
			if !ok {
				return fmt.Errorf("unknown category %q, must be one of %v", *category, core.Categories())
			}
			records, err = ledger.ByCategory(ctx, cat, *limit)
		} else {
			records, err = ledger.Recent(ctx, *limit)
		}
		if err != nil {
			return fmt.Errorf("read ledger: %w", err)
		}

		if len(records) == 0 {
			fmt.Println("No processed messages.")
			return nil
		}
		for _, rec := range records {
			fmt.Printf("%s  %-18s %.2f  %s\n",
				rec.ProcessedAt.Local().Format("2006-01-02 15:04"),
				rec.Category,
				rec.Confidence,
				truncateLine(rec.Subject, 60))
		}
		return nil
	})
}

// clearCmd deletes every ledger record. It refuses to run without -yes.
func clearCmd(args []string) error {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Confirm deletion of all ledger records")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("refusing to clear the ledger without -yes")
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	container, err := di.BuildContainer(cfg)
	if err != nil {
		return fmt.Errorf("build dependency container: %w", err)
	}

	return container.Invoke(func(logger *zap.Logger, ledger core.Ledger) error {
		defer logger.Sync()
		defer closeResources(logger, ledger)

		deleted, err := ledger.ClearAll(context.Background())
		if err != nil {
			return fmt.Errorf("clear ledger: %w", err)
		}
		fmt.Printf("Deleted %d record(s).\n", deleted)
		return nil
	})
}

// buildQuery appends after:/before: terms to the base Gmail query.
func buildQuery(base, after, before string) string {
	parts := []string{strings.TrimSpace(base)}
	if after != "" {
		parts = append(parts, "after:"+after)
	}
	if before != "" {
		parts = append(parts, "before:"+before)
	}
	return strings.Join(parts, " ")
}

// printStats prints per-category counts in a stable order, total last.
func printStats(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		if k != "total" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	fmt.Println("Ledger:")
	for _, k := range keys {
		fmt.Printf("  %-20s %d\n", k, counts[k])
	}
	fmt.Printf("  %-20s %d\n", "total", counts["total"])
}

// truncateLine shortens a line to at most n runes for display.
func truncateLine(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// closeResources closes every injected dependency that has a Close method.
func closeResources(logger *zap.Logger, resources ...interface{}) {
	for _, r := range resources {
		if closer, ok := r.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close resource", zap.Error(err))
			}
		}
	}
}
