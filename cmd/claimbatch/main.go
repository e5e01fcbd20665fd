package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/gyeh/claim-batcher/internal/engine"
	"github.com/gyeh/claim-batcher/internal/output"
	"github.com/gyeh/claim-batcher/internal/progress"
	"github.com/gyeh/claim-batcher/internal/store"
	"github.com/gyeh/claim-batcher/internal/worker"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "claimbatch",
		Short: "Batch pending insurance claims into cost-optimized submission batches",
	}

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newEstimateCmd())
	rootCmd.AddCommand(newDatesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newInitCmd() *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the claims/insurers/batches schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := store.Connect(ctx, dbURL)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Init(ctx); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "Schema created")
			return nil
		},
	}

	cmd.Flags().StringVar(&dbURL, "db", "", "PostgreSQL connection string")
	cmd.MarkFlagRequired("db")
	return cmd
}

func newProcessCmd() *cobra.Command {
	var (
		dbURL       string
		submitter   string
		outputFile  string
		workers     int
		dryRun      bool
		noProgress  bool
		logProgress bool
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Batch all pending claims, one plan per insurer, and commit the assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Handle signals
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				fmt.Fprintln(os.Stderr, "\nInterrupted, finishing current insurers...")
				cancel()
			}()

			st, err := store.Connect(ctx, dbURL)
			if err != nil {
				return err
			}
			defer st.Close()

			insurers, err := st.Insurers(ctx)
			if err != nil {
				return err
			}
			if len(insurers) == 0 {
				return fmt.Errorf("no insurers configured")
			}

			// Set up progress
			var mgr progress.Manager
			switch {
			case noProgress:
				mgr = &progress.NoopManager{}
			case logProgress:
				mgr = progress.NewLogManager()
			default:
				mgr = progress.NewMPBManager()
			}

			startTime := time.Now()

			pool := &worker.Pool{
				Workers: workers,
				Engine:  &engine.Engine{Store: st},
				Options: engine.Options{
					Submitter: submitter,
					DryRun:    dryRun,
				},
				Progress: mgr,
			}

			results := pool.Run(ctx, insurers)
			mgr.Wait()

			// Collect results
			batches := make(map[string][]engine.BatchSummary)
			var failures []output.InsurerFailure
			processed := 0
			totalBatches := 0
			for _, r := range results {
				if r.Err != nil {
					fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", r.InsurerCode, r.Err)
					failures = append(failures, output.InsurerFailure{
						InsurerCode: r.InsurerCode,
						Error:       r.Err.Error(),
					})
					continue
				}
				if len(r.Batches) > 0 {
					processed++
					totalBatches += len(r.Batches)
					batches[r.InsurerCode] = r.Batches
				}
			}

			duration := time.Since(startTime)

			summary := output.RunSummary{
				RunParams: output.RunParams{
					RunID:             uuid.NewString(),
					StartedAt:         startTime.UTC(),
					Submitter:         submitter,
					DryRun:            dryRun,
					InsurersProcessed: processed,
					InsurersFailed:    len(failures),
					DurationSeconds:   duration.Seconds(),
				},
				Batches:  batches,
				Failures: failures,
			}

			if err := output.WriteSummary(outputFile, summary); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}

			fmt.Fprintf(os.Stderr, "\nRun complete: %d insurers batched, %d failed, %d batches in %.1fs\n",
				processed, len(failures), totalBatches, duration.Seconds())
			if len(failures) > 0 {
				return fmt.Errorf("%d insurer(s) failed", len(failures))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbURL, "db", "", "PostgreSQL connection string")
	cmd.Flags().StringVar(&submitter, "submitter", "", "Restrict the run to one submitting party")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "run-summary.json", "Output file path (use '-' for stdout)")
	cmd.Flags().IntVar(&workers, "workers", 3, "Number of concurrent insurer runs")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute batch plans without committing them")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress output")
	cmd.Flags().BoolVar(&logProgress, "log-progress", false, "Line-based progress output for non-TTY use")

	cmd.MarkFlagRequired("db")

	return cmd
}

func newEstimateCmd() *cobra.Command {
	var (
		dbURL     string
		insurer   string
		specialty string
		priority  int
		amount    string
		dateStr   string
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Show the cost-estimate breakdown for claim-like inputs, without batching",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			date := time.Now()
			if dateStr != "" {
				date, err = time.Parse("2006-01-02", dateStr)
				if err != nil {
					return fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", dateStr, err)
				}
			}

			st, err := store.Connect(ctx, dbURL)
			if err != nil {
				return err
			}
			defer st.Close()

			cfg, err := findInsurer(ctx, st, insurer)
			if err != nil {
				return err
			}

			bd, err := engine.EstimateCost(engine.Claim{
				Specialty:   specialty,
				Priority:    priority,
				TotalAmount: amt,
			}, cfg, date)
			if err != nil {
				return err
			}

			fmt.Printf("Insurer:             %s\n", cfg.Code)
			fmt.Printf("Date:                %s\n", date.Format("2006-01-02"))
			fmt.Printf("Base cost:           %.2f\n", bd.BaseCost)
			fmt.Printf("Priority multiplier: %.2f\n", bd.PriorityMultiplier)
			fmt.Printf("Day factor:          %.2f\n", bd.DayFactor)
			fmt.Printf("Value multiplier:    %.2f\n", bd.ValueMultiplier)
			fmt.Printf("Total cost:          %.2f\n", bd.TotalCost)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbURL, "db", "", "PostgreSQL connection string")
	cmd.Flags().StringVar(&insurer, "insurer", "", "Insurer code")
	cmd.Flags().StringVar(&specialty, "specialty", "", "Claim specialty")
	cmd.Flags().IntVar(&priority, "priority", 1, "Claim priority (1-5)")
	cmd.Flags().StringVar(&amount, "amount", "0", "Claim total amount")
	cmd.Flags().StringVar(&dateStr, "date", "", "Processing date, YYYY-MM-DD (default today)")

	cmd.MarkFlagRequired("db")
	cmd.MarkFlagRequired("insurer")
	cmd.MarkFlagRequired("specialty")

	return cmd
}

func newDatesCmd() *cobra.Command {
	var dateStr string

	cmd := &cobra.Command{
		Use:   "dates",
		Short: "Print the ranked candidate-date pool for a reference date",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if dateStr != "" {
				var err error
				now, err = time.Parse("2006-01-02", dateStr)
				if err != nil {
					return fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", dateStr, err)
				}
			}

			pool := engine.OptimalDates(now)
			for i, d := range pool {
				tier := "priority 1"
				switch {
				case i < 5:
					tier = "priorities 4-5"
				case i < 15:
					tier = "priorities 2-3"
				}
				fmt.Printf("%2d. %s  factor %.2f  (%s)\n", i+1, d.Format("2006-01-02"), engine.DayFactor(d), tier)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", "", "Reference date, YYYY-MM-DD (default today)")
	return cmd
}

func findInsurer(ctx context.Context, st *store.Postgres, code string) (engine.InsurerConfig, error) {
	insurers, err := st.Insurers(ctx)
	if err != nil {
		return engine.InsurerConfig{}, err
	}
	for _, cfg := range insurers {
		if cfg.Code == code {
			return cfg, nil
		}
	}
	codes := make([]string, 0, len(insurers))
	for _, cfg := range insurers {
		codes = append(codes, cfg.Code)
	}
	sort.Strings(codes)
	return engine.InsurerConfig{}, fmt.Errorf("unknown insurer %q (have %v)", code, codes)
}
