package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zatekoja/clinicfinder/internal/app"
	"github.com/zatekoja/clinicfinder/internal/domain/entities"
	"github.com/zatekoja/clinicfinder/internal/evaluation"
	"github.com/zatekoja/clinicfinder/internal/infrastructure/observability"
	"github.com/zatekoja/clinicfinder/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "clinicfinder",
		Short:        "Clinic recommendations by specialty and location",
		Long:         `Recommend nearby clinics for specialty tags, triage symptoms into tags, and backfill clinic coordinates.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(createRecommendCmd())
	rootCmd.AddCommand(createTriageCmd())
	rootCmd.AddCommand(createBackfillCmd())
	rootCmd.AddCommand(createEvalTriageCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and wires the services. Logs go to stderr so
// stdout carries only command output.
func setup(ctx context.Context, workers int) (*app.App, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	observability.InitLoggerTo(os.Stderr, "clinicfinder", cfg.Env)
	logger := *observability.GetLogger()

	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}

	a, err := app.New(ctx, cfg, logger, app.Options{Workers: workers})
	if err != nil {
		return nil, logger, err
	}
	return a, logger, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func createRecommendCmd() *cobra.Command {
	var (
		tags     []string
		location string
		lat, lng float64
		report   bool
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend clinics for specialty tags near a location",
		Example: `  clinicfinder recommend --tags cardiology,ent --location 樹林區
  clinicfinder recommend --tags cardiology --lat 24.99 --lng 121.42 --report`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, _, err := setup(ctx, 1)
			if err != nil {
				return err
			}
			defer a.Close()

			var userLat, userLng *float64
			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
				userLat, userLng = &lat, &lng
			}
			if strings.TrimSpace(location) == "" && userLat == nil {
				return fmt.Errorf("--location or --lat/--lng is required")
			}

			specialtyTags := make([]entities.SpecialtyTag, 0, len(tags))
			for _, t := range tags {
				specialtyTags = append(specialtyTags, entities.SpecialtyTag(strings.TrimSpace(t)))
			}

			rec, err := a.Recommender.SearchAllTags(ctx, specialtyTags, location, userLat, userLng)
			if err != nil {
				return err
			}

			if !report {
				return printJSON(rec)
			}

			current := make([]entities.TriagedTag, 0, len(specialtyTags))
			for _, t := range rec.Tags() {
				current = append(current, entities.TriagedTag{Tag: t, Score: 1})
			}
			md, err := a.Evaluator.Evaluate(ctx, current, nil, rec)
			if err != nil {
				return err
			}
			fmt.Println(md)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Specialty tags, e.g. cardiology,ent")
	cmd.Flags().StringVar(&location, "location", "", "Free-text location, e.g. 樹林區")
	cmd.Flags().Float64Var(&lat, "lat", 0, "User latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "User longitude")
	cmd.Flags().BoolVar(&report, "report", false, "Print a Markdown recommendation instead of JSON")
	_ = cmd.MarkFlagRequired("tags")

	return cmd
}

func createTriageCmd() *cobra.Command {
	var history []string

	cmd := &cobra.Command{
		Use:   "triage [symptom]",
		Short: "Map a symptom description to specialty tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, _, err := setup(ctx, 1)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Triage == nil {
				return fmt.Errorf("triage requires OPENAI_API_KEY")
			}

			tags, err := a.Triage.Triage(ctx, strings.Join(args, " "), history)
			if err != nil {
				return err
			}
			return printJSON(tags)
		},
	}

	cmd.Flags().StringSliceVar(&history, "history", nil, "Tags from earlier turns")
	return cmd
}

func createBackfillCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Geocode every clinic without coordinates and write them back to the dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, logger, err := setup(ctx, workers)
			if err != nil {
				return err
			}
			defer a.Close()

			start := time.Now()
			summary, err := a.Backfill.BackfillAll(ctx)
			if err != nil {
				return err
			}

			logger.Info().
				Int("processed", summary.TotalProcessed).
				Int("succeeded", summary.SuccessCount).
				Int("failed", summary.FailureCount).
				Int("write_errors", summary.WriteErrors).
				Dur("elapsed", time.Since(start)).
				Msg("coordinate backfill complete")

			if summary.WriteErrors > 0 {
				return fmt.Errorf("%d batches failed to write; rerun %s", summary.WriteErrors, cmd.CommandPath())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 4, "Number of concurrent geocoding workers")
	return cmd
}

func createEvalTriageCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "eval-triage [golden.json]",
		Short: "Score triage against a labeled symptom set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, logger, err := setup(ctx, 1)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Triage == nil {
				return fmt.Errorf("eval-triage requires OPENAI_API_KEY")
			}

			cases, err := evaluation.LoadGoldenCases(args[0])
			if err != nil {
				return err
			}
			known := func(tag string) bool { return a.Mapper.Known(entities.SpecialtyTag(tag)) }
			if err := evaluation.ValidateGoldenCases(cases, known); err != nil {
				return err
			}

			summary, err := evaluation.NewRunner(a.Triage, k, logger).Run(ctx, cases)
			if err != nil {
				return err
			}
			return printJSON(summary)
		},
	}

	cmd.Flags().IntVar(&k, "k", evaluation.DefaultK, "Cutoff for Recall@K and MRR@K")
	return cmd
}
