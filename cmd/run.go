package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"parkgo/runner"
	"parkgo/status"
)

var errRunFailed = errors.New("discount run failed")

func runCmd(debug *bool) *cobra.Command {
	var (
		lookupKey string
		asJSON    bool
		report    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the discount workflow once and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			logger := setupLogging(cmd.ErrOrStderr(), s.LogLevel, *debug)

			if lookupKey != "" {
				if err := runner.ValidateLookupKey(lookupKey); err != nil {
					return err
				}
				s.LookupKey = lookupKey
			}
			cfg, err := s.siteConfig()
			if err != nil {
				return err
			}

			store, err := s.openStore()
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			if store != nil {
				defer store.Close()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tp, err := newTracerProvider(ctx, s)
			if err != nil {
				return err
			}
			defer shutdownTracing(tp, logger)

			ctrl := newController(cfg, s, store, tp.Tracer(runner.TracerName), withModule(logger, "runner"))
			result, runErr := ctrl.Run(ctx, cfg.LookupKey)
			rec := runRecord(result, runErr, cfg.LookupKey)

			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(rec); err != nil {
					return err
				}
			case report:
				fmt.Fprintln(out, strings.Join(status.Report(rec), "\n"))
			default:
				fmt.Fprint(out, renderRecord(rec))
			}

			if !rec.Succeeded {
				return errRunFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&lookupKey, "lookup-key", "", "Four-digit plate number (overrides PARKGO_LOOKUP_KEY)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status record as JSON")
	cmd.Flags().BoolVar(&report, "report", false, "Print the detailed status report")
	return cmd
}

// runRecord summarizes a one-shot run the same way the publisher does.
func runRecord(result runner.RunResult, runErr error, lookupKey string) status.Record {
	if runErr == nil {
		return status.Summarize(result)
	}
	rec := status.SummarizeError(runErr, result.StartedAt.Add(result.Elapsed))
	rec.RunID = result.ID
	rec.LookupKey = lookupKey
	return rec
}
