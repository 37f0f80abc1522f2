package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rcm-ksa/nphies-gateway/internal/service"
	"github.com/rcm-ksa/nphies-gateway/internal/service/config"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/fhir"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/postgres"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/app/commands"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/app/queries"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "nphies-gateway",
		Short:        "NPHIES message gateway for eligibility, claims and communications",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), eligibilityCmd(), claimCmd(), parseCmd(), reportCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfigFromEnv()
			if err != nil {
				return err
			}
			logger := service.NewLogger(cfg)

			svc, err := service.NewNPHIESService(cfg, logger)
			if err != nil {
				logger.Error().Err(err).Msg("failed to start service")
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return svc.Start(ctx)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run submission ledger migrations",
	}

	run := func(apply func(*sql.DB) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfigFromEnv()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			db, err := postgres.Open(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := apply(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE:  run(postgres.MigrateUp),
	}, &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		RunE:  run(postgres.MigrateDown),
	})
	return cmd
}

type bundleFlags struct {
	file          string
	payer         string
	correlationID string
	send          bool
}

func (f *bundleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "JSON input file (- for stdin)")
	cmd.Flags().StringVar(&f.payer, "payer", "", "payer license code")
	cmd.Flags().StringVar(&f.correlationID, "correlation-id", "", "business correlation id")
	cmd.Flags().BoolVar(&f.send, "send", false, "submit to NPHIES instead of printing the bundle")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("payer")
}

func eligibilityCmd() *cobra.Command {
	var f bundleFlags
	cmd := &cobra.Command{
		Use:   "eligibility",
		Short: "Build (and optionally submit) a CoverageEligibilityRequest message",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readObject(cmd, f.file)
			if err != nil {
				return err
			}
			patient, err := fhir.DecodePatientData(in)
			if err != nil {
				return err
			}

			if !f.send {
				composer, err := offlineComposer()
				if err != nil {
					return err
				}
				bundle, err := composer.BuildEligibilityRequest(patient, f.payer, f.correlationID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), bundle)
			}

			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				res, err := svc.Commands.CheckEligibility(ctx, commands.CheckEligibilityCommand{
					Patient: patient, PayerCode: f.payer, CorrelationID: f.correlationID,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func claimCmd() *cobra.Command {
	var f bundleFlags
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Build (and optionally submit) a Claim message",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readObject(cmd, f.file)
			if err != nil {
				return err
			}
			claim, err := fhir.DecodeClaimData(in)
			if err != nil {
				return err
			}

			if !f.send {
				composer, err := offlineComposer()
				if err != nil {
					return err
				}
				bundle, err := composer.BuildClaimBundle(claim, f.payer, f.correlationID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), bundle)
			}

			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				res, err := svc.Commands.SubmitClaim(ctx, commands.SubmitClaimCommand{
					Claim: claim, PayerCode: f.payer, CorrelationID: f.correlationID,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func parseCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a saved NPHIES response bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readFile(cmd, file)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), fhir.ParseResponse(raw))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "response file (- for stdin)")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Submission reports",
	}

	var out, payer, since string
	rejections := &cobra.Command{
		Use:   "rejections",
		Short: "Write rejection counts per payer and error as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := queries.RejectionReportQuery{PayerCode: payer}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return errors.Wrap(err, "--since")
				}
				q.Since = t
			}

			return withService(cmd, func(ctx context.Context, svc *service.Service) error {
				report, err := svc.Queries.RejectionReport(ctx, q)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if out != "" && out != "-" {
					file, err := os.Create(out)
					if err != nil {
						return err
					}
					defer file.Close()
					w = file
				}
				return report.WriteCSV(w)
			})
		},
	}
	rejections.Flags().StringVarP(&out, "out", "o", "-", "output file (- for stdout)")
	rejections.Flags().StringVar(&payer, "payer", "", "only this payer")
	rejections.Flags().StringVar(&since, "since", "", "only submissions since this date (YYYY-MM-DD)")
	cmd.AddCommand(rejections)
	return cmd
}

func offlineComposer() (*fhir.Composer, error) {
	cfg, err := config.NewConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return service.NewComposer(cfg)
}

func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.Service) error) error {
	cfg, err := config.NewConfigFromEnv()
	if err != nil {
		return err
	}
	svc, err := service.NewNPHIESService(cfg, service.NewLogger(cfg))
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(cmd.Context(), svc)
}

func readFile(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func readObject(cmd *cobra.Command, path string) (map[string]any, error) {
	raw, err := readFile(cmd, path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var in map[string]any
	if err := dec.Decode(&in); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return in, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
