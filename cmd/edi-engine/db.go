package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/ehr/edi/internal/pipeline"
	"github.com/ehr/edi/internal/platform/db"
	"github.com/ehr/edi/internal/record"
	"github.com/ehr/edi/internal/store"
	"github.com/ehr/edi/migrations"
)

// connect opens the configured database. schema overrides DB_SCHEMA.
func (a *app) connect(ctx context.Context, schema string) (*pgxpool.Pool, string, error) {
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, "", err
	}
	if schema == "" {
		schema = a.cfg.DBSchema
	}
	pool, err := db.NewPool(ctx, a.cfg.DatabaseURL, a.cfg.DBMaxConns, a.cfg.DBMinConns, schema)
	if err != nil {
		return nil, "", err
	}
	return pool, schema, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaFlag, _ := cmd.Flags().GetString("schema")

			a, err := loadApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, schema, err := a.connect(ctx, schemaFlag)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Running migrations on schema: %s\n", schema)
			count, err := db.NewMigrator(pool, migrations.FS, schema).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "", "Target schema (default DB_SCHEMA)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaFlag, _ := cmd.Flags().GetString("schema")

			a, err := loadApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, schema, err := a.connect(ctx, schemaFlag)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS, schema).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Migration status for schema: %s\n", schema)
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", "", "Target schema (default DB_SCHEMA)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func loadDenialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load-denials [files or directories...]",
		Short: "Parse 835 remittances and store their claims",
		Long: "Parse 835 remittances and store their claims. The directory a file\n" +
			"sits in is recorded as its practice type.",
		Args: requireArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")

			a, err := loadApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			runner, err := a.runner(0)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			pool, schema, err := a.connect(ctx, "")
			if err != nil {
				return err
			}
			defer pool.Close()

			if migrate {
				if _, err := db.NewMigrator(pool, migrations.FS, schema).Up(ctx); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
			}

			sources, err := pipeline.Expand(args)
			if err != nil {
				return err
			}
			res := runner.Run(ctx, sources)
			for _, fe := range res.Errors {
				a.logger.Warn().Err(fe.Err).Str("file", fe.File).Msg("file skipped")
			}

			claims := remittanceClaims(res.Claims())
			batch, err := store.NewClaimStore(pool, a.logger).SaveClaims(ctx, claims)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d claim(s) from %d file(s) as batch %s\n", len(claims), len(sources), batch)
			return nil
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations first")
	return cmd
}

// remittanceClaims keeps the claims that came from 835s.
func remittanceClaims(claims []*record.ClaimRecord) []*record.ClaimRecord {
	var out []*record.ClaimRecord
	for _, c := range claims {
		if c.Transaction == "835" {
			out = append(out, c)
		}
	}
	return out
}

func denialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "denials",
		Short: "List stored denied claims",
		RunE: func(cmd *cobra.Command, args []string) error {
			var f store.DenialFilter
			f.PayerID, _ = cmd.Flags().GetString("payer")
			f.PracticeType, _ = cmd.Flags().GetString("practice")
			f.CARC, _ = cmd.Flags().GetString("carc")
			f.Limit, _ = cmd.Flags().GetInt("limit")

			a, err := loadApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, _, err := a.connect(ctx, "")
			if err != nil {
				return err
			}
			defer pool.Close()

			rows, err := store.NewClaimStore(pool, a.logger).Denials(ctx, f)
			if err != nil {
				return err
			}
			return printDenials(cmd, rows)
		},
	}
	cmd.Flags().String("payer", "", "Filter by payer id")
	cmd.Flags().String("practice", "", "Filter by practice type")
	cmd.Flags().String("carc", "", "Filter by first CARC")
	cmd.Flags().Int("limit", store.DefaultDenialLimit, "Maximum rows")
	return cmd
}

func printDenials(cmd *cobra.Command, rows []store.Denial) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLAIM\tPAYER\tPRACTICE\tCPT\tCARC\tRARC\tBALANCE\tDENIED")
	for _, d := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.2f\t%s\n",
			d.ClaimID, d.PayerID, d.PracticeType, d.CPT, d.CARC, d.RARC, d.Balance, d.DenialDate)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write denials: %w", err)
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no denials found")
	}
	return nil
}
