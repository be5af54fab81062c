package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/ehr/edi/internal/api"
	"github.com/ehr/edi/internal/diag"
	"github.com/ehr/edi/internal/hl7etl"
	"github.com/ehr/edi/internal/platform/db"
	"github.com/ehr/edi/internal/platform/hl7v2"
	"github.com/ehr/edi/internal/record"
	"github.com/ehr/edi/internal/store"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			port, _ := cmd.Flags().GetString("port")
			bodyLimit, _ := cmd.Flags().GetString("body-limit")

			a, err := loadApp(os.Stdout)
			if err != nil {
				return err
			}
			if port == "" {
				port = a.cfg.Port
			}
			runner, err := a.runner(0)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			opts := api.ServerOptions{
				Runner:    runner,
				Logger:    a.logger,
				BodyLimit: bodyLimit,
			}

			// The store is optional; without DATABASE_URL the API only parses.
			var pool *pgxpool.Pool
			if a.cfg.DatabaseURL != "" {
				pool, err = db.NewPool(ctx, a.cfg.DatabaseURL, a.cfg.DBMaxConns, a.cfg.DBMinConns, a.cfg.DBSchema)
				if err != nil {
					return err
				}
				defer pool.Close()
				opts.Pool = pool
				opts.Claims = store.NewClaimStore(pool, a.logger)
			} else {
				a.logger.Warn().Msg("DATABASE_URL not set, denial routes disabled")
			}

			e := api.NewServer(opts)

			errCh := make(chan error, 1)
			go func() {
				addr := ":" + port
				a.logger.Info().Str("addr", addr).Msg("starting server")
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
			}

			a.logger.Info().Msg("shutting down server")
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			if err := e.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			a.logger.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().String("port", "", "Listen port (default PORT)")
	cmd.Flags().String("body-limit", api.DefaultBodyLimit, "Maximum request body size")
	return cmd
}

func listenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Receive HL7 v2 messages over MLLP and acknowledge them",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			system, _ := cmd.Flags().GetString("system")
			out, _ := cmd.Flags().GetString("out")

			a, err := loadApp(os.Stderr)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.MLLPAddr
			}
			if system == "" {
				system = a.cfg.DefaultSystem
			}

			var w io.Writer = io.Discard
			if out != "" {
				f, err := os.OpenFile(out, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return fmt.Errorf("open %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			sink := newRecordSink(w)

			handler := hl7etl.NewAckHandler(hl7etl.NewParser(system, a.logger), sink.write, time.Now, a.logger)
			listener := hl7v2.NewListener(addr, handler, a.logger)
			if err := listener.Start(); err != nil {
				return err
			}
			a.logger.Info().Str("addr", listener.Addr()).Str("system", system).Msg("MLLP listener started")

			ctx, cancel := signalContext()
			defer cancel()
			<-ctx.Done()

			if err := listener.Stop(); err != nil {
				return err
			}
			stats := listener.Stats()
			a.logger.Info().
				Uint64("received", stats.Received).
				Uint64("answered", stats.Answered).
				Uint64("rejected", stats.Rejected).
				Int("records", sink.count()).
				Msg("MLLP listener stopped")
			return nil
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default MLLP_ADDR)")
	cmd.Flags().String("system", "", "HL7 source system (default DEFAULT_SYSTEM)")
	cmd.Flags().String("out", "", "Append accepted records as JSON lines to this file")
	return cmd
}

// recordSink writes each accepted encounter as one JSON line. Connections
// are served concurrently, so writes are serialized.
type recordSink struct {
	mu  sync.Mutex
	enc *json.Encoder
	n   int
}

func newRecordSink(w io.Writer) *recordSink {
	return &recordSink{enc: json.NewEncoder(w)}
}

func (s *recordSink) write(rec *record.PatientEncounterRecord, diags []diag.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	_ = s.enc.Encode(struct {
		Record      *record.PatientEncounterRecord `json:"record"`
		Diagnostics []diag.Diagnostic              `json:"diagnostics,omitempty"`
	}{rec, diags})
}

func (s *recordSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
