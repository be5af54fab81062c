package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ehr/edi/internal/diag"
	"github.com/ehr/edi/internal/pipeline"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [files or directories...]",
		Short: "Parse EDI, HL7 and EOB files into a JSON report",
		Args:  requireArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			kindFlag, _ := cmd.Flags().GetString("kind")
			system, _ := cmd.Flags().GetString("system")
			workers, _ := cmd.Flags().GetInt("workers")

			kind, err := pipeline.ParseKind(kindFlag)
			if err != nil {
				return err
			}

			a, err := loadApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			runner, err := a.runner(workers)
			if err != nil {
				return err
			}

			sources, err := pipeline.Expand(args)
			if err != nil {
				return err
			}
			for i := range sources {
				sources[i].Kind = kind
				if system != "" {
					sources[i].System = strings.ToLower(system)
				}
			}

			ctx, cancel := signalContext()
			defer cancel()
			res := runner.Run(ctx, sources)

			if err := writeReport(cmd.OutOrStdout(), out, res.Report()); err != nil {
				return err
			}

			counts := diag.CountByKind(res.Diagnostics)
			ev := a.logger.Info()
			for k, n := range counts {
				ev = ev.Int(string(k), n)
			}
			ev.Int("files", len(sources)).Int("records", len(res.Records)).Msg("parse complete")

			if len(res.Errors) > 0 {
				return fmt.Errorf("%d of %d files failed", len(res.Errors), len(sources))
			}
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "-", "Report path, - for stdout")
	cmd.Flags().String("kind", "auto", "Input kind: auto, 835, 837, 270, 271, hl7, eob")
	cmd.Flags().String("system", "", "HL7 source system for every input (system_a, system_b, system_c)")
	cmd.Flags().Int("workers", 0, "Parallel parsers (default WORKERS)")
	return cmd
}

func writeReport(stdout io.Writer, path string, report *pipeline.Report) error {
	w := stdout
	if path != "-" && path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func convertEOBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert-eob [files or directories...]",
		Short: "Convert EOB report text to X12 835 files",
		Args:  requireArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir, _ := cmd.Flags().GetString("out-dir")
			if outDir == "" {
				return fmt.Errorf("--out-dir is required")
			}

			a, err := loadApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			runner, err := a.runner(0)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			sources, err := pipeline.Expand(args)
			if err != nil {
				return err
			}
			for i := range sources {
				sources[i].Kind = pipeline.KindEOB
			}

			ctx, cancel := signalContext()
			defer cancel()
			res := runner.Run(ctx, sources)

			written := 0
			for _, f := range res.Files {
				if f.Err != nil {
					a.logger.Warn().Err(f.Err).Str("file", f.File).Msg("EOB not converted")
					continue
				}
				path := filepath.Join(outDir, outputName(f.File))
				if err := os.WriteFile(path, []byte(f.Generated), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				a.logger.Info().
					Str("file", f.File).
					Str("out", path).
					Int("diagnostics", len(f.Diagnostics)).
					Msg("EOB converted")
				written++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Converted %d of %d file(s) into %s\n", written, len(sources), outDir)

			if len(res.Errors) > 0 {
				return fmt.Errorf("%d of %d files failed", len(res.Errors), len(sources))
			}
			return nil
		},
	}
	cmd.Flags().String("out-dir", "", "Directory for the generated .835 files")
	return cmd
}

// outputName maps eob_0042.txt to eob_0042.835.
func outputName(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".835"
}
