package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/placemap/internal/batch"
	"github.com/sells-group/placemap/internal/sheet"
)

var (
	resolveInPath  string
	resolveOutPath string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Geocode every address in a workbook",
	Long:  "Reads the 주소 column of an XLSX workbook, resolves each row to coordinates, and writes a workbook with 경도/위도/보정 주소/상태 columns appended.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		records, err := sheet.Load(resolveInPath)
		if err != nil {
			return err
		}

		resolver, cleanup, err := newResolver(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		bar := progressbar.NewOptions(len(records),
			progressbar.OptionSetDescription("Resolving addresses"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)

		runner := batch.NewRunner(resolver)
		results := runner.Run(ctx, records)
		sum := batch.Summary{Total: len(records)}
		for res := range results {
			_ = bar.Add(1)
			if res.Err != nil {
				if ctx.Err() != nil {
					return res.Err
				}
				sum.Failed++
				continue
			}
			records[res.Index] = res.Record
			if res.Record.Resolved {
				sum.Resolved++
			} else {
				sum.Unmatched++
			}
		}

		if err := sheet.WriteResolved(resolveOutPath, records); err != nil {
			return eris.Wrap(err, "write output workbook")
		}

		zap.L().Info("resolve complete",
			zap.Int("total", sum.Total),
			zap.Int("resolved", sum.Resolved),
			zap.Int("unmatched", sum.Unmatched),
			zap.Int("failed", sum.Failed),
			zap.String("out", resolveOutPath),
		)
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveInPath, "in", "", "input XLSX workbook (required)")
	resolveCmd.Flags().StringVar(&resolveOutPath, "out", "resolved.xlsx", "output XLSX workbook")
	_ = resolveCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(resolveCmd)
}
