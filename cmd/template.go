package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/placemap/internal/sheet"
)

var templateOutPath string

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write a starter XLSX workbook with the expected columns",
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := sheet.WriteTemplate(templateOutPath); err != nil {
			return err
		}
		zap.L().Info("template written", zap.String("path", templateOutPath))
		return nil
	},
}

func init() {
	templateCmd.Flags().StringVar(&templateOutPath, "out", "places.xlsx", "output XLSX path")
	rootCmd.AddCommand(templateCmd)
}
