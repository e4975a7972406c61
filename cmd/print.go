package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/arcprint/internal/logging"
	"github.com/kiesman99/arcprint/internal/reader"
)

var printCmd = &cobra.Command{
	Use:   "print JOB",
	Short: "Print a job file to PNG",
	Long: `Print the page described by a YAML or JSON job file.

Vector layers (image/svg+xml, application/x-pdf) are written next to the
output file, one file per request.

Example job:
  dpi: 150
  width: 500      # points
  height: 400
  rotation: 15    # degrees, counter-clockwise
  bbox: [-13630000, 4540000, -13620000, 4550000]
  layers:
    - type: arcgis
      baseURL: https://example.com/arcgis/rest/services/Base/MapServer/export
      format: image/png
      layers: [show:0, show:1]`,
	Args: cobra.ExactArgs(1),
	RunE: runPrint,
}

var urlsCmd = &cobra.Command{
	Use:   "urls JOB",
	Short: "Print the map server requests of a job without fetching them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := loadJob(args[0])
		if err != nil {
			return err
		}

		urls, err := newPrinter().URLs(job)
		if err != nil {
			return err
		}
		for _, u := range urls {
			fmt.Fprintln(cmd.OutOrStdout(), u)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(printCmd)
	rootCmd.AddCommand(urlsCmd)

	printCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	viper.BindPFlag("output", printCmd.Flags().Lookup("output"))
}

func runPrint(cmd *cobra.Command, args []string) error {
	output := viper.GetString("output")

	// Check if output is to terminal
	if output == "" {
		if stat, _ := os.Stdout.Stat(); (stat.Mode() & os.ModeCharDevice) != 0 {
			return fmt.Errorf("didn't specify output file and standard output is a terminal")
		}
	}

	job, err := loadJob(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), fetchDeadline())
	defer cancel()

	result, err := newPrinter().Print(ctx, job)
	if err != nil {
		return err
	}

	if output == "" {
		_, err = cmd.OutOrStdout().Write(result.Image)
		return err
	}
	if err := os.WriteFile(output, result.Image, 0o644); err != nil {
		return fmt.Errorf("failed to write PNG: %w", err)
	}
	logging.Info("wrote page", "path", output, "width", result.Width, "height", result.Height, "requests", result.Requests)

	base := strings.TrimSuffix(output, filepath.Ext(output))
	for i, doc := range result.Documents {
		name := fmt.Sprintf("%s-%d.%s", base, i, documentExt(doc.Format))
		if err := os.WriteFile(name, doc.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		logging.Info("wrote vector layer", "path", name)
	}
	return nil
}

func documentExt(f reader.RenderFormat) string {
	if f == reader.FormatSVG {
		return "svg"
	}
	return "pdf"
}
