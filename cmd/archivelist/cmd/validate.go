package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/javi11/archivelist/internal/config"
	"github.com/javi11/archivelist/internal/slogutil"
	"github.com/javi11/archivelist/internal/validation"
)

func init() {
	validateCmd := &cobra.Command{
		Use:   "validate <first-volume>",
		Short: "Validate extracted metadata against the archive bytes",
		Long: `Discover the volume set starting at the given first volume, extract its
metadata and cross-check every file against an independent reference
implementation and the raw bytes. Exits 0 only when no file fails.`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	slogutil.SetupLogRotation(cfg.Log)

	v := validation.New(afero.NewOsFs(), cfg.Validate)
	report, err := v.Validate(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	for _, r := range report.Results {
		fmt.Println(r.Line())
	}
	fmt.Println(report.Summary())

	if !report.Ok() {
		os.Exit(1)
	}
	return nil
}
