package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/javi11/archivelist/internal/archive"
	"github.com/javi11/archivelist/internal/config"
	"github.com/javi11/archivelist/internal/slogutil"
	"github.com/javi11/archivelist/internal/stream"
)

func init() {
	listCmd := &cobra.Command{
		Use:   "list <first-volume>",
		Short: "List archive entries with byte coordinates as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runList,
	}
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	slogutil.SetupLogRotation(cfg.Log)

	fs := afero.NewOsFs()
	volumePaths, err := archive.DiscoverVolumes(fs, args[0])
	if err != nil {
		return err
	}
	descriptors, err := archive.BuildDescriptors(fs, volumePaths)
	if err != nil {
		return err
	}

	parts := make([]stream.Stream, 0, len(volumePaths))
	for _, p := range volumePaths {
		s, err := stream.OpenFile(fs, p)
		if err != nil {
			return err
		}
		parts = append(parts, s)
	}
	concat, err := stream.NewConcat(parts)
	if err != nil {
		return err
	}
	defer concat.Close()

	entries, err := archive.ListFiles(concat, descriptors, nil)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
