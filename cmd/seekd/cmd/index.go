package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index <directory>",
		Short: "Index a directory once, without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := loadConfig()
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			res, err := a.indexer.IndexDirectory(cmd.Context(), dir)
			if err != nil {
				return err
			}
			if err := a.reg.AddDirectory(cmd.Context(), res.Directory); err != nil {
				return err
			}

			fmt.Printf("Indexed %s\n", res.Directory)
			fmt.Printf("  files:   %d/%d processed (%d skipped, %d failed)\n",
				res.FilesProcessed, res.TotalFiles, res.FilesSkipped, res.FilesFailed)
			fmt.Printf("  chunks:  %d\n", res.ChunksIndexed)
			return nil
		},
	}
}
