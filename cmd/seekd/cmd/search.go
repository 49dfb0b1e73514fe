package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seekd/seekd/internal/vectorstore"
)

func newSearchCmd() *cobra.Command {
	var topK int
	var fileType string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index from the command line",
		Args:  cobra.MinimumNArgs(1),
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

			query := strings.Join(args, " ")
			resp, err := a.engine.Search(cmd.Context(), query, topK,
				vectorstore.Filter{FileType: fileType})
			if err != nil {
				return err
			}

			if resp.TotalResults == 0 {
				fmt.Println("No results.")
				return nil
			}
			for i, r := range resp.Results {
				fmt.Printf("%d. %s (chunk %d, score %.3f)\n", i+1, r.FilePath, r.ChunkIndex, r.Score)
				fmt.Printf("   %s\n", snippet(r.Chunk, 160))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "Maximum number of results")
	cmd.Flags().StringVar(&fileType, "file-type", "", "Restrict results to one extension, e.g. .pdf")
	return cmd
}

// snippet truncates a chunk for one-line terminal display.
func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
