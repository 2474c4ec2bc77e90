package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var ingestCountry string

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Index a jurisdiction's legal text",
	Long:  "Chunks a plain-text or markdown source document, embeds the chunks, and replaces the jurisdiction's entries in the search index.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		code := strings.ToUpper(ingestCountry)
		if code == "" {
			return eris.New("--country is required")
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}

		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := initIngester(store).IngestText(ctx, code, string(data))
		if err != nil {
			return err
		}
		fmt.Printf("indexed %d chunks for %s\n", n, code)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCountry, "country", "", "ISO 3166-1 alpha-2 code the document covers (required)")
	_ = ingestCmd.MarkFlagRequired("country")
	rootCmd.AddCommand(ingestCmd)
}
