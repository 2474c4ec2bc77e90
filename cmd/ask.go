package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question from the command line",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		orch, err := initOrchestrator(store)
		if err != nil {
			return err
		}

		ans, err := orch.Ask(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		if askJSON {
			return json.NewEncoder(os.Stdout).Encode(ans)
		}
		fmt.Println(ans.CountryHeader + ans.RefinedAnswer)
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "emit the raw JSON envelope")
	rootCmd.AddCommand(askCmd)
}
