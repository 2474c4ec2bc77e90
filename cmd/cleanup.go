package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	cleanupCountry string
	cleanupAll     bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove chunks from the search index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cleanupAll == (cleanupCountry != "") {
			return eris.New("pass exactly one of --country or --all")
		}

		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if cleanupAll {
			n, err := store.Purge(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d chunks\n", n)
			return nil
		}

		code := strings.ToUpper(cleanupCountry)
		n, err := store.DeleteJurisdiction(ctx, code)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d chunks for %s\n", n, code)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().StringVar(&cleanupCountry, "country", "", "remove chunks for one ISO code")
	cleanupCmd.Flags().BoolVar(&cleanupAll, "all", false, "remove every chunk in the index")
	rootCmd.AddCommand(cleanupCmd)
}
