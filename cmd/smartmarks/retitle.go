package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/smartmarks/internal/app"
	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
)

var (
	retitleOwner string
	retitleID    string
	retitleTitle string
)

var retitleCmd = &cobra.Command{
	Use:   "retitle --owner <user-id> --id <bookmark-id> --title <title>",
	Short: "Change the title of a bookmark",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if retitleOwner == "" || retitleID == "" {
			return errors.New("--owner and --id are required")
		}

		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		backend, err := app.OpenBackend(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer backend.Close()

		b, err := bookmarks.NewOperator(backend.Store, backend.Cache, log).
			Retitle(cmd.Context(), retitleOwner, retitleID, retitleTitle)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %q\n", b.ID, b.Title)
		return nil
	},
}

func init() {
	retitleCmd.Flags().StringVar(&retitleOwner, "owner", "", "owner of the bookmark")
	retitleCmd.Flags().StringVar(&retitleID, "id", "", "bookmark id")
	retitleCmd.Flags().StringVar(&retitleTitle, "title", "", "new title")
}
