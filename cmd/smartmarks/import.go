package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/smartmarks/internal/app"
	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
	"github.com/MrSnakeDoc/smartmarks/internal/sources/homepage"
)

var importOwner string

var importCmd = &cobra.Command{
	Use:   "import --owner <user-id> <file>",
	Short: "Import links from a Homepage bookmarks.yaml or services.yaml",
	Long: `Imports every link of a Homepage dashboard file for one owner. Entries
are validated like bookmarks added from the page; invalid ones are
skipped and listed. Open pages of that owner see the new rows live when
the server shares this Redis.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importOwner == "" {
			return errors.New("--owner is required")
		}

		entries, err := homepage.NewLoader(args[0]).Load()
		if err != nil {
			return err
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

		op := bookmarks.NewOperator(backend.Store, backend.Cache, log)
		res, err := op.Import(cmd.Context(), importOwner, homepage.ToInputs(entries))

		out := cmd.OutOrStdout()
		for _, s := range res.Skipped {
			fmt.Fprintf(out, "skipped line %d %q: %s\n", entries[s.Index].Line, s.Title, s.Reason)
		}
		fmt.Fprintf(out, "imported %d, skipped %d\n", len(res.Imported), len(res.Skipped))
		return err
	},
}

func init() {
	importCmd.Flags().StringVar(&importOwner, "owner", "", "user id that will own the bookmarks")
}
