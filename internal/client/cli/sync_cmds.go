package cli

import (
	"fmt"

	clientsync "github.com/dmitrijs2005/linkdeck/internal/client/sync"
	"github.com/spf13/cobra"
)

func pullCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "fetch the server copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.engine.Pull(cmd.Context()); err != nil {
				return err
			}
			if app.engine.Status() == clientsync.StatusConflict {
				fmt.Println("server copy differs, run 'linkdeck resolve local|remote'")
				return nil
			}
			fmt.Printf("up to date, version %d\n", app.engine.Document().Meta.Version)
			return nil
		},
	}
}

func syncCmd(app *App) *cobra.Command {
	var force bool

	command := &cobra.Command{
		Use:   "sync",
		Short: "push local changes to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if force {
				if err := app.engine.ForcePush(cmd.Context()); err != nil {
					return err
				}
				fmt.Printf("forced, server now at version %d\n", app.engine.Document().Meta.Version)
				return nil
			}

			app.engine.SyncNow(cmd.Context())
			switch app.engine.Status() {
			case clientsync.StatusSynced:
				fmt.Printf("synced, version %d\n", app.engine.Document().Meta.Version)
			case clientsync.StatusConflict:
				fmt.Println("rejected, another device wrote first, run 'linkdeck resolve local|remote'")
			default:
				fmt.Printf("sync did not complete, status %s\n", app.engine.Status())
			}
			return nil
		},
	}

	command.Flags().BoolVar(&force, "force", false, "overwrite the server copy unconditionally")
	return command
}

func pushCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "overwrite the server copy with the local document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.engine.ForcePush(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("pushed, server now at version %d\n", app.engine.Document().Meta.Version)
			return nil
		},
	}
}

func resolveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "resolve (local|remote)",
		Short:     "resolve a sync conflict by keeping one side whole",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"local", "remote"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.engine.CurrentConflict() == nil {
				fmt.Println("no conflict to resolve")
				return nil
			}

			choice := clientsync.ChoiceLocal
			if args[0] == "remote" {
				choice = clientsync.ChoiceRemote
			}

			if err := app.engine.Resolve(cmd.Context(), choice); err != nil {
				return err
			}
			fmt.Printf("resolved keeping %s copy, version %d\n", args[0], app.engine.Document().Meta.Version)
			return nil
		},
	}
}
