package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func backupsCmd(app *App) *cobra.Command {
	command := &cobra.Command{
		Use:   "backups",
		Short: "manage server-side snapshots",
	}
	command.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	command.AddCommand(listBackupsCmd(app))
	command.AddCommand(createBackupCmd(app))
	command.AddCommand(restoreBackupCmd(app))
	command.AddCommand(deleteBackupCmd(app))
	return command
}

func listBackupsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list available snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := app.client.ListBackups(cmd.Context())
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				fmt.Println("no backups")
				return nil
			}

			for _, b := range backups {
				line := b.Key
				if b.Meta != nil {
					line += fmt.Sprintf("  v%d  %s", b.Meta.Version, b.Meta.DeviceID)
				}
				if b.ExpiresAt > 0 {
					line += fmt.Sprintf("  expires %s", time.UnixMilli(b.ExpiresAt).Format("2006-01-02"))
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func createBackupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "snapshot the current local document on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := app.engine.Document()
			if doc == nil {
				return fmt.Errorf("nothing to back up")
			}

			key, err := app.client.CreateBackup(cmd.Context(), doc)
			if err != nil {
				return err
			}
			fmt.Printf("backup created: %s\n", key)
			return nil
		},
	}
}

func restoreBackupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-key>",
		Short: "restore a snapshot as the new server copy",
		Long: `Restore replaces the server copy with the named snapshot. The previous
server copy is preserved as a rollback snapshot first, so a mistaken
restore can itself be undone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deviceID, err := app.cache.DeviceID(cmd.Context())
			if err != nil {
				return err
			}

			restored, rollbackKey, err := app.client.Restore(cmd.Context(), args[0], deviceID)
			if err != nil {
				return err
			}

			if err := app.cache.SaveLocal(cmd.Context(), restored); err != nil {
				return err
			}
			if err := app.engine.InitialLoad(cmd.Context()); err != nil {
				return err
			}

			fmt.Printf("restored, server now at version %d\n", restored.Meta.Version)
			if rollbackKey != "" {
				fmt.Printf("previous copy kept as %s\n", rollbackKey)
			}
			return nil
		},
	}
}

func deleteBackupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <backup-key>",
		Short: "delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.client.DeleteBackup(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("backup deleted")
			return nil
		},
	}
}
