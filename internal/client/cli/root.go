package cli

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/linkdeck/internal/client/config"
	"github.com/spf13/cobra"
)

// Execute builds the command tree and runs it. Configuration flags are
// parsed by the config package before cobra sees them, the matching
// persistent flags below only keep cobra from rejecting the arguments.
func Execute(cfg *config.Config) {
	app := &App{config: cfg}

	rootCmd := &cobra.Command{
		Use:   "linkdeck",
		Short: "personal bookmark dashboard client",
		Example: `linkdeck status
linkdeck list
linkdeck add -t <title> -u <url> -c <category>
linkdeck sync
linkdeck backups list
linkdeck vault show`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			built, err := NewApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			*app = *built
			return app.engine.InitialLoad(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringP("server", "s", cfg.ServerEndpointAddr, "server endpoint URL")
	pf.StringP("password", "w", "", "sync password")
	pf.StringP("db", "f", cfg.DatabaseDSN, "local database path")
	pf.IntP("interval", "i", int(cfg.DebounceInterval.Seconds()), "debounce interval, seconds")

	rootCmd.AddCommand(statusCmd(app))
	rootCmd.AddCommand(listCmd(app))
	rootCmd.AddCommand(addCmd(app))
	rootCmd.AddCommand(removeCmd(app))
	rootCmd.AddCommand(pullCmd(app))
	rootCmd.AddCommand(pushCmd(app))
	rootCmd.AddCommand(syncCmd(app))
	rootCmd.AddCommand(resolveCmd(app))
	rootCmd.AddCommand(backupsCmd(app))
	rootCmd.AddCommand(vaultCmd(app))

	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
