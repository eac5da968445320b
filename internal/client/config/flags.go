package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/linkdeck/internal/flagx"
)

// parseFlags populates selected client Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-s string   server endpoint URL
//	-w string   sync password
//	-f string   local sqlite database path
//	-i int      debounce interval, seconds
//
// The function filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, so cobra's own arguments pass through untouched.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-w", "-f", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerEndpointAddr, "s", config.ServerEndpointAddr, "server endpoint URL")
	fs.StringVar(&config.SyncPassword, "w", config.SyncPassword, "sync password")
	fs.StringVar(&config.DatabaseDSN, "f", config.DatabaseDSN, "local database path")

	debounceInterval := fs.Int("i", int(config.DebounceInterval.Seconds()), "debounce interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.DebounceInterval = time.Duration(*debounceInterval) * time.Second
}
