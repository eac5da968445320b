package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/linkdeck/internal/flagx"
	"github.com/dmitrijs2005/linkdeck/internal/timex"
)

// JsonConfig is the DTO for the optional JSON configuration file. Interval
// fields accept both duration strings ("3s") and integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	SyncPassword       string         `json:"sync_password"`
	DatabaseDSN        string         `json:"database_dsn"`
	DebounceInterval   timex.Duration `json:"debounce_interval"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
}

// parseJson loads configuration values from the JSON file named by the -c
// or -config flags. Absent flags mean no file is loaded; an unreadable or
// invalid file panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.ServerEndpointAddr = c.ServerEndpointAddr
	config.SyncPassword = c.SyncPassword
	config.DatabaseDSN = c.DatabaseDSN
	config.DebounceInterval = time.Duration(c.DebounceInterval.Duration)
	config.RequestTimeout = time.Duration(c.RequestTimeout.Duration)
}
