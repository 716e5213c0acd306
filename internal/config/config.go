// Package config provides functionality for managing configuration options
// for the scheduler using command-line flags and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
)

// Options holds the configuration values for the scheduler.
type Options struct {
	// Addr defines the ops HTTP server's listening address (ip:port).
	Addr string

	// DatabaseDSN holds the database connection string for the scheduler.
	DatabaseDSN string

	// PortalURL is the base URL of the school portal web service.
	PortalURL string

	// Config is the path to the Config file.
	Config string

	// MasterKey is the key used to unwrap envelope-encrypted secrets. It is
	// read from the SCHEDULER_KEY environment variable only, never from a
	// flag or config file, and its absence is a fatal startup error.
	MasterKey string `json:"-"`
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Addr, "a", "localhost:8090", "run ops server on ip:port")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.PortalURL, "portal", "https://ca-pleas-psv.edupoint.com", "school portal base URL")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Addr = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if portalURL := os.Getenv("PORTAL_URL"); portalURL != "" {
		options.PortalURL = portalURL
	}

	options.MasterKey = os.Getenv("SCHEDULER_KEY")

	return options
}
