// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "rngctl.conf"
	defaultLogFilename    = "rngctl.log"
	defaultHost           = "api.rngsource.org"
	defaultDebugLevel     = "info"
)

// config defines the configuration options for rngctl.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion   bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile    string `short:"C" long:"configfile" description:"Path to configuration file"`
	Host          string `long:"host" description:"Host and optional port of the rngsource service"`
	Endpoint      string `long:"endpoint" description:"Service endpoint appended to the host"`
	APIKey        string `long:"apikey" description:"API key identifying the caller to the service"`
	PromptAPIKey  bool   `long:"promptapikey" description:"Prompt for the API key on the terminal instead of taking it from the config"`
	NoTLS         bool   `long:"notls" description:"Disable TLS"`
	RPCCert       string `long:"rpccert" description:"Service certificate chain file for validation"`
	Proxy         string `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser     string `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass     string `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	Websocket     bool   `long:"websocket" description:"Use a persistent websocket connection instead of HTTP POST requests"`
	LogDir        string `long:"logdir" description:"Directory to log output"`
	DebugLevel    string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	MetricsListen string `long:"metricslisten" description:"Serve prometheus metrics on this address (eg. 127.0.0.1:9174)"`
}

// defaultHomeDir returns the default rngctl home directory, or the current
// directory when the user's home directory cannot be determined.
func defaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".rngctl")
}

// usage prints the parser help to stderr and exits with an error code.
func usage(parser *flags.Parser) {
	parser.WriteHelp(os.Stderr)
	os.Exit(2)
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The positional arguments left after option parsing name the command to run
// and its arguments.
func loadConfig() (*config, []string, error) {
	homeDir := defaultHomeDir()
	cfg := config{
		ConfigFile: filepath.Join(homeDir, defaultConfigFilename),
		Host:       defaultHost,
		DebugLevel: defaultDebugLevel,
	}

	// Pre-parse the command line options to see if an alternative config
	// file was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag|flags.PassDoubleDash)
	_, err := preParser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
		return nil, nil, err
	}

	// Load additional config from file.  A missing config file at the
	// default location is fine, but an explicitly specified one that does
	// not exist is an error.
	parser := flags.NewParser(&cfg, flags.Default|flags.PassDoubleDash)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		var pathErr *os.PathError
		explicit := preCfg.ConfigFile != cfg.ConfigFile
		if !errors.As(err, &pathErr) || explicit {
			return nil, nil, fmt.Errorf("unable to parse config "+
				"file: %w", err)
		}
	}

	// Parse command line options again to ensure they take precedence.
	args, err := parser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, nil, err
	}

	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, nil, fmt.Errorf("%w -- %s", err, cfg.DebugLevel)
	}

	// A command is required unless the tool is only serving metrics or
	// printing its version.
	if !cfg.ShowVersion && cfg.MetricsListen == "" && len(args) == 0 {
		listCommands(os.Stderr)
		usage(parser)
	}

	return &cfg, args, nil
}
