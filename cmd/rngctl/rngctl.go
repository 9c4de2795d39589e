// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"github.com/rngsource/rngclient/internal/version"
	"github.com/rngsource/rngclient/rpcclient"
	"github.com/rngsource/rngclient/stats"
)

// command describes a single rngctl command: the arguments it takes and the
// function that runs it against the client.
type command struct {
	usage string
	help  string
	run   func(ctx context.Context, client *rpcclient.Client, args []string) (interface{}, error)
}

// commands maps each command name to its description and handler.  The
// handlers return the value to print, which is rendered as indented JSON.
var commands = map[string]command{
	"integers": {
		usage: "integers <n> <min> <max>",
		help:  "Generate n true random integers in [min, max]",
		run: func(ctx context.Context, client *rpcclient.Client, args []string) (interface{}, error) {
			n, min, max, err := threeInts(args)
			if err != nil {
				return nil, err
			}
			return client.GenerateIntegers(ctx, n, min, max)
		},
	},
	"sequences": {
		usage: "sequences <n> <length> <min> <max>",
		help:  "Generate n sequences of length true random integers in [min, max]",
		run: func(ctx context.Context, client *rpcclient.Client, args []string) (interface{}, error) {
			if len(args) != 4 {
				return nil, errWrongArgs
			}
			vals, err := parseInts(args)
			if err != nil {
				return nil, err
			}
			return client.GenerateIntegerSequences(ctx, vals[0],
				vals[1], vals[2], vals[3])
		},
	},
	"fractions": {
		usage: "fractions <n> <decimalPlaces>",
		help:  "Generate n true random decimal fractions in [0, 1)",
		run: func(ctx context.Context, client *rpcclient.Client, args []string) (interface{}, error) {
			if len(args) != 2 {
				return nil, errWrongArgs
			}
			vals, err := parseInts(args)
			if err != nil {
				return nil, err
			}
			return client.GenerateDecimalFractions(ctx, vals[0], vals[1])
		},
	},
	"gaussians": {
		usage: "gaussians <n> <mean> <stddev> <significantDigits>",
		help:  "Generate n true random Gaussian samples",
		run: func(ctx context.Context, client *rpcclient.Client, args []string) (interface{}, error) {
			if len(args) != 4 {
				return nil, errWrongArgs
			}
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return nil, err
			}
			mean, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return nil, err
			}
			stddev, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return nil, err
			}
			digits, err := strconv.Atoi(args[3])
			if err != nil {
				return nil, err
			}
			return client.GenerateGaussians(ctx, n, mean, stddev, digits)
		},
	},
	"strings": {
		usage: "strings <n> <length> <characters>",
		help:  "Generate n true random strings from the character set",
		run: func(ctx context.Context, client *rpcclient.Client, args []string) (interface{}, error) {
			if len(args) != 3 {
				return nil, errWrongArgs
			}
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return nil, err
			}
			length, err := strconv.Atoi(args[1])
			if err != nil {
				return nil, err
			}
			return client.GenerateStrings(ctx, n, length, args[2])
		},
	},
	"uuids": {
		usage: "uuids <n>",
		help:  "Generate n version 4 true random UUIDs",
		run: func(ctx context.Context, client *rpcclient.Client, args []string) (interface{}, error) {
			if len(args) != 1 {
				return nil, errWrongArgs
			}
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return nil, err
			}
			return client.GenerateUUIDs(ctx, n)
		},
	},
	"blobs": {
		usage: "blobs <n> <sizeBits>",
		help:  "Generate n true random blobs of sizeBits bits each, printed as hex",
		run: func(ctx context.Context, client *rpcclient.Client, args []string) (interface{}, error) {
			if len(args) != 2 {
				return nil, errWrongArgs
			}
			vals, err := parseInts(args)
			if err != nil {
				return nil, err
			}
			blobs, err := client.GenerateBlobs(ctx, vals[0], vals[1])
			if err != nil {
				return nil, err
			}
			encoded := make([]string, 0, len(blobs))
			for _, blob := range blobs {
				encoded = append(encoded, hex.EncodeToString(blob))
			}
			return encoded, nil
		},
	},
	"usage": {
		usage: "usage",
		help:  "Query the usage accounting of the API key",
		run: func(ctx context.Context, client *rpcclient.Client, args []string) (interface{}, error) {
			if len(args) != 0 {
				return nil, errWrongArgs
			}
			return client.Usage(ctx)
		},
	},
	"createtickets": {
		usage: "createtickets <n> <showResult>",
		help:  "Reserve n tickets for later use",
		run: func(ctx context.Context, client *rpcclient.Client, args []string) (interface{}, error) {
			if len(args) != 2 {
				return nil, errWrongArgs
			}
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return nil, err
			}
			showResult, err := strconv.ParseBool(args[1])
			if err != nil {
				return nil, err
			}
			return client.CreateTickets(ctx, n, showResult)
		},
	},
	"listtickets": {
		usage: "listtickets <singleton|head|tail>",
		help:  "List the API key's tickets of the given type",
		run: func(ctx context.Context, client *rpcclient.Client, args []string) (interface{}, error) {
			if len(args) != 1 {
				return nil, errWrongArgs
			}
			return client.ListTickets(ctx, args[0])
		},
	},
	"getticket": {
		usage: "getticket <ticketId>",
		help:  "Look up a single ticket by its id",
		run: func(ctx context.Context, client *rpcclient.Client, args []string) (interface{}, error) {
			if len(args) != 1 {
				return nil, errWrongArgs
			}
			return client.GetTicket(ctx, args[0])
		},
	},
}

var errWrongArgs = fmt.Errorf("wrong number of arguments")

// parseInts converts every argument to an int.
func parseInts(args []string) ([]int, error) {
	vals := make([]int, 0, len(args))
	for _, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// threeInts converts exactly three arguments to ints.
func threeInts(args []string) (int, int, int, error) {
	if len(args) != 3 {
		return 0, 0, 0, errWrongArgs
	}
	vals, err := parseInts(args)
	if err != nil {
		return 0, 0, 0, err
	}
	return vals[0], vals[1], vals[2], nil
}

// listCommands prints the supported commands with their usage to the
// provided writer.
func listCommands(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Commands:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-45s %s\n", commands[name].usage,
			commands[name].help)
	}
}

// promptAPIKey reads the API key from the terminal without echoing it.
func promptAPIKey() (string, error) {
	fmt.Fprint(os.Stderr, "API key: ")
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprint(os.Stderr, "\n")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(key)), nil
}

// run is the real main function for rngctl.  It is necessary to work around
// the fact that deferred functions do not run when os.Exit() is called.
func run() int {
	cfg, args, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	if cfg.ShowVersion {
		fmt.Printf("rngctl version %s (Go version %s %s/%s)\n",
			version.String(), runtime.Version(), runtime.GOOS,
			runtime.GOARCH)
		return 0
	}

	if cfg.LogDir != "" {
		initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	}

	apiKey := cfg.APIKey
	if cfg.PromptAPIKey || apiKey == "" {
		apiKey, err = promptAPIKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "unable to read API key: %v\n", err)
			return 1
		}
	}

	var certs []byte
	if !cfg.NoTLS && cfg.RPCCert != "" {
		certs, err = os.ReadFile(cfg.RPCCert)
		if err != nil {
			fmt.Fprintf(os.Stderr, "unable to read certificate "+
				"file: %v\n", err)
			return 1
		}
	}

	client, err := rpcclient.New(&rpcclient.ConnectConfig{
		Host:         cfg.Host,
		Endpoint:     cfg.Endpoint,
		APIKey:       apiKey,
		DisableTLS:   cfg.NoTLS,
		Certificates: certs,
		Proxy:        cfg.Proxy,
		ProxyUser:    cfg.ProxyUser,
		ProxyPass:    cfg.ProxyPass,
		HTTPPostMode: !cfg.Websocket,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to create client: %v\n", err)
		return 1
	}
	defer client.Shutdown()

	ctx := shutdownListener()

	if cfg.MetricsListen != "" {
		stats.New(prometheus.DefaultRegisterer, client)
		go func() {
			log.Infof("Serving prometheus metrics on %s",
				cfg.MetricsListen)
			err := http.ListenAndServe(cfg.MetricsListen,
				promhttp.Handler())
			if err != nil {
				log.Errorf("Metrics listener failed: %v", err)
			}
		}()
	}

	if len(args) == 0 {
		// Only serving metrics; block until interrupted.
		<-ctx.Done()
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		listCommands(os.Stderr)
		return 2
	}

	result, err := cmd.run(ctx, client, args[1:])
	if err != nil {
		if err == errWrongArgs {
			fmt.Fprintf(os.Stderr, "usage: rngctl %s\n", cmd.usage)
			return 2
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to render result: %v\n", err)
		return 1
	}
	fmt.Println(string(output))
	return 0
}

func main() {
	os.Exit(run())
}
