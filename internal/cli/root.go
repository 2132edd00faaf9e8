// Copyright 2025 The axfor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cli implements the sqldap command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"sqldap/internal/directory"
	"sqldap/internal/render"
	"sqldap/internal/session"
	"sqldap/pkg/config"
	"sqldap/pkg/log"
	"sqldap/pkg/metrics"
	"sqldap/pkg/sqlerr"
)

// Usage is printed when no query is given.
const Usage = `
Usage:
$ sqldap filename.sql [server]
or
$ sqldap "SELECT uid FROM dc=example,dc=com WHERE gid=100" [server]

When server is not provided then the first found server in sqldap.ini
will be used as server.
`

// Options holds the global flags.
type Options struct {
	ConfigPath  string
	LogLevel    string
	LogFile     string
	MetricsFile string
}

// NewRootCommand creates the sqldap command.
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "sqldap [query|file] [server]",
		Short: "Query an LDAP directory with SQL",
		Long: "sqldap translates SELECT statements into LDAP searches and plans UPDATE\n" +
			"statements without modifying the directory.",
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_, err := fmt.Fprint(cmd.OutOrStdout(), Usage)
				return err
			}
			server := ""
			if len(args) > 1 {
				server = args[1]
			}
			return run(cmd, opts, args[0], server)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default: discovered "+config.DefaultFilename+")")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "write logs to this file instead of stderr")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", "", "write metrics in text exposition format to this file")

	return cmd
}

func run(cmd *cobra.Command, opts *Options, input, serverName string) (err error) {
	out := cmd.OutOrStdout()

	cfg, err := config.LoadDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("%w\n%s", err, config.Usage(config.DefaultFilename))
	}

	if err := initLogger(cfg, opts); err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	fmt.Fprintf(out, "Using config file %s\n", cfg.Path)

	script, err := readScript(input)
	if err != nil {
		return err
	}

	server, err := cfg.Resolve(serverName)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Using server: %s (%s)\n\n", server.Name, server.Connection)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	if opts.MetricsFile != "" {
		defer func() {
			if werr := metrics.WriteTextfile(registry, opts.MetricsFile); werr != nil {
				log.Warn("failed to write metrics", log.String("path", opts.MetricsFile), log.Err(werr))
			}
		}()
	}

	runner := session.NewRunner(session.New(cfg, server), directory.Open, render.New(out),
		session.WithMetrics(m),
		session.WithLogger(log.GetLogger()),
	)
	return runner.Run(cmd.Context(), script)
}

// readScript returns the file content when input names a regular file,
// and input itself otherwise.
func readScript(input string) (string, error) {
	info, err := os.Stat(input)
	if err != nil || info.IsDir() {
		return input, nil
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return "", fmt.Errorf("cannot read sql file: %w", err)
	}
	return string(data), nil
}

func initLogger(cfg *config.Config, opts *Options) error {
	lc := &log.Config{
		Level:         cfg.Log.Level,
		Encoding:      cfg.Log.Encoding,
		OutputPaths:   []string{"stderr"},
		DisableCaller: true,
	}
	if opts.LogLevel != "" {
		lc.Level = opts.LogLevel
	}
	file := cfg.Log.File
	if opts.LogFile != "" {
		file = opts.LogFile
	}
	if file != "" {
		lc.OutputPaths = []string{file}
	}
	if err := log.InitGlobalLogger(lc); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	return nil
}

// Execute runs the command and returns the process exit code.
func Execute(cmd *cobra.Command, stderr io.Writer) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return sqlerr.ExitCode(err)
	}
	return 0
}
