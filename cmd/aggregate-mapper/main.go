// Package main provides the CLI entrypoint for aggregate-mapper.
//
// aggregate-mapper moves aggregates between representations:
//   - check and order inspect a model definition
//   - import decodes JSON records into a bbolt record store
//   - migrate copies a bbolt store into SQLite, rewriting identifiers
//   - export renders the aggregates of a bbolt store as JSON
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "aggregate-mapper",
		Usage: "Transform and migrate aggregate graphs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model", Usage: "model definition YAML"},
			&cli.StringSliceFlag{Name: "packages", Usage: "Go package patterns to read the model from instead"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "panic, fatal, error, warn, info, debug or trace"},
		},
		Commands: []*cli.Command{
			checkCommand(),
			orderCommand(),
			importCommand(),
			migrateCommand(),
			exportCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
