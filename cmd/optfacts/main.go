// optfacts CLI - computes optimization facts for a class pool image
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/chazu/optfacts/classfile"
	"github.com/chazu/optfacts/config"
	"github.com/chazu/optfacts/driver"
	"github.com/chazu/optfacts/facts"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

func main() {
	poolPath := flag.String("pool", "", "Pool image to analyse (required)")
	configPath := flag.String("config", "", "Configuration file (default: nearest optfacts.toml)")
	factsIn := flag.String("facts-in", "", "Fact export to import before analysis")
	factsOut := flag.String("facts-out", "", "Write the resulting facts to this file")
	disasm := flag.Bool("disasm", false, "Print a disassembly of every program method")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: optfacts -pool app.pool [options]\n\n")
		fmt.Fprintf(os.Stderr, "Iterates side-effect, escape and field facts to a fixed point and prints them.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  optfacts -pool app.pool                         # Analyse and print facts\n")
		fmt.Fprintf(os.Stderr, "  optfacts -pool rt.pool -facts-out rt.facts      # Save library facts\n")
		fmt.Fprintf(os.Stderr, "  optfacts -pool app.pool -facts-in rt.facts -v   # Reuse them\n")
	}
	flag.Parse()

	if *poolPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	verbosity := cfg.Log.Verbosity
	if *verbose && verbosity < 2 {
		verbosity = 2
	}
	var logPath *string
	if cfg.Log.File != "" {
		logPath = &cfg.Log.File
	}
	commonlog.Configure(verbosity, logPath)

	pool, err := readPool(*poolPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := driver.Options{
		MaxPasses:   cfg.Driver.MaxPasses,
		Parallelism: cfg.Driver.Parallelism,
		TrackReads:  cfg.Driver.TrackReads,
		TrackWrites: cfg.Driver.TrackWrites,
		Seeds:       cfg.Seeds(),
	}
	imports := cfg.ImportPaths()
	if *factsIn != "" {
		imports = append(imports, *factsIn)
	}
	for _, path := range imports {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts.Imports = append(opts.Imports, data)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	table := facts.NewTable()
	res, err := driver.New(pool, table, opts).Run(ctx)
	if err != nil && !errors.Is(err, driver.ErrNoFixedPoint) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v after %d passes; facts are incomplete\n", err, res.Passes)
	}
	if *verbose {
		fmt.Printf("Run %s: %d passes, %d method facts, %d field facts\n",
			res.RunID, res.Passes, res.Change.Methods, res.Change.Fields)
	}

	if *disasm {
		writeDisassembly(os.Stdout, pool)
	}
	writeReport(os.Stdout, pool, table)

	out := *factsOut
	if out == "" {
		out = cfg.ExportPath()
	}
	if out != "" {
		data, err := facts.Export(pool, table)
		if err == nil {
			err = os.WriteFile(out, data, 0644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Printf("Wrote %s (%d bytes)\n", out, len(data))
		}
	}

	if !res.Converged {
		os.Exit(3)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.FindAndLoad(wd)
}

func readPool(path string) (*classfile.Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool, err := classfile.UnmarshalPool(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pool, nil
}
