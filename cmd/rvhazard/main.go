// Package main provides the rvhazard command.
//
// rvhazard builds the built-in hazard sequences and any YAML suite files
// into test bench artifacts (.hex, .bin, .lst, .expect.json), and can
// self-check every program on the golden model before it is handed to a
// pipelined core.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tebeka/atexit"
	"golang.org/x/term"
)

var (
	configPath = flag.String("config", "", "Path to configuration JSON file")
	suitePaths = flag.String("suite", "", "Comma-separated YAML suite files to build")
	outDir     = flag.String("out", "build", "Directory to write artifacts to")
	check      = flag.Bool("check", false, "Run every program on the golden model and check its expectations")
	only       = flag.String("only", "", "Comma-separated sequence names to build")
	noCatalog  = flag.Bool("no-catalog", false, "Do not build the built-in sequences")
	list       = flag.Bool("list", false, "List the built-in sequences and exit")
	disasm     = flag.String("disasm", "", "Disassemble an artifact (.hex, .bin or .elf) and exit")
	runImage   = flag.String("run", "", "Run an artifact on the golden model, dump its registers and exit")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rvhazard [options]\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	style := table.StyleDefault
	if term.IsTerminal(int(os.Stdout.Fd())) {
		style = table.StyleLight
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	atexit.Register(stop)

	opts := options{
		ConfigPath: *configPath,
		SuitePaths: splitList(*suitePaths),
		OutDir:     *outDir,
		Check:      *check,
		Only:       splitList(*only),
		NoCatalog:  *noCatalog,
		List:       *list,
		Disasm:     *disasm,
		Run:        *runImage,
		Style:      style,
	}

	atexit.Exit(run(ctx, opts, os.Stdout))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
