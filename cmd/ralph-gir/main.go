package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/raymyers/ralph-gir/pkg/preproc"
)

var version = "0.1.0"

// Debug flags for dumping intermediate representations
var (
	dParse bool
	dGIR   bool
	dFlat  bool
)

// Output and pipeline options
var (
	outputFormat string
	sqlitePath   string
	watchMode    bool
	verbose      bool
	showStats    bool
	bodyMode     bool
	jobs         int
)

// Preprocessor options
var (
	useCpp        bool
	includePaths  []string
	defineFlags   []string
	undefineFlags []string
)

// ErrUnknownFormat reports a --format value other than text or yaml.
var ErrUnknownFormat = errors.New("unknown output format")

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// Normalize CompCert-style single-dash flags to double-dash for pflag compatibility
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists the debug flags that also accept the single-dash style
var debugFlagNames = []string{"dparse", "dgir", "dflat"}

// normalizeFlags converts CompCert-style single-dash flags like -dparse to --dparse
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ralph-gir [file]",
		Short: "ralph-gir lowers C function bodies into a flat statement IR",
		Long: `ralph-gir parses C, hoists every side-effecting subexpression into
block-local temporaries and flattens the resulting statement tree into
a stream of records delimited by block_start/block_end markers.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFormat != "text" && outputFormat != "yaml" {
				fmt.Fprintf(errOut, "ralph-gir: unknown format %q (want text or yaml)\n", outputFormat)
				return ErrUnknownFormat
			}
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			filename := args[0]

			p, err := newPipeline(out, errOut)
			if err != nil {
				fmt.Fprintf(errOut, "ralph-gir: %v\n", err)
				return err
			}
			defer p.Close()

			if watchMode {
				return p.watch(cmd.Context(), filename)
			}
			return p.process(cmd.Context(), filename)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	// Add debug flags
	rootCmd.Flags().BoolVarP(&dParse, "dparse", "", false, "Dump after parsing")
	rootCmd.Flags().BoolVarP(&dGIR, "dgir", "", false, "Dump the normalized statement tree")
	rootCmd.Flags().BoolVarP(&dFlat, "dflat", "", false, "Dump the flat record stream")

	// Add output flags
	rootCmd.Flags().StringVar(&outputFormat, "format", "text", "Flat stream format: text or yaml")
	rootCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "Export flat streams to this SQLite database")
	rootCmd.Flags().BoolVar(&watchMode, "watch", false, "Re-lower the file whenever it changes")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Trace pipeline stages on stderr")
	rootCmd.Flags().BoolVar(&showStats, "stats", false, "Print record counts per operation")
	rootCmd.Flags().BoolVar(&bodyMode, "body", false, "Treat the file as a bare statement list")
	rootCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Functions lowered in parallel (0 = unlimited)")

	// Add preprocessor flags
	rootCmd.Flags().BoolVar(&useCpp, "cpp", false, "Run the external C preprocessor first")
	rootCmd.Flags().StringArrayVarP(&includePaths, "include", "I", nil, "Add directory to include search path")
	rootCmd.Flags().StringArrayVarP(&defineFlags, "define", "D", nil, "Define macro (NAME or NAME=VALUE)")
	rootCmd.Flags().StringArrayVarP(&undefineFlags, "undefine", "U", nil, "Undefine macro")

	rootCmd.Flags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	return rootCmd
}

// buildPreprocessorOptions creates preproc.Options from CLI flags
func buildPreprocessorOptions() *preproc.Options {
	return &preproc.Options{
		IncludePaths: includePaths,
		Defines:      defineFlags,
		Undefines:    undefineFlags,
	}
}

// newLogger returns the stage tracer enabled by --verbose.
func newLogger(errOut io.Writer) *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(errOut, "ralph-gir: ", 0)
}

// outputFilename replaces a trailing .c with ext: input.c -> input<ext>
func outputFilename(filename, ext string) string {
	if strings.HasSuffix(filename, ".c") {
		return filename[:len(filename)-len(".c")] + ext
	}
	return filename + ext
}

// flatExt returns the dump extension for the selected flat format.
func flatExt() string {
	if outputFormat == "yaml" {
		return ".flat.yaml"
	}
	return ".flat"
}
