package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"

	"github.com/raymyers/ralph-gir/pkg/cabs"
	"github.com/raymyers/ralph-gir/pkg/gir"
	"github.com/raymyers/ralph-gir/pkg/girgen"
	"github.com/raymyers/ralph-gir/pkg/girstore"
	"github.com/raymyers/ralph-gir/pkg/linearize"
	"github.com/raymyers/ralph-gir/pkg/parser"
	"github.com/raymyers/ralph-gir/pkg/preproc"
)

// cacheSize bounds the number of lowered functions kept between runs in
// watch mode.
const cacheSize = 512

// bodyName labels the single unit produced by --body.
const bodyName = "<body>"

// unit is one lowered function, or the whole file in --body mode.
type unit struct {
	Name   string
	Tree   *gir.Block
	Stream *linearize.Stream
}

// pipeline runs parse, lower, linearize and export for one input file.
type pipeline struct {
	out    io.Writer
	errOut io.Writer
	log    *log.Logger
	cache  *lru.Cache[string, unit]
	store  *girstore.Store
	hits   int
}

func newPipeline(out, errOut io.Writer) (*pipeline, error) {
	cache, err := lru.New[string, unit](cacheSize)
	if err != nil {
		return nil, err
	}
	p := &pipeline{out: out, errOut: errOut, log: newLogger(errOut), cache: cache}
	if sqlitePath != "" {
		store, err := girstore.Open(sqlitePath)
		if err != nil {
			return nil, err
		}
		p.store = store
	}
	return p, nil
}

// Close releases the export database, if any.
func (p *pipeline) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

// readSource reads a C file, running the external preprocessor when --cpp
// is set. Files with a .i extension are assumed already preprocessed.
func (p *pipeline) readSource(ctx context.Context, filename string) (string, error) {
	if useCpp && preproc.NeedsPreprocessing(filename) {
		p.log.Printf("preprocessing %s", filename)
		content, err := preproc.Preprocess(ctx, filename, buildPreprocessorOptions())
		if err != nil {
			fmt.Fprintf(p.errOut, "ralph-gir: preprocessing error: %v\n", err)
			return "", err
		}
		return content, nil
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(p.errOut, "ralph-gir: error reading %s: %v\n", filename, err)
		return "", err
	}
	return string(content), nil
}

// reportParseErrors prints parser errors and returns a summary error.
func (p *pipeline) reportParseErrors(filename string, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	for _, e := range errs {
		fmt.Fprintf(p.errOut, "%s: %s\n", filename, e)
	}
	return fmt.Errorf("parsing failed with %d errors", len(errs))
}

// process runs the pipeline once over filename and writes the requested
// dumps.
func (p *pipeline) process(ctx context.Context, filename string) error {
	content, err := p.readSource(ctx, filename)
	if err != nil {
		return err
	}

	var units []unit
	if bodyMode {
		stmts, errs := parser.ParseStatements(content)
		if err := p.reportParseErrors(filename, errs); err != nil {
			return err
		}
		p.log.Printf("parsed %s statements", humanize.Comma(int64(len(stmts))))
		if dParse {
			return p.dump(filename, ".parsed.c", func(w io.Writer) error {
				cabs.NewPrinter(w).PrintStmts(stmts)
				return nil
			})
		}
		u, err := lowerBody(stmts)
		if err != nil {
			fmt.Fprintf(p.errOut, "ralph-gir: %s: %v\n", filename, err)
			return err
		}
		units = []unit{u}
	} else {
		prog, errs := parser.ParseProgram(content)
		if err := p.reportParseErrors(filename, errs); err != nil {
			return err
		}
		p.log.Printf("parsed %s definitions", humanize.Comma(int64(len(prog.Definitions))))
		if dParse {
			return p.dump(filename, ".parsed.c", func(w io.Writer) error {
				cabs.NewPrinter(w).PrintProgram(prog)
				return nil
			})
		}
		units, err = p.lowerProgram(ctx, prog)
		if err != nil {
			fmt.Fprintf(p.errOut, "ralph-gir: %s: %v\n", filename, err)
			return err
		}
	}

	switch {
	case dGIR:
		err = p.dump(filename, ".gir", func(w io.Writer) error { return writeTrees(w, units) })
	case dFlat:
		err = p.dump(filename, flatExt(), func(w io.Writer) error { return writeStreams(w, units) })
	default:
		err = writeStreams(p.out, units)
	}
	if err != nil {
		return err
	}

	if p.store != nil {
		if err := p.export(ctx, filename, units); err != nil {
			fmt.Fprintf(p.errOut, "ralph-gir: export failed: %v\n", err)
			return err
		}
	}
	if showStats {
		p.printStats(units)
	}
	return nil
}

func lowerBody(stmts []cabs.Stmt) (unit, error) {
	tree, err := girgen.LowerBody(stmts)
	if err != nil {
		return unit{}, err
	}
	return linearizeUnit(bodyName, tree)
}

// linearizeUnit flattens tree and checks the stream invariants.
func linearizeUnit(name string, tree *gir.Block) (unit, error) {
	stream, err := linearize.Linearize(tree)
	if err != nil {
		return unit{}, err
	}
	if err := stream.Validate(); err != nil {
		return unit{}, fmt.Errorf("%s: %w", name, err)
	}
	return unit{Name: name, Tree: tree, Stream: stream}, nil
}

// lowerProgram lowers every function of prog. Functions whose printed
// source is already cached are reused; the rest are lowered together.
func (p *pipeline) lowerProgram(ctx context.Context, prog *cabs.Program) ([]unit, error) {
	fns := prog.Functions()
	units := make([]unit, len(fns))
	keys := make([]string, len(fns))

	misses := &cabs.Program{}
	var missIdx []int
	for i, fn := range fns {
		keys[i] = cabs.FunctionString(fn)
		if u, ok := p.cache.Get(keys[i]); ok {
			units[i] = u
			p.hits++
			continue
		}
		misses.Definitions = append(misses.Definitions, *fn)
		missIdx = append(missIdx, i)
	}
	p.log.Printf("lowering %d of %d functions (%d cached)", len(missIdx), len(fns), len(fns)-len(missIdx))

	lowered, err := girgen.LowerProgram(ctx, misses, girgen.Options{Parallelism: jobs})
	if err != nil {
		return nil, err
	}
	for j, fn := range lowered {
		u, err := linearizeUnit(fn.Name, fn.Tree())
		if err != nil {
			return nil, err
		}
		i := missIdx[j]
		units[i] = u
		p.cache.Add(keys[i], u)
		p.log.Printf("%s: %s records", fn.Name, humanize.Comma(int64(u.Stream.Len())))
	}
	return units, nil
}

// dump writes a representation to the derived output file and to stdout.
func (p *pipeline) dump(filename, ext string, write func(io.Writer) error) error {
	outputFilename := outputFilename(filename, ext)
	outFile, err := os.Create(outputFilename)
	if err != nil {
		fmt.Fprintf(p.errOut, "ralph-gir: error creating %s: %v\n", outputFilename, err)
		return err
	}
	defer outFile.Close()

	if err := write(outFile); err != nil {
		return err
	}
	p.log.Printf("wrote %s", outputFilename)
	return write(p.out)
}

func writeTrees(w io.Writer, units []unit) error {
	printer := gir.NewPrinter(w)
	for _, u := range units {
		printer.PrintBlock(u.Tree)
	}
	return nil
}

// functionDump is the YAML document shape of one unit.
type functionDump struct {
	Function string             `yaml:"function"`
	Records  []linearize.Record `yaml:"records"`
}

func writeStreams(w io.Writer, units []unit) error {
	if outputFormat == "yaml" {
		docs := make([]functionDump, len(units))
		for i, u := range units {
			docs[i] = functionDump{Function: u.Name, Records: u.Stream.Records}
			if docs[i].Records == nil {
				docs[i].Records = []linearize.Record{}
			}
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(docs); err != nil {
			return err
		}
		return enc.Close()
	}

	for i, u := range units {
		if len(units) > 1 || u.Name != bodyName {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "# %s\n", u.Name)
		}
		if err := u.Stream.WriteText(w); err != nil {
			return err
		}
	}
	return nil
}

// export saves every unit under a new run in the SQLite store.
func (p *pipeline) export(ctx context.Context, filename string, units []unit) error {
	run, err := p.store.BeginRun(ctx, filename)
	if err != nil {
		return err
	}
	for _, u := range units {
		if err := p.store.SaveFunction(ctx, run.ID, u.Name, u.Stream); err != nil {
			return err
		}
	}
	p.log.Printf("exported %d functions to %s (run %s)", len(units), sqlitePath, run.ID)
	return nil
}

// printStats writes per-operation record totals across all units.
func (p *pipeline) printStats(units []unit) {
	totals := make(map[string]int)
	records := 0
	for _, u := range units {
		for op, n := range u.Stream.Counts() {
			totals[op] += n
		}
		records += u.Stream.Len()
	}

	ops := make([]string, 0, len(totals))
	for op := range totals {
		ops = append(ops, op)
	}
	slices.Sort(ops)

	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = fmt.Sprintf("%s=%s", op, humanize.Comma(int64(totals[op])))
	}
	fmt.Fprintf(p.errOut, "ralph-gir: %s %s, %s records\n",
		humanize.Comma(int64(len(units))), pluralUnits(len(units)), humanize.Comma(int64(records)))
	if len(parts) > 0 {
		fmt.Fprintf(p.errOut, "ralph-gir: %s\n", strings.Join(parts, " "))
	}
}

func pluralUnits(n int) string {
	if n == 1 {
		return "function"
	}
	return "functions"
}
