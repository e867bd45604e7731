package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raymyers/ralph-gir/pkg/girgen"
	"github.com/raymyers/ralph-gir/pkg/girstore"
	"github.com/raymyers/ralph-gir/pkg/preproc"
)

const twoFunctions = `int puts(const char *s);
int add(int a, int b) { return a + b; }
int main(void) {
  int i = 0;
  while (i < 3) { puts("x"); i++; }
  return add(i, 1);
}
`

func resetFlags() {
	dParse = false
	dGIR = false
	dFlat = false
	outputFormat = "text"
	sqlitePath = ""
	watchMode = false
	verbose = false
	showStats = false
	bodyMode = false
	jobs = 0
	useCpp = false
	includePaths = nil
	defineFlags = nil
	undefineFlags = nil
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(normalizeFlags(args))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestFlagsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)

	expectedFlags := []string{
		"dparse", "dgir", "dflat", "format", "sqlite", "watch", "verbose",
		"stats", "body", "jobs", "cpp", "include", "define", "undefine",
	}
	for _, flagName := range expectedFlags {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("expected flag --%s to exist", flagName)
		}
	}
}

func TestNormalizeFlags(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"single-dash dparse", []string{"-dparse", "test.c"}, []string{"--dparse", "test.c"}},
		{"single-dash dgir", []string{"-dgir", "test.c"}, []string{"--dgir", "test.c"}},
		{"single-dash dflat", []string{"-dflat", "--format", "yaml"}, []string{"--dflat", "--format", "yaml"}},
		{"double-dash unchanged", []string{"--dflat", "test.c"}, []string{"--dflat", "test.c"}},
		{"short flags unchanged", []string{"-I", "inc", "-DX=1"}, []string{"-I", "inc", "-DX=1"}},
		{"empty", []string{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizeFlags(tt.input)
			if strings.Join(result, " ") != strings.Join(tt.expected, " ") {
				t.Errorf("normalizeFlags(%v) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestOutputFilename(t *testing.T) {
	tests := []struct {
		input, ext, expected string
	}{
		{"test.c", ".gir", "test.gir"},
		{"/path/to/file.c", ".flat", "/path/to/file.flat"},
		{"noext", ".parsed.c", "noext.parsed.c"},
		{"file.i", ".flat.yaml", "file.i.flat.yaml"},
	}
	for _, tt := range tests {
		if got := outputFilename(tt.input, tt.ext); got != tt.expected {
			t.Errorf("outputFilename(%q, %q) = %q, want %q", tt.input, tt.ext, got, tt.expected)
		}
	}
}

func TestDefaultOutputIsFlatStream(t *testing.T) {
	path := writeTemp(t, "two.c", twoFunctions)
	out, errOut, err := execute(t, path)
	if err != nil {
		t.Fatalf("unexpected error: %v\nstderr: %s", err, errOut)
	}

	for _, want := range []string{"# add\n", "# main\n", "1 method_decl", "block_start", "parameter_decl", "while_stmt", "return_stmt"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Index(out, "# add") > strings.Index(out, "# main") {
		t.Errorf("expected functions in source order")
	}
	if _, err := os.Stat(outputFilename(path, ".flat")); !os.IsNotExist(err) {
		t.Errorf("default mode should not write a dump file")
	}
}

func TestBodyMode(t *testing.T) {
	path := writeTemp(t, "body.c", "switch (a++) { case 0: x = 1; break; default: x = 2; }\n")
	out, errOut, err := execute(t, "--body", path)
	if err != nil {
		t.Fatalf("unexpected error: %v\nstderr: %s", err, errOut)
	}
	if strings.Contains(out, "#") {
		t.Errorf("body mode should not print a function header, got:\n%s", out)
	}
	if !strings.HasPrefix(out, "1 ") {
		t.Errorf("expected stream to start at statement 1, got:\n%s", out)
	}
	if !strings.Contains(out, "switch_stmt") || !strings.Contains(out, "case_stmt") {
		t.Errorf("expected switch and case records, got:\n%s", out)
	}
}

func TestDParseCreatesOutputFile(t *testing.T) {
	path := writeTemp(t, "parse.c", twoFunctions)
	out, errOut, err := execute(t, "-dparse", path)
	if err != nil {
		t.Fatalf("unexpected error: %v\nstderr: %s", err, errOut)
	}
	content, err := os.ReadFile(outputFilename(path, ".parsed.c"))
	if err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if string(content) != out {
		t.Errorf("file content differs from stdout")
	}
	if !strings.Contains(out, "add") || !strings.Contains(out, "while") {
		t.Errorf("expected printed source, got:\n%s", out)
	}
}

func TestDGIRCreatesOutputFile(t *testing.T) {
	path := writeTemp(t, "tree.c", twoFunctions)
	out, errOut, err := execute(t, "-dgir", path)
	if err != nil {
		t.Fatalf("unexpected error: %v\nstderr: %s", err, errOut)
	}
	content, err := os.ReadFile(outputFilename(path, ".gir"))
	if err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if string(content) != out {
		t.Errorf("file content differs from stdout")
	}
	if !strings.Contains(out, "int add(int a, int b) {") {
		t.Errorf("expected method header, got:\n%s", out)
	}
}

func TestDFlatYAML(t *testing.T) {
	path := writeTemp(t, "flat.c", twoFunctions)
	out, errOut, err := execute(t, "-dflat", "--format", "yaml", path)
	if err != nil {
		t.Fatalf("unexpected error: %v\nstderr: %s", err, errOut)
	}
	if _, err := os.Stat(outputFilename(path, ".flat.yaml")); err != nil {
		t.Errorf("expected yaml dump file: %v", err)
	}

	var docs []struct {
		Function string           `yaml:"function"`
		Records  []map[string]any `yaml:"records"`
	}
	if err := yaml.Unmarshal([]byte(out), &docs); err != nil {
		t.Fatalf("output is not valid YAML: %v\n%s", err, out)
	}
	if len(docs) != 2 || docs[0].Function != "add" || docs[1].Function != "main" {
		t.Fatalf("unexpected documents: %+v", docs)
	}
	first := docs[0].Records[0]
	if first["operation"] != "method_decl" || first["stmt_id"] != 1 {
		t.Errorf("unexpected first record %v", first)
	}
}

func TestUnknownFormat(t *testing.T) {
	path := writeTemp(t, "f.c", twoFunctions)
	_, errOut, err := execute(t, "--format", "json", path)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
	if !strings.Contains(errOut, "unknown format") {
		t.Errorf("expected a message, got %q", errOut)
	}
}

func TestFileNotFound(t *testing.T) {
	_, errOut, err := execute(t, "nonexistent.c")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
	if !strings.Contains(errOut, "error reading") {
		t.Errorf("expected read error message, got %q", errOut)
	}
}

func TestParseErrorsReported(t *testing.T) {
	path := writeTemp(t, "bad.c", "int main( {")
	_, errOut, err := execute(t, path)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if !strings.Contains(errOut, "bad.c: line") {
		t.Errorf("expected positioned parser errors, got %q", errOut)
	}
}

func TestCppWithSystemHeader(t *testing.T) {
	path := writeTemp(t, "hello.c", `#include <stdio.h>

int main(void) {
  int i = 0;
  printf("%d\n", i++);
  return 0;
}
`)
	out, errOut, err := execute(t, "--cpp", path)
	if errors.Is(err, preproc.ErrNoPreprocessor) {
		t.Skip("no system C preprocessor available")
	}
	if err != nil {
		t.Fatalf("unexpected error: %v\nstderr: %s", err, errOut)
	}
	if !strings.HasPrefix(out, "# main\n") || strings.Count(out, "# ") != 1 {
		t.Errorf("expected only main to be lowered, got:\n%s", out)
	}
	for _, want := range []string{"method_decl", "call_stmt", "return_stmt"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestLoweringErrorReported(t *testing.T) {
	path := writeTemp(t, "case.c", "int f(void) { case 1: return 0; }\n")
	out, errOut, err := execute(t, path)
	if !errors.Is(err, girgen.ErrMalformedAST) {
		t.Fatalf("expected ErrMalformedAST, got %v", err)
	}
	if out != "" {
		t.Errorf("expected no partial output, got:\n%s", out)
	}
	if !strings.Contains(errOut, "in function f") {
		t.Errorf("expected the function name in %q", errOut)
	}
}

func TestSQLiteExport(t *testing.T) {
	path := writeTemp(t, "export.c", twoFunctions)
	dbPath := filepath.Join(t.TempDir(), "gir.db")
	out, errOut, err := execute(t, "--sqlite", dbPath, "-j", "1", path)
	if err != nil {
		t.Fatalf("unexpected error: %v\nstderr: %s", err, errOut)
	}

	ctx := context.Background()
	store, err := girstore.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	runs, err := store.Runs(ctx)
	if err != nil || len(runs) != 1 || runs[0].Source != path {
		t.Fatalf("unexpected runs %v (err %v)", runs, err)
	}
	names, err := store.Functions(ctx, runs[0].ID)
	if err != nil || strings.Join(names, ",") != "add,main" {
		t.Fatalf("unexpected functions %v (err %v)", names, err)
	}
	add, err := store.LoadFunction(ctx, runs[0].ID, "add")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, add.Text()) {
		t.Errorf("stored stream does not match printed stream:\n%s", add.Text())
	}
}

func TestStats(t *testing.T) {
	path := writeTemp(t, "stats.c", twoFunctions)
	_, errOut, err := execute(t, "--stats", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(errOut, "ralph-gir: 2 functions, ") {
		t.Errorf("expected a summary line, got %q", errOut)
	}
	if !strings.Contains(errOut, "method_decl=2") {
		t.Errorf("expected per-operation counts, got %q", errOut)
	}
}

func TestVerboseTracesStages(t *testing.T) {
	path := writeTemp(t, "verbose.c", twoFunctions)
	_, errOut, err := execute(t, "-v", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"ralph-gir: parsed 3 definitions", "lowering 2 of 2 functions", "ralph-gir: add: "} {
		if !strings.Contains(errOut, want) {
			t.Errorf("expected %q in trace, got:\n%s", want, errOut)
		}
	}
}

func TestPipelineReusesCachedFunctions(t *testing.T) {
	resetFlags()
	path := writeTemp(t, "cache.c", twoFunctions)
	var out, errOut bytes.Buffer
	p, err := newPipeline(&out, &errOut)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	ctx := context.Background()
	if err := p.process(ctx, path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := out.String()
	if p.hits != 0 || p.cache.Len() != 2 {
		t.Fatalf("expected 2 cached functions and no hits, got len %d hits %d", p.cache.Len(), p.hits)
	}

	edited := strings.Replace(twoFunctions, "return add(i, 1);", "return add(i, 2);", 1)
	if err := os.WriteFile(path, []byte(edited), 0644); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := p.process(ctx, path); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if p.hits != 1 {
		t.Errorf("expected the unchanged function to be reused, got %d hits", p.hits)
	}
	if out.String() == first {
		t.Errorf("expected the edited function to be lowered again")
	}
}

// syncBuffer is a bytes.Buffer safe for the watch goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, buf *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(buf.String(), want) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q, got:\n%s", want, buf.String())
}

func TestWatchRelowersOnWrite(t *testing.T) {
	resetFlags()
	path := writeTemp(t, "watch.c", "int one(void) { return 1; }\n")
	var out, errOut syncBuffer
	p, err := newPipeline(&out, &errOut)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.watch(ctx, path) }()

	waitFor(t, &out, "# one")
	if err := os.WriteFile(path, []byte("int two(void) { return 2; }\n"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, &out, "# two")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
