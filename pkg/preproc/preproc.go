// Package preproc runs the system C preprocessor (cc -E) ahead of parsing.
// Macro expansion and conditional compilation are left entirely to it.
package preproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoPreprocessor reports that none of the candidate commands exist.
var ErrNoPreprocessor = errors.New("no C preprocessor found (tried: cc, gcc, clang, cpp)")

// Options configures the preprocessing step
type Options struct {
	Command      string   // preprocessor binary; found on PATH when empty
	IncludePaths []string // -I directories
	Defines      []string // -D macros, NAME or NAME=VALUE
	Undefines    []string // -U macros
}

// Args returns the preprocessor command line for filename, excluding the
// command itself.
func (o *Options) Args(filename string) []string {
	args := []string{"-E"}
	if o != nil {
		for _, path := range o.IncludePaths {
			args = append(args, "-I"+path)
		}
		for _, def := range o.Defines {
			args = append(args, "-D"+def)
		}
		for _, name := range o.Undefines {
			args = append(args, "-U"+name)
		}
	}
	return append(args, filename)
}

// Preprocess runs the preprocessor on filename and returns its output.
// Relative includes resolve against the file's directory.
func Preprocess(ctx context.Context, filename string, opts *Options) (string, error) {
	command := ""
	if opts != nil {
		command = opts.Command
	}
	if command == "" {
		command = findPreprocessor()
		if command == "" {
			return "", ErrNoPreprocessor
		}
	}

	abs, err := filepath.Abs(filename)
	if err != nil {
		return "", err
	}
	cmd := exec.CommandContext(ctx, command, opts.Args(abs)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = filepath.Dir(abs)

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("preprocessing %s failed: %w\n%s", filename, err, stderr.String())
	}
	return stdout.String(), nil
}

// PreprocessString preprocesses source as if it were read from filename.
func PreprocessString(ctx context.Context, source, filename string, opts *Options) (string, error) {
	baseName := filepath.Base(filename)
	if baseName == "" || baseName == "." {
		baseName = "source.c"
	}
	dir, err := os.MkdirTemp("", "ralph-gir-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	tmpFile := filepath.Join(dir, baseName)
	if err := os.WriteFile(tmpFile, []byte(source), 0644); err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	return Preprocess(ctx, tmpFile, opts)
}

// NeedsPreprocessing returns true if the file might need preprocessing.
// Files ending in .i are considered already preprocessed.
func NeedsPreprocessing(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) != ".i"
}

// findPreprocessor searches for a C preprocessor on the system
func findPreprocessor() string {
	for _, cmd := range []string{"cc", "gcc", "clang", "cpp"} {
		if path, err := exec.LookPath(cmd); err == nil {
			return path
		}
	}
	return ""
}
