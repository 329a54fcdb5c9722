package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultCompileTimeout = 120 * time.Second

// CompilerCommand is one way to compile a file. "{file}" and "{outdir}" in
// Args are replaced with the source path and an output directory beside it.
type CompilerCommand struct {
	Binary string
	Args   []string
}

// DefaultCompilers lists compilers by extension in order of preference.
var DefaultCompilers = map[string][]CompilerCommand{
	".scala": {
		{Binary: "scalac", Args: []string{"-d", "{outdir}", "{file}"}},
		{Binary: "scala", Args: []string{"compile", "{file}"}},
	},
}

type CompilerExecutor interface {
	// Compile runs the compiler on path and returns its exit code. A file no
	// compiler is known for, or whose compiler is missing, yields 0.
	Compile(ctx context.Context, path string) (int, error)
}

func NewCompilerExecutor(compilers map[string][]CompilerCommand, timeout time.Duration, stdout io.Writer, stderr io.Writer) CompilerExecutor {
	if compilers == nil {
		compilers = DefaultCompilers
	}
	if timeout <= 0 {
		timeout = DefaultCompileTimeout
	}
	return &compilerExecutorImpl{compilers: compilers, timeout: timeout, stdout: stdout, stderr: stderr}
}

type compilerExecutorImpl struct {
	compilers map[string][]CompilerCommand
	timeout   time.Duration
	stdout    io.Writer
	stderr    io.Writer
}

func (c *compilerExecutorImpl) Compile(ctx context.Context, path string) (int, error) {
	ext := strings.ToLower(filepath.Ext(path))
	candidates, exists := c.compilers[ext]
	if !exists {
		fmt.Fprintf(c.stdout, "invsc: note: no compiler known for '%s'. Invariant check passed but skipping compilation.\n", filepath.Base(path))
		return 0, nil
	}

	var command *CompilerCommand
	var binPath string
	for i := range candidates {
		p, err := exec.LookPath(candidates[i].Binary)
		if err == nil {
			command = &candidates[i]
			binPath = p
			break
		}
	}
	if command == nil {
		var names []string
		for _, cand := range candidates {
			names = append(names, "'"+cand.Binary+"'")
		}
		fmt.Fprintf(c.stdout, "invsc: note: none of %s found in PATH. Invariant check passed but cannot compile.\n", strings.Join(names, ", "))
		return 0, nil
	}

	outDir := filepath.Join(filepath.Dir(path), "out")
	var args []string
	usesOutDir := false
	for _, arg := range command.Args {
		if strings.Contains(arg, "{outdir}") {
			usesOutDir = true
		}
		arg = strings.ReplaceAll(arg, "{outdir}", outDir)
		arg = strings.ReplaceAll(arg, "{file}", path)
		args = append(args, arg)
	}
	if usesOutDir {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return 1, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	fmt.Fprintf(c.stdout, "[INVSC] Compiling: %s %s\n", command.Binary, strings.Join(args, " "))

	cmdCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, binPath, args...)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr

	start := time.Now()
	err := cmd.Run()
	log.Debugf("%s finished in %dms", command.Binary, time.Since(start).Milliseconds())

	if err != nil {
		// a killed process reports its signal, so check the deadline explicitly
		if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
			fmt.Fprintf(c.stderr, "invsc: error: compilation timed out (%v)\n", c.timeout)
			return 1, nil
		}
		if ctx.Err() != nil {
			return 1, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(c.stderr, "[INVSC] %s exited with code %d.\n", command.Binary, exitErr.ExitCode())
			return exitErr.ExitCode(), nil
		}
		return 1, fmt.Errorf("compilation failed: %w", err)
	}

	fmt.Fprintf(c.stdout, "[INVSC] %s finished successfully.\n", command.Binary)
	return 0, nil
}
