package build

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/wippyai/wasm-build/errors"
)

// Compiler is the external compilation step producing a core module from
// the member's sources. The orchestrator treats it as opaque: it only sees
// the resulting bytes or the compiler's own error output.
type Compiler interface {
	Compile(ctx context.Context, dir string, release bool) ([]byte, error)
}

// ExecCompiler shells out to an external toolchain and reads the core
// module it produces.
type ExecCompiler struct {
	// Command and Args form the compiler invocation, run with the member
	// directory as working directory.
	Command string
	Args    []string

	// ReleaseArg is appended for release builds. Defaults to "--release".
	ReleaseArg string

	// Output is the core module path the invocation produces, relative to
	// the member directory.
	Output string
}

// Compile runs the external compiler. A non-zero exit surfaces the
// compiler's stderr verbatim.
func (c *ExecCompiler) Compile(ctx context.Context, dir string, release bool) ([]byte, error) {
	args := append([]string(nil), c.Args...)
	if release {
		flag := c.ReleaseArg
		if flag == "" {
			flag = "--release"
		}
		args = append(args, flag)
	}

	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		out := stderr.String()
		if out == "" {
			out = err.Error()
		}
		return nil, errors.Compile(out)
	}

	data, err := os.ReadFile(c.outputPath(dir))
	if err != nil {
		return nil, errors.Compile(err.Error())
	}
	return data, nil
}

func (c *ExecCompiler) outputPath(dir string) string {
	if filepath.IsAbs(c.Output) {
		return c.Output
	}
	return filepath.Join(dir, c.Output)
}
