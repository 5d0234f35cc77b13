// Package testutils runs the compiled shortsturbo binary for the
// integration tests.
package testutils

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
)

// Command describes one invocation of the shortsturbo binary.
type Command struct {
	// Binary is the absolute path of the compiled binary.
	Binary string
	// Args is the command line, whitespace separated. Use ArgList instead
	// when an argument must keep its spaces.
	Args string
	// ArgList is the pre-split command line. Takes precedence over Args.
	ArgList []string
	// Env holds KEY=value pairs layered over the parent environment.
	Env []string
	// Silent disables the binary's logger through SHORTSTURBO_NO_LOG.
	Silent bool
}

// Run executes the binary and returns what it wrote to stdout and stderr.
func Run(ctx context.Context, c Command) (stdout, stderr []byte, err error) {
	args := c.ArgList
	if args == nil {
		args = strings.Fields(c.Args)
	}

	cmd := exec.CommandContext(ctx, c.Binary, args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	// Later entries win on duplicate keys, so overrides go after the
	// parent environment.
	env := append([]string{}, os.Environ()...)
	env = append(env, c.Env...)
	if c.Silent {
		env = append(env, "SHORTSTURBO_NO_LOG=true")
	}
	cmd.Env = env

	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}
