// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
)

// Builder runs the external build binary.
type Builder struct {
	// Command is the build command line; the target is appended to it.
	Command string
	// UsePTY runs the build under a pseudo-terminal so it keeps its
	// interactive output formatting.
	UsePTY bool
	Dir    string
	Logger *log.Logger
}

// Build runs the build for target with env, calling onLine for every line
// the build writes to stdout or stderr. A non-zero exit yields a
// *BuildError.
func (b *Builder) Build(ctx context.Context, target string, env []string, onLine func(string)) error {
	logger := b.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	words, err := SplitCommand(b.Command, env)
	if err != nil {
		return err
	}
	if onLine == nil {
		onLine = func(string) {}
	}

	cmd := exec.CommandContext(ctx, words[0], append(words[1:], target)...)
	cmd.Dir = b.Dir
	cmd.Env = env
	logger.Debug("running build", "cmd", cmd.Args, "pty", b.UsePTY)

	if b.UsePTY {
		err = runPTY(cmd, onLine)
	} else {
		err = runPiped(cmd, onLine)
	}
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return &BuildError{Target: target, ExitCode: exitErr.ExitCode()}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("running build for %s: %w", target, err)
}

// runPiped runs cmd with stdout and stderr merged into one pipe.
func runPiped(cmd *exec.Cmd, onLine func(string)) error {
	r, w, err := os.Pipe()
	if err != nil {
		return err
	}
	defer r.Close()
	cmd.Stdout = w
	cmd.Stderr = w
	if err := cmd.Start(); err != nil {
		w.Close()
		return err
	}
	// The child holds its own copy of the write end.
	w.Close()
	scanErr := scanLines(r, onLine)
	if err := cmd.Wait(); err != nil {
		return err
	}
	return scanErr
}

// scanLines reads r to EOF, calling onLine for every line. Lines have no
// length cap so the child never blocks on a pipe nobody reads.
func scanLines(r io.Reader, onLine func(string)) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			onLine(strings.TrimRight(line, "\r\n"))
		}
		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			return nil
		// Linux reports EIO on a pty master once the child side closes.
		case errors.Is(err, syscall.EIO):
			return nil
		default:
			_, _ = io.Copy(io.Discard, r)
			return err
		}
	}
}
