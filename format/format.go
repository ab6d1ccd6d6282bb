// Package format pretty-prints unit files before they are written.
//
// The builtin formatter only normalizes whitespace. When a formatter
// command is configured (typically prettier), the file text is piped
// through it.
package format

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Formatter formats the text of the file at path.
type Formatter interface {
	Format(ctx context.Context, path string, src []byte) ([]byte, error)
}

// Builtin trims trailing whitespace, collapses runs of blank lines and
// ensures exactly one trailing newline.
type Builtin struct{}

// Format implements Formatter.
func (Builtin) Format(_ context.Context, _ string, src []byte) ([]byte, error) {
	lines := strings.Split(string(src), "\n")
	var b strings.Builder
	blank := 0
	started := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			if started {
				blank++
			}
			continue
		}
		if blank > 0 {
			b.WriteString("\n")
			blank = 0
		}
		started = true
		b.WriteString(line)
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

// Command pipes the text through an external program. Occurrences of
// "{file}" in Args are replaced with the unit path, which lets prettier
// pick the parser from the extension:
//
//	Command{Name: "prettier", Args: []string{"--stdin-filepath", "{file}"}}
type Command struct {
	Name string
	Args []string
	// Dir is the working directory of the command (project root).
	Dir string
}

// Format implements Formatter.
func (c Command) Format(ctx context.Context, path string, src []byte) ([]byte, error) {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = strings.ReplaceAll(a, "{file}", path)
	}

	cmd := exec.CommandContext(ctx, c.Name, args...)
	cmd.Dir = c.Dir
	cmd.Stdin = bytes.NewReader(src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("formatting %s with %s: %w: %s", path, c.Name, err, msg)
		}
		return nil, fmt.Errorf("formatting %s with %s: %w", path, c.Name, err)
	}
	return stdout.Bytes(), nil
}

// New returns a Command formatter when name is set, Builtin otherwise.
func New(name string, args []string, dir string) Formatter {
	if name == "" {
		return Builtin{}
	}
	return Command{Name: name, Args: args, Dir: dir}
}
