package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// stdinPrompter reads one line of reply from an interactive terminal,
// implementing interactive.Prompter for the CLI's own prompt/REPL surface.
type stdinPrompter struct {
	reader *bufio.Scanner
	out    io.Writer
}

func newStdinPrompter(in io.Reader, out io.Writer) *stdinPrompter {
	return &stdinPrompter{reader: bufio.NewScanner(in), out: out}
}

// Prompt implements interactive.Prompter.
func (p *stdinPrompter) Prompt(ctx context.Context, question string) (string, error) {
	fmt.Fprintln(p.out, question)
	fmt.Fprint(p.out, "> ")
	if !p.reader.Scan() {
		if err := p.reader.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.reader.Text(), nil
}
