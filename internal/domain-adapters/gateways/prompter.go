package gateways

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ConsolePrompter asks yes/no questions on the terminal. The answer
// defaults to No; assumeYes makes every question answer itself for
// unattended runs.
type ConsolePrompter struct {
	reader    *bufio.Reader
	out       io.Writer
	assumeYes bool
}

// NewConsolePrompter creates a prompter reading from stdin and writing
// to stderr.
func NewConsolePrompter(assumeYes bool) *ConsolePrompter {
	return NewConsolePrompterWithIO(os.Stdin, os.Stderr, assumeYes)
}

// NewConsolePrompterWithIO creates a prompter with explicit streams.
func NewConsolePrompterWithIO(in io.Reader, out io.Writer, assumeYes bool) *ConsolePrompter {
	return &ConsolePrompter{
		reader:    bufio.NewReader(in),
		out:       out,
		assumeYes: assumeYes,
	}
}

// Confirm asks question and returns true only for an explicit yes.
// EOF, empty input, and anything other than y/yes count as no.
func (p *ConsolePrompter) Confirm(question string) bool {
	if p.assumeYes {
		fmt.Fprintf(p.out, "%s [y/N]: y\n", question)
		return true
	}

	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
