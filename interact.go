package rgo

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Prompter supplies input lines to Interact. liner.State satisfies it.
// Prompt returns io.EOF when the user ends input.
type Prompter interface {
	Prompt(prompt string) (string, error)
}

const (
	PromptMain     = "> "
	PromptContinue = "+ "
)

// Interact runs a read-eval-print loop against the session until p
// returns io.EOF. Input left incomplete at io.EOF is reported as an error. Input is collected until R can parse it, then it is
// evaluated and whatever R prints, along with messages, warnings and
// errors, is written to out. Anything defined stays in the workspace.
func (c *Conn) Interact(p Prompter, out io.Writer) error {
	if err := c.check(); err != nil {
		return err
	}
	var (
		buf     strings.Builder
		pending *EvaluationError
	)
	for {
		prompt := PromptMain
		if buf.Len() > 0 {
			prompt = PromptContinue
		}
		line, err := p.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			if pending != nil {
				fmt.Fprintf(out, "Error: %s\n", pending.Message)
			}
			return nil
		}
		if err != nil {
			return err
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)
		src := buf.String()
		if strings.TrimSpace(src) == "" {
			buf.Reset()
			continue
		}

		res, err := c.run(src, modeCapture)
		var ee *EvaluationError
		if errors.As(err, &ee) && ee.Incomplete {
			pending = ee
			continue
		}
		pending = nil
		buf.Reset()
		if res != nil {
			writeResult(out, res)
		}
		switch {
		case err == nil:
		case ee != nil:
			fmt.Fprintf(out, "Error: %s\n", ee.Message)
		default:
			return err
		}
	}
}

func writeResult(out io.Writer, res *result) {
	for _, msg := range res.Messages {
		io.WriteString(out, msg)
		if !strings.HasSuffix(msg, "\n") {
			io.WriteString(out, "\n")
		}
	}
	for _, line := range res.Output {
		fmt.Fprintln(out, line)
	}
	switch len(res.Warnings) {
	case 0:
	case 1:
		fmt.Fprintf(out, "Warning message:\n%s\n", res.Warnings[0])
	default:
		fmt.Fprintln(out, "Warning messages:")
		for i, w := range res.Warnings {
			fmt.Fprintf(out, "%d: %s\n", i+1, w)
		}
	}
}

// NewLinePrompter returns a Prompter reading lines from r without showing
// prompts, for input that is not a terminal.
func NewLinePrompter(r io.Reader) Prompter {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	return &linePrompter{sc}
}

type linePrompter struct {
	sc *bufio.Scanner
}

func (l *linePrompter) Prompt(string) (string, error) {
	if l.sc.Scan() {
		return l.sc.Text(), nil
	}
	if err := l.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
