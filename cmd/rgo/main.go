// Command rgo evaluates R expressions through an rgo session.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/uluyol/rgo/v2"
)

const (
	flagR       = "r"
	flagROption = "r-option"
	flagConfig  = "config"
	flagDebug   = "debug"

	historyFile = ".rgo_history"
)

func main() {
	var logger *zap.Logger

	app := &cli.App{
		Name:      "rgo",
		Usage:     "evaluate R expressions",
		UsageText: "rgo [global options] command [expression]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagR,
				Usage:   "path to the R executable",
				EnvVars: []string{"RGO_R"},
			},
			&cli.StringSliceFlag{
				Name:  flagROption,
				Usage: "command line option passed to R (repeatable)",
			},
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"RGO_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				logger = l
			} else {
				logger = zap.NewNop()
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "print the R version",
				Action: withConn(&logger, func(c *cli.Context, rc *rgo.Conn) error {
					v, err := rc.Version()
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, v)
					return nil
				}),
			},
			{
				Name:      "eval",
				Usage:     "evaluate an expression for its side effects",
				ArgsUsage: "<expression>",
				Action: withConn(&logger, func(c *cli.Context, rc *rgo.Conn) error {
					return rc.R(expression(c))
				}),
			},
			{
				Name:      "capture",
				Usage:     "print an expression's value the way R prints it",
				ArgsUsage: "<expression>",
				Action: withConn(&logger, func(c *cli.Context, rc *rgo.Conn) error {
					out, err := rc.Capture(expression(c))
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, out)
					return nil
				}),
			},
			{
				Name:      "value",
				Usage:     "print an expression's decoded value",
				ArgsUsage: "<expression>",
				Action: withConn(&logger, func(c *cli.Context, rc *rgo.Conn) error {
					v, err := rc.Value(expression(c))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s %v: %v\n", v.Kind(), v.Dim(), v.Interface())
					return nil
				}),
			},
			{
				Name:  "repl",
				Usage: "start an interactive R session; exit with ^D",
				Action: withConn(&logger, func(c *cli.Context, rc *rgo.Conn) error {
					return repl(rc, c.App.Writer)
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("rgo: %v", err))
		os.Exit(1)
	}
}

func expression(c *cli.Context) string {
	if c.NArg() == 0 {
		return ""
	}
	return c.Args().First()
}

func withConn(logger **zap.Logger, f func(*cli.Context, *rgo.Conn) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		opts, err := connOptions(c, *logger)
		if err != nil {
			return err
		}
		rc, err := rgo.Connection(opts...)
		if err != nil {
			return err
		}
		defer rc.Close()
		return f(c, rc)
	}
}

func connOptions(c *cli.Context, logger *zap.Logger) ([]rgo.ConnOption, error) {
	opts := []rgo.ConnOption{rgo.WithLogger(logger)}
	if path := c.String(flagConfig); path != "" {
		cfg, err := rgo.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rgo.WithConfig(cfg))
	}
	if r := c.String(flagR); r != "" {
		opts = append(opts, rgo.WithRPath(r))
	}
	if ropts := c.StringSlice(flagROption); len(ropts) > 0 {
		opts = append(opts, rgo.WithROptions(ropts...))
	}
	return opts, nil
}

func repl(rc *rgo.Conn, out io.Writer) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return rc.Interact(rgo.NewLinePrompter(os.Stdin), out)
	}

	fmt.Fprintln(out, "Welcome to the R prompt! Exit by pressing ^D.")
	ln := liner.NewLiner()
	defer ln.Close()

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	err := rc.Interact(historyPrompter{ln}, out)
	fmt.Fprintln(out, "\nExiting R prompt.")
	return err
}

// historyPrompter records every line read in the liner history.
type historyPrompter struct {
	ln *liner.State
}

func (h historyPrompter) Prompt(prompt string) (string, error) {
	line, err := h.ln.Prompt(prompt)
	if err == nil && line != "" {
		h.ln.AppendHistory(line)
	}
	return line, err
}
