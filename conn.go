package rgo

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"
)

//go:embed bootstrap.R
var bootstrapR string

// Conn is a session with one R process. Create it with Connection and
// release it with Close.
type Conn struct {
	cfg     connConfig
	log     *zap.Logger
	inPipe  io.WriteCloser
	counter atomic.Uint64
	server  *server
	closed  atomic.Bool

	// exited is closed once the R process is gone; waitErr is set before.
	exited  chan struct{}
	waitErr error
	kill    func() error
}

const checkDepsCmd = "cat(is.element(\"jsonlite\", installed.packages()[,1]) & is.element(\"RCurl\", installed.packages()[,1]))\n"

// Connection starts R and returns a Conn for it. It returns a
// *StartupError if R cannot be found, lacks the jsonlite or RCurl
// packages, or fails to initialize.
func Connection(opts ...ConnOption) (*Conn, error) {
	var cfg connConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = zap.NewNop()
	}
	c, err := connect(cfg)
	if err != nil {
		return nil, &StartupError{RPath: cfg.rPath(), Err: err}
	}
	return c, nil
}

func connect(cfg connConfig) (*Conn, error) {
	log := cfg.log
	rpath, err := exec.LookPath(cfg.rPath())
	if err != nil {
		return nil, err
	}
	if !cfg.SkipDependencyCheck {
		out, err := exec.Command(rpath, "--no-save", "-s", "-e", checkDepsCmd).CombinedOutput()
		if err != nil {
			return nil, errors.Wrap(err, "failed to check dependencies")
		}
		if strings.TrimSpace(string(out)) != "TRUE" {
			log.Debug("dependency check failed", zap.ByteString("output", out))
			return nil, errors.New("need to install 'jsonlite' and 'RCurl'")
		}
	}

	cmd := exec.Command(rpath, cfg.rOptions()...)
	if cfg.Debug {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		rlog := log.Named("R")
		cmd.Stdout = &zapio.Writer{Log: rlog.With(zap.String("stream", "stdout")), Level: zap.DebugLevel}
		cmd.Stderr = &zapio.Writer{Log: rlog.With(zap.String("stream", "stderr")), Level: zap.DebugLevel}
	}
	inPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	srv, err := newServer(log)
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		srv.stop()
		return nil, err
	}
	log.Info("started R", zap.String("path", rpath), zap.Int("pid", cmd.Process.Pid), zap.Int("port", srv.port))

	c := newConn(cfg, inPipe, srv, cmd.Process.Kill)
	go func() {
		c.exit(cmd.Wait())
	}()

	if err := c.bootstrap(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func newConn(cfg connConfig, inPipe io.WriteCloser, srv *server, kill func() error) *Conn {
	return &Conn{
		cfg:    cfg,
		log:    cfg.log,
		inPipe: inPipe,
		server: srv,
		exited: make(chan struct{}),
		kill:   kill,
	}
}

func (c *Conn) exit(err error) {
	c.waitErr = err
	if err != nil {
		c.log.Info("R exited", zap.Error(err))
	} else {
		c.log.Debug("R exited")
	}
	close(c.exited)
}

func (c *Conn) bootstrap() error {
	setup := "library(jsonlite)\nlibrary(RCurl)\n" +
		fmt.Sprintf("..rgo.port <- %dL\n", c.server.port) +
		bootstrapR
	if err := c.directR(setup); err != nil {
		return err
	}
	v, err := c.Version()
	if err != nil {
		return err
	}
	c.log.Debug("R ready", zap.String("version", v))
	return nil
}

// Close stops R and the data server. It is safe to call more than once;
// only the first call does anything.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.directR("q()\n")
	c.inPipe.Close()

	var err error
	select {
	case <-c.exited:
	case <-time.After(c.cfg.closeTimeout()):
		c.log.Warn("R did not quit, killing it", zap.Duration("timeout", c.cfg.closeTimeout()))
		err = c.kill()
		<-c.exited
	}
	if c.waitErr != nil && err == nil {
		err = c.waitErr
	}
	return multierr.Append(err, c.server.stop())
}

// directR sends the command to R without trapping errors.
// directR should only be used for registering some internal functions.
func (c *Conn) directR(cmd string) error {
	_, err := io.WriteString(c.inPipe, cmd)
	return err
}

func (c *Conn) check() error {
	if c.closed.Load() {
		return ErrSessionClosed
	}
	select {
	case <-c.exited:
		return errors.Wrap(ErrSessionClosed, "R process exited")
	default:
	}
	return nil
}

func (c *Conn) getuid() uint64 {
	return c.counter.Inc()
}

type mode string

const (
	modeEval    mode = "eval"
	modeCapture mode = "capture"
	modeValue   mode = "value"
)

// run sends expr to R through the data server and waits for the result.
func (c *Conn) run(expr string, m mode) (*result, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	id := c.getuid()
	src := fmt.Sprintf("go.expr.%d", id)
	dst := fmt.Sprintf("r.result.%d", id)
	c.server.putData(src, []byte(expr))
	defer c.server.rmData(src)
	rch := make(chan readerDone)
	c.server.putFwd(dst, rch)
	defer c.server.rmFwd(dst)

	if err := c.directR(fmt.Sprintf("..rgo.eval(%q, %q, %q)\n", src, dst, m)); err != nil {
		return nil, errors.Wrap(ErrSessionClosed, err.Error())
	}
	var rd readerDone
	select {
	case rd = <-rch:
	case <-c.exited:
		return nil, errors.Wrap(ErrSessionClosed, "R process exited")
	}
	var res result
	err := json.NewDecoder(rd.r).Decode(&res)
	close(rd.done)
	if err != nil {
		return nil, errors.Wrap(err, "rgo: error while decoding")
	}

	for _, w := range res.Warnings {
		c.log.Warn("R warning", zap.String("expr", shorten(expr)), zap.String("warning", w))
	}
	for _, msg := range res.Messages {
		c.log.Info("R message", zap.String("message", strings.TrimRight(msg, "\n")))
	}
	if res.Error != "" {
		return &res, &EvaluationError{Expr: expr, Message: res.Error, Incomplete: res.Incomplete}
	}
	return &res, nil
}

// R evaluates cmd for its side effects. Printed output is discarded.
func (c *Conn) R(cmd string) error {
	res, err := c.run(cmd, modeEval)
	if err != nil {
		return err
	}
	if len(res.Output) > 0 {
		c.log.Debug("discarding R output", zap.Strings("output", res.Output))
	}
	return nil
}

// Rf is like R but formats the command with fmt.Sprintf.
func (c *Conn) Rf(format string, args ...any) error {
	return c.R(fmt.Sprintf(format, args...))
}

// Capture evaluates expr and returns what R prints for it, exactly as R
// formats it. Lines are separated by "\n" with no trailing newline.
func (c *Conn) Capture(expr string) (string, error) {
	res, err := c.run(expr, modeCapture)
	if err != nil {
		return "", err
	}
	return strings.Join(res.Output, "\n"), nil
}

// Value evaluates expr and decodes the last value according to its R type.
func (c *Conn) Value(expr string) (Value, error) {
	res, err := c.run(expr, modeValue)
	if err != nil {
		return Value{}, err
	}
	if res.Value == nil {
		return Value{}, &UnsupportedTypeError{Type: "NULL"}
	}
	return res.Value.decode()
}

// Version returns R's version string, e.g. "R version 4.3.1 (2023-06-16)".
func (c *Conn) Version() (string, error) {
	return Scalar[string](c, "R.version.string")
}

// Assign binds value to name in R's global environment, replacing any
// previous binding. value may be a string, bool, integer or float scalar,
// a slice of those, a row-major [][]T of string, bool, int or float64,
// a *Mat or a Value. Go ints become R integers and floats become doubles.
func (c *Conn) Assign(name string, value any) error {
	if err := c.check(); err != nil {
		return err
	}
	if name == "" {
		return errors.New("rgo: empty variable name")
	}
	v, err := toValue(value)
	if err != nil {
		return err
	}
	w, err := v.encode()
	if err != nil {
		return err
	}
	b, err := json.Marshal(w)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("go.data.%d", c.getuid())
	c.server.putData(key, b)
	defer c.server.rmData(key)
	return c.Rf("%s <- ..rgo.decode(%q)", quoteName(name), key)
}

// quoteName turns name into an R symbol with backquotes.
func quoteName(name string) string {
	r := strings.NewReplacer(`\`, `\\`, "`", "\\`")
	return "`" + r.Replace(name) + "`"
}
