// Package rutil has helpers for common plotting and summary tasks on top
// of an rgo.Conn.
package rutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/uluyol/rgo/v2"
)

// GraphCfg collects optional graphical parameters passed to R's plotting
// functions. The zero value adds none.
type GraphCfg struct {
	v []string
}

func (g GraphCfg) addKV(k, v string) GraphCfg {
	g.v = append(g.v[:len(g.v):len(g.v)], k+"="+v)
	return g
}

func (g GraphCfg) addString(k, v string) GraphCfg {
	return g.addKV(k, strconv.Quote(v))
}

func (g GraphCfg) params() string {
	var s string
	if len(g.v) > 0 {
		s = ", " + strings.Join(g.v, ", ")
	}
	return s
}

func (g GraphCfg) WithCol(color string) GraphCfg { return g.addString("col", color) }
func (g GraphCfg) WithType(t string) GraphCfg    { return g.addString("type", t) }
func (g GraphCfg) WithMain(title string) GraphCfg {
	return g.addString("main", title)
}
func (g GraphCfg) WithXLab(label string) GraphCfg { return g.addString("xlab", label) }
func (g GraphCfg) WithYLab(label string) GraphCfg { return g.addString("ylab", label) }

// WithBreaks sets the number of histogram cells.
func (g GraphCfg) WithBreaks(n int) GraphCfg { return g.addKV("breaks", strconv.Itoa(n)) }

const (
	varX = "..rutil.x"
	varY = "..rutil.y"
)

func plotCommon(rc *rgo.Conn, funcName string, x, y []float64, g GraphCfg) (err error) {
	if len(x) != len(y) {
		return errors.Errorf("rutil: x has %d values, y has %d", len(x), len(y))
	}
	if err := rc.Assign(varX, x); err != nil {
		return err
	}
	if err := rc.Assign(varY, y); err != nil {
		return err
	}
	defer cleanup(rc, &err, varX, varY)
	return rc.Rf("%s(%s, %s%s)", funcName, quote(varX), quote(varY), g.params())
}

func quote(name string) string { return "`" + name + "`" }

// cleanup removes the hidden variables, reporting a failure through err
// unless it already holds one.
func cleanup(rc *rgo.Conn, err *error, vars ...string) {
	rerr := rc.Rf("rm(%s)", strings.Join(lo.Map(vars, func(v string, _ int) string { return quote(v) }), ", "))
	if *err == nil && rerr != nil {
		*err = errors.Wrap(rerr, "rutil: removing temporary variables")
	}
}

func genRange(n int) []float64 {
	return lo.Map(lo.Range(n), func(i int, _ int) float64 { return float64(i + 1) })
}

func Plot(rc *rgo.Conn, x, y []float64, cfg GraphCfg) error {
	return plotCommon(rc, "plot", x, y, cfg)
}

func Lines(rc *rgo.Conn, x, y []float64, cfg GraphCfg) error {
	return plotCommon(rc, "lines", x, y, cfg)
}

func PlotX(rc *rgo.Conn, x []float64, cfg GraphCfg) error {
	return Plot(rc, genRange(len(x)), x, cfg)
}

func LinesX(rc *rgo.Conn, x []float64, cfg GraphCfg) error {
	return Lines(rc, genRange(len(x)), x, cfg)
}

// Hist draws a histogram of x.
func Hist(rc *rgo.Conn, x []float64, cfg GraphCfg) (err error) {
	if err := rc.Assign(varX, x); err != nil {
		return err
	}
	defer cleanup(rc, &err, varX)
	return rc.Rf("hist(%s%s)", quote(varX), cfg.params())
}

// PNG opens a png device writing to path, runs draw and closes the
// device, even if draw fails.
func PNG(rc *rgo.Conn, path string, width, height int, draw func() error) (err error) {
	if err := rc.Rf("png(%s, width = %d, height = %d)", strconv.Quote(path), width, height); err != nil {
		return err
	}
	defer func() {
		if cerr := rc.R("invisible(dev.off())"); err == nil {
			err = cerr
		}
	}()
	return draw()
}

// Summary returns R's printed summary of x.
func Summary(rc *rgo.Conn, x []float64) (s string, err error) {
	if err := rc.Assign(varX, x); err != nil {
		return "", err
	}
	defer cleanup(rc, &err, varX)
	return rc.Capture(fmt.Sprintf("summary(%s)", quote(varX)))
}

// Quantiles returns the sample quantiles of x at probabilities probs.
func Quantiles(rc *rgo.Conn, x, probs []float64) (q []float64, err error) {
	if err := rc.Assign(varX, x); err != nil {
		return nil, err
	}
	if err := rc.Assign(varY, probs); err != nil {
		return nil, err
	}
	defer cleanup(rc, &err, varX, varY)
	return rgo.Vector[float64](rc, fmt.Sprintf("unname(quantile(%s, %s))", quote(varX), quote(varY)))
}
