/*
Package rgo provides a mechanism to call into R. This package assumes that
you have the R binary in your PATH (or pass its location with WithRPath) and
that you have the jsonlite and RCurl R packages installed.

Why make rgo?

R has many useful plotting and statistics libraries. rgo is a simple library
that gives you access to these from Go. This way, you can transform and
process your data in Go, and use R's plotting/statistics libraries to
generate your final figures. As a result, this package is not designed to
be high-performance or have minimal memory consumption. Transferring data
between Go and R requires making several copies of the data.

Sessions

Each Conn owns one R process with its own workspace. Conns do not share
variables and may be used from different goroutines, but a single Conn must
not be used concurrently: R evaluates one expression at a time and output
from concurrent calls interleaves.

	c, err := rgo.Connection()
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	c.Assign("z", -3.5)
	p, err := rgo.Scalar[float64](c, "pnorm(z)")

Values

Results are decoded by R type. Value is the untyped form; Scalar, Vector,
Matrix and MatrixOf decode into a requested Go type and report a
TypeMismatchError or ShapeMismatchError when the result does not fit.
R integers may be read as float64. R matrices are column-major; Matrix
returns rows, so Matrix[int](c, "matrix(1:4, nrow=2)") is [[1 3] [2 4]].

Capture returns the text R itself prints for a value, which is useful when
a script expects R's formatting.
*/
package rgo
