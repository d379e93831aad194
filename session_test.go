package rgo

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSessionAssignRoundTrip(t *testing.T) {
	c, _ := newFakeConn(t, nil, nil)

	if err := c.Assign("s", "This String was made in Go"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	s, err := Scalar[string](c, "s")
	if err != nil || s != "This String was made in Go" {
		t.Errorf("expected string back, got %q, %v", s, err)
	}

	if err := c.Assign("rdouble", 3.7); err != nil {
		t.Fatalf("assign: %v", err)
	}
	d, err := Scalar[float64](c, "rdouble")
	if err != nil || d != 3.7 {
		t.Errorf("expected 3.7 back, got %v, %v", d, err)
	}

	ints := []int{4, 5, 6, 7, 8, 9}
	if err := c.Assign("mydata", ints); err != nil {
		t.Fatalf("assign: %v", err)
	}
	gotInts, err := Vector[int](c, "mydata")
	if err != nil {
		t.Fatalf("couldn't get 'mydata': %v", err)
	}
	if diff := cmp.Diff(ints, gotInts); diff != "" {
		t.Errorf("vector mismatch (-want +got):\n%s", diff)
	}
	widened, err := Vector[float64](c, "mydata")
	if err != nil || widened[5] != 9 {
		t.Errorf("expected integers to widen to doubles, got %v, %v", widened, err)
	}

	bools := []bool{true, false}
	if err := c.Assign("flags", bools); err != nil {
		t.Fatalf("assign: %v", err)
	}
	gotBools, err := Vector[bool](c, "flags")
	if err != nil {
		t.Fatalf("couldn't get 'flags': %v", err)
	}
	if diff := cmp.Diff(bools, gotBools); diff != "" {
		t.Errorf("vector mismatch (-want +got):\n%s", diff)
	}

	rows := [][]float64{{1.1, 1.2}, {2.1, 2.2}, {3.1, 3.2}}
	if err := c.Assign("rmatrix", rows); err != nil {
		t.Fatalf("assign: %v", err)
	}
	gotRows, err := Matrix[float64](c, "rmatrix")
	if err != nil {
		t.Fatalf("couldn't get 'rmatrix': %v", err)
	}
	if diff := cmp.Diff(rows, gotRows); diff != "" {
		t.Errorf("matrix mismatch (-want +got):\n%s", diff)
	}
	flat, err := Vector[float64](c, "rmatrix")
	if err != nil {
		t.Fatalf("couldn't get 'rmatrix' as a vector: %v", err)
	}
	if diff := cmp.Diff([]float64{1.1, 2.1, 3.1, 1.2, 2.2, 3.2}, flat); diff != "" {
		t.Errorf("flattened matrix mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionAssignMat(t *testing.T) {
	c, _ := newFakeConn(t, nil, nil)
	m, _ := MatFromRows([][]string{{"a", "b"}, {"c", "d"}})
	m.SetDimNames([]string{"r1", "r2"}, []string{"x", "y"})
	if err := c.Assign("m", m); err != nil {
		t.Fatalf("assign: %v", err)
	}
	got, err := MatrixOf[string](c, "m")
	if err != nil {
		t.Fatalf("couldn't get 'm': %v", err)
	}
	if got.RowByName("r2")[1] != "d" || got.ColByName("x")[0] != "a" {
		t.Errorf("dimnames did not survive the round trip: %v %v", got.Rows(), got.ColNames())
	}
}

func TestSessionAssignErrors(t *testing.T) {
	c, f := newFakeConn(t, nil, nil)
	before := len(f.received())
	if err := c.Assign("x", map[string]int{}); !IsUnsupportedType(err) {
		t.Errorf("expected UnsupportedTypeError, got %v", err)
	}
	if err := c.Assign("m", (*Mat[int])(nil)); !IsUnsupportedType(err) {
		t.Errorf("expected UnsupportedTypeError for a nil matrix, got %v", err)
	}
	if err := c.Assign("", 1); err == nil {
		t.Error("expected an error for an empty name")
	}
	if n := len(f.received()); n != before {
		t.Errorf("failed assignments reached R: %v", f.received()[before:])
	}
}

func TestSessionScalarVectorConsistency(t *testing.T) {
	c, _ := newFakeConn(t, nil, map[string]result{
		"c(1,2,3)":   {Value: wire(t, `{"kind":"double","values":[1,2,3]}`)},
		"2.5":        {Value: wire(t, `{"kind":"double","values":[2.5]}`)},
		"integer(0)": {Value: wire(t, `{"kind":"integer","values":[]}`)},
		"'yarn'":     {Value: wire(t, `{"kind":"character","values":["yarn"]}`)},
		"matrix(7)":  {Value: wire(t, `{"kind":"integer","dim":[1,1],"values":[7]}`)},
		"list(1, 2)": {Value: wire(t, `{"kind":"list","values":[]}`)},
		"is.na(1)":   {Value: wire(t, `{"kind":"logical","values":[false]}`)},
	})
	exprs := []string{"c(1,2,3)", "2.5", "integer(0)", "'yarn'", "matrix(7)", "list(1, 2)", "is.na(1)"}
	for _, e := range exprs {
		checkConsistent[string](t, c, e)
		checkConsistent[float64](t, c, e)
		checkConsistent[int](t, c, e)
		checkConsistent[bool](t, c, e)
	}

	if _, err := Scalar[int](c, "c(1,2,3)"); !IsTypeMismatch(err) {
		t.Errorf("expected a type mismatch, got %v", err)
	}
	if _, err := Scalar[float64](c, "c(1,2,3)"); !IsTypeMismatch(err) {
		t.Errorf("expected a type mismatch for length 3, got %v", err)
	}
	if _, err := Vector[int](c, "list(1, 2)"); !IsTypeMismatch(err) {
		t.Errorf("expected a type mismatch for a list, got %v", err)
	}
	if _, err := c.Value("list(1, 2)"); !IsUnsupportedType(err) {
		t.Errorf("expected an unsupported type, got %v", err)
	}
}

func TestSessionLogicalNA(t *testing.T) {
	c, _ := newFakeConn(t, nil, map[string]result{
		"NA":          {Value: wire(t, `{"kind":"logical","values":["NA"]}`)},
		"c(TRUE, NA)": {Value: wire(t, `{"kind":"logical","values":[true,"NA"]}`)},
	})
	if _, err := Vector[int](c, "NA"); !IsTypeMismatch(err) {
		t.Errorf("expected a type mismatch for Vector[int], got %v", err)
	}
	if _, err := Scalar[string](c, "NA"); !IsTypeMismatch(err) {
		t.Errorf("expected a type mismatch for Scalar[string], got %v", err)
	}
	if _, err := Vector[bool](c, "c(TRUE, NA)"); !IsUnsupportedType(err) {
		t.Errorf("expected logical NA to be unsupported as bool, got %v", err)
	}
	for _, e := range []string{"NA", "c(TRUE, NA)"} {
		checkConsistent[bool](t, c, e)
		checkConsistent[int](t, c, e)
	}

	v, err := c.Value("c(TRUE, NA)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind() != KindBool || v.Len() != 2 || v.NAAt(0) || !v.NAAt(1) {
		t.Errorf("unexpected value %v", v)
	}

	if err := c.Assign("y", v); err != nil {
		t.Fatalf("assign: %v", err)
	}
	back, err := c.Value("y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !back.NAAt(1) || !back.Interface().([]bool)[0] {
		t.Errorf("NA did not survive the round trip: %v", back)
	}
}

func checkConsistent[T Elem](t *testing.T, c *Conn, expr string) {
	t.Helper()
	s, serr := Scalar[T](c, expr)
	v, verr := Vector[T](c, expr)
	vecOK := verr == nil && len(v) == 1
	if (serr == nil) != vecOK {
		t.Errorf("%s as %s: Scalar error %v, Vector %v, %v", expr, kindOf[T](), serr, v, verr)
		return
	}
	if vecOK && v[0] != s {
		t.Errorf("%s as %s: Scalar %v, Vector %v", expr, kindOf[T](), s, v)
	}
}

func TestSessionMatrixShape(t *testing.T) {
	c, _ := newFakeConn(t, nil, map[string]result{
		"matrix(1:4, nrow=2, ncol=2)": {Value: wire(t, `{"kind":"integer","dim":[2,2],"values":[1,2,3,4]}`)},
		"1:4":                         {Value: wire(t, `{"kind":"integer","values":[1,2,3,4]}`)},
		"array(1:8, c(2,2,2))":        {Value: wire(t, `{"kind":"integer","dim":[2,2,2],"values":[1,2,3,4,5,6,7,8]}`)},
	})
	m, err := Matrix[int](c, "matrix(1:4, nrow=2, ncol=2)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([][]int{{1, 3}, {2, 4}}, m); diff != "" {
		t.Errorf("matrix mismatch (-want +got):\n%s", diff)
	}
	if _, err := Matrix[bool](c, "matrix(1:4, nrow=2, ncol=2)"); !IsTypeMismatch(err) {
		t.Errorf("expected a type mismatch, got %v", err)
	}
	for _, e := range []string{"1:4", "array(1:8, c(2,2,2))"} {
		if _, err := Matrix[int](c, e); !IsShapeMismatch(err) {
			t.Errorf("%s: expected a shape mismatch, got %v", e, err)
		}
	}
}

func TestSessionCapture(t *testing.T) {
	c, _ := newFakeConn(t, nil, map[string]result{
		"1:3": {Output: []string{"[1] 1 2 3"}},
		"matrix(c(1.1,2.1,1.2,2.2), 2)": {Output: []string{
			"     [,1] [,2]",
			"[1,]  1.1  1.2",
			"[2,]  2.1  2.2",
		}},
		"invisible(1)": {Output: []string{}},
	})
	out, err := c.Capture("1:3")
	if err != nil || out != "[1] 1 2 3" {
		t.Errorf("expected %q, got %q, %v", "[1] 1 2 3", out, err)
	}
	out, err = c.Capture("matrix(c(1.1,2.1,1.2,2.2), 2)")
	want := "     [,1] [,2]\n[1,]  1.1  1.2\n[2,]  2.1  2.2"
	if err != nil || out != want {
		t.Errorf("expected %q, got %q, %v", want, out, err)
	}
	out, err = c.Capture("invisible(1)")
	if err != nil || out != "" {
		t.Errorf("expected no output, got %q, %v", out, err)
	}
}

func TestSessionEvaluationError(t *testing.T) {
	c, _ := newFakeConn(t, nil, map[string]result{
		"stop('boom')": {Error: "boom"},
		"f(":           {Error: "<text>:2:0: unexpected end of input", Incomplete: true},
	})
	err := c.R("stop('boom')")
	if !IsEvaluationError(err) {
		t.Fatalf("expected an evaluation error, got %v", err)
	}
	if ee := err.(*EvaluationError); ee.Message != "boom" || ee.Incomplete {
		t.Errorf("unexpected error contents %+v", ee)
	}
	err = c.R("f(")
	if ee, ok := err.(*EvaluationError); !ok || !ee.Incomplete {
		t.Errorf("expected an incomplete evaluation error, got %v", err)
	}

	// The session is still usable.
	if err := c.Assign("x", 1); err != nil {
		t.Errorf("session unusable after error: %v", err)
	}
	if _, err := c.Capture("undefined"); !IsEvaluationError(err) {
		t.Errorf("expected an evaluation error for an unknown object, got %v", err)
	}
}

func TestSessionLogsConditions(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	c, _ := newFakeConn(t, zap.New(core), map[string]result{
		"as.integer('a')": {
			Warnings: []string{"NAs introduced by coercion"},
			Messages: []string{"hello\n"},
			Output:   []string{"[1] NA"},
		},
	})
	if err := c.R("as.integer('a')"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := logs.FilterMessage("R warning").FilterField(zap.String("warning", "NAs introduced by coercion")).Len(); n != 1 {
		t.Errorf("expected one logged warning, got %d", n)
	}
	if n := logs.FilterMessage("R message").FilterField(zap.String("message", "hello")).Len(); n != 1 {
		t.Errorf("expected one logged message, got %d", n)
	}
	if n := logs.FilterMessage("discarding R output").Len(); n != 1 {
		t.Errorf("expected discarded output to be logged, got %d", n)
	}
}

func TestSessionIsolation(t *testing.T) {
	c1, _ := newFakeConn(t, nil, nil)
	c2, _ := newFakeConn(t, nil, nil)
	if err := c1.Assign("x", 1); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := Vector[int](c1, "x"); err != nil {
		t.Errorf("expected x in the first session: %v", err)
	}
	if _, err := Vector[int](c2, "x"); !IsEvaluationError(err) {
		t.Errorf("expected x to be missing from the second session, got %v", err)
	}
}

func TestSessionClose(t *testing.T) {
	c, f := newFakeConn(t, nil, nil)
	if err := c.Close(); err != nil {
		t.Fatalf("unexpected error closing: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second close returned %v", err)
	}
	lines := f.received()
	if len(lines) == 0 || lines[len(lines)-1] != "q()" {
		t.Errorf("expected q() to be sent, got %v", lines)
	}

	checks := map[string]error{
		"R":        c.R("1"),
		"Rf":       c.Rf("%d", 1),
		"Assign":   c.Assign("x", 1),
		"Interact": c.Interact(NewLinePrompter(strings.NewReader("1\n")), &strings.Builder{}),
	}
	_, checks["Capture"] = c.Capture("1")
	_, checks["Value"] = c.Value("1")
	_, checks["Version"] = c.Version()
	_, checks["Scalar"] = Scalar[int](c, "1")
	_, checks["Vector"] = Vector[int](c, "1")
	_, checks["Matrix"] = Matrix[int](c, "1")
	for name, err := range checks {
		if !IsSessionClosed(err) {
			t.Errorf("%s after close: expected ErrSessionClosed, got %v", name, err)
		}
	}
}

func TestSessionProcessExit(t *testing.T) {
	c, _ := newFakeConn(t, nil, nil)
	if err := c.R(crashExpr); !IsSessionClosed(err) {
		t.Fatalf("expected ErrSessionClosed when R dies, got %v", err)
	}
	if _, err := c.Capture("1"); !IsSessionClosed(err) {
		t.Errorf("expected ErrSessionClosed after R died, got %v", err)
	}
	if err := c.Close(); err == nil {
		t.Errorf("expected the exit status from Close")
	}
}
