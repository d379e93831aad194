package rgo

import "github.com/pkg/errors"

// Scalar evaluates expr and requires a result of length one that decodes
// as T.
func Scalar[T Elem](c *Conn, expr string) (T, error) {
	var zero T
	v, err := typedValue[T](c, expr)
	if err != nil {
		return zero, err
	}
	if v.Len() != 1 {
		return zero, &TypeMismatchError{Expr: expr, Want: kindOf[T](), Got: v.kind, Len: v.Len()}
	}
	d, err := elemsOf[T](v, expr)
	if err != nil {
		return zero, err
	}
	return d[0], nil
}

// Vector evaluates expr and decodes the result as a []T of any length.
// Matrices are flattened column by column.
func Vector[T Elem](c *Conn, expr string) ([]T, error) {
	v, err := typedValue[T](c, expr)
	if err != nil {
		return nil, err
	}
	return elemsOf[T](v, expr)
}

// Matrix evaluates expr, which must produce a two dimensional R matrix,
// and returns its rows.
func Matrix[T Elem](c *Conn, expr string) ([][]T, error) {
	m, err := MatrixOf[T](c, expr)
	if err != nil {
		return nil, err
	}
	return m.Rows(), nil
}

// MatrixOf is like Matrix but keeps R's layout and dimnames.
func MatrixOf[T Elem](c *Conn, expr string) (*Mat[T], error) {
	v, err := typedValue[T](c, expr)
	if err != nil {
		return nil, err
	}
	if !v.IsMatrix() {
		return nil, &ShapeMismatchError{Expr: expr, Dim: v.dim}
	}
	m, err := matFromValue[T](v)
	if err != nil {
		return nil, withExpr(err, expr)
	}
	return m, nil
}

// typedValue evaluates expr for a typed accessor. A result with no Go
// mapping at all is reported as a mismatch against T.
func typedValue[T Elem](c *Conn, expr string) (Value, error) {
	v, err := c.Value(expr)
	var ute *UnsupportedTypeError
	if errors.As(err, &ute) && !Kind(ute.Type).supported() {
		return Value{}, &TypeMismatchError{Expr: expr, Want: kindOf[T](), Got: Kind(ute.Type)}
	}
	return v, err
}

func elemsOf[T Elem](v Value, expr string) ([]T, error) {
	d, err := Elems[T](v)
	if err != nil {
		return nil, withExpr(err, expr)
	}
	return d, nil
}

func withExpr(err error, expr string) error {
	var tm *TypeMismatchError
	if errors.As(err, &tm) {
		tm.Expr = expr
	}
	return err
}
