package rgo

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// toValue converts a Go value accepted by Assign into a Value.
func toValue(x any) (Value, error) {
	switch x := x.(type) {
	case Value:
		return x, nil
	case *Value:
		if x == nil {
			break
		}
		return *x, nil

	case string:
		return newVector([]string{x}), nil
	case bool:
		return newVector([]bool{x}), nil
	case float64:
		return newVector([]float64{x}), nil
	case float32:
		return newVector([]float64{float64(x)}), nil
	case int:
		return intVector([]int{x})
	case int8:
		return intVector([]int{int(x)})
	case int16:
		return intVector([]int{int(x)})
	case int32:
		return intVector([]int{int(x)})
	case int64:
		return intVector([]int64{x})
	case uint8:
		return intVector([]int{int(x)})
	case uint16:
		return intVector([]int{int(x)})

	case []string:
		return newVector(cloneOf(x)), nil
	case []bool:
		return newVector(cloneOf(x)), nil
	case []float64:
		return newVector(cloneOf(x)), nil
	case []float32:
		return newVector(lo.Map(x, func(f float32, _ int) float64 { return float64(f) })), nil
	case []int:
		return intVector(x)
	case []int32:
		return intVector(x)
	case []int64:
		return intVector(x)

	case [][]string:
		return matrixValue(x)
	case [][]bool:
		return matrixValue(x)
	case [][]float64:
		return matrixValue(x)
	case [][]int:
		if err := checkInts(lo.Flatten(x)); err != nil {
			return Value{}, err
		}
		return matrixValue(x)

	case *Mat[string]:
		if x == nil {
			break
		}
		return x.value(), nil
	case *Mat[bool]:
		if x == nil {
			break
		}
		return x.value(), nil
	case *Mat[float64]:
		if x == nil {
			break
		}
		return x.value(), nil
	case *Mat[int]:
		if x == nil {
			break
		}
		if err := checkInts(x.data); err != nil {
			return Value{}, err
		}
		return x.value(), nil
	}
	return Value{}, &UnsupportedTypeError{Type: fmt.Sprintf("%T", x)}
}

type integer interface {
	~int | ~int32 | ~int64
}

func intVector[I integer](xs []I) (Value, error) {
	out := make([]int, len(xs))
	for i, x := range xs {
		if int64(x) < math.MinInt32 || int64(x) > math.MaxInt32 {
			return Value{}, errors.Errorf("rgo: %d is out of range for an R integer", x)
		}
		out[i] = int(x)
	}
	return newVector(out), nil
}

func checkInts(xs []int) error {
	_, err := intVector(xs)
	return err
}

// matrixValue converts row-major rows into a column-major matrix Value.
func matrixValue[T Elem](rows [][]T) (Value, error) {
	m, err := MatFromRows(rows)
	if err != nil {
		return Value{}, err
	}
	return m.value(), nil
}

func cloneOf[T any](xs []T) []T {
	out := make([]T, len(xs))
	copy(out, xs)
	return out
}
