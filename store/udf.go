package store

import (
	"crypto/md5"
	"database/sql/driver"
	"encoding/hex"
	"math"
	"strconv"

	"github.com/csvql/qsv/stats"

	"modernc.org/sqlite"
)

// registerFunctions wires the engine's scalar and aggregate UDF library
// into the sqlite driver. Functions registered this way are available to
// every connection opened afterward, so this runs once at process
// startup rather than per Store.
func registerFunctions() {
	sqlite.MustRegisterDeterministicScalarFunction("md5", 1, md5Func)
	sqlite.MustRegisterDeterministicScalarFunction("sqrt", 1, sqrtFunc)
	sqlite.MustRegisterAggregateFunction("mean", 1, func() sqlite.AggregateFunction {
		return &meanAgg{}
	})
	sqlite.MustRegisterAggregateFunction("stddev", 1, func() sqlite.AggregateFunction {
		return &stddevAgg{}
	})
}

func init() {
	registerFunctions()
}

func md5Func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	s, ok := args[0].(string)
	if !ok {
		return nil, &UDFTypeError{Func: "md5", Arg: args[0]}
	}
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:]), nil
}

func sqrtFunc(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	f, ok := asFloat(args[0])
	if !ok {
		return nil, &UDFTypeError{Func: "sqrt", Arg: args[0]}
	}
	return math.Sqrt(f), nil
}

func asFloat(v driver.Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// meanAgg and stddevAgg track NULL contributions explicitly: a NULL input
// row advances the aggregate's null count but never perturbs the running
// mean/variance, so mean()/stddev() reflect only the non-null values while
// still letting a caller tell "no rows" apart from "some rows were null".
type meanAgg struct {
	online stats.OnlineStats
}

func (a *meanAgg) Step(ctx *sqlite.FunctionContext, args []driver.Value) error {
	if args[0] == nil {
		a.online.PushNull()
		return nil
	}
	f, ok := asFloat(args[0])
	if !ok {
		return &UDFTypeError{Func: "mean", Arg: args[0]}
	}
	a.online.Push(f)
	return nil
}

func (a *meanAgg) WindowValue(ctx *sqlite.FunctionContext) (driver.Value, error) {
	if a.online.Count() == 0 {
		return nil, nil
	}
	return a.online.Mean(), nil
}

func (a *meanAgg) Inverse(ctx *sqlite.FunctionContext, args []driver.Value) error {
	return errUnsupportedWindowRemoval
}

type stddevAgg struct {
	online stats.OnlineStats
}

func (a *stddevAgg) Step(ctx *sqlite.FunctionContext, args []driver.Value) error {
	if args[0] == nil {
		a.online.PushNull()
		return nil
	}
	f, ok := asFloat(args[0])
	if !ok {
		return &UDFTypeError{Func: "stddev", Arg: args[0]}
	}
	a.online.Push(f)
	return nil
}

func (a *stddevAgg) WindowValue(ctx *sqlite.FunctionContext) (driver.Value, error) {
	if a.online.Count() == 0 {
		return nil, nil
	}
	return a.online.Stddev(), nil
}

func (a *stddevAgg) Inverse(ctx *sqlite.FunctionContext, args []driver.Value) error {
	return errUnsupportedWindowRemoval
}

// errUnsupportedWindowRemoval satisfies the AggregateFunction interface's
// window-removal hook; mean/stddev are never used as window functions in
// this engine, so removal is never actually invoked.
var errUnsupportedWindowRemoval = &EngineError{Op: "window inverse", Err: errNotAWindowFunction{}}

type errNotAWindowFunction struct{}

func (errNotAWindowFunction) Error() string { return "mean/stddev do not support window removal" }
