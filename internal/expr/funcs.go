package expr

import "math"

type builtin struct {
	minArgs int
	maxArgs int // -1 means unbounded
	fn      func(args []float64) float64
}

func unary(f func(float64) float64) builtin {
	return builtin{minArgs: 1, maxArgs: 1, fn: func(a []float64) float64 { return f(a[0]) }}
}

var builtins = map[string]builtin{
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"asin":  unary(math.Asin),
	"acos":  unary(math.Acos),
	"atan":  unary(math.Atan),
	"sinh":  unary(math.Sinh),
	"cosh":  unary(math.Cosh),
	"tanh":  unary(math.Tanh),
	"sec":   unary(func(x float64) float64 { return 1 / math.Cos(x) }),
	"csc":   unary(func(x float64) float64 { return 1 / math.Sin(x) }),
	"cot":   unary(func(x float64) float64 { return 1 / math.Tan(x) }),
	"exp":   unary(math.Exp),
	"ln":    unary(math.Log),
	"log10": unary(math.Log10),
	"log2":  unary(math.Log2),
	"sqrt":  unary(math.Sqrt),
	"cbrt":  unary(math.Cbrt),
	"abs":   unary(math.Abs),
	"floor": unary(math.Floor),
	"ceil":  unary(math.Ceil),
	"round": unary(math.Round),
	"sign": unary(func(x float64) float64 {
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return x
	}),
	"log": {minArgs: 1, maxArgs: 2, fn: func(a []float64) float64 {
		if len(a) == 2 {
			return math.Log(a[0]) / math.Log(a[1])
		}
		return math.Log(a[0])
	}},
	"pow":   {minArgs: 2, maxArgs: 2, fn: func(a []float64) float64 { return math.Pow(a[0], a[1]) }},
	"atan2": {minArgs: 2, maxArgs: 2, fn: func(a []float64) float64 { return math.Atan2(a[0], a[1]) }},
	"min": {minArgs: 1, maxArgs: -1, fn: func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Min(m, v)
		}
		return m
	}},
	"max": {minArgs: 1, maxArgs: -1, fn: func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Max(m, v)
		}
		return m
	}},
}

// constants are resolved after bindings, so a slider named "e" wins.
var constants = map[string]float64{
	"pi":  math.Pi,
	"e":   math.E,
	"tau": 2 * math.Pi,
	"phi": math.Phi,
}

func lookupFunc(name string) (builtin, bool) {
	b, ok := builtins[name]
	return b, ok
}

// IsFunction reports whether name is a built-in function.
func IsFunction(name string) bool {
	_, ok := builtins[name]
	return ok
}

// IsConstant reports whether name is a built-in constant.
func IsConstant(name string) bool {
	_, ok := constants[name]
	return ok
}
