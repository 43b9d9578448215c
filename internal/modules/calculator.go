package modules

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strconv"

	"github.com/fyrsmithlabs/nyx/internal/brain"
)

// ErrDivisionByZero is returned for "<n> / 0".
var ErrDivisionByZero = errors.New("division by zero")

var errOverflow = errors.New("integer overflow")

var binaryExpr = regexp.MustCompile(`(-?\d+)\s*([+\-*/xX×])\s*(-?\d+)`)

// Calculator evaluates the first binary integer expression in a message.
type Calculator struct{}

// NewCalculator creates the calculator module.
func NewCalculator() *Calculator { return &Calculator{} }

// Name returns "calculator".
func (*Calculator) Name() string { return "calculator" }

// Execute evaluates "a op b". Derivatives are acknowledged but not computed.
func (*Calculator) Execute(_ context.Context, message string, d brain.Decision) (Result, error) {
	if d.Intent.Name == "math.derivative" {
		return Info("Derivatives are not supported yet"), nil
	}

	m := binaryExpr.FindStringSubmatch(message)
	if m == nil {
		return Failure("Could not find an expression to calculate"), nil
	}

	a, errA := strconv.ParseInt(m[1], 10, 64)
	b, errB := strconv.ParseInt(m[3], 10, 64)
	if errA != nil || errB != nil {
		return Failure("Numbers are too large"), nil
	}

	value, err := evaluate(a, m[2], b)
	if errors.Is(err, errOverflow) {
		return Failure("Numbers are too large"), nil
	}
	if err != nil {
		return Result{}, err
	}
	return Success("%d %s %d = %s", a, m[2], b, value), nil
}

// evaluate reports errOverflow instead of wrapping around.
func evaluate(a int64, op string, b int64) (string, error) {
	switch op {
	case "+":
		sum := a + b
		if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0) {
			return "", errOverflow
		}
		return strconv.FormatInt(sum, 10), nil
	case "-":
		diff := a - b
		if (b > 0 && diff > a) || (b < 0 && diff < a) {
			return "", errOverflow
		}
		return strconv.FormatInt(diff, 10), nil
	case "*", "x", "X", "×":
		if a == 0 || b == 0 {
			return "0", nil
		}
		product := a * b
		if product/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return "", errOverflow
		}
		return strconv.FormatInt(product, 10), nil
	default:
		if b == 0 {
			return "", ErrDivisionByZero
		}
		if a == math.MinInt64 && b == -1 {
			return "", errOverflow
		}
		if a%b == 0 {
			return strconv.FormatInt(a/b, 10), nil
		}
		return strconv.FormatFloat(float64(a)/float64(b), 'g', -1, 64), nil
	}
}
