// Package stats содержит статистические функции над десятичными значениями.
package stats

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// ErrEmptyInput возвращается, если для вычисления недостаточно значений.
var ErrEmptyInput = errors.New("empty input")

const sqrtIterations = 32

var two = decimal.NewFromInt(2)

// Sum возвращает сумму значений. Сумма пустой последовательности равна нулю.
func Sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Mean возвращает среднее арифметическое значений.
func Mean(values []decimal.Decimal) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, ErrEmptyInput
	}
	return Sum(values).Div(decimal.NewFromInt(int64(len(values)))), nil
}

// StandardDeviation возвращает выборочное стандартное отклонение (знаменатель n-1).
func StandardDeviation(values []decimal.Decimal) (decimal.Decimal, error) {
	if len(values) < 2 {
		return decimal.Zero, ErrEmptyInput
	}

	mean, err := Mean(values)
	if err != nil {
		return decimal.Zero, err
	}

	squares := decimal.Zero
	for _, v := range values {
		diff := v.Sub(mean)
		squares = squares.Add(diff.Mul(diff))
	}

	variance := squares.Div(decimal.NewFromInt(int64(len(values) - 1)))
	return sqrt(variance), nil
}

// Round2 округляет значение до двух знаков, половина округляется от нуля.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FromInts переводит целочисленные счётчики в десятичные значения.
func FromInts(values []int) []decimal.Decimal {
	res := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		res = append(res, decimal.NewFromInt(int64(v)))
	}
	return res
}

// sqrt вычисляет квадратный корень методом Ньютона, начиная с приближения float64.
func sqrt(d decimal.Decimal) decimal.Decimal {
	if d.Sign() <= 0 {
		return decimal.Zero
	}

	x := decimal.NewFromFloat(math.Sqrt(d.InexactFloat64()))
	if x.Sign() <= 0 {
		x = d
	}

	for i := 0; i < sqrtIterations; i++ {
		next := x.Add(d.Div(x)).Div(two)
		if next.Equal(x) {
			break
		}
		x = next
	}
	return x
}
