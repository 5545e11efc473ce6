package services

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"profit-dashboard/internal/models"
)

// RegressionFeatures are the monthly predictors of Total_Profit, in
// coefficient order.
var RegressionFeatures = []string{"Amount_Sold", "Unit_Cost", "Unit_Profit", "Margin%"}

// rankTolerance is relative to the largest singular value of the scaled,
// centred design matrix.
const rankTolerance = 1e-9

// constantTolerance bounds the centred norm of a column, relative to its
// raw norm, below which the column counts as constant. Month means of
// identical values can differ in the last bit.
const constantTolerance = 1e-9

func featureVector(m models.MonthlySummary) []float64 {
	return []float64{m.AmountSold, m.UnitCost, m.UnitProfit, m.MarginPct}
}

// Regress fits monthly Total_Profit by ordinary least squares with an
// intercept and scores the fit on the same months. Inputs that cannot
// support a reliable fit still produce numbers, but the result is marked
// Degenerate with a warning per problem found.
func Regress(monthly []models.MonthlySummary) models.Regression {
	n, p := len(monthly), len(RegressionFeatures)
	res := models.Regression{
		Features: slices.Clone(RegressionFeatures),
		Samples:  n,
		InSample: true,
	}
	if n == 0 {
		res.Degenerate = true
		res.Warnings = append(res.Warnings, "no months to fit")
		return res
	}

	y := make([]float64, n)
	cols := make([][]float64, p)
	for j := range cols {
		cols[j] = make([]float64, n)
	}
	for i, m := range monthly {
		y[i] = m.TotalProfit
		for j, v := range featureVector(m) {
			cols[j][i] = v
		}
	}

	yMean := stat.Mean(y, nil)
	coef := make([]float64, p)
	intercept := yMean

	if n < 2 {
		res.Degenerate = true
		res.Warnings = append(res.Warnings, "fewer than two months: no model was fitted, predictions equal the observed value")
	} else {
		beta, means, rank := solveCentred(cols, y, yMean)
		copy(coef, beta)
		intercept = yMean - floats.Dot(coef, means)
		res.Rank = rank

		if rank < p {
			res.Degenerate = true
			res.Warnings = append(res.Warnings, fmt.Sprintf("features are collinear or constant (rank %d of %d)", rank, p))
		}
		if n <= rank+1 {
			res.Degenerate = true
			res.Warnings = append(res.Warnings, "no more months than model parameters: the fit is exact by construction")
		}
	}

	res.Intercept = intercept
	res.Coefficients = make([]models.Coefficient, p)
	for j, name := range RegressionFeatures {
		res.Coefficients[j] = models.Coefficient{Feature: name, Value: coef[j]}
	}

	res.Predictions = make([]models.Prediction, n)
	var absErr float64
	for i, m := range monthly {
		predicted := intercept + floats.Dot(coef, featureVector(m))
		residual := y[i] - predicted
		res.Predictions[i] = models.Prediction{
			Period:    m.Period,
			Date:      m.Date,
			Actual:    y[i],
			Predicted: predicted,
			Residual:  residual,
		}
		res.SSR += residual * residual
		res.SST += (y[i] - yMean) * (y[i] - yMean)
		absErr += math.Abs(residual)
	}
	res.MAE = absErr / float64(n)

	scale := math.Max(1, floats.Dot(y, y))
	if res.SST > 1e-12*scale {
		res.R2 = 1 - res.SSR/res.SST
		res.R2Defined = true
	} else {
		res.Degenerate = true
		res.Warnings = append(res.Warnings, "total profit is constant across months: R2 is undefined")
	}

	return res
}

// solveCentred returns the minimum-norm least-squares coefficients for the
// centred problem along with the feature means and the numerical rank.
// Columns are scaled to unit norm before the SVD so that features of very
// different magnitude are ranked fairly; constant columns get coefficient 0.
func solveCentred(cols [][]float64, y []float64, yMean float64) (beta, means []float64, rank int) {
	n, p := len(y), len(cols)
	means = make([]float64, p)
	scales := make([]float64, p)
	x := mat.NewDense(n, p, nil)

	for j, col := range cols {
		means[j] = stat.Mean(col, nil)
		var ss float64
		for _, v := range col {
			ss += (v - means[j]) * (v - means[j])
		}
		scales[j] = math.Sqrt(ss)
		if scales[j] <= constantTolerance*(math.Sqrt(floats.Dot(col, col))+1) {
			scales[j] = 0
			continue
		}
		for i, v := range col {
			x.Set(i, j, (v-means[j])/scales[j])
		}
	}

	yc := make([]float64, n)
	for i, v := range y {
		yc[i] = v - yMean
	}

	beta = make([]float64, p)

	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDThin) {
		return beta, means, 0
	}
	values := svd.Values(nil)
	if len(values) == 0 || values[0] == 0 {
		return beta, means, 0
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	tol := rankTolerance * values[0]
	for k, s := range values {
		if s <= tol {
			continue
		}
		rank++
		w := floats.Dot(mat.Col(nil, k, &u), yc) / s
		for j := 0; j < p; j++ {
			beta[j] += v.At(j, k) * w
		}
	}

	for j := range beta {
		if scales[j] == 0 {
			beta[j] = 0
			continue
		}
		beta[j] /= scales[j]
	}
	return beta, means, rank
}
