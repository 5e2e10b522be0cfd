package cluster

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// reduce projects embedding vectors down to dims dimensions with a Gaussian
// random projection. The projection matrix is drawn from a generator seeded
// with randomState only, so the same inputs and state always produce the
// same output. The reduced vectors are L2-normalized so cosine distance
// stays meaningful.
func reduce(vectors [][]float32, dims int, randomState int64) [][]float64 {
	n := len(vectors)
	if n == 0 {
		return nil
	}

	d := len(vectors[0])
	if d <= dims {
		return toFloat64(vectors)
	}

	rng := rand.New(rand.NewSource(randomState))

	projection := mat.NewDense(d, dims, nil)
	scale := 1 / math.Sqrt(float64(dims))

	for i := 0; i < d; i++ {
		for j := 0; j < dims; j++ {
			projection.Set(i, j, rng.NormFloat64()*scale)
		}
	}

	input := mat.NewDense(n, d, nil)

	for i, vec := range vectors {
		for j, v := range vec {
			input.Set(i, j, float64(v))
		}
	}

	var reduced mat.Dense

	reduced.Mul(input, projection)

	out := make([][]float64, n)
	for i := range out {
		out[i] = normalize(reduced.RawRowView(i))
	}

	return out
}

func toFloat64(vectors [][]float32) [][]float64 {
	out := make([][]float64, len(vectors))

	for i, vec := range vectors {
		row := make([]float64, len(vec))
		for j, v := range vec {
			row[j] = float64(v)
		}

		out[i] = normalize(row)
	}

	return out
}

func normalize(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}

	if sum == 0 {
		return vec
	}

	inv := 1 / math.Sqrt(sum)
	for i := range vec {
		vec[i] *= inv
	}

	return vec
}

// cosineDistance is 1 - cosine similarity for unit-normalized vectors.
func cosineDistance(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}

	return 1 - dot
}
