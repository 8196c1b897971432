package analysis

import "gonum.org/v1/gonum/floats"

// Peak is a strict local maximum of a sampled signal.
type Peak struct {
	Index int
	Value float64
}

// LocalMaxima returns the interior samples that are greater than the
// previous sample and not smaller than the next.
func LocalMaxima(data []float64) []Peak {
	var out []Peak
	for i := 1; i < len(data)-1; i++ {
		if data[i] > data[i-1] && data[i] >= data[i+1] {
			out = append(out, Peak{Index: i, Value: data[i]})
		}
	}
	return out
}

// Envelope returns the values of the local maxima of data.
func Envelope(data []float64) []float64 {
	peaks := LocalMaxima(data)
	vals := make([]float64, len(peaks))
	for i, p := range peaks {
		vals[i] = p.Value
	}
	return vals
}

// NonIncreasing reports whether every value is at most the previous one
// plus tol.
func NonIncreasing(vals []float64, tol float64) bool {
	for i := 1; i < len(vals); i++ {
		if vals[i] > vals[i-1]+tol {
			return false
		}
	}
	return true
}

// AmplitudeDrift returns the spread between the largest and smallest values.
func AmplitudeDrift(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return floats.Max(vals) - floats.Min(vals)
}

// EnvelopeSummary describes the peak envelope of an oscillating signal.
// First and Last are zero when the signal has no interior maximum.
type EnvelopeSummary struct {
	Peaks    int
	First    Peak
	Last     Peak
	Decaying bool
	Drift    float64
}

// SummarizeEnvelope finds the local maxima of data and reports whether
// they never grow by more than tol.
func SummarizeEnvelope(data []float64, tol float64) EnvelopeSummary {
	peaks := LocalMaxima(data)
	if len(peaks) == 0 {
		return EnvelopeSummary{Decaying: true}
	}
	env := Envelope(data)
	return EnvelopeSummary{
		Peaks:    len(peaks),
		First:    peaks[0],
		Last:     peaks[len(peaks)-1],
		Decaying: NonIncreasing(env, tol),
		Drift:    AmplitudeDrift(env),
	}
}
