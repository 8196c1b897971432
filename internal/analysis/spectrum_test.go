package analysis_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pendulum/internal/analysis"
)

var _ = Describe("Spectrum and peaks", func() {
	sine := func(freq, dt float64, n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = 0.3 + math.Sin(2*math.Pi*freq*float64(i)*dt)
		}
		return out
	}

	It("finds the dominant frequency of a sine", func() {
		data := sine(0.5, 0.01, 4000)
		Expect(analysis.DominantFrequency(data, 0.01)).To(BeNumerically("~", 0.5, 0.03))
	})

	It("returns zero for a constant signal", func() {
		data := make([]float64, 128)
		for i := range data {
			data[i] = 2
		}
		Expect(analysis.DominantFrequency(data, 0.01)).To(Equal(0.0))
	})

	It("returns half the samples from PowerSpectrum", func() {
		Expect(analysis.PowerSpectrum(sine(1, 0.01, 256))).To(HaveLen(128))
		Expect(analysis.PowerSpectrum(nil)).To(BeEmpty())
	})

	It("locates local maxima", func() {
		peaks := analysis.LocalMaxima([]float64{0, 1, 0, 2, 2, 1, 3})
		Expect(peaks).To(Equal([]analysis.Peak{{Index: 1, Value: 1}, {Index: 3, Value: 2}}))
	})

	It("checks envelopes", func() {
		env := analysis.Envelope([]float64{0, 3, 0, 2, 0, 1, 0})
		Expect(env).To(Equal([]float64{3, 2, 1}))
		Expect(analysis.NonIncreasing(env, 0)).To(BeTrue())
		Expect(analysis.NonIncreasing([]float64{1, 2}, 0.5)).To(BeFalse())
		Expect(analysis.AmplitudeDrift(env)).To(Equal(2.0))
	})

	It("summarizes a decaying envelope", func() {
		env := analysis.SummarizeEnvelope([]float64{0, 3, 0, 2, 0, 1, 0}, 1e-9)
		Expect(env.Peaks).To(Equal(3))
		Expect(env.First).To(Equal(analysis.Peak{Index: 1, Value: 3}))
		Expect(env.Last).To(Equal(analysis.Peak{Index: 5, Value: 1}))
		Expect(env.Decaying).To(BeTrue())
		Expect(env.Drift).To(Equal(2.0))

		grow := analysis.SummarizeEnvelope([]float64{0, 1, 0, 2, 0}, 1e-9)
		Expect(grow.Decaying).To(BeFalse())

		flat := analysis.SummarizeEnvelope([]float64{1, 2, 3}, 0)
		Expect(flat.Peaks).To(BeZero())
		Expect(flat.Decaying).To(BeTrue())
	})
})
