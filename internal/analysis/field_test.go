package analysis_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pendulum/internal/analysis"
	"github.com/san-kum/pendulum/internal/dynamo"
	"github.com/san-kum/pendulum/internal/physics"
)

type threeDim struct{}

func (threeDim) StateDim() int                                  { return 3 }
func (threeDim) Derive(x dynamo.State, t float64) dynamo.State { return dynamo.State{0, 0, 0} }

var _ = Describe("Sample", func() {
	var pend *physics.Pendulum

	BeforeEach(func() {
		var err error
		pend, err = physics.NewPendulum(physics.DefaultParams())
		Expect(err).NotTo(HaveOccurred())
	})

	Context("with the default grid", func() {
		var field *analysis.Field

		BeforeEach(func() {
			var err error
			field, err = analysis.Sample(pend, analysis.DefaultGridSpec())
			Expect(err).NotTo(HaveOccurred())
		})

		It("is 32x32 in meshgrid layout", func() {
			rows, cols := field.Dims()
			Expect(rows).To(Equal(32))
			Expect(cols).To(Equal(32))
			Expect(field.Cells).To(HaveLen(32))
			Expect(field.Cells[0]).To(HaveLen(32))

			v := field.At(3, 7)
			Expect(v.Theta).To(Equal(field.ThetaAxis[7]))
			Expect(v.Omega).To(Equal(field.OmegaAxis[3]))
		})

		It("includes both endpoints of each range", func() {
			Expect(field.ThetaAxis[0]).To(BeNumerically("~", -4*math.Pi, 1e-12))
			Expect(field.ThetaAxis[31]).To(BeNumerically("~", 4*math.Pi, 1e-12))
			Expect(field.OmegaAxis[0]).To(BeNumerically("~", -20, 1e-12))
			Expect(field.OmegaAxis[31]).To(BeNumerically("~", 20, 1e-12))
		})

		It("stores unit directions and magnitudes", func() {
			for _, row := range field.Cells {
				for _, v := range row {
					Expect(v.Magnitude).To(BeNumerically("~", math.Hypot(v.DTheta, v.DOmega), 1e-12))
					Expect(math.Hypot(v.U, v.V)).To(BeNumerically("~", 1, 1e-12))
				}
			}
		})

		It("evaluates the pendulum equation at each point", func() {
			v := field.At(5, 9)
			d := pend.Derive(dynamo.State{v.Theta, v.Omega}, 0)
			Expect(v.DTheta).To(Equal(d[0]))
			Expect(v.DOmega).To(Equal(d[1]))
		})

		It("tracks the magnitude range", func() {
			Expect(field.MinMagnitude()).To(BeNumerically(">", 0))
			Expect(field.MaxMagnitude()).To(BeNumerically(">=", field.MinMagnitude()))
			Expect(field.FixedCount()).To(Equal(0))
		})
	})

	Context("at the fixed point", func() {
		spec := func(policy analysis.FixedPointPolicy) analysis.GridSpec {
			return analysis.GridSpec{
				ThetaMin: -math.Pi / 2, ThetaMax: math.Pi / 2,
				OmegaMin: -1, OmegaMax: 1,
				Cols: 3, Rows: 3,
				FixedPoints: policy,
			}
		}

		It("returns a zero vector by default", func() {
			field, err := analysis.Sample(pend, spec(analysis.FixedZero))
			Expect(err).NotTo(HaveOccurred())

			v := field.At(1, 1)
			Expect(v.Theta).To(Equal(0.0))
			Expect(v.Omega).To(Equal(0.0))
			Expect(v.Magnitude).To(Equal(0.0))
			Expect(v.U).To(Equal(0.0))
			Expect(v.V).To(Equal(0.0))
			Expect(v.Fixed).To(BeTrue())
			Expect(field.Visible(v)).To(BeTrue())
			Expect(field.FixedCount()).To(Equal(1))
			Expect(field.MinMagnitude()).To(Equal(0.0))
		})

		It("returns NaN under the nan policy", func() {
			field, err := analysis.Sample(pend, spec(analysis.FixedNaN))
			Expect(err).NotTo(HaveOccurred())

			v := field.At(1, 1)
			Expect(math.IsNaN(v.U)).To(BeTrue())
			Expect(math.IsNaN(v.V)).To(BeTrue())
		})

		It("hides the cell under the skip policy", func() {
			field, err := analysis.Sample(pend, spec(analysis.FixedSkip))
			Expect(err).NotTo(HaveOccurred())

			Expect(field.Visible(field.At(1, 1))).To(BeFalse())
			Expect(field.Visible(field.At(0, 0))).To(BeTrue())
		})

		It("points straight down at θ=π/2, ω=0", func() {
			field, err := analysis.Sample(pend, spec(analysis.FixedZero))
			Expect(err).NotTo(HaveOccurred())

			v := field.At(1, 2)
			Expect(v.Theta).To(BeNumerically("~", math.Pi/2, 1e-12))
			Expect(v.DTheta).To(Equal(0.0))
			Expect(v.DOmega).To(BeNumerically("~", -9.81, 1e-12))
			Expect(v.U).To(Equal(0.0))
			Expect(v.V).To(BeNumerically("~", -1, 1e-12))
		})
	})

	DescribeTable("rejects invalid grids",
		func(mutate func(*analysis.GridSpec), want error) {
			g := analysis.DefaultGridSpec()
			mutate(&g)
			_, err := analysis.Sample(pend, g)
			Expect(err).To(MatchError(want))
		},
		Entry("single column", func(g *analysis.GridSpec) { g.Cols = 1 }, dynamo.ErrInvalidConfig),
		Entry("inverted theta", func(g *analysis.GridSpec) { g.ThetaMin, g.ThetaMax = g.ThetaMax, g.ThetaMin }, dynamo.ErrInvalidConfig),
		Entry("infinite omega", func(g *analysis.GridSpec) { g.OmegaMax = math.Inf(1) }, dynamo.ErrInvalidConfig),
		Entry("unknown policy", func(g *analysis.GridSpec) { g.FixedPoints = "ignore" }, dynamo.ErrInvalidConfig),
	)

	It("rejects systems that are not two dimensional", func() {
		_, err := analysis.Sample(threeDim{}, analysis.DefaultGridSpec())
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
	})
})

var _ = Describe("ParseFixedPointPolicy", func() {
	It("defaults the empty string to zero", func() {
		p, err := analysis.ParseFixedPointPolicy("")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(analysis.FixedZero))
	})

	It("accepts every named policy", func() {
		for _, name := range []string{"zero", "nan", "skip"} {
			p, err := analysis.ParseFixedPointPolicy(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(p)).To(Equal(name))
		}
	})
})
