package analysis_test

import (
	"math"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pendulum/internal/analysis"
	"github.com/san-kum/pendulum/internal/dynamo"
	"github.com/san-kum/pendulum/internal/physics"
)

var _ = Describe("PhasePortraitToASCII", func() {
	var traj *dynamo.Trajectory

	BeforeEach(func() {
		traj = dynamo.NewTrajectory(4)
		traj.Append(0, dynamo.State{-1, -1})
		traj.Append(1, dynamo.State{1, 1})
		traj.Append(2, dynamo.State{1, -1})
		traj.Append(3, dynamo.State{-1, 1})
	})

	It("projects with a stride", func() {
		p := analysis.PhasePortraitFromTrajectory(traj, 0, 1, 2)
		Expect(p.Points).To(HaveLen(2))
		Expect(p.Points[1].X).To(Equal(1.0))
		Expect(p.Points[1].Y).To(Equal(-1.0))
	})

	It("rejects out of range components", func() {
		Expect(analysis.PhasePortraitFromTrajectory(traj, 0, 2, 1)).To(BeNil())
		Expect(analysis.PhasePortraitFromTrajectory(dynamo.NewTrajectory(0), 0, 1, 1)).To(BeNil())
	})

	It("renders a grid of the requested size", func() {
		art := analysis.PhasePortraitToASCII(analysis.PhasePortraitFromTrajectory(traj, 0, 1, 1), 20, 10, nil)
		lines := strings.Split(strings.TrimSuffix(art, "\n"), "\n")
		Expect(lines).To(HaveLen(10))
		for _, l := range lines {
			Expect([]rune(l)).To(HaveLen(20))
		}
		Expect(strings.Count(art, "•")).To(Equal(2))
		Expect(strings.Count(art, "S")).To(Equal(1))
		Expect(strings.Count(art, "E")).To(Equal(1))
		Expect(art).To(ContainSubstring("│"))
		Expect(art).To(ContainSubstring("─"))
	})

	It("marks rest points inside the view", func() {
		bg := &analysis.PortraitContext{
			Stable:  []dynamo.State{{0, 0}},
			Saddles: []dynamo.State{{1, 0}, {math.Pi, 0}},
		}
		art := analysis.PhasePortraitToASCII(analysis.PhasePortraitFromTrajectory(traj, 0, 1, 1), 20, 10, bg)
		Expect(strings.Count(art, "o")).To(Equal(1))
		Expect(strings.Count(art, "x")).To(Equal(1))
	})

	It("draws field directions behind the trace", func() {
		pend, err := physics.NewPendulum(physics.DefaultParams())
		Expect(err).NotTo(HaveOccurred())
		spec := analysis.GridSpec{ThetaMin: -1, ThetaMax: 1, OmegaMin: -1, OmegaMax: 1, Cols: 3, Rows: 3, FixedPoints: analysis.FixedZero}
		field, err := analysis.Sample(pend, spec)
		Expect(err).NotTo(HaveOccurred())

		portrait := analysis.PhasePortraitFromTrajectory(traj, 0, 1, 1)
		art := analysis.PhasePortraitToASCII(portrait, 20, 10, &analysis.PortraitContext{Field: field})
		// gravity pulls down at θ=1 and up at θ=-1, ω carries θ right at the top
		for _, glyph := range []string{"↓", "↑", "→", "←", "+"} {
			Expect(art).To(ContainSubstring(glyph))
		}

		spec.FixedPoints = analysis.FixedSkip
		field, err = analysis.Sample(pend, spec)
		Expect(err).NotTo(HaveOccurred())
		art = analysis.PhasePortraitToASCII(portrait, 20, 10, &analysis.PortraitContext{Field: field})
		Expect(art).NotTo(ContainSubstring("+"))
		Expect(art).To(ContainSubstring("↓"))
	})

	It("renders nothing for an empty portrait", func() {
		Expect(analysis.PhasePortraitToASCII(nil, 10, 5, nil)).To(BeEmpty())
	})
})
