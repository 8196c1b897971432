// Package analysis samples and summarizes the phase plane of a 2D system.
//
//   - [Sample]: direction field over a regular (θ, ω) grid
//   - [PhasePortraitFromTrajectory], [PhasePortraitToASCII]: terminal phase plots
//   - [DominantFrequency]: strongest oscillation frequency of a signal
//   - [LocalMaxima], [SummarizeEnvelope]: amplitude envelope of an oscillation
//
// Cells whose derivative vanishes are fixed points. Their direction depends
// on the [FixedPointPolicy] of the grid. With [FixedSkip] the direction is
// zero and [Field.Visible] tells renderers to leave the cell out:
//
//	spec := analysis.DefaultGridSpec()
//	spec.FixedPoints = analysis.FixedSkip
//	field, err := analysis.Sample(pend, spec)
//	if err != nil {
//	    return err
//	}
//	for _, row := range field.Cells {
//	    for _, v := range row {
//	        if field.Visible(v) {
//	            draw(v.Theta, v.Omega, v.U, v.V)
//	        }
//	    }
//	}
package analysis
