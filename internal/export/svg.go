package export

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/san-kum/pendulum/internal/dynamo"
)

// FrameToSVG converts a rendered frame to SVG, one dot per lit pixel.
// Palette index 0 is treated as the background.
func FrameToSVG(img *image.Paletted, scale float64) string {
	if img == nil || len(img.Palette) == 0 {
		return ""
	}
	if scale <= 0 {
		scale = 1
	}

	b := img.Bounds()
	width := float64(b.Dx()) * scale
	height := float64(b.Dy()) * scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, hexColor(img.Palette[0]))

	dotRadius := scale * 0.4
	for idx := 1; idx < len(img.Palette); idx++ {
		var group strings.Builder
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if int(img.ColorIndexAt(x, y)) != idx {
					continue
				}
				cx := float64(x-b.Min.X)*scale + scale/2
				cy := float64(y-b.Min.Y)*scale + scale/2
				fmt.Fprintf(&group, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, dotRadius)
			}
		}
		if group.Len() == 0 {
			continue
		}
		fmt.Fprintf(&sb, "<g fill=\"%s\">\n", hexColor(img.Palette[idx]))
		sb.WriteString(group.String())
		sb.WriteString("</g>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// PhaseTraceToSVG draws the (θ, ω) path of traj as a single SVG polyline
// scaled into a width x height box.
func PhaseTraceToSVG(traj *dynamo.Trajectory, width, height int, strokeColor string) string {
	if traj == nil || traj.Len() < 2 {
		return ""
	}

	minX, maxX := traj.States[0][0], traj.States[0][0]
	minY, maxY := traj.States[0][1], traj.States[0][1]
	for _, x := range traj.States {
		minX, maxX = min(minX, x[0]), max(maxX, x[0])
		minY, maxY = min(minY, x[1]), max(maxY, x[1])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor)

	for i, x := range traj.States {
		px := (x[0] - minX) / rangeX * float64(width)
		py := float64(height) - (x[1]-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", px, py)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", px, py)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

func hexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
