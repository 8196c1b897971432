package export

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/gif"
	"io"
	"math"
	"os"

	"github.com/san-kum/pendulum/internal/dynamo"
	"github.com/san-kum/pendulum/internal/viz"
)

type GIFOptions struct {
	// MaxFrames caps the number of frames; samples are strided evenly to fit.
	MaxFrames int
	Scale     int
	Theme     viz.Theme
	// Dt is the sample spacing of the trajectory, used for frame delays.
	Dt float64
}

// FrameIndices returns the trajectory samples that become frames. The last
// sample is always included.
func FrameIndices(n, maxFrames int) []int {
	if n <= 0 {
		return nil
	}
	if maxFrames <= 0 || maxFrames >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	stride := int(math.Ceil(float64(n) / float64(maxFrames)))
	idx := make([]int, 0, maxFrames+1)
	for i := 0; i < n; i += stride {
		idx = append(idx, i)
	}
	if idx[len(idx)-1] != n-1 {
		idx = append(idx, n-1)
	}
	return idx
}

// frameDelay converts the sample spacing of one frame into GIF hundredths of
// a second. Browsers clamp delays below 2.
func frameDelay(dt float64, stride int) int {
	d := int(math.Round(dt * float64(stride) * 100))
	return max(2, d)
}

// EncodeGIF renders the scene frames and writes the animation to w. It
// returns the number of frames written.
func EncodeGIF(ctx context.Context, w io.Writer, scene *viz.Scene, opts GIFOptions) (int, error) {
	if scene == nil {
		return 0, fmt.Errorf("gif needs a scene: %w", dynamo.ErrInvalidConfig)
	}
	if opts.Scale < 1 {
		opts.Scale = 1
	}
	if !(opts.Dt > 0) {
		opts.Dt = 0.01
	}

	idx := FrameIndices(scene.Frames(), opts.MaxFrames)
	stride := 1
	if len(idx) > 1 {
		stride = idx[1] - idx[0]
	}
	delay := frameDelay(opts.Dt, stride)

	anim := gif.GIF{
		Image:     make([]*image.Paletted, 0, len(idx)),
		Delay:     make([]int, 0, len(idx)),
		LoopCount: 0,
	}
	for _, i := range idx {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		anim.Image = append(anim.Image, scene.Image(i, opts.Scale, opts.Theme))
		anim.Delay = append(anim.Delay, delay)
	}

	if err := gif.EncodeAll(w, &anim); err != nil {
		return 0, fmt.Errorf("encode gif: %w", err)
	}
	return len(anim.Image), nil
}

// WriteGIF is EncodeGIF into a file at path.
func WriteGIF(ctx context.Context, path string, scene *viz.Scene, opts GIFOptions) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("cannot create gif: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	n, err := EncodeGIF(ctx, bw, scene, opts)
	if err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return n, f.Close()
}
