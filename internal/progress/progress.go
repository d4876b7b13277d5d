// Package progress renders blockio.ProgressFunc callbacks as terminal
// progress bars via mpb, one bar per file being copied. Core packages never
// import mpb directly; only the cmd/ verbs construct a Renderer and pass its
// Func down through mirrorcfg-driven calls.
package progress

import (
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"dvdmirror/internal/blockio"
)

// Renderer owns one mpb.Progress container and hands out a Func per file.
type Renderer struct {
	p      *mpb.Progress
	quiet  bool
	closed bool
}

// New starts a renderer writing to out. If quiet is true, Func returns a
// no-op callback and no bars are drawn; cmd/ sets it from the --quiet flag.
func New(out io.Writer, quiet bool) *Renderer {
	if quiet {
		return &Renderer{quiet: true}
	}
	return &Renderer{p: mpb.New(mpb.WithOutput(out), mpb.WithWidth(40))}
}

// Func returns a blockio.ProgressFunc that drives one bar labeled with the
// file's display name. totalBlocks is not used: the bar is created lazily on
// the first callback invocation and sized to the total that callback
// reports, since total isn't known to the caller until then in some call
// paths (chapter ranges span several cell-derived counts).
func (r *Renderer) Func(label string, totalBlocks int64) blockio.ProgressFunc {
	if r.quiet {
		return func(done, total int64, _ string) {}
	}

	var bar *mpb.Bar
	return func(done, total int64, lbl string) {
		if bar == nil {
			bar = r.p.AddBar(total,
				mpb.PrependDecorators(
					decor.Name(label, decor.WC{W: len(label) + 1, C: decor.DindentRight}),
					decor.CountersNoUnit("%d / %d blocks"),
				),
				mpb.AppendDecorators(
					decor.Percentage(decor.WCSyncSpace),
					decor.OnComplete(decor.EwmaETA(decor.ET_STYLE_GO, 30), "done"),
				),
			)
		}
		bar.SetCurrent(done)
	}
}

// Wait blocks until every bar this renderer created has completed, then
// releases the underlying container. Callers call Wait once after the last
// progress-driven operation finishes.
func (r *Renderer) Wait() {
	if r.quiet || r.p == nil || r.closed {
		return
	}
	r.closed = true
	r.p.Wait()
}
