package cli

import (
	"bytes"
	"io"
	"os"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/maastricht-university/scribe/orchestrator"
)

const barTotal = 1000

// progressReporter renders pipeline progress as an mpb bar on a terminal.
// While the bar is live, log output is held back and written out once the
// bar has finished. Without a terminal the pipeline's own stage log lines
// are the progress output, so nothing is rendered here.
type progressReporter struct {
	container *mpb.Progress
	bar       *mpb.Bar
	desc      atomic.Value

	logOut io.Writer
	held   bytes.Buffer
}

func newProgressReporter(w io.Writer, tty bool) *progressReporter {
	r := &progressReporter{}
	r.desc.Store("Starting...")
	if !tty {
		return r
	}

	r.container = mpb.New(
		mpb.WithOutput(w),
		mpb.WithRefreshRate(120*time.Millisecond),
	)
	r.bar = r.container.AddBar(barTotal,
		mpb.PrependDecorators(
			decor.Any(func(decor.Statistics) string { return r.desc.Load().(string) }, decor.WC{W: 48, C: decor.DindentRight}),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncSpace),
			decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncSpace),
		),
	)

	logger := log.StandardLogger()
	r.logOut = logger.Out
	logger.SetOutput(&r.held)
	return r
}

// Func returns the callback for the pipeline, or nil when nothing renders.
func (r *progressReporter) Func() orchestrator.ProgressFunc {
	if r.bar == nil {
		return nil
	}
	return func(fraction float64, desc string) {
		r.desc.Store(desc)
		r.bar.SetCurrent(int64(fraction * barTotal))
	}
}

// Done completes the bar, waits for the final render and releases the
// held log lines.
func (r *progressReporter) Done() {
	if r.container == nil {
		return
	}
	r.bar.SetTotal(-1, true)
	r.container.Wait()

	log.StandardLogger().SetOutput(r.logOut)
	_, _ = r.logOut.Write(r.held.Bytes())
	r.held.Reset()
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}
