package processor

import (
	"time"

	"github.com/charmbracelet/log"

	"imgzap/internal/icon"
	"imgzap/internal/raster"
	"imgzap/internal/trace"
	"imgzap/internal/vector"
	"imgzap/pkg/imgutil"
)

type Options struct {
	// Workers bounds concurrent jobs. Zero or less means one per CPU.
	Workers    int
	Raster     raster.Options
	CanvasSize int
	IconSizes  []int
	Trace      trace.Options
	Logger     *log.Logger
}

// Entry is the caller's view of one candidate file.
type Entry struct {
	Format   imgutil.Format
	Included bool
}

// Selection maps source paths to their detected format. The engine only
// reads it.
type Selection map[string]Entry

// Targets is the set of enabled destination formats.
type Targets map[imgutil.Format]bool

func NewTargets(formats ...imgutil.Format) Targets {
	t := make(Targets, len(formats))
	for _, f := range formats {
		t[f] = true
	}
	return t
}

// Enabled lists the enabled formats in registry order.
func (t Targets) Enabled() []imgutil.Format {
	var out []imgutil.Format
	for _, f := range imgutil.Formats() {
		if t[f] {
			out = append(out, f)
		}
	}
	return out
}

// Job is one source/target pair. SourceFormat never equals Target.
type Job struct {
	Source       string
	SourceFormat imgutil.Format
	Target       imgutil.Format
	Output       string
}

type Result struct {
	Job      Job
	Err      error
	Duration time.Duration
}

type Summary struct {
	BatchID   string
	Total     int
	Converted int
	Skipped   int
	Failed    int
	Canceled  bool
	Failures  []Result
}

type ProgressUpdate struct {
	TotalDelta     int
	ConvertedDelta int
	SkippedDelta   int
	FailedDelta    int
	Current        string
}

func (o Options) withDefaults() Options {
	if o.CanvasSize <= 0 {
		o.CanvasSize = vector.DefaultCanvasSize
	}
	if len(o.IconSizes) == 0 {
		o.IconSizes = icon.DefaultSizes
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}
