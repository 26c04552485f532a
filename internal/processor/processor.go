package processor

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"imgzap/internal/icon"
	"imgzap/internal/raster"
	"imgzap/internal/trace"
	"imgzap/internal/vector"
	"imgzap/pkg/imgutil"
)

// Plan expands the selection into one job per included path and enabled
// target. Pairs whose source already has the target format are counted in
// skipped and produce no job. Jobs are ordered by source path, then by
// registry order of the target.
func Plan(sel Selection, targets Targets) (jobs []Job, skipped int) {
	paths := make([]string, 0, len(sel))
	for path, entry := range sel {
		if entry.Included {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	enabled := targets.Enabled()
	for _, path := range paths {
		source := sel[path].Format
		for _, target := range enabled {
			if target == source {
				skipped++
				continue
			}
			jobs = append(jobs, Job{
				Source:       path,
				SourceFormat: source,
				Target:       target,
				Output:       OutputPath(path, target),
			})
		}
	}
	return jobs, skipped
}

// OutputPath swaps the extension of source for the canonical one of f.
func OutputPath(source string, f imgutil.Format) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + "." + f.Ext()
}

// Run converts every planned job on a pool of workers. Failures are logged
// and counted; they never stop the batch. Cancelling ctx stops new jobs from
// starting while running ones finish.
func Run(ctx context.Context, sel Selection, targets Targets, opts Options, updates chan<- ProgressUpdate) Summary {
	opts = opts.withDefaults()
	batchID := uuid.NewString()
	logger := opts.Logger.With("batch", batchID[:8])

	jobList, skipped := Plan(sel, targets)
	summary := Summary{BatchID: batchID, Total: len(jobList), Skipped: skipped}
	logger.Debug("batch planned", "jobs", len(jobList), "skipped", skipped)

	if updates != nil && (len(jobList) > 0 || skipped > 0) {
		updates <- ProgressUpdate{TotalDelta: len(jobList), SkippedDelta: skipped}
	}
	if len(jobList) == 0 {
		return summary
	}

	conv := NewConverter(opts)
	jobs := make(chan Job)
	results := make(chan Result)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(jobList))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			worker(ctx, conv, jobs, results)
		}()
	}

	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for res := range results {
			job := res.Job
			if res.Err != nil {
				summary.Failed++
				summary.Failures = append(summary.Failures, res)
				logger.Error("conversion failed",
					"source", job.Source,
					"target", job.Target,
					"kind", imgutil.GetCode(res.Err),
					"err", res.Err)
				if updates != nil {
					updates <- ProgressUpdate{FailedDelta: 1, Current: job.Source}
				}
				continue
			}
			summary.Converted++
			logger.Debug("converted",
				"source", job.Source,
				"output", job.Output,
				"took", res.Duration.Round(time.Millisecond))
			if updates != nil {
				updates <- ProgressUpdate{ConvertedDelta: 1, Current: job.Output}
			}
		}
	}()

	go func() {
		defer close(jobs)
		for _, job := range jobList {
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(results)
	<-collectorDone

	if ctx.Err() != nil {
		summary.Canceled = true
		logger.Warn("batch canceled", "remaining", summary.Total-summary.Converted-summary.Failed)
	}

	sort.Slice(summary.Failures, func(i, j int) bool {
		a, b := summary.Failures[i].Job, summary.Failures[j].Job
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Target < b.Target
	})
	logger.Debug("batch finished", "converted", summary.Converted, "failed", summary.Failed)
	return summary
}

func worker(ctx context.Context, conv *Converter, jobs <-chan Job, results chan<- Result) {
	for job := range jobs {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		err := conv.Execute(job)
		results <- Result{Job: job, Err: err, Duration: time.Since(start)}
	}
}

// Converter executes single jobs. It holds no per-job state and is safe for
// concurrent use.
type Converter struct {
	raster     *raster.Codec
	canvasSize int
	iconSizes  []int
	trace      trace.Options
}

func NewConverter(opts Options) *Converter {
	opts = opts.withDefaults()
	return &Converter{
		raster:     raster.New(opts.Raster),
		canvasSize: opts.CanvasSize,
		iconSizes:  opts.IconSizes,
		trace:      opts.Trace,
	}
}

// Execute decodes the source along the path for its format and writes the
// target. A failed job leaves no output file.
func (c *Converter) Execute(job Job) error {
	if job.SourceFormat == job.Target {
		return imgutil.New(imgutil.ErrCodeUnsupported, "source and target are both %s", job.Target)
	}
	if samePath(job.Source, job.Output) {
		return imgutil.New(imgutil.ErrCodeInvalidPath, "output %s would overwrite its source", job.Output)
	}

	img, err := c.decode(job)
	if err != nil {
		return err
	}
	return c.encodeTo(img, job)
}

func (c *Converter) decode(job Job) (image.Image, error) {
	switch {
	case job.SourceFormat.IsVector():
		return vector.Rasterize(job.Source, c.canvasSize)
	case job.SourceFormat.IsContainer():
		return icon.DecodeLargest(job.Source)
	default:
		return c.raster.Decode(job.Source)
	}
}

func (c *Converter) encodeTo(img image.Image, job Job) error {
	switch {
	case job.Target.IsContainer():
		return icon.WriteFile(job.Output, img, c.iconSizes)
	case job.Target.IsVector():
		return trace.WriteFile(img, job.Output, c.trace)
	default:
		return c.raster.Encode(img, job.Output, job.Target)
	}
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && filepath.Clean(absA) == filepath.Clean(absB) {
		return true
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}
