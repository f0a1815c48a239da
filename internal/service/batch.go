package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"hrqc/internal/analysis"
	"hrqc/internal/config"
	"hrqc/internal/recording"
	"hrqc/internal/store"
)

// ZoneSource supplies per-subject zones and resting/max heart rate
type ZoneSource interface {
	Zones(subject string, snapTo int) (map[int]analysis.Range, error)
	RestMax(subject string) (analysis.RestMax, error)
}

// ReadFunc loads the samples of one recording
type ReadFunc func(path string, logger *slog.Logger) ([]analysis.Sample, error)

// Progress reports batch progress
type Progress struct {
	Total     int
	Completed int
	Current   string
	Err       error // set when the file ended with an error defect
}

// Batch runs session QC over many recordings with a worker pool
type Batch struct {
	zones             ZoneSource
	read              ReadFunc
	workers           int
	snapTo            int
	maxSessionMinutes int
	maxRecording      time.Duration
	logger            *slog.Logger
}

// NewBatch creates a batch runner from the QC settings of cfg
func NewBatch(zones ZoneSource, cfg *config.Config, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Batch{
		zones:             zones,
		read:              recording.Read,
		workers:           cfg.Workers,
		snapTo:            cfg.Registry.SnapTo,
		maxSessionMinutes: cfg.QC.MaxSessionMinutes,
		maxRecording:      time.Duration(cfg.QC.MaxRecordingHours) * time.Hour,
		logger:            logger,
	}
	if b.workers < 1 {
		b.workers = 1
	}
	if b.snapTo < 1 {
		b.snapTo = DefaultSnapTo
	}
	if b.maxRecording <= 0 {
		b.maxRecording = DefaultMaxRecording
	}
	return b
}

// WithReader replaces the recording reader
func (b *Batch) WithReader(read ReadFunc) *Batch {
	b.read = read
	return b
}

type batchResult struct {
	index  int
	result store.FileResult
}

// Run processes sources and returns their results in source order. A failing
// file becomes an error defect on its own result and never stops the batch.
// When ctx is cancelled no new files are started; the results of files that
// finished are returned with ctx.Err().
func (b *Batch) Run(ctx context.Context, sources []recording.Source, progress chan<- Progress) ([]store.FileResult, error) {
	if progress != nil {
		defer close(progress)
	}

	jobCh := make(chan int, len(sources))
	resultCh := make(chan batchResult, len(sources))
	var wg sync.WaitGroup

	for range b.workers {
		wg.Go(func() {
			for i := range jobCh {
				resultCh <- batchResult{index: i, result: b.processFile(sources[i])}
			}
		})
	}

dispatch:
	for i := range sources {
		select {
		case <-ctx.Done():
			break dispatch
		case jobCh <- i:
		}
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	done := make([]bool, len(sources))
	results := make([]store.FileResult, len(sources))
	completed := 0
	for r := range resultCh {
		done[r.index] = true
		results[r.index] = r.result
		completed++

		if progress != nil {
			p := Progress{Total: len(sources), Completed: completed, Current: r.result.Path}
			if d, ok := r.result.Report.Get(store.KindError); ok {
				p.Err = errors.New(d.Message)
			}
			progress <- p
		}
	}

	ordered := make([]store.FileResult, 0, completed)
	for i, ok := range done {
		if ok {
			ordered = append(ordered, results[i])
		}
	}
	return ordered, ctx.Err()
}

// processFile turns every failure of one file, panics included, into defects
func (b *Batch) processFile(src recording.Source) (result store.FileResult) {
	result = store.FileResult{
		Path:       src.Path,
		Group:      src.Group,
		Subject:    src.Subject,
		Supervised: src.Supervised,
	}
	logger := b.logger.With("file", src.Path)
	stage := StageStart

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during qc", "stage", stage, "panic", r, "stack", string(debug.Stack()))
			recordError(&result, &StructuralError{File: src.Path, Stage: stage, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	week, session, err := recording.ParseSourceName(src.Path)
	if err != nil {
		logger.Warn("skipping file with unparseable week")
		result.Report.Add(store.Defect{Kind: store.KindWeekParse, Message: MsgWeekParse})
		return result
	}
	result.Week = week
	result.Session = session

	stage = StageRead
	samples, err := b.read(src.Path, logger)
	if err != nil {
		recordError(&result, &StructuralError{File: src.Path, Stage: StageRead, Err: err})
		return result
	}
	result.SampleCount = len(samples)

	if start, end, length, ok := recording.Window(samples); ok && length > b.maxRecording {
		logger.Warn("skipping file with long duration", "duration", length)
		seconds := length.Seconds()
		result.Report.Add(store.Defect{
			Kind:    store.KindDuration,
			Message: fmt.Sprintf(MsgLongFile, b.maxRecording.Hours()),
			Details: []store.DefectDetail{{Start: &start, End: &end, DurationS: &seconds}},
		})
		return result
	}

	stage = StageRegistry
	zones, err := b.zones.Zones(src.Subject, b.snapTo)
	if err != nil {
		recordError(&result, &StructuralError{File: src.Path, Stage: StageRegistry, Err: err})
		return result
	}
	restMax, err := b.zones.RestMax(src.Subject)
	if err != nil {
		recordError(&result, &StructuralError{File: src.Path, Stage: StageRegistry, Err: err})
		return result
	}

	sr := RunSession(SessionInput{
		Path:       src.Path,
		Samples:    samples,
		Week:       week,
		Supervised: src.Supervised,
		Zones:      zones,
		RestMax:    restMax,
	}, Options{MaxSessionMinutes: b.maxSessionMinutes, Logger: b.logger})

	result.Report = sr.Report
	result.Metrics = sr.Metrics
	if sr.Err != nil {
		recordError(&result, sr.Err)
	}
	return result
}

func recordError(result *store.FileResult, err error) {
	result.Report.Add(store.Defect{Kind: store.KindError, Message: err.Error()})
}
