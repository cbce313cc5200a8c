package worker

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"sheet2pdf/internal/email"
	"sheet2pdf/internal/hub"
	"sheet2pdf/internal/render"
	"sheet2pdf/internal/storage"
	"sheet2pdf/internal/store"
)

var (
	ErrQueueFull    = errors.New("job queue is full")
	ErrShuttingDown = errors.New("worker pool is shutting down")
)

const (
	defaultQueueSize = 100
	// MaxAttachmentSize is the largest PDF sent as an email attachment.
	MaxAttachmentSize = 25 * 1024 * 1024
	// finished jobs stay queryable in memory this long
	jobRetention = time.Hour
)

// Recorder persists job history.
type Recorder interface {
	Record(ctx context.Context, c store.Conversion) error
	UpdateStatus(ctx context.Context, c store.Conversion) error
}

// Notifier receives live job updates.
type Notifier interface {
	Broadcast(update hub.JobUpdate)
}

// Options configure a Pool. Storage is required; the rest is optional.
type Options struct {
	Workers int
	// MaxConcurrent caps conversions running at once, including ConvertSync.
	MaxConcurrent int64
	QueueSize     int
	Storage       storage.Provider
	Emailer       email.Sender
	Recorder      Recorder
	Notifier      Notifier
	// Gzip compresses stored PDFs.
	Gzip bool
	// AttachFile mails the PDF itself instead of a link when it is small enough.
	AttachFile bool
	Render     render.Options
}

// Pool runs conversion jobs on a fixed set of workers. A weighted semaphore
// bounds how many conversions hold a workbook in memory at once.
type Pool struct {
	// jobQueue allows for buffering incoming requests before workers pick them up.
	jobQueue chan *ConversionJob
	workers  int
	slots    *semaphore.Weighted
	wg       sync.WaitGroup
	quit     chan struct{}
	stopOnce sync.Once
	// submitting is held shared by Submit and exclusively by Stop while it
	// closes quit, so no job is queued after the final drain.
	submitting sync.RWMutex

	storage    storage.Provider
	emailer    email.Sender
	recorder   Recorder
	notifier   Notifier
	useGzip    bool
	attachFile bool
	renderOpts render.Options

	mu   sync.Mutex
	jobs map[string]*ConversionJob
}

// NewPool initializes a worker pool with the specified configuration.
// It does not start the workers; call Start() to begin processing.
func NewPool(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = int64(opts.Workers)
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Emailer == nil {
		opts.Emailer = email.NewLogSender()
	}
	return &Pool{
		jobQueue:   make(chan *ConversionJob, opts.QueueSize), // Bounded buffer to prevent infinite memory growth
		workers:    opts.Workers,
		slots:      semaphore.NewWeighted(opts.MaxConcurrent),
		quit:       make(chan struct{}),
		storage:    opts.Storage,
		emailer:    opts.Emailer,
		recorder:   opts.Recorder,
		notifier:   opts.Notifier,
		useGzip:    opts.Gzip,
		attachFile: opts.AttachFile,
		renderOpts: opts.Render,
		jobs:       make(map[string]*ConversionJob),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	slog.Info("Worker pool started", "workers", p.workers)
}

// Submit queues job. The job is recorded and announced before it is queued,
// so a worker never updates a row that does not exist yet.
func (p *Pool) Submit(job *ConversionJob) error {
	p.submitting.RLock()
	defer p.submitting.RUnlock()

	select {
	case <-p.quit:
		return ErrShuttingDown
	default:
	}

	p.track(job)
	p.record(job)
	p.notify(job, hub.JobUpdate{Type: "job_queued"})

	select {
	case p.jobQueue <- job:
		return nil
	default:
		p.failJob(job, ErrQueueFull)
		return ErrQueueFull
	}
}

// Get returns a snapshot of a job still held in memory.
func (p *Pool) Get(id string) (store.Conversion, bool) {
	p.mu.Lock()
	job, ok := p.jobs[id]
	p.mu.Unlock()
	if !ok {
		return store.Conversion{}, false
	}
	return job.Snapshot(), true
}

// ConvertSync converts r into w on the caller's goroutine, sharing the
// conversion slots with queued jobs.
func (p *Pool) ConvertSync(ctx context.Context, r io.Reader, w io.Writer) (*render.Result, error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire conversion slot: %w", err)
	}
	defer p.slots.Release(1)

	return render.ConvertReader(ctx, r, w, p.renderOpts)
}

// Stop initiates graceful shutdown. Jobs still queued are failed.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.submitting.Lock()
		close(p.quit)
		p.submitting.Unlock()
		p.wg.Wait()

		for {
			select {
			case job := <-p.jobQueue:
				p.failJob(job, ErrShuttingDown)
			default:
				slog.Info("Worker pool stopped")
				return
			}
		}
	})
}

func (p *Pool) workerLoop(id int) {
	defer p.wg.Done()
	slog.Debug("Worker started", "worker_id", id)

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.processJob(id, job)
		case <-p.quit:
			return
		}
	}
}

func (p *Pool) processJob(workerID int, job *ConversionJob) {
	defer job.Cancel()
	slog.Info("Processing job", "worker_id", workerID, "job_id", job.ID)

	job.update(func(j *ConversionJob) {
		j.Started = time.Now()
		j.Status = StatusProcessing
	})
	p.updateRecord(job)
	p.notify(job, hub.JobUpdate{Type: "job_start"})

	if err := p.slots.Acquire(job.Ctx, 1); err != nil {
		p.failJob(job, fmt.Errorf("failed to acquire conversion slot: %w", err))
		return
	}
	res, err := p.executeConversion(job)
	p.slots.Release(1)

	if err != nil {
		p.failJob(job, err)
		return
	}

	job.update(func(j *ConversionJob) {
		j.Result = res
		j.Status = StatusCompleted
		j.Finished = time.Now()
	})
	p.updateRecord(job)
	p.notify(job, hub.JobUpdate{Type: "job_complete", Sheets: res.Sheets, Rows: res.Rows})

	slog.Info("Job completed", "job_id", job.ID, "sheets", res.Sheets, "rows", res.Rows)

	if job.Email != "" {
		p.sendNotification(job)
	}
}

func (p *Pool) executeConversion(job *ConversionJob) (*render.Result, error) {
	key := fmt.Sprintf("outputs/%s.pdf", job.ID)
	if p.useGzip {
		key += ".gz"
	}
	job.update(func(j *ConversionJob) { j.OutputKey = key })

	input, err := p.storage.OpenFile(job.Ctx, job.InputKey)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", render.ErrSourceRead, job.InputKey, err)
	}
	defer input.Close()

	// Start Storage Upload in background (it reads from pipe)
	storageWriter, errChan := p.storage.StreamToFile(job.Ctx, key)
	if storageWriter == nil {
		return nil, fmt.Errorf("%w: %w", render.ErrWrite, <-errChan)
	}

	var finalWriter io.Writer = storageWriter
	var gz *gzip.Writer
	if p.useGzip {
		gz = gzip.NewWriter(storageWriter)
		finalWriter = gz
	}

	opts := p.renderOpts
	opts.OnSheet = func(sp render.SheetProgress) {
		p.notify(job, hub.JobUpdate{
			Type:       "progress",
			Sheet:      sp.Sheet,
			SheetIndex: sp.Index + 1,
			Sheets:     sp.Total,
			Rows:       sp.Rows,
		})
	}

	// Workbook -> PDF -> [Gzip?] -> Storage
	res, convErr := render.ConvertReader(job.Ctx, input, finalWriter, opts)
	if convErr == nil && gz != nil {
		if err := gz.Close(); err != nil {
			convErr = fmt.Errorf("%w: gzip close failed: %w", render.ErrWrite, err)
		}
	}

	if convErr != nil {
		_ = storage.Abort(storageWriter, convErr)
		<-errChan
		return nil, convErr
	}

	storageCloseErr := storageWriter.Close()
	uploadErr := <-errChan

	if storageCloseErr != nil {
		return nil, fmt.Errorf("%w: storage close failed: %w", render.ErrWrite, storageCloseErr)
	}
	if uploadErr != nil {
		return nil, fmt.Errorf("%w: upload failed: %w", render.ErrWrite, uploadErr)
	}
	return res, nil
}

func (p *Pool) sendNotification(job *ConversionJob) {
	snap := job.Snapshot()
	summary := fmt.Sprintf(
		"Job Summary:\n"+
			"----------------\n"+
			"Job ID: %s\n"+
			"Sheets: %d\n"+
			"Rows Drawn: %d\n"+
			"Submitted: %s\n"+
			"Started: %s (Wait: %v)\n"+
			"Finished: %s\n"+
			"Total Duration: %v\n",
		snap.ID,
		snap.Sheets,
		snap.Rows,
		snap.Submitted.Format("2006-01-02 03:04:05 PM"),
		snap.Started.Format("2006-01-02 03:04:05 PM"), snap.Started.Sub(snap.Submitted),
		snap.Finished.Format("2006-01-02 03:04:05 PM"),
		snap.Finished.Sub(snap.Started),
	)

	if !p.attachFile {
		p.emailer.SendDownloadLink(snap.Email, p.storage.GetDownloadURL(snap.OutputKey), summary)
		return
	}

	content, err := p.readAttachment(snap.OutputKey)
	if err != nil {
		slog.Warn("Skipping attachment (too large or error)", "key", snap.OutputKey, "error", err)
		downloadURL := p.storage.GetDownloadURL(snap.OutputKey)
		summary += fmt.Sprintf("\nAttachment skipped: %v\nDownload Link: %s", err, downloadURL)
		p.emailer.SendDownloadLink(snap.Email, downloadURL, summary)
		return
	}
	p.emailer.SendWithAttachment(snap.Email, snap.OutputKey, content, summary)
}

func (p *Pool) readAttachment(key string) ([]byte, error) {
	// the job context is already cancelled once processJob returns
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	reader, err := p.storage.OpenFile(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	content, err := io.ReadAll(io.LimitReader(reader, MaxAttachmentSize+1))
	if err != nil {
		return nil, err
	}
	if len(content) > MaxAttachmentSize {
		return nil, fmt.Errorf("file exceeds max attachment size (%d bytes)", MaxAttachmentSize)
	}
	return content, nil
}

func (p *Pool) failJob(job *ConversionJob, err error) {
	job.update(func(j *ConversionJob) {
		j.Status = StatusFailed
		j.Error = err
		j.Finished = time.Now()
	})
	job.Cancel()
	p.updateRecord(job)
	p.notify(job, hub.JobUpdate{Type: "job_failed", Error: err.Error()})
	slog.Error("Job failed", "job_id", job.ID, "error", err)
}

// track registers job for Get and drops finished jobs past retention.
func (p *Pool) track(job *ConversionJob) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-jobRetention)
	for id, j := range p.jobs {
		snap := j.Snapshot()
		if !snap.Finished.IsZero() && snap.Finished.Before(cutoff) {
			delete(p.jobs, id)
		}
	}
	p.jobs[job.ID] = job
}

func (p *Pool) record(job *ConversionJob) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(context.Background(), job.Snapshot()); err != nil {
		slog.Error("Failed to record job", "job_id", job.ID, "error", err)
	}
}

func (p *Pool) updateRecord(job *ConversionJob) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.UpdateStatus(context.Background(), job.Snapshot()); err != nil {
		slog.Error("Failed to update job record", "job_id", job.ID, "error", err)
	}
}

func (p *Pool) notify(job *ConversionJob, update hub.JobUpdate) {
	if p.notifier == nil {
		return
	}
	update.JobID = job.ID
	if update.Status == "" {
		update.Status = string(job.Snapshot().Status)
	}
	p.notifier.Broadcast(update)
}
