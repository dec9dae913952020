// Package ingest moves PDFs into the backend: a worker pool for uploads, a
// directory watcher that feeds it, and a tracker that follows documents
// through processing.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/logger"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 64
)

// Uploader sends a local PDF to the backend.
type Uploader interface {
	UploadDocument(ctx context.Context, path string) (*client.Document, error)
}

// Job is a unit of work for the upload pool.
type Job struct {
	Path string
}

// Result reports the outcome of one Job. Document is nil when Err is set.
type Result struct {
	Path     string
	Document *client.Document
	Err      error
}

// Config is the configuration options for the upload pool.
type Config struct {
	// Uploader performs the upload, normally a *client.Client.
	Uploader Uploader

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 64).
	QueueSize uint

	// OnResult is called from a worker goroutine after every job.
	OnResult func(Result)

	Logger *slog.Logger
}

// Pool uploads files asynchronously via a bounded worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a new upload Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Uploader == nil {
		return nil, fmt.Errorf("upload pool requires an uploader")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("upload queued", "path", job.Path)
		return true
	default:
		p.logger.Error("upload not queued, queue full, job dropped", "path", job.Path)
		return false
	}
}

// Close signals workers to stop and waits for in-flight uploads to drain.
// Enqueue must not be called after Close.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("upload worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("upload worker stopped", "worker_id", id)
}

func (p *Pool) processJob(job Job) {
	doc, err := p.config.Uploader.UploadDocument(context.Background(), job.Path)
	res := Result{Path: job.Path, Document: doc, Err: err}

	if err != nil {
		res.Document = nil
		p.logger.Error("upload failed", "path", job.Path, "error", err)
	} else {
		p.logger.Info("document uploaded",
			"path", job.Path,
			"document_id", doc.ID,
			"status", string(doc.Status),
		)
	}

	if p.config.OnResult != nil {
		p.config.OnResult(res)
	}
}
