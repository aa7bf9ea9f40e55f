package worker

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ptoj-judger/internal/assets"
	"ptoj-judger/internal/checker"
	"ptoj-judger/internal/language"
	"ptoj-judger/internal/metrics"
	"ptoj-judger/internal/model"
	"ptoj-judger/internal/pipeline"
	"ptoj-judger/internal/sandbox"
	"ptoj-judger/pkg/logger"
)

// Config configures the Scheduler.
type Config struct {
	RedisURL        string
	SandboxEndpoint string
	InitConcurrent  int
}

// Scheduler owns a pool of workers, each with its own sandbox client
// and persistent traditional checker, pulling submissions off the
// shared task queue.
type Scheduler struct {
	cfg     Config
	queue   *Queue
	lang    *language.Table
	metrics *metrics.Registry
	log     *logger.Logger

	isRunning atomic.Bool
	wg        sync.WaitGroup
}

// New builds a Scheduler. The Redis connection pool is opened lazily
// in Start.
func New(cfg Config, lang *language.Table, reg *metrics.Registry, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Get()
	}
	if cfg.InitConcurrent <= 0 {
		cfg.InitConcurrent = 4
	}
	return &Scheduler{cfg: cfg, lang: lang, metrics: reg, log: log}
}

// Start opens the shared Redis connection pool and spawns
// InitConcurrent worker goroutines.
func (s *Scheduler) Start(ctx context.Context) error {
	q, err := NewQueue(s.cfg.RedisURL)
	if err != nil {
		return err
	}
	s.queue = q
	s.isRunning.Store(true)

	for i := 0; i < s.cfg.InitConcurrent; i++ {
		s.wg.Add(1)
		go s.runWorker(ctx, i)
	}
	s.log.Info(ctx, "scheduler started", zap.Int("workers", s.cfg.InitConcurrent))
	return nil
}

// Stop signals all workers to exit their loop and joins them. Each
// worker's blocking pop already uses a 5-second timeout, so shutdown
// completes within that bound plus however long the in-flight
// submission (not cancelled) takes to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	s.log.Info(ctx, "scheduler stopping")
	s.isRunning.Store(false)
	s.wg.Wait()
	if s.queue != nil {
		_ = s.queue.Close()
	}
	s.log.Info(ctx, "scheduler stopped")
}

func (s *Scheduler) runWorker(ctx context.Context, idx int) {
	defer s.wg.Done()
	log := s.log
	log.Debug(ctx, "processor started", zap.Int("worker", idx))

	client := sandbox.NewClient(sandbox.Config{
		BaseURL: s.cfg.SandboxEndpoint,
		Logger:  log,
	})
	defer client.Close()

	defaultChecker := checker.NewDefaultChecker(client, assets.DefaultCheckerSource())
	defer func() { _ = defaultChecker.Close(ctx) }()

	for s.isRunning.Load() {
		s.process(ctx, idx, client, defaultChecker)
	}
	log.Debug(ctx, "processor stopped", zap.Int("worker", idx))
}

func (s *Scheduler) process(ctx context.Context, idx int, client *sandbox.Client, defaultChecker *checker.DefaultChecker) {
	waitStart := time.Now()
	payload, err := s.queue.BlockingPop(ctx, TaskQueueName)
	if s.metrics != nil {
		s.metrics.QueueWaitSeconds.Observe(time.Since(waitStart).Seconds())
	}
	if err != nil {
		s.log.Error(ctx, "blocking pop failed", zap.Int("worker", idx), zap.Error(err))
		return
	}
	if payload == "" {
		return
	}

	var submission model.Submission
	if err := json.Unmarshal([]byte(payload), &submission); err != nil {
		s.log.Error(ctx, "malformed submission payload", zap.Int("worker", idx), zap.Error(err))
		return
	}

	if s.metrics != nil {
		s.metrics.ActiveWorkers.Inc()
		defer s.metrics.ActiveWorkers.Dec()
	}

	s.log.Debug(ctx, "processing submission", zap.Int("worker", idx), zap.String("sid", submission.SID))
	s.publish(ctx, model.ProgressEvent(submission.SID))

	result := s.judge(ctx, client, defaultChecker, submission)
	s.publish(ctx, result)

	if s.metrics != nil {
		s.metrics.SubmissionsTotal.WithLabelValues(string(result.Judge)).Inc()
	}
	s.log.Info(ctx, "submission finished",
		zap.Int("worker", idx), zap.String("sid", submission.SID), zap.String("judge", string(result.Judge)))
}

// judge recovers from any panic/setup failure so the producer is
// never left waiting on a submission the worker never answers.
func (s *Scheduler) judge(ctx context.Context, client *sandbox.Client, defaultChecker *checker.DefaultChecker, submission model.Submission) (result model.SubmissionResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error(ctx, "worker panic during judging", zap.String("sid", submission.SID), zap.Any("panic", r))
			result = model.SubmissionResult{SID: submission.SID, Judge: model.SystemError}
		}
	}()

	lang, err := s.lang.Get(submission.Language)
	if err != nil {
		s.log.Error(ctx, "unsupported language", zap.String("sid", submission.SID), zap.String("language", submission.Language))
		return model.SubmissionResult{SID: submission.SID, Judge: model.SystemError}
	}

	chk := s.chooseChecker(client, defaultChecker, submission)
	p := pipeline.New(client, submission, lang, chk, s.log)
	return p.GetResult(ctx)
}

func (s *Scheduler) chooseChecker(client *sandbox.Client, defaultChecker *checker.DefaultChecker, submission model.Submission) checker.Checker {
	if submission.Type == model.Traditional {
		return defaultChecker
	}
	return checker.NewTestlibChecker(client, client.Cache(), assets.TestlibHeader(), submission.AdditionCode)
}

func (s *Scheduler) publish(ctx context.Context, result model.SubmissionResult) {
	body, err := json.Marshal(result)
	if err != nil {
		s.log.Error(ctx, "marshal result failed", zap.String("sid", result.SID), zap.Error(err))
		return
	}
	if err := s.queue.Push(ctx, ResultQueueName, string(body)); err != nil {
		s.log.Error(ctx, "push result failed", zap.String("sid", result.SID), zap.Error(err))
	}
}
