package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/leadforge/leadforge/config"
	"github.com/leadforge/leadforge/models"
	"github.com/leadforge/leadforge/repository"
	"gopkg.in/natefinch/lumberjack.v2"
)

// AbuseLogger records suspicious events without ever blocking or failing the
// request that observed them. Log hands the event to a bounded queue; a
// single worker drains the queue into the database. If the queue is full or
// the insert fails, the event is appended to a rotating security log file so
// the signal is never silently dropped.
type AbuseLogger interface {
	Log(event *models.SuspiciousEvent)
	Close()
}

// AbuseLoggerImpl implements AbuseLogger
type AbuseLoggerImpl struct {
	repo     repository.SuspiciousEventRepository
	queue    chan *models.SuspiciousEvent
	fallback *log.Logger
	done     chan struct{}
	wg       sync.WaitGroup
	closing  sync.Once
}

const abuseQueueSize = 1024

// NewAbuseLogger creates the logger and starts its worker goroutine
func NewAbuseLogger(repo repository.SuspiciousEventRepository, cfg *config.LoggingConfig) AbuseLogger {
	var fallback *log.Logger
	if cfg != nil && cfg.EnableSecurityLog {
		fallback = log.New(&lumberjack.Logger{
			Filename:   cfg.SecurityLogPath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}, "", 0)
	}

	l := &AbuseLoggerImpl{
		repo:     repo,
		queue:    make(chan *models.SuspiciousEvent, abuseQueueSize),
		fallback: fallback,
		done:     make(chan struct{}),
	}

	l.wg.Add(1)
	go l.worker()

	return l
}

// Log enqueues an event. It never blocks: when the queue is full the event
// goes straight to the fallback file.
func (l *AbuseLoggerImpl) Log(event *models.SuspiciousEvent) {
	if event == nil {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	select {
	case l.queue <- event:
	default:
		l.writeFallback(event)
	}
}

// Close stops the worker after draining events already queued
func (l *AbuseLoggerImpl) Close() {
	l.closing.Do(func() {
		close(l.done)
		l.wg.Wait()
	})
}

func (l *AbuseLoggerImpl) worker() {
	defer l.wg.Done()

	for {
		select {
		case event := <-l.queue:
			l.persist(event)
		case <-l.done:
			// drain what is left, then exit
			for {
				select {
				case event := <-l.queue:
					l.persist(event)
				default:
					return
				}
			}
		}
	}
}

func (l *AbuseLoggerImpl) persist(event *models.SuspiciousEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.repo.Save(ctx, event); err != nil {
		l.writeFallback(event)
	}
}

func (l *AbuseLoggerImpl) writeFallback(event *models.SuspiciousEvent) {
	if l.fallback == nil {
		return
	}
	line, err := json.Marshal(event)
	if err != nil {
		return
	}
	l.fallback.Println(string(line))
}
