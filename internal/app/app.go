package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-draft/internal/config"
	"github.com/riskibarqy/fantasy-draft/internal/domain/draft"
	"github.com/riskibarqy/fantasy-draft/internal/domain/jobscheduler"
	"github.com/riskibarqy/fantasy-draft/internal/infrastructure/account/anubis"
	"github.com/riskibarqy/fantasy-draft/internal/infrastructure/eventbus"
	"github.com/riskibarqy/fantasy-draft/internal/infrastructure/jobqueue"
	"github.com/riskibarqy/fantasy-draft/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fantasy-draft/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/fantasy-draft/internal/interfaces/httpapi"
	idgen "github.com/riskibarqy/fantasy-draft/internal/platform/id"
	"github.com/riskibarqy/fantasy-draft/internal/platform/logging"
	"github.com/riskibarqy/fantasy-draft/internal/usecase"
)

type draftStore interface {
	draft.Repository
	draft.EventOutbox
}

// container holds the wired services shared by the api and worker binaries.
type container struct {
	logger       *logging.Logger
	db           *sqlx.DB
	draftRepo    draftStore
	dispatchRepo jobscheduler.Repository
	draftSvc     *usecase.DraftService
	draftJobs    *usecase.DraftJobService
	sweeper      *usecase.DraftSweeper
}

func newContainer(ctx context.Context, cfg config.Config, logger *logging.Logger) (*container, error) {
	if logger == nil {
		logger = logging.Default()
	}

	c := &container{logger: logger}
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := openDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c.db = db
		if cfg.DBBootstrapSeed {
			if err := postgres.BootstrapSeed(ctx, db); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("bootstrap seed: %w", err)
			}
		}
		c.draftRepo = postgres.NewDraftRepository(db)
		c.dispatchRepo = postgres.NewJobDispatchRepository(db)
	default:
		c.draftRepo = memory.NewSeededDraftRepository()
		c.dispatchRepo = memory.NewJobDispatchRepository()
	}
	logger.Info("draft storage ready", "driver", cfg.StorageDriver)

	var queue usecase.JobQueue = usecase.NewNoopJobQueue()
	if cfg.QStashEnabled {
		queue = jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			InternalJobToken: cfg.InternalJobToken,
			CircuitBreaker:   cfg.QStashCircuit,
		}, logger)
	}

	scheduler := usecase.NewDraftScheduler(queue, c.dispatchRepo, usecase.DraftSchedulerConfig{
		AutoPickGrace: cfg.DraftAutoPickGrace,
	}, logger)
	c.draftSvc = usecase.NewDraftService(c.draftRepo, scheduler, idgen.NewUUIDGenerator(), usecase.DraftConfig{
		DefaultSecondsPerPick: cfg.DraftDefaultSecondsPerPick,
		MaxSecondsPerPick:     cfg.DraftMaxSecondsPerPick,
	}, logger)
	c.draftJobs = usecase.NewDraftJobService(c.draftSvc, c.dispatchRepo, logger)
	c.sweeper = usecase.NewDraftSweeper(c.draftJobs, nil, usecase.DraftSweeperConfig{
		Interval: cfg.DraftSweepInterval,
		Workers:  cfg.DraftSweepWorkers,
		Batch:    cfg.DraftSweepBatch,
	}, logger)

	return c, nil
}

func (c *container) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// NewHTTPServer wires the api binary. The returned cleanup closes the
// database pool after the server has shut down.
func NewHTTPServer(ctx context.Context, cfg config.Config, logger *logging.Logger) (*http.Server, func() error, error) {
	if cfg.HTTPAddr == "" {
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	c, err := newContainer(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	anubisClient := anubis.NewClient(&http.Client{Timeout: cfg.AnubisTimeout}, anubis.ClientConfig{
		BaseURL:        cfg.AnubisBaseURL,
		IntrospectPath: cfg.AnubisIntrospectURL,
		AdminKey:       cfg.AnubisAdminKey,
		CacheTTL:       cfg.AnubisCacheTTL,
		CircuitBreaker: cfg.AnubisCircuit,
	}, c.logger)

	handler := httpapi.NewHandler(c.draftSvc, c.draftJobs, c.sweeper, c.logger)
	router := httpapi.NewRouter(handler, anubisClient, c.logger, httpapi.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalJobToken:   cfg.InternalJobToken,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server, c.Close, nil
}

// Worker runs the background loops: the overdue-turn sweeper and the outbox
// relay.
type Worker struct {
	container *container
	relay     *usecase.OutboxRelay
	publisher *eventbus.JetStreamPublisher
}

func NewWorker(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Worker, error) {
	c, err := newContainer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	w := &Worker{container: c}
	if cfg.NATSEnabled {
		publisher, err := eventbus.NewJetStreamPublisher(ctx, eventbus.JetStreamConfig{
			URL:           cfg.NATSURL,
			StreamName:    cfg.NATSStream,
			SubjectPrefix: cfg.NATSSubjectPrefix,
		}, c.logger)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("connect event bus: %w", err)
		}
		w.publisher = publisher
		w.relay = usecase.NewOutboxRelay(c.draftRepo, publisher, nil, usecase.OutboxRelayConfig{
			Interval: cfg.OutboxRelayInterval,
			Batch:    cfg.OutboxRelayBatch,
		}, c.logger)
	} else {
		c.logger.Info("outbox relay disabled", "reason", "NATS_ENABLED=false")
	}

	return w, nil
}

// Run blocks until ctx is cancelled or a loop fails.
func (w *Worker) Run(ctx context.Context) error {
	loops := []func(context.Context) error{w.container.sweeper.Run}
	if w.relay != nil {
		loops = append(loops, w.relay.Run)
	}
	return runLoops(ctx, loops...)
}

func (w *Worker) Close() error {
	if w.publisher != nil {
		w.publisher.Close()
	}
	return w.container.Close()
}
