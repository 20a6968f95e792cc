// Package server assembles the helpdesk API from configuration.
package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/llm"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/storage"
	"github.com/spec-kit/helpdesk/internal/triage"
	"github.com/spec-kit/helpdesk/internal/worker"
)

// Server owns the fiber app and every background component.
type Server struct {
	App       *fiber.App
	Auth      *service.AuthService
	Tickets   *service.TicketService
	Knowledge *service.KnowledgeService
	Metrics   *observability.Metrics
	Triage    *worker.TriageWorker
	Sweeper   *worker.TriageSweeper

	cfg      *config.Config
	logger   *zap.Logger
	postgres *persistence.Postgres
	redis    *persistence.Redis
	cancel   context.CancelFunc
}

// Options overrides collaborators, mostly for tests.
type Options struct {
	Chat llm.Chatter
}

type repositories struct {
	users    repository.UserRepository
	tickets  repository.TicketRepository
	messages repository.MessageRepository
	history  repository.HistoryRepository
	corpus   repository.CorpusRepository
}

// New connects to the configured backends and wires services, workers and
// routes. Without POSTGRES_DSN the repositories are in-memory.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, logger: logger, Metrics: observability.NewMetrics()}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}
	s.postgres = pg

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			pg.Close()
			return nil, err
		}
	}

	repos := newRepositories(pg.Pool)

	s.redis = persistence.NewRedis(ctx, cfg.Redis, logger)
	var revocations auth.RevocationStore = auth.NopRevocationStore{}
	if s.redis != nil {
		revocations = auth.NewRedisRevocationStore(s.redis.Client)
	}

	files, err := storage.NewStore(cfg.Storage.Dir)
	if err != nil {
		s.close()
		return nil, err
	}

	chat := opts.Chat
	if chat == nil && cfg.AI.Enabled() {
		chat = llm.NewClient(cfg.AI.APIKey, llm.WithBaseURL(cfg.AI.BaseURL), llm.WithModel(cfg.AI.Model))
	}
	var triager triage.Triager = triage.KeywordTriager{}
	if chat != nil {
		triager = triage.NewLLMTriager(chat)
	} else {
		logger.Warn("no AI key configured; using keyword triage and extractive answers")
	}

	dispatcher := events.NewInMemoryDispatcher(logger)

	s.Auth = service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:    repos.users,
		Revocations: revocations,
		Logger:      logger,
	})
	s.Tickets = service.NewTicketService(service.TicketDependencies{
		TicketRepo:    repos.tickets,
		MessageRepo:   repos.messages,
		HistoryRepo:   repos.history,
		Files:         files,
		Triager:       triager,
		Dispatcher:    dispatcher,
		Logger:        logger,
		MaxAttachment: cfg.Storage.MaxAttachmentBytes(),
	})
	s.Knowledge = service.NewKnowledgeService(service.KnowledgeDependencies{
		CorpusRepo: repos.corpus,
		Chat:       chat,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	s.Triage = worker.NewTriageWorker(s.Tickets, logger, s.Metrics, worker.TriageConfig{Timeout: cfg.AI.Timeout()})
	s.Triage.Subscribe(dispatcher)
	s.Sweeper, err = worker.NewTriageSweeper(cfg.AI.SweepSpec, s.Tickets, s.Triage, logger)
	if err != nil {
		s.close()
		return nil, err
	}

	if cfg.Auth.AdminEmail != "" {
		if _, err := s.Auth.EnsureAdmin(ctx, cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			s.close()
			return nil, err
		}
	}

	authMiddleware := auth.NewAuthMiddleware(s.Auth.TokenManager(), repos.users, revocations, logger)
	s.App = httptransport.NewApp(httptransport.AppOptions{
		Name:        cfg.App.Name,
		Logger:      logger,
		Metrics:     s.Metrics,
		Timeout:     cfg.App.RequestTimeout(),
		BodyLimit:   cfg.App.BodyLimit(),
		CORSOrigins: cfg.App.CORSAllowOrigins,
	}, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, s.redis, s.Metrics),
		Auth:           handlers.NewAuthHandler(s.Auth),
		Users:          handlers.NewUsersHandler(s.Auth),
		Tickets:        handlers.NewTicketsHandler(s.Tickets),
		StaffTickets:   handlers.NewStaffTicketsHandler(s.Tickets),
		Knowledge:      handlers.NewKnowledgeHandler(s.Knowledge, cfg.Storage.MaxAttachmentBytes()),
		AuthMiddleware: authMiddleware,
	})
	return s, nil
}

func newRepositories(pool *pgxpool.Pool) repositories {
	if pool == nil {
		store := memory.NewStore()
		return repositories{
			users:    store.Users(),
			tickets:  store.Tickets(),
			messages: store.Messages(),
			history:  store.History(),
			corpus:   store.Corpus(),
		}
	}
	return repositories{
		users:    repository.NewUserRepository(pool),
		tickets:  repository.NewTicketRepository(pool),
		messages: repository.NewMessageRepository(pool),
		history:  repository.NewHistoryRepository(pool),
		corpus:   repository.NewCorpusRepository(pool),
	}
}

// Start launches the triage workers and the sweep schedule.
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.Triage.Start(ctx)
	return s.Sweeper.Start(ctx)
}

// Listen blocks serving HTTP on the configured address.
func (s *Server) Listen() error {
	return s.App.Listen(s.cfg.App.Addr())
}

// Shutdown stops accepting requests, drains the workers and closes backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.App.ShutdownWithContext(ctx)
	if s.cancel != nil {
		s.cancel()
		s.Sweeper.Stop()
		s.Triage.Wait()
	}
	s.close()
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("shutdown deadline exceeded")
	}
	return err
}

func (s *Server) close() {
	s.redis.Close()
	s.postgres.Close()
}
