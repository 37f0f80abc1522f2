package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/rcm-ksa/nphies-gateway/internal/service/config"
	"github.com/rcm-ksa/nphies-gateway/internal/service/notify"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/fhir"
	nphiesHTTP "github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/http"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/nphies"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/postgres"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/app"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/app/commands"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/app/queries"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/ledger"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/payers"
	"github.com/rcm-ksa/nphies-gateway/internal/service/runtime"
)

const shutdownTimeout = 10 * time.Second

type Service struct {
	Config   config.Config
	Logger   zerolog.Logger
	Composer *fhir.Composer
	Commands app.CommandBus
	Queries  app.QueryBus

	db         *sql.DB
	httpServer *http.Server
}

// NewLogger writes JSON to stdout, or console output in development.
func NewLogger(cfg config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func NewNPHIESService(cfg config.Config, logger zerolog.Logger) (*Service, error) {
	directory, err := loadPayers(cfg.PayersFile)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("payers", directory.Len()).Msg("payer directory loaded")

	repo, db, err := openLedger(cfg, logger)
	if err != nil {
		return nil, err
	}

	// init composer
	composer := newComposer(cfg, directory)

	// init transport
	client, err := nphies.NewClient(nphies.Options{
		Endpoint:    cfg.NPHIESEndpoint,
		CertFile:    cfg.NPHIESCertFile,
		KeyFile:     cfg.NPHIESKeyFile,
		CAFile:      cfg.NPHIESCAFile,
		BearerToken: cfg.NPHIESBearerToken,
		Timeout:     cfg.NPHIESTimeout,
		RetryMax:    &cfg.NPHIESRetryMax,
	}, logger.With().Str("component", "nphies-client").Logger())
	if err != nil {
		closeDB(db)
		return nil, pkgerrors.Wrap(err, "nphies client")
	}

	notifier := notify.NewTeamsNotifier(notify.TeamsOptions{
		WebhookURL: cfg.TeamsWebhookURL,
		Secret:     cfg.TeamsWebhookSecret,
	}, logger.With().Str("component", "teams").Logger())
	if !notifier.Enabled() {
		logger.Info().Msg("TEAMS_WEBHOOK_URL not set, rejection notifications disabled")
	}

	// init commands
	submitter := commands.NewSubmitter(client, repo, notifier, logger.With().Str("component", "submitter").Logger())
	cmdBus := app.NewCommandBus(
		commands.NewCheckEligibilityHandler(composer, submitter),
		commands.NewSubmitClaimHandler(composer, submitter),
		commands.NewSendCommunicationHandler(composer, submitter),
	)

	// init queries
	queryBus := app.NewQueryBus(
		queries.NewGetSubmissionQueryHandler(repo),
		queries.NewRejectionReportQueryHandler(repo, directory),
	)

	// init http handler
	httpLogger := logger.With().Str("component", "http").Logger()
	nphiesHTTPServer := nphiesHTTP.NewServer(cmdBus, queryBus, cfg.TeamsWebhookSecret, httpLogger)

	httpServer, err := runtime.NewHTTPServer(cfg, nphiesHTTPServer, httpLogger)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	return &Service{
		Config:     cfg,
		Logger:     logger,
		Composer:   composer,
		Commands:   cmdBus,
		Queries:    queryBus,
		db:         db,
		httpServer: httpServer,
	}, nil
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Service) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info().Str("addr", s.httpServer.Addr).Msg("listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return pkgerrors.Wrap(err, "listen")
		}
		return nil
	case <-ctx.Done():
	}

	s.Logger.Info().Msg("shutting down")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(timeoutCtx); err != nil {
		return err
	}

	s.Logger.Info().Msg("server stopped")
	return nil
}

func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewComposer builds a composer from configuration alone, for offline use.
func NewComposer(cfg config.Config) (*fhir.Composer, error) {
	directory, err := loadPayers(cfg.PayersFile)
	if err != nil {
		return nil, err
	}
	return newComposer(cfg, directory), nil
}

func newComposer(cfg config.Config, directory *payers.Directory) *fhir.Composer {
	return fhir.NewComposer(fhir.Options{
		ProviderLicense: cfg.ProviderLicense,
		ProviderBaseURL: cfg.ProviderBaseURL,
		SenderEndpoint:  cfg.SenderEndpoint,
	}, directory)
}

func loadPayers(path string) (*payers.Directory, error) {
	if path == "" {
		return payers.Default()
	}
	d, err := payers.Load(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "load payers from %s", path)
	}
	return d, nil
}

func openLedger(cfg config.Config, logger zerolog.Logger) (ledger.Repository, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, submissions are kept in memory")
		return ledger.NewMemoryRepository(), nil, nil
	}

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "open database")
	}
	if err := postgres.MigrateUp(db); err != nil {
		closeDB(db)
		return nil, nil, pkgerrors.Wrap(err, "migrate database")
	}
	logger.Info().Msg("connected to database")
	return postgres.NewRepository(db), db, nil
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}
