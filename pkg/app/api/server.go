// Package api implements app.Runner for the wallet server process.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/pixielabs/pixie-wallet/pkg/app/http"
	"github.com/pixielabs/pixie-wallet/pkg/authflow"
	"github.com/pixielabs/pixie-wallet/pkg/config"
	"github.com/pixielabs/pixie-wallet/pkg/custody"
	"github.com/pixielabs/pixie-wallet/pkg/ethrpc"
	"github.com/pixielabs/pixie-wallet/pkg/identity"
	"github.com/pixielabs/pixie-wallet/pkg/pgutil"
	"github.com/pixielabs/pixie-wallet/pkg/session"
	"github.com/pixielabs/pixie-wallet/pkg/siteurl"
	"github.com/pixielabs/pixie-wallet/pkg/txflow"
	walletsvc "github.com/pixielabs/pixie-wallet/pkg/wallet/service"
	"github.com/pixielabs/pixie-wallet/pkg/walletapi"
	"github.com/pixielabs/pixie-wallet/pkg/walletstate"
	"github.com/pixielabs/pixie-wallet/pkg/walletstore"
)

const defaultRequestTimeout = 60

// Server holds cfg to init the wallet server.
type Server struct {
	cfg *config.Config
}

// NewServer initializes new wallet server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("wallet server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting wallet server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() { _ = db.Close() }()
	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	identityClient, err := identity.New(&identity.Config{
		BaseURL:        cfg.Identity.BaseURL,
		APIKey:         cfg.Identity.APIKey,
		RequestTimeout: cfg.Identity.RequestTimeout,
	}, identity.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create identity client: %w", err)
	}

	custodyClient, err := custody.New(&custody.Config{
		BaseURL:        cfg.Custody.BaseURL,
		APIKeyID:       cfg.Custody.APIKeyID,
		APIKeySecret:   cfg.Custody.APIKeySecret,
		NetworkID:      cfg.Custody.NetworkID,
		RequestTimeout: cfg.Custody.RequestTimeout,
	}, custody.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create custody client: %w", err)
	}

	chainClient, err := ethrpc.Dial(ctx, cfg.Chain.RPCURL, logger)
	if err != nil {
		return fmt.Errorf("connect chain rpc: %w", err)
	}
	defer chainClient.Close()
	logger.Info("Connected to chain RPC", zap.String("rpc_url", cfg.Chain.RPCURL))

	store := walletstore.NewStore(db)
	walletService := walletsvc.NewLog(
		walletsvc.NewService(store, custodyClient, chainClient, logger),
		logger,
	)

	listener := walletstore.NewListener(db, logger)
	if err := listener.Start(ctx); err != nil {
		return fmt.Errorf("start wallet listener: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = listener.Close(closeCtx)
	}()

	sender := txflow.NewSender(custodyClient, chainClient, txflow.Config{
		PollInterval: cfg.Tx.PollInterval,
		PollTimeout:  cfg.Tx.PollTimeout,
	}, logger)

	states := walletstate.NewManager(walletService, listener, walletstate.Config{
		SendRefreshDelay:   cfg.Tx.SendRefreshDelay,
		FaucetRefreshDelay: cfg.Tx.FaucetRefreshDelay,
	}, logger)
	defer states.Close()

	// A cleared session tears down the user's wallet state store.
	sessions := session.NewRegistry(identityClient, logger,
		session.WithSignedOutHook(states.Release))
	defer sessions.Close()

	resolver := siteurl.NewResolver(cfg.Site, logger)
	authHandler := authflow.NewHandler(identityClient, resolver, cfg.Handoff, logger)
	apiHandler := walletapi.NewHandler(walletService, sender, states, logger)

	router := s.setupRouter(authHandler, apiHandler, sessions)

	return apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)
}

func (s *Server) setupRouter(auth *authflow.Handler, api *walletapi.Handler, sessions *session.Registry) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Second * defaultRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.Guard)
		r.Use(observeSessions(sessions))

		r.Get("/auth/callback", auth.Callback)
		r.Get("/pwa-opener", auth.PwaOpener)
		r.Get("/pwa-auth", auth.PwaAuth)
		r.Get("/auth-mobile", auth.AuthMobile)

		r.Get("/login", auth.LoginPage)
		r.Post("/login/otp", apphttp.HandleError(auth.RequestOTP))
		r.Post("/login/verify", apphttp.HandleError(auth.VerifyOTP))
		r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
			// Clearing the tracked session fires the signed-out hook.
			// Remote revocation stays with the auth handler.
			if sess := authflow.SessionFrom(r.Context()); sess != nil {
				sessions.Clear(sess.User.ID)
			}
			auth.Logout(w, r)
		})

		r.Get("/", func(http.ResponseWriter, *http.Request) {})
		r.Get("/dashboard", auth.Dashboard)

		r.Mount("/api/wallet", api.Routes())
	})

	return r
}

// observeSessions publishes each request's resolved session into the
// registry so wallet state reacts when the identity changes or clears.
func observeSessions(sessions *session.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessions.Observe(authflow.SessionFrom(r.Context()))
			next.ServeHTTP(w, r)
		})
	}
}
