package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/ssogate/internal/cache"
	cachemem "github.com/dropDatabas3/ssogate/internal/cache/memory"
	cacheredis "github.com/dropDatabas3/ssogate/internal/cache/redis"
	"github.com/dropDatabas3/ssogate/internal/config"
	"github.com/dropDatabas3/ssogate/internal/credentials"
	"github.com/dropDatabas3/ssogate/internal/email"
	httpserver "github.com/dropDatabas3/ssogate/internal/http"
	healthctrl "github.com/dropDatabas3/ssogate/internal/http/controllers/health"
	ssoctrl "github.com/dropDatabas3/ssogate/internal/http/controllers/sso"
	"github.com/dropDatabas3/ssogate/internal/http/router"
	"github.com/dropDatabas3/ssogate/internal/oauth"
	"github.com/dropDatabas3/ssogate/internal/oauth/github"
	"github.com/dropDatabas3/ssogate/internal/oauth/google"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
	"github.com/dropDatabas3/ssogate/internal/rate"
	"github.com/dropDatabas3/ssogate/internal/security/secretbox"
	"github.com/dropDatabas3/ssogate/internal/sso"
	"github.com/dropDatabas3/ssogate/internal/store/core"
	storemem "github.com/dropDatabas3/ssogate/internal/store/memory"
	storepg "github.com/dropDatabas3/ssogate/internal/store/pg"
)

var version = "dev"

func main() {
	// Best-effort; system environment still applies without a .env file.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/config.example.yaml"
	}

	root := &cobra.Command{
		Use:          "ssogate",
		Short:        "SSO login bridge for third-party identity providers",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", cfgPath, "path to YAML config (env CONFIG_PATH)")

	root.AddCommand(serveCmd(&cfgPath))
	root.AddCommand(migrateCmd(&cfgPath))
	root.AddCommand(credentialCmd(&cfgPath))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				ServiceName: "ssogate",
				Version:     version,
			})
			defer func() { _ = logger.Sync() }()
			log := logger.Named("main")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Store.
			var (
				repo    core.Repository
				pgStore *storepg.Store
			)
			switch cfg.Storage.Driver {
			case "pg":
				pgStore, err = storepg.New(ctx, cfg.Storage.DSN, storepg.Tuning{
					MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
					MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
					ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
				})
				if err != nil {
					return fmt.Errorf("store open: %w", err)
				}
				defer pgStore.Close()
				repo = pgStore

				if cfg.Flags.Migrate {
					if err := pgStore.RunMigrations(ctx, "migrations/postgres"); err != nil {
						return fmt.Errorf("migrations: %w", err)
					}
				}
			default:
				repo = storemem.New()
				log.Warn("using in-memory store, data is not persisted")
			}

			// Cache, and an optional rate limiter sharing the connection.
			var (
				c       cache.Cache
				limiter rate.Limiter
			)
			switch cfg.Cache.Kind {
			case "redis":
				rc := cacheredis.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
				if err := rc.Ping(ctx); err != nil {
					return fmt.Errorf("redis: %w", err)
				}
				defer func() { _ = rc.Close() }()
				c = rc
				if cfg.Server.RateLimit.Enabled {
					limiter = rate.NewRedisLimiter(rc.Client(), cfg.Cache.Redis.Prefix+"rl:", cfg.Server.RateLimit.Max, cfg.RateLimitWindow())
				}
			default:
				c = cachemem.New(cfg.MemoryCacheTTL())
				if cfg.Server.RateLimit.Enabled {
					limiter = rate.NewMemoryLimiter(cfg.Server.RateLimit.Max, cfg.RateLimitWindow())
				}
			}

			// Provider adapters.
			registry := oauth.NewRegistry()
			static := map[string]oauth.ClientCredentials{}
			if p := cfg.Providers.Google; p.Enabled {
				registry.Register(google.New(adapterConfig("google", p)))
				static["google"] = oauth.ClientCredentials{ClientID: p.ClientID, ClientSecret: p.ClientSecret}
			}
			if p := cfg.Providers.GitHub; p.Enabled {
				registry.Register(github.New(adapterConfig("github", p)))
				static["github"] = oauth.ClientCredentials{ClientID: p.ClientID, ClientSecret: p.ClientSecret}
			}
			if len(registry.Names()) == 0 {
				return fmt.Errorf("no providers enabled")
			}
			log.Info("providers registered", logger.Any("providers", registry.Names()))

			creds := credentials.New(credentials.Deps{
				Repo:     repo,
				Static:   static,
				CacheTTL: cfg.CredentialsCacheTTL(),
			})

			var signer *sso.Signer
			if cfg.State.SigningSecret != "" {
				signer = sso.NewSigner([]byte(cfg.State.SigningSecret), cfg.StateTTL())
			}

			var welcomer *email.Welcomer
			if cfg.Email.WelcomeEnabled && cfg.SMTP.Host != "" {
				sender := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
				sender.TLSMode = cfg.SMTP.TLS
				sender.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
				welcomer = email.NewWelcomer(sender, "ssogate")
			}

			reconciler := sso.NewReconciler(repo, welcomer)

			controllers := ssoctrl.NewControllers(ssoctrl.Deps{
				Start: sso.NewStartService(sso.StartDeps{
					Registry:    registry,
					Credentials: creds,
					Signer:      signer,
				}),
				Callback: sso.NewCallbackService(sso.CallbackDeps{
					Registry:     registry,
					Credentials:  creds,
					Reconciler:   reconciler,
					Signer:       signer,
					Cache:        c,
					LoginCodeTTL: cfg.LoginCodeTTL(),
				}),
				Exchange: sso.NewExchangeService(c),
				Registry: registry,
				Signer:   signer,
			})

			handler, err := router.New(router.Deps{
				SSO:         controllers,
				Health:      healthctrl.NewController(repo),
				RateLimiter: limiter,
			})
			if err != nil {
				return fmt.Errorf("router: %w", err)
			}

			srv := httpserver.NewServer(cfg.Server.Addr, handler)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(gctx) })

			if err := g.Wait(); err != nil {
				log.Error("server exited with error", logger.Err(err))
				return err
			}
			log.Info("bye")
			return nil
		},
	}
}

func migrateCmd(cfgPath *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Apply or roll back database migrations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = strings.ToLower(args[0])
			}

			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.Storage.Driver != "pg" {
				return fmt.Errorf("migrations require the pg storage driver")
			}

			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "ssogate"})
			defer func() { _ = logger.Sync() }()

			ctx := context.Background()
			st, err := storepg.New(ctx, cfg.Storage.DSN, storepg.Tuning{})
			if err != nil {
				return fmt.Errorf("store open: %w", err)
			}
			defer st.Close()

			switch action {
			case "up":
				return st.RunMigrations(ctx, dir)
			case "down":
				return st.RunMigrationsDown(ctx, dir)
			default:
				return fmt.Errorf("unknown action %q (want up or down)", action)
			}
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations/postgres", "migrations directory")
	return cmd
}

func credentialCmd(cfgPath *string) *cobra.Command {
	var clientID, clientSecret string
	cmd := &cobra.Command{
		Use:   "credential set <provider>",
		Short: "Encrypt and store client credentials for a provider",
		Long: "Encrypts the client secret with the SECRETBOX_MASTER_KEY and stores the\n" +
			"pair in the database. Stored credentials take precedence over the config\n" +
			"file on the next credential cache refresh.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "set" {
				return fmt.Errorf("unknown action %q (want set)", args[0])
			}
			provider := strings.ToLower(args[1])
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("--client-id and --client-secret are required")
			}

			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.Storage.Driver != "pg" {
				return fmt.Errorf("storing credentials requires the pg storage driver")
			}

			enc, err := secretbox.Encrypt(clientSecret)
			if err != nil {
				return fmt.Errorf("encrypt: %w", err)
			}

			ctx := context.Background()
			st, err := storepg.New(ctx, cfg.Storage.DSN, storepg.Tuning{})
			if err != nil {
				return fmt.Errorf("store open: %w", err)
			}
			defer st.Close()

			if err := st.UpsertProviderCredential(ctx, &core.ProviderCredential{
				Provider:        provider,
				ClientID:        clientID,
				ClientSecretEnc: enc,
			}); err != nil {
				return fmt.Errorf("store credential: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "credential stored for provider %s\n", provider)
			return nil
		},
	}
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth client ID")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth client secret (encrypted at rest)")
	return cmd
}

func adapterConfig(name string, p config.Provider) oauth.Config {
	return oauth.Config{
		Provider:           name,
		AuthorizeURL:       p.AuthorizeURL,
		TokenURL:           p.TokenURL,
		UserInfoURL:        p.UserInfoURL,
		RedirectURL:        p.RedirectURL,
		Scopes:             p.Scopes,
		DefaultPreferences: p.DefaultPreferences,
	}
}
