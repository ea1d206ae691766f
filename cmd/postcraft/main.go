package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tharanithar-r/postcraft/internal/auth"
	"github.com/tharanithar-r/postcraft/internal/cache"
	rediscache "github.com/tharanithar-r/postcraft/internal/cache/redis"
	"github.com/tharanithar-r/postcraft/internal/config"
	"github.com/tharanithar-r/postcraft/internal/connect"
	"github.com/tharanithar-r/postcraft/internal/email"
	accountsctrl "github.com/tharanithar-r/postcraft/internal/http/controllers/accounts"
	connectctrl "github.com/tharanithar-r/postcraft/internal/http/controllers/connect"
	healthctrl "github.com/tharanithar-r/postcraft/internal/http/controllers/health"
	tokensctrl "github.com/tharanithar-r/postcraft/internal/http/controllers/tokens"
	"github.com/tharanithar-r/postcraft/internal/http/router"
	"github.com/tharanithar-r/postcraft/internal/http/server"
	"github.com/tharanithar-r/postcraft/internal/metrics"
	"github.com/tharanithar-r/postcraft/internal/oauth/discord"
	"github.com/tharanithar-r/postcraft/internal/oauth/facebook"
	"github.com/tharanithar-r/postcraft/internal/oauth/telegram"
	"github.com/tharanithar-r/postcraft/internal/oauth/x"
	"github.com/tharanithar-r/postcraft/internal/observability/logger"
	"github.com/tharanithar-r/postcraft/internal/rate"
	"github.com/tharanithar-r/postcraft/internal/security/secretbox"
	"github.com/tharanithar-r/postcraft/internal/store"
	"github.com/tharanithar-r/postcraft/internal/store/adapters/pg"
	"github.com/tharanithar-r/postcraft/internal/tokens"
	migrations "github.com/tharanithar-r/postcraft/migrations/postgres"

	// Los backends de cache se registran vía init().
	_ "github.com/tharanithar-r/postcraft/internal/cache/memory"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:     "postcraft",
		Short:   "PostCraft: conexión y ciclo de vida de tokens sociales",
		Version: version,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Ruta al YAML de configuración (opcional, env tiene prioridad)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Arranca el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones SQL pendientes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runMigrate(cmd.Context(), cfg)
		},
	}

	root.AddCommand(serveCmd, migrateCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	// .env es opcional; en producción las vars llegan del entorno.
	_ = godotenv.Load()
	return config.Load(path)
}

func runServe(cfg *config.Config) error {
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "postcraft",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ───── Storage ─────
	repo, closeRepo, err := store.Open(ctx, store.Config{
		Driver:       cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
		MinIdleConns: cfg.Storage.MinIdleConns,
	})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer closeRepo()

	if cfg.Flags.Migrate {
		if pgRepo, ok := repo.(*pg.Repo); ok {
			applied, err := store.Migrate(ctx, pgRepo.Pool(), migrations.FS, migrations.Dir)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info("migraciones aplicadas", logger.Int("count", len(applied)))
		}
	}

	// ───── Cache (estado OAuth) ─────
	cacheCfg := cache.Config{
		Kind:       cfg.Cache.Kind,
		DefaultTTL: config.Duration(cfg.Cache.Memory.DefaultTTL),
	}
	cacheCfg.Redis.Addr = cfg.Cache.Redis.Addr
	cacheCfg.Redis.DB = cfg.Cache.Redis.DB
	cacheCfg.Redis.Prefix = cfg.Cache.Redis.Prefix
	cacheClient, err := cache.Open(cacheCfg)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cacheClient.Close()

	// ───── Cifrado de tokens en reposo ─────
	box, err := secretbox.New(cfg.Security.SecretBoxMasterKey)
	if err != nil {
		return fmt.Errorf("secretbox: %w", err)
	}

	// ───── Registro de proveedores y motor de refresco ─────
	registry, err := tokens.NewRegistry(tokens.RegistryConfig{
		X:               tokens.Credentials{ClientID: cfg.Providers.X.ClientID, ClientSecret: cfg.Providers.X.ClientSecret},
		Discord:         tokens.Credentials{ClientID: cfg.Providers.Discord.ClientID, ClientSecret: cfg.Providers.Discord.ClientSecret},
		Facebook:        tokens.Credentials{ClientID: cfg.Providers.Facebook.AppID, ClientSecret: cfg.Providers.Facebook.AppSecret},
		TelegramEnabled: cfg.Providers.Telegram.Enabled,
	})
	if err != nil {
		return err
	}
	var engineOpts []tokens.EngineOption
	if d := config.Duration(cfg.Providers.Timeout); d > 0 {
		engineOpts = append(engineOpts, tokens.WithHTTPClient(&http.Client{Timeout: d}))
	}
	engine := tokens.NewEngine(registry, engineOpts...)

	if err := metrics.RegisterRefresh(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	orchOpts := []tokens.OrchestratorOption{
		tokens.WithRecorder(metrics.RefreshRecorder{}),
	}
	if cfg.SMTP.Host != "" {
		sender := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
		sender.TLSMode = cfg.SMTP.TLS
		sender.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
		orchOpts = append(orchOpts, tokens.WithNotifier(email.NewReconnectNotifier(sender)))
	} else {
		log.Info("SMTP sin configurar, avisos de reconexión deshabilitados")
	}
	orchestrator := tokens.NewOrchestrator(registry, repo, box, engine, orchOpts...)

	// ───── Clientes OAuth para el flujo de conexión ─────
	deps := connect.Deps{Repo: repo, Box: box, Cache: cacheClient}
	if cfg.Providers.X.ClientID != "" {
		deps.X = x.New(cfg.Providers.X.ClientID, cfg.Providers.X.ClientSecret, cfg.Providers.X.RedirectURL)
	}
	if cfg.Providers.Discord.ClientID != "" {
		deps.Discord = discord.New(cfg.Providers.Discord.ClientID, cfg.Providers.Discord.ClientSecret, cfg.Providers.Discord.RedirectURL, cfg.Providers.Discord.BotToken)
	}
	if cfg.Providers.Facebook.AppID != "" {
		deps.Facebook = facebook.New(cfg.Providers.Facebook.AppID, cfg.Providers.Facebook.AppSecret, cfg.Providers.Facebook.RedirectURL)
	}
	if cfg.Providers.Telegram.Enabled {
		deps.Telegram = telegram.New()
	}
	svc := connect.NewService(deps)

	// ───── Rate limit de refrescos ─────
	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		window := config.Duration(cfg.Rate.Window)
		if rc, ok := cacheClient.(*rediscache.Cache); ok {
			limiter = rate.NewRedisLimiter(rc.Client(), "rl:", cfg.Rate.MaxRequests, window)
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.MaxRequests, window)
		}
	}

	// ───── HTTP ─────
	checks := []healthctrl.Check{}
	if pgRepo, ok := repo.(*pg.Repo); ok {
		pool := pgRepo.Pool()
		checks = append(checks, healthctrl.Check{
			Name: "postgres",
			Fn:   func(ctx context.Context) error { return pool.Ping(ctx) },
		})
	}

	handler := router.New(router.Deps{
		Verifier:       auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer),
		Refresh:        tokensctrl.NewRefreshController(orchestrator),
		Connect:        connectctrl.NewController(svc),
		Telegram:       connectctrl.NewTelegramController(svc),
		Accounts:       accountsctrl.NewController(svc),
		Health:         healthctrl.NewController(checks...),
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RefreshLimiter: limiter,
	})

	srv := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout:    config.Duration(cfg.Server.WriteTimeout),
		IdleTimeout:     config.Duration(cfg.Server.IdleTimeout),
		ShutdownTimeout: config.Duration(cfg.Server.ShutdownTimeout),
	}, handler)

	log.Info("postcraft listo",
		logger.String("addr", cfg.Server.Addr),
		logger.Int("providers", len(registry.Supported())),
	)
	return srv.Run(ctx)
}

func runMigrate(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pgRepo, err := pg.Connect(ctx, pg.Config{DSN: cfg.Storage.DSN})
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pgRepo.Close()

	applied, err := store.Migrate(ctx, pgRepo.Pool(), migrations.FS, migrations.Dir)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Println("Sin migraciones pendientes.")
		return nil
	}
	for _, v := range applied {
		fmt.Printf("aplicada %04d\n", v)
	}
	return nil
}
