package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"gobarber/client/internal/api"
	"gobarber/client/internal/config"
	"gobarber/client/internal/observability/metrics"
	"gobarber/client/internal/session"
	"gobarber/client/internal/store"
	"gobarber/client/internal/store/memory"
	"gobarber/client/internal/store/postgres"
	redisstore "gobarber/client/internal/store/redis"
	"gobarber/client/internal/store/sqlite"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app holds everything a command needs. It is built once per invocation.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
	now     func() time.Time
	kv      store.KeyValue
	client  *api.Client
	session *session.Store

	metrics        *metrics.ClientMetrics
	metricsHandler http.Handler
}

func (a *app) Close() {
	if a.kv == nil {
		return
	}
	if err := a.kv.Close(); err != nil {
		a.log.Warn("session storage close failed", slog.Any("err", err))
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := pflag.NewFlagSet("gobarber", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(stderr)
	config.RegisterFlags(global)
	global.Usage = func() { printUsage(stderr, global) }

	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	rest := global.Args()
	if len(rest) == 0 {
		printUsage(stderr, global)
		return exitUsage
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "comando desconhecido: %s\n\n", rest[0])
		printUsage(stderr, global)
		return exitUsage
	}

	cfg, err := config.Load(global)
	if err != nil {
		fmt.Fprintf(stderr, "configuração inválida: %v\n", err)
		return exitError
	}
	log := newLogger(stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	a, err := newApp(ctx, cfg, log, stdout, stderr)
	if err != nil {
		log.Error("startup failed", slog.Any("err", err))
		fmt.Fprintln(stderr, "Não foi possível iniciar o cliente GoBarber")
		return exitError
	}
	defer a.Close()

	return a.dispatch(ctx, cmd, rest[1:])
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger, stdout, stderr io.Writer) (*app, error) {
	handler, m := setupClientMetrics()

	client, err := api.New(api.Options{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.APITimeout,
		RateLimit: cfg.APIRateLimit,
		Burst:     cfg.APIBurst,
		Metrics:   m,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	kv, err := openBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	sess, err := session.Open(ctx, kv, client, client, session.Options{
		Namespace: cfg.SessionNamespace,
		Logger:    log,
	})
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	return &app{
		cfg:            cfg,
		log:            log,
		stdout:         stdout,
		stderr:         stderr,
		now:            time.Now,
		kv:             kv,
		client:         client,
		session:        sess,
		metrics:        m,
		metricsHandler: handler,
	}, nil
}

func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (store.KeyValue, error) {
	log.Debug("opening session storage", slog.String("backend", cfg.SessionBackend))

	switch cfg.SessionBackend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendRedis:
		return redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case config.BackendPostgres:
		log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
		db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		})
		if err != nil {
			args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
			log.Error("database connection failed", args...)
			return nil, err
		}
		if err := postgres.CheckSchema(ctx, db); err != nil {
			_ = postgres.Close(db)
			return nil, err
		}
		return postgres.NewStateRepo(db, cfg.SessionNamespace), nil
	default:
		return sqlite.Open(ctx, cfg.SQLitePath)
	}
}

func setupClientMetrics() (http.Handler, *metrics.ClientMetrics) {
	reg := prometheus.NewRegistry()
	m := metrics.NewClientMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With(slog.String("service", "gobarber"))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}

func printUsage(w io.Writer, global *pflag.FlagSet) {
	fmt.Fprintln(w, "uso: gobarber [opções] <comando> [opções do comando]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "comandos:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "opções:")
	fmt.Fprint(w, global.FlagUsages())
}
