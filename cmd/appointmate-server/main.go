package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"

	"appointmate/backend/internal/cache"
	"appointmate/backend/internal/config"
	"appointmate/backend/internal/events"
	"appointmate/backend/internal/notify"
	"appointmate/backend/internal/professional"
	"appointmate/backend/internal/reminders"
	"appointmate/backend/internal/service/appointments"
	"appointmate/backend/internal/store"
	"appointmate/backend/internal/store/memory"
	"appointmate/backend/internal/store/postgres"
	"appointmate/backend/internal/telemetry"
	"appointmate/backend/internal/transport/admin"
	grpcTransport "appointmate/backend/internal/transport/grpc"
)

const serviceName = "appointmate-server"

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", slog.Any("err", err))
		stop()
		os.Exit(1)
	}
}

// run owns every resource it opens and releases them before returning, so main only exits
// once the deferred cleanups have run.
func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	log.Info("starting",
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("log_level", cfg.LogLevel),
		slog.String("database_driver", cfg.DatabaseDriver),
		slog.String("working_hours", cfg.WorkingHours.String()),
		slog.Int("slot_minutes", cfg.SlotMinutes),
		slog.String("tz", cfg.Location.String()),
	)

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		SampleRatio:  cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("telemetry shutdown failed", slog.Any("err", err))
		}
	}()

	repo, closeRepo, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeRepo()

	policy, err := cfg.Policy()
	if err != nil {
		return fmt.Errorf("calendar policy: %w", err)
	}

	svcOpts := []appointments.Option{
		appointments.WithLogger(log),
		appointments.WithOverlapSuppression(cfg.SuppressOverlaps),
	}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		svcOpts = append(svcOpts, appointments.WithSlotCache(cache.NewSlotCache(rdb, cfg.Redis.SlotTTL, "")))
		log.Info("slot cache enabled", slog.String("redis_addr", cfg.Redis.Addr), slog.Duration("ttl", cfg.Redis.SlotTTL))
	}
	svc := appointments.NewService(repo, policy, svcOpts...)

	var mailer notify.Mailer
	smtpCfg := notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}
	if m, err := notify.NewSMTPMailer(smtpCfg); err == nil {
		mailer = m
	} else {
		log.Warn("email notifications disabled", slog.Any("err", err))
	}
	notifier := notify.NewNotifier(mailer, cfg.SMTP.From, cfg.Professional.Email, policy.Location(), log)

	loadInfo := func() (professional.Info, error) {
		return professional.Load(cfg.Professional.InfoPath)
	}

	serverOpts := []grpcTransport.ServerOption{
		grpcTransport.WithConfirmer(notifier),
		grpcTransport.WithProfessionalInfo(loadInfo),
	}
	if cfg.Kafka.Brokers != "" {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return fmt.Errorf("kafka publisher: %w", err)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Warn("kafka publisher close failed", slog.Any("err", err))
			}
		}()
		serverOpts = append(serverOpts, grpcTransport.WithEvents(publisher))
		log.Info("booking events enabled", slog.String("topic", cfg.Kafka.Topic))
	}

	if cfg.Reminders.Enabled {
		job := reminders.NewJob(svc, notifier, 0, log)
		c, err := job.Start(cfg.Reminders.Schedule, policy.Location())
		if err != nil {
			return fmt.Errorf("reminder job: %w", err)
		}
		defer func() { <-c.Stop().Done() }()
	}

	grpcServer := grpc.NewServer(
		grpc.ForceServerCodec(grpcTransport.Codec()),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(defaultRequestTimeoutInterceptor(cfg.GRPCRequestTimeout)),
	)
	grpcTransport.RegisterAppointmentsServiceServer(grpcServer, grpcTransport.NewAppointmentsServer(svc, log, serverOpts...))

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		return fmt.Errorf("grpc listen on %s: %w", cfg.GRPCAddr(), err)
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr()))

	var httpServer *http.Server
	if cfg.Admin.HTTPAddr != "" {
		router := admin.NewRouter(svc, repo, admin.Config{JWTSecret: cfg.Admin.JWTSecret, Info: loadInfo}, log)
		httpServer = &http.Server{
			Addr:              cfg.Admin.HTTPAddr,
			Handler:           otelhttp.NewHandler(router, "admin"),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
		log.Info("admin http server started", slog.String("http_addr", cfg.Admin.HTTPAddr), slog.Bool("auth", cfg.Admin.JWTSecret != ""))
	}

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr = fmt.Errorf("server stopped: %w", err)
		}
	}

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("admin http shutdown failed", slog.Any("err", err))
		}
		cancel()
	}
	shutdown(log, grpcServer, cfg.ShutdownTimeout)
	return serveErr
}

// openStore connects the configured availability store. Failures are logged here.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.AppointmentRepository, func(), error) {
	if cfg.DatabaseDriver == "memory" {
		log.Warn("using in-memory store; appointments are lost on restart")
		return memory.New(), func() {}, nil
	}

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		SlowQuery:       cfg.DBSlowQuery,
	}, log)
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		return nil, nil, err
	}

	closeFn := func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}
	return postgres.NewAppointmentRepo(db), closeFn, nil
}

func defaultRequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

func shutdown(log *slog.Logger, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
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
