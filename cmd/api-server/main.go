package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"santua/internal/admin"
	"santua/internal/auth"
	"santua/internal/jobs"
	"santua/internal/matching"
	"santua/internal/notify"
	"santua/internal/payment"
	"santua/internal/ratelimit"
	"santua/internal/rpcserver"
	"santua/internal/stats"
	"santua/internal/sticker"
	synchub "santua/internal/sync"
	"santua/pkg/database"
	"santua/pkg/grpc/santuapb"
	"santua/pkg/logger"
	"santua/pkg/metrics"
	"santua/pkg/models"
	"santua/pkg/utils"
)

func main() {
	if err := utils.LoadEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	srvCfg := utils.LoadServerConfig()

	lg, err := logger.InitLogger(srvCfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	metrics.InitAPIMetrics()
	metrics.InitDomainMetrics()

	dbCfg := database.DefaultConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		lg.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		lg.Fatal("db migrate failed", zap.Error(err))
	}

	matchStore, stickerStore := buildStores(srvCfg.StoreBackend, db, lg)

	// Realtime feed and outbound notifications
	hub := synchub.NewHub(lg)
	notifyCfg := utils.LoadNotifyConfig()
	sinks := []notify.Sink{&notify.HubSink{Hub: hub}}
	if notifyCfg.SMSEnabled() {
		sender := notify.NewTwilioSender(notifyCfg.TwilioAccountSID, notifyCfg.TwilioAuthToken, notifyCfg.TwilioFrom)
		sinks = append(sinks, &notify.SMSSink{Sender: sender, Log: lg})
		lg.Info("sms notifications enabled")
	}
	var kafkaWriter *kafka.Writer
	if notifyCfg.KafkaEnabled() {
		kafkaWriter = notify.NewKafkaWriter(notifyCfg.KafkaBrokers, notifyCfg.KafkaTopic)
		sinks = append(sinks, &notify.KafkaSink{Writer: kafkaWriter})
		lg.Info("kafka notifications enabled",
			zap.Strings("brokers", notifyCfg.KafkaBrokers),
			zap.String("topic", notifyCfg.KafkaTopic))
	}
	dispatcher := notify.NewDispatcher(sinks,
		notify.WithLogger(lg),
		notify.WithRetry(notifyCfg.MaxRetries, notifyCfg.Backoff),
	)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()
	dispatcher.Start(rootCtx)

	svc := matching.NewService(matchStore,
		matching.WithLogger(lg),
		matching.WithMatchListener(func(ev matching.MatchEvent) {
			dispatcher.Publish(notify.FromMatch(ev))
		}),
	)
	reg := sticker.NewRegistry(stickerStore,
		sticker.WithLogger(lg),
		sticker.WithActivationListener(func(st models.Sticker) {
			dispatcher.Publish(notify.FromActivation(st))
		}),
	)

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	if authCfg.AdminEmail != "" && authCfg.AdminPassword != "" {
		ctx, cancel := context.WithTimeout(rootCtx, 5*time.Second)
		u, err := auth.EnsureAdmin(ctx, authRepo, authCfg.AdminUsername, authCfg.AdminEmail, authCfg.AdminPassword)
		cancel()
		if err != nil {
			lg.Fatal("seed admin failed", zap.Error(err))
		}
		lg.Info("admin account ready", zap.String("username", u.Username))
	}

	// Payments
	payCfg := utils.LoadPaymentConfig()
	mp := payment.NewClient(payment.Config{
		BaseURL:     payCfg.BaseURL,
		AccessToken: payCfg.AccessToken,
		Timeout:     payCfg.Timeout,
		Price:       payCfg.Price,
		Currency:    payCfg.Currency,
	}, lg)
	if payCfg.AccessToken == "" {
		lg.Warn("SANTUA_MP_ACCESS_TOKEN not set, payment verification will stay pending")
	}

	visitors := stats.NewTracker()
	rlCfg := utils.LoadRateLimitConfig()
	limiter := ratelimit.New(rlCfg.Every, rlCfg.Burst, lg)

	if srvCfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	_ = router.SetTrustedProxies(srvCfg.TrustedProxy)
	router.Use(metrics.Middleware(), visitors.Middleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": srvCfg.StoreBackend})
	})
	router.GET("/ready", func(c *gin.Context) {
		st := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": st.TCPClients,
				"ws_clients":  st.WSClients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": st.TCPClients,
			"ws_clients":  st.WSClients,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	stickerHandler := sticker.NewHandler(reg, srvCfg.PublicURL)
	stickerHandler.RegisterScanRoute(router)

	auth.NewHandler(authRepo, tokenSvc, lg).RegisterRoutes(router.Group("/auth"))

	api := router.Group("/api")
	matching.NewHandler(svc).RegisterRoutes(api, limiter.Middleware())
	stickerHandler.RegisterRoutes(api)
	payHandler := &payment.Handler{
		Verifier:      mp,
		Preferences:   mp,
		Activator:     reg,
		WebhookSecret: payCfg.WebhookSecret,
		PublicURL:     srvCfg.PublicURL,
		Log:           lg,
	}
	payHandler.RegisterRoutes(api)

	// Admin
	protected := router.Group("/api/admin")
	protected.Use(auth.AuthMiddleware(tokenSvc, authRepo), auth.RequireAdmin())
	matching.NewHandler(svc).RegisterAdminRoutes(protected)
	stickerHandler.RegisterAdminRoutes(protected)
	adminHandler := &admin.Handler{
		Matching: svc,
		Stickers: reg,
		Visitors: visitors,
		Hub:      hub,
		Log:      lg,
	}
	adminHandler.RegisterRoutes(protected)
	router.GET("/ws", auth.AuthMiddleware(tokenSvc, authRepo), auth.RequireAdmin(), synchub.WSHandler(hub))

	if srvCfg.StaticDir != "" {
		router.StaticFile("/", filepath.Join(srvCfg.StaticDir, "index.html"))
		router.NoRoute(gin.WrapH(http.FileServer(http.Dir(srvCfg.StaticDir))))
	}

	// gRPC
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(limiter.UnaryInterceptor(rpcserver.SubmitMethods...)))
	santuapb.RegisterMatchingServer(grpcSrv, rpcserver.NewServer(svc, reg, lg))

	tcpSrv := synchub.NewServer(srvCfg.SyncAddr, hub, lg)

	// Housekeeping
	scheduler := jobs.NewScheduler(lg)
	if err := scheduler.Add("prune-limiter", "@every 10m", jobs.PruneLimiter(limiter, time.Hour, lg)); err != nil {
		lg.Fatal("schedule prune-limiter", zap.Error(err))
	}
	if err := scheduler.Add("summary", "@every 1h", jobs.LogSummary(svc, reg, lg)); err != nil {
		lg.Fatal("schedule summary", zap.Error(err))
	}
	scheduler.Start()

	httpSrv := &http.Server{
		Addr:              srvCfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(rootCtx); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ln, err := net.Listen("tcp", srvCfg.GRPCAddr)
		if err != nil {
			errCh <- err
			return
		}
		lg.Info("gRPC server listening", zap.String("addr", srvCfg.GRPCAddr))
		if err := grpcSrv.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		lg.Info("HTTP API server listening",
			zap.String("addr", srvCfg.HTTPAddr),
			zap.String("public_url", srvCfg.PublicURL))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		lg.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		lg.Error("server error", zap.Error(err))
	}

	lg.Info("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http shutdown error", zap.Error(err))
	}
	grpcSrv.GracefulStop()
	scheduler.Stop(shutdownCtx)
	// deliver what is queued while the hub still has watchers
	dispatcher.Close()
	stop()
	hub.Close()

	wg.Wait()
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			lg.Warn("kafka writer close error", zap.Error(err))
		}
	}
	lg.Info("servers stopped")
}

// buildStores picks where entries and stickers live. Users always live in
// SQLite since accounts must outlast a restart whenever the database is a
// file.
func buildStores(backend string, db *sql.DB, lg *zap.Logger) (matching.Store, sticker.Store) {
	switch backend {
	case "sqlite":
		lg.Info("using sqlite stores")
		return matching.NewSQLStore(db), sticker.NewSQLStore(db)
	case "memory", "":
		lg.Info("using in-memory stores")
		return matching.NewMemoryStore(), sticker.NewMemoryStore()
	default:
		lg.Warn("unknown store backend, falling back to memory", zap.String("backend", backend))
		return matching.NewMemoryStore(), sticker.NewMemoryStore()
	}
}
