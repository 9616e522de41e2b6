package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"roomloop/internal/auth"
	"roomloop/internal/config"
	"roomloop/internal/db"
	grpcserver "roomloop/internal/grpc"
	"roomloop/internal/handlers"
	"roomloop/internal/middleware"
	"roomloop/internal/observability"
	"roomloop/internal/rabbitmq"
	"roomloop/internal/repositories"
	"roomloop/internal/services"
	"roomloop/internal/telemetry"
	"roomloop/internal/ws"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	publisher := rabbitmq.NewPublisher(rabbitmq.Options{URL: cfg.AMQPURL, Exchange: cfg.AMQPExchange, AppID: cfg.ServiceName})
	observability.SetPublisher(publisher)
	log.Printf("event publisher %s", rabbitmq.Describe(publisher))
	auditEmitter := telemetry.NewAuditEmitter(publisher, telemetry.AuditRoutingKey, cfg.ServiceName, cfg.Environment)

	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, 0)
	if cfg.JWTSecret == "" {
		log.Printf("JWT_SECRET is empty, every authenticated request will be rejected")
	}

	roomRepo := repositories.NewRoomRepo(database)
	participantRepo := repositories.NewParticipantRepo(database)
	invitationRepo := repositories.NewInvitationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	reactionRepo := repositories.NewReactionRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)

	hub := ws.NewHub(0)
	go hub.Run(ctx)

	var (
		forward     ws.Forwarder
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = ws.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		relay := ws.NewRelay(redisClient, hub)
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Printf("relay stopped: %v", err)
			}
		}()
		forward = relay
	} else {
		log.Printf("REDIS_URL is empty, realtime fan-out stays on this instance")
	}
	broadcaster := ws.NewBroadcaster(hub, forward)

	notifications := services.NewNotificationService(notificationRepo, roomRepo, invitationRepo, messageRepo, broadcaster)
	rooms := services.NewRoomService(roomRepo, participantRepo, notifications, broadcaster, time.Now)
	membership := services.NewMembershipService(rooms, participantRepo, invitationRepo, broadcaster)
	invitations := services.NewInvitationService(rooms, participantRepo, invitationRepo, notifications)
	messages := services.NewMessageService(membership, messageRepo, broadcaster)
	reactions := services.NewReactionService(membership, reactionRepo, broadcaster)

	go services.NewSweeper(rooms, cfg.SweepInterval).Run(ctx)

	limiter := middleware.NewUserRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitBurst, 10*time.Minute)
	go limiter.Run(ctx)

	api := handlers.API{
		Rooms:         handlers.NewRoomHandler(rooms, membership, auditEmitter),
		Invitations:   handlers.NewInvitationHandler(invitations, auditEmitter),
		Messages:      handlers.NewMessageHandler(messages),
		Reactions:     handlers.NewReactionHandler(reactions),
		Notifications: handlers.NewNotificationHandler(notifications),
	}
	wsHandler := ws.NewHandler(hub, tokens, membership)

	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.CORSOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", wsHandler.Handle)
	handlers.RegisterDebugRoutes(router, auditEmitter, tokens, cfg.DebugRoutes)

	authed := router.Group("/", middleware.AuthMiddleware(tokens), middleware.Origin())
	api.Register(authed, middleware.RateLimit(limiter))

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("http: listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	grpcSrv := grpcserver.NewServer(cfg.ServiceName)
	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatalf("failed to listen for grpc: %v", err)
	}
	go func() {
		if err := grpcSrv.Serve(grpcLis); err != nil {
			log.Printf("grpc server stopped: %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"roomloop": func(ctx context.Context) error {
				log.Println("graceful shutdown initiated")
				grpcSrv.Drain()
				var errs []error
				errs = append(errs, httpServer.Shutdown(ctx))
				cancel()
				errs = append(errs, grpcSrv.Shutdown(ctx))
				if redisClient != nil {
					errs = append(errs, redisClient.Close())
				}
				errs = append(errs, publisher.Close(), shutdownTracing(ctx), database.Close())
				return errors.Join(errs...)
			},
		},
	)
	exitCode := <-wait
	log.Printf("roomloop exited with code: %d", exitCode)
	os.Exit(exitCode)
}
