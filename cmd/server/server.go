package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/thereayou/sneakyspeak/internal/chat"
	"github.com/thereayou/sneakyspeak/internal/config"
	"github.com/thereayou/sneakyspeak/internal/database"
	"github.com/thereayou/sneakyspeak/internal/handlers"
	"github.com/thereayou/sneakyspeak/internal/mail"
	"github.com/thereayou/sneakyspeak/internal/payment"
	"github.com/thereayou/sneakyspeak/internal/upload"
	"github.com/thereayou/sneakyspeak/internal/verification"
	ws "github.com/thereayou/sneakyspeak/internal/websocket"
	"github.com/thereayou/sneakyspeak/pkg/auth"
)

type Server struct {
	Router *gin.Engine
	Config *config.Config
	DB     *database.Database
	Redis  *redis.Client
	Hub    *ws.Hub
}

func NewServer() *Server {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println(".env not found, using environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	dbConn := &database.Database{}
	if err := dbConn.Connect(cfg.DatabaseURL); err != nil {
		log.Fatalf("Postgres connect failed: %v", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Redis connect failed: %v", err)
	}

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	mailer := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)
	challenges := verification.NewStore()

	uploader, err := upload.NewS3Uploader(context.Background(), upload.S3Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		Bucket:        cfg.S3Bucket,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})
	if err != nil {
		log.Fatalf("S3 setup failed: %v", err)
	}

	verifier := payment.NewPaystackClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey)
	settlement := payment.NewService(dbConn, verifier, cfg.PriceTable)

	hub := ws.NewHub()
	go hub.Run()

	chatSvc := chat.NewService(dbConn, hub, chat.Costs{
		AnonText: cfg.AnonTextCost,
		AnonMeme: cfg.AnonMemeCost,
	})

	authH := handlers.NewAuthHandler(dbConn, jwtMgr, rdb, challenges, mailer, cfg)
	paymentH := handlers.NewPaymentHandler(settlement)
	uploadH := handlers.NewUploadHandler(uploader)
	wsH := handlers.NewWebSocketHandler(hub, dbConn, chatSvc)

	router := gin.Default()
	APIEndpoints(router, authH, paymentH, uploadH, wsH, jwtMgr, rdb)

	return &Server{
		Router: router,
		Config: cfg,
		DB:     dbConn,
		Redis:  rdb,
		Hub:    hub,
	}
}

// Run serves until SIGINT/SIGTERM, then drains websocket clients and
// in-flight requests before returning.
func (s *Server) Run() {
	srv := &http.Server{Addr: ":" + s.Config.Port, Handler: s.Router}

	go func() {
		log.Printf("Server starting on port %s", s.Config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server run error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Printf("shutting down, disconnecting %d online users", len(s.Hub.OnlineUsers()))
	s.Hub.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
