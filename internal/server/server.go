package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"sonna/internal/ai"
	"sonna/internal/config"
	"sonna/internal/handler"
	"sonna/internal/pkg/cache"
	"sonna/internal/pkg/gtts"
	"sonna/internal/pkg/mongodb"
	"sonna/internal/pkg/storage"
	"sonna/internal/pkg/storagefactory"
	"sonna/internal/pkg/tts"
	"sonna/internal/pkg/whisper"
	"sonna/internal/repository"
	"sonna/internal/server/middleware"
	"sonna/internal/service"
)

// Server HTTP server
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	mongo  *mongodb.Client
	redis  *cache.RedisCache
	ai     *ai.Client

	userSvc      *service.UserService
	convSvc      *service.ConversationService
	speechSvc    *service.SpeechService
	voiceSvc     *service.VoiceService
	transcriber  *whisper.Client
	voiceArchive storage.Storage
}

// New creates a server instance. The session store, cache and archive
// are optional: endpoints that need a missing dependency degrade to
// 503 instead of blocking startup. The language model is probed once
// here; an unreachable provider leaves the generator in fallback mode
// for the life of the process.
func New(cfg *config.Config) (*Server, error) {
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	ctx := context.Background()

	// MongoDB (optional)
	var mongoClient *mongodb.Client
	if cfg.Mongo.URI != "" {
		client, err := mongodb.New(&cfg.Mongo)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to MongoDB, continuing without it")
		} else {
			mongoClient = client
			log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

			if err := mongodb.EnsureIndexes(mongoClient.Database()); err != nil {
				log.Warn().Err(err).Msg("failed to ensure indexes")
			}
		}
	}

	// Redis (optional)
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without it")
		} else {
			redisCache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	// Language model. Availability is decided by the startup probe and
	// stays fixed; a disabled client still serves turns via the fixed
	// fallback reply.
	aiClient, err := ai.NewClient(ctx, &cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI client: %w", err)
	}
	log.Info().
		Str("provider", cfg.AI.Provider).
		Str("model", cfg.AI.Model).
		Bool("available", aiClient.Available()).
		Msg("initialized AI client")

	// Speech recognition
	transcriber := whisper.NewClient(whisper.Config{
		URL:      cfg.Whisper.URL,
		Model:    cfg.Whisper.Model,
		Language: cfg.Whisper.Language,
		Timeout:  cfg.Whisper.Timeout,
	})

	// Speech synthesis: primary needs credentials, the fallback voice
	// works without any.
	var primary service.PrimarySynthesizer
	if cfg.TTS.AccessToken != "" {
		ttsClient, err := tts.NewClient(tts.Config{
			APIURL:      cfg.TTS.APIURL,
			AccessToken: cfg.TTS.AccessToken,
			AppID:       cfg.TTS.AppID,
			Cluster:     cfg.TTS.Cluster,
			VoiceType:   cfg.TTS.VoiceType,
			Language:    cfg.TTS.Language,
			SampleRate:  cfg.TTS.SampleRate,
		})
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize primary TTS, using fallback only")
		} else {
			primary = ttsClient
		}
	} else {
		log.Warn().Msg("primary TTS not configured, using fallback voice only")
	}
	speechSvc := service.NewSpeechService(primary, gtts.NewClient(gtts.Config{
		BaseURL:  cfg.GTTS.BaseURL,
		Language: cfg.GTTS.Language,
	}))

	// Recording archive (optional)
	var voiceArchive storage.Storage
	if cfg.Storage.Type != "" {
		store, err := storagefactory.NewStorage(ctx, &cfg.Storage)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize storage, recordings will not be archived")
		} else {
			voiceArchive = store
			log.Info().Str("type", store.GetStorageType()).Msg("initialized recording archive")
		}
	}

	// Store-backed services. Identity is resolved here, once, so no
	// request path ever probes for the default or legacy user.
	var userSvc *service.UserService
	var convSvc *service.ConversationService
	var voiceSvc *service.VoiceService
	if mongoClient != nil {
		db := mongoClient.Database()
		userSvc = service.NewUserService(repository.NewUserRepo(db), redisCache, cfg.User)
		convSvc = service.NewConversationService(repository.NewConversationRepo(db), repository.NewMessageRepo(db))

		if _, err := userSvc.EnsureDefault(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to resolve default user, voice turns will fail until restart")
		}

		voiceSvc = service.NewVoiceService(userSvc, convSvc, speechSvc, transcriber, aiClient, voiceArchive)
	} else {
		log.Warn().Msg("MongoDB not configured, conversation endpoints disabled")
	}

	srv := &Server{
		cfg:          cfg,
		engine:       engine,
		mongo:        mongoClient,
		redis:        redisCache,
		ai:           aiClient,
		userSvc:      userSvc,
		convSvc:      convSvc,
		speechSvc:    speechSvc,
		voiceSvc:     voiceSvc,
		transcriber:  transcriber,
		voiceArchive: voiceArchive,
	}

	srv.setupRoutes()

	return srv, nil
}

// setupRoutes sets up the routes
func (s *Server) setupRoutes() {
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	healthHandler := handler.NewHealthHandler(s.mongo)
	s.engine.GET("/", healthHandler.Root)
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	voiceHandler := handler.NewVoiceHandler(s.voiceSvc, s.transcriber, s.voiceArchive)
	s.engine.POST("/conversation/voice-loop", voiceHandler.VoiceLoop)
	s.engine.POST("/voice/transcribe", voiceHandler.Transcribe)
	s.engine.GET("/voice/recordings/*key", voiceHandler.Recording)

	ttsHandler := handler.NewTTSHandler(s.speechSvc)
	s.engine.POST("/tts/speak", ttsHandler.Speak)

	conversationHandler := handler.NewConversationHandler(s.userSvc, s.convSvc)
	s.engine.GET("/conversation", conversationHandler.List)
	s.engine.GET("/conversation/:id/messages", conversationHandler.Messages)
	s.engine.DELETE("/conversation/:id", conversationHandler.Delete)

	profileHandler := handler.NewProfileHandler(s.userSvc)
	s.engine.GET("/profile", profileHandler.Get)
	s.engine.PUT("/profile", profileHandler.Update)
}

// Run starts the server
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		if s.ai != nil {
			if err := s.ai.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close AI client")
			}
		}
		if s.mongo != nil {
			if err := s.mongo.Close(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to close MongoDB connection")
			}
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Engine returns the gin engine (for tests)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
