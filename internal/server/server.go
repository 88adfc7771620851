package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/trellis-ai/trellis/backend/internal/queue"
	mid "github.com/trellis-ai/trellis/backend/internal/server/middleware"
	"github.com/trellis-ai/trellis/backend/internal/storage"
	"github.com/trellis-ai/trellis/backend/internal/util"
	"github.com/trellis-ai/trellis/backend/pkg/ai"
	aiollama "github.com/trellis-ai/trellis/backend/pkg/ai/ollama"
	aiopenai "github.com/trellis-ai/trellis/backend/pkg/ai/openai"
	"github.com/trellis-ai/trellis/backend/pkg/analyze"
	"github.com/trellis-ai/trellis/backend/pkg/answer"
	"github.com/trellis-ai/trellis/backend/pkg/assemble"
	"github.com/trellis-ai/trellis/backend/pkg/common"
	"github.com/trellis-ai/trellis/backend/pkg/logger"
	"github.com/trellis-ai/trellis/backend/pkg/query"
	storepgx "github.com/trellis-ai/trellis/backend/pkg/store/pgx"
	"github.com/trellis-ai/trellis/backend/pkg/traverse"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// validateConfig checks the required backend settings before anything
// connects. Missing settings are fatal at startup, not at first use.
func validateConfig() error {
	required := []string{"DATABASE_URL", "AI_EMBED_MODEL", "AI_CHAT_MODEL", "AI_CHAT_EXTRACT_MODEL"}
	missing := []string{}
	for _, name := range required {
		if util.GetEnv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &common.ConfigError{Missing: missing}
	}
	return nil
}

// NewAIClient builds the configured model client. AI_ADAPTER selects ollama;
// anything else gets the OpenAI-compatible client.
func NewAIClient() (ai.GraphAIClient, error) {
	if util.GetEnv("AI_ADAPTER") == "ollama" {
		client, err := aiollama.NewGraphOllamaClient(aiollama.NewGraphOllamaClientParams{
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			ChatModel:       util.GetEnv("AI_CHAT_MODEL"),
			ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),
		})
		if err != nil {
			return nil, &common.InitError{Component: "ollama client", Err: err}
		}
		return client, nil
	}
	return aiopenai.NewGraphOpenAIClient(aiopenai.NewGraphOpenAIClientParams{
		EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
		ChatModel:       util.GetEnv("AI_CHAT_MODEL"),
		ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),

		EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
		EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
		ChatURL:      util.GetEnv("AI_CHAT_URL"),
		ChatKey:      util.GetEnv("AI_CHAT_KEY"),
	}), nil
}

func runMigrations() {
	path := util.GetEnvString("MIGRATIONS_PATH", "migrations")
	m, err := migrate.New("file://"+path, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Failed to initialize migrations", "err", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("Failed to run migrations", "err", err)
	}
}

func Init() {
	if err := validateConfig(); err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// JWKS is optional: without AUTH_URL the API runs unauthenticated.
	var key keyfunc.Keyfunc
	if authURL := util.GetEnv("AUTH_URL"); authURL != "" {
		k, err := keyfunc.NewDefault([]string{authURL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		key = k
	}

	runMigrations()

	conn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()
	conn.Config().AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	aiClient, err := NewAIClient()
	if err != nil {
		logger.Fatal("Failed to create AI client", "err", err)
	}

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	s3 := storage.NewS3Client(ctx)

	graphStore := storepgx.NewStore(storepgx.NewStoreParams{
		Conn:     conn,
		AIClient: aiClient,
	})

	orchestrator := query.NewOrchestrator(query.NewOrchestratorParams{
		Analyzer:  analyze.NewAnalyzer(analyze.NewAnalyzerParams{AIClient: aiClient}),
		Assembler: assemble.NewAssembler(assemble.NewAssemblerParams{GraphStore: graphStore, Search: graphStore}),
		Generator: answer.NewGenerator(answer.NewGeneratorParams{AIClient: aiClient}),
		History:   graphStore,
	})

	app := &mid.App{
		DBConn:       conn,
		Queue:        ch,
		Key:          key,
		S3:           s3,
		AIClient:     aiClient,
		Store:        graphStore,
		Orchestrator: orchestrator,
		Traverser:    traverse.NewEngine(traverse.NewEngineParams{Store: graphStore}),
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(echomw.CORS())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	RegisterRoutes(e)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
