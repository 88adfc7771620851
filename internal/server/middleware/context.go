package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/trellis-ai/trellis/backend/pkg/ai"
	"github.com/trellis-ai/trellis/backend/pkg/query"
	storepgx "github.com/trellis-ai/trellis/backend/pkg/store/pgx"
	"github.com/trellis-ai/trellis/backend/pkg/traverse"
)

// AppUser is the authenticated caller, decoded from the JWT.
type AppUser struct {
	UserID string
	Role   string
}

// App holds every shared service handle. It is constructed exactly once at
// startup and injected into each request; handlers never reach for globals.
type App struct {
	DBConn       *pgxpool.Pool
	Queue        *amqp091.Channel
	Key          keyfunc.Keyfunc
	S3           *s3.Client
	AIClient     ai.GraphAIClient
	Store        *storepgx.Store
	Orchestrator *query.Orchestrator
	Traverser    *traverse.Engine
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
