package server

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clonner/clonner/internal/pool"
)

// AppOptions controls how the Fiber application is assembled.
type AppOptions struct {
	Logger     *logrus.Logger
	CacheDir   string
	ListenPort int
}

const contextKeyRequestID = "_clonner_request_id"

// NewApp builds a Fiber application with CORS, panic recovery, request IDs
// and static serving of the media cache. Account routes are registered
// separately by the routes package.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.CacheDir == "" {
		return nil, errors.New("cache dir is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(requestIDMiddleware())

	app.Get("/-/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	registerCacheRoute(app, opts.CacheDir)

	return app, nil
}

// requestIDMiddleware tags every request with a uuid for log correlation.
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

// registerCacheRoute serves cached media by key. Keys are flat file names,
// anything carrying path semantics is rejected outright.
func registerCacheRoute(app *fiber.App, cacheDir string) {
	app.Get("/cache/:key", func(c fiber.Ctx) error {
		key := c.Params("key")
		if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_cache_key"})
		}
		return c.SendFile(filepath.Join(cacheDir, key))
	})
}

// RenderError maps a core error kind onto its fixed transport status. The
// mapping is the single place routes surface failures from.
func RenderError(c fiber.Ctx, err error) error {
	status, kind := statusForError(err)
	return c.Status(status).JSON(fiber.Map{
		"error":  kind,
		"detail": err.Error(),
	})
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, pool.ErrNotAuthenticated):
		return fiber.StatusUnauthorized, "not_authenticated"
	case errors.Is(err, pool.ErrAuthenticationFailed):
		return fiber.StatusUnauthorized, "authentication_failed"
	case errors.Is(err, pool.ErrRemoteRestricted):
		return fiber.StatusForbidden, "remote_restricted"
	case errors.Is(err, pool.ErrSessionCorrupt):
		return fiber.StatusConflict, "session_corrupt"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}
