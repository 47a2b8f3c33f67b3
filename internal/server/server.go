package server

import (
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/groq-transcribe/internal/handlers"
	"github.com/codebuildervaibhav/groq-transcribe/internal/logging"
	"github.com/codebuildervaibhav/groq-transcribe/internal/web"
)

// Version is reported by GET /health
const Version = "1.0.0"

// Dependencies are the collaborators the HTTP layer needs
type Dependencies struct {
	Pool          handlers.Submitter
	Records       handlers.RecordReader // nil disables the history routes
	Logs          *logging.LogBuffer
	Logger        *zap.SugaredLogger
	AccessLog     io.Writer // nil means stdout
	MaxFileSizeMB int
}

// errorHandler keeps every failure in the {"error": ...} shape, including
// those raised by fasthttp before a route runs
func errorHandler(maxSizeMB int) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		if code == fiber.StatusRequestEntityTooLarge {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("File too large (max %dMB)", maxSizeMB),
			})
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}

// New builds the fiber app with middleware and every route
func New(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		// multipart framing needs a little headroom over the file itself
		BodyLimit:             (deps.MaxFileSizeMB + 1) * 1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(deps.MaxFileSizeMB),
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: deps.AccessLog}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	uploadHandler := handlers.NewUploadHandler(deps.Pool, deps.MaxFileSizeMB, deps.Logger)
	gdriveHandler := handlers.NewGDriveHandler(deps.Pool, deps.MaxFileSizeMB, deps.Logger)
	streamHandler := handlers.NewStreamHandler(deps.Pool, deps.MaxFileSizeMB, deps.Logger)

	app.Get("/", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.Send(web.IndexHTML)
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": Version,
		})
	})

	app.Get("/logs", func(c *fiber.Ctx) error {
		logs := []string{}
		if deps.Logs != nil {
			logs = deps.Logs.GetLogs()
		}
		return c.JSON(fiber.Map{"logs": logs})
	})

	app.Post("/api/transcribe", uploadHandler.Handle)
	app.Post("/api/transcribe/gdrive", gdriveHandler.Handle)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/stream", websocket.New(streamHandler.Handle))

	if deps.Records != nil {
		historyHandler := handlers.NewHistoryHandler(deps.Records, deps.Logger)
		app.Get("/transcripts", historyHandler.List)
		app.Get("/transcripts/:id/text", historyHandler.Text)
	}

	return app
}
