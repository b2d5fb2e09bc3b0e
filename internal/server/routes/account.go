// Package routes wires the account operations onto their HTTP endpoints.
// Handlers stay thin: decode, delegate to the façade, render.
package routes

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/clonner/clonner/internal/account"
	"github.com/clonner/clonner/internal/logging"
	"github.com/clonner/clonner/internal/server"
)

// RegisterAccountRoutes binds the login and account operation endpoints.
func RegisterAccountRoutes(app *fiber.App, service *account.Service, logger *logrus.Logger) {
	if app == nil || service == nil {
		return
	}

	app.Post("/login", func(c fiber.Ctx) error {
		var payload struct {
			Login    string `json:"login"`
			Password string `json:"password"`
		}
		if err := c.Bind().Body(&payload); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		payload.Login = strings.TrimSpace(payload.Login)
		if payload.Login == "" || payload.Password == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "login_and_password_required"})
		}

		fields := logging.OpFields(payload.Login, "login")
		fields["request_id"] = server.RequestID(c)
		logger.WithFields(fields).Debug("login_requested")

		if err := service.Login(c.Context(), payload.Login, payload.Password); err != nil {
			return server.RenderError(c, err)
		}
		return c.JSON(fiber.Map{"id": payload.Login})
	})

	app.Get("/account_info", func(c fiber.Ctx) error {
		identity := loginParam(c)
		if identity == "" {
			return renderLoginRequired(c)
		}
		profile, err := service.Profile(c.Context(), identity)
		if err != nil {
			return server.RenderError(c, err)
		}
		return c.JSON(profile)
	})

	app.Get("/get_followings", func(c fiber.Ctx) error {
		identity := loginParam(c)
		if identity == "" {
			return renderLoginRequired(c)
		}
		followings, err := service.Followings(c.Context(), identity)
		if err != nil {
			return server.RenderError(c, err)
		}
		return c.JSON(followings)
	})

	app.Post("/follow", func(c fiber.Ctx) error {
		var payload struct {
			Login   string   `json:"login"`
			UserIDs []string `json:"user_ids"`
		}
		if err := c.Bind().Body(&payload); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		if payload.Login == "" || len(payload.UserIDs) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "login_and_user_ids_required"})
		}

		result, err := service.FollowMany(c.Context(), payload.Login, payload.UserIDs)
		if err != nil {
			return server.RenderError(c, err)
		}
		return c.JSON(result)
	})

	app.Get("/get_collections", func(c fiber.Ctx) error {
		identity := loginParam(c)
		if identity == "" {
			return renderLoginRequired(c)
		}
		collections, err := service.Collections(c.Context(), identity)
		if err != nil {
			return server.RenderError(c, err)
		}
		return c.JSON(collections)
	})

	app.Post("/save_media", func(c fiber.Ctx) error {
		var payload struct {
			Login        string   `json:"login"`
			MediaIDs     []string `json:"media_ids"`
			CollectionID string   `json:"collection_id"`
		}
		if err := c.Bind().Body(&payload); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		if payload.Login == "" || len(payload.MediaIDs) == 0 || payload.CollectionID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "login_media_ids_and_collection_required"})
		}

		result, err := service.SaveMany(c.Context(), payload.Login, payload.MediaIDs, payload.CollectionID)
		if err != nil {
			return server.RenderError(c, err)
		}
		return c.JSON(result)
	})
}

// renderLoginRequired answers GET endpoints whose login query parameter is
// missing. The render error propagates to Fiber like every other handler.
func renderLoginRequired(c fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "login_query_required"})
}

func loginParam(c fiber.Ctx) string {
	return strings.TrimSpace(c.Query("login"))
}
