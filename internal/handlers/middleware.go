package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// RequestLogger logs one entry per request once the handler chain returns.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		chainErr := c.Next()
		if c.Method() == fiber.MethodOptions {
			return chainErr
		}
		if chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		entry := log.WithFields(log.Fields{
			"method":  c.Method(),
			"path":    c.Path(),
			"status":  status,
			"latency": time.Since(start).String(),
			"ip":      c.IP(),
		})

		switch {
		case status >= fiber.StatusInternalServerError:
			entry.Error("api request")
		case status >= fiber.StatusBadRequest:
			entry.Warn("api request")
		default:
			entry.Info("api request")
		}
		return nil
	}
}
