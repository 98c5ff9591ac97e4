package main

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/meikuraledutech/flow/metrics"
)

// requestLogger logs every request and records its latency.
func requestLogger(log *zap.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		elapsed := time.Since(start)
		metrics.RequestDuration.
			WithLabelValues(c.Method(), strconv.Itoa(status)).
			Observe(float64(elapsed.Milliseconds()))
		log.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
		)
		return err
	}
}
