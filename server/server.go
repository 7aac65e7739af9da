package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"feedhub/feeds"
	"feedhub/models"
	"feedhub/refresh"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const (
	feedPath     = "/api/feed"
	pingInterval = 5 * time.Second
)

// LiveSource yields the live status of a channel, as feeds.Aggregator does
type LiveSource interface {
	GetLiveStatus(ctx context.Context, channelID string) <-chan models.Result[models.LiveStatus]
}

// RunReader lists recent background refresh attempts
type RunReader interface {
	Recent(ctx context.Context, limit int) ([]models.RefreshRun, error)
}

type ServerConfig struct {
	// Interactive consumer backing the feed endpoints
	Session *refresh.Session

	// Query returns the configured sources
	Query func() models.FeedQuery

	Live          LiveSource
	LiveChannelID string

	// Optional, /api/runs answers 404 without it
	Runs RunReader

	// Broadcast channels to pass feed updates to SSE clients
	Broadcaster *Broadcaster

	// Comma separated CORS origins
	AllowOrigins string

	// How long GET /api/feed responses are cached, 5 seconds when zero
	CacheExpiration time.Duration
}

type feedResponse struct {
	Items       json.RawMessage `json:"items"`
	LastRefresh *time.Time      `json:"lastRefresh"`
}

type feedEvent struct {
	Emission int             `json:"emission"`
	Items    json.RawMessage `json:"items"`
}

// Returns a fiber.App serving the integrated feed, live status and SSE updates
func Server(config *ServerConfig) *fiber.App {
	bc := config.Broadcaster

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	origins := config.AllowOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Cache-Control",
		AllowCredentials: origins != "*",
	}))

	expiration := config.CacheExpiration
	if expiration == 0 {
		expiration = 5 * time.Second
	}
	app.Use(cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet || c.Path() != feedPath
		},
		Expiration: expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Request().URI().String()
		},
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get(feedPath, func(c *fiber.Ctx) error {
		query := config.Query()
		if config.Session.ShouldRefresh(query) {
			go func() {
				if _, err := config.Session.Refresh(context.Background(), query, false); err != nil {
					log.WithField("error", err).Warn("Background feed refresh failed")
				}
			}()
		}
		return sendFeed(c, config.Session)
	})

	app.Post(feedPath+"/refresh", func(c *fiber.Ctx) error {
		force := c.QueryBool("force", false)

		ran, err := config.Session.Refresh(c.UserContext(), config.Query(), force)
		if err != nil {
			log.WithFields(log.Fields{
				"force": force,
				"error": err,
			}).Error("Error refreshing feed")
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
		if !ran {
			return c.JSON(fiber.Map{"skipped": true})
		}
		return sendFeed(c, config.Session)
	})

	app.Get("/api/live", func(c *fiber.Ctx) error {
		result, _ := feeds.Drain(config.Live.GetLiveStatus(c.UserContext(), config.LiveChannelID))
		if !result.OK() {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"status": "unknown"})
		}
		return c.JSON(result.Value)
	})

	app.Get("/api/runs", func(c *fiber.Ctx) error {
		if config.Runs == nil {
			return c.Status(fiber.StatusNotFound).SendString("Run log disabled")
		}

		limit := c.QueryInt("limit", 20)
		if limit < 1 || limit > 100 {
			limit = 20
		}

		runs, err := config.Runs.Recent(c.UserContext(), limit)
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error getting refresh runs")
			return c.Status(fiber.StatusInternalServerError).SendString("Error getting refresh runs")
		}
		return c.JSON(runs)
	})

	app.Delete(feedPath+"/sse", func(c *fiber.Ctx) error {
		if !bc.RemoveClient(c.Query("key", "")) {
			return c.Status(fiber.StatusNotFound).SendString("Unknown client")
		}
		return c.SendString("OK")
	})

	app.Get(feedPath+"/sse", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("Transfer-Encoding", "chunked")

		key := uuid.New().String()
		updates := make(chan models.FeedUpdateEvent, 10)
		bc.AddClient(key, updates)

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			alive := time.NewTicker(pingInterval)
			defer alive.Stop()
			defer func() {
				log.Infof("Cleaning up SSE stream for client: %s", key)
				bc.RemoveClient(key)
			}()

			if err := writeEvent(w, "init", []byte(key)); err != nil {
				log.Errorf("Failed to send init event: %v", err)
				return
			}

			for {
				select {
				case <-alive.C:
					if err := writeEvent(w, "ping", nil); err != nil {
						log.Warnf("Failed to send ping to client %s: %v", key, err)
						return
					}

				case update, ok := <-updates:
					if !ok {
						log.Debugf("Feed channel closed for client %s", key)
						return
					}
					data, err := encodeFeedEvent(update)
					if err != nil {
						log.Errorf("Error marshalling feed for client %s: %v", key, err)
						continue
					}
					if err := writeEvent(w, "feed", data); err != nil {
						log.Warnf("Failed to send feed event to client %s: %v", key, err)
						return
					}
				}
			}
		}))

		return nil
	})

	return app
}

func sendFeed(c *fiber.Ctx, session *refresh.Session) error {
	items, err := models.MarshalFeedItems(session.Items())
	if err != nil {
		log.WithField("error", err).Error("Error encoding feed items")
		return c.Status(fiber.StatusInternalServerError).SendString("Error encoding feed")
	}

	response := feedResponse{Items: items}
	if last := session.LastRefresh(); !last.IsZero() {
		response.LastRefresh = &last
	}
	return c.JSON(response)
}

func encodeFeedEvent(event models.FeedUpdateEvent) ([]byte, error) {
	items, err := models.MarshalFeedItems(event.Items)
	if err != nil {
		return nil, err
	}
	return json.Marshal(feedEvent{Emission: event.Emission, Items: items})
}

func writeEvent(w *bufio.Writer, event string, data []byte) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}
