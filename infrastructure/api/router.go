// Package api wires the HTTP surface of the server: the WebSocket endpoint
// and the small JSON API around it.
package api

import (
	"log/slog"
	"net/http"
	"socialchat/domain"
	"socialchat/infrastructure/indexer"
	"socialchat/observability"
	"socialchat/services"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// MaxLimit caps the number of messages or hits a single request may ask for.
const MaxLimit = 1000

type MessageView struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	UserEmail string `json:"user_email"`
	Timestamp string `json:"timestamp"`
}

type API struct {
	log   *slog.Logger
	chat  services.IChatService
	stats *observability.Collector
	room  domain.RoomID
}

func NewAPI(log *slog.Logger, chat services.IChatService, stats *observability.Collector, room domain.RoomID) *API {
	return &API{log: log, chat: chat, stats: stats, room: room}
}

// RequestLogger logs every request once it has been served.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// NewRouter mounts the chat socket next to the API routes.
func NewRouter(api *API, socket http.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(api.log))

	r.GET("/ws/chat/*any", gin.WrapH(socket))
	r.GET("/healthz", api.health)

	group := r.Group("/api")
	group.GET("/messages", api.messages)
	group.GET("/messages/search", api.search)
	group.GET("/stats", api.statistics)

	api.log.Info("Router setup", "module", "infrastructure.api")
	return r
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) messages(c *gin.Context) {
	limit, ok := a.limit(c)
	if !ok {
		return
	}
	messages, err := a.chat.GetMessages(domain.GetMessageCommand{Room: a.room, Limit: limit})
	if err != nil {
		a.log.Error("Unable to read history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, lo.Map(messages, func(m domain.Message, _ int) MessageView {
		return MessageView{
			ID:        m.ID.String(),
			Message:   m.Content,
			UserEmail: m.Author(),
			Timestamp: m.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	}))
}

func (a *API) search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing q parameter"})
		return
	}
	limit, ok := a.limit(c)
	if !ok {
		return
	}
	hits, err := a.chat.SearchMessages(c.Request.Context(), domain.SearchMessageCommand{Query: query, Limit: limit})
	if err != nil {
		a.log.Error("Search failed", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search unavailable"})
		return
	}
	if hits == nil {
		hits = []indexer.Hit{}
	}
	c.JSON(http.StatusOK, hits)
}

func (a *API) statistics(c *gin.Context) {
	c.JSON(http.StatusOK, a.stats.Collect())
}

// limit reads an optional positive limit parameter, clamped to MaxLimit.
// Zero means the default.
func (a *API) limit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return min(limit, MaxLimit), true
}
