package dashboard

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/yukki/internal/app"
	"github.com/zulandar/yukki/internal/settings"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, a *app.App) {
	router.GET("/healthz", handleHealth(a))

	api := router.Group("/api")
	api.GET("/stats", handleStats(a))
	api.GET("/chats/:id", handleChat(a))
}

type statsResponse struct {
	Assistants  int   `json:"assistants"`
	Live        []int `json:"live_assistants"`
	ActiveChats int   `json:"active_chats"`
	VideoChats  int   `json:"active_video_chats"`
	VideoLimit  int   `json:"video_limit"`
	Sudoers     int   `json:"sudoers"`
	ServedChats int   `json:"served_chats"`
	ServedUsers int   `json:"served_users"`
	Maintenance bool  `json:"maintenance"`
}

type chatResponse struct {
	ChatID    int64             `json:"chat_id"`
	Assistant *int              `json:"assistant"`
	Active    bool              `json:"active"`
	Video     bool              `json:"video"`
	Settings  map[string]string `json:"settings"`
}

func handleHealth(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := a.Store.DB().DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "store unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleStats(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		pool := a.Assistants.Pool()
		c.JSON(http.StatusOK, statsResponse{
			Assistants:  pool.Size(),
			Live:        pool.Live(),
			ActiveChats: a.Active.Count(),
			VideoChats:  a.Active.CountVideo(),
			VideoLimit:  a.Admission.Limit(ctx),
			Sudoers:     len(a.Sudo.List()),
			ServedChats: a.Lists.ServedChats.Count(),
			ServedUsers: a.Lists.ServedUsers.Count(),
			Maintenance: a.Settings.InMaintenance(ctx),
		})
	}
}

// handleChat reports a chat's assignment and settings without assigning
// an assistant to it.
func handleChat(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chat id must be an integer"})
			return
		}
		ctx := c.Request.Context()
		resp := chatResponse{
			ChatID:   id,
			Active:   a.Active.Has(id),
			Video:    a.Active.HasVideo(id),
			Settings: make(map[string]string, len(settings.Kinds)),
		}
		if idx, ok := a.Assistants.Assigned(id); ok {
			resp.Assistant = &idx
		}
		for _, kind := range settings.Kinds {
			resp.Settings[kind.Name] = a.Settings.Get(ctx, id, kind)
		}
		c.JSON(http.StatusOK, resp)
	}
}
