package transporthttp

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"papertrade/internal/gamification"
	"papertrade/internal/store"
)

// AccountRouter exposes gamification progress and in-app notifications.
type AccountRouter struct {
	progress *gamification.Service
	store    store.Store
}

func NewAccountRouter(progress *gamification.Service, st store.Store) *AccountRouter {
	return &AccountRouter{progress: progress, store: st}
}

func (r *AccountRouter) Register(group *gin.RouterGroup) {
	group.GET("/progress", r.handleProgress)
	group.GET("/leaderboard", r.handleLeaderboard)
	group.GET("/notifications", r.handleNotifications)
	group.POST("/notifications/:id/read", r.handleNotificationRead)
	group.PUT("/notifications/read-all", r.handleNotificationsReadAll)
	group.DELETE("/notifications/:id", r.handleNotificationDelete)
	group.DELETE("/notifications", r.handleNotificationsClear)
}

func (r *AccountRouter) handleProgress(c *gin.Context) {
	p, err := r.progress.Progress(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (r *AccountRouter) handleNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := r.store.Notifications(c.Request.Context(), currentUser(c).ID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (r *AccountRouter) handleLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	entries, err := r.progress.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

func (r *AccountRouter) handleNotificationRead(c *gin.Context) {
	id, ok := notificationID(c)
	if !ok {
		return
	}
	if err := r.store.MarkNotificationRead(c.Request.Context(), currentUser(c).ID, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (r *AccountRouter) handleNotificationsReadAll(c *gin.Context) {
	if err := r.store.MarkAllNotificationsRead(c.Request.Context(), currentUser(c).ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (r *AccountRouter) handleNotificationDelete(c *gin.Context) {
	id, ok := notificationID(c)
	if !ok {
		return
	}
	if err := r.store.DeleteNotification(c.Request.Context(), currentUser(c).ID, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (r *AccountRouter) handleNotificationsClear(c *gin.Context) {
	if err := r.store.ClearNotifications(c.Request.Context(), currentUser(c).ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func notificationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return 0, false
	}
	return id, true
}
