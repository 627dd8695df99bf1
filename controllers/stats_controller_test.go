package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/greenhill/schoolsite/middleware"
	"github.com/greenhill/schoolsite/models"
)

func newStatsRouter(db *gorm.DB) *gin.Engine {
	statsCtl := NewStatsController(db)

	r := gin.New()
	api := r.Group("/api/v1")
	api.GET("/stats", statsCtl.Overview)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired(db))
	admin.GET("/stats", statsCtl.AdminOverview)
	return r
}

func TestStatsOverviewCounts(t *testing.T) {
	db := newTestDB(t)
	router := newStatsRouter(db)

	admin, _ := createTestUser(t, db, "Head Admin", "head@school.test", models.RoleAdmin)
	seedPost(t, db, admin.ID)
	require.NoError(t, db.Create(&models.Event{Title: "Open Day", Date: time.Now()}).Error)

	w := doJSON(t, router, http.MethodGet, "/api/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	counts := dataField(t, w)["counts"].(map[string]interface{})
	assert.EqualValues(t, 1, counts["users"])
	assert.EqualValues(t, 1, counts["posts"])
	assert.EqualValues(t, 1, counts["events"])
	assert.EqualValues(t, 0, counts["staff"])
}

func TestAdminStatsIncludeModerationCounters(t *testing.T) {
	db := newTestDB(t)
	router := newStatsRouter(db)

	admin, adminToken := createTestUser(t, db, "Head Admin", "head@school.test", models.RoleAdmin)
	post := seedPost(t, db, admin.ID)

	require.NoError(t, db.Create(&models.Comment{
		PostID: post.ID, UserID: admin.ID, UserName: admin.FullName, Content: "pending",
	}).Error)
	require.NoError(t, db.Create(&models.Message{
		Name: "A", Email: "a@example.test", Body: "unread",
	}).Error)

	w := doJSON(t, router, http.MethodGet, "/api/v1/admin/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	counts := dataField(t, w)["counts"].(map[string]interface{})
	assert.EqualValues(t, 1, counts["pending_comments"])
	assert.EqualValues(t, 1, counts["unread_messages"])
}
