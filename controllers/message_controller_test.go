package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/greenhill/schoolsite/middleware"
	"github.com/greenhill/schoolsite/models"
)

func newMessageRouter(db *gorm.DB) *gin.Engine {
	messageCtl := NewMessageController(db)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/messages", middleware.AuthOptional(), messageCtl.Create)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired(db))
	admin.GET("/messages", messageCtl.List)
	admin.PUT("/messages/:id/read", messageCtl.MarkRead)
	admin.DELETE("/messages/:id", messageCtl.Delete)
	return r
}

func TestContactMessageAnonymous(t *testing.T) {
	db := newTestDB(t)
	router := newMessageRouter(db)

	w := doJSON(t, router, http.MethodPost, "/api/v1/messages", "", map[string]string{
		"name":    "Curious Parent",
		"email":   "parent@example.test",
		"subject": "Enrollment",
		"body":    "How do I enroll my child?",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var msg models.Message
	require.NoError(t, db.First(&msg).Error)
	assert.Nil(t, msg.UserID, "anonymous messages carry no account link")
	assert.False(t, msg.IsRead)
}

func TestContactMessageLinksAuthenticatedSender(t *testing.T) {
	db := newTestDB(t)
	router := newMessageRouter(db)

	user, token := createTestUser(t, db, "Pat Parent", "pat@example.test", models.RoleUser)

	w := doJSON(t, router, http.MethodPost, "/api/v1/messages", token, map[string]string{
		"name":  "Pat Parent",
		"email": "pat@example.test",
		"body":  "Question about the trip.",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var msg models.Message
	require.NoError(t, db.First(&msg).Error)
	require.NotNil(t, msg.UserID)
	assert.Equal(t, user.ID, *msg.UserID)
}

func TestContactMessageValidation(t *testing.T) {
	db := newTestDB(t)
	router := newMessageRouter(db)

	cases := []map[string]string{
		{"name": "X", "email": "not-an-email", "body": "hi"},
		{"name": "   ", "email": "a@b.co", "body": "hi"},
		{"name": "X", "email": "a@b.co", "body": "   "},
	}
	for i, body := range cases {
		w := doJSON(t, router, http.MethodPost, "/api/v1/messages", "", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "case %d", i)
	}

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMessageInboxMarkReadAndDelete(t *testing.T) {
	db := newTestDB(t)
	router := newMessageRouter(db)

	_, adminToken := createTestUser(t, db, "Head Admin", "head@school.test", models.RoleAdmin)

	first := models.Message{Name: "A", Email: "a@example.test", Body: "one"}
	second := models.Message{Name: "B", Email: "b@example.test", Body: "two"}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)

	w := doJSON(t, router, http.MethodGet, "/api/v1/admin/messages", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dataField(t, w)["items"].([]interface{}), 2)

	// Mark one read; marking twice stays OK.
	readPath := fmt.Sprintf("/api/v1/admin/messages/%d/read", first.ID)
	for i := 0; i < 2; i++ {
		w = doJSON(t, router, http.MethodPut, readPath, adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/v1/admin/messages?unread=true", adminToken, nil)
	items := dataField(t, w)["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "two", items[0].(map[string]interface{})["body"])

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/admin/messages/%d", second.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestMessageInboxRequiresAdmin(t *testing.T) {
	db := newTestDB(t)
	router := newMessageRouter(db)

	_, userToken := createTestUser(t, db, "Pat Parent", "pat@example.test", models.RoleUser)

	w := doJSON(t, router, http.MethodGet, "/api/v1/admin/messages", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
