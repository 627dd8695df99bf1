package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/greenhill/schoolsite/models"
)

func seedPost(t *testing.T, db *gorm.DB, authorID uint) models.Post {
	t.Helper()
	post := models.Post{
		AuthorID:   authorID,
		Title:      "Sports Day",
		Content:    "<p>Annual sports day this Friday.</p>",
		IsApproved: true,
	}
	require.NoError(t, db.Create(&post).Error)
	return post
}

func TestCommentModerationFlow(t *testing.T) {
	db := newTestDB(t)
	router := newModerationRouter(db)

	admin, adminToken := createTestUser(t, db, "Head Admin", "head@school.test", models.RoleAdmin)
	_, userToken := createTestUser(t, db, "Pat Parent", "pat@example.test", models.RoleUser)
	post := seedPost(t, db, admin.ID)

	commentsPath := fmt.Sprintf("/api/v1/posts/%d/comments", post.ID)

	// Submit: the comment is stored pending.
	w := doJSON(t, router, http.MethodPost, commentsPath, userToken,
		map[string]string{"content": "Looking forward to it!"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.Comment
	require.NoError(t, db.First(&stored).Error)
	assert.False(t, stored.IsApproved)
	assert.Equal(t, "Pat Parent", stored.UserName)

	// Pending comments are invisible to the public listing.
	w = doJSON(t, router, http.MethodGet, commentsPath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Empty(t, data["items"])

	// Approve makes it public.
	approvePath := fmt.Sprintf("/api/v1/admin/comments/%d/approve", stored.ID)
	w = doJSON(t, router, http.MethodPut, approvePath, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, commentsPath, "", nil)
	data = dataField(t, w)
	items, ok := data["items"].([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestCommentApproveIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	router := newModerationRouter(db)

	admin, adminToken := createTestUser(t, db, "Head Admin", "head@school.test", models.RoleAdmin)
	user, _ := createTestUser(t, db, "Pat Parent", "pat@example.test", models.RoleUser)
	post := seedPost(t, db, admin.ID)

	comment := models.Comment{PostID: post.ID, UserID: user.ID, UserName: user.FullName, Content: "hello"}
	require.NoError(t, db.Create(&comment).Error)

	approvePath := fmt.Sprintf("/api/v1/admin/comments/%d/approve", comment.ID)
	for i := 0; i < 3; i++ {
		w := doJSON(t, router, http.MethodPut, approvePath, adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code, "approval round %d: %s", i, w.Body.String())
	}

	var reloaded models.Comment
	require.NoError(t, db.First(&reloaded, comment.ID).Error)
	assert.True(t, reloaded.IsApproved)
}

func TestCommentRejectsEmptyContent(t *testing.T) {
	db := newTestDB(t)
	router := newModerationRouter(db)

	admin, _ := createTestUser(t, db, "Head Admin", "head@school.test", models.RoleAdmin)
	_, userToken := createTestUser(t, db, "Pat Parent", "pat@example.test", models.RoleUser)
	post := seedPost(t, db, admin.ID)

	path := fmt.Sprintf("/api/v1/posts/%d/comments", post.ID)
	for _, content := range []string{"", "   ", "\n\t "} {
		w := doJSON(t, router, http.MethodPost, path, userToken,
			map[string]string{"content": content})
		assert.Equal(t, http.StatusBadRequest, w.Code, "content %q", content)
	}

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	assert.Zero(t, count, "nothing may be stored for empty submissions")
}

func TestCommentModerationRequiresAdminRole(t *testing.T) {
	db := newTestDB(t)
	router := newModerationRouter(db)

	admin, _ := createTestUser(t, db, "Head Admin", "head@school.test", models.RoleAdmin)
	user, userToken := createTestUser(t, db, "Pat Parent", "pat@example.test", models.RoleUser)
	post := seedPost(t, db, admin.ID)

	comment := models.Comment{PostID: post.ID, UserID: user.ID, UserName: user.FullName, Content: "hi"}
	require.NoError(t, db.Create(&comment).Error)

	approvePath := fmt.Sprintf("/api/v1/admin/comments/%d/approve", comment.ID)

	// Regular users are rejected, anonymous callers too.
	w := doJSON(t, router, http.MethodPut, approvePath, userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, router, http.MethodPut, approvePath, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var reloaded models.Comment
	require.NoError(t, db.First(&reloaded, comment.ID).Error)
	assert.False(t, reloaded.IsApproved)
}

func TestCommentRoleIsReadFromDatabaseNotToken(t *testing.T) {
	db := newTestDB(t)
	router := newModerationRouter(db)

	admin, _ := createTestUser(t, db, "Head Admin", "head@school.test", models.RoleAdmin)
	demoted, demotedToken := createTestUser(t, db, "Ex Admin", "ex@school.test", models.RoleAdmin)
	post := seedPost(t, db, admin.ID)

	comment := models.Comment{PostID: post.ID, UserID: admin.ID, UserName: admin.FullName, Content: "hi"}
	require.NoError(t, db.Create(&comment).Error)

	// Revoke after the token was issued: the stale token must not grant access.
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", demoted.ID).
		Update("role", models.RoleUser).Error)

	approvePath := fmt.Sprintf("/api/v1/admin/comments/%d/approve", comment.ID)
	w := doJSON(t, router, http.MethodPut, approvePath, demotedToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCommentDecline(t *testing.T) {
	db := newTestDB(t)
	router := newModerationRouter(db)

	admin, adminToken := createTestUser(t, db, "Head Admin", "head@school.test", models.RoleAdmin)
	user, _ := createTestUser(t, db, "Pat Parent", "pat@example.test", models.RoleUser)
	post := seedPost(t, db, admin.ID)

	comment := models.Comment{PostID: post.ID, UserID: user.ID, UserName: user.FullName, Content: "spam"}
	require.NoError(t, db.Create(&comment).Error)

	w := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/admin/comments/%d", comment.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	assert.Zero(t, count)

	// Declining again reports not found.
	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/admin/comments/%d", comment.ID), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminCommentQueueListsPendingWithPostTitles(t *testing.T) {
	db := newTestDB(t)
	router := newModerationRouter(db)

	admin, adminToken := createTestUser(t, db, "Head Admin", "head@school.test", models.RoleAdmin)
	user, _ := createTestUser(t, db, "Pat Parent", "pat@example.test", models.RoleUser)
	post := seedPost(t, db, admin.ID)

	pending := models.Comment{PostID: post.ID, UserID: user.ID, UserName: user.FullName, Content: "pending one"}
	approved := models.Comment{PostID: post.ID, UserID: user.ID, UserName: user.FullName, Content: "approved one", IsApproved: true}
	require.NoError(t, db.Create(&pending).Error)
	require.NoError(t, db.Create(&approved).Error)

	w := doJSON(t, router, http.MethodGet, "/api/v1/admin/comments", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := dataField(t, w)["items"].([]interface{})
	assert.Len(t, items, 2)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "Sports Day", first["post_title"])

	w = doJSON(t, router, http.MethodGet, "/api/v1/admin/comments?pending=true", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items = dataField(t, w)["items"].([]interface{})
	assert.Len(t, items, 1)
}
