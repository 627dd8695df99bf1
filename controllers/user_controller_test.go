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

func newUserAdminRouter(db *gorm.DB) *gin.Engine {
	userCtl := NewUserController(db)

	r := gin.New()
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired(db))
	admin.GET("/users", userCtl.List)
	admin.PUT("/users/:id/role", userCtl.UpdateRole)
	admin.DELETE("/users/:id", userCtl.Delete)
	return r
}

func TestUserRoleGrantAndRevoke(t *testing.T) {
	db := newTestDB(t)
	router := newUserAdminRouter(db)

	_, adminToken := createTestUser(t, db, "Head Admin", "head@school.test", models.RoleAdmin)
	target, _ := createTestUser(t, db, "Pat Parent", "pat@example.test", models.RoleUser)

	rolePath := fmt.Sprintf("/api/v1/admin/users/%d/role", target.ID)

	w := doJSON(t, router, http.MethodPut, rolePath, adminToken, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, target.ID).Error)
	assert.Equal(t, models.RoleAdmin, reloaded.Role)

	w = doJSON(t, router, http.MethodPut, rolePath, adminToken, map[string]string{"role": "user"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, db.First(&reloaded, target.ID).Error)
	assert.Equal(t, models.RoleUser, reloaded.Role)

	// Unknown roles are rejected.
	w = doJSON(t, router, http.MethodPut, rolePath, adminToken, map[string]string{"role": "superuser"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserCannotRevokeOwnAdminRole(t *testing.T) {
	db := newTestDB(t)
	router := newUserAdminRouter(db)

	admin, adminToken := createTestUser(t, db, "Head Admin", "head@school.test", models.RoleAdmin)

	w := doJSON(t, router, http.MethodPut,
		fmt.Sprintf("/api/v1/admin/users/%d/role", admin.ID), adminToken,
		map[string]string{"role": "user"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, admin.ID).Error)
	assert.Equal(t, models.RoleAdmin, reloaded.Role)
}

func TestUserDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	router := newUserAdminRouter(db)

	_, adminToken := createTestUser(t, db, "Head Admin", "head@school.test", models.RoleAdmin)
	target, _ := createTestUser(t, db, "Author", "author@example.test", models.RoleUser)
	other, _ := createTestUser(t, db, "Bystander", "bystander@example.test", models.RoleUser)

	// The target authored a post which the bystander commented on.
	post := models.Post{AuthorID: target.ID, Title: "Mine", Content: "by target", IsApproved: true}
	require.NoError(t, db.Create(&post).Error)
	require.NoError(t, db.Create(&models.Comment{
		PostID: post.ID, UserID: other.ID, UserName: other.FullName, Content: "on target's post",
	}).Error)
	require.NoError(t, db.Create(&models.Comment{
		PostID: post.ID, UserID: target.ID, UserName: target.FullName, Content: "by target",
	}).Error)

	// The bystander also has content of their own that must survive.
	otherPost := models.Post{AuthorID: other.ID, Title: "Theirs", Content: "by bystander", IsApproved: true}
	require.NoError(t, db.Create(&otherPost).Error)
	require.NoError(t, db.Create(&models.Comment{
		PostID: otherPost.ID, UserID: other.ID, UserName: other.FullName, Content: "own thread",
	}).Error)

	// Contact messages linked to the target go too.
	uid := target.ID
	require.NoError(t, db.Create(&models.Message{
		Name: target.FullName, Email: target.Email, Body: "hello", UserID: &uid,
	}).Error)

	w := doJSON(t, router, http.MethodDelete,
		fmt.Sprintf("/api/v1/admin/users/%d", target.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var userCount, postCount, commentCount, messageCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&postCount).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&commentCount).Error)
	require.NoError(t, db.Model(&models.Message{}).Count(&messageCount).Error)

	assert.EqualValues(t, 2, userCount, "admin and bystander remain")
	assert.EqualValues(t, 1, postCount, "only the bystander's post remains")
	assert.EqualValues(t, 1, commentCount, "only the bystander's own-thread comment remains")
	assert.Zero(t, messageCount)

	var remainingPost models.Post
	require.NoError(t, db.First(&remainingPost).Error)
	assert.Equal(t, other.ID, remainingPost.AuthorID)
}

func TestUserDeletePartialFailureDeletesNothing(t *testing.T) {
	db := newTestDB(t)
	router := newUserAdminRouter(db)

	_, adminToken := createTestUser(t, db, "Head Admin", "head@school.test", models.RoleAdmin)
	target, _ := createTestUser(t, db, "Author", "author@example.test", models.RoleUser)

	post := models.Post{AuthorID: target.ID, Title: "Mine", Content: "by target", IsApproved: true}
	require.NoError(t, db.Create(&post).Error)
	require.NoError(t, db.Create(&models.Comment{
		PostID: post.ID, UserID: target.ID, UserName: target.FullName, Content: "by target",
	}).Error)

	// Sabotage the middle of the cascade: with the messages table gone
	// the transaction must roll back and leave everything in place.
	require.NoError(t, db.Migrator().DropTable(&models.Message{}))

	w := doJSON(t, router, http.MethodDelete,
		fmt.Sprintf("/api/v1/admin/users/%d", target.ID), adminToken, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var userCount, postCount, commentCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&postCount).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&commentCount).Error)
	assert.EqualValues(t, 2, userCount)
	assert.EqualValues(t, 1, postCount)
	assert.EqualValues(t, 1, commentCount)
}

func TestUserCannotDeleteSelf(t *testing.T) {
	db := newTestDB(t)
	router := newUserAdminRouter(db)

	admin, adminToken := createTestUser(t, db, "Head Admin", "head@school.test", models.RoleAdmin)

	w := doJSON(t, router, http.MethodDelete,
		fmt.Sprintf("/api/v1/admin/users/%d", admin.ID), adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUserListSearch(t *testing.T) {
	db := newTestDB(t)
	router := newUserAdminRouter(db)

	_, adminToken := createTestUser(t, db, "Head Admin", "head@school.test", models.RoleAdmin)
	createTestUser(t, db, "Alice Smith", "alice@example.test", models.RoleUser)
	createTestUser(t, db, "Bob Jones", "bob@example.test", models.RoleUser)

	w := doJSON(t, router, http.MethodGet, "/api/v1/admin/users?search=alice", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := dataField(t, w)["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Alice Smith", items[0].(map[string]interface{})["full_name"])

	w = doJSON(t, router, http.MethodGet, "/api/v1/admin/users?role=admin", adminToken, nil)
	items = dataField(t, w)["items"].([]interface{})
	assert.Len(t, items, 1)
}
