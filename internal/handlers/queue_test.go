package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"group_assist/internal/auth"
	"group_assist/internal/config"
	"group_assist/internal/models"
	"group_assist/internal/queue"
	"group_assist/internal/storage"
	"group_assist/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var hubOnce sync.Once

// authMiddlewareTest подставляет идентичность из заголовков вместо разбора JWT.
func authMiddlewareTest() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := uint(1)
		if s := c.Request.Header.Get("X-Test-UserID"); s != "" {
			if id, err := strconv.Atoi(s); err == nil {
				userID = uint(id)
			}
		}
		role := models.RoleBasicUser
		if s := c.Request.Header.Get("X-Test-Role"); s != "" {
			if r, err := strconv.Atoi(s); err == nil {
				role = models.Role(r)
			}
		}
		c.Set("userID", userID)
		c.Set("userRole", role)
		c.Next()
	}
}

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	_ = godotenv.Load("../../.env")
	cfg := config.LoadTesting()

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Skip("Тестовая база недоступна:", err)
	}
	storage.DB = db

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Subject{}, &models.QueueEntry{},
		&models.Poll{}, &models.Choice{}, &models.Vote{}, &models.Attendance{},
	))
	db.Exec("TRUNCATE TABLE users, subjects, queue_entries, polls, choices, votes, attendances RESTART IDENTITY CASCADE;")

	ledger := queue.NewLedger(db, cfg.Queue)
	subjectHandler := NewSubjectHandler(ledger, cfg.Queue)
	queueHandler := NewQueueHandler(ledger, ws.HubInstance)

	hubOnce.Do(func() { go ws.HubInstance.Run() })

	gin.SetMode(gin.TestMode)
	r := gin.New()

	api := r.Group("/api", authMiddlewareTest())
	{
		api.GET("/subjects", subjectHandler.List)
		api.POST("/subjects", auth.RequireRole(models.RoleAdmin), subjectHandler.Create)
		api.POST("/subjects/access", auth.RequireRole(models.RoleModerator), subjectHandler.ModifyAccess)
		api.POST("/queue", queueHandler.Join)
		api.GET("/queue", auth.RequireSubjectFilter(), queueHandler.List)
		api.DELETE("/queue/:slug", queueHandler.Leave)
	}

	return httptest.NewServer(r)
}

func seedUser(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()
	user := models.User{
		Username:       username,
		FirstName:      "Анна",
		LastName:       "Смирнова",
		PasswordHash:   "x",
		PersonalCipher: "c-" + username,
		Role:           role,
	}
	require.NoError(t, storage.DB.Create(&user).Error)
	return &user
}

func seedSubject(t *testing.T, title string, isOpen bool) *models.Subject {
	t.Helper()
	subject := models.Subject{Title: title, IsOpen: isOpen}
	require.NoError(t, storage.DB.Create(&subject).Error)
	return &subject
}

func doRequest(t *testing.T, srv *httptest.Server, method, path string, body interface{}, userID uint, role models.Role) *http.Response {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-UserID", strconv.Itoa(int(userID)))
	req.Header.Set("X-Test-Role", strconv.Itoa(int(role)))
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeError(t *testing.T, resp *http.Response) (code, message string) {
	t.Helper()
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	return body.Code, body.Message
}

func TestJoinLeaveFlow(t *testing.T) {
	srv := setupTestServer(t)
	defer srv.Close()

	user := seedUser(t, "student1", models.RoleBasicUser)
	subject := seedSubject(t, "Операционные системы", true)

	resp := doRequest(t, srv, http.MethodPost, "/api/queue",
		gin.H{"subject_slug": subject.Slug}, user.ID, user.Role)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Повторное вступление отбивается с фиксированным сообщением.
	resp = doRequest(t, srv, http.MethodPost, "/api/queue",
		gin.H{"subject_slug": subject.Slug}, user.ID, user.Role)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	code, message := decodeError(t, resp)
	assert.Equal(t, "DUPLICATE_ENTRY", code)
	assert.Equal(t, "You are already in queue on this subject", message)

	resp = doRequest(t, srv, http.MethodDelete, "/api/queue/"+subject.Slug,
		nil, user.ID, user.Role)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, srv, http.MethodDelete, "/api/queue/"+subject.Slug,
		nil, user.ID, user.Role)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	code, _ = decodeError(t, resp)
	assert.Equal(t, "NOT_IN_QUEUE", code)
}

func TestJoinClosedSubjectRejected(t *testing.T) {
	srv := setupTestServer(t)
	defer srv.Close()

	user := seedUser(t, "student1", models.RoleBasicUser)
	subject := seedSubject(t, "Базы данных", false)

	resp := doRequest(t, srv, http.MethodPost, "/api/queue",
		gin.H{"subject_slug": subject.Slug}, user.ID, user.Role)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	code, _ := decodeError(t, resp)
	assert.Equal(t, "ADMISSION_CLOSED", code)
}

func TestListRequiresSubjectFilter(t *testing.T) {
	srv := setupTestServer(t)
	defer srv.Close()

	user := seedUser(t, "student1", models.RoleBasicUser)

	resp := doRequest(t, srv, http.MethodGet, "/api/queue", nil, user.ID, user.Role)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	code, _ := decodeError(t, resp)
	assert.Equal(t, "SUBJECT_FILTER_REQUIRED", code)
}

func TestListBySubjectShape(t *testing.T) {
	srv := setupTestServer(t)
	defer srv.Close()

	userA := seedUser(t, "studentA", models.RoleBasicUser)
	userB := seedUser(t, "studentB", models.RoleBasicUser)
	subject := seedSubject(t, "Теория вероятностей", true)

	for _, u := range []*models.User{userA, userB} {
		resp := doRequest(t, srv, http.MethodPost, "/api/queue",
			gin.H{"subject_slug": subject.Slug}, u.ID, u.Role)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := doRequest(t, srv, http.MethodGet, "/api/queue?subject="+subject.Slug,
		nil, userA.ID, userA.Role)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot queue.SubjectQueue
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapshot))
	resp.Body.Close()

	assert.Equal(t, subject.Slug, snapshot.SubjectSlug)
	assert.Equal(t, "Теория вероятностей", snapshot.SubjectName)
	assert.True(t, snapshot.IsOpen)
	require.Len(t, snapshot.QueuePersons, 2)
	assert.Equal(t, "studentA", snapshot.QueuePersons[0].Username)
	assert.Equal(t, "Анна Смирнова", snapshot.QueuePersons[0].UserFullname)
	assert.Equal(t, "studentB", snapshot.QueuePersons[1].Username)
}

func TestModifyAccessRoles(t *testing.T) {
	srv := setupTestServer(t)
	defer srv.Close()

	student := seedUser(t, "student1", models.RoleBasicUser)
	moderator := seedUser(t, "moderator1", models.RoleModerator)
	subject := seedSubject(t, "Схемотехника", true)

	// Обычному пользователю закрывать очередь нельзя.
	resp := doRequest(t, srv, http.MethodPost, "/api/subjects/access",
		gin.H{"subject_slug": subject.Slug, "is_open": false}, student.ID, student.Role)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	code, _ := decodeError(t, resp)
	assert.Equal(t, "FORBIDDEN", code)

	resp = doRequest(t, srv, http.MethodPost, "/api/subjects/access",
		gin.H{"subject_slug": subject.Slug, "is_open": false}, moderator.ID, moderator.Role)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var updated models.Subject
	require.NoError(t, storage.DB.Where("slug = ?", subject.Slug).First(&updated).Error)
	assert.False(t, updated.IsOpen)
}

func TestCreateSubjectConflict(t *testing.T) {
	srv := setupTestServer(t)
	defer srv.Close()

	admin := seedUser(t, "admin1", models.RoleAdmin)
	seedSubject(t, "История", true)

	resp := doRequest(t, srv, http.MethodPost, "/api/subjects",
		gin.H{"title": "История"}, admin.ID, admin.Role)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	code, _ := decodeError(t, resp)
	assert.Equal(t, "SLUG_CONFLICT", code)
}
