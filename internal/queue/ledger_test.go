package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"group_assist/internal/config"
	"group_assist/internal/models"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupTestLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()

	_ = godotenv.Load("../../.env")
	cfg := config.LoadTesting()

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Skip("Тестовая база недоступна:", err)
	}

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Subject{}, &models.QueueEntry{}))
	db.Exec("TRUNCATE TABLE users, subjects, queue_entries RESTART IDENTITY CASCADE;")

	return NewLedger(db, cfg.Queue), db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := models.User{
		Username:       username,
		FirstName:      "Иван",
		LastName:       "Петров",
		PasswordHash:   "x",
		PersonalCipher: "c-" + username,
		Role:           models.RoleBasicUser,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createTestSubject(t *testing.T, db *gorm.DB, title string, isOpen bool) *models.Subject {
	t.Helper()
	subject := models.Subject{Title: title, IsOpen: isOpen}
	require.NoError(t, db.Create(&subject).Error)
	return &subject
}

func TestJoinClosedSubject(t *testing.T) {
	ledger, db := setupTestLedger(t)
	ctx := context.Background()

	user := createTestUser(t, db, "student1")
	subject := createTestSubject(t, db, "Базы данных", false)

	_, err := ledger.Join(ctx, subject.Slug, user.ID)
	assert.ErrorIs(t, err, ErrAdmissionClosed)

	var count int64
	db.Model(&models.QueueEntry{}).Count(&count)
	assert.Equal(t, int64(0), count, "запись не должна создаваться при закрытой очереди")
}

func TestJoinUnknownSubject(t *testing.T) {
	ledger, db := setupTestLedger(t)
	user := createTestUser(t, db, "student1")

	_, err := ledger.Join(context.Background(), "no-such-subject", user.ID)
	assert.ErrorIs(t, err, ErrSubjectNotFound)
}

func TestDoubleJoin(t *testing.T) {
	ledger, db := setupTestLedger(t)
	ctx := context.Background()

	user := createTestUser(t, db, "student1")
	subject := createTestSubject(t, db, "Математический анализ", true)

	entry, err := ledger.Join(ctx, subject.Slug, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, entry.UserID)
	assert.False(t, entry.Timestamp.IsZero())

	_, err = ledger.Join(ctx, subject.Slug, user.ID)
	assert.ErrorIs(t, err, ErrDuplicateEntry)
	assert.Equal(t, "You are already in queue on this subject", err.Error())

	var count int64
	db.Model(&models.QueueEntry{}).Count(&count)
	assert.Equal(t, int64(1), count, "повторное вступление не должно создавать вторую запись")
}

func TestConstraintViolationTranslatedToDuplicate(t *testing.T) {
	ledger, db := setupTestLedger(t)
	ctx := context.Background()

	user := createTestUser(t, db, "student1")
	subject := createTestSubject(t, db, "Физика", true)

	// Запись вставлена в обход леджера: предварительная проверка в Join её
	// увидит, но здесь проверяем именно перевод ошибки индекса.
	require.NoError(t, db.Create(&models.QueueEntry{SubjectID: subject.ID, UserID: user.ID}).Error)

	err := db.Create(&models.QueueEntry{SubjectID: subject.ID, UserID: user.ID}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey, "уникальный индекс обязан отбить вторую вставку")

	_, err = ledger.Join(ctx, subject.Slug, user.ID)
	assert.ErrorIs(t, err, ErrDuplicateEntry)
}

func TestLeave(t *testing.T) {
	ledger, db := setupTestLedger(t)
	ctx := context.Background()

	user := createTestUser(t, db, "student1")
	subject := createTestSubject(t, db, "Теория вероятностей", true)

	_, err := ledger.Join(ctx, subject.Slug, user.ID)
	require.NoError(t, err)

	require.NoError(t, ledger.Leave(ctx, subject.Slug, user.ID))

	var count int64
	db.Model(&models.QueueEntry{}).Count(&count)
	assert.Equal(t, int64(0), count)

	err = ledger.Leave(ctx, subject.Slug, user.ID)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestLeaveDoesNotTouchOthers(t *testing.T) {
	ledger, db := setupTestLedger(t)
	ctx := context.Background()

	userA := createTestUser(t, db, "studentA")
	userB := createTestUser(t, db, "studentB")
	subject := createTestSubject(t, db, "Дискретная математика", true)

	_, err := ledger.Join(ctx, subject.Slug, userA.ID)
	require.NoError(t, err)

	// У B нет записи: его Leave не видит запись A.
	err = ledger.Leave(ctx, subject.Slug, userB.ID)
	assert.ErrorIs(t, err, ErrEntryNotFound)

	var count int64
	db.Model(&models.QueueEntry{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRejoinAfterLeave(t *testing.T) {
	ledger, db := setupTestLedger(t)
	ctx := context.Background()

	user := createTestUser(t, db, "student1")
	subject := createTestSubject(t, db, "Информатика", true)

	_, err := ledger.Join(ctx, subject.Slug, user.ID)
	require.NoError(t, err)
	require.NoError(t, ledger.Leave(ctx, subject.Slug, user.ID))

	_, err = ledger.Join(ctx, subject.Slug, user.ID)
	assert.NoError(t, err, "после выхода пользователь может встать в очередь снова")
}

func TestListBySubjectOrderAndIsolation(t *testing.T) {
	ledger, db := setupTestLedger(t)
	ctx := context.Background()

	userA := createTestUser(t, db, "studentA")
	userB := createTestUser(t, db, "studentB")
	userC := createTestUser(t, db, "studentC")
	subject := createTestSubject(t, db, "Операционные системы", true)
	other := createTestSubject(t, db, "Другой предмет", true)

	for _, u := range []*models.User{userA, userB, userC} {
		_, err := ledger.Join(ctx, subject.Slug, u.ID)
		require.NoError(t, err)
	}
	_, err := ledger.Join(ctx, other.Slug, userB.ID)
	require.NoError(t, err)

	snapshot, err := ledger.ListBySubject(ctx, subject.Slug)
	require.NoError(t, err)
	assert.Equal(t, subject.Slug, snapshot.SubjectSlug)
	assert.Equal(t, "Операционные системы", snapshot.SubjectName)
	assert.True(t, snapshot.IsOpen)
	require.Len(t, snapshot.QueuePersons, 3, "чужой предмет не должен попадать в выдачу")
	assert.Equal(t, "studentA", snapshot.QueuePersons[0].Username)
	assert.Equal(t, "studentB", snapshot.QueuePersons[1].Username)
	assert.Equal(t, "studentC", snapshot.QueuePersons[2].Username)
	assert.Equal(t, "Иван Петров", snapshot.QueuePersons[0].UserFullname)

	// Порядок стабилен между повторными чтениями без записей.
	again, err := ledger.ListBySubject(ctx, subject.Slug)
	require.NoError(t, err)
	assert.Equal(t, snapshot.QueuePersons, again.QueuePersons)
}

func TestCloseDoesNotEvict(t *testing.T) {
	ledger, db := setupTestLedger(t)
	ctx := context.Background()

	userA := createTestUser(t, db, "studentA")
	userB := createTestUser(t, db, "studentB")
	subject := createTestSubject(t, db, "Схемотехника", true)

	_, err := ledger.Join(ctx, subject.Slug, userA.ID)
	require.NoError(t, err)

	require.NoError(t, ledger.SetSubjectOpen(ctx, subject.Slug, false))

	_, err = ledger.Join(ctx, subject.Slug, userB.ID)
	assert.ErrorIs(t, err, ErrAdmissionClosed)

	snapshot, err := ledger.ListBySubject(ctx, subject.Slug)
	require.NoError(t, err)
	assert.False(t, snapshot.IsOpen)
	require.Len(t, snapshot.QueuePersons, 1, "закрытие не выгоняет уже стоящих в очереди")
	assert.Equal(t, "studentA", snapshot.QueuePersons[0].Username)
}

func TestSetSubjectOpenUnknown(t *testing.T) {
	ledger, _ := setupTestLedger(t)
	err := ledger.SetSubjectOpen(context.Background(), "no-such-subject", true)
	assert.ErrorIs(t, err, ErrSubjectNotFound)
}

func TestPurgeStale(t *testing.T) {
	ledger, db := setupTestLedger(t)
	ctx := context.Background()

	user := createTestUser(t, db, "student1")
	subject := createTestSubject(t, db, "История", true)

	entry, err := ledger.Join(ctx, subject.Slug, user.ID)
	require.NoError(t, err)

	// Свежая запись переживает очистку.
	removed, err := ledger.PurgeStale(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	db.Model(&models.QueueEntry{}).Where("id = ?", entry.ID).
		Update("timestamp", time.Now().Add(-48*time.Hour))

	removed, err = ledger.PurgeStale(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

// Сквозной сценарий: кириллическое название, вступление, дубль, закрытие,
// выход, пустая очередь.
func TestQueueScenario(t *testing.T) {
	ledger, db := setupTestLedger(t)
	ctx := context.Background()

	userA := createTestUser(t, db, "studentA")
	userB := createTestUser(t, db, "studentB")
	subject := createTestSubject(t, db, "Операционные системы", true)
	assert.Equal(t, "operatsionnye-sistemy", subject.Slug)

	entry, err := ledger.Join(ctx, subject.Slug, userA.ID)
	require.NoError(t, err)
	assert.Equal(t, userA.ID, entry.UserID)
	assert.False(t, entry.Timestamp.IsZero())

	_, err = ledger.Join(ctx, subject.Slug, userA.ID)
	require.ErrorIs(t, err, ErrDuplicateEntry)
	assert.Equal(t, "You are already in queue on this subject", err.Error())

	require.NoError(t, ledger.SetSubjectOpen(ctx, subject.Slug, false))

	_, err = ledger.Join(ctx, subject.Slug, userB.ID)
	assert.ErrorIs(t, err, ErrAdmissionClosed)

	require.NoError(t, ledger.Leave(ctx, subject.Slug, userA.ID))

	snapshot, err := ledger.ListBySubject(ctx, subject.Slug)
	require.NoError(t, err)
	assert.Empty(t, snapshot.QueuePersons)
}
