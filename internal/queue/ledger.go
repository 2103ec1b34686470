package queue

import (
	"context"
	"errors"
	"time"

	"group_assist/internal/config"
	"group_assist/internal/models"

	"gorm.io/gorm"
)

// Ledger хранит текущее членство в очередях и следит за инвариантами:
// не больше одной записи на пару (предмет, пользователь), вступление только
// в открытый предмет, стабильный порядок выдачи.
type Ledger struct {
	db  *gorm.DB
	cfg config.QueueConfig
}

func NewLedger(db *gorm.DB, cfg config.QueueConfig) *Ledger {
	return &Ledger{db: db, cfg: cfg}
}

// CanJoin — политика допуска: вступить можно только в открытый предмет.
// Проверяется по состоянию предмета, прочитанному в рамках той же операции.
func CanJoin(subject *models.Subject) bool {
	return subject.IsOpen
}

// Join ставит пользователя в очередь по slug предмета.
// Предварительная проверка на дубль — только быстрый путь: гонку двух
// одновременных вступлений разрешает уникальный индекс (subject_id, user_id),
// и нарушение индекса переводится в ErrDuplicateEntry.
func (l *Ledger) Join(ctx context.Context, subjectSlug string, userID uint) (*models.QueueEntry, error) {
	var subject models.Subject
	if err := l.db.WithContext(ctx).Where("slug = ?", subjectSlug).First(&subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}

	if !CanJoin(&subject) {
		return nil, ErrAdmissionClosed
	}

	var existing models.QueueEntry
	err := l.db.WithContext(ctx).
		Where("subject_id = ? AND user_id = ?", subject.ID, userID).
		First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateEntry
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	entry := models.QueueEntry{SubjectID: subject.ID, UserID: userID}
	if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEntry
		}
		return nil, err
	}

	entry.Subject = subject
	return &entry, nil
}

// Leave убирает запись текущего пользователя из очереди предмета.
// Поиск сразу ограничен (subject, user): чужие записи отсюда не видны.
func (l *Ledger) Leave(ctx context.Context, subjectSlug string, userID uint) error {
	var subject models.Subject
	if err := l.db.WithContext(ctx).Where("slug = ?", subjectSlug).First(&subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubjectNotFound
		}
		return err
	}

	var entry models.QueueEntry
	err := l.db.WithContext(ctx).
		Where("subject_id = ? AND user_id = ?", subject.ID, userID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryNotFound
		}
		return err
	}

	// Удаляем без soft delete: помеченная строка осталась бы в уникальном
	// индексе и блокировала бы повторное вступление.
	return l.db.WithContext(ctx).Unscoped().Delete(&entry).Error
}

// QueuePerson — один человек в очереди.
type QueuePerson struct {
	Username     string    `json:"username"`
	UserFullname string    `json:"user_fullname"`
	Timestamp    time.Time `json:"timestamp"`
}

// SubjectQueue — снимок очереди предмета на момент запроса.
type SubjectQueue struct {
	SubjectSlug  string        `json:"subject_slug"`
	SubjectName  string        `json:"subject_name"`
	IsOpen       bool          `json:"is_open"`
	QueuePersons []QueuePerson `json:"queue_persons"`
}

// ListBySubject возвращает очередь предмета в порядке вступления (id, timestamp).
func (l *Ledger) ListBySubject(ctx context.Context, subjectSlug string) (*SubjectQueue, error) {
	var subject models.Subject
	if err := l.db.WithContext(ctx).Where("slug = ?", subjectSlug).First(&subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}

	var entries []models.QueueEntry
	if err := l.db.WithContext(ctx).
		Preload("User").
		Where("subject_id = ?", subject.ID).
		Order("id ASC, timestamp ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	persons := make([]QueuePerson, 0, len(entries))
	for _, entry := range entries {
		persons = append(persons, QueuePerson{
			Username:     entry.User.Username,
			UserFullname: entry.User.FullName(),
			Timestamp:    entry.Timestamp,
		})
	}

	return &SubjectQueue{
		SubjectSlug:  subject.Slug,
		SubjectName:  subject.Title,
		IsOpen:       subject.IsOpen,
		QueuePersons: persons,
	}, nil
}

// SetSubjectOpen переключает флаг is_open предмета. Существующие записи
// не трогаются: закрытие блокирует только новые вступления.
func (l *Ledger) SetSubjectOpen(ctx context.Context, subjectSlug string, isOpen bool) error {
	res := l.db.WithContext(ctx).
		Model(&models.Subject{}).
		Where("slug = ?", subjectSlug).
		Update("is_open", isOpen)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSubjectNotFound
	}
	return nil
}

// PurgeStale удаляет записи старше ttl. Используется ночной задачей обслуживания.
func (l *Ledger) PurgeStale(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl)
	res := l.db.WithContext(ctx).
		Unscoped().
		Where("timestamp < ?", threshold).
		Delete(&models.QueueEntry{})
	return res.RowsAffected, res.Error
}
