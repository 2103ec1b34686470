package tasks

import (
	"context"
	"log"
	"time"

	"group_assist/internal/queue"

	"github.com/robfig/cron/v3"
)

// PurgeStaleQueueEntries удаляет записи очередей, простоявшие дольше ttl.
// Очереди живут в рамках одного учебного дня, наутро они должны быть пустыми.
func PurgeStaleQueueEntries(ledger *queue.Ledger, ttl time.Duration) {
	removed, err := ledger.PurgeStale(context.Background(), ttl)
	if err != nil {
		log.Println("Ошибка при очистке устаревших записей очереди:", err)
		return
	}
	if removed > 0 {
		log.Printf("Удалено устаревших записей очереди: %d\n", removed)
	}
}

// InitScheduler инициализирует планировщик cron-задач.
func InitScheduler(ledger *queue.Ledger, ttl time.Duration) *cron.Cron {
	c := cron.New(cron.WithSeconds())

	// Очистка устаревших записей очередей каждый день в 03:00.
	_, err := c.AddFunc("0 0 3 * * *", func() {
		PurgeStaleQueueEntries(ledger, ttl)
	})
	if err != nil {
		log.Println("Ошибка запуска cron-задачи PurgeStaleQueueEntries:", err)
	}

	c.Start()
	log.Println("Cron-планировщик запущен.")
	return c
}
