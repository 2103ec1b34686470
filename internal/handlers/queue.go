package handlers

import (
	"errors"
	"net/http"
	"time"

	"group_assist/internal/queue"
	"group_assist/internal/response"
	"group_assist/internal/ws"

	"github.com/gin-gonic/gin"
)

type QueueHandler struct {
	ledger *queue.Ledger
	hub    *ws.Hub
}

func NewQueueHandler(ledger *queue.Ledger, hub *ws.Hub) *QueueHandler {
	return &QueueHandler{ledger: ledger, hub: hub}
}

type JoinQueueRequest struct {
	SubjectSlug string `json:"subject_slug" binding:"required"`
}

type JoinQueueResponse struct {
	SubjectSlug string    `json:"subject_slug"`
	Timestamp   time.Time `json:"timestamp"`
}

// @Summary		Встать в очередь
// @Description	Ставит текущего пользователя в очередь предмета. Запись всегда создаётся на пользователя сессии
// @Tags			queue
// @Accept			json
// @Produce		json
// @Param			queue	body	JoinQueueRequest	true	"Slug предмета"
// @Security		BearerAuth
// @Success		201	{object}	JoinQueueResponse		"Пользователь встал в очередь"
// @Failure		400	{object}	response.ErrorResponse	"Очередь закрыта (ADMISSION_CLOSED) или пользователь уже в очереди (DUPLICATE_ENTRY)"
// @Failure		404	{object}	response.ErrorResponse	"Предмет не найден (SUBJECT_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/queue [post]
func (h *QueueHandler) Join(c *gin.Context) {
	var req JoinQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	userID := c.GetUint("userID")
	entry, err := h.ledger.Join(c.Request.Context(), req.SubjectSlug, userID)
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrSubjectNotFound):
			c.JSON(http.StatusNotFound, response.ErrorResponse{
				Code:    "SUBJECT_NOT_FOUND",
				Message: "Предмет не найден",
			})
		case errors.Is(err, queue.ErrAdmissionClosed):
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "ADMISSION_CLOSED",
				Message: "Запись в очередь по этому предмету закрыта",
			})
		case errors.Is(err, queue.ErrDuplicateEntry):
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "DUPLICATE_ENTRY",
				Message: queue.ErrDuplicateEntry.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{
				Code:    "DB_ERROR",
				Message: "Ошибка добавления в очередь",
				Details: err.Error(),
			})
		}
		return
	}

	h.hub.BroadcastWSMessage(ws.WSMessage{
		EventType:   "user_joined",
		SubjectSlug: entry.Subject.Slug,
		Data: map[string]interface{}{
			"user_id":   userID,
			"timestamp": entry.Timestamp,
		},
	})

	c.JSON(http.StatusCreated, JoinQueueResponse{
		SubjectSlug: entry.Subject.Slug,
		Timestamp:   entry.Timestamp,
	})
}

// @Summary		Выйти из очереди
// @Description	Убирает запись текущего пользователя из очереди предмета. Чужие записи недоступны
// @Tags			queue
// @Produce		json
// @Param			slug	path	string	true	"Slug предмета"
// @Security		BearerAuth
// @Success		204	"Пользователь вышел из очереди"
// @Failure		404	{object}	response.ErrorResponse	"Предмет или запись не найдены (SUBJECT_NOT_FOUND, NOT_IN_QUEUE)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/queue/{slug} [delete]
func (h *QueueHandler) Leave(c *gin.Context) {
	subjectSlug := c.Param("slug")
	userID := c.GetUint("userID")

	if err := h.ledger.Leave(c.Request.Context(), subjectSlug, userID); err != nil {
		switch {
		case errors.Is(err, queue.ErrSubjectNotFound):
			c.JSON(http.StatusNotFound, response.ErrorResponse{
				Code:    "SUBJECT_NOT_FOUND",
				Message: "Предмет не найден",
			})
		case errors.Is(err, queue.ErrEntryNotFound):
			c.JSON(http.StatusNotFound, response.ErrorResponse{
				Code:    "NOT_IN_QUEUE",
				Message: "Запись в очереди не найдена",
			})
		default:
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{
				Code:    "DB_ERROR",
				Message: "Ошибка при выходе из очереди",
				Details: err.Error(),
			})
		}
		return
	}

	h.hub.BroadcastWSMessage(ws.WSMessage{
		EventType:   "user_left",
		SubjectSlug: subjectSlug,
		Data: map[string]interface{}{
			"user_id": userID,
		},
	})

	c.Status(http.StatusNoContent)
}

// @Summary		Получить очередь предмета
// @Description	Возвращает людей в очереди по slug предмета в порядке вступления. Например: /api/queue/?subject=ost
// @Tags			queue
// @Produce		json
// @Param			subject	query	string	true	"Slug предмета"
// @Security		BearerAuth
// @Success		200	{object}	queue.SubjectQueue		"Очередь предмета"
// @Failure		400	{object}	response.ErrorResponse	"Не указан параметр subject (SUBJECT_FILTER_REQUIRED)"
// @Failure		404	{object}	response.ErrorResponse	"Предмет не найден (SUBJECT_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/queue [get]
func (h *QueueHandler) List(c *gin.Context) {
	subjectSlug := c.Query("subject")

	snapshot, err := h.ledger.ListBySubject(c.Request.Context(), subjectSlug)
	if err != nil {
		if errors.Is(err, queue.ErrSubjectNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{
				Code:    "SUBJECT_NOT_FOUND",
				Message: "Предмет не найден",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки очереди",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
