package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"group_assist/internal/config"
	"group_assist/internal/models"
	"group_assist/internal/queue"
	"group_assist/internal/response"
	"group_assist/internal/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const subjectsCacheKey = "subjects_all"

type SubjectHandler struct {
	ledger *queue.Ledger
	cfg    config.QueueConfig
}

func NewSubjectHandler(ledger *queue.Ledger, cfg config.QueueConfig) *SubjectHandler {
	return &SubjectHandler{ledger: ledger, cfg: cfg}
}

type CreateSubjectRequest struct {
	Title string `json:"title" binding:"required,max=128"`
}

type SubjectResponse struct {
	ID     uint   `json:"id"`
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	IsOpen bool   `json:"is_open"`
}

var ctx = context.Background()

// @Summary		Список предметов
// @Description	Возвращает список предметов, результат кэшируется в Redis
// @Tags			subjects
// @Produce		json
// @Security		BearerAuth
// @Success		200	{array}		SubjectResponse			"Список предметов"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/subjects [get]
func (h *SubjectHandler) List(c *gin.Context) {
	// Проверка кэша
	if storage.RedisClient != nil {
		cached, err := storage.RedisClient.Get(ctx, subjectsCacheKey).Result()
		if err == nil && cached != "" {
			var subjects []SubjectResponse
			if err := json.Unmarshal([]byte(cached), &subjects); err == nil {
				c.JSON(http.StatusOK, subjects)
				return
			}
		}
	}

	var subjects []models.Subject
	if err := storage.DB.Order("id ASC").Find(&subjects).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки предметов",
		})
		return
	}

	result := make([]SubjectResponse, 0, len(subjects))
	for i := range subjects {
		result = append(result, toSubjectResponse(&subjects[i]))
	}

	if storage.RedisClient != nil {
		if payload, err := json.Marshal(result); err == nil {
			storage.RedisClient.Set(ctx, subjectsCacheKey, string(payload), time.Hour)
		}
	}

	c.JSON(http.StatusOK, result)
}

// @Summary		Создание предмета
// @Description	Создаёт предмет, slug вычисляется из названия транслитерацией
// @Tags			subjects
// @Accept			json
// @Produce		json
// @Param			subject	body	CreateSubjectRequest	true	"Данные предмета"
// @Security		BearerAuth
// @Success		201	{object}	SubjectResponse			"Предмет создан"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR)"
// @Failure		409	{object}	response.ErrorResponse	"Название или slug уже заняты (SLUG_CONFLICT)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/subjects [post]
func (h *SubjectHandler) Create(c *gin.Context) {
	var req CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	subject := models.Subject{
		Title:  req.Title,
		IsOpen: h.cfg.SubjectsOpenByDefault,
	}

	if err := storage.DB.Create(&subject).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, response.ErrorResponse{
				Code:    "SLUG_CONFLICT",
				Message: "Предмет с таким названием или slug уже существует",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при создании предмета",
		})
		return
	}

	h.invalidateCache()
	c.JSON(http.StatusCreated, toSubjectResponse(&subject))
}

// @Summary		Получение предмета
// @Description	Возвращает предмет по slug
// @Tags			subjects
// @Produce		json
// @Param			slug	path	string	true	"Slug предмета"
// @Security		BearerAuth
// @Success		200	{object}	SubjectResponse			"Предмет"
// @Failure		404	{object}	response.ErrorResponse	"Предмет не найден (SUBJECT_NOT_FOUND)"
// @Router			/api/subjects/{slug} [get]
func (h *SubjectHandler) Get(c *gin.Context) {
	var subject models.Subject
	if err := storage.DB.Where("slug = ?", c.Param("slug")).First(&subject).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "SUBJECT_NOT_FOUND",
			Message: "Предмет не найден",
		})
		return
	}
	c.JSON(http.StatusOK, toSubjectResponse(&subject))
}

// @Summary		Удаление предмета
// @Description	Удаляет предмет вместе с его очередью и посещаемостью
// @Tags			subjects
// @Param			slug	path	string	true	"Slug предмета"
// @Security		BearerAuth
// @Success		204	"Предмет удалён"
// @Failure		404	{object}	response.ErrorResponse	"Предмет не найден (SUBJECT_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/subjects/{slug} [delete]
func (h *SubjectHandler) Delete(c *gin.Context) {
	var subject models.Subject
	if err := storage.DB.Where("slug = ?", c.Param("slug")).First(&subject).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "SUBJECT_NOT_FOUND",
			Message: "Предмет не найден",
		})
		return
	}

	// Реальное удаление строки, чтобы сработал каскад на записи очереди.
	if err := storage.DB.Unscoped().Delete(&subject).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при удалении предмета",
		})
		return
	}

	h.invalidateCache()
	c.Status(http.StatusNoContent)
}

type SubjectAccessRequest struct {
	SubjectSlug string `json:"subject_slug" binding:"required"`
	IsOpen      *bool  `json:"is_open" binding:"required"`
}

// @Summary		Открытие/закрытие очереди предмета
// @Description	Переключает флаг is_open. Закрытие блокирует только новые вступления, уже стоящие в очереди остаются
// @Tags			subjects
// @Accept			json
// @Produce		json
// @Param			access	body	SubjectAccessRequest	true	"Slug предмета и новое состояние"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Флаг обновлён"
// @Failure		400	{object}	response.ErrorResponse		"Ошибка валидации (VALIDATION_ERROR)"
// @Failure		403	{object}	response.ErrorResponse		"Недостаточно прав (FORBIDDEN)"
// @Failure		404	{object}	response.ErrorResponse		"Предмет не найден (SUBJECT_NOT_FOUND)"
// @Router			/api/subjects/access [post]
func (h *SubjectHandler) ModifyAccess(c *gin.Context) {
	var req SubjectAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	if err := h.ledger.SetSubjectOpen(c.Request.Context(), req.SubjectSlug, *req.IsOpen); err != nil {
		if errors.Is(err, queue.ErrSubjectNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{
				Code:    "SUBJECT_NOT_FOUND",
				Message: "Предмет не найден",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при обновлении предмета",
		})
		return
	}

	h.invalidateCache()
	c.JSON(http.StatusOK, response.SuccessResponse{
		Message: "Состояние очереди предмета обновлено",
	})
}

func (h *SubjectHandler) invalidateCache() {
	if storage.RedisClient != nil {
		storage.RedisClient.Del(ctx, subjectsCacheKey)
	}
}

func toSubjectResponse(s *models.Subject) SubjectResponse {
	return SubjectResponse{
		ID:     s.ID,
		Title:  s.Title,
		Slug:   s.Slug,
		IsOpen: s.IsOpen,
	}
}
