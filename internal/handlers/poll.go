package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"group_assist/internal/models"
	"group_assist/internal/response"
	"group_assist/internal/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PollHandler struct{}

func NewPollHandler() *PollHandler {
	return &PollHandler{}
}

type CreatePollRequest struct {
	Title   string   `json:"title" binding:"required,max=200"`
	Choices []string `json:"choices" binding:"required,min=2,dive,required,max=200"`
}

type ChoiceResponse struct {
	ID    uint   `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

type PollResponse struct {
	ID      uint             `json:"id"`
	Title   string           `json:"title"`
	Choices []ChoiceResponse `json:"choices"`
}

// @Summary		Список опросов
// @Description	Возвращает список опросов с вариантами и счётчиками голосов
// @Tags			polls
// @Produce		json
// @Security		BearerAuth
// @Success		200	{array}		PollResponse			"Список опросов"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/polls [get]
func (h *PollHandler) List(c *gin.Context) {
	var polls []models.Poll
	if err := storage.DB.Preload("Choices").Order("id ASC").Find(&polls).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки опросов",
		})
		return
	}

	result := make([]PollResponse, 0, len(polls))
	for i := range polls {
		result = append(result, toPollResponse(&polls[i]))
	}
	c.JSON(http.StatusOK, result)
}

// @Summary		Создание опроса
// @Description	Создаёт опрос с вариантами ответов
// @Tags			polls
// @Accept			json
// @Produce		json
// @Param			poll	body	CreatePollRequest	true	"Данные опроса"
// @Security		BearerAuth
// @Success		201	{object}	PollResponse			"Опрос создан"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR)"
// @Failure		403	{object}	response.ErrorResponse	"Недостаточно прав (FORBIDDEN)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/polls [post]
func (h *PollHandler) Create(c *gin.Context) {
	var req CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	poll := models.Poll{Title: req.Title}
	for _, text := range req.Choices {
		poll.Choices = append(poll.Choices, models.Choice{Text: text})
	}

	if err := storage.DB.Create(&poll).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при создании опроса",
		})
		return
	}

	c.JSON(http.StatusCreated, toPollResponse(&poll))
}

// @Summary		Получение опроса
// @Description	Возвращает опрос по ID
// @Tags			polls
// @Produce		json
// @Param			id	path	int	true	"ID опроса"
// @Security		BearerAuth
// @Success		200	{object}	PollResponse			"Опрос"
// @Failure		404	{object}	response.ErrorResponse	"Опрос не найден (POLL_NOT_FOUND)"
// @Router			/api/polls/{id} [get]
func (h *PollHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_POLL_ID",
			Message: "Неверный идентификатор опроса",
		})
		return
	}

	var poll models.Poll
	if err := storage.DB.Preload("Choices").First(&poll, id).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "POLL_NOT_FOUND",
			Message: "Опрос не найден",
		})
		return
	}
	c.JSON(http.StatusOK, toPollResponse(&poll))
}

// @Summary		Удаление опроса
// @Description	Удаляет опрос вместе с вариантами и голосами
// @Tags			polls
// @Param			id	path	int	true	"ID опроса"
// @Security		BearerAuth
// @Success		204	"Опрос удалён"
// @Failure		404	{object}	response.ErrorResponse	"Опрос не найден (POLL_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/polls/{id} [delete]
func (h *PollHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_POLL_ID",
			Message: "Неверный идентификатор опроса",
		})
		return
	}

	var poll models.Poll
	if err := storage.DB.First(&poll, id).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "POLL_NOT_FOUND",
			Message: "Опрос не найден",
		})
		return
	}

	if err := storage.DB.Unscoped().Delete(&poll).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при удалении опроса",
		})
		return
	}
	c.Status(http.StatusNoContent)
}

type VoteRequest struct {
	ChoiceID uint `json:"choice_id" binding:"required"`
}

// @Summary		Проголосовать
// @Description	Оставляет голос текущего пользователя за вариант. Один голос на опрос
// @Tags			polls
// @Accept			json
// @Produce		json
// @Param			vote	body	VoteRequest	true	"ID варианта"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Голос учтён"
// @Failure		400	{object}	response.ErrorResponse		"Пользователь уже голосовал (ALREADY_VOTED)"
// @Failure		404	{object}	response.ErrorResponse		"Вариант не найден (CHOICE_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse		"Ошибка сервера (DB_ERROR)"
// @Router			/api/polls/vote [post]
func (h *PollHandler) Vote(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	var choice models.Choice
	if err := storage.DB.First(&choice, req.ChoiceID).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "CHOICE_NOT_FOUND",
			Message: "Вариант ответа не найден",
		})
		return
	}

	userID := c.GetUint("userID")

	// Голос и счётчик обновляются в одной транзакции. Повторный голос в том же
	// опросе ловится уникальным индексом (poll_id, user_id).
	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		vote := models.Vote{
			PollID:   choice.PollID,
			ChoiceID: choice.ID,
			UserID:   userID,
		}
		if err := tx.Create(&vote).Error; err != nil {
			return err
		}
		return tx.Model(&models.Choice{}).
			Where("id = ?", choice.ID).
			Update("votes", gorm.Expr("votes + 1")).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "ALREADY_VOTED",
				Message: "Вы уже голосовали в этом опросе",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при сохранении голоса",
		})
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Голос учтён"})
}

func toPollResponse(p *models.Poll) PollResponse {
	choices := make([]ChoiceResponse, 0, len(p.Choices))
	for _, choice := range p.Choices {
		choices = append(choices, ChoiceResponse{
			ID:    choice.ID,
			Text:  choice.Text,
			Votes: choice.Votes,
		})
	}
	return PollResponse{ID: p.ID, Title: p.Title, Choices: choices}
}
