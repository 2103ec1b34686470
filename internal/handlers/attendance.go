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

type AttendanceHandler struct{}

func NewAttendanceHandler() *AttendanceHandler {
	return &AttendanceHandler{}
}

type CreateAttendanceRequest struct {
	SubjectSlug        string `json:"subject_slug" binding:"required"`
	StudentID          uint   `json:"student_id" binding:"required"`
	LessonSerialNumber int    `json:"lesson_serial_number" binding:"required,min=1,max=32"`
	IsPresent          bool   `json:"is_present"`
}

type UpdateAttendanceRequest struct {
	IsPresent *bool `json:"is_present" binding:"required"`
}

type AttendanceResponse struct {
	ID                 uint   `json:"id"`
	SubjectSlug        string `json:"subject_slug"`
	StudentUsername    string `json:"student_username"`
	StudentFullname    string `json:"student_fullname"`
	LessonSerialNumber int    `json:"lesson_serial_number"`
	IsPresent          bool   `json:"is_present"`
}

// @Summary		Получение посещаемости
// @Description	Возвращает отметки посещаемости по slug предмета. Например: /api/attendance/?subject=ost
// @Tags			attendance
// @Produce		json
// @Param			subject	query	string	true	"Slug предмета"
// @Security		BearerAuth
// @Success		200	{array}		AttendanceResponse		"Отметки посещаемости"
// @Failure		400	{object}	response.ErrorResponse	"Не указан параметр subject (SUBJECT_FILTER_REQUIRED)"
// @Failure		404	{object}	response.ErrorResponse	"Предмет не найден (SUBJECT_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var subject models.Subject
	if err := storage.DB.Where("slug = ?", c.Query("subject")).First(&subject).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "SUBJECT_NOT_FOUND",
			Message: "Предмет не найден",
		})
		return
	}

	var marks []models.Attendance
	if err := storage.DB.
		Preload("Student").
		Where("subject_id = ?", subject.ID).
		Order("lesson_serial_number ASC, id ASC").
		Find(&marks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки посещаемости",
		})
		return
	}

	result := make([]AttendanceResponse, 0, len(marks))
	for i := range marks {
		result = append(result, toAttendanceResponse(&marks[i], subject.Slug))
	}
	c.JSON(http.StatusOK, result)
}

// @Summary		Отметка посещения
// @Description	Ставит отметку посещения студенту. lesson_serial_number — порядковый номер пары (1..32)
// @Tags			attendance
// @Accept			json
// @Produce		json
// @Param			attendance	body	CreateAttendanceRequest	true	"Данные отметки"
// @Security		BearerAuth
// @Success		201	{object}	AttendanceResponse		"Отметка создана"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR) или отметка уже есть (ATTENDANCE_EXISTS)"
// @Failure		403	{object}	response.ErrorResponse	"Недостаточно прав (FORBIDDEN)"
// @Failure		404	{object}	response.ErrorResponse	"Предмет или студент не найдены (SUBJECT_NOT_FOUND, USER_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/attendance [post]
func (h *AttendanceHandler) Create(c *gin.Context) {
	var req CreateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	var subject models.Subject
	if err := storage.DB.Where("slug = ?", req.SubjectSlug).First(&subject).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "SUBJECT_NOT_FOUND",
			Message: "Предмет не найден",
		})
		return
	}

	var student models.User
	if err := storage.DB.First(&student, req.StudentID).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "USER_NOT_FOUND",
			Message: "Студент не найден",
		})
		return
	}

	mark := models.Attendance{
		SubjectID:          subject.ID,
		StudentID:          student.ID,
		LessonSerialNumber: req.LessonSerialNumber,
		IsPresent:          req.IsPresent,
	}

	if err := storage.DB.Create(&mark).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "ATTENDANCE_EXISTS",
				Message: "Отметка для этого студента и пары уже существует",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при создании отметки",
		})
		return
	}

	mark.Student = student
	c.JSON(http.StatusCreated, toAttendanceResponse(&mark, subject.Slug))
}

// @Summary		Изменение отметки посещения
// @Description	Меняет флаг is_present существующей отметки
// @Tags			attendance
// @Accept			json
// @Produce		json
// @Param			id			path	int						true	"ID отметки"
// @Param			attendance	body	UpdateAttendanceRequest	true	"Новое состояние"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Отметка обновлена"
// @Failure		404	{object}	response.ErrorResponse		"Отметка не найдена (ATTENDANCE_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse		"Ошибка сервера (DB_ERROR)"
// @Router			/api/attendance/{id} [put]
func (h *AttendanceHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_ATTENDANCE_ID",
			Message: "Неверный идентификатор отметки",
		})
		return
	}

	var req UpdateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	res := storage.DB.Model(&models.Attendance{}).
		Where("id = ?", id).
		Update("is_present", *req.IsPresent)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при обновлении отметки",
		})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "ATTENDANCE_NOT_FOUND",
			Message: "Отметка не найдена",
		})
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Отметка обновлена"})
}

// @Summary		Удаление отметки посещения
// @Description	Удаляет отметку посещаемости по ID
// @Tags			attendance
// @Param			id	path	int	true	"ID отметки"
// @Security		BearerAuth
// @Success		204	"Отметка удалена"
// @Failure		404	{object}	response.ErrorResponse	"Отметка не найдена (ATTENDANCE_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_ATTENDANCE_ID",
			Message: "Неверный идентификатор отметки",
		})
		return
	}

	var mark models.Attendance
	if err := storage.DB.First(&mark, id).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "ATTENDANCE_NOT_FOUND",
			Message: "Отметка не найдена",
		})
		return
	}

	if err := storage.DB.Unscoped().Delete(&mark).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при удалении отметки",
		})
		return
	}
	c.Status(http.StatusNoContent)
}

func toAttendanceResponse(a *models.Attendance, subjectSlug string) AttendanceResponse {
	return AttendanceResponse{
		ID:                 a.ID,
		SubjectSlug:        subjectSlug,
		StudentUsername:    a.Student.Username,
		StudentFullname:    a.Student.FullName(),
		LessonSerialNumber: a.LessonSerialNumber,
		IsPresent:          a.IsPresent,
	}
}
