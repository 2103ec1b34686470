package handlers

import (
	"crypto/rand"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"group_assist/internal/models"
	"group_assist/internal/response"
	"group_assist/internal/storage"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

type CreateUserRequest struct {
	Username       string `json:"username" binding:"required"`
	FirstName      string `json:"first_name" binding:"required"`
	LastName       string `json:"last_name" binding:"required"`
	PersonalCipher string `json:"personal_cipher" binding:"required,max=16"`
	Role           int    `json:"role" binding:"required"`
}

type UserResponse struct {
	ID             uint   `json:"id"`
	Username       string `json:"username"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	PersonalCipher string `json:"personal_cipher"`
	Role           int    `json:"role"`
}

// CreatedUserResponse содержит сгенерированный пароль, он показывается один раз.
type CreatedUserResponse struct {
	UserResponse
	Password string `json:"password"`
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generatePassword(length int) (string, error) {
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordAlphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// @Summary		Создание пользователя
// @Description	Создание нового пользователя администратором, пароль генерируется и возвращается один раз
// @Tags			users
// @Accept			json
// @Produce		json
// @Param			user	body		CreateUserRequest	true	"Данные пользователя"
// @Security		BearerAuth
// @Success		201	{object}	CreatedUserResponse		"Пользователь создан"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR, INVALID_ROLE) или логин/шифр заняты (USER_EXISTS)"
// @Failure		403	{object}	response.ErrorResponse	"Недостаточно прав (FORBIDDEN)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (PASSWORD_HASH_ERROR, DB_ERROR)"
// @Router			/api/users/create [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	role := models.Role(req.Role)
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_ROLE",
			Message: "Роль должна быть от 1 (пользователь) до 3 (админ)",
		})
		return
	}

	password, err := generatePassword(12)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "PASSWORD_GENERATION_ERROR",
			Message: "Ошибка при генерации пароля",
		})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "PASSWORD_HASH_ERROR",
			Message: "Ошибка при хешировании пароля",
		})
		return
	}

	user := models.User{
		Username:       req.Username,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		PasswordHash:   string(hashedPassword),
		PersonalCipher: req.PersonalCipher,
		Role:           role,
	}

	if err := storage.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "USER_EXISTS",
				Message: "Пользователь с таким логином или шифром уже существует",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при создании пользователя",
		})
		return
	}

	c.JSON(http.StatusCreated, CreatedUserResponse{
		UserResponse: toUserResponse(&user),
		Password:     password,
	})
}

// @Summary		Список пользователей
// @Description	Возвращает список пользователей
// @Tags			users
// @Produce		json
// @Security		BearerAuth
// @Success		200	{array}		UserResponse			"Список пользователей"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/users [get]
func (h *UserHandler) List(c *gin.Context) {
	var users []models.User
	if err := storage.DB.Order("id ASC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки пользователей",
		})
		return
	}

	result := make([]UserResponse, 0, len(users))
	for i := range users {
		result = append(result, toUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, result)
}

// @Summary		Получение пользователя
// @Description	Возвращает сведения о пользователе по ID
// @Tags			users
// @Produce		json
// @Param			id	path	int	true	"ID пользователя"
// @Security		BearerAuth
// @Success		200	{object}	UserResponse			"Пользователь"
// @Failure		404	{object}	response.ErrorResponse	"Пользователь не найден (USER_NOT_FOUND)"
// @Router			/api/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_USER_ID",
			Message: "Неверный идентификатор пользователя",
		})
		return
	}

	var user models.User
	if err := storage.DB.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "USER_NOT_FOUND",
			Message: "Пользователь не найден",
		})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(&user))
}

// @Summary		Текущий пользователь
// @Description	Возвращает сведения о пользователе текущей сессии
// @Tags			users
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	UserResponse			"Пользователь"
// @Failure		404	{object}	response.ErrorResponse	"Пользователь не найден (USER_NOT_FOUND)"
// @Router			/api/users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	userID := c.GetUint("userID")

	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "USER_NOT_FOUND",
			Message: "Пользователь не найден",
		})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(&user))
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Username:       u.Username,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		PersonalCipher: u.PersonalCipher,
		Role:           int(u.Role),
	}
}
