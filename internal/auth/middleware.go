package auth

import (
	"net/http"
	"strings"

	"group_assist/internal/models"
	"group_assist/internal/response"
	"group_assist/internal/storage"

	"github.com/gin-gonic/gin"
)

// Middleware проверяет access токен и кладёт в контекст идентичность сессии.
// Роль читается из базы на каждый запрос: операции Join/Leave всегда действуют
// от имени пользователя сессии, клиентский user_id нигде не принимается.
func Middleware(tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "NO_AUTH_HEADER",
				Message: "Требуется авторизация",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := tokens.ParseAccessToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "INVALID_TOKEN",
				Message: "Неверный или просроченный токен",
			})
			c.Abort()
			return
		}

		var user models.User
		if err := storage.DB.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "USER_NOT_FOUND",
				Message: "Пользователь не найден",
			})
			c.Abort()
			return
		}

		c.Set("userID", user.ID)
		c.Set("userRole", user.Role)
		c.Next()
	}
}

// RequireRole пропускает только пользователей с ролью не ниже required.
// Иерархия ролей — линейный порядок, без цепочек отдельных проверок.
func RequireRole(required models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.MustGet("userRole").(models.Role)
		if !ok || !role.AtLeast(required) {
			c.JSON(http.StatusForbidden, response.ErrorResponse{
				Code:    "FORBIDDEN",
				Message: "Недостаточно прав для выполнения операции",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSubjectFilter требует query-параметр subject на безопасных методах.
// Списки очереди и посещаемости без фильтра по предмету не отдаются.
func RequireSubjectFilter() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet && c.Query("subject") == "" {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "SUBJECT_FILTER_REQUIRED",
				Message: "Необходимо указать параметр subject",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
