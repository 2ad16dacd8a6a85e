package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"llm-chat/internal/domain"
)

// currentUser devuelve el id del usuario autenticado o responde 401.
func currentUser(c *gin.Context) (string, bool) {
	userID, ok := AuthUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

// pageQuery lee ?page=&size=; valores inválidos usan los por defecto.
func pageQuery(c *gin.Context) domain.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("size"))
	return domain.Page{Number: page, Size: size}.Normalize()
}
