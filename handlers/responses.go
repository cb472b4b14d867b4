package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func respondWithSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"message": message, "variant": "success"})
}

func respondWithError(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"message": message, "variant": "error"})
}
