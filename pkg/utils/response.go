// en pkg/utils/response.go
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse es el cuerpo de error de los endpoints que no son listados.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PageResponse es el sobre de los listados paginados. NextCursor es nil
// (null en JSON) en la última página.
type PageResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	NextCursor *string     `json:"nextCursor"`
	HasMore    bool        `json:"hasMore"`
	Error      string      `json:"error,omitempty"`
}

// SendSuccess envía una respuesta exitosa con el payload tal cual.
func SendSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// SendList envía {success: true, data: [...]}.
func SendList(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// SendOK envía {success: true}.
func SendOK(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SendPage envía una página del listado.
func SendPage(c *gin.Context, data interface{}, nextCursor string, hasMore bool) {
	resp := PageResponse{Success: true, Data: data, HasMore: hasMore}
	if nextCursor != "" {
		resp.NextCursor = &nextCursor
	}
	c.JSON(http.StatusOK, resp)
}

// SendPageError envía un listado fallido: sin datos, sin cursor y con el motivo.
func SendPageError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, PageResponse{
		Success: false,
		Data:    []interface{}{},
		Error:   message,
	})
}

// SendError envía una respuesta de error con un formato estandarizado.
func SendError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorResponse{Error: message})
}

// --- Helpers específicos para errores comunes ---

func SendBadRequest(c *gin.Context, message string) {
	SendError(c, http.StatusBadRequest, message)
}

func SendUnauthorized(c *gin.Context, message string) {
	SendError(c, http.StatusUnauthorized, message)
}

func SendForbidden(c *gin.Context, message string) {
	SendError(c, http.StatusForbidden, message)
}

func SendNotFound(c *gin.Context, message string) {
	SendError(c, http.StatusNotFound, message)
}

func SendInternalServerError(c *gin.Context, message string) {
	SendError(c, http.StatusInternalServerError, message)
}
