package http

import (
	"net/http"

	"github.com/mido200912/Ai-Thor/usecase"

	"github.com/gin-gonic/gin"
)

type IWidgetHandler interface {
	Script(c *gin.Context)
}

type WidgetHandler struct {
	widgetUsecase usecase.IWidgetUsecase
}

func NewWidgetHandler(widgetUsecase usecase.IWidgetUsecase) IWidgetHandler {
	return &WidgetHandler{widgetUsecase: widgetUsecase}
}

func (h *WidgetHandler) Script(c *gin.Context) {
	script, err := h.widgetUsecase.Script(c.Query("companyId"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "application/javascript", script)
}
