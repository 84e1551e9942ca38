package http

import (
	"net/http"

	"github.com/mido200912/Ai-Thor/domain/dto"
	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/usecase"

	"github.com/gin-gonic/gin"
)

type IIntegrationHandler interface {
	MetaLogin(c *gin.Context)
	MetaCallback(c *gin.Context)
	ShopifyLogin(c *gin.Context)
	ShopifyCallback(c *gin.Context)
	DataDeletion(c *gin.Context)
	Status(c *gin.Context)
}

type IntegrationHandler struct {
	linkUsecase     usecase.ILinkUsecase
	deletionUsecase usecase.IDeletionUsecase
}

func NewIntegrationHandler(linkUsecase usecase.ILinkUsecase, deletionUsecase usecase.IDeletionUsecase) IIntegrationHandler {
	return &IntegrationHandler{linkUsecase: linkUsecase, deletionUsecase: deletionUsecase}
}

func (h *IntegrationHandler) MetaLogin(c *gin.Context) {
	target, err := h.linkUsecase.MetaLogin(c.Request.Context(), c.Query("companyId"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

func (h *IntegrationHandler) ShopifyLogin(c *gin.Context) {
	target, err := h.linkUsecase.ShopifyLogin(c.Request.Context(), c.Query("companyId"), c.Query("shop"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

func (h *IntegrationHandler) MetaCallback(c *gin.Context) {
	target, err := h.linkUsecase.MetaCallback(c.Request.Context(), callbackRequest(c))
	h.finishCallback(c, target, err)
}

func (h *IntegrationHandler) ShopifyCallback(c *gin.Context) {
	target, err := h.linkUsecase.ShopifyCallback(c.Request.Context(), callbackRequest(c))
	h.finishCallback(c, target, err)
}

// finishCallback redirects whenever the usecase produced a dashboard URL,
// including the error outcome.
func (h *IntegrationHandler) finishCallback(c *gin.Context, target string, err error) {
	if target != "" {
		c.Redirect(http.StatusFound, target)
		return
	}
	if err == nil {
		err = model.ErrInternal
	}
	abortWithError(c, err)
}

func callbackRequest(c *gin.Context) model.CallbackRequest {
	return model.CallbackRequest{
		Code:          c.Query("code"),
		State:         c.Query("state"),
		ProviderError: c.Query("error"),
		Shop:          c.Query("shop"),
		RawQuery:      c.Request.URL.Query(),
	}
}

// DataDeletion accepts the signed_request as a form field or query parameter.
func (h *IntegrationHandler) DataDeletion(c *gin.Context) {
	signed := c.PostForm("signed_request")
	if signed == "" {
		signed = c.Query("signed_request")
	}
	res, err := h.deletionUsecase.RequestDeletion(c.Request.Context(), signed)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Status lists the caller's integrations without secrets.
func (h *IntegrationHandler) Status(c *gin.Context) {
	list, err := h.linkUsecase.Status(c.Request.Context(), c.GetString("company_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: list})
}
