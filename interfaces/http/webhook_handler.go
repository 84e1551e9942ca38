package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/mido200912/Ai-Thor/infrastructure/clients/meta"
	"github.com/mido200912/Ai-Thor/infrastructure/clients/shopify"
	"github.com/mido200912/Ai-Thor/infrastructure/logger"
	"github.com/mido200912/Ai-Thor/usecase"

	"github.com/gin-gonic/gin"
)

type IWebhookHandler interface {
	Meta(c *gin.Context)
	Shopify(c *gin.Context)
}

type WebhookHandler struct {
	webhookUsecase usecase.IWebhookUsecase
}

func NewWebhookHandler(webhookUsecase usecase.IWebhookUsecase) IWebhookHandler {
	return &WebhookHandler{webhookUsecase: webhookUsecase}
}

// Meta serves both the subscription handshake and event deliveries on
// either method. Only hub.mode=subscribe with a non-empty hub.verify_token is
// a handshake; everything else is a delivery. A GET carries no delivery and
// is acknowledged without publishing.
func (h *WebhookHandler) Meta(c *gin.Context) {
	mode, token := c.Query("hub.mode"), c.Query("hub.verify_token")
	if mode == "subscribe" && token != "" {
		challenge, err := h.webhookUsecase.VerifyMetaSubscription(mode, token, c.Query("hub.challenge"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.String(http.StatusOK, challenge)
		return
	}
	if c.Request.Method == http.MethodGet {
		c.String(http.StatusOK, "OK")
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}
	if err := h.webhookUsecase.HandleMetaEvent(c.Request.Context(), body, c.GetHeader(meta.SignatureHeader)); err != nil {
		abortWithError(c, err)
		return
	}
	c.String(http.StatusOK, "OK")
}

func (h *WebhookHandler) Shopify(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	delivery := usecase.ShopifyDelivery{
		Topic:     c.GetHeader(shopify.TopicHeader),
		Shop:      c.GetHeader(shopify.ShopHeader),
		WebhookID: c.GetHeader(shopify.WebhookIDHeader),
		HMAC:      c.GetHeader(shopify.HmacHeader),
	}
	if err := h.webhookUsecase.HandleShopifyEvent(c.Request.Context(), body, delivery); err != nil {
		abortWithError(c, err)
		return
	}
	c.String(http.StatusOK, "OK")
}

// readBody returns the raw bytes the signature is computed over.
func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatus(http.StatusRequestEntityTooLarge)
			return nil, false
		}
		logger.GetLogger().WithField("error", err).Error("Failed to read webhook body")
		c.AbortWithStatus(http.StatusInternalServerError)
		return nil, false
	}
	return body, true
}
