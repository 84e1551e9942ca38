package realtime

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/domain/repository"

	"github.com/gin-gonic/gin"
)

const linkStatusEvent = "integration_status"

// Hub maintains per-company subscribers listening for link status events.
type Hub struct {
	mu        sync.RWMutex
	companies map[string]map[chan model.LinkEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{companies: make(map[string]map[chan model.LinkEvent]struct{})}
}

// Serve registers an SSE stream for the authenticated company (company_id set by middleware).
func (h *Hub) Serve(c *gin.Context) {
	companyID := c.GetString("company_id")
	if companyID == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering
	c.Status(http.StatusOK)

	ch := make(chan model.LinkEvent, 8)
	h.addSubscriber(companyID, ch)
	defer h.removeSubscriber(companyID, ch)

	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case evt := <-ch:
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			_, _ = c.Writer.Write([]byte("event: " + linkStatusEvent + "\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Hub) addSubscriber(companyID string, ch chan model.LinkEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.companies[companyID] == nil {
		h.companies[companyID] = make(map[chan model.LinkEvent]struct{})
	}
	h.companies[companyID][ch] = struct{}{}
}

func (h *Hub) removeSubscriber(companyID string, ch chan model.LinkEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.companies[companyID]; subs != nil {
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.companies, companyID)
		}
	}
}

// Subscribers reports how many streams are open for a company.
func (h *Hub) Subscribers(companyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.companies[companyID])
}

// BroadcastLink delivers to every stream of the event's company. Slow
// subscribers miss events rather than block the callback.
func (h *Hub) BroadcastLink(evt model.LinkEvent) {
	if evt.Type == "" {
		evt.Type = linkStatusEvent
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.companies[evt.CompanyID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

var _ repository.ILinkBroadcaster = (*Hub)(nil)
