package http

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/streamchat/internal/router"
)

// DefaultPolicy is served at /crossdomain.xml when no policy file is configured.
const DefaultPolicy = `<?xml version="1.0"?>
<!DOCTYPE cross-domain-policy SYSTEM "http://www.adobe.com/xml/dtds/cross-domain-policy.dtd">
<cross-domain-policy>
  <allow-access-from domain="*" to-ports="*"/>
</cross-domain-policy>
`

// RoomRouter answers room lookups.
type RoomRouter interface {
	Lookup(roomID string, mayCreate bool) (router.Decision, error)
	Snapshot() router.Snapshot
}

// LookupHandlers serves the room lookup API.
type LookupHandlers struct {
	router RoomRouter
	policy []byte
	log    *zerolog.Logger
}

// NewLookupHandlers creates lookup handlers. An empty policyFile selects DefaultPolicy.
func NewLookupHandlers(rt RoomRouter, policyFile string, logger *zerolog.Logger) (*LookupHandlers, error) {
	policy := []byte(DefaultPolicy)
	if policyFile != "" {
		data, err := os.ReadFile(policyFile)
		if err != nil {
			return nil, fmt.Errorf("read policy file: %w", err)
		}
		policy = data
	}
	return &LookupHandlers{router: rt, policy: policy, log: logger}, nil
}

// PortResponse carries the worker port for a room.
type PortResponse struct {
	Port int `json:"port"`
}

// RedirectResponse tells the client the room is not open yet.
type RedirectResponse struct {
	Redirect bool `json:"redirect"`
}

// Lookup resolves a room to its worker port.
// GET /?roomId=...  (append /create or ?create=1 to allow placement)
func (h *LookupHandlers) Lookup(c *gin.Context) {
	roomID := c.Query("roomId")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "roomId is required"})
		return
	}

	decision, err := h.router.Lookup(roomID, mayCreate(c))
	if err != nil {
		if errors.Is(err, router.ErrNoWorkers) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "no workers available"})
			return
		}
		h.log.Error().Err(err).Str("room", roomID).Msg("room lookup failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if decision.Redirect {
		c.JSON(http.StatusOK, RedirectResponse{Redirect: true})
		return
	}
	c.JSON(http.StatusOK, PortResponse{Port: decision.Port})
}

// Policy serves the cross-domain policy document.
// GET /crossdomain.xml
func (h *LookupHandlers) Policy(c *gin.Context) {
	c.Data(http.StatusOK, "application/xml", h.policy)
}

// Stats exposes worker statistics and the assignment table.
// GET /stats
func (h *LookupHandlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.router.Snapshot())
}

func mayCreate(c *gin.Context) bool {
	for _, seg := range strings.Split(c.Request.URL.Path, "/") {
		if seg == "create" {
			return true
		}
	}
	v, ok := c.GetQuery("create")
	return ok && v != "0" && v != "false"
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}
