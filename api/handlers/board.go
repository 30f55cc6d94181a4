package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/shared-board/backend/internal/directory"
	"github.com/shared-board/backend/internal/model"
	"github.com/shared-board/backend/internal/registry"
	"github.com/shared-board/backend/internal/ws"
)

// maxCreateAttempts bounds how often createNamed chases a moving name binding.
const maxCreateAttempts = 3

// BoardHandler handles board creation, websocket attachment and stats.
type BoardHandler struct {
	registry  *registry.Registry
	naming    directory.Directory
	wsHandler *ws.Handler
	publicURL string
}

// NewBoardHandler creates a new BoardHandler. Board paths are prefixed with
// publicURL when it is set.
func NewBoardHandler(reg *registry.Registry, naming directory.Directory, wsHandler *ws.Handler, publicURL string) *BoardHandler {
	return &BoardHandler{
		registry:  reg,
		naming:    naming,
		wsHandler: wsHandler,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// ServerStats is the response body of GET /stats.
type ServerStats struct {
	Boards int             `json:"boards"`
	IDs    []model.BoardID `json:"ids"`
}

// Create handles POST /create_board?name= - starts a board and returns its path.
// Without a name the board gets a fresh anonymous id.
func (h *BoardHandler) Create(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		id := model.NewBoardID()
		h.registry.ResolveOrCreate(id)
		c.String(http.StatusOK, h.boardURL(id))
		return
	}
	h.createNamed(c, name)
}

// BoardURL handles GET /api/board_url?name= - like Create, but a name is required.
func (h *BoardHandler) BoardURL(c *gin.Context) {
	h.createNamed(c, c.Query("name"))
}

// createNamed resolves name and starts its board. A teardown may release the
// name between the two steps, so the binding is read back and the whole
// sequence retried if it moved.
func (h *BoardHandler) createNamed(c *gin.Context, name string) {
	ctx := c.Request.Context()

	for attempt := 1; ; attempt++ {
		id, err := h.naming.Resolve(ctx, name)
		if err != nil {
			sendNamingError(c, err)
			return
		}

		h.registry.ResolveOrCreate(id)

		bound, err := h.naming.Lookup(ctx, name)
		if err == nil && bound == id {
			c.String(http.StatusOK, h.boardURL(id))
			return
		}
		if err != nil && !errors.Is(err, model.ErrBoardNotFound) {
			sendNamingError(c, err)
			return
		}

		log.Debug().Str("name", name).Str("board", string(id)).Int("attempt", attempt).Msg("board name released during create, retrying")
		if attempt == maxCreateAttempts {
			sendError(c, http.StatusServiceUnavailable, "BOARD_BUSY", "Board "+name+" is being released, try again")
			return
		}
	}
}

// Attach handles GET /boards/:id - upgrades to a websocket on a live board.
func (h *BoardHandler) Attach(c *gin.Context) {
	id := model.BoardID(c.Param("id"))

	sess, err := h.registry.Lookup(id)
	if err != nil {
		sendError(c, http.StatusNotFound, "BOARD_NOT_FOUND", "Board "+string(id)+" not found")
		return
	}

	if err := h.wsHandler.HandleConnection(c.Writer, c.Request, sess); err != nil {
		// The upgrader has already written the HTTP error.
		log.Debug().Err(err).Str("board", string(id)).Msg("websocket upgrade failed")
	}
}

// Stats handles GET /boards/:id/stats - returns a live board's summary.
func (h *BoardHandler) Stats(c *gin.Context) {
	id := model.BoardID(c.Param("id"))

	sess, err := h.registry.Lookup(id)
	if err != nil {
		sendError(c, http.StatusNotFound, "BOARD_NOT_FOUND", "Board "+string(id)+" not found")
		return
	}

	st, err := sess.Stats(c.Request.Context())
	if err != nil {
		if errors.Is(err, model.ErrBoardNotFound) {
			sendError(c, http.StatusNotFound, "BOARD_NOT_FOUND", "Board "+string(id)+" not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get board stats: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, st)
}

// ServerStats handles GET /stats - returns the live boards.
func (h *BoardHandler) ServerStats(c *gin.Context) {
	ids := h.registry.IDs()
	c.JSON(http.StatusOK, ServerStats{Boards: len(ids), IDs: ids})
}

// RegisterRoutes registers the board handler routes on a Gin router.
func (h *BoardHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/create_board", h.Create)
	r.GET("/api/board_url", h.BoardURL)
	r.GET("/stats", h.ServerStats)

	boards := r.Group("/boards")
	{
		boards.GET("/:id", h.Attach)
		boards.GET("/:id/stats", h.Stats)
	}
}

func (h *BoardHandler) boardURL(id model.BoardID) string {
	return h.publicURL + "/boards/" + string(id)
}
