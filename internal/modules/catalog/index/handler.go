package index

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/plughub/core/internal/models"
	"github.com/plughub/core/internal/pkg/response"
	"github.com/plughub/core/internal/pkg/richtext"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// Handler exposes the catalog index over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	g := rg.Group("/catalog/:kind")
	g.GET("", h.list)
	g.GET("/category/:category", h.listByCategory)
	g.GET("/search", h.search)
	g.GET("/by-user", h.byUser)
	g.GET("/slug/:slug", h.bySlug)
	g.GET("/slug/:slug/message", h.message)

	admin := g.Group("", adminMW)
	admin.POST("", h.publish)
	admin.PATCH("/slug/:slug", h.update)
	admin.DELETE("/slug/:slug", h.remove)
}

// kindParam validates the :kind segment against the known collections.
func kindParam(c *gin.Context) (string, bool) {
	kind := c.Param("kind")
	if kind != models.CollectionPlugins && kind != models.CollectionIconPacks {
		response.NotFoundMsg(c, "unknown collection")
		return "", false
	}
	return kind, true
}

// GET /catalog/:kind
func (h *Handler) list(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.svc.ListPublished(c.Request.Context(), kind, limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, entries)
}

// GET /catalog/:kind/category/:category
func (h *Handler) listByCategory(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	entries, err := h.svc.ListByCategory(c.Request.Context(), kind, c.Param("category"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, entries)
}

// GET /catalog/:kind/search?q=&limit=
func (h *Handler) search(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	entries, err := h.svc.Search(c.Request.Context(), kind, c.Query("q"), limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, entries)
}

// GET /catalog/:kind/by-user?user_id=&handle=
func (h *Handler) byUser(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	userID, _ := strconv.ParseInt(c.Query("user_id"), 10, 64)
	handle := c.Query("handle")
	if userID == 0 && handle == "" {
		response.BadRequest(c, "user_id or handle is required")
		return
	}
	entries, err := h.svc.FindByUser(c.Request.Context(), kind, userID, handle)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, entries)
}

// GET /catalog/:kind/slug/:slug
func (h *Handler) bySlug(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	entry, err := h.svc.FindBySlug(c.Request.Context(), kind, c.Param("slug"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if entry == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, entry)
}

// GET /catalog/:kind/slug/:slug/message — the entry's post body converted to
// plain text plus formatting entities, ready for republication.
func (h *Handler) message(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	entry, err := h.svc.FindBySlug(c.Request.Context(), kind, c.Param("slug"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if entry == nil {
		response.NotFound(c)
		return
	}
	source := entry.SourceRichText
	if source == "" {
		source = entry.SourceText
	}
	text, entities := richtext.Remap(source)
	response.OK(c, gin.H{"text": text, "entities": entities})
}

// POST /catalog/:kind
func (h *Handler) publish(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	var entry models.CatalogEntryModel
	if err := c.ShouldBindJSON(&entry); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if entry.Status == "" {
		entry.Status = models.StatusPublished
	}
	if err := h.svc.Publish(c.Request.Context(), kind, &entry); err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}
	response.Created(c, &entry)
}

// PATCH /catalog/:kind/slug/:slug
func (h *Handler) update(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	var patch models.CatalogEntryModel
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	updated, err := h.svc.Update(c.Request.Context(), kind, c.Param("slug"), &patch)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if updated == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, updated)
}

// DELETE /catalog/:kind/slug/:slug
func (h *Handler) remove(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	removed, err := h.svc.Delete(c.Request.Context(), kind, c.Param("slug"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !removed {
		response.NotFound(c)
		return
	}
	response.NoContent(c)
}
