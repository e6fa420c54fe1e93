package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/services"
)

type SearchHandler struct {
	log    *logger.Logger
	search services.SearchService
}

func NewSearchHandler(log *logger.Logger, search services.SearchService) *SearchHandler {
	return &SearchHandler{
		log:    log.With("handler", "SearchHandler"),
		search: search,
	}
}

// POST /search
func (h *SearchHandler) Handle(c *gin.Context) {
	var req services.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_search_body", err)
		return
	}

	resp, err := h.search.Search(c.Request.Context(), req)
	if err != nil {
		if services.ClassOf(err) == services.ClassValidation {
			RespondError(c, http.StatusBadRequest, "invalid_search_request", err)
			return
		}
		h.log.Error("Search failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "search_failed", err)
		return
	}
	RespondOK(c, resp)
}
