package api

import (
	"net/http"
	"strconv"

	"vocab-api/internal/content"
	"vocab-api/internal/response"
	"vocab-api/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// datasetAliases maps URL names onto dataset names
var datasetAliases = map[string]string{
	"ows":             content.OWS,
	"iph":             content.IPH,
	"synonyms":        content.Synonyms,
	"antonyms":        content.Antonyms,
	"top200-ows":      content.Top200OWS,
	"top200-iph":      content.Top200IPH,
	"top200-synonyms": content.Top200Synonyms,
	"top200-antonyms": content.Top200Antonyms,
	"top200ows":       content.Top200OWS,
	"top200iph":       content.Top200IPH,
	"top200synonyms":  content.Top200Synonyms,
	"top200antonyms":  content.Top200Antonyms,
}

// Overview returns dataset counts
func (h *Handler) Overview(c *gin.Context) {
	response.SuccessJSON(c, h.library.Overview())
}

// WordOfTheDay returns today's word
func (h *Handler) WordOfTheDay(c *gin.Context) {
	entry, ok := h.library.WordOfTheDay(h.now())
	if !ok {
		response.ErrorJSON(c, http.StatusNotFound, apperrors.CodeNotFound, "No word of the day available")
		return
	}
	response.SuccessJSON(c, entry)
}

// ListVocab returns one page of a dataset's entries for a letter
// GET /api/vocab/:dataset/:letter?page=1&pageSize=50
func (h *Handler) ListVocab(c *gin.Context) {
	name, ok := datasetAliases[c.Param("dataset")]
	if !ok {
		response.ErrorJSON(c, http.StatusNotFound, apperrors.CodeNotFound, "Unknown dataset")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
	entries := h.library.Dataset(name).Letter(c.Param("letter"))
	response.SuccessJSON(c, content.Paginate(entries, page, pageSize))
}
