package corpus

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/emotalk/backend/internal/model/counseling"
	"github.com/zhouzirui/emotalk/backend/pkg/utils"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Handler 语料查询的HTTP处理器
type Handler struct {
	store counseling.Store
}

// New 创建语料处理器
func New(store counseling.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册语料相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/corpus", func(cr chi.Router) {
		cr.Get("/stats", h.handleStats)
		cr.Get("/records", h.handleListRecords)
		cr.Get("/records/{personaID}", h.handlePersonaRecords)
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.store.Stats())
}

type recordPage struct {
	Total   int                 `json:"total"`
	Offset  int                 `json:"offset"`
	Limit   int                 `json:"limit"`
	Records []counseling.Record `json:"records"`
}

// handleListRecords 分页列出记录，可按情绪过滤。
func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	offset, err := parseNonNegative(query.Get("offset"), 0)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, err := parseNonNegative(query.Get("limit"), defaultLimit)
	if err != nil || limit == 0 {
		utils.RespondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	records := h.store.FilterByEmotion(query.Get("emotion"))
	page := recordPage{Total: len(records), Offset: offset, Limit: limit, Records: []counseling.Record{}}
	if offset < len(records) {
		end := offset + limit
		if end > len(records) {
			end = len(records)
		}
		page.Records = records[offset:end]
	}

	utils.RespondJSON(w, http.StatusOK, page)
}

func (h *Handler) handlePersonaRecords(w http.ResponseWriter, r *http.Request) {
	personaID := chi.URLParam(r, "personaID")

	records := h.store.FindByPersonaID(personaID)
	if len(records) == 0 {
		utils.RespondError(w, http.StatusNotFound, "persona not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, records)
}

func parseNonNegative(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, strconv.ErrRange
	}
	return v, nil
}
