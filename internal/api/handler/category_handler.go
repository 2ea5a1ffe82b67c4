package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hanru_board/internal/api/middleware"
	"hanru_board/internal/app/service"
	"hanru_board/internal/common"
)

type CategoryHandler struct {
	categoryService *service.CategoryService
}

func NewCategoryHandler(cs *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: cs}
}

func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listCategories)            // GET /api/v1/categories
	r.Get("/{categorySlug}", h.getCategory) // GET /api/v1/categories/free
}

func (h *CategoryHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.ListCategories(r.Context(), middleware.GetViewer(r.Context()))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) getCategory(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "categorySlug")
	category, err := h.categoryService.GetCategory(r.Context(), middleware.GetViewer(r.Context()), slug)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, category)
}
