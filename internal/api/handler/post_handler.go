package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hanru_board/internal/api/middleware"
	"hanru_board/internal/app/service"
	"hanru_board/internal/common"
)

type PostHandler struct {
	postService *service.PostService
	pageService *service.PageService
}

func NewPostHandler(ps *service.PostService, pages *service.PageService) *PostHandler {
	return &PostHandler{postService: ps, pageService: pages}
}

func (h *PostHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listPosts)               // GET /api/v1/posts?category=free&page=2
	r.Get("/{postID}", h.getPost)         // GET /api/v1/posts/{id}
	r.Get("/{postID}/page", h.renderPost) // GET /api/v1/posts/{id}/page?mode=both

	r.Group(func(authRouter chi.Router) {
		authRouter.Use(middleware.Authenticator)
		authRouter.Post("/", h.createPost)
		authRouter.Put("/{postID}", h.updatePost)
		authRouter.Delete("/{postID}", h.deletePost)
	})
}

func (h *PostHandler) createPost(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.postService.CreatePost(r.Context(), middleware.GetViewer(r.Context()), req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) listPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := h.postService.ListPosts(r.Context(), middleware.GetViewer(r.Context()), service.ListPostsQuery{
		CategorySlug: q.Get("category"),
		Page:         page,
		PageSize:     pageSize,
	})
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *PostHandler) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.GetPost(r.Context(), middleware.GetViewer(r.Context()), chi.URLParam(r, "postID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, post)
}

func (h *PostHandler) renderPost(w http.ResponseWriter, r *http.Request) {
	html, err := h.pageService.RenderPost(r.Context(), middleware.GetViewer(r.Context()), chi.URLParam(r, "postID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithHTML(w, http.StatusOK, html)
}

func (h *PostHandler) updatePost(w http.ResponseWriter, r *http.Request) {
	var req service.UpdatePostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.postService.UpdatePost(r.Context(), middleware.GetViewer(r.Context()), chi.URLParam(r, "postID"), req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, post)
}

func (h *PostHandler) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.postService.DeletePost(r.Context(), middleware.GetViewer(r.Context()), chi.URLParam(r, "postID")); err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
