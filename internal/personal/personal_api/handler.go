package personal_api

import (
	"net/http"

	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/logger"
	"ms-festbuzz/internal/personal"
	"ms-festbuzz/internal/utils"

	"github.com/go-chi/chi/v5"
)

const defaultMostViewed = 5

type Handler struct {
	Service *personal.Service
	Logger  *logger.Logger
}

func NewHandler(service *personal.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/wishlist", func(r chi.Router) {
		r.Get("/", h.Wishlist)
		r.Delete("/", h.ClearWishlist)
		r.Get("/count", h.WishlistCount)
		r.Get("/check/{festId}", h.InWishlist)
		r.Post("/{festId}", h.AddToWishlist)
		r.Delete("/{festId}", h.RemoveFromWishlist)
	})
	r.Route("/recently-viewed", func(r chi.Router) {
		r.Get("/", h.RecentlyViewed)
		r.Delete("/", h.ClearViews)
		r.Get("/most-viewed", h.MostViewed)
		r.Post("/{festId}", h.RecordView)
		r.Delete("/{festId}", h.RemoveView)
	})
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func (h *Handler) Wishlist(w http.ResponseWriter, r *http.Request) {
	items, page, err := h.Service.Wishlist(r.Context(), principal(r), utils.PageFromQuery(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Wishlist", map[string]any{"items": items, "pagination": page})
}

func (h *Handler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.AddToWishlist(r.Context(), principal(r), chi.URLParam(r, "festId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Added to wishlist", item)
}

func (h *Handler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.RemoveFromWishlist(r.Context(), principal(r), chi.URLParam(r, "festId")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Removed from wishlist", nil)
}

func (h *Handler) InWishlist(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Service.InWishlist(r.Context(), principal(r), chi.URLParam(r, "festId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Wishlist check", map[string]bool{"in_wishlist": ok})
}

func (h *Handler) WishlistCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.Service.WishlistCount(r.Context(), principal(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Wishlist count", map[string]int{"count": n})
}

func (h *Handler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	n, err := h.Service.ClearWishlist(r.Context(), principal(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Wishlist cleared", map[string]int{"removed": n})
}

func (h *Handler) RecordView(w http.ResponseWriter, r *http.Request) {
	rv, err := h.Service.RecordView(r.Context(), principal(r), chi.URLParam(r, "festId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "View recorded", rv)
}

func (h *Handler) RecentlyViewed(w http.ResponseWriter, r *http.Request) {
	items, page, err := h.Service.RecentlyViewed(r.Context(), principal(r), utils.PageFromQuery(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Recently viewed", map[string]any{"items": items, "pagination": page})
}

func (h *Handler) MostViewed(w http.ResponseWriter, r *http.Request) {
	limit := defaultMostViewed
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := utils.IntParam("limit", v)
		if err != nil {
			utils.WriteError(w, err)
			return
		}
		limit = n
	}
	items, err := h.Service.MostViewed(r.Context(), principal(r), limit)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Most viewed", items)
}

func (h *Handler) RemoveView(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.RemoveView(r.Context(), principal(r), chi.URLParam(r, "festId")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Removed from history", nil)
}

func (h *Handler) ClearViews(w http.ResponseWriter, r *http.Request) {
	n, err := h.Service.ClearViews(r.Context(), principal(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "History cleared", map[string]int{"removed": n})
}
