package handlers

import (
	"net/http"

	"github.com/hugh/adopt-a-pet/internal/session"
)

type HomeHandler struct {
	render *Renderer
}

func NewHomeHandler(render *Renderer) *HomeHandler {
	return &HomeHandler{render: render}
}

func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).LoggedIn() {
		h.render.HTML(w, r, http.StatusOK, "home.html", &Page{Title: "Adopt a Pet"})
		return
	}
	h.render.HTML(w, r, http.StatusOK, "home-anon.html", &Page{Title: "Adopt a Pet"})
}

func (h *HomeHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render.NotFound(w, r, "")
}
