package handlers

import (
	"net/http"

	"github.com/venuebook/venuebook/libs/httpx"
)

// Register mounts the public availability endpoint. limit wraps only this
// route and may be nil.
func (h *AvailabilityHandler) Register(mux *http.ServeMux, limit httpx.Middleware) {
	mux.Handle("GET /venues/{id}/availability", httpx.Chain(http.HandlerFunc(h.Check), limit))
}

func (h *BookingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /bookings", h.Create)
	mux.HandleFunc("GET /bookings", h.List)
	mux.HandleFunc("POST /bookings/{id}/confirm", h.Confirm)
	mux.HandleFunc("POST /bookings/{id}/complete", h.Complete)
	mux.HandleFunc("POST /bookings/{id}/cancel", h.Cancel)
}
