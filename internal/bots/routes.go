package bots

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the shared webhook endpoint at path on the given router.
func RegisterRoutes(r chi.Router, path string, g *Gateway) {
	r.Post(path, g.HandleWebhook)
	r.Options(path, g.HandleWebhook)
}
