package api

import (
	"net/http"

	"github.com/JaimeStill/missive/internal/config"
	"github.com/JaimeStill/missive/internal/letters"
	"github.com/JaimeStill/missive/pkg/auth"
	"github.com/JaimeStill/missive/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) {
	h := domain.Letters.Handler()

	protected := h.Routes()
	protected.Middleware = append(protected.Middleware, auth.Middleware(runtime.Auth, runtime.Logger))

	routes.Register(
		mux,
		protected,
		h.PublicRoutes(),
	)
}

func publicBase(cfg *config.Config) string {
	return letters.PublicBase(cfg.Letters.PublicBaseURL, cfg.API.BasePath)
}
