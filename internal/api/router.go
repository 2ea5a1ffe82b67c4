package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"

	"hanru_board/internal/api/handler"
	"hanru_board/internal/api/middleware"
	"hanru_board/internal/app/service"
	"hanru_board/internal/common/security"
)

type Services struct {
	Auth          *service.AuthService
	Categories    *service.CategoryService
	Posts         *service.PostService
	Pages         *service.PageService
	Preferences   *service.PreferenceService
	Translations  *service.TranslationService
	WebhookSecret string
}

func NewRouter(s Services) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Looks for "Authorization: Bearer T"; handlers decide whether a token is required.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		translationHandler := handler.NewTranslationHandler(s.Translations, s.WebhookSecret)

		// Machine to machine, no viewer
		v1.Route("/webhook", translationHandler.RegisterWebhookRoutes)

		v1.Group(func(site chi.Router) {
			site.Use(middleware.OptionalAuth)
			site.Use(middleware.ViewerContext(s.Preferences))

			authHandler := handler.NewAuthHandler(s.Auth)
			authHandler.RegisterRoutes(site)

			categoryHandler := handler.NewCategoryHandler(s.Categories)
			site.Route("/categories", categoryHandler.RegisterRoutes)

			postHandler := handler.NewPostHandler(s.Posts, s.Pages)
			site.Route("/posts", postHandler.RegisterRoutes)

			preferenceHandler := handler.NewPreferenceHandler(s.Preferences)
			site.Route("/preferences", preferenceHandler.RegisterRoutes)

			site.Route("/translate", translationHandler.RegisterTranslateRoutes)
		})
	})

	return r
}
