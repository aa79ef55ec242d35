package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"notehd/internal/http_server/handlers/google"
	"notehd/internal/http_server/handlers/health"
	"notehd/internal/http_server/handlers/me"
	"notehd/internal/http_server/handlers/notes/create"
	"notehd/internal/http_server/handlers/notes/list"
	"notehd/internal/http_server/handlers/notes/remove"
	"notehd/internal/http_server/handlers/signin"
	"notehd/internal/http_server/handlers/signup"
	"notehd/internal/http_server/handlers/verify"
	"notehd/internal/middleware/authn"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
)

type Accounts interface {
	signup.SignupStarter
	signin.SigninStarter
	verify.ChallengeVerifier
	me.AccountProvider
	google.IdentityLinker
}

type Notes interface {
	list.NoteLister
	create.NoteCreator
	remove.NoteRemover
}

// GoogleRoutes is nil when Google sign-in is not configured.
type GoogleRoutes struct {
	Provider   google.Provider
	States     google.StateStore
	StateTTL   time.Duration
	SuccessURL string
	FailureURL string
}

type Deps struct {
	Log            *slog.Logger
	Accounts       Accounts
	Sessions       authn.Authenticator
	Notes          Notes
	Google         *GoogleRoutes
	AllowedOrigins []string
	Health         map[string]health.Pinger
}

func NewRouter(d Deps) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	requireAuth := authn.New(d.Log, d.Sessions)

	r.Get("/healthz", health.New(d.Log, d.Health))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", signup.New(d.Log, validate, d.Accounts))
		r.Post("/signin", signin.New(d.Log, validate, d.Accounts))
		r.Post("/verify", verify.New(d.Log, validate, d.Accounts))

		if g := d.Google; g != nil {
			r.Get("/google", google.Login(d.Log, g.Provider, g.States, g.StateTTL))
			r.Get("/google/callback",
				google.Callback(d.Log, g.Provider, g.States, d.Accounts, g.SuccessURL, g.FailureURL),
			)
		}

		r.With(requireAuth).Get("/me", me.New(d.Log, d.Accounts))
	})

	r.Route("/notes", func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/", list.New(d.Log, d.Notes))
		r.Post("/", create.New(d.Log, validate, d.Notes))
		r.Delete("/{id}", remove.New(d.Log, d.Notes))
	})

	return r
}
