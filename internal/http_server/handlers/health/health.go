package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "notehd/internal/lib/api/response"
	"notehd/internal/lib/logger/sl"

	"github.com/go-chi/render"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// New reports 200 while every dependency answers a ping, 503 otherwise.
func New(log *slog.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.health.New"

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				log.Warn("dependency unhealthy", slog.String("op", op), slog.String("dependency", name), sl.Err(err))

				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, resp.Error(name+" unavailable"))

				return
			}
		}

		render.JSON(w, r, resp.OK())
	}
}
