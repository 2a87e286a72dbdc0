package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lukasstorck/dynamic-virtual-controller/internal/session"
)

func SetupRoutes(s *session.Supervisor, log *zap.Logger) http.Handler {
	a := New(s, log)
	r := chi.NewRouter()

	r.Get("/healthz", a.Healthz)
	r.Get("/status", a.Status)

	r.Post("/group/join", a.JoinGroup)
	r.Post("/group/leave", a.LeaveGroup)

	r.Post("/outputs/{id}/rename", a.RenameOutput)
	r.Post("/outputs/{id}/select", a.SelectOutput)
	r.Put("/slots/{slot}/preset", a.SelectPreset)

	r.Post("/user", a.UpdateUserData)

	r.Get("/keybinds", a.GetKeybinds)
	r.Put("/keybinds", a.PutKeybinds)

	r.Post("/keys", a.InjectKey)

	return r
}
