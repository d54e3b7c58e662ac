package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/emotalk/backend/internal/handler/chat"
	"github.com/zhouzirui/emotalk/backend/internal/handler/corpus"
	"github.com/zhouzirui/emotalk/backend/internal/handler/speech"
	"github.com/zhouzirui/emotalk/backend/internal/middleware"
	"github.com/zhouzirui/emotalk/backend/internal/model/counseling"
	speechservice "github.com/zhouzirui/emotalk/backend/internal/service/speech"
	"github.com/zhouzirui/emotalk/backend/pkg/utils"
)

// Deps 路由依赖的核心服务。
type Deps struct {
	Session chat.Session
	Speech  *speechservice.Service
	Corpus  counseling.Store
	Models  []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		chat.New(deps.Session, deps.Speech, deps.Models).RegisterRoutes(api)
		corpus.New(deps.Corpus).RegisterRoutes(api)
		speech.New(deps.Speech).RegisterRoutes(api)
	})

	return r
}
