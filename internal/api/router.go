package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"robot_go/pkg/logger"
)

// DefaultBasePath é o prefixo das rotas do braço
const DefaultBasePath = "/api/robot"

// Router gerencia as rotas da API
type Router struct {
	handler     *Handler
	mux         *mux.Router
	basePath    string
	middlewares []Middleware
}

// NewRouter cria um novo router para a API
func NewRouter(handler *Handler, basePath string) *Router {
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimSuffix(basePath, "/")

	return &Router{
		handler:  handler,
		mux:      mux.NewRouter(),
		basePath: basePath,
		middlewares: []Middleware{
			RequestIDMiddleware,
			LoggingMiddleware,
			RecoveryMiddleware,
			CorsMiddleware,
		},
	}
}

// Setup configura todas as rotas
func (r *Router) Setup() {
	api := r.mux.PathPrefix(r.basePath).Subrouter()
	h := r.handler

	api.HandleFunc("/status", h.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/position", h.GetPosition).Methods(http.MethodGet)
	api.HandleFunc("/envelope", h.GetEnvelope).Methods(http.MethodGet)
	api.HandleFunc("/connection", h.GetConnection).Methods(http.MethodGet)
	api.HandleFunc("/cache", h.GetCache).Methods(http.MethodGet)

	api.HandleFunc("/connect", h.Connect).Methods(http.MethodPost)
	api.HandleFunc("/disconnect", h.Disconnect).Methods(http.MethodPost)
	api.HandleFunc("/move", h.Move).Methods(http.MethodPost)
	api.HandleFunc("/move-relative", h.MoveRelative).Methods(http.MethodPost)
	api.HandleFunc("/home", h.Home).Methods(http.MethodPost)
	api.HandleFunc("/stop", h.Stop).Methods(http.MethodPost)
	api.HandleFunc("/reset", h.Reset).Methods(http.MethodPost)

	logger.Infof("API configurada com base path: %s", r.basePath)
}

// BasePath retorna o prefixo das rotas
func (r *Router) BasePath() string {
	return r.basePath
}

// Handler retorna o handler HTTP final com todos os middlewares aplicados
func (r *Router) Handler() http.Handler {
	return Chain(r.middlewares...)(r.mux)
}

// ServeHTTP implementa a interface http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Handler().ServeHTTP(w, req)
}
