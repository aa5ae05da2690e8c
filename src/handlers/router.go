package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"linked_friend_services/src/account"
	"linked_friend_services/src/cache"
	"linked_friend_services/src/friends"
	"linked_friend_services/src/network"
	"linked_friend_services/src/notify"
	"linked_friend_services/src/search"
)

type Services struct {
	Accounts      *account.Service
	Profiles      *cache.ProfileCache
	Friends       *friends.Service
	Network       *network.Resolver
	Search        *search.Service
	Notifications *notify.Service
	Stream        Streamer
	HealthChecks  map[string]func(context.Context) error
	Metrics       http.Handler
}

type RouterOptions struct {
	Auth           func(http.Handler) http.Handler
	AllowedOrigins []string
}

// NewRouter wires every route. Request ids, logging, panic recovery and
// CORS wrap the mux so they also apply to unmatched routes and preflights.
func NewRouter(svc Services, opts RouterOptions, logger *zap.Logger) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/", GETHandlerRoot).Methods(http.MethodGet)
	router.Handle("/health", HealthEndpointHandler(svc.HealthChecks, logger)).Methods(http.MethodGet)
	if svc.Metrics != nil {
		router.Handle("/metrics", svc.Metrics).Methods(http.MethodGet)
	}
	router.Handle("/auth/register", RegisterEndpointHandler(svc.Accounts, logger)).Methods(http.MethodPost)
	router.Handle("/auth/login", LoginEndpointHandler(svc.Accounts, logger)).Methods(http.MethodPost)

	api := router.NewRoute().Subrouter()
	api.Use(opts.Auth)

	api.Handle("/auth/profile", ProfileEndpointHandler(svc.Accounts, svc.Profiles, logger)).Methods(http.MethodGet, http.MethodPatch)

	api.Handle("/friends", FriendEndpointHandler(svc.Friends, logger)).Methods(http.MethodGet)
	api.Handle("/friends/add", AddFriendEndpointHandler(svc.Friends, logger)).Methods(http.MethodPost)
	api.Handle("/friends/network", NetworkEndpointHandler(svc.Network, logger)).Methods(http.MethodGet)
	api.Handle("/friends/suggestions", SuggestionsEndpointHandler(svc.Friends, logger)).Methods(http.MethodGet)
	api.Handle("/friends/requests", FriendRequestEndpointHandler(svc.Friends, logger)).Methods(http.MethodGet, http.MethodPost)
	api.Handle("/friends/requests/{id}", FriendRequestResponseEndpointHandler(svc.Friends, logger)).Methods(http.MethodPatch)
	api.Handle("/friends/{id}", FriendEndpointHandler(svc.Friends, logger)).Methods(http.MethodDelete)

	api.Handle("/users/search", SearchEndpointHandler(svc.Search, logger)).Methods(http.MethodGet)

	api.Handle("/notifications", NotificationsEndpointHandler(svc.Notifications, logger)).Methods(http.MethodGet)
	api.Handle("/notifications/read-all", ReadAllNotificationsEndpointHandler(svc.Notifications, logger)).Methods(http.MethodPatch)
	if svc.Stream != nil {
		api.Handle("/ws", WebSocketEndpointHandler(svc.Stream, logger)).Methods(http.MethodGet)
	}

	api.Handle("/redis/status", RedisStatusEndpointHandler(svc.Profiles, logger)).Methods(http.MethodGet)
	api.Handle("/redis/clear-cache", ClearCacheEndpointHandler(svc.Profiles, logger)).Methods(http.MethodPost)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "message": "Not found"})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methodNotAllowed(w)
	})

	// Credentials are only allowed for an explicit origin list.
	origins := opts.AllowedOrigins
	allowCredentials := len(origins) > 0
	if !allowCredentials {
		origins = []string{"*"}
	}
	return chi.Chain(
		middleware.RequestID,
		middleware.RealIP,
		RequestLogger(logger),
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Cache-Status", "X-Cache-Source", "X-Request-ID"},
			AllowCredentials: allowCredentials,
			MaxAge:           300,
		}),
	).Handler(router)
}
