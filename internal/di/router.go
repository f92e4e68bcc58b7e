package di

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	chathandler "chatr/internal/chat/handler"
	"chatr/internal/common"
	"chatr/internal/config"
	"chatr/internal/media"
	"chatr/internal/realtime"
	"chatr/internal/user"
)

// NewRouter mounts the REST surface, the media server and /ws behind the
// CORS, logging and bearer auth middleware.
func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	tokens *common.TokenManager,
	users *user.Handler,
	chats *chathandler.ChatHandler,
	ws *realtime.Handler,
	uploads *media.HTTPServer,
) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		common.WriteJSON(w, http.StatusOK, common.MessageResponse{Message: "Server is running"})
	}).Methods(http.MethodGet)

	// the websocket authenticates via ?token=
	r.HandleFunc("/ws", ws.ServeWS).Methods(http.MethodGet)
	uploads.RegisterRoutes(r)

	api := r.NewRoute().Subrouter()
	api.Use(common.AuthMiddleware(tokens))
	users.RegisterRoutes(api)
	chats.RegisterRoutes(api)

	// CORS answers preflights before routing
	return common.CORSMiddleware(cfg)(common.LoggingMiddleware(logger)(r))
}
