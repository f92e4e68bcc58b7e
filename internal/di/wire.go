//go:build wireinject
// +build wireinject

package di

import (
	"database/sql"

	"github.com/google/wire"

	"chatr/internal/admin"
	chathandler "chatr/internal/chat/handler"
	"chatr/internal/chat/repository"
	"chatr/internal/chat/service"
	"chatr/internal/common"
	"chatr/internal/config"
	"chatr/internal/dbmongo"
	"chatr/internal/media"
	"chatr/internal/realtime"
	"chatr/internal/user"
)

var storageSet = wire.NewSet(
	ProvideMySQL,
	ProvideSQLDB,
	ProvideMongo,
	dbmongo.NewMediaStorage,
	wire.Bind(new(common.BlobStore), new(*dbmongo.MediaStorage)),
)

var chatSet = wire.NewSet(
	repository.NewChatRepository,
	service.NewChatService,
	chathandler.NewChatHandler,
)

var userSet = wire.NewSet(
	user.NewUserRepository,
	user.NewContactRepository,
	user.NewUserService,
	user.NewHandler,
)

var realtimeSet = wire.NewSet(
	realtime.NewRegistry,
	realtime.NewRooms,
	realtime.NewRelay,
	wire.Bind(new(realtime.MessageRelay), new(*realtime.Relay)),
	realtime.NewDispatcher,
	realtime.NewHandler,
)

func InitializeApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(
		ProvideLogger,
		storageSet,
		common.NewTokenManager,
		chatSet,
		userSet,
		realtimeSet,
		media.NewHTTPServer,
		admin.NewServer,
		wire.Bind(new(admin.Pinger), new(*sql.DB)),
		NewRouter,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
