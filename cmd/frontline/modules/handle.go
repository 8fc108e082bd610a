package modules

import (
	"go.uber.org/fx"

	"github.com/memohai/frontline/internal/handlers"
	"github.com/memohai/frontline/internal/server"
)

var HandlersModule = fx.Module(
	"handlers",
	fx.Provide(
		annotateHandler(handlers.NewPingHandler),
		annotateHandler(handlers.NewCallbacksHandler),
	),
)

// annotateHandler wraps a handler provider function with fx.Annotate
// to register it as a server.Handler with the correct group tag
func annotateHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}
