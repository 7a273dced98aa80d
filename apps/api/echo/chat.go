package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/wakahia/baraza/core"
	"github.com/wakahia/baraza/core/chat"
	"github.com/wakahia/baraza/core/profile"
)

type chatApi struct {
	svc      *chat.Service
	profiles *profile.Service
	conf     *core.Config
	log      core.Logger
}

func registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := chatApi{
		svc:      opts.ChatSvc,
		profiles: opts.ProfileSvc,
		conf:     opts.AppConf,
		log:      opts.Logger,
	}

	cg := g.Group("/chat", jwt)
	cg.GET("/directory", api.chatDirectory)
	cg.GET("/search", api.chatSearch)
	cg.GET("/threads/:counterpart", api.chatThread)
	cg.POST("/messages", api.chatSend)

	// the websocket handshake authenticates via query param
	wsJWT := middleware.JWTWithConfig(appWSJWTConfig(opts.AppConf))
	g.GET("/chat/ws", api.chatPanel, wsJWT)
}

// Handlers

// chatDirectory lists everyone the profile has exchanged messages with,
// most recent conversation first.
func (api *chatApi) chatDirectory(ctx echo.Context) error {
	profID, err := contextProfileID(ctx)
	if err != nil {
		return err
	}
	dir := api.svc.ListCounterparts(ctx.Request().Context(), profID)
	if dir == nil {
		dir = []profile.Profile{}
	}
	return ctx.JSON(http.StatusOK, dir)
}

// chatSearch matches people by name or handle as the user types.
func (api *chatApi) chatSearch(ctx echo.Context) error {
	profID, err := contextProfileID(ctx)
	if err != nil {
		return err
	}
	results := api.profiles.Search(ctx.Request().Context(), ctx.QueryParam("q"), profID)
	if results == nil {
		results = []profile.Profile{}
	}
	return ctx.JSON(http.StatusOK, results)
}

// chatThread returns the full ordered history with a counterpart.
func (api *chatApi) chatThread(ctx echo.Context) error {
	profID, err := contextProfileID(ctx)
	if err != nil {
		return err
	}
	counterpart, err := api.profiles.GetByID(ctx.Request().Context(), ctx.Param("counterpart"))
	if err != nil {
		return err
	}

	msgs, err := api.svc.PairHistory(ctx.Request().Context(), profID, counterpart.ID)
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

// chatSend writes a new message row. Validation failures are surfaced; the
// client keeps its input and may retry.
func (api *chatApi) chatSend(ctx echo.Context) error {
	profID, err := contextProfileID(ctx)
	if err != nil {
		return err
	}

	data := new(chat.NewMessage)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if _, err := api.profiles.GetByID(ctx.Request().Context(), data.ReceiverID); err != nil {
		return err
	}

	msg, err := api.svc.Send(ctx.Request().Context(), profID, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}
