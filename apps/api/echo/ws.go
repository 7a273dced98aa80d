package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/wakahia/baraza/core/chat"
	"github.com/wakahia/baraza/core/profile"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // the JWT is the gate, not the origin
}

// panelCommand is what the client sends to drive the panel state machine.
type panelCommand struct {
	Action      string `json:"action"` // open | search | select | send | back | close
	Query       string `json:"query,omitempty"`
	Counterpart string `json:"counterpart,omitempty"`
	Content     string `json:"content,omitempty"`
}

// panelUpdate is what the server pushes back.
type panelUpdate struct {
	Type      string            `json:"type"` // state | directory | results | history | message | error
	State     string            `json:"state,omitempty"`
	Profiles  []profile.Profile `json:"profiles,omitempty"`
	Messages  []chat.Message    `json:"messages,omitempty"`
	Event     *chat.Event       `json:"event,omitempty"`
	Error     string            `json:"error,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

// chatPanel upgrades to a websocket and runs one messaging panel per
// connection. Every failure is contained in the panel: errors are pushed as
// updates, never allowed to take down the connection loop or the host.
func (api *chatApi) chatPanel(ctx echo.Context) error {
	profID, err := contextProfileID(ctx)
	if err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading chat panel connection")
	}

	p := newPanelConn(api, conn, profID)
	p.run(ctx.Request().Context())
	return nil
}

type panelConn struct {
	api    *chatApi
	conn   *websocket.Conn
	panel  *chat.Panel
	userID string

	writeMu sync.Mutex
	// forward goroutine lifecycle; restarted on every select
	forwardDone chan struct{}
}

func newPanelConn(api *chatApi, conn *websocket.Conn, userID string) *panelConn {
	return &panelConn{
		api:    api,
		conn:   conn,
		panel:  api.svc.NewPanel(userID),
		userID: userID,
	}
}

func (p *panelConn) run(ctx context.Context) {
	defer func() {
		p.stopForwarding()
		p.panel.Shut()
		_ = p.conn.Close()
	}()

	for {
		var cmd panelCommand
		if err := p.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.api.log.Warn("chat panel connection dropped", err)
			}
			return
		}
		p.handle(ctx, cmd)
	}
}

func (p *panelConn) handle(ctx context.Context, cmd panelCommand) {
	switch cmd.Action {
	case "open":
		dir := p.panel.Open(ctx)
		p.push(panelUpdate{Type: "directory", State: p.panel.State().String(), Profiles: dir})
	case "search":
		results := p.panel.Search(ctx, cmd.Query)
		p.push(panelUpdate{Type: "results", Profiles: results})
	case "select":
		p.handleSelect(ctx, cmd.Counterpart)
	case "send":
		p.handleSend(ctx, cmd.Content)
	case "back":
		p.stopForwarding()
		dir := p.panel.Back(ctx)
		p.push(panelUpdate{Type: "directory", State: p.panel.State().String(), Profiles: dir})
	case "close":
		p.stopForwarding()
		p.panel.Shut()
		p.push(panelUpdate{Type: "state", State: p.panel.State().String()})
	default:
		p.push(panelUpdate{Type: "error", Error: "unknown action: " + cmd.Action})
	}
}

func (p *panelConn) handleSelect(ctx context.Context, counterpartID string) {
	counterpart, err := p.api.profiles.GetByID(ctx, counterpartID)
	if err != nil {
		p.push(panelUpdate{Type: "error", Error: "unknown counterpart"})
		return
	}

	p.stopForwarding()
	if err := p.panel.Select(ctx, counterpart); err != nil {
		p.push(panelUpdate{Type: "error", Error: err.Error()})
		return
	}

	p.push(panelUpdate{
		Type:     "history",
		State:    p.panel.State().String(),
		Messages: p.panel.Session().Thread(),
	})
	p.startForwarding()
}

func (p *panelConn) handleSend(ctx context.Context, content string) {
	if _, err := p.panel.Session().Send(ctx, content); err != nil {
		switch err {
		case chat.ErrEmptyContent, chat.ErrNoSession:
			// no-op by contract; nothing to surface
		default:
			// write failures are surfaced so the user can retry
			p.push(panelUpdate{Type: "error", Error: "message not sent", Retryable: true})
			p.api.log.Error("sending message", err)
		}
	}
	// on success the live subscription echoes the message back; no local append
}

// startForwarding pushes the open session's live events to the client until
// the session closes or stopForwarding is called.
func (p *panelConn) startForwarding() {
	live := p.panel.Session().Live()
	if live == nil {
		return
	}
	done := make(chan struct{})
	p.forwardDone = done

	go func() {
		for {
			select {
			case ev, ok := <-live:
				if !ok {
					return
				}
				p.push(panelUpdate{Type: "message", Event: &ev})
			case <-done:
				return
			}
		}
	}()
}

func (p *panelConn) stopForwarding() {
	if p.forwardDone != nil {
		close(p.forwardDone)
		p.forwardDone = nil
	}
}

func (p *panelConn) push(update panelUpdate) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	payload, err := json.Marshal(update)
	if err != nil {
		p.api.log.Error("encoding panel update", err)
		return
	}
	if err := p.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		p.api.log.Warn("pushing panel update", err)
	}
}
