// Package ws carries the transcription wire protocol: one controller
// per server, one client state machine per accepted connection.
package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lberthe/scribe/internal/app"
	"github.com/lberthe/scribe/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	Engine            *app.Engine
	Limiter           *FrameLimiter
	ReadLimit         int64
	SendBuffer        int
	DefaultSampleRate int
}

func NewController(engine *app.Engine, limiter *FrameLimiter, readLimit int64, sendBuffer, defaultRate int) *Controller {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	if defaultRate <= 0 {
		defaultRate = 16000
	}
	return &Controller{
		Engine:            engine,
		Limiter:           limiter,
		ReadLimit:         readLimit,
		SendBuffer:        sendBuffer,
		DefaultSampleRate: defaultRate,
	}
}

// HandleTranscribe upgrades the connection and hands it to its own
// state machine. The client token resolved by the HTTP middleware is
// the fallback participant identity.
func (ctl *Controller) HandleTranscribe(ctx context.Context, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade failed")
		return
	}
	if ctl.ReadLimit > 0 {
		conn.SetReadLimit(ctl.ReadLimit)
	}

	ctx, cancel := context.WithCancel(ctx)
	cl := &client{
		ctl:    ctl,
		ws:     conn,
		out:    newClientConn(conn, ctl.SendBuffer),
		token:  domain.ParticipantID(c.GetString("client_token")),
		state:  stateAwaitingInit,
		cancel: cancel,
	}
	log.Info().Str("module", "ws").Str("remote", conn.RemoteAddr().String()).Msg("connection accepted")

	go cl.writePump(ctx)
	go cl.run(ctx)
}
