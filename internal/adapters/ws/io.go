package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeDeadline = 5 * time.Second

// writePump serializes all outbound traffic for one connection, so
// fragments arrive in the order they were broadcast. It owns the
// socket's fate: once the send channel is drained (or the context
// dies) it closes the websocket, which in turn unblocks the reader.
func (cl *client) writePump(ctx context.Context) {
	defer func() {
		_ = cl.ws.Close()
		cl.cancel()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "ws").Msg("writePump ctx done")
			return
		case data, ok := <-cl.out.send:
			if !ok {
				return
			}
			if err := cl.ws.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := cl.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		}
	}
}
