package controller

import (
	"context"

	"github.com/soundsync/server/internal/protocol"
	"github.com/soundsync/server/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	// membership
	mux.Handle(protocol.EventJoin, c.handleJoin)

	// clock sync
	mux.Handle(protocol.EventClientPing, c.handleClientPing)

	// transport
	mux.Handle(protocol.EventPlay, c.handlePlay)
	mux.Handle(protocol.EventPause, c.handlePause)
	mux.Handle(protocol.EventSeek, c.handleSeek)
	mux.Handle(protocol.EventSync, c.handleSync)

	// queue
	mux.Handle(protocol.EventNextSong, c.handleNextSong)
	mux.Handle(protocol.EventPreviousSong, c.handlePreviousSong)

	mux.HandleError(func(ctx context.Context, conn *wsrouter.Conn, err error) {
		c.logger.ErrorContext(ctx, "ws handler error", "error", err)
		c.sendError(ctx, conn, clientMessage(err))
	})

	return mux
}
