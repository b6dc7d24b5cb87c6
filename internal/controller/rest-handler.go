package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/soundsync/server/internal/protocol"
	"github.com/soundsync/server/internal/service/room"
)

func (c controller) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (c controller) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, room.ErrQueueLimitReached),
		errors.Is(err, room.ErrInvalidQueueIndex),
		errors.Is(err, room.ErrEmptyQueue):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}

	c.writeJSON(w, status, map[string]string{"error": clientMessage(err)})
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	resp, err := c.roomService.CreateRoom(r.Context())
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to create room", "error", err)
		c.writeError(w, err)
		return
	}

	c.writeJSON(w, http.StatusCreated, map[string]string{"room": resp.RoomID})
}

type uploadInput struct {
	Room string `json:"room" validate:"required,min=1,max=16"`
}

func (c controller) uploadTrack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	input := uploadInput{Room: r.FormValue("room")}
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.writeJSON(w, http.StatusBadRequest, map[string]any{"errors": validationErrors})
		return
	}

	// reject unknown rooms before anything touches disk
	exists, err := c.roomService.RoomExists(ctx, input.Room)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to check room", "error", err)
		c.writeError(w, err)
		return
	}
	if !exists {
		c.writeError(w, room.ErrRoomNotFound)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		c.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided."})
		return
	}
	defer file.Close()

	stored, cover, err := c.fileStore.SaveTrack(header.Filename, file)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to save uploaded track", "error", err)
		c.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "File type not allowed."})
		return
	}

	unlock := c.roomService.LockRoom(input.Room)
	defer unlock()

	addResp, err := c.roomService.AddTrack(ctx, &room.AddTrackParams{
		RoomID:          input.Room,
		Filename:        stored,
		FilenameDisplay: header.Filename,
		Cover:           cover,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to add track", "error", err)
		// a rejected upload must not leave files behind
		c.fileStore.Remove(stored)
		if cover != "" {
			c.fileStore.Remove(cover)
		}
		c.writeError(w, err)
		return
	}

	if addResp.NewCurrent != nil {
		c.broadcastNewFile(ctx, addResp.Conns, addResp.NewCurrent)
		c.broadcastPause(ctx, addResp.Conns, 0, "")
	}
	c.broadcastQueueUpdate(ctx, addResp.Conns, addResp.Queue, addResp.CurrentIndex)

	c.writeJSON(w, http.StatusOK, protocol.Track{
		Filename:        stored,
		FilenameDisplay: header.Filename,
		Cover:           optString(cover),
	})
}

func (c controller) getQueue(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room-id")

	resp, err := c.roomService.GetQueue(r.Context(), &room.GetQueueParams{RoomID: roomID})
	if err != nil {
		c.writeError(w, err)
		return
	}

	c.writeJSON(w, http.StatusOK, queueUpdatePayload(resp.Queue, resp.CurrentIndex))
}

func (c controller) playFromQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := chi.URLParam(r, "room-id")

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		c.writeError(w, room.ErrInvalidQueueIndex)
		return
	}

	unlock := c.roomService.LockRoom(roomID)
	defer unlock()

	changeResp, err := c.roomService.PlayFromQueue(ctx, &room.PlayFromQueueParams{
		RoomID: roomID,
		Index:  index,
	})
	if err != nil {
		c.writeError(w, err)
		return
	}

	c.applyTrackChange(ctx, &changeResp)

	c.writeJSON(w, http.StatusOK, queueUpdatePayload(changeResp.Queue, changeResp.CurrentIndex))
}

func (c controller) removeFromQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := chi.URLParam(r, "room-id")

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		c.writeError(w, room.ErrInvalidQueueIndex)
		return
	}

	unlock := c.roomService.LockRoom(roomID)
	defer unlock()

	removeResp, err := c.roomService.RemoveFromQueue(ctx, &room.RemoveFromQueueParams{
		RoomID: roomID,
		Index:  index,
	})
	if err != nil {
		c.writeError(w, err)
		return
	}

	if removeResp.CurrentChanged {
		c.broadcastNewFile(ctx, removeResp.Conns, removeResp.NewCurrent)
		c.broadcastPause(ctx, removeResp.Conns, 0, "")
	}
	c.broadcastQueueUpdate(ctx, removeResp.Conns, removeResp.Queue, removeResp.CurrentIndex)

	c.writeJSON(w, http.StatusOK, queueUpdatePayload(removeResp.Queue, removeResp.CurrentIndex))
}
