package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/live-subtitle/backend/internal/pages"
	"github.com/live-subtitle/backend/internal/protocol"
)

// TabHeader carries the sender's tab on one-shot messages
const TabHeader = "X-Tab-ID"

type RuntimeHandler struct {
	handle pages.HandlerFunc
}

func NewRuntimeHandler(handle pages.HandlerFunc) *RuntimeHandler {
	return &RuntimeHandler{handle: handle}
}

// Message handles a single runtime message and writes its reply
func (h *RuntimeHandler) Message(w http.ResponseWriter, r *http.Request) {
	sender, err := senderFrom(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "message too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "failed to read message", http.StatusBadRequest)
		return
	}

	req, err := protocol.Decode(body)
	if err != nil {
		jsonResponse(w, protocol.Result{Success: false, Error: err.Error()}, http.StatusBadRequest)
		return
	}

	jsonResponse(w, h.handle(r.Context(), sender, req), http.StatusOK)
}

func senderFrom(r *http.Request) (protocol.Sender, error) {
	v := r.Header.Get(TabHeader)
	if v == "" {
		return protocol.Sender{}, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return protocol.Sender{}, errors.New("invalid " + TabHeader + " header")
	}
	id := protocol.TabID(n)
	return protocol.Sender{TabID: &id}, nil
}
