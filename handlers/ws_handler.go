package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/openbaduk/award-system/live"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub *live.Hub
}

func NewWebSocketHandler(hub *live.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// SubscribeHandler обрабатывает GET /ws/results/{resultID}: подписывает
// клиента на live-события распределения этого результата.
func (h *WebSocketHandler) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	resultID, err := getIDFromURL(r, "resultID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := live.NewClient(h.hub, conn, resultID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
