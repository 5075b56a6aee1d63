package websocket

import (
	"support-bridge-backend/internal/env"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

var (
	upgrader    websocket.Upgrader
	redisClient *redis.Client
)

func init() {
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	redisClient = redis.NewClient(&redis.Options{
		Addr:     env.Get(env.ChatRedisURL),
		Password: env.Get(env.ChatRedisPass),
		DB:       0,
	})
}

type Handler struct {
	hub         *Hub
	redisClient *redis.Client
}

func NewHandler(h *Hub) *Handler {
	return &Handler{
		hub:         h,
		redisClient: redisClient,
	}
}

// subscribeToRoomChannel relays Redis messages for one room into the local
// hub. The API servers publish via Redis so every ws-server instance sees
// events for rooms it hosts.
func (h *Handler) subscribeToRoomChannel(roomID string) {
	if _, exists := h.hub.Rooms[roomID]; !exists {
		log.Printf("Room %s not found for subscription", roomID)
		return
	}

	subscriber := h.redisClient.Subscribe(context.Background(), roomID)
	defer subscriber.Close()

	ch := subscriber.Channel()
	for msg := range ch {
		h.hub.Broadcast <- &WSMessage{
			Content:   msg.Payload,
			RoomID:    roomID,
			Timestamp: time.Now().Unix(),
		}
	}
	log.Printf("Unsubscribed from Redis channel: %s", roomID)
}

func (h *Handler) CreateRoom(id string) {
	if _, exists := h.hub.Rooms[id]; exists {
		return
	}

	room := &Room{
		Id:      id,
		Clients: make(map[string]*WSClient),
	}

	h.hub.Rooms[id] = room
	setRooms(len(h.hub.Rooms))

	go h.subscribeToRoomChannel(id)
}

func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request, roomId, userId string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if conn == nil {
		http.Error(w, "Error conn", http.StatusBadRequest)
		return
	}

	cl := &WSClient{
		Conn:     conn,
		Message:  make(chan *WSMessage, 10),
		ID:       userId,
		RoomID:   roomId,
		done:     make(chan struct{}),
		isClosed: false,
	}

	h.hub.Register <- cl

	go cl.keepAlive()
	go cl.writeMessage()
	go cl.readMessage(h.hub)
}

func (h *Handler) GetRooms(w http.ResponseWriter, r *http.Request) {
	rooms := make([]RoomRes, 0)

	for _, room := range h.hub.Rooms {
		rooms = append(rooms, RoomRes{
			ID: room.Id,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(rooms)
}

// NotifyRoom delivers a payload to clients connected to this process. Remote
// processes get the same payload through the Redis channel, see Publish.
func (h *Handler) NotifyRoom(roomID string, payload interface{}) {
	if roomID == "" {
		return
	}
	if _, exists := h.hub.Rooms[roomID]; !exists {
		return
	}

	messageJSON, err := json.Marshal(payload)
	if err != nil {
		log.Printf("notify room %s: marshal payload: %v", roomID, err)
		return
	}

	h.hub.Broadcast <- &WSMessage{
		Content:   string(messageJSON),
		RoomID:    roomID,
		Timestamp: time.Now().Unix(),
	}
}

func (h *Handler) SubscribeToRedisChannels() {
	for _, room := range h.hub.Rooms {
		go h.subscribeToRoomChannel(room.Id)
	}
}
