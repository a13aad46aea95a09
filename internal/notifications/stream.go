package notifications

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"kairos-backend/internal/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is enforced at the HTTP layer
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHandler upgrades the connection to a websocket and pushes every
// notification created for the user until the client disconnects.
func StreamHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[WARN] websocket upgrade failed: %v", err)
			return
		}

		subscriberID := uuid.New().String()
		ch := svc.Subscribe(userID, subscriberID)
		defer svc.Unsubscribe(userID, subscriberID)
		defer conn.Close()

		// drain reads so close frames are processed
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case n, ok := <-ch:
				if !ok {
					return
				}
				if err := conn.WriteJSON(n); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}
}
