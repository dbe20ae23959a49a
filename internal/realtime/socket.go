package realtime

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shoppy/backend/pkg/logger"
	"github.com/shoppy/backend/pkg/utils"
)

const userIDKey = "wsUserID"

type clientMessage struct {
	Type   string `json:"type"`
	CartID string `json:"cartId"`
}

// UpgradeGate authenticates the connection before the websocket upgrade.
// Browsers cannot set an Authorization header on a websocket handshake, so
// the bearer token travels in the token query parameter.
func UpgradeGate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		claims, err := utils.ValidateToken(c.Query("token"))
		if err != nil {
			logger.Warn("ws_auth_failed", map[string]interface{}{
				"ip":    c.IP(),
				"error": err.Error(),
			})
			return utils.Error(c, fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(userIDKey, claims.UserID)
		return c.Next()
	}
}

// Serve runs the read loop for one connection: join-cart and leave-cart
// messages manage room subscriptions, anything else is ignored.
func Serve(hub *Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals(userIDKey).(uuid.UUID)
		if !ok {
			_ = conn.Close()
			return
		}

		hub.Register(conn, userID)
		defer func() {
			hub.Unregister(conn)
			_ = conn.Close()
		}()

		logger.InfoWithUser(userID.String(), "ws_connected", nil)

		for {
			var msg clientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				logger.InfoWithUser(userID.String(), "ws_disconnected", nil)
				return
			}

			cartID, err := uuid.Parse(msg.CartID)
			if err != nil {
				continue
			}

			switch msg.Type {
			case "join-cart":
				if hub.Join(context.Background(), conn, cartID) {
					logger.InfoWithUser(userID.String(), "ws_joined_cart", map[string]interface{}{
						"cart_id": cartID.String(),
					})
				} else {
					logger.WarnWithUser(userID.String(), "ws_join_denied", map[string]interface{}{
						"cart_id": cartID.String(),
					})
				}
			case "leave-cart":
				hub.Leave(conn, cartID)
				logger.InfoWithUser(userID.String(), "ws_left_cart", map[string]interface{}{
					"cart_id": cartID.String(),
				})
			}
		}
	})
}
