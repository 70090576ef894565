package handlers

import (
	"encoding/json"
	"log"
	"time"

	"card-battle-service/middleware"
	"card-battle-service/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func SetupBattleRoutes(app *fiber.App,
	lobby *services.LobbyService,
	battles *services.BattleService,
	connections *services.ConnectionRegistry,
	players *services.PlayerService) {

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Persistent bidirectional connection for queue + battle actions
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(battleSocket(lobby, battles, connections)))

	// 🔐 Read-only history endpoints, Gateway-authenticated
	secured := app.Group("/", middleware.GatewayAuthMiddleware())
	secured.Get("/battles/:id", players.GetBattleByID)
	secured.Get("/players/:wallet", players.GetPlayerByWallet)
	secured.Get("/players/:wallet/battles", players.GetPlayerBattles)
}

// battleSocket is the connection read loop: decode one Action per message
// and dispatch it to the lobby or the addressed battle session. Close or
// read error tears the client out of the queue and connection registry.
func battleSocket(lobby *services.LobbyService, battles *services.BattleService,
	connections *services.ConnectionRegistry) func(*websocket.Conn) {

	return func(conn *websocket.Conn) {
		client := newWSClient(conn)
		go client.writePump()

		defer func() {
			client.shutdown()
			lobby.HandleDisconnect(client)
			if client.wallet != "" {
				connections.Unregister(client.wallet, client)
			}
			_ = conn.Close()
		}()

		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("⚠️ socket closed unexpectedly for %s: %v", client.wallet, err)
				}
				return
			}

			var action services.Action
			if err := json.Unmarshal(raw, &action); err != nil {
				client.Send(services.Envelope{Event: services.EventError, Data: services.ErrorEvent{Message: "invalid message"}})
				continue
			}
			if action.WalletAddress == "" {
				client.Send(services.Envelope{Event: services.EventError, Data: services.ErrorEvent{Message: "walletAddress required"}})
				continue
			}

			// First action binds the socket to its player.
			if client.wallet == "" {
				client.wallet = action.WalletAddress
				connections.Register(client.wallet, client)
			}

			dispatch(action, client, lobby, battles)
		}
	}
}

func dispatch(action services.Action, client *wsClient,
	lobby *services.LobbyService, battles *services.BattleService) {

	wallet := client.wallet

	switch action.Action {
	case services.ActionJoinQueue:
		lobby.HandleJoinQueue(wallet, client)
	case services.ActionLeaveQueue:
		lobby.HandleLeaveQueue(wallet, client)
	case services.ActionJoinBattle:
		battles.HandleJoinBattle(wallet, action.BattleID, client)
	case services.ActionPlaceCard:
		battles.HandlePlaceCard(wallet, action.BattleID, action.CardID, action.LaneNumber, client)
	case services.ActionAttackCard:
		battles.HandleAttackCard(wallet, action.BattleID, action.AttackingCardID, action.TargetCardID, action.FromLane, action.ToLane, client)
	case services.ActionMoveCard:
		battles.HandleMoveCard(wallet, action.BattleID, action.AttackingCardID, action.FromLane, action.ToLane, client)
	case services.ActionEndTurn:
		battles.HandleEndTurn(wallet, action.BattleID, client)
	default:
		client.Send(services.Envelope{Event: services.EventError, Data: services.ErrorEvent{Message: "unknown action"}})
	}
}
