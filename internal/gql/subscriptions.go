package gql

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql"
	"github.com/sirupsen/logrus"
)

// wsSubprotocol is the graphql-transport-ws wire protocol the gateway speaks.
const wsSubprotocol = "graphql-transport-ws"

const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgPing           = "ping"
	msgPong           = "pong"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
)

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wsSubscribePayload struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// SubscriptionHandler adapts transport-level subscriptions to executor
// subscriptions: one WebSocket client may run several operations, each bound
// to its own cancellable context. Client disconnects cancel everything
// immediately; broker-side resources are released through the operation
// context, never leaked to a background goroutine.
type SubscriptionHandler struct {
	schema   graphql.Schema
	logger   *logrus.Entry
	upgrader websocket.Upgrader
}

func NewSubscriptionHandler(schema graphql.Schema, logger *logrus.Entry) *SubscriptionHandler {
	return &SubscriptionHandler{
		schema: schema,
		logger: logger.WithField("component", "gql.ws"),
		upgrader: websocket.Upgrader{
			Subprotocols: []string{wsSubprotocol},
			CheckOrigin:  func(*http.Request) bool { return true },
		},
	}
}

func (h *SubscriptionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		schema: h.schema,
		conn:   conn,
		logger: h.logger,
		ops:    make(map[string]context.CancelFunc),
	}
	defer client.close()

	client.run(r.Context())
}

type wsClient struct {
	schema graphql.Schema
	conn   *websocket.Conn
	logger *logrus.Entry

	writeMu sync.Mutex

	opsMu sync.Mutex
	ops   map[string]context.CancelFunc
}

func (c *wsClient) run(ctx context.Context) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warnf("dropping unreadable frame: %v", err)
			continue
		}

		switch msg.Type {
		case msgConnectionInit:
			c.send(wsMessage{Type: msgConnectionAck})
		case msgPing:
			c.send(wsMessage{Type: msgPong})
		case msgSubscribe:
			c.subscribe(ctx, msg)
		case msgComplete:
			c.cancel(msg.ID)
		}
	}
}

// subscribe starts one operation and forwards its results until the executor
// channel closes (context cancelled, bus gone, or client completion).
func (c *wsClient) subscribe(ctx context.Context, msg wsMessage) {
	var payload wsSubscribePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.sendError(msg.ID, "invalid subscribe payload")
		return
	}

	opCtx, cancel := context.WithCancel(ctx)

	c.opsMu.Lock()
	if _, exists := c.ops[msg.ID]; exists {
		c.opsMu.Unlock()
		cancel()
		c.sendError(msg.ID, "subscriber id already exists")
		return
	}
	c.ops[msg.ID] = cancel
	c.opsMu.Unlock()

	results := graphql.Subscribe(graphql.Params{
		Schema:         c.schema,
		RequestString:  payload.Query,
		VariableValues: payload.Variables,
		OperationName:  payload.OperationName,
		Context:        opCtx,
	})

	go func() {
		defer c.cancel(msg.ID)

		for res := range results {
			if len(res.Errors) > 0 && res.Data == nil {
				data, _ := json.Marshal(res.Errors)
				c.send(wsMessage{ID: msg.ID, Type: msgError, Payload: data})
				continue
			}

			data, err := json.Marshal(res)
			if err != nil {
				c.logger.Errorf("marshaling result: %v", err)
				continue
			}
			c.send(wsMessage{ID: msg.ID, Type: msgNext, Payload: data})
		}

		c.send(wsMessage{ID: msg.ID, Type: msgComplete})
	}()
}

// cancel stops one operation; its forwarding goroutine then drains and sends
// the final complete frame.
func (c *wsClient) cancel(id string) {
	c.opsMu.Lock()
	cancel, ok := c.ops[id]
	if ok {
		delete(c.ops, id)
	}
	c.opsMu.Unlock()

	if ok {
		cancel()
	}
}

// close cancels every in-flight operation and drops the connection.
func (c *wsClient) close() {
	c.opsMu.Lock()
	for id, cancel := range c.ops {
		delete(c.ops, id)
		cancel()
	}
	c.opsMu.Unlock()

	_ = c.conn.Close()
}

func (c *wsClient) send(msg wsMessage) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Debugf("write failed: %v", err)
	}
}

func (c *wsClient) sendError(id, reason string) {
	data, _ := json.Marshal([]map[string]string{{"message": reason}})
	c.send(wsMessage{ID: id, Type: msgError, Payload: data})
}
