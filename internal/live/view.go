package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/gorilla/websocket"
)

// Message types on the websocket.
const (
	MsgRender = "render"
	MsgAlert  = "alert"
	MsgDelete = "delete"
)

const deleteFailed = "Failed to delete bookmark"

// ServerMessage is pushed to the browser.
type ServerMessage struct {
	Type    string `json:"type"`
	HTML    string `json:"html,omitempty"`
	Count   int    `json:"count"`
	Message string `json:"message,omitempty"`
}

// ClientMessage is sent by the browser.
type ClientMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Deleter is the delete mutation.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// RenderFunc turns the list state into an HTML fragment.
type RenderFunc func(Snapshot) (string, error)

type ViewOptions struct {
	Render       RenderFunc
	Deleter      Deleter
	PingInterval time.Duration
	WriteTimeout time.Duration
	Logger       logger.Logger
}

// View drives one websocket connection: it pushes a fresh render after
// every list change and runs delete requests coming from the browser.
type View struct {
	conn *websocket.Conn
	rec  *Reconciler
	opts ViewOptions
	log  logger.Logger

	// mutations run on this context: detached from the connection so a
	// submitted delete is never cancelled, but still carrying the token
	mutCtx context.Context

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

func NewView(conn *websocket.Conn, rec *Reconciler, mutCtx context.Context, opts ViewOptions) *View {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &View{
		conn:   conn,
		rec:    rec,
		opts:   opts,
		log:    opts.Logger.With(logger.Owner(rec.owner)),
		mutCtx: context.WithoutCancel(mutCtx),
	}
}

// Run blocks until the browser goes away or ctx is done, then releases
// the connection and the feed subscription.
func (v *View) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer v.rec.Close()

	if err := v.sendRender(); err != nil {
		v.log.Debug("initial render not delivered", logger.Error(err))
		_ = v.conn.Close()
		return
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer cancel()
		v.readLoop()
	}()
	go func() {
		defer cancel()
		v.pingLoop(ctx)
	}()

	v.rec.Run(ctx, func() {
		if err := v.sendRender(); err != nil {
			cancel()
		}
	})
	// a dropped subscription leaves the page usable, only without updates
	<-ctx.Done()

	// the reader must be gone before waiting on in-flight deletes it started
	_ = v.conn.Close()
	<-readerDone
	v.wg.Wait()
}

func (v *View) readLoop() {
	pongWait := 2 * v.opts.PingInterval
	_ = v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := v.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				v.log.Debug("live view read failed", logger.Error(err))
			}
			return
		}
		_ = v.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			v.log.Debug("ignoring malformed client message", logger.Error(err))
			continue
		}
		switch msg.Type {
		case MsgDelete:
			v.requestDelete(msg.ID)
		default:
			v.log.Debug("ignoring unknown client message", logger.String("type", msg.Type))
		}
	}
}

func (v *View) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(v.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.writeMu.Lock()
			err := v.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(v.opts.WriteTimeout))
			v.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// requestDelete marks id pending and runs the mutation in the background.
// The row only leaves the list when its DELETE event arrives.
func (v *View) requestDelete(id string) {
	if id == "" || !v.rec.List().MarkPending(id) {
		return
	}
	_ = v.sendRender()

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		err := v.opts.Deleter.Delete(v.mutCtx, id)
		v.rec.List().ClearPending(id)
		if err != nil {
			_ = v.send(ServerMessage{Type: MsgAlert, Message: domain.UserMessage(err, deleteFailed)})
		}
		_ = v.sendRender()
	}()
}

func (v *View) sendRender() error {
	snap := v.rec.List().Snapshot()
	html, err := v.opts.Render(snap)
	if err != nil {
		v.log.Error("failed to render bookmark list", logger.Error(err))
		return err
	}
	return v.send(ServerMessage{Type: MsgRender, HTML: html, Count: len(snap.Items)})
}

func (v *View) send(msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	_ = v.conn.SetWriteDeadline(time.Now().Add(v.opts.WriteTimeout))
	return v.conn.WriteMessage(websocket.TextMessage, data)
}
