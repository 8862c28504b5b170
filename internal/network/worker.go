package network

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/vrc3d/internal/engine/camera"
	"github.com/Faultbox/vrc3d/internal/game/entity"
	"github.com/Faultbox/vrc3d/internal/logger"
)

// Message is an outbound request from the frame loop.
type Message interface {
	isMessage()
}

// PositionUpdate moves the bot to the camera's grid pose.
type PositionUpdate struct {
	Pose camera.GridPose
}

// WallAction is what a WallMessage asks for.
type WallAction int

const (
	WallCreate WallAction = iota
	WallUpdate
)

func (a WallAction) String() string {
	if a == WallUpdate {
		return "update"
	}
	return "create"
}

// WallMessage creates or recolors the wall in front of the bot.
type WallMessage struct {
	Action WallAction
	Color  string
}

func (PositionUpdate) isMessage() {}
func (WallMessage) isMessage()    {}

// BotIdentity is how the viewer's bot is found and created.
type BotIdentity struct {
	Name  string
	Emoji string
}

// Worker forwards outbound messages to the API one at a time. API errors
// are logged and the next message is processed.
type Worker struct {
	client   *Client
	identity BotIdentity
	log      *zap.Logger

	botID  entity.ID
	hasBot bool
}

// NewWorker creates a worker for client.
func NewWorker(client *Client, identity BotIdentity) *Worker {
	return &Worker{
		client:   client,
		identity: identity,
		log:      logger.Named("network").With(zap.String("session", uuid.NewString())),
	}
}

// BotID returns the bot's id once known.
func (w *Worker) BotID() (entity.ID, bool) {
	return w.botID, w.hasBot
}

// Run processes messages until in is closed. Requests run on a context
// detached from ctx, so a cancel never aborts one midway; once ctx is done
// the messages already queued are sent and Run returns.
func (w *Worker) Run(ctx context.Context, in <-chan Message) error {
	reqCtx := context.WithoutCancel(ctx)
	if err := w.findBot(reqCtx); err != nil {
		w.log.Error("bot lookup failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			w.drain(reqCtx, in)
			return nil
		case m, ok := <-in:
			if !ok {
				w.log.Info("outbound queue closed")
				return nil
			}
			w.handle(reqCtx, m)
		}
	}
}

// drain sends whatever is buffered in in without waiting for more.
func (w *Worker) drain(ctx context.Context, in <-chan Message) {
	n := 0
	defer func() {
		w.log.Info("outbound queue drained", zap.Int("messages", n))
	}()
	for {
		select {
		case m, ok := <-in:
			if !ok {
				return
			}
			w.handle(ctx, m)
			n++
		default:
			return
		}
	}
}

func (w *Worker) handle(ctx context.Context, m Message) {
	if err := w.Handle(ctx, m); err != nil {
		w.log.Error("outbound message failed", zap.Error(err))
	}
}

// findBot adopts an existing bot with our emoji.
func (w *Worker) findBot(ctx context.Context) error {
	bots, err := w.client.Bots(ctx)
	if err != nil {
		return err
	}
	for _, b := range bots {
		if b.Emoji == w.identity.Emoji {
			w.botID, w.hasBot = b.ID, true
			w.log.Info("using existing bot", zap.Int64("bot", int64(b.ID)))
		}
	}
	return nil
}

// Handle sends one message.
func (w *Worker) Handle(ctx context.Context, m Message) error {
	switch m := m.(type) {
	case PositionUpdate:
		return w.move(ctx, m.Pose)
	case WallMessage:
		if !w.hasBot {
			return fmt.Errorf("wall %s: %w", m.Action, ErrNoBot)
		}
		p := WallParams{Color: m.Color}
		if m.Action == WallUpdate {
			return w.client.UpdateWall(ctx, w.botID, p)
		}
		return w.client.CreateWall(ctx, w.botID, p)
	}
	return errors.New("unknown outbound message")
}

func (w *Worker) move(ctx context.Context, pose camera.GridPose) error {
	if w.hasBot {
		return w.client.UpdateBot(ctx, w.botID, BotParams{X: pose.X, Y: pose.Y, Direction: string(pose.Direction)})
	}

	bot, err := w.client.CreateBot(ctx, BotParams{
		Name:  w.identity.Name,
		Emoji: w.identity.Emoji,
		X:     pose.X,
		Y:     pose.Y,
	})
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}
	w.botID, w.hasBot = bot.ID, true
	w.log.Info("bot created", zap.Int64("bot", int64(bot.ID)))
	return nil
}
