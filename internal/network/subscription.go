package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Faultbox/vrc3d/internal/game/entity"
	"github.com/Faultbox/vrc3d/internal/logger"
	"github.com/Faultbox/vrc3d/internal/network/cable"
)

// ErrRejected is returned when the server refuses the channel subscription.
var ErrRejected = errors.New("subscription rejected")

// PhotoSource resolves avatar photos before avatars are queued.
type PhotoSource interface {
	Get(ctx context.Context, id entity.ID, imagePath string) (image.Image, error)
}

// Subscription streams entities from the ApiChannel into a queue,
// reconnecting after failures.
type Subscription struct {
	url            string
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
	photos         PhotoSource
	log            *zap.Logger
}

// NewSubscription creates a subscription to the cable endpoint at url.
// photos may be nil, in which case avatars are queued without photos.
func NewSubscription(url string, reconnectDelay time.Duration, photos PhotoSource) *Subscription {
	return &Subscription{
		url:            url,
		reconnectDelay: reconnectDelay,
		dialer:         websocket.DefaultDialer,
		photos:         photos,
		log:            logger.Named("network"),
	}
}

// Run streams until ctx is done. It only returns an error when the
// subscription is rejected; transport errors are logged and retried.
func (s *Subscription) Run(ctx context.Context, out chan<- entity.Entity) error {
	for {
		err := s.session(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrRejected) {
			return err
		}
		s.log.Warn("entity stream interrupted",
			zap.Error(err),
			zap.Duration("retry_in", s.reconnectDelay),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *Subscription) session(ctx context.Context, out chan<- entity.Entity) error {
	log := s.log.With(zap.String("session", uuid.NewString()))

	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage on shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteMessage(websocket.TextMessage, cable.Subscribe(cable.ChannelAPI).Encode()); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	log.Info("connected", zap.String("channel", cable.ChannelAPI))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		f, err := cable.DecodeFrame(data)
		if err != nil {
			log.Warn("bad frame", zap.Error(err))
			continue
		}

		switch f.Type {
		case cable.TypePing:
			continue
		case cable.TypeWelcome:
			log.Debug("welcome")
			continue
		case cable.TypeConfirm:
			log.Info("subscription confirmed")
			continue
		case cable.TypeReject:
			return ErrRejected
		case cable.TypeDisconnect:
			if !f.Reconnect {
				return fmt.Errorf("%w: %s", ErrRejected, f.Reason)
			}
			return fmt.Errorf("server disconnect: %s", f.Reason)
		}

		if !f.IsBroadcast() {
			continue
		}
		if err := s.dispatch(ctx, log, f, out); err != nil {
			return err
		}
	}
}

func (s *Subscription) dispatch(ctx context.Context, log *zap.Logger, f cable.Frame, out chan<- entity.Entity) error {
	m, err := f.ChannelMessage()
	if err != nil {
		log.Warn("bad broadcast", zap.Error(err))
		return nil
	}

	var entities []entity.Entity
	switch m.Type {
	case cable.MessageWorld:
		var w cable.World
		if err := json.Unmarshal(m.Payload, &w); err != nil {
			log.Warn("bad world payload", zap.Error(err))
			return nil
		}
		entities, err = entity.DecodeList(w.Entities)
		if err != nil {
			log.Warn("world snapshot had malformed entities", zap.Error(err))
		}
		log.Info("world snapshot", zap.Int("entities", len(entities)))
	case cable.MessageEntity:
		e, err := entity.Decode(m.Payload)
		if err != nil {
			log.Warn("bad entity", zap.Error(err))
			return nil
		}
		entities = []entity.Entity{e}
	default:
		log.Debug("ignored broadcast", zap.String("type", m.Type))
		return nil
	}

	for _, e := range entities {
		s.attachPhoto(ctx, log, e)
		select {
		case out <- e:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// attachPhoto resolves an avatar's photo on the network side so the frame
// loop only ever sees decoded images.
func (s *Subscription) attachPhoto(ctx context.Context, log *zap.Logger, e entity.Entity) {
	a, ok := e.(*entity.Avatar)
	if !ok || a.Deleted || s.photos == nil {
		return
	}
	img, err := s.photos.Get(ctx, a.ID, a.ImagePath)
	if err != nil {
		log.Warn("avatar photo unavailable",
			zap.Int64("id", int64(a.ID)),
			zap.Error(err),
		)
		return
	}
	a.Photo = img
}
