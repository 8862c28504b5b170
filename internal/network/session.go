package network

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/vrc3d/internal/game/entity"
	"github.com/Faultbox/vrc3d/internal/logger"
	"github.com/Faultbox/vrc3d/internal/photos"
)

// SessionConfig describes one connection to the API host.
type SessionConfig struct {
	Host           string
	Secure         bool
	Credentials    Credentials
	Identity       BotIdentity
	RequestTimeout time.Duration
	ReconnectDelay time.Duration
	PhotoDir       string
	PhotoSize      int
}

// Session bundles the inbound entity stream, the outbound bot worker and the
// photo cache they share with the render loop.
type Session struct {
	Photos       *photos.Cache
	Subscription *Subscription
	Worker       *Worker

	log *zap.Logger
}

// NewSession wires the API client, worker, photo cache and subscription for cfg.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("session: empty host")
	}
	log := logger.Named("network")
	if cfg.Credentials.AppID == "" || cfg.Credentials.AppSecret == "" {
		log.Warn("API credentials missing, requests will be rejected")
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	apiURL := APIURL(cfg.Host, cfg.Secure)

	cache, err := photos.New(photos.Config{
		Dir:     cfg.PhotoDir,
		Size:    cfg.PhotoSize,
		BaseURL: strings.TrimSuffix(apiURL, "api/"),
		Client:  httpClient,
	})
	if err != nil {
		return nil, err
	}

	client, err := NewClient(apiURL, cfg.Credentials, httpClient)
	if err != nil {
		return nil, err
	}

	return &Session{
		Photos:       cache,
		Subscription: NewSubscription(CableURL(cfg.Host, cfg.Secure, cfg.Credentials), cfg.ReconnectDelay, cache),
		Worker:       NewWorker(client, cfg.Identity),
		log:          log,
	}, nil
}

// Start runs the subscription and the worker on g. The worker stops when
// outbound is closed; the subscription when ctx is done. Neither failure
// stops the viewer, so both report through the log and return nil.
func (s *Session) Start(ctx context.Context, g *errgroup.Group, inbound chan<- entity.Entity, outbound <-chan Message) {
	g.Go(func() error {
		if err := s.Subscription.Run(ctx, inbound); err != nil {
			s.log.Error("entity stream stopped", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		return s.Worker.Run(ctx, outbound)
	})
}
