package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Command actions accepted on the admin feed.
const (
	ActionRegister = "register"
	ActionRemove   = "remove"
)

// ErrUnknownAction is returned by Apply for unrecognized actions.
var ErrUnknownAction = errors.New("unknown registry action")

// Command is a registry change published on the admin feed.
//
//	{"action":"register","service":{"name":"orders","base_url":"http://orders:8080"}}
//	{"action":"remove","name":"orders"}
type Command struct {
	Action  string       `json:"action"`
	Service *ServiceSpec `json:"service,omitempty"`
	Name    string       `json:"name,omitempty"`
}

// Apply executes cmd against the registry.
func (r *Registry) Apply(cmd Command) error {
	switch cmd.Action {
	case ActionRegister:
		if cmd.Service == nil {
			return fmt.Errorf("%w: register without service", ErrInvalidService)
		}
		return r.Register(cmd.Service.Config())
	case ActionRemove:
		_, err := r.Remove(cmd.Name)
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
}

// Subscriber applies registry commands received from a Pub/Sub subscription.
type Subscriber struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	registry         *Registry
	onChange         func(name string)
	logger           zerolog.Logger
}

// SubscriberConfig holds configuration for the Pub/Sub subscriber.
type SubscriberConfig struct {
	ProjectID        string
	SubscriptionName string
	Registry         *Registry
	Logger           zerolog.Logger

	// OnChange is called with the service name after each applied command.
	OnChange func(name string)
}

// NewSubscriber creates a new registry command subscriber.
func NewSubscriber(ctx context.Context, cfg SubscriberConfig) (*Subscriber, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Commands are applied in arrival order on a single goroutine.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.MaxExtension = time.Minute

	return &Subscriber{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		registry:         cfg.Registry,
		onChange:         cfg.OnChange,
		logger:           cfg.Logger,
	}, nil
}

// Start receives messages until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	s.logger.Info().
		Str("subscription", s.subscriptionName).
		Msg("starting registry subscriber")

	return s.subscriber.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
		s.handle(msg.ID, msg.Data)
		// Rejected commands are acked too; redelivery cannot make them valid.
		msg.Ack()
	})
}

// Close closes the Pub/Sub client.
func (s *Subscriber) Close() error {
	return s.client.Close()
}

func (s *Subscriber) handle(id string, data []byte) {
	logger := s.logger.With().Str("message_id", id).Logger()

	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		logger.Error().Err(err).Msg("failed to parse registry command")
		return
	}

	if err := s.registry.Apply(cmd); err != nil {
		logger.Warn().Err(err).Str("action", cmd.Action).Msg("registry command rejected")
		return
	}

	name := cmd.Name
	if cmd.Service != nil {
		name = cmd.Service.Name
	}
	if s.onChange != nil {
		s.onChange(name)
	}
	logger.Info().Str("action", cmd.Action).Str("service", name).Msg("registry updated")
}
