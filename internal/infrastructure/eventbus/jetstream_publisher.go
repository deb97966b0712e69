package eventbus

import (
	"context"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/riskibarqy/fantasy-draft/internal/domain/draft"
	"github.com/riskibarqy/fantasy-draft/internal/platform/logging"
)

type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration
	Replicas        int
	DuplicateWindow time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "DRAFT_EVENTS",
		SubjectPrefix:   "fantasy",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		MaxAge:          7 * 24 * time.Hour,
		Replicas:        1,
		DuplicateWindow: 2 * time.Hour,
	}
}

// streamPublisher is the slice of jetstream.JetStream the publisher uses.
type streamPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// JetStreamPublisher relays outbox events to NATS JetStream. The event ID is
// the JetStream message ID, so a relay retry inside the duplicate window is
// dropped by the server.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     streamPublisher
	cfg    JetStreamConfig
	logger *logging.Logger
}

func NewJetStreamPublisher(ctx context.Context, cfg JetStreamConfig, logger *logging.Logger) (*JetStreamPublisher, error) {
	if logger == nil {
		logger = logging.Default()
	}
	cfg = normalizeConfig(cfg)

	nc, err := nats.Connect(cfg.URL,
		nats.Name("fantasy-draft-outbox"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("nats async error", "error", err)
		}),
	)
	if err != nil {
		return nil, crerr.Wrap(err, "connect to nats")
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, crerr.Wrap(err, "create jetstream context")
	}

	if err := ensureStream(ctx, js, cfg, logger); err != nil {
		nc.Close()
		return nil, err
	}

	return &JetStreamPublisher{nc: nc, js: js, cfg: cfg, logger: logger}, nil
}

func newPublisher(js streamPublisher, cfg JetStreamConfig, logger *logging.Logger) *JetStreamPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &JetStreamPublisher{js: js, cfg: normalizeConfig(cfg), logger: logger}
}

func ensureStream(ctx context.Context, js jetstream.JetStream, cfg JetStreamConfig, logger *logging.Logger) error {
	sc := jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Description: "Draft lifecycle events relayed from the outbox",
		Subjects:    []string{cfg.SubjectPrefix + ".draft.>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.MaxAge,
		Storage:     jetstream.FileStorage,
		Replicas:    cfg.Replicas,
		Duplicates:  cfg.DuplicateWindow,
	}

	stream, err := js.CreateOrUpdateStream(ctx, sc)
	if err != nil {
		return crerr.Wrapf(err, "ensure stream %s", cfg.StreamName)
	}
	logger.InfoContext(ctx, "jetstream stream ready", "stream", stream.CachedInfo().Config.Name)
	return nil
}

func (p *JetStreamPublisher) Publish(ctx context.Context, event draft.Event) error {
	msg, err := p.message(event)
	if err != nil {
		return err
	}

	ack, err := p.js.PublishMsg(ctx, msg,
		jetstream.WithMsgID(event.ID),
		jetstream.WithExpectStream(p.cfg.StreamName),
	)
	if err != nil {
		return crerr.Wrapf(err, "publish %s to jetstream", msg.Subject)
	}
	if ack.Duplicate {
		p.logger.DebugContext(ctx, "jetstream dropped duplicate event", "event_id", event.ID, "subject", msg.Subject)
		return nil
	}

	p.logger.DebugContext(ctx, "draft event published",
		"subject", msg.Subject,
		"event_id", event.ID,
		"stream", ack.Stream,
		"sequence", ack.Sequence,
	)
	return nil
}

func (p *JetStreamPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

type envelope struct {
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	LeagueID   string         `json:"league_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

func (p *JetStreamPublisher) message(event draft.Event) (*nats.Msg, error) {
	if strings.TrimSpace(event.ID) == "" {
		return nil, crerr.New("event id is required")
	}

	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := sonic.Marshal(envelope{
		EventID:    event.ID,
		EventType:  string(event.Type),
		LeagueID:   event.LeagueID,
		OccurredAt: event.OccurredAt.UTC(),
		Payload:    payload,
	})
	if err != nil {
		return nil, crerr.Wrapf(err, "marshal event id=%s", event.ID)
	}

	msg := nats.NewMsg(subjectFor(p.cfg.SubjectPrefix, event.Type))
	msg.Data = data
	msg.Header.Set("Event-Type", string(event.Type))
	msg.Header.Set("Event-ID", event.ID)
	msg.Header.Set("League-ID", event.LeagueID)
	return msg, nil
}

// subjectFor maps draft.pick_made to {prefix}.draft.pick_made.
func subjectFor(prefix string, eventType draft.EventType) string {
	return fmt.Sprintf("%s.%s", prefix, eventType)
}

func normalizeConfig(cfg JetStreamConfig) JetStreamConfig {
	defaults := DefaultJetStreamConfig()
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = defaults.URL
	}
	if strings.TrimSpace(cfg.StreamName) == "" {
		cfg.StreamName = defaults.StreamName
	}
	cfg.SubjectPrefix = strings.Trim(strings.TrimSpace(cfg.SubjectPrefix), ".")
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = defaults.SubjectPrefix
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = defaults.MaxReconnects
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = defaults.ReconnectWait
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaults.MaxAge
	}
	if cfg.Replicas <= 0 {
		cfg.Replicas = defaults.Replicas
	}
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = defaults.DuplicateWindow
	}
	return cfg
}
