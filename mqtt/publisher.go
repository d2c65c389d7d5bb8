package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"VisionFusion/config"
	"VisionFusion/geometry"
	"VisionFusion/logger"
	"VisionFusion/pipeline"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

var NewClientFunc = paho.NewClient

const connectTimeout = 5 * time.Second

type broker interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	IsConnected() bool
}

type PersonEvent struct {
	Index   int             `json:"index"`
	Raised  []geometry.Side `json:"raised"`
	Posture string          `json:"posture"`
	Message string          `json:"message"`
}

type Event struct {
	SessionID string        `json:"sessionId"`
	Seq       uint64        `json:"seq"`
	Time      time.Time     `json:"time"`
	Persons   []PersonEvent `json:"persons"`
	Faces     []string      `json:"faces"`
}

// Publisher sends an Event to <topic>/events for frames where someone has a raised
// arm, at most once per minimum interval.
type Publisher struct {
	cfg       config.MQTTConfig
	sessionID string
	client    broker
	interval  time.Duration

	mu   sync.Mutex
	last time.Time
}

func New(cfg config.MQTTConfig, sessionID string) *Publisher {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Log().Warn("MQTT connection lost", zap.Error(err))
	})
	opts.SetOnConnectHandler(func(_ paho.Client) {
		logger.Log().Info("MQTT connected", zap.String("broker", cfg.Broker))
	})
	return newPublisher(cfg, sessionID, NewClientFunc(opts))
}

func newPublisher(cfg config.MQTTConfig, sessionID string, client broker) *Publisher {
	return &Publisher{
		cfg:       cfg,
		sessionID: sessionID,
		client:    client,
		interval:  time.Duration(cfg.MinIntervalMs) * time.Millisecond,
	}
}

func (p *Publisher) Topic() string {
	return p.cfg.Topic + "/events"
}

// Start connects to the broker. Auto-reconnect keeps trying after an initial failure.
func (p *Publisher) Start() error {
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connect to %s: timeout", p.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", p.cfg.Broker, err)
	}
	return nil
}

func (p *Publisher) Stop() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

func NewEvent(sessionID string, res pipeline.FrameResult) Event {
	ev := Event{SessionID: sessionID, Seq: res.Seq, Time: res.Time, Persons: []PersonEvent{}, Faces: []string{}}
	for i, person := range res.Persons {
		if len(person.Report.Raised) == 0 {
			continue
		}
		ev.Persons = append(ev.Persons, PersonEvent{
			Index:   i + 1,
			Raised:  person.Report.Raised,
			Posture: person.Report.Posture.String(),
			Message: person.Report.Message(),
		})
	}
	for _, m := range res.Faces {
		if m.Known() {
			ev.Faces = append(ev.Faces, m.Label)
		}
	}
	return ev
}

// OnFrame never waits on the broker.
func (p *Publisher) OnFrame(res pipeline.FrameResult, _ gocv.Mat) {
	if !res.AnyRaised() {
		return
	}
	p.mu.Lock()
	if !p.last.IsZero() && res.Time.Sub(p.last) < p.interval {
		p.mu.Unlock()
		return
	}
	p.last = res.Time
	p.mu.Unlock()

	payload, err := json.Marshal(NewEvent(p.sessionID, res))
	if err != nil {
		logger.Log().Warn("marshal MQTT event", zap.Error(err))
		return
	}
	p.client.Publish(p.Topic(), 0, false, payload)
}
