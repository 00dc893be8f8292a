// Package livetiming reads an rFactor 2 or Le Mans Ultimate dedicated
// server's live timing websocket and derives telemetry, standings and the
// relative list from it.
package livetiming

import (
	"log/slog"
	"net/url"
	"sync"
	"time"

	"simtelemetry/pkg/caster"
	"simtelemetry/pkg/model"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	websocketPath         = "/websocket/controlpanel"
	defaultDialTimeout    = 250 * time.Millisecond
	defaultMessageTimeout = 5 * time.Second
)

type Options struct {
	Name     string
	Producer model.ProducerID
	// URL of the server's web interface, e.g. http://localhost:5397.
	URL string
	// DialTimeout bounds Probe, which runs on the ingestion goroutine.
	DialTimeout time.Duration
	// MessageTimeout is how long the server may stay silent before the
	// source counts as lost.
	MessageTimeout time.Duration
	Logger         *slog.Logger
}

// Driver implements source.Driver and source.ListDriver. A reader goroutine
// owns the websocket; Probe, Poll and Release run on the ingestion goroutine.
type Driver struct {
	name           string
	producer       model.ProducerID
	url            string
	dialer         *websocket.Dialer
	messageTimeout time.Duration
	log            *slog.Logger

	conn *websocket.Conn
	done chan struct{}

	mu        sync.Mutex
	standings []Standing
	session   SessionInfo
	received  time.Time
	updates   uint64
	readErr   error

	// owned by the ingestion goroutine
	seen        uint64
	last        model.TelemetrySnapshot
	relative    [model.RelativeCapacity]model.RelativeCarEntry
	relativeN   int
	standingsN  int
	standingBuf [model.StandingsCapacity]model.StandingsEntry
}

func New(opts Options) (*Driver, error) {
	u, err := websocketURL(opts.URL)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := opts.Name
	if name == "" {
		name = "livetiming"
	}
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	messageTimeout := opts.MessageTimeout
	if messageTimeout <= 0 {
		messageTimeout = defaultMessageTimeout
	}
	return &Driver{
		name:     name,
		producer: opts.Producer,
		url:      u,
		dialer: &websocket.Dialer{
			HandshakeTimeout:  dialTimeout,
			EnableCompression: true,
		},
		messageTimeout: messageTimeout,
		log:            logger.With("driver", name),
	}, nil
}

func websocketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(err, "parse live timing url %q", raw)
	}
	switch u.Scheme {
	case "http", "ws", "":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("unsupported live timing url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.Errorf("live timing url %q has no host", raw)
	}
	u.Path = websocketPath
	return u.String(), nil
}

func (d *Driver) ID() model.ProducerID {
	return d.producer
}

func (d *Driver) Name() string {
	return d.name
}

func (d *Driver) Probe() bool {
	if d.conn != nil {
		return true
	}
	c, _, err := d.dialer.Dial(d.url, nil)
	if err != nil {
		d.log.Debug("live timing not reachable", "url", d.url, "error", err)
		return false
	}
	d.log.Info("connected to live timing", "url", d.url)

	d.mu.Lock()
	d.standings = nil
	d.session = SessionInfo{}
	d.received = time.Now()
	d.updates = 0
	d.readErr = nil
	d.mu.Unlock()

	d.conn = c
	d.seen = 0
	d.last = model.TelemetrySnapshot{}
	d.relativeN, d.standingsN = 0, 0
	d.done = make(chan struct{})
	go d.read(c, d.done)
	return true
}

// IsLive is true while the reader runs and the server keeps sending.
func (d *Driver) IsLive() bool {
	if d.conn == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readErr == nil && time.Since(d.received) < d.messageTimeout
}

func (d *Driver) Poll() (model.TelemetrySnapshot, bool) {
	if d.conn == nil {
		return model.TelemetrySnapshot{}, false
	}
	d.mu.Lock()
	if d.readErr != nil {
		d.mu.Unlock()
		return model.TelemetrySnapshot{}, false
	}
	if d.updates == d.seen && d.seen != 0 {
		d.mu.Unlock()
		return d.last, true
	}
	standings, session, updates := d.standings, d.session, d.updates
	d.mu.Unlock()

	d.seen = updates
	d.last = deriveTelemetry(standings, session)
	d.standingsN = deriveStandings(standings, d.standingBuf[:])
	d.relativeN = deriveRelative(standings, session.LapDistance, d.relative[:])
	return d.last, true
}

func (d *Driver) RelativeCars(dst []model.RelativeCarEntry) (int, bool) {
	if d.conn == nil {
		return 0, false
	}
	return copy(dst, d.relative[:d.relativeN]), true
}

func (d *Driver) Standings(dst []model.StandingsEntry) (int, bool) {
	if d.conn == nil {
		return 0, false
	}
	return copy(dst, d.standingBuf[:d.standingsN]), true
}

// Release closes the websocket and waits for the reader to exit.
func (d *Driver) Release() {
	if d.conn == nil {
		return
	}
	if err := d.conn.Close(); err != nil {
		d.log.Debug("close live timing websocket", "error", err)
	}
	<-d.done
	d.conn = nil
	d.log.Info("disconnected from live timing")
}

func (d *Driver) read(c *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	standingsCaster := caster.JSON[[]Standing]{}
	sessionCaster := caster.JSON[SessionInfo]{}

	for {
		var m Message
		if err := c.ReadJSON(&m); err != nil {
			d.mu.Lock()
			d.readErr = errors.Wrap(err, "read live timing")
			d.mu.Unlock()
			d.log.Debug("live timing reader stopped", "error", err)
			return
		}

		switch m.MessageType {
		case mtStandings:
			standings, err := standingsCaster.From(m.Body)
			if err != nil {
				d.log.Warn("undecodable standings", "error", err)
				continue
			}
			d.mu.Lock()
			d.standings = standings
			d.touch()
			d.mu.Unlock()
		case mtSessionInfo:
			session, err := sessionCaster.From(m.Body)
			if err != nil {
				d.log.Warn("undecodable session info", "error", err)
				continue
			}
			d.mu.Lock()
			d.session = session
			d.touch()
			d.mu.Unlock()
		default:
			d.mu.Lock()
			d.received = time.Now()
			d.mu.Unlock()
		}
	}
}

// touch must be called with mu held.
func (d *Driver) touch() {
	d.received = time.Now()
	d.updates++
}
