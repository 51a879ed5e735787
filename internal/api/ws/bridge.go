package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/harmony/internal/app/notification"
	"github.com/osa030/harmony/internal/app/playback"
	"github.com/osa030/harmony/internal/domain/track"
)

const defaultEventBuffer = 64

var ErrNoPlayer = errors.New("no player page connected")

// Config holds bridge configuration.
type Config struct {
	// AllowedOrigins lists page origins allowed to connect (empty: same host only).
	AllowedOrigins []string
	EventBuffer    int
}

// Bridge is the playback element backed by the most recently connected player page.
// It also forwards notices, progress and now-playing state to that page.
type Bridge struct {
	mu sync.RWMutex

	conn   *Connection
	subID  string
	source string
	state  playback.ElementState
	time   float64
	length float64

	events   chan playback.ElementEvent
	onAction func(playback.MediaAction)

	notifications *notification.Manager
	upgrader      websocket.Upgrader
	baseCtx       context.Context
}

// NewBridge creates a bridge. notifications may be nil.
func NewBridge(cfg Config, notifications *notification.Manager) *Bridge {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	b := &Bridge{
		state:         playback.ElementUnstarted,
		events:        make(chan playback.ElementEvent, cfg.EventBuffer),
		notifications: notifications,
		baseCtx:       context.Background(),
	}
	b.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return b
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if lo.Contains(allowed, "*") || lo.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// SetBaseContext bounds the lifetime of connection pumps.
func (b *Bridge) SetBaseContext(ctx context.Context) {
	b.mu.Lock()
	b.baseCtx = ctx
	b.mu.Unlock()
}

// SetActionHandler routes transport actions pressed on the page.
func (b *Bridge) SetActionHandler(fn func(playback.MediaAction)) {
	b.mu.Lock()
	b.onAction = fn
	b.mu.Unlock()
}

// Connected reports whether a player page is attached.
func (b *Bridge) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conn != nil
}

// Handle upgrades the request and attaches the page as the player.
func (b *Bridge) Handle(c *gin.Context) {
	b.ServeHTTP(c.Writer, c.Request)
}

// ServeHTTP upgrades the request and attaches the page as the player.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Msgf("ws: upgrade failed: error=%v", err)
		return
	}

	conn := NewConnection(uuid.New().String(), wsConn)
	ctx := b.attach(conn)

	go conn.WritePump(ctx)
	go func() {
		conn.ReadPump(ctx, b.handleMessage)
		b.detach(conn)
	}()
	zlog.Info().Msgf("ws: player connected: id=%s remote=%s", conn.ID, r.RemoteAddr)
}

func (b *Bridge) attach(conn *Connection) context.Context {
	b.mu.Lock()
	prev, prevSub := b.conn, b.subID
	b.conn = conn
	b.subID = ""
	if b.notifications != nil {
		b.subID = b.notifications.Subscribe(conn)
	}
	b.state = playback.ElementUnstarted
	b.time, b.length = 0, 0
	source := b.source
	ctx := b.baseCtx
	b.mu.Unlock()

	if prev != nil {
		if b.notifications != nil && prevSub != "" {
			b.notifications.Unsubscribe(prevSub)
		}
		prev.Close("replaced by a new player")
	}
	if source != "" {
		_ = conn.SendJSON(Outbound{Type: TypeCommand, Command: CommandLoad, SourceID: source})
	}
	return ctx
}

func (b *Bridge) detach(conn *Connection) {
	b.mu.Lock()
	if b.conn != conn {
		b.mu.Unlock()
		return
	}
	b.conn = nil
	subID := b.subID
	b.subID = ""
	b.state = playback.ElementUnstarted
	b.mu.Unlock()

	if b.notifications != nil && subID != "" {
		b.notifications.Unsubscribe(subID)
	}
	zlog.Info().Msgf("ws: player disconnected: id=%s", conn.ID)
}

func (b *Bridge) handleMessage(data []byte) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		zlog.Warn().Msgf("ws: invalid message: error=%v", err)
		return
	}

	switch in.Type {
	case TypeReady:
		b.emit(playback.ElementEvent{Type: playback.ElementReady})
	case TypeState:
		st := playback.ElementState(in.State)
		b.mu.Lock()
		b.state = st
		b.mu.Unlock()
		b.emit(playback.ElementEvent{Type: playback.ElementStateChanged, State: st, SourceID: in.SourceID})
	case TypeError:
		b.emit(playback.ElementEvent{Type: playback.ElementError, Code: in.Code, SourceID: in.SourceID})
	case TypeTime:
		b.mu.Lock()
		if in.SourceID == "" || in.SourceID == b.source {
			b.time, b.length = in.CurrentTime, in.Duration
		}
		b.mu.Unlock()
	case TypeAction:
		b.mu.RLock()
		fn := b.onAction
		b.mu.RUnlock()
		if fn != nil {
			fn(playback.MediaAction(in.Action))
		}
	default:
		zlog.Debug().Msgf("ws: unknown message type: type=%s", in.Type)
	}
}

func (b *Bridge) emit(ev playback.ElementEvent) {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()

	var done <-chan struct{}
	if conn != nil {
		done = conn.Done()
	}
	select {
	case b.events <- ev:
	case <-done:
	}
}

func (b *Bridge) command(ctx context.Context, msg Outbound) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()
	if conn == nil {
		return ErrNoPlayer
	}
	return conn.SendJSON(msg)
}

// Load asks the page to load source. Without a page the source is loaded on connect.
func (b *Bridge) Load(ctx context.Context, sourceID string) error {
	b.mu.Lock()
	b.source = sourceID
	b.time, b.length = 0, 0
	connected := b.conn != nil
	b.mu.Unlock()

	if !connected {
		zlog.Debug().Msgf("ws: no player, load deferred: source=%s", sourceID)
		return nil
	}
	return b.command(ctx, Outbound{Type: TypeCommand, Command: CommandLoad, SourceID: sourceID})
}

// Play resumes playback on the page.
func (b *Bridge) Play(ctx context.Context) error {
	return b.command(ctx, Outbound{Type: TypeCommand, Command: CommandPlay})
}

// Pause pauses playback on the page.
func (b *Bridge) Pause(ctx context.Context) error {
	return b.command(ctx, Outbound{Type: TypeCommand, Command: CommandPause})
}

// Seek moves the playhead.
func (b *Bridge) Seek(ctx context.Context, seconds float64) error {
	b.mu.Lock()
	b.time = seconds
	b.mu.Unlock()
	return b.command(ctx, Outbound{Type: TypeCommand, Command: CommandSeek, Seconds: &seconds})
}

// SetVolume sets the page volume (0-100).
func (b *Bridge) SetVolume(ctx context.Context, volume int) error {
	return b.command(ctx, Outbound{Type: TypeCommand, Command: CommandVolume, Volume: &volume})
}

// CurrentTime returns the last reported position in seconds.
func (b *Bridge) CurrentTime() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.time
}

// Duration returns the last reported duration in seconds.
func (b *Bridge) Duration() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.length
}

// State returns the last reported player state.
func (b *Bridge) State() playback.ElementState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Events returns the page's player events.
func (b *Bridge) Events() <-chan playback.ElementEvent {
	return b.events
}

// PublishProgress forwards the displayed progress.
func (b *Bridge) PublishProgress(p playback.Progress) {
	b.forward(Outbound{Type: TypeProgress, Progress: &p})
}

// SetMetadata forwards now-playing metadata.
func (b *Bridge) SetMetadata(t *track.Track) {
	b.forward(Outbound{Type: TypeMetadata, Track: t})
}

// SetPlaybackState forwards the now-playing state.
func (b *Bridge) SetPlaybackState(state string) {
	b.forward(Outbound{Type: TypePlaybackState, State: state})
}

// SetPosition forwards the now-playing position.
func (b *Bridge) SetPosition(position, duration float64) {
	b.forward(Outbound{Type: TypePosition, Position: &position, Duration: &duration})
}

func (b *Bridge) forward(msg Outbound) {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()
	if conn != nil {
		_ = conn.SendJSON(msg)
	}
}

// Close disconnects the page.
func (b *Bridge) Close() {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()
	if conn != nil {
		conn.Close("server shutdown")
	}
}

var (
	_ playback.Element      = (*Bridge)(nil)
	_ playback.ProgressSink = (*Bridge)(nil)
	_ playback.MediaSession = (*Bridge)(nil)
	_ notification.Stream   = (*Connection)(nil)
)
