package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/marquee/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	mprisPrefix   = "org.mpris.MediaPlayer2."
	mprisPath     = "/org/mpris/MediaPlayer2"
	playerIface   = "org.mpris.MediaPlayer2.Player"
	changedSignal = busInterface + ".Properties.PropertiesChanged"
	ownerSignal   = busInterface + ".NameOwnerChanged"
	usPerSecond   = 1e6
	unknownVolume = -1
	volumeScale   = 100
)

// playerProps are the Player properties folded into one MediaMetadata.
// Metadata and PlaybackStatus are required, the rest best effort.
var playerProps = []string{"Metadata", "PlaybackStatus", "Volume", "Shuffle", "LoopStatus", "Position"}

// MprisMonitor reports the state of MPRIS media players on the session bus
type MprisMonitor struct {
	logger          *zap.Logger
	events          chan domain.MediaMetadata
	dial            func() (DBusClient, error)
	mu              sync.RWMutex
	running         bool
	cancel          context.CancelFunc
	conn            DBusClient
	lastDropWarning time.Time         // rate limits "channel full" warnings
	wg              sync.WaitGroup    // producers that may still send on events
	playerNames     map[string]string // unique bus name (:1.45) -> well-known name
}

// NewMprisMonitor creates a new MPRIS monitor instance
func NewMprisMonitor(logger *zap.Logger) *MprisMonitor {
	return &MprisMonitor{
		logger:      logger,
		events:      make(chan domain.MediaMetadata, 10),
		dial:        dialSessionBus,
		playerNames: make(map[string]string),
	}
}

func dialSessionBus() (DBusClient, error) {
	c, err := NewStdDBusClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Start connects to the session bus, reports the players already running
// and then follows their changes. It blocks until ctx is cancelled or Stop
// is called.
func (m *MprisMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	monitorCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	conn, err := m.dial()
	if err != nil {
		cancel()
		m.mu.Lock()
		m.running = false
		m.cancel = nil
		m.mu.Unlock()
		return fmt.Errorf("session bus connection failed: %w", err)
	}

	// Stopped while connecting
	if err := monitorCtx.Err(); err != nil {
		if cerr := conn.Close(); cerr != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(cerr))
		}
		return err
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	if err := m.subscribe(conn); err != nil {
		return err
	}

	// Stop must wait for detection, it sends on events
	m.wg.Add(1)
	func() {
		defer m.wg.Done()
		if err := m.detectExistingPlayers(); err != nil {
			m.logger.Warn("Failed to detect existing players", zap.Error(err))
		}
	}()

	m.wg.Add(1)
	go m.monitorSignals(monitorCtx)

	m.logger.Info("MPRIS monitor started")
	<-monitorCtx.Done()

	m.logger.Info("MPRIS monitor stopped")
	return monitorCtx.Err()
}

// subscribe adds the match rules for player property changes and for
// players appearing or leaving the bus. Only the first is required.
func (m *MprisMonitor) subscribe(conn DBusClient) error {
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(mprisPath),
		dbus.WithMatchInterface(busInterface+".Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return fmt.Errorf("failed to add match signal: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(busInterface),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		m.logger.Warn("Player tracking disabled, NameOwnerChanged match failed", zap.Error(err))
	}
	return nil
}

// Stop cancels Start, waits for the producers and closes the events
// channel and the bus connection
func (m *MprisMonitor) Stop(_ context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	close(m.events)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
		m.conn = nil
	}

	m.logger.Info("MPRIS monitor shutdown complete")
	return nil
}

// Events returns a read-only channel that emits MediaMetadata
func (m *MprisMonitor) Events() <-chan domain.MediaMetadata {
	return m.events
}

// detectExistingPlayers queries D-Bus for currently running MPRIS players
func (m *MprisMonitor) detectExistingPlayers() error {
	names, err := m.conn.ListNames()
	if err != nil {
		return fmt.Errorf("failed to list bus names: %w", err)
	}

	players := 0
	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}
		players++

		if unique, err := m.conn.GetNameOwner(name); err == nil {
			m.trackPlayer(unique, name)
		}
		if err := m.fetchPlayerMetadata(name); err != nil {
			m.logger.Warn("Failed to fetch initial metadata",
				zap.String("player", name),
				zap.Error(err))
		}
	}

	m.logger.Info("Player detection complete", zap.Int("count", players))
	return nil
}

func (m *MprisMonitor) trackPlayer(unique, name string) {
	m.mu.Lock()
	m.playerNames[unique] = name
	m.mu.Unlock()
	m.logger.Debug("MPRIS player tracked",
		zap.String("player", name),
		zap.String("unique", unique))
}

func (m *MprisMonitor) forgetPlayer(unique string) {
	m.mu.Lock()
	delete(m.playerNames, unique)
	m.mu.Unlock()
}

// fetchPlayerMetadata retrieves and emits the full state of a specific player
func (m *MprisMonitor) fetchPlayerMetadata(playerName string) error {
	variant, err := m.conn.GetProperty(playerName, mprisPath, playerIface+".Metadata")
	if err != nil {
		return fmt.Errorf("failed to get metadata: %w", err)
	}

	// Some players return nil or unexpected types if not playing anything
	if _, ok := variant.Value().(map[string]dbus.Variant); !ok {
		m.logger.Debug("Metadata variant is not a map, skipping", zap.String("player", playerName))
		return nil
	}

	statusVariant, err := m.conn.GetProperty(playerName, mprisPath, playerIface+".PlaybackStatus")
	if err != nil {
		return fmt.Errorf("failed to get playback status: %w", err)
	}
	if _, ok := statusVariant.Value().(string); !ok {
		return fmt.Errorf("invalid playback status format")
	}

	props := map[string]dbus.Variant{
		"Metadata":       variant,
		"PlaybackStatus": statusVariant,
	}
	m.fillProps(playerName, props)

	mediaMeta := m.parseMetadata(m.getPlayerName(playerName), props)

	// Dropping intermediate events during rapid track changes is acceptable,
	// the state only needs the latest report
	select {
	case m.events <- mediaMeta:
		m.logger.Debug("Emitted initial metadata", zap.String("title", mediaMeta.Title))
	default:
		m.logChannelFullWarning()
	}

	return nil
}

// fillProps queries every player property missing from props. Failures
// leave the property out.
func (m *MprisMonitor) fillProps(sender string, props map[string]dbus.Variant) {
	for _, name := range playerProps {
		if _, ok := props[name]; ok {
			continue
		}
		variant, err := m.conn.GetProperty(sender, mprisPath, playerIface+"."+name)
		if err != nil {
			m.logger.Debug("Player property unavailable",
				zap.String("player", sender),
				zap.String("property", name),
				zap.Error(err))
			continue
		}
		props[name] = variant
	}
}

// monitorSignals listens for D-Bus signals and processes them
func (m *MprisMonitor) monitorSignals(ctx context.Context) {
	defer m.wg.Done()

	signals := make(chan *dbus.Signal, 10)
	m.conn.Signal(signals)

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("Signal loop stopped")
			return
		case sig := <-signals:
			switch {
			case sig == nil:
			case sig.Name == ownerSignal:
				m.handleNameOwnerChanged(sig)
			default:
				m.handleSignal(sig)
			}
		}
	}
}

// handleNameOwnerChanged processes NameOwnerChanged signals to track player lifecycle
func (m *MprisMonitor) handleNameOwnerChanged(sig *dbus.Signal) {
	if len(sig.Body) < 3 {
		return
	}

	name, ok := sig.Body[0].(string)
	if !ok || !strings.HasPrefix(name, mprisPrefix) {
		return
	}
	oldOwner, _ := sig.Body[1].(string)
	newOwner, _ := sig.Body[2].(string)

	if oldOwner != "" {
		m.forgetPlayer(oldOwner)
	}

	switch {
	case newOwner != "" && oldOwner == "":
		m.trackPlayer(newOwner, name)
		m.logger.Info("New MPRIS player detected", zap.String("player", name))
		if err := m.fetchPlayerMetadata(name); err != nil {
			m.logger.Warn("Failed to fetch metadata from new player",
				zap.String("player", name),
				zap.Error(err))
		}
	case newOwner != "":
		// Ownership moved to another connection
		m.trackPlayer(newOwner, name)
	default:
		m.logger.Info("MPRIS player removed", zap.String("player", name))
	}
}

// handleSignal processes a PropertiesChanged signal. Its body is the
// interface name, the changed properties and the invalidated ones.
func (m *MprisMonitor) handleSignal(sig *dbus.Signal) {
	if sig.Name != changedSignal {
		return
	}

	if len(sig.Body) < 2 {
		return
	}

	interfaceName, ok := sig.Body[0].(string)
	if !ok || interfaceName != playerIface {
		return
	}

	changedProps, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	playerName := m.getPlayerName(sig.Sender)

	m.logger.Debug("Received PropertiesChanged signal",
		zap.String("sender", sig.Sender),
		zap.String("player", playerName),
		zap.Int("properties", len(changedProps)))

	props := make(map[string]dbus.Variant, len(playerProps))
	for _, name := range playerProps {
		if v, ok := changedProps[name]; ok {
			props[name] = v
		}
	}
	// Nothing the display shows has changed
	if len(props) == 0 {
		return
	}

	if v, ok := props["Metadata"]; ok {
		if _, ok := v.Value().(map[string]dbus.Variant); !ok {
			m.logger.Warn("Invalid metadata format in signal, ignoring")
			return
		}
	}
	if v, ok := props["PlaybackStatus"]; ok {
		if _, ok := v.Value().(string); !ok {
			m.logger.Warn("Invalid playback status format in signal, ignoring")
			return
		}
	}

	m.fillProps(sig.Sender, props)
	mediaMeta := m.parseMetadata(playerName, props)

	// Non-blocking send so a slow consumer never stalls the bus reader
	select {
	case m.events <- mediaMeta:
		m.logger.Info("Media change detected",
			zap.String("player", playerName),
			zap.String("title", mediaMeta.Title),
			zap.String("artist", mediaMeta.Artist),
			zap.String("status", string(mediaMeta.Status)))
	default:
		m.logChannelFullWarning()
	}
}

// parseMetadata converts MPRIS player properties to the domain model
func (m *MprisMonitor) parseMetadata(player string, props map[string]dbus.Variant) domain.MediaMetadata {
	meta := domain.MediaMetadata{
		Player: player,
		Status: domain.StateStopped,
		Volume: unknownVolume,
	}

	if v, ok := props["PlaybackStatus"]; ok {
		status, _ := v.Value().(string)
		switch status {
		case "Playing":
			meta.Status = domain.StatePlaying
		case "Paused":
			meta.Status = domain.StatePaused
		}
	}

	if v, ok := props["Volume"]; ok {
		if vol, ok := v.Value().(float64); ok {
			meta.Volume = int(vol*volumeScale + 0.5)
		}
	}
	if v, ok := props["Shuffle"]; ok {
		meta.Shuffle, _ = v.Value().(bool)
	}
	if v, ok := props["LoopStatus"]; ok {
		loop, _ := v.Value().(string)
		meta.Repeat = loop == "Track" || loop == "Playlist"
	}
	if v, ok := props["Position"]; ok {
		if pos, ok := v.Value().(int64); ok {
			meta.Position = float64(pos) / usPerSecond
		}
	}

	var metadata map[string]dbus.Variant
	if v, ok := props["Metadata"]; ok {
		metadata, _ = v.Value().(map[string]dbus.Variant)
	}
	if metadata == nil {
		return meta
	}

	if titleVar, ok := metadata["xesam:title"]; ok {
		if title, ok := titleVar.Value().(string); ok {
			meta.Title = title
		}
	}

	// xesam:artist is a list; the compositor splits on ";"
	if artistVar, ok := metadata["xesam:artist"]; ok {
		switch artists := artistVar.Value().(type) {
		case []string:
			meta.Artist = strings.Join(artists, ";")
		case string:
			meta.Artist = artists
		default:
			m.logger.Debug("Unexpected artist type in metadata",
				zap.String("type", fmt.Sprintf("%T", artistVar.Value())))
		}
	}

	if albumVar, ok := metadata["xesam:album"]; ok {
		if album, ok := albumVar.Value().(string); ok {
			meta.Album = album
		}
	}

	if lengthVar, ok := metadata["mpris:length"]; ok {
		switch length := lengthVar.Value().(type) {
		case int64:
			meta.Length = float64(length) / usPerSecond
		case uint64:
			meta.Length = float64(length) / usPerSecond
		}
	}

	if artVar, ok := metadata["mpris:artUrl"]; ok {
		if artUrl, ok := artVar.Value().(string); ok {
			if artUrl == "" {
				m.logger.Debug("Empty artUrl received",
					zap.String("title", meta.Title),
					zap.String("artist", meta.Artist))
			} else {
				meta.ArtUrl = artUrl
			}
		}
	}

	return meta
}

// getPlayerName returns the well-known player name for a unique bus name
// Falls back to the unique name if no mapping exists
func (m *MprisMonitor) getPlayerName(uniqueName string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if wellKnown, ok := m.playerNames[uniqueName]; ok {
		return wellKnown
	}
	return uniqueName
}

// logChannelFullWarning logs a warning about channel being full, but rate-limited
// to avoid log spam during rapid track changes (e.g., fast skipping)
func (m *MprisMonitor) logChannelFullWarning() {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit to max one warning per 5 seconds
	const warningInterval = 5 * time.Second
	now := time.Now()

	if now.Sub(m.lastDropWarning) >= warningInterval {
		m.logger.Warn("Events channel full, dropping metadata (consumer may be slow or fast track changes occurring)",
			zap.String("note", "This is expected during rapid track skipping. Consumer should implement debouncing."))
		m.lastDropWarning = now
	}
}
