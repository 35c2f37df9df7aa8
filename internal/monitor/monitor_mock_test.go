package monitor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/genricoloni/marquee/internal/domain"
	"github.com/genricoloni/marquee/internal/monitor/mocks"
	"github.com/godbus/dbus/v5"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

// servePlayer answers every property read for player from props. A missing
// entry fails the read, as a player without that property would.
func servePlayer(m *mocks.MockDBusClient, player string, props map[string]dbus.Variant) {
	m.EXPECT().GetProperty(player, mprisPath, gomock.Any()).
		DoAndReturn(func(_, _, prop string) (dbus.Variant, error) {
			if v, ok := props[strings.TrimPrefix(prop, playerIface+".")]; ok {
				return v, nil
			}
			return dbus.Variant{}, fmt.Errorf("no such property %s", prop)
		}).
		AnyTimes()
}

func TestFetchPlayerMetadata(t *testing.T) {
	const mpv = "org.mpris.MediaPlayer2.mpv"

	tests := []struct {
		name        string
		props       map[string]dbus.Variant
		expectError string
		want        *domain.MediaMetadata
	}{
		{
			name: "Full State",
			props: map[string]dbus.Variant{
				"Metadata":       metadata(map[string]interface{}{"xesam:title": "Teardrop", "xesam:artist": []string{"Massive Attack"}}),
				"PlaybackStatus": dbus.MakeVariant("Playing"),
				"Volume":         dbus.MakeVariant(0.5),
				"Position":       dbus.MakeVariant(int64(90_500_000)),
				"LoopStatus":     dbus.MakeVariant("Playlist"),
			},
			want: &domain.MediaMetadata{
				Player:   mpv,
				Title:    "Teardrop",
				Artist:   "Massive Attack",
				Status:   domain.StatePlaying,
				Volume:   50,
				Position: 90.5,
				Repeat:   true,
			},
		},
		{
			name: "Only Required Properties",
			props: map[string]dbus.Variant{
				"Metadata":       metadata(map[string]interface{}{"xesam:title": "Angel"}),
				"PlaybackStatus": dbus.MakeVariant("Paused"),
			},
			want: &domain.MediaMetadata{Player: mpv, Title: "Angel", Status: domain.StatePaused, Volume: -1},
		},
		{
			name:        "No Metadata",
			props:       map[string]dbus.Variant{"PlaybackStatus": dbus.MakeVariant("Playing")},
			expectError: "failed to get metadata",
		},
		{
			name:        "No Playback Status",
			props:       map[string]dbus.Variant{"Metadata": metadata(nil)},
			expectError: "failed to get playback status",
		},
		{
			name: "Playback Status Not A String",
			props: map[string]dbus.Variant{
				"Metadata":       metadata(nil),
				"PlaybackStatus": dbus.MakeVariant(true),
			},
			expectError: "invalid playback status format",
		},
		{
			name: "Idle Player Without Metadata Map",
			props: map[string]dbus.Variant{
				"Metadata":       dbus.MakeVariant(""),
				"PlaybackStatus": dbus.MakeVariant("Stopped"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			bus := mocks.NewMockDBusClient(ctrl)
			servePlayer(bus, mpv, tt.props)

			mon := newTestMonitor(bus, nil)
			err := mon.fetchPlayerMetadata(mpv)

			if tt.expectError == "" && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.expectError != "" && (err == nil || !strings.Contains(err.Error(), tt.expectError)) {
				t.Fatalf("expected error containing %q, got %v", tt.expectError, err)
			}

			got := nextEvent(mon)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("expected no event, got %+v", *got)
			case tt.want != nil && got == nil:
				t.Error("expected an event")
			case tt.want != nil && *got != *tt.want:
				t.Errorf("event mismatch:\nwant %+v\ngot  %+v", *tt.want, *got)
			}
		})
	}
}

func TestDetectExistingPlayers(t *testing.T) {
	ctrl := gomock.NewController(t)
	bus := mocks.NewMockDBusClient(ctrl)

	bus.EXPECT().ListNames().Return([]string{
		"org.freedesktop.DBus",
		"org.mpris.MediaPlayer2.spotify",
		"org.freedesktop.Notifications",
		"org.mpris.MediaPlayer2.vlc",
		"org.mpris.MediaPlayer2.ghost",
	}, nil)
	bus.EXPECT().GetNameOwner("org.mpris.MediaPlayer2.spotify").Return(":1.100", nil)
	bus.EXPECT().GetNameOwner("org.mpris.MediaPlayer2.vlc").Return(":1.200", nil)
	bus.EXPECT().GetNameOwner("org.mpris.MediaPlayer2.ghost").Return("", fmt.Errorf("name has no owner"))

	servePlayer(bus, "org.mpris.MediaPlayer2.spotify", map[string]dbus.Variant{
		"Metadata":       metadata(map[string]interface{}{"xesam:title": "Windowlicker"}),
		"PlaybackStatus": dbus.MakeVariant("Playing"),
	})
	servePlayer(bus, "org.mpris.MediaPlayer2.vlc", map[string]dbus.Variant{
		"Metadata":       metadata(map[string]interface{}{"xesam:title": "Koyaanisqatsi"}),
		"PlaybackStatus": dbus.MakeVariant("Paused"),
	})
	servePlayer(bus, "org.mpris.MediaPlayer2.ghost", nil)

	mon := newTestMonitor(bus, nil)
	if err := mon.detectExistingPlayers(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantNames := map[string]string{
		":1.100": "org.mpris.MediaPlayer2.spotify",
		":1.200": "org.mpris.MediaPlayer2.vlc",
	}
	if len(mon.playerNames) != len(wantNames) {
		t.Errorf("expected %d tracked players, got %v", len(wantNames), mon.playerNames)
	}
	for unique, name := range wantNames {
		if got := mon.getPlayerName(unique); got != name {
			t.Errorf("%s: expected %s, got %s", unique, name, got)
		}
	}

	// The ghost player has no readable state and reports nothing
	titles := map[string]string{}
	for ev := nextEvent(mon); ev != nil; ev = nextEvent(mon) {
		titles[ev.Player] = ev.Title
	}
	wantTitles := map[string]string{
		"org.mpris.MediaPlayer2.spotify": "Windowlicker",
		"org.mpris.MediaPlayer2.vlc":     "Koyaanisqatsi",
	}
	if !reflect.DeepEqual(titles, wantTitles) {
		t.Errorf("expected initial reports %v, got %v", wantTitles, titles)
	}
}

func TestDetectExistingPlayers_ListFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	bus := mocks.NewMockDBusClient(ctrl)
	bus.EXPECT().ListNames().Return(nil, fmt.Errorf("bus error"))

	mon := newTestMonitor(bus, nil)
	if err := mon.detectExistingPlayers(); err == nil {
		t.Fatal("expected an error")
	}
	if len(mon.playerNames) != 0 {
		t.Errorf("expected no tracked players, got %v", mon.playerNames)
	}
}

// TestStartStop runs the full lifecycle against a mocked bus
func TestStartStop(t *testing.T) {
	tests := []struct {
		name        string
		dialErr     error
		setupMock   func(*mocks.MockDBusClient)
		expectError string
	}{
		{
			name: "Success - Subscribes And Detects",
			setupMock: func(m *mocks.MockDBusClient) {
				m.EXPECT().AddMatchSignal(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				m.EXPECT().AddMatchSignal(gomock.Any(), gomock.Any()).Return(fmt.Errorf("not allowed"))
				m.EXPECT().ListNames().Return([]string{"org.freedesktop.DBus"}, nil)
				m.EXPECT().Signal(gomock.Any())
			},
		},
		{
			name:        "Failure - No Session Bus",
			dialErr:     fmt.Errorf("no DBUS_SESSION_BUS_ADDRESS"),
			setupMock:   func(*mocks.MockDBusClient) {},
			expectError: "session bus connection failed",
		},
		{
			name: "Failure - Match Rule Rejected",
			setupMock: func(m *mocks.MockDBusClient) {
				m.EXPECT().AddMatchSignal(gomock.Any(), gomock.Any(), gomock.Any()).Return(fmt.Errorf("denied"))
				m.EXPECT().Close().Return(nil)
			},
			expectError: "failed to add match signal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockClient := mocks.NewMockDBusClient(ctrl)
			tt.setupMock(mockClient)

			mon := NewMprisMonitor(zap.NewNop())
			mon.dial = func() (DBusClient, error) {
				if tt.dialErr != nil {
					return nil, tt.dialErr
				}
				return mockClient, nil
			}

			done := make(chan error, 1)
			go func() { done <- mon.Start(context.Background()) }()

			if tt.expectError != "" {
				select {
				case err := <-done:
					if err == nil || !strings.Contains(err.Error(), tt.expectError) {
						t.Fatalf("expected error containing %q, got %v", tt.expectError, err)
					}
				case <-time.After(time.Second):
					t.Fatal("Start did not return")
				}
				if err := mon.Stop(context.Background()); err != nil {
					t.Errorf("unexpected stop error: %v", err)
				}
				return
			}

			// Wait for the signal loop to register
			deadline := time.Now().Add(time.Second)
			for !ctrl.Satisfied() {
				if time.Now().After(deadline) {
					t.Fatal("monitor did not finish starting")
				}
				time.Sleep(5 * time.Millisecond)
			}
			mockClient.EXPECT().Close().Return(nil)

			if err := mon.Stop(context.Background()); err != nil {
				t.Fatalf("unexpected stop error: %v", err)
			}
			if err := <-done; !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled from Start, got %v", err)
			}
			if _, ok := <-mon.Events(); ok {
				t.Error("events channel should be closed after Stop")
			}
		})
	}
}
