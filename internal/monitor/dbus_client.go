package monitor

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const busInterface = "org.freedesktop.DBus"

// DBusClient is the slice of a session bus connection the monitor uses.
//
//go:generate mockgen -destination=mocks/dbus_client_mock.go -package=mocks github.com/genricoloni/marquee/internal/monitor DBusClient
type DBusClient interface {
	Close() error
	AddMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)

	// ListNames returns all names on the bus
	ListNames() ([]string, error)

	// GetNameOwner resolves a well-known name such as
	// org.mpris.MediaPlayer2.spotify to its unique name (:1.45)
	GetNameOwner(name string) (string, error)

	// GetProperty reads prop ("<interface>.<name>") of the object at path
	// owned by player
	GetProperty(player, path, prop string) (dbus.Variant, error)
}

// StdDBusClient talks to the real session bus through godbus
type StdDBusClient struct {
	conn *dbus.Conn
}

// NewStdDBusClient connects to the session bus
func NewStdDBusClient() (*StdDBusClient, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, err
	}
	return &StdDBusClient{conn: conn}, nil
}

func (c *StdDBusClient) Close() error {
	return c.conn.Close()
}

func (c *StdDBusClient) AddMatchSignal(options ...dbus.MatchOption) error {
	return c.conn.AddMatchSignal(options...)
}

func (c *StdDBusClient) Signal(ch chan<- *dbus.Signal) {
	c.conn.Signal(ch)
}

func (c *StdDBusClient) ListNames() ([]string, error) {
	var names []string
	if err := c.conn.BusObject().Call(busInterface+".ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("ListNames: %w", err)
	}
	return names, nil
}

func (c *StdDBusClient) GetNameOwner(name string) (string, error) {
	var owner string
	if err := c.conn.BusObject().Call(busInterface+".GetNameOwner", 0, name).Store(&owner); err != nil {
		return "", fmt.Errorf("GetNameOwner %s: %w", name, err)
	}
	return owner, nil
}

func (c *StdDBusClient) GetProperty(player, path, prop string) (dbus.Variant, error) {
	return c.conn.Object(player, dbus.ObjectPath(path)).GetProperty(prop)
}
