package chat

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"github.com/xmppo/go-xmpp"
)

// XMPPConfig configures the go-xmpp client.
type XMPPConfig struct {
	JID         string
	Password    string
	Server      string
	Port        int
	Domain      string // TLS server name; defaults to Server
	StartTLS    bool
	InsecureTLS bool // skip certificate verification
}

// XMPPDialer dials the chat network with go-xmpp.
type XMPPDialer struct {
	Config XMPPConfig
}

func (d XMPPDialer) options() xmpp.Options {
	c := d.Config
	serverName := c.Domain
	if serverName == "" {
		serverName = c.Server
	}
	return xmpp.Options{
		Host:     net.JoinHostPort(c.Server, strconv.Itoa(c.Port)),
		User:     c.JID,
		Password: c.Password,
		NoTLS:    true,
		StartTLS: c.StartTLS,
		TLSConfig: &tls.Config{
			ServerName:         serverName,
			InsecureSkipVerify: c.InsecureTLS, //nolint:gosec // the chat server presents an internal certificate
		},
		InsecureAllowUnencryptedAuth: !c.StartTLS,
		Session:                      true,
	}
}

// Dial connects and authenticates. go-xmpp has no context support, so a
// cancelled dial abandons the attempt and closes the client once the
// handshake returns.
func (d XMPPDialer) Dial(ctx context.Context) (Conn, error) {
	type result struct {
		client *xmpp.Client
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		client, err := d.options().NewClient()
		ch <- result{client, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("connect %s: %w", d.Config.Server, r.err)
		}
		return &xmppConn{client: r.client}, nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.client != nil {
				_ = r.client.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

type xmppConn struct {
	client *xmpp.Client
}

// Recv skips stanzas that have no Event form.
func (c *xmppConn) Recv() (Event, error) {
	for {
		stanza, err := c.client.Recv()
		if err != nil {
			return Event{}, err
		}
		if ev, ok := toEvent(stanza); ok {
			return ev, nil
		}
	}
}

func toEvent(stanza any) (Event, bool) {
	switch v := stanza.(type) {
	case xmpp.Chat:
		if v.Type == "roster" {
			r := &Roster{Items: make([]RosterItem, 0, len(v.Roster))}
			for _, contact := range v.Roster {
				r.Items = append(r.Items, RosterItem{JID: contact.Remote, Name: contact.Name})
			}
			return Event{Kind: RosterReceived, Roster: r}, true
		}
		m := &Message{From: v.Remote, Type: v.Type, Body: v.Text}
		for _, el := range v.OtherElem {
			m.Elements = append(m.Elements, Element{Name: el.XMLName, Attrs: el.Attr, InnerXML: el.InnerXML})
		}
		return Event{Kind: MessageReceived, Message: m}, true
	case xmpp.Presence:
		if v.Type != "" && v.Type != "unavailable" {
			return Event{}, false
		}
		return Event{Kind: PresenceChanged, Presence: &Presence{From: v.From, Type: v.Type, Show: v.Show}}, true
	default:
		return Event{}, false
	}
}

func (c *xmppConn) SendAvailable() error {
	_, err := c.client.SendOrg("<presence/>")
	return err
}

func (c *xmppConn) RequestRoster() error {
	return c.client.Roster()
}

func (c *xmppConn) SendMessage(m Message) error {
	_, err := c.client.SendOrg(m.XML())
	return err
}

func (c *xmppConn) Close() error {
	return c.client.Close()
}
