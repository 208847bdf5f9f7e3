package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Easy-Rad/wally/internal/model"
)

// SessionHeader is the local name of the response header element that
// carries the session token.
const SessionHeader = "AccountSession"

// HeaderCapture is an Interceptor that keeps the latest copy of one SOAP
// header element. Responses without the element leave the stored value
// untouched.
type HeaderCapture struct {
	Local string

	mu    sync.Mutex
	value []byte
}

// NewHeaderCapture captures the header element named local.
func NewHeaderCapture(local string) *HeaderCapture {
	return &HeaderCapture{Local: local}
}

// InterceptResponse implements Interceptor.
func (h *HeaderCapture) InterceptResponse(_ string, envelope []byte) error {
	v, err := extractHeader(envelope, h.Local)
	if err != nil {
		return fmt.Errorf("extract %s header: %w", h.Local, err)
	}
	if v == nil {
		return nil
	}
	h.mu.Lock()
	h.value = v
	h.mu.Unlock()
	return nil
}

// Value returns the captured element, or nil.
func (h *HeaderCapture) Value() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value
}

// Clear forgets the captured element.
func (h *HeaderCapture) Clear() {
	h.mu.Lock()
	h.value = nil
	h.mu.Unlock()
}

// Credentials are the sign-in parameters of the service account.
type Credentials struct {
	LoginName   string
	Password    string
	Version     string
	Workstation string
	Locale      string
	TimeZoneID  string
}

// SessionManager owns the remote session. At most one session is live at a
// time; every session-bearing call attaches its token.
type SessionManager struct {
	client  *Client
	creds   Credentials
	capture *HeaderCapture
	now     func() time.Time
	logger  *slog.Logger

	mu      sync.Mutex
	session *model.Session
}

// NewSessionManager registers a session capture interceptor on client.
// now may be nil, in which case time.Now is used.
func NewSessionManager(client *Client, creds Credentials, now func() time.Time, logger *slog.Logger) *SessionManager {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	capture := NewHeaderCapture(SessionHeader)
	client.Use(capture)
	return &SessionManager{
		client:  client,
		creds:   creds,
		capture: capture,
		now:     now,
		logger:  logger.With("component", "reporting"),
	}
}

// Login signs in and records the new session. A fault from the server or a
// response without a session header is an *AuthError.
func (m *SessionManager) Login(ctx context.Context) (*model.Session, error) {
	m.capture.Clear()
	res, err := m.client.SignIn(ctx, SignInRequest{
		LoginName:   m.creds.LoginName,
		Password:    m.creds.Password,
		AdminMode:   false,
		Version:     m.creds.Version,
		Workstation: m.creds.Workstation,
		Locale:      m.creds.Locale,
		TimeZoneID:  m.creds.TimeZoneID,
	})
	if err != nil {
		var f *Fault
		if errors.As(err, &f) {
			return nil, &AuthError{Login: m.creds.LoginName, Reason: f.Reason, Err: f}
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	token := m.capture.Value()
	if token == nil {
		return nil, &AuthError{Login: m.creds.LoginName, Reason: "response carried no " + SessionHeader + " header"}
	}

	s := &model.Session{
		AccountID:  res.AccountID,
		PersonName: res.FirstName + " " + res.LastName,
		Token:      string(token),
		IssuedAt:   m.now(),
	}
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()

	m.logger.Info("reporting session opened", "account", s.AccountID, "name", s.PersonName)
	return s, nil
}

// Logout signs out. It is a no-op without a session. The local session is
// dropped even when the server call fails.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	s := m.session
	m.session = nil
	m.mu.Unlock()
	if s == nil {
		return nil
	}
	m.capture.Clear()

	ok, err := m.client.SignOut(ctx, []byte(s.Token))
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	m.logger.Info("reporting session closed", "account", s.AccountID, "confirmed", ok)
	return nil
}

// Session returns the active session, if any.
func (m *SessionManager) Session() (*model.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.session != nil
}

// Expired reports whether there is no session or the active one is older
// than lifetime at now.
func (m *SessionManager) Expired(now time.Time, lifetime time.Duration) bool {
	s, ok := m.Session()
	if !ok {
		return true
	}
	return !now.Before(s.ExpiresAt(lifetime))
}

func (m *SessionManager) token() ([]byte, error) {
	s, ok := m.Session()
	if !ok {
		return nil, ErrNoSession
	}
	return []byte(s.Token), nil
}

// BrowseOrders lists orders using the active session.
func (m *SessionManager) BrowseOrders(ctx context.Context, req BrowseRequest) ([]Order, error) {
	tok, err := m.token()
	if err != nil {
		return nil, err
	}
	return m.client.BrowseOrders(ctx, tok, req)
}

// GetReportEvents returns a report's events using the active session.
func (m *SessionManager) GetReportEvents(ctx context.Context, reportID int64) ([]Event, error) {
	tok, err := m.token()
	if err != nil {
		return nil, err
	}
	return m.client.GetReportEvents(ctx, tok, reportID)
}
