package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harbourlane/foyer/internal/domain"
	"github.com/harbourlane/foyer/internal/notify"
	"github.com/harbourlane/foyer/internal/store/drivers/sqlite"
	"github.com/harbourlane/foyer/pkg/cryptox"
	"github.com/harbourlane/foyer/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "foyer-test-pepper")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

var testMeta = RequestMeta{
	IPAddress: "203.0.113.10",
	UserAgent: "Mozilla/5.0 (X11; Linux x86_64) Firefox/130.0",
}

// failingSender simulates a dead relay.
type failingSender struct{}

func (failingSender) Send(context.Context, notify.Message) error {
	return errors.New("smtp relay down")
}

// recordingSender captures outbound mail so tests can pull tokens out of
// message bodies.
type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (s *recordingSender) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

// lastTo returns the most recent message delivered to the given address.
func (s *recordingSender) lastTo(t *testing.T, to string) notify.Message {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i].To == to {
			return s.sent[i]
		}
	}
	t.Fatalf("no message sent to %s", to)
	return notify.Message{}
}

func (s *recordingSender) countTo(to string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, msg := range s.sent {
		if msg.To == to {
			n++
		}
	}
	return n
}

// tokenFromMessage extracts the raw token from a mailed link.
func tokenFromMessage(t *testing.T, msg notify.Message) string {
	t.Helper()
	i := strings.Index(msg.Body, "token=")
	require.NotEqual(t, -1, i, "message body carries no token link: %q", msg.Body)

	token := msg.Body[i+len("token="):]
	if j := strings.IndexAny(token, " \n"); j != -1 {
		token = token[:j]
	}
	require.NotEmpty(t, token)
	return token
}

// testEnv wires every service against a fresh in-memory store.
type testEnv struct {
	store  *sqlite.Store
	sender *recordingSender
	audit  *AuditRecorder

	auth     *AuthService
	account  *AccountService
	sessions *SessionService
	codes    *GuestCodeService
	admin    *AdminService
	twofa    *TwoFactorService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	sender := &recordingSender{}
	mailer := notify.NewMailer(sender, "http://localhost:8080")
	audit := &AuditRecorder{Store: st}

	auth := &AuthService{
		Store:         st,
		Mailer:        mailer,
		Audit:         audit,
		SessionSecret: []byte("test-session-secret"),
		SessionTTL:    time.Hour,
	}

	return &testEnv{
		store:    st,
		sender:   sender,
		audit:    audit,
		auth:     auth,
		account:  &AccountService{Store: st, Mailer: mailer, Audit: audit},
		sessions: &SessionService{Store: st, Audit: audit},
		codes:    &GuestCodeService{Store: st, Audit: audit, Auth: auth, TTL: time.Hour},
		admin:    &AdminService{Store: st, Audit: audit},
		twofa:    &TwoFactorService{Store: st, Audit: audit, Issuer: "foyer-test"},
	}
}

// register creates an account and returns the user plus the session cookie
// token that Register issues.
func (e *testEnv) register(t *testing.T, name, email, password string) (domain.User, string) {
	t.Helper()
	user, token, err := e.auth.Register(context.Background(), name, email, password, testMeta)
	require.NoError(t, err)
	return user, token
}

// identity resolves a cookie token the way the session middleware would.
func (e *testEnv) identity(t *testing.T, cookieToken string) httpx.Identity {
	t.Helper()
	ident, err := e.auth.VerifySession(context.Background(), cookieToken)
	require.NoError(t, err)
	return ident
}
