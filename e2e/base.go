package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"socialchat/infrastructure/api"
	"socialchat/infrastructure/ws"
	"socialchat/internal"
	"socialchat/observability"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

const testSecret = "e2e-secret-that-is-long-enough-for-hs256"

// BaseChatSuite runs a full server per test: real stores in temp dirs,
// the real router behind an httptest server and gorilla clients.
type BaseChatSuite struct {
	suite.Suite
	Config Config
	App    *internal.App
	Server *httptest.Server
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseChatSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

func (s *BaseChatSuite) SetupTest() {
	var config internal.Config
	err := env.Unmarshal(env.EnvSet{
		"BADGER_FILEPATH":  s.T().TempDir(),
		"BLUGE_FILEPATH":   s.T().TempDir(),
		"AUTH_SECRET":      testSecret,
		"RATE_LIMIT_BURST": "200",
		"METRIC_INTERVAL":  "1h",
		"SHUTDOWN_TIMEOUT": "2s",
	}, &config)
	s.Require().NoError(err)

	s.App, err = internal.NewApp(context.Background(), config, logs.GetLoggerFromLevel(slog.LevelWarn))
	s.Require().NoError(err)
	s.Server = httptest.NewServer(s.App.Router)
}

func (s *BaseChatSuite) TearDownTest() {
	// Sessions are hijacked connections, the app drains them before the server closes
	s.Require().NoError(s.App.Close())
	s.Server.Close()
}

// Step prints a colorized header for a scenario step
func (s *BaseChatSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Token mints a session token for the given e-mail
func (s *BaseChatSuite) Token(email string) string {
	token, err := s.App.Tokens.GenerateToken(email, "")
	s.Require().NoError(err)
	return token
}

func (s *BaseChatSuite) socketURL(token string) string {
	u := "ws" + strings.TrimPrefix(s.Server.URL, "http") + "/ws/chat/lobby"
	if token != "" {
		u += "?token=" + url.QueryEscape(token)
	}
	return u
}

// Dial opens a chat connection; an empty token connects anonymously
func (s *BaseChatSuite) Dial(name, token string) *websocket.Conn {
	conn, resp, err := websocket.DefaultDialer.Dial(s.socketURL(token), nil)
	s.Require().NoError(err, "Failed to connect %s", name)
	s.Require().Equal(http.StatusSwitchingProtocols, resp.StatusCode)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

// DialStatus returns the HTTP status of a handshake that is expected to fail
func (s *BaseChatSuite) DialStatus(token string) int {
	conn, resp, err := websocket.DefaultDialer.Dial(s.socketURL(token), nil)
	if err == nil {
		_ = conn.Close()
		return http.StatusSwitchingProtocols
	}
	s.Require().ErrorIs(err, websocket.ErrBadHandshake)
	return resp.StatusCode
}

func (s *BaseChatSuite) Send(conn *websocket.Conn, content string) {
	s.SendRaw(conn, fmt.Sprintf(`{"message":%q}`, content))
}

func (s *BaseChatSuite) SendRaw(conn *websocket.Conn, raw string) {
	if s.Config.DebugJSON {
		s.T().Logf("SEND %s", raw)
	}
	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

// Read waits for the next frame
func (s *BaseChatSuite) Read(conn *websocket.Conn) ws.OutboundFrame {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(s.Config.Timeout)))
	_, raw, err := conn.ReadMessage()
	s.Require().NoError(err)
	if s.Config.DebugJSON {
		s.T().Logf("RECV %s", raw)
	}
	var frame ws.OutboundFrame
	s.Require().NoError(json.Unmarshal(raw, &frame))
	return frame
}

// ExpectSilence asserts that nothing arrives within wait. The connection
// cannot be read again afterwards.
func (s *BaseChatSuite) ExpectSilence(conn *websocket.Conn, wait time.Duration) {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(wait)))
	_, raw, err := conn.ReadMessage()
	s.Require().Error(err, "unexpected frame %s", raw)
}

// GetJSON calls the HTTP API and decodes the answer
func (s *BaseChatSuite) GetJSON(path string, out any) {
	resp, err := s.Server.Client().Get(s.Server.URL + path)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
}

func (s *BaseChatSuite) History(limit int) []api.MessageView {
	var views []api.MessageView
	s.GetJSON(fmt.Sprintf("/api/messages?limit=%d", limit), &views)
	return views
}

func (s *BaseChatSuite) Stats() observability.Stats {
	var stats observability.Stats
	s.GetJSON("/api/stats", &stats)
	return stats
}

// WaitMembers blocks until the lobby holds n sessions
func (s *BaseChatSuite) WaitMembers(n int) {
	s.Require().Eventually(func() bool {
		return s.Stats().Rooms["1"] == n
	}, s.Config.Timeout, 10*time.Millisecond, "lobby should hold %d members", n)
}
