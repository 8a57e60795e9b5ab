package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

// BaseSuite carries the configuration and helpers shared by the scenario
// suites. Each client keeps its own cookie jar, so two clients are two
// distinct authenticated users.
type BaseSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("SERVER_ADDR is not set, skipping end to end suite")
	}
}

func (s *BaseSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Client is one authenticated browser tab: an HTTP session plus an
// optional WebSocket connection sharing the same token cookie.
type Client struct {
	suite *BaseSuite
	http  *http.Client
	base  string
	WS    *websocket.Conn
}

func (s *BaseSuite) NewClient() *Client {
	jar, err := cookiejar.New(nil)
	s.Require().NoError(err)
	return &Client{
		suite: s,
		http:  &http.Client{Jar: jar, Timeout: 10 * time.Second},
		base:  "http://" + s.Config.ServerAddr,
	}
}

func (c *Client) PostJSON(path string, body any) (*http.Response, []byte) {
	raw, err := json.Marshal(body)
	c.suite.Require().NoError(err)

	response, err := c.http.Post(c.base+path, "application/json", bytes.NewReader(raw))
	c.suite.Require().NoError(err)
	defer func() { _ = response.Body.Close() }()

	payload, err := io.ReadAll(response.Body)
	c.suite.Require().NoError(err)
	if c.suite.Config.DebugJSON {
		c.suite.T().Logf("POST %s [%d]\n%s", path, response.StatusCode, payload)
	}
	return response, payload
}

func (c *Client) GetJSON(path string, out any) int {
	response, err := c.http.Get(c.base + path)
	c.suite.Require().NoError(err)
	defer func() { _ = response.Body.Close() }()

	payload, err := io.ReadAll(response.Body)
	c.suite.Require().NoError(err)
	if c.suite.Config.DebugJSON {
		c.suite.T().Logf("GET %s [%d]\n%s", path, response.StatusCode, payload)
	}
	if out != nil && response.StatusCode == http.StatusOK {
		c.suite.Require().NoError(json.Unmarshal(payload, out))
	}
	return response.StatusCode
}

// Register creates a throwaway account and returns its user id. Usernames
// are suffixed so reruns against the same server never collide.
func (c *Client) Register(usernamePrefix string) string {
	username := usernamePrefix + uuid.New().String()[:8]
	response, payload := c.PostJSON("/register", map[string]string{
		"username": username,
		"password": "e2epassw0rd",
	})
	c.suite.Require().Equal(http.StatusCreated, response.StatusCode)

	var body map[string]string
	c.suite.Require().NoError(json.Unmarshal(payload, &body))
	c.suite.Require().NotEmpty(body["id"])
	return body["id"]
}

// Connect opens the WebSocket endpoint reusing the session's token cookie.
func (c *Client) Connect() {
	wsURL := "ws://" + c.suite.Config.ServerAddr + "/ws"
	serverURL, err := url.Parse(c.base)
	c.suite.Require().NoError(err)

	header := http.Header{}
	for _, cookie := range c.http.Jar.Cookies(serverURL) {
		header.Add("Cookie", cookie.String())
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	c.suite.Require().NoError(err)
	c.WS = conn
}

func (c *Client) CloseWS() {
	if c.WS != nil {
		_ = c.WS.Close()
	}
}

// AwaitFrame reads frames until one matches or the deadline expires.
func (c *Client) AwaitFrame(match func(map[string]any) bool) map[string]any {
	c.suite.Require().NotNil(c.WS)
	c.suite.Require().NoError(c.WS.SetReadDeadline(time.Now().Add(10 * time.Second)))
	for {
		var frame map[string]any
		c.suite.Require().NoError(c.WS.ReadJSON(&frame))
		if c.suite.Config.DebugJSON {
			c.suite.T().Logf("WS frame: %v", frame)
		}
		if match(frame) {
			return frame
		}
	}
}
