package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gorillawebsocket "github.com/gorilla/websocket"

	"github.com/Multiverse88/Dentalpro/internal/platform/websocket"
)

// Feed topics.
const (
	TopicPatients     = "patients"
	TopicAppointments = "appointments"
	TopicQueue        = "queue"
)

// Watch subscribes to the live change feed and calls fn for every event
// until ctx is done, the server closes the feed, or fn returns an error.
// A cancelled ctx returns nil.
func (c *Client) Watch(ctx context.Context, topics []string, fn func(websocket.Event) error) error {
	token := c.token()
	if token == "" {
		return ErrNotAuthenticated
	}
	u, err := url.Parse(c.baseURL + "/ws")
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"topics": {strings.Join(topics, ",")}}.Encode()

	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, resp, err := gorillawebsocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return &Error{Op: "watch", StatusCode: resp.StatusCode, Message: fmt.Sprintf("watch: server refused feed (%s)", resp.Status), Err: err}
		}
		return fmt.Errorf("watch: %w", err)
	}
	defer conn.Close()
	c.logger.Debug().Strs("topics", topics).Msg("watching change feed")

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var ev websocket.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if gorillawebsocket.IsCloseError(err, gorillawebsocket.CloseNormalClosure, gorillawebsocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
