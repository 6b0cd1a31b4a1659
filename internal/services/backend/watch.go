package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/vortex/internal/models"
)

// Watch streams job updates from the backend WebSocket until the job is
// terminal, the backend reports an error, or ctx is done. fn is called for
// every update in arrival order.
func (c *Client) Watch(ctx context.Context, jobID string, fn func(*models.JobStatusPayload)) error {
	wsURL, err := c.websocketURL("/api/ws/jobs/" + url.PathEscape(jobID))
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("User-Agent", userAgent)
	if id := requestID(ctx); id != "" {
		header.Set("X-Request-ID", id)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return &models.BackendError{Op: "watch", StatusCode: resp.StatusCode, Message: models.DefaultStatusMessage}
		}
		return &models.TransportError{Op: "watch", Err: err}
	}
	defer conn.Close()

	c.logger.WithField("job_id", jobID).Debug("Watching job over WebSocket")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &models.TransportError{Op: "watch", Err: err}
		}

		var msg jobResponse
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.WithError(err).Warn("Ignoring malformed WebSocket message")
			continue
		}

		if msg.Status == "error" {
			message := models.DefaultStatusMessage
			if msg.Error != nil && *msg.Error != "" {
				message = *msg.Error
			}
			return &models.BackendError{Op: "watch", StatusCode: http.StatusOK, Message: message}
		}

		update := msg.payload()
		c.logger.WithFields(logrus.Fields{
			"job_id":   jobID,
			"status":   update.Status,
			"progress": update.Progress,
		}).Debug("Job update received")
		fn(update)

		if update.Status.IsTerminal() {
			return nil
		}
	}
}

func (c *Client) websocketURL(path string) (string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("invalid backend URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}
