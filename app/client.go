package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/takaotokuno/focusguard/bridge"
	"github.com/takaotokuno/focusguard/orchestrator"
)

var errDaemonUnreachable = errors.New(
	"cannot reach the focusguard daemon: is it running? (focusguard run)",
)

// client posts command messages to the daemon's bridge.
type client struct {
	addr string
	http *http.Client
}

func newClient(addr string) *client {
	return &client{
		addr: addr,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) send(msg bridge.Message) (*orchestrator.Response, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("http://%s/message", c.addr)

	httpResp, err := c.http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errDaemonUnreachable, err)
	}

	defer func() {
		_ = httpResp.Body.Close()
	}()

	var resp orchestrator.Response

	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, err
	}

	return &resp, nil
}
