package rtsp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/yenshow/ba-frontend/internal/apiclient"
)

const basePath = "/rtsp"

// Stream states.
const (
	StateRunning = "running"
	StateStopped = "stopped"
)

// Stream is one restreamed camera feed.
type Stream struct {
	ID        string `json:"streamId"`
	RTSPURL   string `json:"rtspUrl"`
	HLSURL    string `json:"hlsUrl"`
	Status    string `json:"status"`
	StartedAt string `json:"startedAt"`
}

// StopResult is the backend's answer to a stop request.
type StopResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type envelope struct {
	Error     bool            `json:"error"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
}

type startRequest struct {
	RTSPURL string `json:"rtspUrl" validate:"required,url"`
}

// missingMarkers identify a "no such stream" envelope message.
var missingMarkers = []string{"不存在", "not found", "does not exist"}

// Client talks to /rtsp through the request gateway.
type Client struct {
	gw *apiclient.Client
}

// NewClient creates an RTSP client.
func NewClient(gw *apiclient.Client) *Client {
	return &Client{gw: gw}
}

// Start asks the backend to restream rtspURL and returns the new stream.
func (c *Client) Start(ctx context.Context, rtspURL string) (*Stream, error) {
	req := startRequest{RTSPURL: strings.TrimSpace(rtspURL)}
	if err := apiclient.Validate(req); err != nil {
		return nil, err
	}
	if u, _ := url.Parse(req.RTSPURL); u == nil || (u.Scheme != "rtsp" && u.Scheme != "rtsps") {
		return nil, apiclient.NewBadRequest("rtspUrl must use the rtsp or rtsps scheme")
	}

	path := basePath + "/start"
	data, err := c.call(ctx, http.MethodPost, path, req)
	if err != nil {
		return nil, err
	}
	return decodeStream(data, http.MethodPost, path)
}

// Stop ends a stream.
func (c *Client) Stop(ctx context.Context, id string) (*StopResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apiclient.NewBadRequest("stream id is required")
	}
	path := basePath + "/stop/" + url.PathEscape(id)
	data, err := c.call(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}
	var out StopResult
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, apiclient.InvalidBody(err)
		}
	}
	return &out, nil
}

// Status returns every stream the backend knows about.
func (c *Client) Status(ctx context.Context) ([]Stream, error) {
	path := basePath + "/status"
	data, err := c.call(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeStreams(data)
}

// StreamStatus returns one stream. It returns (nil, nil) when the backend
// reports that the stream does not exist.
func (c *Client) StreamStatus(ctx context.Context, id string) (*Stream, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apiclient.NewBadRequest("stream id is required")
	}
	path := basePath + "/status/" + url.PathEscape(id)
	data, err := c.call(ctx, http.MethodGet, path, nil)
	switch {
	case errors.Is(err, apiclient.ErrNotFound):
		return nil, nil
	case err != nil && isMissing(apiclient.MessageOf(err)):
		return nil, nil
	case err != nil:
		return nil, err
	}

	streams, err := decodeStreams(data)
	if err != nil {
		return nil, err
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return &streams[0], nil
}

// call issues one request and unwraps the envelope.
func (c *Client) call(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var env envelope
	if err := c.gw.Call(ctx, apiclient.Request{Method: method, Path: path, Body: body}, &env); err != nil {
		return nil, err
	}
	if env.Error {
		msg := env.Message
		if msg == "" {
			msg = "stream request failed"
		}
		return nil, &apiclient.Error{
			Kind:    apiclient.KindServerFault,
			Message: msg,
			Status:  http.StatusOK,
			Method:  method,
			Path:    path,
		}
	}
	return env.Data, nil
}

func decodeStream(data json.RawMessage, method, path string) (*Stream, error) {
	var s Stream
	err := json.Unmarshal(data, &s)
	if err == nil && s.ID == "" {
		err = errors.New("stream id missing")
	}
	if err != nil {
		return nil, &apiclient.Error{
			Kind:    apiclient.KindUnknown,
			Message: "invalid response body",
			Method:  method,
			Path:    path,
			Err:     err,
		}
	}
	return &s, nil
}

// decodeStreams accepts a single stream object or an array.
func decodeStreams(data json.RawMessage) ([]Stream, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return []Stream{}, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var out []Stream
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, apiclient.InvalidBody(err)
		}
		if out == nil {
			out = []Stream{}
		}
		return out, nil
	}
	var one Stream
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, apiclient.InvalidBody(err)
	}
	return []Stream{one}, nil
}

func isMissing(msg string) bool {
	lower := strings.ToLower(msg)
	for _, m := range missingMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
