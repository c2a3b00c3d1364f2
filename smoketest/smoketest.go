// Package smoketest checks that the scene-state feed of a running server
// delivers session states.
package smoketest

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/hagall-common/messages/hagallpb"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
	"google.golang.org/protobuf/proto"
)

const (
	defaultTimeout = time.Second * 5
)

type Options struct {
	// The public endpoint of the tested server.
	Endpoint  string
	UserAgent string
}

type Request struct {
	SessionID string        `json:"session_id"`
	Timeout   time.Duration `json:"timeout"`
}

type Result struct {
	Endpoint  string        `json:"endpoint"`
	SessionID string        `json:"session_id"`
	Success   bool          `json:"success"`
	Entities  int           `json:"entities"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
}

// Run connects to the feed of the session and waits for a session state.
func Run(ctx context.Context, opts Options, req Request) Result {
	res := Result{
		Endpoint:  opts.Endpoint,
		SessionID: req.SessionID,
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	state, err := receiveState(ctx, opts, req.SessionID)
	res.Latency = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Success = true
	res.Entities = len(state.Entities)
	return res
}

// HandleSmokeTest runs a smoke test against the server feed and writes the
// result as JSON.
func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			httpcmn.InternalServerError(w, errors.New("reading body failed").Wrap(err))
			return
		}

		var req Request
		if err := json.Unmarshal(b, &req); err != nil {
			httpcmn.BadRequest(w, httpcmn.ErrBadRequest)
			return
		}

		res := Run(ctx, opts, req)
		if !res.Success {
			logs.WithTag("endpoint", opts.Endpoint).
				WithTag("session_id", req.SessionID).
				Warn(errors.New("smoke test failed").WithTag("reason", res.Error))
		}

		httpcmn.OKWithJSON(w, res)
	}
}

func feedURL(endpoint string, sessionID string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.New("invalid endpoint").
			WithTag("endpoint", endpoint).
			Wrap(err)
	}

	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = strings.TrimSuffix(u.Path, "/") + "/feed"
	u.RawQuery = url.Values{"session": []string{sessionID}}.Encode()
	return u.String(), nil
}

func receiveState(ctx context.Context, opts Options, sessionID string) (*hagallpb.SessionState, error) {
	location, err := feedURL(opts.Endpoint, sessionID)
	if err != nil {
		return nil, err
	}

	config, err := websocket.NewConfig(location, opts.Endpoint)
	if err != nil {
		return nil, errors.New("creating websocket config failed").Wrap(err)
	}
	if opts.UserAgent != "" {
		config.Header.Set("User-Agent", opts.UserAgent)
	}

	conn, err := config.DialContext(ctx)
	if err != nil {
		return nil, errors.New("connecting to feed failed").
			WithTag("url", location).
			Wrap(err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}

	var data []byte
	if err := websocket.Message.Receive(conn, &data); err != nil {
		return nil, errors.New("receiving session state failed").Wrap(err)
	}

	var state hagallpb.SessionState
	if err := proto.Unmarshal(data, &state); err != nil {
		return nil, errors.New("decoding session state failed").Wrap(err)
	}
	if state.Type != hagallpb.MsgType_MSG_TYPE_SESSION_STATE {
		return nil, errors.New("unexpected message type").WithTag("type", state.Type)
	}
	return &state, nil
}
