// Package socketio provides the "socketio" node kind: connect to a
// socket.io server, optionally emit one event, and wait for a reply event.
package socketio

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/burstgraph/internal/ctxlog"
	"github.com/specialistvlad/burstgraph/internal/ctyutil"
	"github.com/specialistvlad/burstgraph/internal/registry"
	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const schema = `{
  "type": "object",
  "required": ["url", "on_event"],
  "properties": {
    "url": {"type": "string", "pattern": "^(http|https|ws|wss)://"},
    "namespace": {"type": "string"},
    "on_event": {"type": "string", "minLength": 1},
    "emit_event": {"type": "string"},
    "timeout": {"type": "string"},
    "insecure_skip_verify": {"type": "boolean"}
  }
}`

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Func("socketio", schema, run)
}

type input struct {
	url                string
	namespace          string
	onEvent            string
	emitEvent          string
	emitData           any
	timeout            time.Duration
	insecureSkipVerify bool
}

func parse(t *task.Task) (*input, error) {
	in := &input{}
	var err error
	if in.url, err = t.String("url", ""); err != nil {
		return nil, err
	}
	if in.namespace, err = t.String("namespace", "/"); err != nil {
		return nil, err
	}
	if in.onEvent, err = t.String("on_event", ""); err != nil {
		return nil, err
	}
	if in.emitEvent, err = t.String("emit_event", ""); err != nil {
		return nil, err
	}
	if in.insecureSkipVerify, err = t.Bool("insecure_skip_verify", false); err != nil {
		return nil, err
	}
	timeout, err := t.String("timeout", "10s")
	if err != nil {
		return nil, err
	}
	if in.timeout, err = time.ParseDuration(timeout); err != nil {
		return nil, fmt.Errorf("parameter \"timeout\": %w", err)
	}
	if t.Has("emit_data") {
		if in.emitData, err = toGo(t.Params["emit_data"]); err != nil {
			return nil, fmt.Errorf("parameter \"emit_data\": %w", err)
		}
	}
	return in, nil
}

// toGo turns a cty value into the plain Go value the socket.io client
// serializes.
func toGo(v cty.Value) (any, error) {
	raw, err := ctyjson.SimpleJSONValue{Value: v}.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type opResult struct {
	value cty.Value
	err   error
}

func run(ctx context.Context, t *task.Task) (cty.Value, error) {
	in, err := parse(t)
	if err != nil {
		return cty.NilVal, err
	}
	logger := ctxlog.FromContext(ctx).With("node", t.Node.ID, "url", in.url, "on_event", in.onEvent, "emit_event", in.emitEvent)
	logger.Debug("Socket.io node started.")
	defer logger.Debug("Socket.io node finished.")

	parsedURL, err := url.Parse(in.url)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to parse URL: %w", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, in.timeout)
	defer cancel()

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if in.insecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification.")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(in.namespace, opts)
	defer io.Disconnect()

	var connected atomic.Bool
	done := make(chan opResult, 1)
	deliver := func(r opResult) {
		select {
		case done <- r:
		default:
		}
	}

	io.On(types.EventName("connect"), func(...any) {
		connected.Store(true)
		logger.Debug("Connected.", "namespace", in.namespace, "sid", io.Id())
		if in.emitEvent != "" {
			io.Emit(in.emitEvent, in.emitData)
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = fmt.Errorf("connect error: %w", e)
			}
		}
		deliver(opResult{err: err})
	})
	io.On(types.EventName(in.onEvent), func(data ...any) {
		var payload any
		if len(data) > 0 {
			payload = data[0]
		}
		v, err := ctyutil.FromGo(payload)
		if err != nil {
			deliver(opResult{err: fmt.Errorf("decode %q payload: %w", in.onEvent, err)})
			return
		}
		deliver(opResult{value: v})
	})

	io.Connect()

	select {
	case <-opCtx.Done():
		if ctx.Err() != nil {
			return cty.NilVal, ctx.Err()
		}
		if connected.Load() {
			return cty.NilVal, fmt.Errorf("timed out after connecting while waiting for event %q", in.onEvent)
		}
		return cty.NilVal, errors.New("timed out while waiting for initial connection")
	case res := <-done:
		if res.err != nil {
			return cty.NilVal, res.err
		}
		return cty.ObjectVal(map[string]cty.Value{
			"event":    cty.StringVal(in.onEvent),
			"response": res.value,
		}), nil
	}
}
