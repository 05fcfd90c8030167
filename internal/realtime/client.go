package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/vk/gradplan/internal/ctxlog"
	"github.com/vk/gradplan/internal/engine"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// ErrPlanRejected is returned when the server answers with a plan error.
var ErrPlanRejected = errors.New("plan request rejected")

type planResult struct {
	value engine.PlanResponse
	err   error
}

// RequestPlan connects to the socket.io endpoint at rawURL, sends req and
// waits for the answer. A URL without a path uses DefaultPath.
func RequestPlan(ctx context.Context, rawURL string, req engine.PlanRequest, timeout time.Duration) (engine.PlanResponse, error) {
	logger := ctxlog.FromContext(ctx).With("url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return engine.PlanResponse{}, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return engine.PlanResponse{}, fmt.Errorf("URL %q must include a scheme and a host", rawURL)
	}
	path := parsedURL.Path
	if path == "" || path == "/" {
		path = DefaultPath
	}

	payload, err := toPayload(req)
	if err != nil {
		return engine.PlanResponse{}, fmt.Errorf("failed to encode plan request: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(path)
	opts.SetReconnection(false)
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)
	defer io.Disconnect()

	var isConnected atomic.Bool
	done := make(chan planResult, 1)
	finish := func(r planResult) {
		select {
		case done <- r:
		default:
		}
	}

	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Debug("Connected to realtime endpoint.", "sid", io.Id())
		io.Emit(EventPlan, payload)
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		finish(planResult{err: connectError(errs)})
	})
	io.On(types.EventName(EventPlanResult), func(data ...any) {
		var r planResult
		if len(data) == 0 {
			r.err = errors.New("plan result carries no payload")
		} else {
			r.err = fromPayload(data[0], &r.value)
		}
		finish(r)
	})
	io.On(types.EventName(EventPlanError), func(data ...any) {
		message := "unknown error"
		if len(data) > 0 {
			var body struct {
				Error string `json:"error"`
			}
			if err := fromPayload(data[0], &body); err == nil && body.Error != "" {
				message = body.Error
			}
		}
		finish(planResult{err: fmt.Errorf("%w: %s", ErrPlanRejected, message)})
	})

	io.Connect()

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case <-opCtx.Done():
		if isConnected.Load() {
			return engine.PlanResponse{}, fmt.Errorf("timed out after connecting while waiting for event '%s'", EventPlanResult)
		}
		return engine.PlanResponse{}, fmt.Errorf("timed out while waiting for initial connection")
	case res := <-done:
		return res.value, res.err
	}
}

func fromPayload(payload any, dst any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to re-encode payload: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}

// connectError turns the arguments of a connect_error event into an error.
func connectError(errs []any) error {
	if len(errs) == 0 || errs[0] == nil {
		return errors.New("socket.io connection failed")
	}
	err, ok := errs[0].(error)
	if !ok {
		err = fmt.Errorf("%v", errs[0])
	}
	return fmt.Errorf("socket.io connection failed: %w", err)
}
