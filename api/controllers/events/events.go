package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orderdeskhq/orderdesk-backend/api/responses"
	"github.com/orderdeskhq/orderdesk-backend/internal/realtime"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

// Stream attaches the caller to the realtime hub over server-sent events.
// Filters come from query params; the connection stays open until the client
// goes away or the hub closes the subscription.
func Stream(hub *realtime.Hub, heartbeat time.Duration, logg *logger.Logger) http.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event stream unavailable"))
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		filter, err := buildFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub := hub.Subscribe(filter)
		defer sub.Close()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				// comment line keeps idle proxies from closing the stream
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case event, open := <-sub.C:
				if !open {
					return
				}
				if err := writeEvent(w, event); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, event realtime.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.ID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", event.ID); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, body)
	return err
}

func buildFilter(r *http.Request) (realtime.Filter, error) {
	var filter realtime.Filter

	if raw := strings.TrimSpace(r.URL.Query().Get("order_id")); raw != "" {
		orderID, err := uuid.Parse(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_id")
		}
		filter.OrderID = &orderID
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("customer_id")); raw != "" {
		customerID, err := uuid.Parse(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer_id")
		}
		filter.CustomerID = &customerID
	}

	for _, raw := range r.URL.Query()["type"] {
		for _, token := range strings.Split(raw, ",") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			eventType, err := enums.ParseOutboxEventType(token)
			if err != nil {
				return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid event type %q", token))
			}
			filter.Types = append(filter.Types, eventType)
		}
	}

	return filter, nil
}
