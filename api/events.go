// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/blinklabs-io/stakevault/event"
	"github.com/blinklabs-io/stakevault/governance"
	"github.com/blinklabs-io/stakevault/staking"
	"github.com/blinklabs-io/stakevault/vault"
)

const (
	eventStreamBuffer    = 64
	eventStreamKeepalive = 30 * time.Second
)

var errStreamLagging = errors.New("event stream client is not keeping up")

// StreamEventTypes are the event types clients may follow on the event stream
var StreamEventTypes = []event.EventType{
	vault.EventTypeVaultInitialized,
	staking.EventTypeStake,
	staking.EventTypeUnstakeRequest,
	staking.EventTypeUnstakeComplete,
	governance.EventTypeProposalCreated,
	governance.EventTypeVoteCast,
	governance.EventTypeProposalFinalized,
	governance.EventTypeSweepCompleted,
}

// StreamEvent is the JSON body of each server-sent event
type StreamEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// streamSubscriber hands events to one HTTP client. Delivery never blocks
// the bus: a client whose buffer is full is dropped.
type streamSubscriber struct {
	ch        chan event.Event
	done      chan struct{}
	closeOnce sync.Once
}

func newStreamSubscriber() *streamSubscriber {
	return &streamSubscriber{
		ch:   make(chan event.Event, eventStreamBuffer),
		done: make(chan struct{}),
	}
}

func (s *streamSubscriber) Deliver(evt event.Event) error {
	select {
	case <-s.done:
		return nil
	case s.ch <- evt:
		return nil
	default:
		return errStreamLagging
	}
}

func (s *streamSubscriber) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func parseStreamTypes(r *http.Request) ([]event.EventType, error) {
	requested := r.URL.Query()["type"]
	if len(requested) == 0 {
		return StreamEventTypes, nil
	}
	ret := make([]event.EventType, 0, len(requested))
	for _, name := range requested {
		evtType := event.EventType(name)
		if !slices.Contains(StreamEventTypes, evtType) {
			return nil, fmt.Errorf("%w: unknown event type %q", ErrBadRequest, name)
		}
		if !slices.Contains(ret, evtType) {
			ret = append(ret, evtType)
		}
	}
	return ret, nil
}

// handleEvents streams committed vault, staking and governance events as
// server-sent events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	types, err := parseStreamTypes(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, errors.New("streaming unsupported"))
		return
	}
	s.mu.Lock()
	stop := s.streamStop
	s.mu.Unlock()
	bus := s.services.Bus
	sub := newStreamSubscriber()
	subId := bus.RegisterSubscriber(sub, types...)
	defer bus.Unsubscribe(subId)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := time.NewTicker(eventStreamKeepalive)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-stop:
			return
		case <-sub.done:
			s.logger.Debug(
				"closing lagging event stream",
				"request_id", w.Header().Get(requestIDHeader),
			)
			return
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case evt := <-sub.ch:
			body, err := json.Marshal(StreamEvent{
				Type:      string(evt.Type),
				Timestamp: evt.Timestamp.Unix(),
				Data:      evt.Data,
			})
			if err != nil {
				s.logger.Error("failed to encode event", "type", evt.Type, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, body); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
