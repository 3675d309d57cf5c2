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
	"testing"

	"github.com/blinklabs-io/stakevault/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamSubscriberLagging(t *testing.T) {
	sub := newStreamSubscriber()
	evt := event.NewEvent("test", nil)
	for range eventStreamBuffer {
		require.NoError(t, sub.Deliver(evt))
	}
	require.ErrorIs(t, sub.Deliver(evt), errStreamLagging)

	sub.Close()
	sub.Close()
	assert.NoError(t, sub.Deliver(evt))
}

func TestStreamSubscriberDroppedByBus(t *testing.T) {
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	sub := newStreamSubscriber()
	bus.RegisterSubscriber(sub, "test")
	for range eventStreamBuffer + 1 {
		bus.Publish("test", event.NewEvent("test", nil))
	}
	select {
	case <-sub.done:
	default:
		t.Fatal("lagging subscriber was not closed")
	}
}
