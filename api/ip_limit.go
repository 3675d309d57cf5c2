// Copyright 2025 Blink Labs Software
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
	"errors"
	"net"
	"net/http"
	"sync"
)

var ErrTooManyRequests = errors.New("too many concurrent requests from client")

// ipKeyFromRemoteAddr extracts a limiter key from a request's remote
// address. For IPv4 addresses the key is the bare IP string. For IPv6
// addresses the key is the /64 prefix so that a client rotating within a
// single /64 subnet is still limited as one source. Addresses that do not
// parse return an empty string and are exempt.
func ipKeyFromRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return ""
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}
	// IPv4 or IPv4-mapped IPv6: use the full address as the key
	if ip4 := ip.To4(); ip4 != nil {
		return ip4.String()
	}
	// IPv6: mask to /64 prefix to handle subnet rotation
	mask := net.CIDRMask(64, 128)
	return ip.Mask(mask).String() + "/64"
}

// ipLimiter bounds the number of in-flight requests per client
type ipLimiter struct {
	max   int
	mu    sync.Mutex
	slots map[string]int
}

func newIPLimiter(maxPerIP int) *ipLimiter {
	return &ipLimiter{
		max:   maxPerIP,
		slots: make(map[string]int),
	}
}

// acquire reserves a request slot for key. It returns false when the
// per-IP limit has been reached.
func (l *ipLimiter) acquire(key string) bool {
	if key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.slots[key] >= l.max {
		return false
	}
	l.slots[key]++
	return true
}

func (l *ipLimiter) release(key string) {
	if key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.slots[key]--
	if l.slots[key] <= 0 {
		delete(l.slots, key)
	}
}

func (l *ipLimiter) inFlight(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slots[key]
}

// withIPLimit rejects requests beyond the configured in-flight limit
func (s *Server) withIPLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ipKeyFromRemoteAddr(r.RemoteAddr)
		if !s.limiter.acquire(key) {
			s.logger.Warn(
				"rejecting request over per-IP limit",
				"client", key,
				"limit", s.limiter.max,
			)
			s.writeError(w, r, ErrTooManyRequests)
			return
		}
		defer s.limiter.release(key)
		next.ServeHTTP(w, r)
	})
}
