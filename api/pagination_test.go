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
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaginationDefaultValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v0/test", nil)
	params, err := ParsePagination(req)
	require.NoError(t, err)

	assert.Equal(t, DefaultPaginationCount, params.Count)
	assert.Equal(t, DefaultPaginationPage, params.Page)
	assert.Equal(t, DefaultPaginationOrderAsc, params.Order)
}

func TestParsePaginationClampBounds(t *testing.T) {
	req := httptest.NewRequest(
		http.MethodGet,
		"/api/v0/test?count=999&page=0&order=DESC",
		nil,
	)
	params, err := ParsePagination(req)
	require.NoError(t, err)

	assert.Equal(t, MaxPaginationCount, params.Count)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, PaginationOrderDesc, params.Order)
}

func TestParsePaginationInvalid(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "non-numeric count", url: "/api/v0/test?count=abc"},
		{name: "non-numeric page", url: "/api/v0/test?page=abc"},
		{name: "invalid order", url: "/api/v0/test?order=sideways"},
		{name: "page beyond offset range", url: "/api/v0/test?page=4611686018427387904"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, test.url, nil)
			_, err := ParsePagination(req)
			require.True(t, errors.Is(err, ErrInvalidPaginationParameters))
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	w := httptest.NewRecorder()
	page := Paginate(w, items, PaginationParams{Count: 2, Page: 3, Order: "asc"})
	assert.Equal(t, []int{5}, page)
	assert.Equal(t, "5", w.Header().Get("X-Pagination-Count-Total"))
	assert.Equal(t, "3", w.Header().Get("X-Pagination-Page-Total"))

	page = Paginate(w, items, PaginationParams{Count: 2, Page: 1, Order: "desc"})
	assert.Equal(t, []int{5, 4}, page)
	// The input is left untouched
	assert.Equal(t, []int{1, 2, 3, 4, 5}, items)

	page = Paginate(w, items, PaginationParams{Count: 2, Page: 9, Order: "asc"})
	assert.Empty(t, page)
}

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("secret")
	tok, err := IssueToken(secret, "alice", 0)
	require.NoError(t, err)
	sub, err := ParseToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)

	_, err = ParseToken([]byte("wrong"), tok)
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = IssueToken(nil, "alice", 0)
	require.Error(t, err)

	empty, err := IssueToken(secret, "", 0)
	require.NoError(t, err)
	_, err = ParseToken(secret, empty)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, StatusForError(ErrMissingToken))
	assert.Equal(t, http.StatusBadRequest, StatusForError(ErrBadRequest))
	assert.Equal(t, http.StatusInternalServerError, StatusForError(errors.New("boom")))
}

func TestPaginateHugePage(t *testing.T) {
	items := []int{1, 2, 3}
	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		page := Paginate(w, items, PaginationParams{
			Count: MaxPaginationCount,
			Page:  math.MaxInt,
			Order: DefaultPaginationOrderAsc,
		})
		assert.Empty(t, page)
	})

	req := httptest.NewRequest(
		http.MethodGet,
		"/api/v0/test?count=100&page="+strconv.Itoa(MaxPaginationPage),
		nil,
	)
	params, err := ParsePagination(req)
	require.NoError(t, err)
	require.NotPanics(t, func() {
		assert.Empty(t, Paginate(w, items, params))
	})
}
