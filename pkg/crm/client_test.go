package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/johnquangdev/lesson-attribution/pkg/config"
)

var fastRetry = RetryPolicy{
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
	MaxElapsedTime:  500 * time.Millisecond,
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewClient(&config.CRMConfig{
		BaseURL:        srv.URL + "/",
		APIToken:       "secret",
		PageSize:       2,
		RequestTimeout: time.Second,
	}, fastRetry, zaptest.NewLogger(t))
}

func TestListStudents_FollowsPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/students", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `{"data":[{"id":1,"name":"Noa Levi","active":true,"phone":"+972500000001"},{"id":"s-2","name":" Lihi Cohen ","active":false}],"next_page":2}`)
		case "2":
			fmt.Fprint(w, `{"data":[{"id":3,"name":"דני כהן"}],"next_page":null}`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	}))
	defer srv.Close()

	students, err := newTestClient(t, srv).ListStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 3)

	assert.Equal(t, "1", students[0].ID)
	require.NotNil(t, students[0].Phone)
	assert.Equal(t, "+972500000001", *students[0].Phone)
	assert.Equal(t, "s-2", students[1].ID)
	assert.Equal(t, "Lihi Cohen", students[1].Name)
	assert.False(t, students[1].Active)
	// missing active flag counts as active
	assert.True(t, students[2].Active)
	assert.Nil(t, students[2].Phone)
}

func TestListStudents_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			fmt.Fprint(w, `{"data":[{"id":1,"name":"Noa"}],"next_page":null}`)
		}
	}))
	defer srv.Close()

	students, err := newTestClient(t, srv).ListStudents(context.Background())
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestListStudents_UnauthorizedIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).ListStudents(context.Background())
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestListStudents_GivesUpAfterMaxElapsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).ListStudents(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Retryable())
}

func TestListStudents_DecodeErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"data":[{"id":{"nested":true},"name":"Noa"}],"next_page":null}`)
	}))
	defer srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	client := NewClient(&config.CRMConfig{BaseURL: srv.URL, PageSize: 2}, fastRetry, zap.New(core))

	_, err := client.ListStudents(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode crm page 1")
	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, logs.FilterMessage("⚠️ CRM request failed, retrying").Len())
	assert.Equal(t, 1, logs.FilterMessage("❌ Failed to fetch CRM students").Len())
}

func TestStudentID_AcceptsStringsAndNumbers(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"id":42}`, "42"},
		{`{"id":"s-2"}`, "s-2"},
		{`{"id":" 7 "}`, "7"},
		{`{"id":null}`, ""},
	}
	for _, tt := range tests {
		var r studentRecord
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &r), tt.raw)
		assert.Equal(t, tt.want, r.toEntity().ID, tt.raw)
	}
}
