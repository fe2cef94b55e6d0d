package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	slacklib "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/tenantry/internal/notify"
)

// --- mocks ---

type sent struct {
	title string
	body  string
}

type mockChannel struct {
	name    string
	sendErr error
	sent    []sent
}

func (m *mockChannel) Name() string { return m.name }

func (m *mockChannel) Send(_ context.Context, title, body string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sent{title: title, body: body})
	return nil
}

// --- Registry tests ---

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("register and get", func(t *testing.T) {
		t.Parallel()

		reg := notify.NewRegistry()
		ch := &mockChannel{name: "slack"}
		reg.Register(ch)

		got, ok := reg.Get("slack")
		require.True(t, ok)
		assert.Equal(t, ch, got)
	})

	t.Run("get unregistered returns false", func(t *testing.T) {
		t.Parallel()

		_, ok := notify.NewRegistry().Get("unknown")
		assert.False(t, ok)
	})

	t.Run("register overwrites previous", func(t *testing.T) {
		t.Parallel()

		reg := notify.NewRegistry()
		first := &mockChannel{name: "slack"}
		second := &mockChannel{name: "slack"}
		reg.Register(first)
		reg.Register(second)

		got, ok := reg.Get("slack")
		require.True(t, ok)
		assert.Same(t, second, got)
		assert.Len(t, reg.All(), 1)
	})

	t.Run("all is ordered by name", func(t *testing.T) {
		t.Parallel()

		reg := notify.NewRegistry()
		reg.Register(&mockChannel{name: "slack"})
		reg.Register(&mockChannel{name: "log"})

		all := reg.All()
		require.Len(t, all, 2)
		assert.Equal(t, "log", all[0].Name())
		assert.Equal(t, "slack", all[1].Name())
	})
}

// --- Notify tests ---

func TestNotify(t *testing.T) {
	t.Parallel()

	t.Run("fans out to every channel", func(t *testing.T) {
		t.Parallel()

		a := &mockChannel{name: "a"}
		b := &mockChannel{name: "b"}
		reg := notify.NewRegistry()
		reg.Register(a)
		reg.Register(b)

		err := notify.New(reg).Notify(t.Context(), "reconcile", "2 orphans")
		require.NoError(t, err)

		assert.Equal(t, []sent{{title: "reconcile", body: "2 orphans"}}, a.sent)
		assert.Equal(t, []sent{{title: "reconcile", body: "2 orphans"}}, b.sent)
	})

	t.Run("no channels logs only", func(t *testing.T) {
		t.Parallel()

		err := notify.New(notify.NewRegistry()).Notify(t.Context(), "reconcile", "clean")
		assert.NoError(t, err)
	})

	t.Run("one failing channel does not stop the others", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("webhook down")
		bad := &mockChannel{name: "bad", sendErr: boom}
		good := &mockChannel{name: "good"}
		reg := notify.NewRegistry()
		reg.Register(bad)
		reg.Register(good)

		err := notify.New(reg).Notify(t.Context(), "reconcile", "body")
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "bad")
		assert.Len(t, good.sent, 1)
	})

	t.Run("log channel never fails", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, notify.NewLog(zerolog.WarnLevel).Send(t.Context(), "title", "body"))
	})
}

// --- Slack webhook tests ---

func TestSlackWebhook(t *testing.T) {
	t.Parallel()

	t.Run("posts title and blocks", func(t *testing.T) {
		t.Parallel()

		var (
			mu   sync.Mutex
			got  slacklib.WebhookMessage
			hits int
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)

			mu.Lock()
			defer mu.Unlock()
			hits++
			_ = json.Unmarshal(body, &got)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		hook := notify.NewSlackWebhook(srv.URL)
		assert.Equal(t, "slack", hook.Name())
		require.NoError(t, hook.Send(t.Context(), "Reconcile report", "orphans: org_x"))

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, hits)
		assert.Equal(t, "Reconcile report", got.Text)
		require.NotNil(t, got.Blocks)
		assert.Len(t, got.Blocks.BlockSet, 2)
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		err := notify.NewSlackWebhook(srv.URL).Send(t.Context(), "t", "b")
		assert.Error(t, err)
	})
}

func TestBuildReportBlocks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		count int
	}{
		{name: "title only", body: "", count: 1},
		{name: "title and body", body: "dropped org_a", count: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			blocks := notify.BuildReportBlocks("Report", tt.body)
			require.Len(t, blocks, tt.count)
			assert.Equal(t, slacklib.MBTHeader, blocks[0].BlockType())
		})
	}
}
