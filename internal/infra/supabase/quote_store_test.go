package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/motor-quote-bfa-go/internal/port"
)

var _ port.Store = (*Client)(nil)

// fakePostgREST keeps rows per table and understands the id/session_id eq filters the client sends.
type fakePostgREST struct {
	mu      sync.Mutex
	rows    map[string][]map[string]any
	headers http.Header
	fail    bool
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headers = r.Header.Clone()

	if f.fail {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
		return
	}

	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	q := r.URL.Query()

	match := func(row map[string]any) bool {
		for _, key := range []string{"id", "session_id"} {
			if v := q.Get(key); v != "" && "eq."+row[key].(string) != v {
				return false
			}
		}
		return true
	}

	switch r.Method {
	case http.MethodGet:
		out := []map[string]any{}
		for _, row := range f.rows[table] {
			if match(row) {
				out = append(out, row)
			}
		}
		json.NewEncoder(w).Encode(out)
	case http.MethodPost:
		var row map[string]any
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &row)
		for _, existing := range f.rows[table] {
			if existing["id"] == row["id"] {
				http.Error(w, `{"code":"23505"}`, http.StatusConflict)
				return
			}
		}
		f.rows[table] = append(f.rows[table], row)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]map[string]any{row})
	case http.MethodPatch:
		var patch map[string]any
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &patch)
		out := []map[string]any{}
		for _, row := range f.rows[table] {
			if match(row) {
				for k, v := range patch {
					row[k] = v
				}
				out = append(out, row)
			}
		}
		json.NewEncoder(w).Encode(out)
	}
}

func newTestClient(t *testing.T) (*Client, *fakePostgREST) {
	t.Helper()
	fake := &fakePostgREST{rows: map[string][]map[string]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond}
	c := NewClient(srv.Client(), srv.URL, "anon", "service", resilience.NewCircuitBreaker("supabase-test"), cfg, zap.NewNop())
	return c, fake
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)

	sess := &domain.Session{ID: "s1", CurrentMode: domain.ModeOrchestrator, State: domain.State{VehicleType: domain.VehicleCar}}
	require.NoError(t, c.CreateSession(ctx, sess))
	assert.Equal(t, "anon", fake.headers.Get("apikey"))
	assert.Equal(t, "Bearer service", fake.headers.Get("Authorization"))

	var conflict *domain.ErrConflict
	assert.True(t, errors.As(c.CreateSession(ctx, &domain.Session{ID: "s1"}), &conflict))

	got, err := c.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleCar, got.State.VehicleType)

	got.State.VehicleMake = "Toyota"
	got.CurrentMode = domain.ModeIntake
	require.NoError(t, c.UpdateSession(ctx, got))
	assert.Equal(t, 1, got.Version)

	again, err := c.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Toyota", again.State.VehicleMake)
	assert.Equal(t, domain.ModeIntake, again.CurrentMode)
	assert.Equal(t, 1, again.Version)
}

func TestMissingSession(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	var nf *domain.ErrNotFound

	_, err := c.GetSession(ctx, "nope")
	assert.True(t, errors.As(err, &nf))
	assert.True(t, errors.As(c.UpdateSession(ctx, &domain.Session{ID: "nope"}), &nf))
}

func TestMessagesAndSnapshots(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	require.NoError(t, c.CreateSession(ctx, &domain.Session{ID: "s1"}))

	require.NoError(t, c.AppendMessage(ctx, &domain.Message{ID: "m1", SessionID: "s1", Role: domain.RoleUser, Content: "car"}))
	require.NoError(t, c.AppendMessage(ctx, &domain.Message{ID: "m2", SessionID: "s2", Role: domain.RoleUser, Content: "bike"}))
	msgs, err := c.ListMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "car", msgs[0].Content)

	require.NoError(t, c.SaveQuote(ctx, &domain.QuoteRecord{ID: "q1", SessionID: "s1", FinalPremium: 792}))
	quotes, err := c.ListQuotes(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, 792.0, quotes[0].FinalPremium)

	require.NoError(t, c.SavePayment(ctx, &domain.PaymentRecord{ID: "p1", SessionID: "s1", Amount: 792}))
	require.NoError(t, c.Ping(ctx))
}

func TestServerErrorIsExternal(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)
	fake.fail = true

	_, err := c.GetSession(ctx, "s1")
	var ext *domain.ErrExternalService
	require.True(t, errors.As(err, &ext))
	assert.Equal(t, "supabase/sessions", ext.Service)
}
