package search

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

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linked_friend_services/src/apperr"
	m "linked_friend_services/src/models"
	"linked_friend_services/src/store/memory"
)

func TestSearchAnnotatesRelationship(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	me := store.AddUser(m.User{Email: "me@example.com", FirstName: "Sam", LastName: "Engineer"})
	friend := store.AddUser(m.User{Email: "f@example.com", FirstName: "Alex", LastName: "Engineer"})
	sent := store.AddUser(m.User{Email: "s@example.com", FirstName: "Blake", LastName: "Engineer"})
	received := store.AddUser(m.User{Email: "r@example.com", FirstName: "Casey", LastName: "Engineer"})
	stranger := store.AddUser(m.User{Email: "x@example.com", FirstName: "Drew", LastName: "Engineer"})
	store.Link(me.ID, friend.ID)
	require.NoError(t, store.Insert(ctx, m.FriendRequest{ID: uuid.New(), SenderID: me.ID, RecipientID: sent.ID, Status: m.RequestPending}))
	require.NoError(t, store.Insert(ctx, m.FriendRequest{ID: uuid.New(), SenderID: received.ID, RecipientID: me.ID, Status: m.RequestPending}))

	svc := NewService(NewRepositoryIndex(store), nil, store, store, zap.NewNop())
	results, err := svc.Search(ctx, me.ID, "engineer")
	require.NoError(t, err)

	got := map[uuid.UUID]m.SearchStatus{}
	for _, r := range results {
		got[r.ID] = r.Status
	}
	assert.Equal(t, map[uuid.UUID]m.SearchStatus{
		friend.ID:   m.SearchFriend,
		sent.ID:     m.SearchPending,
		received.ID: m.SearchReceived,
		stranger.ID: m.SearchNone,
	}, got)
}

func TestSearchRejectsShortQueries(t *testing.T) {
	store := memory.New()
	svc := NewService(NewRepositoryIndex(store), nil, store, store, zap.NewNop())

	for _, q := range []string{"", "a", "  b  "} {
		_, err := svc.Search(context.Background(), uuid.New(), q)
		assert.True(t, apperr.Is(err, apperr.KindValidation), q)
	}
}

type failingIndex struct{}

func (failingIndex) IndexUser(ctx context.Context, profile m.Profile) error {
	return errors.New("unreachable")
}

func (failingIndex) Search(ctx context.Context, query string, exclude uuid.UUID, limit int) ([]m.Profile, error) {
	return nil, errors.New("unreachable")
}

func TestSearchFallsBackToRepository(t *testing.T) {
	store := memory.New()
	me := store.AddUser(m.User{Email: "me@example.com"})
	store.AddUser(m.User{Email: "grace@example.com", FirstName: "Grace"})

	svc := NewService(failingIndex{}, NewRepositoryIndex(store), store, store, zap.NewNop())
	results, err := svc.Search(context.Background(), me.ID, "grace")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Grace", results[0].FirstName)
}

// fakeCluster answers the handful of OpenSearch endpoints the index uses.
type fakeCluster struct {
	mu      sync.Mutex
	created bool
	docs    map[string][]byte
	queries []map[string]any
}

func (c *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(r.URL.Path, "/")
	parts := strings.Split(path, "/")
	switch {
	case path == "":
		io.WriteString(w, `{"version":{"number":"2.11.0","distribution":"opensearch"}}`)
	case len(parts) == 1 && r.Method == http.MethodHead:
		if !c.created {
			w.WriteHeader(http.StatusNotFound)
		}
	case len(parts) == 1 && r.Method == http.MethodPut:
		c.created = true
		io.WriteString(w, `{"acknowledged":true}`)
	case len(parts) == 3 && parts[1] == "_doc":
		body, _ := io.ReadAll(r.Body)
		c.docs[parts[2]] = body
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"result":"created"}`)
	case len(parts) == 2 && parts[1] == "_search":
		var q map[string]any
		json.NewDecoder(r.Body).Decode(&q)
		c.queries = append(c.queries, q)
		hits := []string{}
		for _, doc := range c.docs {
			hits = append(hits, `{"_source":`+string(doc)+`}`)
		}
		io.WriteString(w, `{"hits":{"hits":[`+strings.Join(hits, ",")+`]}}`)
	default:
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"unexpected request"}`)
	}
}

func newTestIndex(t *testing.T) (*OpenSearchIndex, *fakeCluster) {
	t.Helper()
	cluster := &fakeCluster{docs: map[string][]byte{}}
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	client, err := opensearch.NewClient(opensearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewOpenSearchIndex(client, "users"), cluster
}

func TestOpenSearchIndexRoundTrip(t *testing.T) {
	ctx := context.Background()
	index, cluster := newTestIndex(t)

	require.NoError(t, index.EnsureIndex(ctx))
	assert.True(t, cluster.created)
	require.NoError(t, index.EnsureIndex(ctx))

	profile := m.Profile{ID: uuid.New(), Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}
	require.NoError(t, index.IndexUser(ctx, profile))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(cluster.docs[profile.ID.String()], &doc))
	assert.Equal(t, "Ada Lovelace", doc["fullName"])

	exclude := uuid.New()
	results, err := index.Search(ctx, "ada", exclude, 20)
	require.NoError(t, err)
	assert.Equal(t, []m.Profile{profile}, results)

	require.Len(t, cluster.queries, 1)
	q := cluster.queries[0]
	assert.EqualValues(t, 20, q["size"])
	mustNot := q["query"].(map[string]any)["bool"].(map[string]any)["must_not"].(map[string]any)
	assert.Equal(t, exclude.String(), mustNot["term"].(map[string]any)["id"])
}

func TestOpenSearchIndexReportsClusterErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			io.WriteString(w, `{"version":{"number":"2.11.0","distribution":"opensearch"}}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"boom"}`)
	}))
	defer srv.Close()
	client, err := opensearch.NewClient(opensearch.Config{Addresses: []string{srv.URL}, MaxRetries: 1, DisableRetry: true})
	require.NoError(t, err)
	index := NewOpenSearchIndex(client, "users")

	err = index.IndexUser(context.Background(), m.Profile{ID: uuid.New()})
	assert.Error(t, err)
	_, err = index.Search(context.Background(), "ada", uuid.New(), 5)
	assert.Error(t, err)
}
