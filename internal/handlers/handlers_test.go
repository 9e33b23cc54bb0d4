package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"firebase.google.com/go/auth"
	"github.com/gin-gonic/gin"
	"github.com/hunyoung529/onepick/internal/docstore"
	"github.com/hunyoung529/onepick/internal/docstore/memstore"
	"github.com/hunyoung529/onepick/internal/repository"
	"github.com/hunyoung529/onepick/internal/services"
	"github.com/stretchr/testify/require"
)

// fakeVerifier accepts "token-<uid>".
type fakeVerifier struct{}

func (fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	uid, ok := strings.CutPrefix(idToken, "token-")
	if !ok || uid == "" {
		return nil, errors.New("bad token")
	}
	return &auth.Token{UID: uid, Claims: map[string]interface{}{"email": uid + "@example.com"}}, nil
}

func setupTestServer(t *testing.T) (*gin.Engine, docstore.Store) {
	gin.SetMode(gin.TestMode)
	store := memstore.New(memstore.WithMaxAttempts(50))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	RegisterRoutes(router, Services{
		Profiles:  services.NewProfileService(store, logger),
		Votes:     services.NewVoteService(store, logger),
		Comments:  services.NewCommentService(store, logger),
		Favorites: services.NewFavoriteService(store, logger),
		Rankings:  services.NewRankingService(store, 16, time.Minute, logger),
	}, fakeVerifier{})
	return router, store
}

func call(t *testing.T, r http.Handler, method, path, uid string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("Authorization", "Bearer token-"+uid)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestProfileAndNickname(t *testing.T) {
	r, _ := setupTestServer(t)

	w, out := call(t, r, http.MethodGet, "/api/me/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, out = call(t, r, http.MethodGet, "/api/me/profile", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, out["profile"])

	w, out = call(t, r, http.MethodPost, "/api/me/profile", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := out["profile"].(map[string]any)
	require.Equal(t, "alice", profile["uid"])
	require.Equal(t, "alice@example.com", profile["email"])
	require.Nil(t, profile["nickname"])

	w, out = call(t, r, http.MethodPut, "/api/me/nickname", "alice", map[string]string{"nickname": " Alice "})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Alice", out["profile"].(map[string]any)["nickname"])

	w, out = call(t, r, http.MethodPut, "/api/me/nickname", "bob", map[string]string{"nickname": "ALICE"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "nickname_taken", out["error"])

	w, out = call(t, r, http.MethodPut, "/api/me/nickname", "bob", map[string]string{"nickname": "   "})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid_input", out["error"])

	w, out = call(t, r, http.MethodGet, "/api/nicknames/alice", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, false, out["available"])
	require.Equal(t, "alice", out["claim"].(map[string]any)["uid"])

	w, out = call(t, r, http.MethodGet, "/api/nicknames/nobody", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, out["available"])
}

func TestCommentsAndVotes(t *testing.T) {
	r, _ := setupTestServer(t)
	base := "/api/works/naver/747269/comments"

	w, out := call(t, r, http.MethodPost, base, "author", map[string]string{"text": "what a twist"})
	require.Equal(t, http.StatusCreated, w.Code)
	comment := out["comment"].(map[string]any)
	id := comment["id"].(string)
	require.Equal(t, "naver_747269", comment["workKey"])
	require.Equal(t, "author@example.com", comment["nickname"])

	vote := base + "/" + id + "/vote"
	w, out = call(t, r, http.MethodPost, vote, "author", map[string]string{"direction": "up"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "self_vote_forbidden", out["error"])

	w, out = call(t, r, http.MethodPost, vote, "reader", map[string]string{"direction": "up"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(1), out["value"])
	require.Equal(t, float64(1), out["upCount"])

	w, out = call(t, r, http.MethodPost, vote, "reader", map[string]string{"direction": "down"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(-1), out["value"])
	require.Equal(t, float64(0), out["upCount"])
	require.Equal(t, float64(1), out["downCount"])

	w, _ = call(t, r, http.MethodPost, vote, "reader", map[string]string{"direction": "sideways"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, out = call(t, r, http.MethodGet, vote, "reader", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(-1), out["value"])

	w, out = call(t, r, http.MethodGet, base+"?sort=top", "reader", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := out["comments"].([]any)
	require.Len(t, listed, 1)
	require.Equal(t, float64(-1), listed[0].(map[string]any)["myVote"])

	w, _ = call(t, r, http.MethodGet, base+"?sort=random", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, out = call(t, r, http.MethodPatch, base+"/"+id, "reader", map[string]string{"text": "mine now"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "permission_denied", out["error"])

	w, out = call(t, r, http.MethodPatch, base+"/"+id, "author", map[string]string{"text": "edited"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "edited", out["comment"].(map[string]any)["text"])
	require.Equal(t, float64(1), out["comment"].(map[string]any)["downCount"])

	w, _ = call(t, r, http.MethodDelete, base+"/"+id, "author", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, out = call(t, r, http.MethodPost, vote, "reader", map[string]string{"direction": "up"})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "not_found", out["error"])
}

func TestFavorites(t *testing.T) {
	r, store := setupTestServer(t)
	require.NoError(t, store.Set(context.Background(), repository.WorkPath("naver", "747269"), docstore.Data{
		"id":    "747269",
		"title": "Omniscient Reader",
	}))

	w, out := call(t, r, http.MethodPost, "/api/works/naver/747269/favorite", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, out["favorite"])

	w, out = call(t, r, http.MethodGet, "/api/me/favorites", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	favorites := out["favorites"].([]any)
	require.Len(t, favorites, 1)
	require.Equal(t, "Omniscient Reader", favorites[0].(map[string]any)["title"])

	w, out = call(t, r, http.MethodPost, "/api/works/naver/747269/favorite", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, false, out["favorite"])

	w, out = call(t, r, http.MethodGet, "/api/works/naver/747269/favorite", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, false, out["favorite"])
}

func TestRankings(t *testing.T) {
	r, store := setupTestServer(t)
	ctx := context.Background()

	w, out := call(t, r, http.MethodGet, "/api/rankings/naver/latest", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, out["date"])

	require.NoError(t, store.Set(ctx, repository.SnapshotPath("naver", "2024-05-01"), docstore.Data{"count": 2}))
	items := repository.SnapshotItemsPath("naver", "2024-05-01")
	require.NoError(t, store.Set(ctx, items.Child("001"), docstore.Data{"id": "a", "weekday": "mon", "rank": 2}))
	require.NoError(t, store.Set(ctx, items.Child("002"), docstore.Data{"id": "b", "weekday": "mon", "rank": 1}))

	w, out = call(t, r, http.MethodGet, "/api/rankings/naver/2024-05-01?weekday=mon", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := out["items"].([]any)
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].(map[string]any)["id"])

	w, _ = call(t, r, http.MethodGet, "/api/rankings/naver/2024-05-01?take=1000", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = call(t, r, http.MethodGet, "/api/works/naver/404", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestWriteErrorMapsUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	writeError(c, errors.Join(services.ErrStoreUnavailable, docstore.ErrUnavailable))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), "store_unavailable")
}

// closeNotifyingRecorder lets gin's Stream run against a recorder.
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func streamProfile(t *testing.T, r http.Handler, uid string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/me/profile/stream", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer token-"+uid)
	w := &closeNotifyingRecorder{httptest.NewRecorder(), make(chan bool, 1)}

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

// sseData returns the data lines of the first event in body.
func sseData(t *testing.T, body string) string {
	t.Helper()
	for _, line := range strings.Split(body, "\n") {
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			return data
		}
	}
	t.Fatalf("no data line in %q", body)
	return ""
}

func TestStreamProfile(t *testing.T) {
	r, _ := setupTestServer(t)

	body := streamProfile(t, r, "alice")
	require.Contains(t, body, "event:profile")
	require.Equal(t, "null", sseData(t, body))

	w, _ := call(t, r, http.MethodPut, "/api/me/nickname", "alice", map[string]string{"nickname": "Alice"})
	require.Equal(t, http.StatusOK, w.Code)

	body = streamProfile(t, r, "alice")
	var profile map[string]any
	require.NoError(t, json.Unmarshal([]byte(sseData(t, body)), &profile), body)
	require.Equal(t, "alice", profile["uid"])
	require.Equal(t, "Alice", profile["nickname"])
	require.Equal(t, "alice@example.com", profile["email"])
}
