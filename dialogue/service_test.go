package dialogue

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RassulYunussov/ezapi"
	"github.com/RassulYunussov/ezapi/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

const storyBody = `{"response":{"title":"Harbor","storyId":7,"timestamp":"2024-01-01","lore":"fog",` +
	`"characters":[{"id":1,"name":"Keeper"}],"chapters":[{"id":2,"title":"Arrival","milestones":[{"id":3,"name":"dock"}]}]}}`

const etag = `"v1"`

type storyBackend struct {
	sync.Mutex
	body         string
	calls        atomic.Int32
	notModified  atomic.Int32
	lastDialog   DialogRequest
	lastDialogAt string
}

func (b *storyBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/getGameStorieParams/7", func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		b.Lock()
		body := b.body
		b.Unlock()
		if r.Header.Get("If-None-Match") == etag && body == storyBody {
			b.notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		if body == storyBody {
			w.Header().Set("ETag", etag)
		}
		w.Header().Set("Last-Modified", "Mon, 01 Jan 2024 00:00:00 GMT")
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("POST /v1/getDialog/7/{chapter}", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var req DialogRequest
		_ = json.Unmarshal(data, &req)
		b.Lock()
		b.lastDialog = req
		b.lastDialogAt = r.PathValue("chapter")
		b.Unlock()
		_, _ = w.Write([]byte(`{"response":{"dialogResponse":"Welcome ashore."}}`))
	})
	return mux
}

func (b *storyBackend) setBody(body string) {
	b.Lock()
	defer b.Unlock()
	b.body = body
}

func createService(t *testing.T, cache StoryCache) (*Service, *storyBackend) {
	t.Helper()
	backend := &storyBackend{body: storyBody}
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	settings := config.Default()
	settings.BaseURL = server.URL
	Register(settings)
	client, err := ezapi.Create(settings)
	assert.NilError(t, err)
	return NewService(client, 7, cache, slog.New(slog.DiscardHandler)), backend
}

func TestAsk(t *testing.T) {
	service, backend := createService(t, nil)

	reply, err := service.Ask(context.Background(), 2, "Who are you?", nil,
		[]MilestoneSent{{MilestoneID: 3, Name: "dock", Completed: true}})
	assert.NilError(t, err)
	assert.Equal(t, "Welcome ashore.", reply)

	backend.Lock()
	defer backend.Unlock()
	assert.Equal(t, "2", backend.lastDialogAt)
	assert.Equal(t, "Who are you?", backend.lastDialog.PlayerQuestion)
	assert.Equal(t, 2, backend.lastDialog.ActiveChapterID)
	assert.Assert(t, backend.lastDialog.CompletedChapterIDs != nil)
	assert.Assert(t, is.Len(backend.lastDialog.Milestones, 1))
}

func TestStoryParamsRevalidatesWithETag(t *testing.T) {
	service, backend := createService(t, nil)
	ctx := context.Background()

	record, changed, err := service.StoryParams(ctx)
	assert.NilError(t, err)
	assert.Assert(t, changed)
	assert.Equal(t, "Harbor", record.Data.Title)
	assert.Equal(t, etag, record.ETag)
	assert.Assert(t, is.Len(record.Data.Chapters, 1))

	record, changed, err = service.StoryParams(ctx)
	assert.NilError(t, err)
	assert.Assert(t, !changed)
	assert.Equal(t, "Harbor", record.Data.Title)
	assert.Equal(t, int32(1), backend.notModified.Load())
}

func TestStoryParamsSkipsUnchangedContent(t *testing.T) {
	service, backend := createService(t, nil)
	ctx := context.Background()
	// without an etag the server always sends the full body
	withoutETag := storyBody + " "
	backend.setBody(withoutETag)

	first, changed, err := service.StoryParams(ctx)
	assert.NilError(t, err)
	assert.Assert(t, changed)

	second, changed, err := service.StoryParams(ctx)
	assert.NilError(t, err)
	assert.Assert(t, !changed)
	assert.Equal(t, first.FetchedAt, second.FetchedAt)
	assert.Equal(t, int32(2), backend.calls.Load())
	assert.Equal(t, int32(0), backend.notModified.Load())
}

func TestStoryParamsRequiresWrapper(t *testing.T) {
	service, backend := createService(t, nil)
	backend.setBody(`{"title":"Harbor"}`)

	_, _, err := service.StoryParams(context.Background())
	assert.ErrorIs(t, err, ErrMissingWrapper)
}

func TestStoryParamsSurfacesBackendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	settings := config.Default()
	settings.BaseURL = server.URL
	Register(settings)
	client, err := ezapi.Create(settings)
	assert.NilError(t, err)
	service := NewService(client, 7, nil, slog.New(slog.DiscardHandler))

	_, _, err = service.StoryParams(context.Background())
	assert.Assert(t, ezapi.IsProtocolError(err))
}

func TestStoryParamsWithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	cache := NewRedisStoryCache(rdb, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	service, backend := createService(t, cache)
	_, changed, err := service.StoryParams(ctx)
	assert.NilError(t, err)
	assert.Assert(t, changed)
	assert.Assert(t, mr.Exists(storyKey(7)))

	// a second process sharing the redis revalidates instead of refetching
	other := NewService(service.client, 7, cache, slog.New(slog.DiscardHandler))
	record, changed, err := other.StoryParams(ctx)
	assert.NilError(t, err)
	assert.Assert(t, !changed)
	assert.Equal(t, storyBody, record.SourceJSON)
	assert.Equal(t, int32(1), backend.notModified.Load())
	assert.Assert(t, !mr.Exists(storyLockKeyPrefix+"7"))
}

func TestRedisStoryCacheMissingStory(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := NewRedisStoryCacheFromURL("redis://"+mr.Addr(), slog.New(slog.DiscardHandler))
	assert.NilError(t, err)
	defer cache.Close()

	assert.NilError(t, cache.Ping(context.Background()))
	record, err := cache.Get(context.Background(), 99)
	assert.NilError(t, err)
	assert.Assert(t, record == nil)
}

func TestMemoryStoryCacheLockHonoursContext(t *testing.T) {
	cache := NewMemoryStoryCache()
	unlock, err := cache.Lock(context.Background(), 1)
	assert.NilError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = cache.Lock(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)

	unlock()
	unlock, err = cache.Lock(context.Background(), 1)
	assert.NilError(t, err)
	unlock()
}

func TestRegisterKeepsDeclaredEndpoints(t *testing.T) {
	settings := config.Default()
	settings.Endpoints = []config.Endpoint{{ID: EndpointGetDialog, Path: "custom"}}
	Register(settings)

	assert.Assert(t, is.Len(settings.Endpoints, 2))
	assert.Equal(t, "custom", settings.Endpoints[0].Path)
	assert.Equal(t, EndpointGetStoryParams, settings.Endpoints[1].ID)
}

func TestRedisStoryCacheLockWaitsForLongRefresh(t *testing.T) {
	mr := miniredis.RunT(t)
	first := NewRedisStoryCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	second := NewRedisStoryCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	defer first.Close()
	defer second.Close()

	unlock, err := first.Lock(context.Background(), 7)
	assert.NilError(t, err)
	held := 4 * time.Second
	go func() {
		time.Sleep(held)
		unlock()
	}()

	start := time.Now()
	unlockSecond, err := second.Lock(context.Background(), 7)
	assert.NilError(t, err)
	assert.Assert(t, time.Since(start) >= held-500*time.Millisecond)
	unlockSecond()
	assert.Assert(t, !mr.Exists(storyLockKeyPrefix+"7"))
}

func TestRedisStoryCacheLockGivesUpWithContext(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewRedisStoryCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	defer cache.Close()

	unlock, err := cache.Lock(context.Background(), 7)
	assert.NilError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = cache.Lock(ctx, 7)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisStoryCacheLockIsExtendedWhileHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewRedisStoryCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	defer cache.Close()
	cache.lockExpiry = 200 * time.Millisecond
	key := storyLockKeyPrefix + "7"

	unlock, err := cache.Lock(context.Background(), 7)
	assert.NilError(t, err)
	mr.FastForward(150 * time.Millisecond)
	time.Sleep(350 * time.Millisecond)
	assert.Assert(t, mr.Exists(key))
	assert.Assert(t, mr.TTL(key) > 100*time.Millisecond, "ttl %s", mr.TTL(key))

	unlock()
	unlock()
	assert.Assert(t, !mr.Exists(key))
}

func TestMemoryStoryCacheReleaseTwice(t *testing.T) {
	cache := NewMemoryStoryCache()
	unlock, err := cache.Lock(context.Background(), 1)
	assert.NilError(t, err)
	unlock()
	unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock, err = cache.Lock(ctx, 1)
	assert.NilError(t, err)
	unlock()
}

func TestNilLoggersFallBackToDiscard(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewRedisStoryCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	defer cache.Close()
	record, err := cache.Get(context.Background(), 1)
	assert.NilError(t, err)
	assert.Assert(t, record == nil)

	service, _ := createService(t, cache)
	service = NewService(service.client, 7, cache, nil)
	reply, err := service.Ask(context.Background(), 2, "Hello?", nil, nil)
	assert.NilError(t, err)
	assert.Equal(t, "Welcome ashore.", reply)
	_, changed, err := service.StoryParams(context.Background())
	assert.NilError(t, err)
	assert.Assert(t, changed)
}
