// Package dialogue talks to the dialogue-generation backend of the game:
// it asks NPC questions and keeps the story params in sync.
package dialogue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/RassulYunussov/ezapi"
)

var (
	ErrMissingWrapper   = errors.New("response missing 'response' wrapper")
	ErrNotModifiedEmpty = errors.New("story params not modified but nothing is cached")
)

type Service struct {
	client  *ezapi.Client
	cache   StoryCache
	storyID int
	logger  *slog.Logger
}

// NewService binds the client to one story. A nil cache keeps records in memory.
func NewService(client *ezapi.Client, storyID int, cache StoryCache, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NewMemoryStoryCache()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{client: client, cache: cache, storyID: storyID, logger: logger}
}

// Ask sends the player's question for the active chapter and returns the NPC's reply.
func (s *Service) Ask(ctx context.Context, chapterID int, question string, completed []int, milestones []MilestoneSent) (string, error) {
	if completed == nil {
		completed = []int{}
	}
	if milestones == nil {
		milestones = []MilestoneSent{}
	}
	req := ezapi.Request{
		Endpoint: EndpointGetDialog,
		PathParams: map[string]string{
			"storyId":   strconv.Itoa(s.storyID),
			"chapterId": strconv.Itoa(chapterID),
		},
	}
	payload := &DialogRequest{
		PlayerQuestion:      question,
		ActiveChapterID:     chapterID,
		CompletedChapterIDs: completed,
		Milestones:          milestones,
	}
	resp, err := ezapi.Hit[DialogRequest, DialogResponse](ctx, s.client, req, payload, nil)
	if err != nil {
		return "", err
	}
	if err := resp.Err(); err != nil {
		return "", fmt.Errorf("dialog request failed: %w", err)
	}
	if resp.Body.Response == nil {
		return "", ErrMissingWrapper
	}
	s.logger.Debug("Dialog received", "chapter_id", chapterID, "request_id", resp.RequestID)
	return resp.Body.Response.DialogResponse, nil
}

// StoryParams returns the story params, revalidating the cached copy with a conditional GET.
// changed reports whether the cache was rewritten.
func (s *Service) StoryParams(ctx context.Context) (record *StoryRecord, changed bool, err error) {
	unlock, err := s.cache.Lock(ctx, s.storyID)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	cached, err := s.cache.Get(ctx, s.storyID)
	if err != nil {
		return nil, false, err
	}
	req := ezapi.Request{
		Endpoint:   EndpointGetStoryParams,
		PathParams: map[string]string{"storyId": strconv.Itoa(s.storyID)},
		Headers:    map[string]string{},
	}
	if cached != nil {
		if cached.ETag != "" {
			req.Headers["If-None-Match"] = cached.ETag
		}
		if cached.LastModified != "" {
			req.Headers["If-Modified-Since"] = cached.LastModified
		}
	}

	resp, err := ezapi.Hit[ezapi.None, StoryParamsEnvelope](ctx, s.client, req, nil, nil)
	if err != nil {
		return nil, false, err
	}
	if err := resp.Err(); err != nil {
		return nil, false, fmt.Errorf("story params request failed: %w", err)
	}
	if resp.ResponseCode == http.StatusNotModified {
		if cached == nil {
			return nil, false, ErrNotModifiedEmpty
		}
		s.logger.Debug("Story params not modified", "story_id", s.storyID)
		return cached, false, nil
	}
	if resp.Body.Response == nil {
		return nil, false, ErrMissingWrapper
	}

	hash := contentHash(resp.Raw)
	if cached != nil && cached.ContentHash == hash {
		s.logger.Debug("Story params unchanged", "story_id", s.storyID)
		return cached, false, nil
	}
	record = &StoryRecord{
		StoryID:      s.storyID,
		Data:         *resp.Body.Response,
		SourceJSON:   string(resp.Raw),
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		ContentHash:  hash,
		FetchedAt:    time.Now().UTC(),
	}
	if err := s.cache.Put(ctx, record); err != nil {
		return nil, false, err
	}
	s.logger.Info("Story params updated", "story_id", s.storyID, "title", record.Data.Title)
	return record, true, nil
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
