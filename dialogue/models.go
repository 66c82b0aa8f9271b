package dialogue

import "time"

type StoryParams struct {
	Title      string      `json:"title"`
	StoryID    int         `json:"storyId"`
	Timestamp  string      `json:"timestamp"`
	Lore       string      `json:"lore"`
	Characters []Character `json:"characters"`
	Chapters   []Chapter   `json:"chapters"`
}

type Character struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Timestamp   string `json:"timestamp"`
}

type Chapter struct {
	ID          int         `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Milestones  []Milestone `json:"milestones"`
	Timestamp   string      `json:"timestamp"`
}

type Milestone struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Completed bool     `json:"completed"`
	Matches   []string `json:"matches"`
	Timestamp string   `json:"timestamp"`
}

// MilestoneSent is the shape a milestone takes when reported back with a question.
type MilestoneSent struct {
	MilestoneID int      `json:"milestoneId"`
	Name        string   `json:"name"`
	Completed   bool     `json:"completed"`
	Matches     []string `json:"matches"`
	Timestamp   string   `json:"timestamp"`
}

// StoryParamsEnvelope is the body of the story params endpoint.
type StoryParamsEnvelope struct {
	Response *StoryParams `json:"response"`
}

type DialogRequest struct {
	PlayerQuestion      string          `json:"playerQuestion"`
	ActiveChapterID     int             `json:"activeChapterId"`
	CompletedChapterIDs []int           `json:"completedChapterIds"`
	Milestones          []MilestoneSent `json:"milestones"`
}

type DialogResponse struct {
	Response *DialogReply `json:"response"`
}

type DialogReply struct {
	DialogResponse string `json:"dialogResponse"`
}

// StoryRecord is a cached copy of one story's params with what is needed to revalidate it.
type StoryRecord struct {
	StoryID      int         `json:"storyId"`
	Data         StoryParams `json:"data"`
	SourceJSON   string      `json:"sourceJson"`
	ETag         string      `json:"etag,omitempty"`
	LastModified string      `json:"lastModified,omitempty"`
	ContentHash  string      `json:"contentHash"`
	FetchedAt    time.Time   `json:"fetchedAt"`
}
