// Package materials finds reference videos for a keyword and transcribes
// them. Video search is a pluggable collaborator: the default MockSearcher
// is deterministic, FeedSearcher reads public RSS/Atom feeds.
package materials

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyKeyword is returned when a search has no keyword.
var ErrEmptyKeyword = errors.New("keyword is required")

// Page bounds.
const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// Video is one search hit. It is not persisted until collected.
type Video struct {
	Platform        string     `json:"platform"`
	VideoID         string     `json:"videoId"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	URL             string     `json:"url"`
	CoverURL        string     `json:"coverUrl"`
	DurationSeconds int        `json:"durationSeconds"`
	Likes           int64      `json:"likes"`
	Comments        int64      `json:"comments"`
	Shares          int64      `json:"shares"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
	Tags            []string   `json:"tags"`
}

// Page is one page of search results.
type Page struct {
	Items    []Video `json:"items"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

// Searcher looks up videos by keyword.
type Searcher interface {
	Search(ctx context.Context, keyword string, page, pageSize int) (Page, error)
}

// clampPage normalizes paging input.
func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// window returns the [start,end) slice bounds of page within total items.
func window(total, page, pageSize int) (int, int) {
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return start, end
}
