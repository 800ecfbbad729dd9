package materials

import (
	"context"
	"errors"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"
)

// FeedPlatform is the platform tag for feed-backed results.
const FeedPlatform = "feed"

// FeedSearcher matches the items of configured RSS/Atom feeds against the
// keyword. Feeds are fetched on every search; a feed that fails is skipped.
type FeedSearcher struct {
	Feeds  []string
	parser *gofeed.Parser
}

// NewFeedSearcher returns a FeedSearcher over the given feed URLs.
func NewFeedSearcher(feeds []string) *FeedSearcher {
	return &FeedSearcher{Feeds: feeds, parser: gofeed.NewParser()}
}

// Search implements Searcher.
func (f *FeedSearcher) Search(ctx context.Context, keyword string, page, pageSize int) (Page, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return Page{}, ErrEmptyKeyword
	}
	page, pageSize = clampPage(page, pageSize)

	var (
		matches []Video
		failed  int
		lastErr error
	)
	needle := strings.ToLower(keyword)
	for _, u := range f.Feeds {
		feed, err := f.parser.ParseURLWithContext(u, ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Page{}, ctx.Err()
			}
			log.Warn().Err(err).Str("feed", u).Msg("feed fetch failed")
			failed++
			lastErr = err
			continue
		}
		for _, item := range feed.Items {
			if v, ok := feedVideo(item, needle); ok {
				matches = append(matches, v)
			}
		}
	}
	if len(f.Feeds) > 0 && failed == len(f.Feeds) {
		return Page{}, errors.Join(errors.New("all feeds failed"), lastErr)
	}

	start, end := window(len(matches), page, pageSize)
	return Page{
		Items:    append([]Video{}, matches[start:end]...),
		Total:    len(matches),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func feedVideo(item *gofeed.Item, needle string) (Video, bool) {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if link == "" || title == "" {
		return Video{}, false
	}
	hay := strings.ToLower(title + " " + item.Description + " " + strings.Join(item.Categories, " "))
	if !strings.Contains(hay, needle) {
		return Video{}, false
	}

	id := item.GUID
	if id == "" {
		id = link
	}
	v := Video{
		Platform:    FeedPlatform,
		VideoID:     id,
		Title:       title,
		URL:         link,
		PublishedAt: item.PublishedParsed,
		Tags:        append([]string{}, item.Categories...),
	}
	if v.PublishedAt == nil {
		v.PublishedAt = item.UpdatedParsed
	}
	if item.Author != nil {
		v.Author = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		v.Author = item.Authors[0].Name
	}
	if item.Image != nil {
		v.CoverURL = item.Image.URL
	}
	return v, true
}
