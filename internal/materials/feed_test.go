package materials

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>助农频道</title><link>https://example.com</link>
<item><title>赣南脐橙产地直播实录</title><link>https://example.com/v/1</link><guid>v1</guid>
<description>果园采摘现场</description><category>水果</category><pubDate>Mon, 03 Jun 2024 10:00:00 GMT</pubDate></item>
<item><title>五常大米开箱</title><link>https://example.com/v/2</link><guid>v2</guid>
<description>新米上市</description></item>
<item><title>脐橙话术拆解</title><link>https://example.com/v/3</link><guid>v3</guid>
<description>主播如何讲脐橙</description></item>
<item><title></title><link>https://example.com/v/4</link><description>脐橙</description></item>
</channel></rss>`

func TestFeedSearcher_FiltersByKeyword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	s := NewFeedSearcher([]string{srv.URL})
	p, err := s.Search(context.Background(), "脐橙", 1, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if p.Total != 2 || len(p.Items) != 2 {
		t.Fatalf("want 2 matches, got %+v", p)
	}
	first := p.Items[0]
	if first.Platform != FeedPlatform || first.VideoID != "v1" || first.PublishedAt == nil {
		t.Fatalf("unexpected first item: %+v", first)
	}
	if len(first.Tags) != 1 || first.Tags[0] != "水果" {
		t.Fatalf("categories not carried as tags: %v", first.Tags)
	}

	second, _ := s.Search(context.Background(), "脐橙", 2, 1)
	if len(second.Items) != 1 || second.Items[0].VideoID != "v3" {
		t.Fatalf("paging over matches failed: %+v", second)
	}
}

func TestFeedSearcher_AllFeedsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	if _, err := NewFeedSearcher([]string{srv.URL}).Search(context.Background(), "脐橙", 1, 10); err == nil {
		t.Fatalf("expected error when every feed fails")
	}
}
