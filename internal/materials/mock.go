package materials

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"
)

// MockTotal is the number of results the mock reports for any keyword.
const MockTotal = 50

var (
	mockPlatforms = []string{"douyin", "kuaishou", "xiaohongshu"}
	mockAuthors   = []string{"田间小王", "果园阿姐", "山货老李", "农场主播小陈", "助农直播间"}
	mockAngles    = []string{"产地直播", "开箱试吃", "采摘现场", "助农专场", "爆款复盘", "话术拆解"}
	mockTags      = []string{"助农", "原产地", "直播带货", "新鲜直发", "农产品", "好物推荐"}

	mockEpoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

// MockSearcher generates a stable result list per keyword. The same
// (keyword, page, pageSize) always yields the same page, and an item keeps
// its identity across page sizes.
type MockSearcher struct{}

// NewMockSearcher returns a MockSearcher.
func NewMockSearcher() *MockSearcher { return &MockSearcher{} }

// Search implements Searcher.
func (MockSearcher) Search(ctx context.Context, keyword string, page, pageSize int) (Page, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return Page{}, ErrEmptyKeyword
	}
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	page, pageSize = clampPage(page, pageSize)
	start, end := window(MockTotal, page, pageSize)

	items := make([]Video, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, mockVideo(keyword, i))
	}
	return Page{Items: items, Total: MockTotal, Page: page, PageSize: pageSize}, nil
}

func mockSeed(keyword string, i int) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s#%d", keyword, i)
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

func mockVideo(keyword string, i int) Video {
	r := rand.New(rand.NewSource(mockSeed(keyword, i)))
	platform := mockPlatforms[r.Intn(len(mockPlatforms))]
	id := fmt.Sprintf("%016x", uint64(mockSeed(keyword, i)))
	published := mockEpoch.Add(-time.Duration(r.Intn(24*180)) * time.Hour)
	likes := int64(500 + r.Intn(200000))

	tags := []string{keyword}
	for _, j := range r.Perm(len(mockTags))[:2] {
		tags = append(tags, mockTags[j])
	}

	return Video{
		Platform:        platform,
		VideoID:         id,
		Title:           fmt.Sprintf("%s%s｜第%d期", keyword, mockAngles[r.Intn(len(mockAngles))], i+1),
		Author:          mockAuthors[r.Intn(len(mockAuthors))],
		URL:             fmt.Sprintf("https://%s.example.com/video/%s", platform, id),
		CoverURL:        fmt.Sprintf("https://%s.example.com/cover/%s.jpg", platform, id),
		DurationSeconds: 30 + r.Intn(570),
		Likes:           likes,
		Comments:        likes / int64(10+r.Intn(40)),
		Shares:          likes / int64(20+r.Intn(80)),
		PublishedAt:     &published,
		Tags:            tags,
	}
}
