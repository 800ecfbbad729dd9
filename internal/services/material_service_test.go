package services

import (
	"context"
	"errors"
	"testing"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/materials"
	"github.com/agristream/livescript/internal/repo"
)

type fakeTranscriber struct {
	text string
	err  error
	url  string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, url string) (string, error) {
	f.url = url
	return f.text, f.err
}

type failingVideos struct{}

func (failingVideos) Search(context.Context, string, int, int) (materials.Page, error) {
	return materials.Page{}, errors.New("feed offline")
}

func TestMaterials_SearchAndCollect(t *testing.T) {
	svc := &MaterialService{DB: newTestDB(t), Searcher: materials.NewMockSearcher()}
	ctx := context.Background()

	page, err := svc.Search(ctx, "脐橙", 1, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Total != materials.MockTotal || len(page.Items) != 5 {
		t.Fatalf("page = total %d items %d", page.Total, len(page.Items))
	}

	m, err := svc.Collect(ctx, CollectInput{Keyword: "脐橙", Video: page.Items[0]})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if m.Status != domain.MaterialCollected || m.Keyword != "脐橙" || m.VideoID != page.Items[0].VideoID {
		t.Fatalf("material = %+v", m)
	}
	if _, err := svc.Collect(ctx, CollectInput{Keyword: "脐橙", Video: page.Items[0]}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
	if _, err := svc.Collect(ctx, CollectInput{Video: materials.Video{Title: "x"}}); !errors.Is(err, ErrMissingID) {
		t.Fatalf("want ErrMissingID, got %v", err)
	}

	items, total, err := svc.ListPage(ctx, repo.MaterialFilter{Keyword: "脐橙"}, 1, 10)
	if err != nil || total != 1 || items[0].ID != m.ID {
		t.Fatalf("list = %v %d %v", items, total, err)
	}

	if _, err := svc.Search(ctx, " ", 1, 5); !errors.Is(err, ErrQueryRequired) {
		t.Fatalf("want ErrQueryRequired, got %v", err)
	}
	svc.Searcher = failingVideos{}
	if _, err := svc.Search(ctx, "脐橙", 1, 5); !errors.Is(err, ErrUpstream) {
		t.Fatalf("want ErrUpstream, got %v", err)
	}
}

func TestMaterials_Transcribe(t *testing.T) {
	db := newTestDB(t)
	svc := &MaterialService{DB: db}
	ctx := context.Background()

	withURL := &domain.Material{Platform: "douyin", VideoID: "v1", Title: "果园直播", URL: "https://example.com/v1.mp4", Status: domain.MaterialCollected}
	noURL := &domain.Material{Platform: "douyin", VideoID: "v2", Title: "无链接", Status: domain.MaterialCollected}
	for _, m := range []*domain.Material{withURL, noURL} {
		if err := repo.CreateMaterial(ctx, db, m); err != nil {
			t.Fatalf("CreateMaterial: %v", err)
		}
	}

	if _, err := svc.Transcribe(ctx, withURL.ID); !errors.Is(err, ErrTranscriberNotReady) {
		t.Fatalf("want ErrTranscriberNotReady, got %v", err)
	}
	svc.Transcriber = &fakeTranscriber{err: materials.ErrTranscriberUnavailable}
	if _, err := svc.Transcribe(ctx, withURL.ID); !errors.Is(err, ErrTranscriberNotReady) {
		t.Fatalf("want ErrTranscriberNotReady, got %v", err)
	}

	ft := &fakeTranscriber{text: "家人们看这个橙子"}
	svc.Transcriber = ft
	if _, err := svc.Transcribe(ctx, noURL.ID); !errors.Is(err, ErrNothingToTranscribe) {
		t.Fatalf("want ErrNothingToTranscribe, got %v", err)
	}
	m, err := svc.Transcribe(ctx, withURL.ID)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if ft.url != withURL.URL || m.Transcript != "家人们看这个橙子" || m.Status != domain.MaterialTranscribed {
		t.Fatalf("material = %+v", m)
	}
	stored, _ := svc.Get(ctx, withURL.ID)
	if stored.Transcript != "家人们看这个橙子" || stored.Status != domain.MaterialTranscribed {
		t.Fatalf("transcript not stored: %+v", stored)
	}

	ft.err = errors.New("asr 500")
	if _, err := svc.Transcribe(ctx, withURL.ID); !errors.Is(err, ErrUpstream) {
		t.Fatalf("want ErrUpstream, got %v", err)
	}
	if _, err := svc.Transcribe(ctx, "missing"); !errors.Is(err, ErrMaterialNotFound) {
		t.Fatalf("want ErrMaterialNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, noURL.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
