package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/knowledge"
	"github.com/agristream/livescript/internal/search"
)

type fakePages struct {
	page *knowledge.Page
	err  error
	url  string
}

func (f *fakePages) Fetch(_ context.Context, rawURL string) (*knowledge.Page, error) {
	f.url = rawURL
	return f.page, f.err
}

type stubSearcher struct {
	out  []domain.ReferenceFragment
	err  error
	last knowledge.Query
}

func (s *stubSearcher) Search(_ context.Context, q knowledge.Query) ([]domain.ReferenceFragment, error) {
	s.last = q
	return s.out, s.err
}

func TestKnowledge_CollectionsAndDocuments(t *testing.T) {
	db := newTestDB(t)
	svc := &KnowledgeService{DB: db}
	ctx := context.Background()

	c, err := svc.CreateCollection(ctx, CollectionInput{Name: " 产地资料 ", DatasetID: "ds-1"})
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if c.Name != "产地资料" {
		t.Fatalf("name = %q", c.Name)
	}
	if _, err := svc.CreateCollection(ctx, CollectionInput{Name: "产地资料"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
	if _, err := svc.CreateCollection(ctx, CollectionInput{}); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("want ErrNameRequired, got %v", err)
	}

	d, err := svc.AddDocument(ctx, c.ID, DocumentInput{Content: "赣南脐橙种植历史\n始于上世纪七十年代"})
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if d.Title != "赣南脐橙种植历史" || d.Status != domain.DocumentReady {
		t.Fatalf("document = %+v", d)
	}
	if _, err := svc.AddDocument(ctx, c.ID, DocumentInput{Title: "空"}); !errors.Is(err, ErrContentRequired) {
		t.Fatalf("want ErrContentRequired, got %v", err)
	}
	if _, err := svc.AddDocument(ctx, "missing", DocumentInput{Content: "x"}); !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("want ErrCollectionNotFound, got %v", err)
	}

	docs, err := svc.ListDocuments(ctx, c.ID)
	if err != nil || len(docs) != 1 {
		t.Fatalf("ListDocuments = %v %v", docs, err)
	}

	if err := svc.DeleteCollection(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if err := svc.DeleteDocument(ctx, d.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("documents should cascade, got %v", err)
	}
}

func TestKnowledge_ImportURL(t *testing.T) {
	db := newTestDB(t)
	pages := &fakePages{page: &knowledge.Page{Title: "五常大米的秘密", Text: "稻花香二号，一年一季。"}}
	svc := &KnowledgeService{DB: db, Importer: pages}
	ctx := context.Background()
	c, _ := svc.CreateCollection(ctx, CollectionInput{Name: "大米"})

	d, err := svc.ImportURL(ctx, c.ID, " https://example.com/rice ", "")
	if err != nil {
		t.Fatalf("ImportURL: %v", err)
	}
	if d.Title != "五常大米的秘密" || d.SourceURL != "https://example.com/rice" || pages.url != "https://example.com/rice" {
		t.Fatalf("document = %+v", d)
	}

	if _, err := svc.ImportURL(ctx, c.ID, "ftp://example.com/x", ""); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("want ErrInvalidURL, got %v", err)
	}

	pages.err = knowledge.ErrNoContent
	if _, err := svc.ImportURL(ctx, c.ID, "https://example.com/empty", ""); !errors.Is(err, ErrContentRequired) {
		t.Fatalf("want ErrContentRequired, got %v", err)
	}
	pages.err = errors.New("dial tcp: timeout")
	if _, err := svc.ImportURL(ctx, c.ID, "https://example.com/slow", ""); !errors.Is(err, ErrUpstream) {
		t.Fatalf("want ErrUpstream, got %v", err)
	}
}

func TestKnowledge_ImportURLRejectsLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><article><p>内网管理页面，不应被导入知识库。</p></article></body></html>`))
	}))
	defer srv.Close()

	db := newTestDB(t)
	svc := &KnowledgeService{DB: db, Importer: knowledge.NewImporter(time.Second)}
	ctx := context.Background()
	c, _ := svc.CreateCollection(ctx, CollectionInput{Name: "内网"})

	if _, err := svc.ImportURL(ctx, c.ID, srv.URL, ""); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("want ErrInvalidURL, got %v", err)
	}
	docs, err := svc.ListDocuments(ctx, c.ID)
	if err != nil || len(docs) != 0 {
		t.Fatalf("nothing should be stored, got %v %v", docs, err)
	}
}

func TestKnowledge_SearchLocal(t *testing.T) {
	db := newTestDB(t)
	svc := &KnowledgeService{DB: db, TopK: 5, MinScore: 0.5}
	svc.Searcher = &knowledge.LocalSearcher{DB: db, MinScore: 0.05, Opts: []search.Option{search.WithMinParagraphRunes(0)}}
	ctx := context.Background()

	fruit, _ := svc.CreateCollection(ctx, CollectionInput{Name: "水果"})
	honey, _ := svc.CreateCollection(ctx, CollectionInput{Name: "蜂蜜"})
	_, _ = svc.AddDocument(ctx, fruit.ID, DocumentInput{Content: "赣南脐橙果肉脆嫩，甜酸适口。"})
	_, _ = svc.AddDocument(ctx, honey.ID, DocumentInput{Content: "土蜂蜜采自深山百花，口感醇厚。"})

	got, err := svc.Search(ctx, SearchInput{Query: "赣南脐橙"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected a local hit")
	}

	got, err = svc.Search(ctx, SearchInput{Query: "赣南脐橙", CollectionIDs: []string{honey.ID}})
	if err != nil {
		t.Fatalf("Search scoped: %v", err)
	}
	for _, f := range got {
		if f.Content == "赣南脐橙果肉脆嫩，甜酸适口。" {
			t.Fatal("scope leaked a document from another collection")
		}
	}

	got, err = svc.Search(ctx, SearchInput{Query: "脐橙", CollectionIDs: []string{"unknown"}})
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("unknown scope should match nothing: %v %v", got, err)
	}

	if _, err := svc.Search(ctx, SearchInput{Query: "  "}); !errors.Is(err, ErrQueryRequired) {
		t.Fatalf("want ErrQueryRequired, got %v", err)
	}
}

func TestKnowledge_SearchDefaultsAndErrors(t *testing.T) {
	db := newTestDB(t)
	st := &stubSearcher{err: &knowledge.UpstreamError{Code: 102, Message: "dataset busy"}}
	svc := &KnowledgeService{DB: db, Searcher: st, TopK: 5, MinScore: 0.5}
	ctx := context.Background()

	if _, err := svc.Search(ctx, SearchInput{Query: "大米", TopK: 3, MinScore: f64p(0.2)}); !errors.Is(err, ErrUpstream) {
		t.Fatalf("want ErrUpstream, got %v", err)
	}
	if st.last.TopK != 3 || st.last.MinScore != 0.2 || st.last.Text != "大米" {
		t.Fatalf("query = %+v", st.last)
	}

	_, err := svc.References(ctx, "大米 粮油 直播话术", nil)
	var ue *knowledge.UpstreamError
	if !errors.As(err, &ue) || ue.Code != 102 {
		t.Fatalf("References should return the raw error, got %v", err)
	}
	if st.last.TopK != 5 || st.last.MinScore != 0.5 {
		t.Fatalf("defaults not applied: %+v", st.last)
	}

	none := &KnowledgeService{DB: db}
	got, err := none.References(ctx, "x", nil)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("no searcher = %v %v", got, err)
	}
}
