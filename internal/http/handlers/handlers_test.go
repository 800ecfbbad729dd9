package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/http/middleware"
	"github.com/agristream/livescript/internal/llm"
	"github.com/agristream/livescript/internal/materials"
	"github.com/agristream/livescript/internal/repo"
	"github.com/agristream/livescript/internal/services"
)

// ---------- harness ----------

type fakeLLM struct {
	mu      sync.Mutex
	chunks  []string
	verdict string
	invokes int
}

func (f *fakeLLM) Invoke(context.Context, []llm.Message, llm.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invokes++
	return f.verdict, nil
}

func (f *fakeLLM) Stream(context.Context, []llm.Message, llm.Options) (llm.Stream, error) {
	return &sliceStream{chunks: f.chunks}, nil
}

type sliceStream struct {
	chunks []string
	i      int
}

func (s *sliceStream) Next() bool {
	if s.i >= len(s.chunks) {
		return false
	}
	s.i++
	return true
}
func (s *sliceStream) Current() string { return s.chunks[s.i-1] }
func (s *sliceStream) Err() error      { return nil }
func (s *sliceStream) Close() error    { return nil }

type testAPI struct {
	db     *gorm.DB
	llm    *fakeLLM
	router *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	fake := &fakeLLM{verdict: `{"status":"warning","score":72,"issues":[{"type":"absolute","content":"最甜","suggestion":"改为很甜","severity":"medium"}],"summary":"存在绝对化用语"}`}
	kb := &services.KnowledgeService{DB: db}
	h := New(Services{
		Products:   &services.ProductService{DB: db},
		Templates:  &services.TemplateService{DB: db},
		Scripts:    services.NewScriptService(db),
		Generator:  &services.GenerationService{DB: db, LLM: fake, References: kb, Model: "test-model", Temperature: 0.7},
		Compliance: &services.ComplianceService{DB: db, LLM: fake},
		Knowledge:  kb,
		Materials:  &services.MaterialService{DB: db, Searcher: materials.NewMockSearcher()},
	})

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.UserID())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	api := r.Group("/api")
	api.POST("/products", h.CreateProduct)
	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", h.GetProduct)
	api.PUT("/products/:id", h.UpdateProduct)
	api.DELETE("/products/:id", h.DeleteProduct)
	api.POST("/templates", h.CreateTemplate)
	api.GET("/templates", h.ListTemplates)
	api.POST("/scripts/generate", h.GenerateScript)
	api.GET("/scripts", h.ListScripts)
	api.GET("/scripts/:id", h.GetScript)
	api.PUT("/scripts/:id", h.UpdateScript)
	api.GET("/scripts/:id/export", h.ExportScript)
	api.POST("/scripts/:id/compliance", h.CheckCompliance)
	api.POST("/knowledge/collections", h.CreateCollection)
	api.GET("/knowledge/collections/:id/documents", h.ListDocuments)
	api.POST("/knowledge/collections/:id/documents", h.AddDocument)
	api.POST("/knowledge/search", h.SearchKnowledge)
	api.GET("/materials/search", h.SearchMaterials)
	api.POST("/materials", h.CollectMaterial)
	api.GET("/materials", h.ListMaterials)
	api.POST("/materials/:id/transcribe", h.TranscribeMaterial)

	return &testAPI{db: db, llm: fake, router: r}
}

func (a *testAPI) do(method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	if !env.Success {
		t.Fatalf("expected success envelope, got %s", w.Body.String())
	}
	return env.Data
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func (a *testAPI) seedProductAndTemplate(t *testing.T) (*domain.Product, *domain.StyleTemplate) {
	t.Helper()
	ctx := context.Background()
	p := &domain.Product{Name: "赣南脐橙", Category: "水果", Origin: "江西赣州", Price: 39.9, ProhibitedWords: []string{"最甜"}, IsActive: true}
	if err := repo.CreateProduct(ctx, a.db, p); err != nil {
		t.Fatalf("product: %v", err)
	}
	tm := &domain.StyleTemplate{Name: "邻家亲切", StyleType: domain.StyleFriendly, IsActive: true}
	if err := repo.CreateTemplate(ctx, a.db, tm); err != nil {
		t.Fatalf("template: %v", err)
	}
	return p, tm
}

// ---------- products ----------

func TestProducts_CreateValidation(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodPost, "/api/products", `{"name":`)
	if w.Code != http.StatusBadRequest || decodeErr(t, w).Error != "invalid JSON body" {
		t.Fatalf("malformed body: %d %s", w.Code, w.Body.String())
	}

	w = a.do(http.MethodPost, "/api/products", `{"name":"苹果","price":-1}`)
	if w.Code != http.StatusBadRequest || decodeErr(t, w).Code != ErrCodeBadRequest {
		t.Fatalf("negative price: %d %s", w.Code, w.Body.String())
	}

	w = a.do(http.MethodPost, "/api/products", `{"price":3}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing name: %d %s", w.Code, w.Body.String())
	}
}

func TestProducts_UpdateAndList(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodPost, "/api/products", `{"name":"五常大米","category":"粮油","price":59,"isActive":true}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	p := decodeData[domain.Product](t, w)

	w = a.do(http.MethodPut, "/api/products/"+p.ID, `{"price":49.5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	up := decodeData[domain.Product](t, w)
	if up.Price != 49.5 || up.Name != "五常大米" {
		t.Fatalf("partial update lost fields: %+v", up)
	}

	w = a.do(http.MethodGet, "/api/products?active=maybe", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad active flag: %d", w.Code)
	}

	w = a.do(http.MethodGet, "/api/products?category=%E7%B2%AE%E6%B2%B9&page_size=500", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	page := decodeData[ListProductsResponse](t, w)
	if len(page.Products) != 1 || page.Pagination.PageSize != 100 || page.Pagination.Total != 1 || page.Pagination.HasNext {
		t.Fatalf("unexpected page: %+v", page)
	}

	etag := w.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"products:`) {
		t.Fatalf("unexpected etag %q", etag)
	}
	w = a.do(http.MethodGet, "/api/products?category=%E7%B2%AE%E6%B2%B9&page_size=500", "", "If-None-Match", etag)
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional list = %d", w.Code)
	}

	// Same filter, different page: different tag.
	w = a.do(http.MethodGet, "/api/products?category=%E7%B2%AE%E6%B2%B9&page=2&page_size=500", "", "If-None-Match", etag)
	if w.Code != http.StatusOK {
		t.Fatalf("other page must not match etag, got %d", w.Code)
	}
}

func TestProducts_GetMissing(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(http.MethodGet, "/api/products/"+uuid.NewString(), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get missing = %d", w.Code)
	}
	body := decodeErr(t, w)
	if body.Code != ErrCodeNotFound || body.RequestID == "" {
		t.Fatalf("unexpected body %+v", body)
	}
}

// ---------- templates ----------

func TestTemplates_StyleTypeFilter(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodPost, "/api/templates", `{"name":"专业讲解","styleType":"professional","isActive":true}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	w = a.do(http.MethodPost, "/api/templates", `{"name":"怪腔怪调","styleType":"weird"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown style type = %d", w.Code)
	}

	w = a.do(http.MethodGet, "/api/templates?styleType=weird", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown filter = %d", w.Code)
	}
	w = a.do(http.MethodGet, "/api/templates?styleType=professional", "")
	page := decodeData[ListTemplatesResponse](t, w)
	if len(page.Templates) != 1 || page.Templates[0].Name != "专业讲解" {
		t.Fatalf("unexpected templates: %+v", page)
	}
}

// ---------- generation ----------

type sseEvent struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	ScriptID string `json:"scriptId"`
	Error    string `json:"error"`
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var out []sseEvent
	for _, frame := range strings.Split(body, "\n\n") {
		frame = strings.TrimSpace(frame)
		if frame == "" {
			continue
		}
		if !strings.HasPrefix(frame, "data: ") {
			t.Fatalf("bad frame %q", frame)
		}
		var ev sseEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &ev); err != nil {
			t.Fatalf("decode frame %q: %v", frame, err)
		}
		out = append(out, ev)
	}
	return out
}

func TestGenerateScript_StreamsChunksThenDone(t *testing.T) {
	a := newTestAPI(t)
	p, tm := a.seedProductAndTemplate(t)
	a.llm.chunks = []string{
		`{"warmUp":{"title":"暖场","target":"聚人气","script":"家人们晚上好"},`,
		`"pushOrder":{"title":"逼单","target":"下单","script":"库存不多了"},`,
		`"estimatedDuration":"30分钟"}`,
	}

	body := fmt.Sprintf(`{"productId":%q,"styleTemplateId":%q,"duration":30,"promotionRules":{"满减":"满99减10"}}`, p.ID, tm.ID)
	w := a.do(http.MethodPost, "/api/scripts/generate", body)
	if w.Code != http.StatusOK {
		t.Fatalf("generate = %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}

	events := parseSSE(t, w.Body.String())
	if len(events) != 4 {
		t.Fatalf("want 3 chunks + done, got %+v", events)
	}
	var text strings.Builder
	for _, ev := range events[:3] {
		if ev.Type != services.EventChunk {
			t.Fatalf("expected chunk, got %+v", ev)
		}
		text.WriteString(ev.Content)
	}
	if text.String() != strings.Join(a.llm.chunks, "") {
		t.Fatalf("chunks reordered: %q", text.String())
	}
	done := events[3]
	if done.Type != services.EventDone || done.ScriptID == "" {
		t.Fatalf("bad terminal event %+v", done)
	}

	w = a.do(http.MethodGet, "/api/scripts/"+done.ScriptID, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "家人们晚上好") {
		t.Fatalf("stored script: %d %s", w.Code, w.Body.String())
	}
}

func TestGenerateScript_ValidationIsPlainJSON(t *testing.T) {
	a := newTestAPI(t)
	p, _ := a.seedProductAndTemplate(t)

	w := a.do(http.MethodPost, "/api/scripts/generate", `{"productId":"`+p.ID+`"}`)
	if w.Code != http.StatusBadRequest || decodeErr(t, w).Code != ErrCodeBadRequest {
		t.Fatalf("missing template id: %d %s", w.Code, w.Body.String())
	}

	w = a.do(http.MethodPost, "/api/scripts/generate", fmt.Sprintf(`{"productId":%q,"styleTemplateId":%q}`, p.ID, uuid.NewString()))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown template: %d %s", w.Code, w.Body.String())
	}
}

// ---------- scripts ----------

func (a *testAPI) seedScript(t *testing.T) *domain.Script {
	t.Helper()
	p, tm := a.seedProductAndTemplate(t)
	sc := &domain.Script{
		ProductID:       p.ID,
		StyleTemplateID: tm.ID,
		Title:           "脐橙专场",
		Duration:        30,
		Status:          domain.ScriptDraft,
		WarmUp:          &domain.Section{Title: "暖场", Script: "这是最甜的橙子"},
	}
	if err := repo.CreateScript(context.Background(), a.db, sc); err != nil {
		t.Fatalf("script: %v", err)
	}
	return sc
}

func TestScripts_UpdateAndFilter(t *testing.T) {
	a := newTestAPI(t)
	sc := a.seedScript(t)

	w := a.do(http.MethodPut, "/api/scripts/"+sc.ID, `{"status":"reviewed","qualityScore":8.5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	w = a.do(http.MethodPut, "/api/scripts/"+sc.ID, `{"status":"lost"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad status = %d", w.Code)
	}

	w = a.do(http.MethodGet, "/api/scripts?status=reviewed&productId="+sc.ProductID, "")
	page := decodeData[ListScriptsResponse](t, w)
	if page.Pagination.Total != 1 {
		t.Fatalf("filter by status: %+v", page.Pagination)
	}
}

func TestScripts_Export(t *testing.T) {
	a := newTestAPI(t)
	sc := a.seedScript(t)

	w := a.do(http.MethodGet, "/api/scripts/"+sc.ID+"/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("export md: %d %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "script-"+sc.ID+".md") {
		t.Fatalf("content disposition %q", cd)
	}
	if !strings.Contains(w.Body.String(), "脐橙专场") {
		t.Fatalf("markdown misses title: %s", w.Body.String())
	}

	w = a.do(http.MethodGet, "/api/scripts/"+sc.ID+"/export?format=html", "")
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("export html: %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, ".html") {
		t.Fatalf("content disposition %q", cd)
	}

	w = a.do(http.MethodGet, "/api/scripts/"+sc.ID+"/export?format=pdf", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("pdf export = %d", w.Code)
	}
}

func TestCheckCompliance_StoresAndReplays(t *testing.T) {
	a := newTestAPI(t)
	sc := a.seedScript(t)
	path := "/api/scripts/" + sc.ID + "/compliance"

	w := a.do(http.MethodPost, path, "", middleware.UserIDHeader, "host-9", middleware.HeaderIdempotencyKey, "k-1")
	if w.Code != http.StatusOK {
		t.Fatalf("check: %d %s", w.Code, w.Body.String())
	}
	rep := decodeData[domain.ComplianceReport](t, w)
	if rep.Status != "warning" || rep.Score != 72 || len(rep.Issues) != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}

	w = a.do(http.MethodPost, path, "", middleware.UserIDHeader, "host-9", middleware.HeaderIdempotencyKey, "k-1")
	if w.Code != http.StatusOK || w.Header().Get(middleware.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("replay: %d %v", w.Code, w.Header())
	}
	if a.llm.invokes != 1 {
		t.Fatalf("replay must not call the model, invokes=%d", a.llm.invokes)
	}

	// Another caller with the same key is not a replay.
	w = a.do(http.MethodPost, path, "", middleware.UserIDHeader, "host-10", middleware.HeaderIdempotencyKey, "k-1")
	if w.Code != http.StatusOK || w.Header().Get(middleware.HeaderIdempotencyReplayed) != "" {
		t.Fatalf("other user: %d %v", w.Code, w.Header())
	}
	if a.llm.invokes != 2 {
		t.Fatalf("invokes=%d, want 2", a.llm.invokes)
	}

	w = a.do(http.MethodPost, "/api/scripts/"+uuid.NewString()+"/compliance", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing script = %d", w.Code)
	}
}

// ---------- knowledge ----------

func TestKnowledge_DocumentsAndSearch(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodPost, "/api/knowledge/collections", `{"name":"产地故事"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create collection: %d %s", w.Code, w.Body.String())
	}
	col := decodeData[domain.KnowledgeCollection](t, w)

	w = a.do(http.MethodPost, "/api/knowledge/collections", `{"name":"产地故事"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate name = %d", w.Code)
	}

	w = a.do(http.MethodPost, "/api/knowledge/collections/"+col.ID+"/documents", `{"title":"赣州气候","content":"赣州日照充足，昼夜温差大。"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("add document: %d %s", w.Code, w.Body.String())
	}
	w = a.do(http.MethodPost, "/api/knowledge/collections/"+col.ID+"/documents", `{"title":"空文档"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty content = %d", w.Code)
	}

	w = a.do(http.MethodGet, "/api/knowledge/collections/"+col.ID+"/documents", "")
	docs := decodeData[[]domain.KnowledgeDocument](t, w)
	if len(docs) != 1 || docs[0].Status != domain.DocumentReady {
		t.Fatalf("unexpected documents %+v", docs)
	}

	w = a.do(http.MethodPost, "/api/knowledge/search", `{"query":"  "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank query = %d", w.Code)
	}

	// No search backend configured: an empty list, never null.
	w = a.do(http.MethodPost, "/api/knowledge/search", `{"query":"脐橙"}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"data":[]`) {
		t.Fatalf("search: %d %s", w.Code, w.Body.String())
	}
}

// ---------- materials ----------

func TestMaterials_SearchCollectTranscribe(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodGet, "/api/materials/search?keyword=", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty keyword = %d %s", w.Code, w.Body.String())
	}

	w = a.do(http.MethodGet, "/api/materials/search?keyword=%E8%84%90%E6%A9%99&page=2&page_size=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("search: %d %s", w.Code, w.Body.String())
	}
	res := decodeData[materials.Page](t, w)
	if len(res.Items) != 5 || res.Total != materials.MockTotal || res.Page != 2 {
		t.Fatalf("unexpected page %+v", res)
	}

	v := res.Items[0]
	payload, _ := json.Marshal(services.CollectInput{Keyword: "脐橙", Video: v})
	w = a.do(http.MethodPost, "/api/materials", string(payload))
	if w.Code != http.StatusCreated {
		t.Fatalf("collect: %d %s", w.Code, w.Body.String())
	}
	m := decodeData[domain.Material](t, w)

	w = a.do(http.MethodPost, "/api/materials", string(payload))
	if w.Code != http.StatusConflict {
		t.Fatalf("collect twice = %d", w.Code)
	}

	w = a.do(http.MethodGet, "/api/materials?keyword=%E8%84%90%E6%A9%99", "")
	list := decodeData[ListMaterialsResponse](t, w)
	if list.Pagination.Total != 1 || list.Materials[0].Status != domain.MaterialCollected {
		t.Fatalf("unexpected list %+v", list)
	}

	w = a.do(http.MethodPost, "/api/materials/"+m.ID+"/transcribe", "")
	if w.Code != http.StatusServiceUnavailable || decodeErr(t, w).Code != ErrCodeTranscriberMissing {
		t.Fatalf("transcribe without ASR: %d %s", w.Code, w.Body.String())
	}
}
