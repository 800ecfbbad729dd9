package knowledge

import (
	"context"
	"errors"
	"net/http"
	"net/netip"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articleHTML = `<!DOCTYPE html><html><head><title>赣南脐橙种植指南</title></head><body>
<nav>首页 | 关于</nav>
<article><h1>赣南脐橙种植指南</h1>
<p>赣南脐橙产于江西赣州，果形端正，橙红鲜艳，光洁美观，可食率达85%，肉质脆嫩、化渣，风味浓甜芳香。</p>
<p>赣州属亚热带季风气候，年均气温18.9℃，日照充足，昼夜温差大，非常适合脐橙生长，糖分积累充分。</p>
<p>每年十一月是采摘季，果农会挑选成熟度最佳的果实，经过清洗、分级和打蜡后发往全国各地。</p>
</article><footer>版权所有</footer></body></html>`

func TestImporter_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(articleHTML))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	im := NewImporter(2 * time.Second)
	im.AllowPrivate = true
	page, err := im.Fetch(context.Background(), srv.URL+"/article")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(page.Text, "赣州属亚热带季风气候") {
		t.Fatalf("article text missing: %q", page.Text)
	}
	if page.Title == "" {
		t.Fatalf("title not extracted")
	}

	if _, err := im.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatalf("expected error on 404")
	}
	if _, err := im.Fetch(context.Background(), "ftp://example.com/x"); err == nil {
		t.Fatalf("expected invalid url error")
	}
}

func TestImporter_EmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body></body></html>`))
	}))
	defer srv.Close()

	im := NewImporter(time.Second)
	im.AllowPrivate = true
	if _, err := im.Fetch(context.Background(), srv.URL); !errors.Is(err, ErrNoContent) {
		t.Fatalf("want ErrNoContent, got %v", err)
	}
}

func TestImporter_RejectsNonPublicHosts(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	im := NewImporter(time.Second)
	for _, u := range []string{srv.URL + "/article", "http://0.0.0.0:1/"} {
		if _, err := im.Fetch(context.Background(), u); !errors.Is(err, ErrForbiddenHost) {
			t.Fatalf("%s: want ErrForbiddenHost, got %v", u, err)
		}
	}
	if hits != 0 {
		t.Fatalf("server reached %d times", hits)
	}
}

func TestPublicAddr(t *testing.T) {
	cases := map[string]bool{
		"8.8.8.8":          true,
		"2606:4700::1111":  true,
		"127.0.0.1":        false,
		"10.1.2.3":         false,
		"172.16.0.9":       false,
		"192.168.1.1":      false,
		"169.254.169.254":  false,
		"0.0.0.0":          false,
		"::1":              false,
		"fe80::1":          false,
		"fd00::1":          false,
		"::ffff:127.0.0.1": false,
		"224.0.0.1":        false,
	}
	for in, want := range cases {
		if got := PublicAddr(netip.MustParseAddr(in)); got != want {
			t.Errorf("PublicAddr(%s) = %v, want %v", in, got, want)
		}
	}
}
