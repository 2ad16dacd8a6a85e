package websearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNaverSearcherSearch(t *testing.T) {
	var gotQuery, gotID, gotSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotID = r.Header.Get("X-Naver-Client-Id")
		gotSecret = r.Header.Get("X-Naver-Client-Secret")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"title":"<b>Go</b> 1.25 &quot;released&quot;","link":"https://n.news/1","originallink":"https://orig/1","description":"d1","pubDate":"Mon"},
			{"title":"second","link":"https://n.news/2"},
			{"title":"third","link":"https://n.news/3"},
			{"title":"fourth","link":"https://n.news/4"}
		]}`))
	}))
	defer srv.Close()

	s := NewNaverSearcher("id", "secret", srv.Client()).WithEndpoint(srv.URL)
	results, err := s.Search(context.Background(), "go release", 3)
	require.NoError(t, err)

	assert.Equal(t, "go release", gotQuery)
	assert.Equal(t, "id", gotID)
	assert.Equal(t, "secret", gotSecret)
	require.Len(t, results, 3)
	assert.Equal(t, `Go 1.25 "released"`, results[0].Title)
	assert.Equal(t, "https://n.news/1", results[0].Link)
}

func TestNaverSearcherHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewNaverSearcher("id", "bad", srv.Client()).WithEndpoint(srv.URL)
	_, err := s.Search(context.Background(), "x", 3)
	require.Error(t, err)
}

func TestNaverSearcherEmptyQuery(t *testing.T) {
	s := NewNaverSearcher("id", "secret", nil)
	_, err := s.Search(context.Background(), "   ", 3)
	require.Error(t, err)
}

func TestDisabledSearcher(t *testing.T) {
	_, err := NewDisabledSearcher("naver credentials missing").Search(context.Background(), "x", 3)
	assert.True(t, errors.Is(err, ErrSearchDisabled))
}
