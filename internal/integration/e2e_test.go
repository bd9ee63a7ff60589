package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ViSearch/internal/analysis"
	"ViSearch/internal/engine"
	"ViSearch/internal/indexing"
	"ViSearch/internal/plugin/analysisvi"
	"ViSearch/internal/query"
	"ViSearch/internal/scoring"
	"ViSearch/internal/server"
	"ViSearch/internal/testutil"
)

func newServer(t *testing.T) *server.Server {
	t.Helper()
	analyzers, plugins := testutil.Analyzers(t)
	return server.New(server.Options{
		Analyzers:      analyzers,
		Plugins:        plugins,
		Logger:         zaptest.NewLogger(t),
		QueryCacheSize: analysis.DefaultCacheSize,
	})
}

func TestE2E_PluginIsLoaded(t *testing.T) {
	app := newServer(t).App()

	resp := testutil.Do(t, app, "GET", "/_nodes/plugins", "")
	require.Equal(t, 200, resp.Status)

	nodes := resp.JSON["nodes"].(map[string]any)
	require.NotEmpty(t, nodes)
	for id, n := range nodes {
		found := false
		for _, p := range n.(map[string]any)["plugins"].([]any) {
			if p.(map[string]any)["classname"] == analysisvi.Classname {
				found = true
				break
			}
		}
		assert.True(t, found, "node %s does not list the Vietnamese plugin", id)
	}
}

func TestE2E_VietnameseAnalyzer(t *testing.T) {
	app := newServer(t).App()

	resp := testutil.Do(t, app, "POST", "/_analyze",
		`{"analyzer":"vi_analyzer","text":"công nghệ thông tin Việt Nam"}`)
	require.Equal(t, 200, resp.Status, string(resp.Body))

	tokens := resp.Tokens(t)
	require.Len(t, tokens, 3)
	assert.Equal(t, []string{"công nghệ", "thông tin", "việt nam"}, tokens)
}

func TestE2E_VietnameseAnalyzerInMapping(t *testing.T) {
	app := newServer(t).App()

	resp := testutil.Do(t, app, "PUT", "/test", "")
	require.Equal(t, 200, resp.Status, string(resp.Body))
	resp = testutil.Do(t, app, "GET", "/_cluster/health/test", "")
	require.Equal(t, "green", resp.JSON["status"])

	resp = testutil.Do(t, app, "PUT", "/test/_mapping", testutil.VietnameseMapping)
	require.Equal(t, 200, resp.Status, string(resp.Body))

	resp = testutil.Do(t, app, "PUT", "/test/_doc/1", `{"foo":"công nghệ thông tin Việt Nam"}`)
	require.Equal(t, 201, resp.Status, string(resp.Body))

	resp = testutil.Do(t, app, "POST", "/_refresh", "")
	require.Equal(t, 200, resp.Status)

	resp = testutil.Do(t, app, "POST", "/test/_search", `{"query":{"match":{"foo":"công nghệ thông tin"}}}`)
	require.Equal(t, 200, resp.Status, string(resp.Body))
	assert.Equal(t, 1, resp.Total(t))
}

func TestE2E_SegmentationDrivesMatching(t *testing.T) {
	app := newServer(t).App()
	resp := testutil.Do(t, app, "PUT", "/news",
		`{"mappings":{"properties":{"title":{"type":"text","analyzer":"vi_analyzer"},"tags":{"type":"keyword"}}}}`)
	require.Equal(t, 200, resp.Status, string(resp.Body))

	for _, doc := range testutil.SampleDocuments() {
		body := `{"title":` + quote(doc.Source["title"].(string)) + `}`
		resp := testutil.Do(t, app, "PUT", "/news/_doc/"+doc.ID, body)
		require.Equal(t, 201, resp.Status, string(resp.Body))
	}
	testutil.Do(t, app, "POST", "/news/_refresh", "")

	tests := []struct {
		name  string
		query string
		want  int
	}{
		// Single syllables of a dictionary word are not indexed on their own.
		{"syllable of a word", `{"match":{"title":"công"}}`, 0},
		{"whole word", `{"match":{"title":"công nghệ"}}`, 3},
		{"case and composition folded", `{"match":{"title":"VIỆT NAM"}}`, 2},
		{"or of words", `{"match":{"title":"việt nam hà nội"}}`, 3},
		{"and of words", `{"match":{"title":{"query":"công nghệ thông tin","operator":"and"}}}`, 1},
		{"bool must_not", `{"bool":{"must":{"match":{"title":"công nghệ"}},"must_not":{"match":{"title":"tin tức"}}}}`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.Do(t, app, "POST", "/news/_search", `{"query":`+tt.query+`}`)
			require.Equal(t, 200, resp.Status, string(resp.Body))
			assert.Equal(t, tt.want, resp.Total(t))
		})
	}
}

func quote(s string) string {
	return `"` + s + `"`
}

// The pipeline below the HTTP layer: writer, segment, searcher, scoring.
func TestE2E_IndexSearchCycle(t *testing.T) {
	analyzers, _ := testutil.Analyzers(t)
	w := indexing.NewWriter(testutil.BasicSchema(), analyzers)
	testutil.IngestDocuments(t, w, testutil.SampleDocuments())

	seg := w.Flush("seg_000001").Segment
	require.NotNil(t, seg)
	require.Equal(t, 5, seg.LiveDocCount())

	searcher := query.NewSearcher(testutil.BasicSchema(), analyzers, []*indexing.Segment{seg})
	res, err := searcher.Search(context.Background(), query.SearchRequest{
		Query:  &query.MatchQuery{Field: "body", Text: "công nghệ thông tin"},
		Size:   10,
		Source: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)

	for i := 1; i < len(res.Hits); i++ {
		assert.GreaterOrEqual(t, res.Hits[i-1].Score, res.Hits[i].Score, "hits not sorted by score")
	}
	assert.Equal(t, res.Hits[0].Score, res.MaxScore)
}

func TestE2E_BM25ByHand(t *testing.T) {
	analyzers, _ := testutil.Analyzers(t)
	w := indexing.NewWriter(testutil.BasicSchema(), analyzers)
	testutil.IngestDocuments(t, w, testutil.SampleDocuments())
	seg := w.Flush("seg_000001").Segment

	pl := seg.Postings("title", "công nghệ")
	require.NotNil(t, pl)
	ids, freqs := pl.DocIDs()

	stats := seg.FieldStats("title")
	scorer := scoring.NewFieldScorer(scoring.FieldStats{
		DocCount:      int64(seg.DocCount()),
		FieldDocCount: int64(stats.DocCount),
		SumLength:     int64(stats.SumLength),
	})
	weight := scorer.Weight("title", "công nghệ", int64(seg.DocFreq("title", "công nghệ")), 1)

	it := engine.NewSlicePostingsIterator(ids, freqs).WithScorer(func(docID, freq uint32) float32 {
		return weight.Score(freq, seg.FieldLength("title", docID))
	})
	collector := engine.NewTopKCollector(10)
	for it.Next() {
		collector.Collect(it.DocID(), it.Score())
	}

	searcher := query.NewSearcher(testutil.BasicSchema(), analyzers, []*indexing.Segment{seg})
	res, err := searcher.Search(context.Background(), query.SearchRequest{
		Query: &query.TermQuery{Field: "title", Term: "công nghệ"},
		Size:  10,
	})
	require.NoError(t, err)

	manual := collector.Results()
	require.Len(t, res.Hits, len(manual))
	for i, sd := range manual {
		assert.Equal(t, seg.ExternalID(sd.DocID), res.Hits[i].ID)
		assert.InDelta(t, sd.Score, res.Hits[i].Score, 1e-5)
	}
}
