package testutil

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap/zaptest"

	"ViSearch/internal/analysis"
	"ViSearch/internal/analysis/vietnamese"
	"ViSearch/internal/index"
	"ViSearch/internal/indexing"
	"ViSearch/internal/plugin"
	"ViSearch/internal/plugin/analysisvi"
)

// VietnameseMapping is the mapping body used by the plugin's integration
// scenario: one text field analyzed with vi_analyzer.
const VietnameseMapping = `{"_doc":{"properties":{"foo":{"type":"text","analyzer":"vi_analyzer"}}}}`

// Analyzers returns an analysis registry with the Vietnamese plugin
// installed, and the plugin registry that installed it.
func Analyzers(t testing.TB) (*analysis.Registry, *plugin.Registry) {
	t.Helper()
	analyzers := analysis.NewRegistry()
	plugins := plugin.NewRegistry(analyzers, zaptest.NewLogger(t))
	if err := plugins.Register(analysisvi.New(zaptest.NewLogger(t))); err != nil {
		t.Fatalf("register plugin: %v", err)
	}
	return analyzers, plugins
}

// BasicSchema returns a schema suitable for most tests.
func BasicSchema() *index.Schema {
	return &index.Schema{
		Version:         1,
		CreatedAt:       time.Now(),
		DefaultAnalyzer: vietnamese.AnalyzerName,
		Fields: []index.FieldDef{
			{Name: "id", Type: index.FieldTypeKeyword, Indexed: true},
			{Name: "title", Type: index.FieldTypeText, Analyzer: vietnamese.AnalyzerName, Indexed: true},
			{Name: "body", Type: index.FieldTypeText, Indexed: true},
			{Name: "tags", Type: index.FieldTypeKeyword, Indexed: true},
			{Name: "metadata", Type: index.FieldTypeStoredOnly},
		},
	}
}

// MultiFieldSchema returns a schema with many fields for stress testing.
func MultiFieldSchema() *index.Schema {
	s := &index.Schema{
		Version:         1,
		CreatedAt:       time.Now(),
		DefaultAnalyzer: vietnamese.AnalyzerName,
	}
	for i := 0; i < 50; i++ {
		s.Fields = append(s.Fields, index.FieldDef{
			Name:    "field_" + string(rune('a'+i%26)) + string(rune('0'+i/26)),
			Type:    index.FieldTypeText,
			Indexed: true,
		})
	}
	return s
}

// SampleDocuments returns a small set of Vietnamese test documents.
func SampleDocuments() []indexing.Document {
	return []indexing.Document{
		{ID: "doc-1", Source: map[string]any{
			"id":    "doc-1",
			"title": "Công nghệ thông tin Việt Nam",
			"body":  "Ngành công nghệ thông tin phát triển mạnh tại Việt Nam",
			"tags":  []any{"công nghệ", "tin tức"},
		}},
		{ID: "doc-2", Source: map[string]any{
			"id":    "doc-2",
			"title": "Thông tin thời tiết Hà Nội",
			"body":  "Dự báo thời tiết Hà Nội hôm nay có mưa",
			"tags":  []any{"thời tiết", "tin tức"},
		}},
		{ID: "doc-3", Source: map[string]any{
			"id":    "doc-3",
			"title": "Công nghệ tìm kiếm dữ liệu",
			"body":  "Tìm kiếm dữ liệu nhanh với chỉ mục đảo ngược",
			"tags":  []any{"công nghệ", "tìm kiếm"},
		}},
		{ID: "doc-4", Source: map[string]any{
			"id":       "doc-4",
			"title":    "Du lịch Việt Nam",
			"body":     "Du lịch Hà Nội và các tỉnh miền Bắc Việt Nam",
			"tags":     []any{"du lịch"},
			"metadata": "ảnh bìa: ha-long.jpg",
		}},
		{ID: "doc-5", Source: map[string]any{
			"id":    "doc-5",
			"title": "Tin tức công nghệ",
			"body":  "Tin tức công nghệ thông tin mới nhất",
			"tags":  []any{"công nghệ", "tin tức"},
		}},
	}
}

// IngestDocuments indexes a set of documents into a writer.
func IngestDocuments(t testing.TB, w *indexing.Writer, docs []indexing.Document) {
	t.Helper()
	for _, doc := range docs {
		if err := w.AddDocument(doc); err != nil {
			t.Fatalf("AddDocument(%s): %v", doc.ID, err)
		}
	}
}

// CreatePopulatedWriter creates a writer with sample documents already ingested.
func CreatePopulatedWriter(t testing.TB) *indexing.Writer {
	t.Helper()
	analyzers, _ := Analyzers(t)
	w := indexing.NewWriter(BasicSchema(), analyzers)
	IngestDocuments(t, w, SampleDocuments())
	return w
}

// Response is a decoded HTTP response.
type Response struct {
	Status int
	Body   []byte
	// JSON holds the decoded body when it is a JSON object.
	JSON map[string]any
}

// Do sends a request to app and decodes the response. A non-empty body
// is sent as JSON.
func Do(t testing.TB, app *fiber.App, method, path, body string) Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("%s %s: read body: %v", method, path, err)
	}
	out := Response{Status: resp.StatusCode, Body: data}
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		if err := json.Unmarshal(data, &out.JSON); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, data, err)
		}
	}
	return out
}

// Hits returns the hits.hits array of a search response.
func (r Response) Hits(t testing.TB) []map[string]any {
	t.Helper()
	hits, ok := r.JSON["hits"].(map[string]any)
	if !ok {
		t.Fatalf("response has no hits: %s", r.Body)
	}
	list, _ := hits["hits"].([]any)
	out := make([]map[string]any, 0, len(list))
	for _, h := range list {
		out = append(out, h.(map[string]any))
	}
	return out
}

// Total returns hits.total.value of a search response.
func (r Response) Total(t testing.TB) int {
	t.Helper()
	hits, ok := r.JSON["hits"].(map[string]any)
	if !ok {
		t.Fatalf("response has no hits: %s", r.Body)
	}
	total, _ := hits["total"].(map[string]any)
	v, _ := total["value"].(float64)
	return int(v)
}

// ErrorType returns error.type of an error response.
func (r Response) ErrorType() string {
	e, _ := r.JSON["error"].(map[string]any)
	kind, _ := e["type"].(string)
	return kind
}

// Tokens returns the token strings of an analyze response.
func (r Response) Tokens(t testing.TB) []string {
	t.Helper()
	list, ok := r.JSON["tokens"].([]any)
	if !ok {
		t.Fatalf("response has no tokens: %s", r.Body)
	}
	out := make([]string, 0, len(list))
	for _, tok := range list {
		out = append(out, tok.(map[string]any)["token"].(string))
	}
	return out
}
