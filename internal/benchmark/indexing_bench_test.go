package benchmark

import (
	"fmt"
	"testing"

	"ViSearch/internal/analysis"
	"ViSearch/internal/analysis/vietnamese"
	"ViSearch/internal/index"
	"ViSearch/internal/indexing"
)

func benchSchema() *index.Schema {
	return &index.Schema{
		Version:         1,
		DefaultAnalyzer: vietnamese.AnalyzerName,
		Fields: []index.FieldDef{
			{Name: "id", Type: index.FieldTypeKeyword, Indexed: true},
			{Name: "title", Type: index.FieldTypeText, Indexed: true},
			{Name: "body", Type: index.FieldTypeText, Indexed: true},
			{Name: "tags", Type: index.FieldTypeKeyword, Indexed: true},
		},
	}
}

func benchRegistry(b *testing.B) *analysis.Registry {
	b.Helper()
	a, err := vietnamese.New(vietnamese.DefaultOptions())
	if err != nil {
		b.Fatal(err)
	}
	r := analysis.NewRegistry()
	if err := r.Register(vietnamese.AnalyzerName, a); err != nil {
		b.Fatal(err)
	}
	return r
}

func smallDoc(i int) indexing.Document {
	id := fmt.Sprintf("doc-%d", i)
	return indexing.Document{ID: id, Source: map[string]any{
		"id":    id,
		"title": "Giới thiệu công cụ tìm kiếm",
		"body":  "Tìm kiếm toàn văn là kỹ thuật tìm kiếm tài liệu.",
		"tags":  []any{"tìm kiếm", "hướng dẫn"},
	}}
}

func largeDoc(i int) indexing.Document {
	id := fmt.Sprintf("doc-%d", i)
	return indexing.Document{ID: id, Source: map[string]any{
		"id":    id,
		"title": "Hướng dẫn xây dựng công cụ tìm kiếm tiếng Việt",
		"body":  longText + " " + longText + " " + longText,
		"tags":  []any{"tìm kiếm", "hướng dẫn", "nâng cao", "chỉ mục"},
	}}
}

func BenchmarkIndexing_SmallDocs(b *testing.B) {
	schema := benchSchema()
	registry := benchRegistry(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := indexing.NewWriter(schema, registry)
		for j := 0; j < 100; j++ {
			_ = w.AddDocument(smallDoc(j))
		}
	}
}

func BenchmarkIndexing_LargeDocs(b *testing.B) {
	schema := benchSchema()
	registry := benchRegistry(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := indexing.NewWriter(schema, registry)
		for j := 0; j < 100; j++ {
			_ = w.AddDocument(largeDoc(j))
		}
	}
}

func BenchmarkIndexing_Flush(b *testing.B) {
	schema := benchSchema()
	registry := benchRegistry(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		w := indexing.NewWriter(schema, registry)
		for j := 0; j < 100; j++ {
			_ = w.AddDocument(smallDoc(j))
		}
		b.StartTimer()
		_ = w.Flush("seg_000001")
	}
}
