package library

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paperlens/core/internal/models"
	"github.com/paperlens/core/internal/pkg/extract"
	"github.com/paperlens/core/internal/pkg/vectorstore"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>Attention Is All
   You Need</title>
    <summary>  We propose the Transformer.  </summary>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
  </entry>
</feed>`

func TestArxivMetadataParsesAtom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1706.03762", r.URL.Query().Get("id_list"))
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	client := &ArxivClient{http: srv.Client()}
	meta, err := client.metadataFrom(context.Background(), srv.URL+"?id_list=1706.03762", "1706.03762")
	require.NoError(t, err)

	assert.Equal(t, "Attention Is All You Need", meta.Title)
	assert.Equal(t, "We propose the Transformer.", meta.Summary)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, meta.Authors)
	assert.Equal(t, "2017-06-12T17:57:34Z", meta.Published)
}

func TestArxivMetadataEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))
	defer srv.Close()

	client := &ArxivClient{http: srv.Client()}
	_, err := client.metadataFrom(context.Background(), srv.URL, "9999.00000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no feed entry")
}

const sampleSearchFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <title>Attention Is All You Need</title>
    <summary>We propose the Transformer.</summary>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1810.04805v2</id>
    <title>BERT: Pre-training of Deep Bidirectional Transformers</title>
    <summary>We introduce BERT.</summary>
    <published>2018-10-11T00:50:01Z</published>
    <author><name>Jacob Devlin</name></author>
  </entry>
</feed>`

func TestArxivSearchBuildsQueryAndParsesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, `attention AND au:"Vaswani" AND cat:cs.CL`, q.Get("search_query"))
		assert.Equal(t, "5", q.Get("start"))
		assert.Equal(t, "20", q.Get("max_results"))
		assert.Equal(t, "submittedDate", q.Get("sortBy"))
		assert.Equal(t, "descending", q.Get("sortOrder"))
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(sampleSearchFeed))
	}))
	defer srv.Close()

	client := &ArxivClient{http: srv.Client()}
	results, err := client.searchFrom(context.Background(), srv.URL, SearchQuery{
		Text:       "attention",
		Author:     "Vaswani",
		Category:   "cs.CL",
		Start:      5,
		MaxResults: 20,
		SortBy:     "submittedDate",
		SortOrder:  "descending",
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "1706.03762v7", results[0].ArxivID)
	assert.Equal(t, "Attention Is All You Need", results[0].Title)
	assert.Equal(t, []string{"Ashish Vaswani"}, results[0].Authors)
	assert.Equal(t, "https://arxiv.org/pdf/1706.03762v7.pdf", results[0].PDFURL)
	assert.Equal(t, "1810.04805v2", results[1].ArxivID)
}

func TestArxivSearchZeroHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))
	defer srv.Close()

	client := &ArxivClient{http: srv.Client()}
	results, err := client.searchFrom(context.Background(), srv.URL, SearchQuery{Text: "nothing matches this"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestArxivSearchRejectsEmptyQuery(t *testing.T) {
	client := NewArxivClient()
	_, err := client.searchFrom(context.Background(), "http://unused.invalid", SearchQuery{Text: "   "})
	require.ErrorIs(t, err, ErrEmptySearch)
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name string
		q    SearchQuery
		want string
	}{
		{"free text only", SearchQuery{Text: "transformers"}, "transformers"},
		{"all fields", SearchQuery{Text: "nlp", Title: "attention", Author: "Vaswani", Abstract: "sequence", Category: "cs.CL"},
			`nlp AND ti:"attention" AND au:"Vaswani" AND abs:"sequence" AND cat:cs.CL`},
		{"empty", SearchQuery{}, ""},
		{"whitespace only", SearchQuery{Title: "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildSearchQuery(tt.q))
		})
	}
}

func TestArxivIDFromEntryURL(t *testing.T) {
	assert.Equal(t, "1706.03762v7", arxivIDFromEntryURL("http://arxiv.org/abs/1706.03762v7"))
	assert.Equal(t, "", arxivIDFromEntryURL("http://arxiv.org/junk/1706.03762"))
}

func TestPlainTextPreview(t *testing.T) {
	md := "# Heading\n\nSome **bold** text with a [link](https://example.com).\n\n```go\ncode block\n```\n\nTail."
	got := plainTextPreview(md)

	assert.Contains(t, got, "Heading")
	assert.Contains(t, got, "Some bold text with a link")
	assert.Contains(t, got, "Tail.")
	assert.NotContains(t, got, "code block")
	assert.NotContains(t, got, "#")
}

func TestPlainTextPreviewTruncates(t *testing.T) {
	md := strings.Repeat("word ", 200)
	got := plainTextPreview(md)
	assert.Len(t, []rune(got), previewMaxLength)
}

func TestDocIDForArxiv(t *testing.T) {
	assert.Equal(t, "arxiv:1706.03762", DocIDForArxiv("1706.03762"))
}

type fixedEmbedder struct{ dim int }

func (e fixedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, e.dim)
		vec[0] = 1
		out[i] = vec
	}
	return out, nil
}

func (e fixedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	vec[0] = 1
	return vec, nil
}

func (e fixedEmbedder) Dimensions() int { return e.dim }

func TestBuildRecordsDeterministicIDs(t *testing.T) {
	svc := &Service{embedder: fixedEmbedder{dim: 3}, logger: zap.NewNop()}
	page := 2
	extracted := &extract.Result{
		Markdown: "# Paper",
		Chunks: []extract.Chunk{
			{Index: 0, Text: "First chunk.", Headings: []string{"1 Introduction"}, Pages: []int{1}},
			{Index: 1, Text: "   ", Headings: nil},
			{Index: 2, Text: "Second chunk.", Headings: []string{"2 Methods"}, Pages: []int{2}},
		},
		Images: []extract.Image{
			{Filename: "pic1.png", DataBase64: "aGk=", Caption: "Figure 1", Page: &page, PictureNumber: 1},
			{Filename: "empty.png", DataBase64: "", Caption: "dropped"},
		},
	}
	meta := &ArxivMetadata{Title: "Paper", Authors: []string{"A. Author"}}

	records, imageCount, err := svc.buildRecords(context.Background(), "arxiv:2401.00001", meta, extracted)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 1, imageCount)

	// Blank chunks are skipped without leaving id gaps.
	assert.Equal(t, "arxiv:2401.00001::chunk::0000", records[0].ID)
	assert.Equal(t, "arxiv:2401.00001::chunk::0001", records[1].ID)
	assert.Equal(t, "arxiv:2401.00001::image::0000", records[2].ID)

	assert.Equal(t, models.ModalityText, records[0].Meta.Modality)
	assert.Equal(t, 1, records[1].Meta.ChunkIndex)
	assert.Equal(t, models.ModalityImage, records[2].Meta.Modality)
	require.NotNil(t, records[2].Meta.Page)
	assert.Equal(t, 2, *records[2].Meta.Page)

	for _, rec := range records {
		assert.Len(t, rec.Embedding, 3)
	}
}

func TestBuildRecordsEmptyExtraction(t *testing.T) {
	svc := &Service{embedder: fixedEmbedder{dim: 3}, logger: zap.NewNop()}
	records, imageCount, err := svc.buildRecords(context.Background(), "arxiv:x", &ArxivMetadata{Title: "T"}, &extract.Result{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, imageCount)
}

func TestDeleteCascadesVectors(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), []vectorstore.Record{
		{ID: "arxiv:a::chunk::0000", Embedding: []float32{1}, Meta: models.ChunkMetadata{DocID: "arxiv:a", Modality: models.ModalityText}},
		{ID: "arxiv:b::chunk::0000", Embedding: []float32{1}, Meta: models.ChunkMetadata{DocID: "arxiv:b", Modality: models.ModalityText}},
	}))

	err := store.DeleteWhere(context.Background(), vectorstore.Equals{Field: vectorstore.FieldDocID, Value: "arxiv:a"})
	require.NoError(t, err)

	remaining, err := store.Get(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "arxiv:b", remaining[0].Meta.DocID)
}
