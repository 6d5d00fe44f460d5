package library

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	arxivAPI     = "https://export.arxiv.org/api/query"
	arxivPDFBase = "https://arxiv.org/pdf"
	userAgent    = "paperlens-core/1.0 (+https://github.com/paperlens/core)"

	maxPDFBytes = 64 << 20
)

// ArxivMetadata is the subset of an arXiv Atom entry the library keeps.
type ArxivMetadata struct {
	Title     string
	Summary   string
	Published string
	Authors   []string
}

// ArxivClient fetches paper metadata and PDFs from the public arXiv API.
type ArxivClient struct {
	http *http.Client
}

func NewArxivClient() *ArxivClient {
	return &ArxivClient{http: &http.Client{Timeout: 60 * time.Second}}
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

// Metadata fetches title, abstract, publication date, and authors for an
// arXiv id. A missing or malformed feed entry is an error: ingestion wants
// real catalog metadata, not placeholders.
func (c *ArxivClient) Metadata(ctx context.Context, arxivID string) (*ArxivMetadata, error) {
	endpoint := arxivAPI + "?" + url.Values{"id_list": {arxivID}}.Encode()
	return c.metadataFrom(ctx, endpoint, arxivID)
}

func (c *ArxivClient) metadataFrom(ctx context.Context, endpoint, arxivID string) (*ArxivMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/atom+xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv metadata request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv metadata request: unexpected status %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode arxiv feed: %w", err)
	}
	if len(feed.Entries) == 0 {
		return nil, fmt.Errorf("arxiv id %s: no feed entry", arxivID)
	}

	entry := feed.Entries[0]
	meta := &ArxivMetadata{
		Title:     collapseWhitespace(entry.Title),
		Summary:   collapseWhitespace(entry.Summary),
		Published: strings.TrimSpace(entry.Published),
	}
	for _, author := range entry.Authors {
		if name := strings.TrimSpace(author.Name); name != "" {
			meta.Authors = append(meta.Authors, name)
		}
	}
	if meta.Title == "" {
		return nil, fmt.Errorf("arxiv id %s: entry has no title", arxivID)
	}
	return meta, nil
}

// SearchQuery is a paper-discovery request against the arXiv catalog. Field
// terms compile into arXiv's query syntax (ti:"...", au:"...", abs:"...",
// cat:...) joined with AND.
type SearchQuery struct {
	Text       string
	Title      string
	Author     string
	Abstract   string
	Category   string
	Start      int
	MaxResults int
	SortBy     string // relevance | lastUpdatedDate | submittedDate
	SortOrder  string // ascending | descending
}

// SearchResult is one catalog hit.
type SearchResult struct {
	ArxivID   string   `json:"arxiv_id"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Published string   `json:"published"`
	Authors   []string `json:"authors"`
	PDFURL    string   `json:"pdf_url"`
}

const (
	searchDefaultResults = 10
	searchMaxResults     = 200
)

// ErrEmptySearch is returned when no search term was given.
var ErrEmptySearch = errors.New("arxiv search needs at least one term")

// Search queries the arXiv catalog and returns parsed entries. An empty feed
// is a valid zero-hit result, not an error.
func (c *ArxivClient) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	return c.searchFrom(ctx, arxivAPI, q)
}

func (c *ArxivClient) searchFrom(ctx context.Context, base string, q SearchQuery) ([]SearchResult, error) {
	query := buildSearchQuery(q)
	if query == "" {
		return nil, ErrEmptySearch
	}
	if q.Start < 0 {
		q.Start = 0
	}
	if q.MaxResults <= 0 {
		q.MaxResults = searchDefaultResults
	}
	if q.MaxResults > searchMaxResults {
		q.MaxResults = searchMaxResults
	}

	params := url.Values{
		"search_query": {query},
		"start":        {strconv.Itoa(q.Start)},
		"max_results":  {strconv.Itoa(q.MaxResults)},
	}
	if q.SortBy != "" {
		params.Set("sortBy", q.SortBy)
	}
	if q.SortOrder != "" {
		params.Set("sortOrder", q.SortOrder)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/atom+xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv search request: unexpected status %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode arxiv feed: %w", err)
	}

	results := make([]SearchResult, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		id := arxivIDFromEntryURL(entry.ID)
		if id == "" {
			continue
		}
		result := SearchResult{
			ArxivID:   id,
			Title:     collapseWhitespace(entry.Title),
			Summary:   collapseWhitespace(entry.Summary),
			Published: strings.TrimSpace(entry.Published),
			PDFURL:    PDFURL(id),
		}
		for _, author := range entry.Authors {
			if name := strings.TrimSpace(author.Name); name != "" {
				result.Authors = append(result.Authors, name)
			}
		}
		results = append(results, result)
	}
	return results, nil
}

func buildSearchQuery(q SearchQuery) string {
	var parts []string
	if s := strings.TrimSpace(q.Text); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(q.Title); s != "" {
		parts = append(parts, fmt.Sprintf("ti:%q", s))
	}
	if s := strings.TrimSpace(q.Author); s != "" {
		parts = append(parts, fmt.Sprintf("au:%q", s))
	}
	if s := strings.TrimSpace(q.Abstract); s != "" {
		parts = append(parts, fmt.Sprintf("abs:%q", s))
	}
	if s := strings.TrimSpace(q.Category); s != "" {
		parts = append(parts, "cat:"+s)
	}
	return strings.Join(parts, " AND ")
}

// arxivIDFromEntryURL extracts the versioned id from an Atom entry id like
// http://arxiv.org/abs/2101.00001v2.
func arxivIDFromEntryURL(entryURL string) string {
	_, id, found := strings.Cut(entryURL, "/abs/")
	if !found {
		return ""
	}
	return strings.TrimSpace(id)
}

// DownloadPDF fetches the paper's PDF, following arXiv's redirect chain.
func (c *ArxivClient) DownloadPDF(ctx context.Context, arxivID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%s.pdf", arxivPDFBase, arxivID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv pdf request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv pdf request: unexpected status %d", resp.StatusCode)
	}

	pdf, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read arxiv pdf: %w", err)
	}
	if len(pdf) > maxPDFBytes {
		return nil, fmt.Errorf("arxiv pdf exceeds %d byte limit", maxPDFBytes)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("arxiv id %s: empty pdf", arxivID)
	}
	return pdf, nil
}

// PDFURL is the canonical public link for a paper's PDF.
func PDFURL(arxivID string) string {
	return fmt.Sprintf("%s/%s.pdf", arxivPDFBase, arxivID)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
