package search

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bastiangx/bookserve/pkg/catalog"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/charmbracelet/log"
)

// textAnalyzer tokenizes and lower cases without stop words or stemming, so
// "of" in "A Tale of Two Cities" stays searchable.
const textAnalyzer = "book_text"

// bookDoc is the indexed form of a catalog entry.
type bookDoc struct {
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	ISBN     string  `json:"isbn"`
	Category string  `json:"category"`
	Order    float64 `json:"order"`
}

// Index is an in-memory Searcher over a catalog snapshot, backed by Bleve.
// Rebuild swaps in a fresh index whenever the snapshot changes.
type Index struct {
	mu       sync.RWMutex
	index    bleve.Index
	snap     *catalog.Snapshot
	maxQuery int
}

// NewIndex builds an index over snap. maxQuery caps the query length in
// characters; zero disables the check.
func NewIndex(snap *catalog.Snapshot, maxQuery int) (*Index, error) {
	idx := &Index{maxQuery: maxQuery}
	if err := idx.Rebuild(snap); err != nil {
		return nil, err
	}
	return idx, nil
}

func newMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(textAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}

	docMapping := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	text.Analyzer = textAnalyzer
	docMapping.AddFieldMappingsAt("title", text)
	docMapping.AddFieldMappingsAt("author", text)

	keyword := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("isbn", keyword)
	docMapping.AddFieldMappingsAt("category", keyword)

	docMapping.AddFieldMappingsAt("order", bleve.NewNumericFieldMapping())

	im.DefaultMapping = docMapping
	return im, nil
}

// Rebuild indexes every entry of snap into a new in-memory index and replaces
// the current one.
func (i *Index) Rebuild(snap *catalog.Snapshot) error {
	im, err := newMapping()
	if err != nil {
		return fmt.Errorf("failed to build index mapping: %w", err)
	}
	fresh, err := bleve.NewMemOnly(im)
	if err != nil {
		return fmt.Errorf("failed to create search index: %w", err)
	}

	batch := fresh.NewBatch()
	for pos, e := range snap.Entries() {
		doc := bookDoc{
			Title:    e.Title,
			Author:   e.Author,
			ISBN:     e.Code,
			Category: e.Category,
			Order:    float64(pos),
		}
		if err := batch.Index(e.ID, doc); err != nil {
			_ = fresh.Close()
			return fmt.Errorf("failed to index entry %s: %w", e.ID, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		_ = fresh.Close()
		return fmt.Errorf("failed to index catalog: %w", err)
	}

	i.mu.Lock()
	old := i.index
	i.index = fresh
	i.snap = snap
	i.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			log.Warnf("Failed to close previous search index: %v", err)
		}
	}
	log.Debugf("Search index rebuilt with %d entries", snap.Len())
	return nil
}

// Search runs req against the index. Empty text lists the whole catalog in
// snapshot order.
func (i *Index) Search(ctx context.Context, req Request) (*Page, error) {
	req = req.Normalize()
	if i.maxQuery > 0 && len([]rune(req.Text)) > i.maxQuery {
		return nil, fmt.Errorf("%w: %d characters (max %d)", ErrQueryTooLong, len([]rune(req.Text)), i.maxQuery)
	}

	q, err := buildQuery(req)
	if err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.index == nil {
		return nil, ErrIndexClosed
	}

	sr := bleve.NewSearchRequestOptions(q, req.PageSize, Offset(req.Page, req.PageSize), false)
	if req.Text == "" {
		sr.SortBy([]string{"order"})
	} else {
		sr.SortBy([]string{"-_score", "order"})
	}

	res, err := i.index.SearchInContext(ctx, sr)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	entries := make([]*catalog.Entry, 0, len(res.Hits))
	for _, hit := range res.Hits {
		e, ok := i.snap.ByID(hit.ID)
		if !ok {
			continue
		}
		entries = append(entries, e)
	}

	log.Debugf("Search %s:%q page %d: %d of %d hits", req.Field, req.Text, req.Page, len(entries), res.Total)
	return NewPage(req, entries, int(res.Total)), nil
}

// Close releases the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.index == nil {
		return nil
	}
	err := i.index.Close()
	i.index = nil
	return err
}

func buildQuery(req Request) (blevequery.Query, error) {
	if req.Text == "" {
		return bleve.NewMatchAllQuery(), nil
	}

	switch req.Field {
	case FieldTitle, FieldAuthor:
		return textQuery(string(req.Field), req.Text), nil
	case FieldISBN:
		return codeQuery(req.Text), nil
	case FieldAll:
		return bleve.NewDisjunctionQuery(
			textQuery(string(FieldTitle), req.Text),
			textQuery(string(FieldAuthor), req.Text),
			codeQuery(req.Text),
		), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, req.Field)
}

// textQuery matches every term of text in field, either as a whole word or
// as the start of one, so partially typed words still find results.
func textQuery(field, text string) blevequery.Query {
	terms := strings.Fields(strings.ToLower(text))
	parts := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		match := bleve.NewMatchQuery(term)
		match.SetField(field)
		prefix := bleve.NewPrefixQuery(term)
		prefix.SetField(field)
		parts = append(parts, bleve.NewDisjunctionQuery(match, prefix))
	}
	return bleve.NewConjunctionQuery(parts...)
}

// codeQuery matches codes containing text, case-sensitively. Text made only
// of wildcard characters matches nothing.
func codeQuery(text string) blevequery.Query {
	cleaned := strings.NewReplacer("*", "", "?", "", " ", "").Replace(text)
	if cleaned == "" {
		return bleve.NewMatchNoneQuery()
	}
	wq := bleve.NewWildcardQuery("*" + cleaned + "*")
	wq.SetField(string(FieldISBN))
	return wq
}
