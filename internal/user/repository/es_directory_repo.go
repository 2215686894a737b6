package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/divverma2003/convo-app/internal/directory"
	"github.com/divverma2003/convo-app/internal/user/domain"
	"github.com/divverma2003/convo-app/pkg/log"
)

// usersIndexMapping keeps id exact-match and gives name both full-text
// (word-prefix autocomplete) and keyword (sorting) forms.
const usersIndexMapping = `{
  "mappings": {
    "properties": {
      "id":    {"type": "keyword"},
      "name":  {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "image": {"type": "keyword", "index": false}
    }
  }
}`

// ESDirectoryRepository implements DirectoryIndex on Elasticsearch.
type ESDirectoryRepository struct {
	client *elasticsearch.Client
	index  string
}

// NewESDirectoryRepository creates a new Elasticsearch-backed directory index.
func NewESDirectoryRepository(client *elasticsearch.Client, index string) *ESDirectoryRepository {
	return &ESDirectoryRepository{client: client, index: index}
}

type esUserDoc struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// EnsureIndex creates the users index with its mapping when missing.
func (r *ESDirectoryRepository) EnsureIndex(ctx context.Context) error {
	res, err := r.client.Indices.Exists([]string{r.index}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = r.client.Indices.Create(
		r.index,
		r.client.Indices.Create.WithContext(ctx),
		r.client.Indices.Create.WithBody(strings.NewReader(usersIndexMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	// Another instance may have created it in between.
	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// Index writes or replaces the user document.
func (r *ESDirectoryRepository) Index(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(esUserDoc{ID: user.ID, Name: user.Name, Image: user.Image})
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(data),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(user.ID),
		r.client.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("failed to index user: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// Remove deletes the user document. A missing document is not an error.
func (r *ESDirectoryRepository) Remove(ctx context.Context, id string) error {
	res, err := r.client.Delete(r.index, id, r.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete user document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// Query runs a directory query as an Elasticsearch search.
func (r *ESDirectoryRepository) Query(ctx context.Context, q domain.DirectoryQuery) ([]domain.User, error) {
	body, err := esSearchBody(q)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var result esResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return decodeHits(ctx, result), nil
}

// decodeHits converts search hits to users. A hit whose source does not
// decode is logged and left out.
func decodeHits(ctx context.Context, result esResponse) []domain.User {
	users := make([]domain.User, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var doc esUserDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str("doc_id", hit.ID).Msg("skipping undecodable directory hit")
			continue
		}
		users = append(users, domain.User{ID: doc.ID, Name: doc.Name, Image: doc.Image})
	}
	return users
}

func esSearchBody(q domain.DirectoryQuery) (map[string]interface{}, error) {
	q.Normalize()

	query, err := esQuery(q.Filter)
	if err != nil {
		return nil, err
	}

	sort := make([]interface{}, 0, len(q.Sort)+1)
	sortedByID := false
	for _, s := range q.Sort {
		field, err := esSortField(s.Field)
		if err != nil {
			return nil, err
		}
		order := "asc"
		if s.Direction == directory.Descending {
			order = "desc"
		}
		sort = append(sort, map[string]interface{}{field: map[string]string{"order": order}})
		sortedByID = sortedByID || s.Field == directory.FieldID
	}
	if !sortedByID {
		sort = append(sort, map[string]interface{}{"id": map[string]string{"order": "asc"}})
	}

	return map[string]interface{}{
		"from":    q.Offset,
		"size":    q.Limit,
		"query":   query,
		"sort":    sort,
		"_source": []string{"id", "name", "image"},
	}, nil
}

func esSortField(f directory.Field) (string, error) {
	switch f {
	case directory.FieldID:
		return "id", nil
	case directory.FieldName:
		return "name.raw", nil
	default:
		return "", fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, f)
	}
}

func esQuery(expr directory.FilterExpr) (map[string]interface{}, error) {
	switch f := expr.(type) {
	case nil:
		return map[string]interface{}{"match_all": map[string]interface{}{}}, nil
	case directory.Equals:
		field, err := esSortField(f.Field)
		return map[string]interface{}{"term": map[string]interface{}{field: f.Value}}, err
	case directory.NotEquals:
		field, err := esSortField(f.Field)
		return mustNot(map[string]interface{}{"term": map[string]interface{}{field: f.Value}}), err
	case directory.NotIn:
		field, err := esSortField(f.Field)
		if len(f.Values) == 0 {
			return map[string]interface{}{"match_all": map[string]interface{}{}}, err
		}
		return mustNot(map[string]interface{}{"terms": map[string]interface{}{field: f.Values}}), err
	case directory.Autocomplete:
		prefix := strings.TrimSpace(f.Prefix)
		if _, err := esSortField(f.Field); err != nil {
			return nil, err
		}
		if prefix == "" {
			// An empty prefix matches every entry, as in the SQL backend.
			return map[string]interface{}{"match_all": map[string]interface{}{}}, nil
		}
		switch f.Field {
		case directory.FieldName:
			return map[string]interface{}{"match_phrase_prefix": map[string]interface{}{"name": prefix}}, nil
		case directory.FieldID:
			return map[string]interface{}{"prefix": map[string]interface{}{
				"id": map[string]interface{}{"value": prefix, "case_insensitive": true},
			}}, nil
		default:
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, f.Field)
		}
	case directory.Or:
		clauses, err := esList(f)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"bool": map[string]interface{}{
			"should":               clauses,
			"minimum_should_match": 1,
		}}, nil
	case directory.And:
		clauses, err := esList(f)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"bool": map[string]interface{}{"filter": clauses}}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported filter %T", ErrInvalidQuery, expr)
	}
}

func mustNot(q map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"bool": map[string]interface{}{"must_not": []interface{}{q}}}
}

func esList(list []directory.FilterExpr) ([]interface{}, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: empty clause list", ErrInvalidQuery)
	}
	out := make([]interface{}, 0, len(list))
	for _, item := range list {
		q, err := esQuery(item)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// esResponse is the generic Elasticsearch search response structure.
type esResponse struct {
	Hits struct {
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}
