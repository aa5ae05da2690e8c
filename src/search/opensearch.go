package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go"
	"github.com/opensearch-project/opensearch-go/opensearchapi"

	m "linked_friend_services/src/models"
)

const indexMapping = `{
	"settings": {"index": {"number_of_shards": 1, "number_of_replicas": 1}},
	"mappings": {
		"properties": {
			"id":        {"type": "keyword"},
			"email":     {"type": "text", "fields": {"raw": {"type": "keyword"}}},
			"firstName": {"type": "text"},
			"lastName":  {"type": "text"},
			"fullName":  {"type": "search_as_you_type"},
			"jobTitle":  {"type": "text"},
			"location":  {"type": "text"}
		}
	}
}`

type userDocument struct {
	m.Profile
	FullName string `json:"fullName"`
}

// OpenSearchIndex keeps one document per user, keyed by user id.
type OpenSearchIndex struct {
	client *opensearch.Client
	index  string
}

func NewOpenSearchIndex(client *opensearch.Client, index string) *OpenSearchIndex {
	return &OpenSearchIndex{client: client, index: index}
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (i *OpenSearchIndex) EnsureIndex(ctx context.Context) error {
	exists, err := opensearchapi.IndicesExistsRequest{Index: []string{i.index}}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("check index %s: %w", i.index, err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	res, err := opensearchapi.IndicesCreateRequest{
		Index: i.index,
		Body:  bytes.NewReader([]byte(indexMapping)),
	}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("create index %s: %w", i.index, err)
	}
	return checkResponse("create index", res)
}

func (i *OpenSearchIndex) IndexUser(ctx context.Context, profile m.Profile) error {
	doc := userDocument{Profile: profile, FullName: profile.FirstName + " " + profile.LastName}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	res, err := opensearchapi.IndexRequest{
		Index:      i.index,
		DocumentID: profile.ID.String(),
		Body:       bytes.NewReader(data),
	}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("index user %s: %w", profile.ID, err)
	}
	return checkResponse("index user", res)
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source userDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (i *OpenSearchIndex) Search(ctx context.Context, query string, exclude uuid.UUID, limit int) ([]m.Profile, error) {
	body := map[string]any{
		"size": limit,
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  query,
						"type":   "bool_prefix",
						"fields": []string{"fullName", "fullName._2gram", "fullName._3gram", "firstName", "lastName", "jobTitle", "location", "email"},
					},
				},
				"must_not": map[string]any{
					"term": map[string]any{"id": exclude.String()},
				},
			},
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	res, err := opensearchapi.SearchRequest{
		Index: []string{i.index},
		Body:  bytes.NewReader(data),
	}.Do(ctx, i.client)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search users: %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	profiles := make([]m.Profile, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		profiles = append(profiles, hit.Source.Profile)
	}
	return profiles, nil
}

func checkResponse(op string, res *opensearchapi.Response) error {
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%s: %s: %s", op, res.Status(), bytes.TrimSpace(msg))
	}
	return nil
}
