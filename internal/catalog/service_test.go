package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient serves canned data objects keyed by a predicate over the
// query document, re-encoded through JSON the same way the real client
// decodes them.
type fakeClient struct {
	calls int
	serve func(query string, variables map[string]any) (any, error)
}

func (f *fakeClient) Do(ctx context.Context, query string, variables map[string]any, out any) error {
	f.calls++
	data, err := f.serve(query, variables)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func productNode(id, handle, productType string, tags []string, featured bool) map[string]any {
	if featured {
		tags = append(tags, "featured")
	}
	return map[string]any{
		"id":          id,
		"handle":      handle,
		"title":       handle,
		"productType": productType,
		"tags":        tags,
		"images":      map[string]any{"edges": []any{}},
		"variants": map[string]any{"edges": []any{
			map[string]any{"node": map[string]any{
				"id":               id + "-v1",
				"availableForSale": true,
				"price":            map[string]any{"amount": "100.00", "currencyCode": "EUR"},
				"selectedOptions":  []any{map[string]any{"name": "Size", "value": "M"}},
			}},
		}},
	}
}

func listData(nodes ...map[string]any) map[string]any {
	edges := make([]any, 0, len(nodes))
	for _, n := range nodes {
		edges = append(edges, map[string]any{"node": n})
	}
	return map[string]any{"products": map[string]any{"edges": edges}}
}

func TestListFiltersComposeAND(t *testing.T) {
	fake := &fakeClient{serve: func(query string, variables map[string]any) (any, error) {
		return listData(
			productNode("gid://shopify/Product/1", "overcoat", "Coat", nil, true),
			productNode("gid://shopify/Product/2", "parka", "Coat", nil, false),
			productNode("gid://shopify/Product/3", "oxford", "Shirt", nil, true),
		), nil
	}}
	svc := NewService(fake, nil, nil)

	all, err := svc.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	coats, err := svc.List(context.Background(), Filter{Category: CategoryCoats})
	require.NoError(t, err)
	assert.Len(t, coats, 2)

	featuredCoats, err := svc.List(context.Background(), Filter{Category: CategoryCoats, FeaturedOnly: true})
	require.NoError(t, err)
	require.Len(t, featuredCoats, 1)
	assert.Equal(t, "overcoat", featuredCoats[0].Slug)
}

func TestListCategoryAlwaysValid(t *testing.T) {
	fake := &fakeClient{serve: func(query string, variables map[string]any) (any, error) {
		return listData(
			productNode("gid://shopify/Product/1", "mystery-item", "Gadget", []string{"drop"}, false),
		), nil
	}}
	svc := NewService(fake, nil, nil)

	products, err := svc.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, products[0].Category.Valid())
	assert.Equal(t, CategoryShirts, products[0].Category)
}

func TestGetBySlugNotFoundIsNil(t *testing.T) {
	fake := &fakeClient{serve: func(query string, variables map[string]any) (any, error) {
		return map[string]any{"product": nil}, nil
	}}
	svc := NewService(fake, nil, nil)

	p, err := svc.GetBySlug(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestGetByIDNormalizesGID(t *testing.T) {
	var gotID string
	fake := &fakeClient{serve: func(query string, variables map[string]any) (any, error) {
		gotID, _ = variables["id"].(string)
		return map[string]any{"product": productNode(gotID, "overcoat", "Coat", nil, false)}, nil
	}}
	svc := NewService(fake, nil, nil)

	p, err := svc.GetByID(context.Background(), "12345")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "gid://shopify/Product/12345", gotID)

	_, err = svc.GetByID(context.Background(), "gid://shopify/Product/999")
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Product/999", gotID)
}

func TestSearchBuildsWildcardQuery(t *testing.T) {
	var gotQuery string
	fake := &fakeClient{serve: func(query string, variables map[string]any) (any, error) {
		gotQuery, _ = variables["query"].(string)
		return listData(), nil
	}}
	svc := NewService(fake, nil, nil)

	_, err := svc.Search(context.Background(), "wool")
	require.NoError(t, err)
	assert.Equal(t, "title:*wool* OR description:*wool*", gotQuery)
}
