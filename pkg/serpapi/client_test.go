package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
  "search_metadata": {"status": "Success"},
  "organic_results": [
    {
      "position": 1,
      "title": "Jane Doe - VP Marketing - Acme SaaS",
      "link": "https://www.linkedin.com/in/janedoe",
      "displayed_link": "linkedin.com › in › janedoe",
      "snippet": "VP Marketing at Acme SaaS. Reach me at jane.doe@acmesaas.com",
      "rich_snippet": {"top": {"extensions": ["San Francisco", "500+ connections"]}}
    },
    {
      "position": 2,
      "title": "Acme SaaS Leadership Team",
      "link": "https://acmesaas.com/about/team",
      "snippet": "Meet the people behind Acme.",
      "rich_snippet": {"extensions": ["Team"], "bottom": {"extensions": [" ", "Since 2015"]}}
    },
    "not an object",
    {"title": "No link result"}
  ]
}`

func decode(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func TestParseOrganicResults(t *testing.T) {
	got := ParseOrganicResults(decode(t, sampleResponse), 0)

	require.Len(t, got, 3)
	assert.Equal(t, OrganicResult{
		Position:      1,
		Title:         "Jane Doe - VP Marketing - Acme SaaS",
		Link:          "https://www.linkedin.com/in/janedoe",
		Snippet:       "VP Marketing at Acme SaaS. Reach me at jane.doe@acmesaas.com",
		DisplayedLink: "linkedin.com › in › janedoe",
		Extensions:    []string{"San Francisco", "500+ connections"},
	}, got[0])
	assert.Equal(t, []string{"Team", "Since 2015"}, got[1].Extensions)
	assert.Equal(t, "No link result", got[2].Title)
	assert.Empty(t, got[2].Link)
}

func TestParseOrganicResults_Limit(t *testing.T) {
	got := ParseOrganicResults(decode(t, sampleResponse), 1)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Position)
}

func TestParseOrganicResults_Missing(t *testing.T) {
	assert.Empty(t, ParseOrganicResults(map[string]interface{}{}, 6))
	assert.Empty(t, ParseOrganicResults(nil, 6))
}

func TestClient_Search(t *testing.T) {
	c := NewClient("test-key", WithParams(map[string]string{"gl": "uk"})).(*client)
	c.search = func(params map[string]string, apiKey string) (map[string]interface{}, error) {
		assert.Equal(t, "test-key", apiKey)
		assert.Equal(t, "marketing managers saas", params["q"])
		assert.Equal(t, "6", params["num"])
		assert.Equal(t, "uk", params["gl"])
		assert.Equal(t, "google", params["engine"])
		return decode(t, sampleResponse), nil
	}

	got, err := c.Search(context.Background(), "marketing managers saas", 6)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	// Base params are not mutated by a search.
	assert.NotContains(t, c.params, "q")
}

func TestClient_SearchError(t *testing.T) {
	c := NewClient("test-key").(*client)
	c.search = func(map[string]string, string) (map[string]interface{}, error) {
		return nil, errors.New("Invalid API key. Your API key should be here: https://serpapi.com/manage-api-key")
	}

	_, err := c.Search(context.Background(), "q", 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestClient_SearchMissingKey(t *testing.T) {
	_, err := NewClient("").Search(context.Background(), "q", 6)
	require.Error(t, err)
}

func TestClient_SearchCanceled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	c := NewClient("test-key").(*client)
	c.search = func(map[string]string, string) (map[string]interface{}, error) {
		<-release
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Search(ctx, "q", 6)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
