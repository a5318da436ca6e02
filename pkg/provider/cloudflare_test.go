package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/cloudflare/cloudflare-go/v2/option"
	"github.com/stretchr/testify/assert"
)

// newCloudflareTestServer serves a single page of A records for zone1 and records the list
// queries it receives.
func newCloudflareTestServer(t *testing.T, records []map[string]interface{}, queries *[]url.Values) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/zones/zone1/dns_records" {
			http.NotFound(w, r)
			return
		}
		*queries = append(*queries, r.URL.Query())

		page := records
		if p := r.URL.Query().Get("page"); p != "" && p != "1" {
			page = nil
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":     true,
			"errors":      []interface{}{},
			"messages":    []interface{}{},
			"result":      page,
			"result_info": map[string]interface{}{"page": 1, "per_page": 100, "count": len(page), "total_count": len(records)},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCloudflareFindRecordFiltersByName(t *testing.T) {
	assert := assert.New(t)

	var queries []url.Values
	srv := newCloudflareTestServer(t, []map[string]interface{}{
		{"id": "rec1", "type": "A", "name": "Home.example.com", "content": "1.2.3.4", "ttl": 3600},
	}, &queries)

	p := newCloudflareProvider("example.com", 3600,
		option.WithAPIToken("token"), option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))

	id, content, err := p.findRecord(context.Background(), "zone1", "home.example.com")
	assert.Nil(err)
	assert.Equal("rec1", id)
	assert.Equal("1.2.3.4", content)

	if assert.NotEmpty(queries) {
		assert.Equal("home.example.com", queries[0].Get("name"))
		assert.Equal("A", queries[0].Get("type"))
	}
}

func TestCloudflareFindRecordIgnoresOtherNames(t *testing.T) {
	assert := assert.New(t)

	var queries []url.Values
	srv := newCloudflareTestServer(t, []map[string]interface{}{
		{"id": "rec2", "type": "A", "name": "cabin.example.com", "content": "5.6.7.8", "ttl": 3600},
	}, &queries)

	p := newCloudflareProvider("example.com", 3600,
		option.WithAPIToken("token"), option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))

	id, content, err := p.findRecord(context.Background(), "zone1", "home.example.com")
	assert.Nil(err)
	assert.Empty(id)
	assert.Empty(content)
}
