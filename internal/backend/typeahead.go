// internal/backend/typeahead.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "pricelens/internal/common/errors"
	"pricelens/internal/common/logger"
	"pricelens/internal/common/metrics"
	"pricelens/internal/common/observability"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.opentelemetry.io/otel/attribute"
)

const maxTypeaheadSize = 100

// ElasticTypeahead serves price-less search hits from an Elasticsearch
// index. It is an alternative to Client.Search for deployments that index
// the catalog themselves.
type ElasticTypeahead struct {
	es     *elasticsearch.Client
	index  string
	obs    *observability.Observability
	logger logger.Logger
}

func NewElasticTypeahead(es *elasticsearch.Client, index string, obs *observability.Observability, log logger.Logger) *ElasticTypeahead {
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &ElasticTypeahead{
		es:     es,
		index:  index,
		obs:    obs,
		logger: logger.ForComponent(log, "typeahead"),
	}
}

func buildTypeaheadQuery(req SearchRequest) map[string]interface{} {
	must := []interface{}{
		map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  strings.TrimSpace(req.Query),
				"fields": []string{"name^3", "category"},
				"type":   "bool_prefix",
			},
		},
	}
	filter := []interface{}{}
	if req.CategorySlug != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"categorySlug": req.CategorySlug},
		})
	}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
	}
}

type typeaheadResult struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source rawHit `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search returns one page of hits. HasMore is derived from the total count.
func (t *ElasticTypeahead) Search(ctx context.Context, req SearchRequest) (HitPage, error) {
	size := req.PageSize
	if size < 1 || size > maxTypeaheadSize {
		size = 20
	}
	from := (maxInt(req.Page, 1) - 1) * size

	ctx, span := t.obs.StartSpan(ctx, "backend."+EndpointTypeahead,
		attribute.String("es.index", t.index),
		attribute.Int("es.from", from),
	)
	defer span.End()

	start := time.Now()
	outcome := "ok"
	defer func() {
		metrics.BackendRequests.WithLabelValues(EndpointTypeahead, outcome).Inc()
		metrics.BackendRequestDuration.WithLabelValues(EndpointTypeahead).Observe(time.Since(start).Seconds())
		t.obs.RecordFetch(ctx, EndpointTypeahead, outcome, time.Since(start))
	}()

	body, err := json.Marshal(buildTypeaheadQuery(req))
	if err != nil {
		outcome = "error"
		return HitPage{}, err
	}
	esReq := esapi.SearchRequest{
		Index: []string{t.index},
		Body:  bytes.NewReader(body),
		From:  &from,
		Size:  &size,
	}

	res, err := esReq.Do(ctx, t.es)
	if err != nil {
		if ctx.Err() != nil {
			outcome = "aborted"
			return HitPage{}, apperrors.Classify(ctx.Err())
		}
		outcome = "error"
		return HitPage{}, apperrors.NewNetworkFailureError(EndpointTypeahead, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		outcome = fmt.Sprintf("status_%dxx", res.StatusCode/100)
		if res.StatusCode == 404 {
			return HitPage{}, apperrors.NewNotFoundError("index " + t.index)
		}
		return HitPage{}, apperrors.NewBackendStatusError(EndpointTypeahead, res.StatusCode)
	}

	var r typeaheadResult
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		outcome = "malformed"
		return HitPage{}, apperrors.NewMalformedDataError(EndpointTypeahead, err.Error())
	}

	raw := make([]rawHit, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		raw = append(raw, h.Source)
	}
	more := from+len(r.Hits.Hits) < r.Hits.Total.Value
	t.logger.Debug("typeahead search", map[string]interface{}{
		"query": req.Query,
		"from":  from,
		"hits":  len(raw),
		"total": r.Hits.Total.Value,
	})
	return HitPage{Hits: toHits(raw), HasMore: &more, Received: len(raw)}, nil
}
