package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type PrometheusResponseMetric struct {
	App       string `json:"app"`
	Country   string `json:"country"`
	Crawler   string `json:"crawler"`
	Endpoint  string `json:"endpoint"`
	Latitude  string `json:"lat"`
	Longitude string `json:"lon"`
	Method    string `json:"method"`
	Status    string `json:"status"`
	IP        string `json:"ip"`
}

type PrometheusResponseResult struct {
	Metric PrometheusResponseMetric `json:"metric"`
	Value  []interface{}            `json:"value"`
}

type PrometheusResponseData struct {
	Result []PrometheusResponseResult `json:"result"`
}

type PrometheusResponse struct {
	Status string                 `json:"status"`
	Data   PrometheusResponseData `json:"data"`
}

// Count returns the sample value of r as a whole number.
func (r PrometheusResponseResult) Count() (float64, bool) {
	if len(r.Value) < 2 {
		return 0, false
	}
	s, ok := r.Value[1].(string)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Querier reads instant vectors back from a Prometheus server.
type Querier struct {
	client *resty.Client
}

func NewQuerier(host, username, password string) *Querier {
	client := resty.New().
		SetBaseURL(strings.TrimRight(host, "/")).
		SetTimeout(10 * time.Second)
	if username != "" || password != "" {
		client.SetBasicAuth(username, password)
	}
	return &Querier{client: client}
}

// Query fetches metric{app="<app>"}.
func (q *Querier) Query(ctx context.Context, metric, app string) (*PrometheusResponse, error) {
	response, err := q.client.R().
		SetContext(ctx).
		SetQueryParam("query", fmt.Sprintf(`%s{app="%s"}`, metric, app)).
		Get("/api/v1/query")
	if err != nil {
		return nil, err
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("prometheus query %s: status %d", metric, response.StatusCode())
	}

	r := &PrometheusResponse{}
	if err := json.Unmarshal(response.Body(), r); err != nil {
		return nil, fmt.Errorf("decode prometheus response: %w", err)
	}

	return r, nil
}
