package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type Client struct {
	BaseURL     string
	AdminSecret string
	HTTP        *http.Client
}

func New(baseURL, adminSecret string) *Client {
	if baseURL == "" {
		baseURL = "https://api.civicpulse.example.com"
	}
	return &Client{BaseURL: baseURL, AdminSecret: adminSecret, HTTP: http.DefaultClient}
}

func (c *Client) headers(req *http.Request) {
	if c.AdminSecret != "" {
		req.Header.Set("X-Admin-Secret", c.AdminSecret)
	}
}

func (c *Client) Reports(params map[string]string) (*http.Response, error) {
	u, _ := url.Parse(c.BaseURL + "/v1/reports")
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	req, _ := http.NewRequest("GET", u.String(), nil)
	c.headers(req)
	return c.HTTP.Do(req)
}

func (c *Client) SubmitReport(title, description, reportType string, lat, lng float64) (map[string]interface{}, error) {
	body := fmt.Sprintf(`{"title":%q,"description":%q,"report_type":%q,"location":{"latitude":%v,"longitude":%v}}`,
		title, description, reportType, lat, lng)
	req, _ := http.NewRequest("POST", c.BaseURL+"/v1/reports", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.headers(req)
	return c.doJSON(req)
}

func (c *Client) NearbyReports(lat, lng, radiusMeters float64) (map[string]interface{}, error) {
	u := fmt.Sprintf("%s/v1/reports/nearby?lat=%v&lng=%v&radius=%v", c.BaseURL, lat, lng, radiusMeters)
	req, _ := http.NewRequest("GET", u, nil)
	c.headers(req)
	return c.doJSON(req)
}

func (c *Client) Predictions(reportID string) (map[string]interface{}, error) {
	req, _ := http.NewRequest("GET", c.BaseURL+"/v1/reports/"+url.PathEscape(reportID)+"/predictions", nil)
	c.headers(req)
	return c.doJSON(req)
}

func (c *Client) RiskAreas() (map[string]interface{}, error) {
	req, _ := http.NewRequest("GET", c.BaseURL+"/v1/insights/risk-areas", nil)
	c.headers(req)
	return c.doJSON(req)
}

func (c *Client) Stats() (map[string]interface{}, error) {
	req, _ := http.NewRequest("GET", c.BaseURL+"/v1/admin/stats", nil)
	c.headers(req)
	return c.doJSON(req)
}

func (c *Client) TrainModel() (map[string]interface{}, error) {
	req, _ := http.NewRequest("POST", c.BaseURL+"/v1/admin/model/train", nil)
	c.headers(req)
	return c.doJSON(req)
}

func (c *Client) doJSON(req *http.Request) (map[string]interface{}, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("api error: %s", resp.Status)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
