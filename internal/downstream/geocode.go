package downstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// GeocodeClient resolves coordinates to a human-readable address. It is
// consumed opportunistically: callers must treat any failure as "no address"
// and proceed with raw coordinates, never blocking the primary operation.
type GeocodeClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewGeocodeClient(baseURL string) *GeocodeClient {
	return &GeocodeClient{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: 3 * time.Second,
		},
	}
}

type reverseGeocodeResponse struct {
	DisplayName string `json:"display_name"`
}

// ReverseGeocode returns the display address for the coordinates, or an error
// the caller is expected to swallow.
func (c *GeocodeClient) ReverseGeocode(ctx context.Context, lat, lon string) (string, error) {
	q := url.Values{
		"format": {"json"},
		"lat":    {lat},
		"lon":    {lon},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "relief-gateway")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoder status %d", resp.StatusCode)
	}

	var body reverseGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.DisplayName == "" {
		return "", fmt.Errorf("geocoder returned empty address")
	}
	return body.DisplayName, nil
}

// FallbackAddress is the coordinate-string address used when reverse
// geocoding is unavailable.
func FallbackAddress(lat, lon string) string {
	return lat + ", " + lon
}
