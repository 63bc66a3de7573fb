package nominatim

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/nandanugg/spotwatch/module/core/domain"
	"github.com/nandanugg/spotwatch/module/core/internal/repository/geocoder"
)

var _ geocoder.ReverseGeocoder = (*Client)(nil)

const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// The public instance allows one request per second per client.
var defaultRate = rate.Every(time.Second)

// Client resolves coordinates to a city with the Nominatim /reverse API.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(defaultRate, 1),
	}
}

type reverseResponse struct {
	Error   string `json:"error"`
	Address struct {
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
		Country      string `json:"country"`
	} `json:"address"`
}

func (c *Client) ReverseGeocode(ctx context.Context, pos domain.Coordinate) (*domain.Place, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(pos.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(pos.Lon, 'f', 6, 64))
	q.Set("zoom", "10")
	q.Set("addressdetails", "1")
	q.Set("accept-language", "en")

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nominatim: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: build request")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: reverse")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("nominatim: reverse status %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "nominatim: decode reverse")
	}
	if body.Error != "" {
		return nil, eris.New("nominatim: " + body.Error)
	}

	a := body.Address
	city := firstNonEmpty(a.City, a.Town, a.Municipality, a.Village)
	if city == "" {
		return nil, eris.New("nominatim: no city for location")
	}
	return &domain.Place{City: city, Country: a.Country}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
