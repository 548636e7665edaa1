// Package stuart books deliveries with the Stuart courier network.
package stuart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kilianp07/fooddispatch/auth"
	"github.com/kilianp07/fooddispatch/core/courier"
	"github.com/kilianp07/fooddispatch/core/factory"
	"github.com/kilianp07/fooddispatch/core/model"
)

// Base URLs per environment.
const (
	SandboxURL    = "https://api.sandbox.stuart.com"
	ProductionURL = "https://api.stuart.com"
)

// DefaultCancelReason is sent when CancelJob gets no reason.
const DefaultCancelReason = "job_cancelled"

// ProviderName tags persisted records booked through this client.
const ProviderName = "stuart"

func init() {
	_ = courier.RegisterNetwork(ProviderName, func(conf map[string]any) (courier.Network, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return New(c)
	})
}

// Config selects the environment and credentials.
type Config struct {
	Env            string    `json:"env"`
	BaseURL        string    `json:"base_url"`
	TimeoutSeconds int       `json:"timeout_seconds"`
	CancelComment  string    `json:"cancel_comment"`
	Auth           auth.Conf `json:"auth"`
}

// URL returns the API base for the configured environment. BaseURL wins when
// set; anything but "production" means sandbox.
func (c Config) URL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if c.Env == "production" {
		return ProductionURL
	}
	return SandboxURL
}

// APIError is a non-2xx answer.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stuart api: status %d: %s", e.Status, e.Body)
}

// Client talks to the Stuart v2 API.
type Client struct {
	baseURL       string
	cancelComment string
	http          *http.Client
	auth          auth.Authorizer
	now           func() time.Time
}

// New builds a client. A credential is mandatory.
func New(cfg Config) (*Client, error) {
	a, err := auth.New(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("stuart: %w", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	comment := cfg.CancelComment
	if comment == "" {
		comment = "Cancelled by dispatch system"
	}
	return &Client{
		baseURL:       cfg.URL(),
		cancelComment: comment,
		http:          &http.Client{Timeout: timeout},
		auth:          a,
		now:           time.Now,
	}, nil
}

// Name implements courier.Network.
func (c *Client) Name() string { return ProviderName }

type contactPayload struct {
	FirstName string `json:"firstname,omitempty"`
	LastName  string `json:"lastname,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
}

type stopPayload struct {
	Address         string          `json:"address"`
	PackageType     string          `json:"package_type,omitempty"`
	ClientReference string          `json:"client_reference,omitempty"`
	Contact         *contactPayload `json:"contact,omitempty"`
}

type jobPayload struct {
	Job struct {
		PickupAt time.Time     `json:"pickup_at"`
		Pickups  []stopPayload `json:"pickups"`
		Dropoffs []stopPayload `json:"dropoffs"`
	} `json:"job"`
}

func contact(c courier.Contact) *contactPayload {
	if c == (courier.Contact{}) {
		return nil
	}
	p := contactPayload(c)
	return &p
}

func (c *Client) payload(req courier.JobRequest, withContacts bool) jobPayload {
	var p jobPayload
	p.Job.PickupAt = req.PickupAt
	if p.Job.PickupAt.IsZero() {
		p.Job.PickupAt = c.now().UTC()
	}
	pickup := stopPayload{Address: req.Pickup.Address}
	dropoff := stopPayload{Address: req.Dropoff.Address, PackageType: string(req.PackageType)}
	if withContacts {
		pickup.Contact = contact(req.Pickup.Contact)
		dropoff.Contact = contact(req.Dropoff.Contact)
		dropoff.ClientReference = req.ClientReference
	}
	p.Job.Pickups = []stopPayload{pickup}
	p.Job.Dropoffs = []stopPayload{dropoff}
	return p
}

type jobResponse struct {
	ID         json.Number `json:"id"`
	Status     string      `json:"status"`
	PickupAt   *time.Time  `json:"pickup_at"`
	DropoffAt  *time.Time  `json:"dropoff_at"`
	Deliveries []struct {
		TrackingURL       string     `json:"tracking_url"`
		PickupAt          *time.Time `json:"pickup_at"`
		DropoffAt         *time.Time `json:"dropoff_at"`
		DropoffETASeconds int        `json:"dropoff_eta_seconds"`
	} `json:"deliveries"`
	Driver *struct {
		DisplayName   string   `json:"display_name"`
		FirstName     string   `json:"firstname"`
		Phone         string   `json:"phone"`
		Picture       string   `json:"picture_path_imgix"`
		Latitude      *float64 `json:"latitude"`
		Longitude     *float64 `json:"longitude"`
		TransportType string   `json:"transport_type"`
	} `json:"driver"`
}

func (r jobResponse) toJob(raw []byte) courier.Job {
	j := courier.Job{
		ID:        r.ID.String(),
		Status:    r.Status,
		PickupAt:  r.PickupAt,
		DropoffAt: r.DropoffAt,
		Raw:       json.RawMessage(raw),
	}
	for _, d := range r.Deliveries {
		j.Deliveries = append(j.Deliveries, courier.Delivery{
			TrackingURL:       d.TrackingURL,
			PickupAt:          d.PickupAt,
			DropoffAt:         d.DropoffAt,
			DropoffETASeconds: d.DropoffETASeconds,
		})
	}
	if d := r.Driver; d != nil {
		name := d.DisplayName
		if name == "" {
			name = d.FirstName
		}
		j.Courier = &courier.Courier{
			Name:          name,
			Phone:         d.Phone,
			PhotoURL:      d.Picture,
			TransportType: d.TransportType,
		}
		if d.Latitude != nil && d.Longitude != nil {
			j.Courier.Location = &model.Coordinates{Lat: *d.Latitude, Lng: *d.Longitude}
		}
	}
	return j
}

// Quote prices a request. A response without an amount yields a nil quote.
func (c *Client) Quote(ctx context.Context, req courier.JobRequest) (*courier.Quote, error) {
	var q struct {
		Amount   *float64 `json:"amount"`
		Currency string   `json:"currency"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/v2/jobs/pricing", c.payload(req, false), &q); err != nil {
		return nil, err
	}
	if q.Amount == nil {
		return nil, nil
	}
	return &courier.Quote{Amount: *q.Amount, Currency: q.Currency}, nil
}

// CreateJob books a job. The raw response is kept on the returned Job.
func (c *Client) CreateJob(ctx context.Context, req courier.JobRequest) (courier.Job, error) {
	var r jobResponse
	raw, err := c.do(ctx, http.MethodPost, "/v2/jobs", c.payload(req, true), &r)
	if err != nil {
		return courier.Job{}, err
	}
	if r.ID == "" {
		return courier.Job{}, errors.New("stuart: job response without id")
	}
	return r.toJob(raw), nil
}

// Job fetches the current state of a job, including the courier position.
func (c *Client) Job(ctx context.Context, jobID string) (courier.Job, error) {
	var r jobResponse
	raw, err := c.do(ctx, http.MethodGet, "/v2/jobs/"+url.PathEscape(jobID), nil, &r)
	if err != nil {
		return courier.Job{}, err
	}
	return r.toJob(raw), nil
}

// CancelJob cancels a job with reason, or DefaultCancelReason when empty.
func (c *Client) CancelJob(ctx context.Context, jobID, reason string) error {
	if reason == "" {
		reason = DefaultCancelReason
	}
	body := map[string]string{"reason_key": reason, "comment": c.cancelComment}
	_, err := c.do(ctx, http.MethodPost, "/v2/jobs/"+url.PathEscape(jobID)+"/cancel", body, nil)
	return err
}

// Leg selects the ETA target.
type Leg string

const (
	LegPickup  Leg = "pickup"
	LegDropoff Leg = "dropoff"
)

// ETA returns the courier's estimated time to the pickup or drop-off.
func (c *Client) ETA(ctx context.Context, jobID string, leg Leg) (time.Duration, error) {
	var path string
	switch leg {
	case LegPickup:
		path = "/eta_to_pickup"
	case LegDropoff:
		path = "/eta_to_dropoff"
	default:
		return 0, fmt.Errorf("stuart: unknown eta leg %q", leg)
	}
	var r struct {
		ETA float64 `json:"eta"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/v2/jobs/"+url.PathEscape(jobID)+path, nil, &r); err != nil {
		return 0, err
	}
	return time.Duration(r.ETA * float64(time.Second)), nil
}

// AddressKind is the role of a validated address.
type AddressKind string

const (
	AddressPicking    AddressKind = "picking"
	AddressDelivering AddressKind = "delivering"
)

// ValidateAddress asks whether the address is serviceable. A 4xx answer means
// the address is rejected; only transport and server failures are errors.
func (c *Client) ValidateAddress(ctx context.Context, address string, kind AddressKind) (bool, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("type", string(kind))
	var r struct {
		Success bool `json:"success"`
	}
	_, err := c.do(ctx, http.MethodGet, "/v2/addresses/validate?"+q.Encode(), nil, &r)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.Success, nil
}

// do sends one request, retrying once on 401 after dropping the cached token.
func (c *Client) do(ctx context.Context, method, path string, body, out any) ([]byte, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		payload = b
	}
	raw, status, err := c.send(ctx, method, path, payload)
	if err == nil && status == http.StatusUnauthorized {
		c.auth.Invalidate()
		raw, status, err = c.send(ctx, method, path, payload)
	}
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &APIError{Status: status, Body: strings.TrimSpace(string(raw))}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return raw, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.auth.SetAuthHeader(ctx, req); err != nil {
		return nil, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("stuart request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}
