package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"estateleads/leads"
)

// ErrNoToken is returned when the current user has no bearer token
var ErrNoToken = errors.New("client: current user has no token")

// User is the authenticated lister (or seeker) the client acts for
type User struct {
	ID    uint
	Type  string
	Token string
}

// CurrentUserProvider resolves who is making the call. It is consulted on
// every request so a token refresh takes effect immediately.
type CurrentUserProvider interface {
	CurrentUser(ctx context.Context) (User, error)
}

// StaticUser always returns the same identity
type StaticUser User

func (u StaticUser) CurrentUser(context.Context) (User, error) { return User(u), nil }

// Client talks to the lead API over HTTP
type Client struct {
	http  *resty.Client
	users CurrentUserProvider
}

// Option configures a Client during construction in New.
type Option func(*Client) error

// WithTimeout bounds every request. The value must be greater than zero.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be > 0")
		}
		c.http.SetTimeout(d)
		return nil
	}
}

// WithDebug logs each request and response through resty
func WithDebug(enabled bool) Option {
	return func(c *Client) error {
		c.http.SetDebug(enabled)
		return nil
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		c.http.SetHeader("User-Agent", ua)
		return nil
	}
}

// New builds a client for the API rooted at baseURL, e.g. http://localhost:8080/api/v1
func New(baseURL string, users CurrentUserProvider, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if users == nil {
		return nil, fmt.Errorf("current user provider is required")
	}
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json").
			SetTimeout(30 * time.Second),
		users: users,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Lead mirrors the server's lead representation
type Lead struct {
	ID             uint             `json:"id"`
	GroupedLeadKey string           `json:"grouped_lead_key"`
	ListerID       uint             `json:"lister_id"`
	ListerType     string           `json:"lister_type"`
	SeekerID       uint             `json:"seeker_id"`
	ListingID      *uint            `json:"listing_id"`
	SeekerName     string           `json:"seeker_name"`
	SeekerEmail    string           `json:"seeker_email"`
	SeekerPhone    string           `json:"seeker_phone"`
	ListingTitle   string           `json:"listing_title"`
	Status         leads.Status     `json:"status"`
	StatusTracker  []leads.Status   `json:"status_tracker"`
	Notes          []string         `json:"notes"`
	LeadScore      int              `json:"lead_score"`
	LeadCategory   leads.Category   `json:"lead_category"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	LeadActions    []leads.Action   `json:"lead_actions"`
	Reminders      []leads.Reminder `json:"reminders"`
}

// State is the lister-editable part of the lead
func (l Lead) State() leads.LeadState {
	return leads.LeadState{
		Status:        l.Status,
		Notes:         append([]string{}, l.Notes...),
		StatusTracker: append([]leads.Status{}, l.StatusTracker...),
	}
}

// LeadQuery filters the lead list. Zero values are omitted.
type LeadQuery struct {
	ListingID  *uint
	Status     leads.Status
	ActionType leads.ActionType
	DateFrom   string
	DateTo     string
	Search     string
	Page       int
	PageSize   int
}

func (q LeadQuery) params() map[string]string {
	p := map[string]string{}
	if q.ListingID != nil {
		p["listing_id"] = strconv.FormatUint(uint64(*q.ListingID), 10)
	}
	set := func(k, v string) {
		if v != "" {
			p[k] = v
		}
	}
	set("status", string(q.Status))
	set("action_type", string(q.ActionType))
	set("date_from", q.DateFrom)
	set("date_to", q.DateTo)
	set("search", q.Search)
	if q.Page > 0 {
		p["page"] = strconv.Itoa(q.Page)
	}
	if q.PageSize > 0 {
		p["page_size"] = strconv.Itoa(q.PageSize)
	}
	return p
}

type LeadPage struct {
	Leads    []Lead `json:"data"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type LeadStats struct {
	ByStatus   map[leads.Status]int64   `json:"by_status"`
	ByCategory map[leads.Category]int64 `json:"by_category"`
	Total      int64                    `json:"total"`
}

// ActionRequest records one seeker interaction; the seeker is the caller
type ActionRequest struct {
	ListerID        uint                   `json:"lister_id"`
	ListerType      string                 `json:"lister_type"`
	ListingID       *uint                  `json:"listing_id,omitempty"`
	ActionType      leads.ActionType       `json:"action_type"`
	ActionDate      string                 `json:"action_date,omitempty"`
	ActionTimestamp *time.Time             `json:"action_timestamp,omitempty"`
	ActionMetadata  map[string]interface{} `json:"action_metadata,omitempty"`
	SeekerName      string                 `json:"seeker_name,omitempty"`
	SeekerEmail     string                 `json:"seeker_email,omitempty"`
	SeekerPhone     string                 `json:"seeker_phone,omitempty"`
	ListingTitle    string                 `json:"listing_title,omitempty"`
}

type ActionResult struct {
	Lead   Lead         `json:"lead"`
	Action leads.Action `json:"action"`
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

func (c *Client) request(ctx context.Context) (*resty.Request, User, error) {
	u, err := c.users.CurrentUser(ctx)
	if err != nil {
		return nil, User{}, fmt.Errorf("resolve current user: %w", err)
	}
	if u.Token == "" {
		return nil, User{}, ErrNoToken
	}
	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(u.Token).
		SetError(&errorBody{})
	return req, u, nil
}

func check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		return newAPIError(resp)
	}
	return nil
}

// ListLeads fetches one page of the caller's leads
func (c *Client) ListLeads(ctx context.Context, q LeadQuery) (*LeadPage, error) {
	req, _, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var page LeadPage
	resp, err := req.SetQueryParams(q.params()).SetResult(&page).Get("/leads")
	if err := check(resp, err, "list leads"); err != nil {
		return nil, err
	}
	if page.Leads == nil {
		page.Leads = []Lead{}
	}
	return &page, nil
}

func (c *Client) GetLead(ctx context.Context, id uint) (*Lead, error) {
	req, _, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var env envelope[Lead]
	resp, err := req.SetResult(&env).Get("/leads/" + strconv.FormatUint(uint64(id), 10))
	if err := check(resp, err, "get lead"); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// PatchLead commits a batch of edits. When the current user carries an id the
// owner fields are filled in so the server can reject a mismatched identity.
func (c *Client) PatchLead(ctx context.Context, id uint, patch leads.PatchRequest) (*leads.PatchResult, error) {
	req, u, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	if u.ID != 0 {
		patch.UserID = &u.ID
		patch.UserType = u.Type
	}

	var res leads.PatchResult
	resp, err := req.SetBody(patch).SetResult(&res).Patch("/leads/" + strconv.FormatUint(uint64(id), 10))
	if err := check(resp, err, "patch lead"); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListReminders returns the reminders of one lead, or all of the caller's
// reminders when groupedLeadKey is empty
func (c *Client) ListReminders(ctx context.Context, groupedLeadKey string) ([]leads.Reminder, error) {
	req, _, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	if groupedLeadKey != "" {
		req.SetQueryParam("grouped_lead_key", groupedLeadKey)
	}
	var env envelope[[]leads.Reminder]
	resp, err := req.SetResult(&env).Get("/reminders")
	if err := check(resp, err, "list reminders"); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) RecordAction(ctx context.Context, action ActionRequest) (*ActionResult, error) {
	req, _, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var env envelope[ActionResult]
	resp, err := req.SetBody(action).SetResult(&env).Post("/leads/actions")
	if err := check(resp, err, "record action"); err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusCreated {
		return nil, fmt.Errorf("record action: unexpected status %d", resp.StatusCode())
	}
	return &env.Data, nil
}

func (c *Client) LeadStats(ctx context.Context) (*LeadStats, error) {
	req, _, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var env envelope[LeadStats]
	resp, err := req.SetResult(&env).Get("/leads/stats")
	if err := check(resp, err, "lead stats"); err != nil {
		return nil, err
	}
	return &env.Data, nil
}
