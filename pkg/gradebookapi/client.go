package gradebookapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noah-isme/whatif-grades-api/internal/models"
	appErrors "github.com/noah-isme/whatif-grades-api/pkg/errors"
)

const (
	EndpointGradeListing      = "grade_listing"
	EndpointAssignmentDetail  = "assignment_detail"
	EndpointSectionAssignment = "section_assignments"

	maxBodyBytes = 8 << 20
	maxPages     = 100
)

// Observer is notified after every upstream call.
type Observer func(endpoint string, duration time.Duration, err error)

// Config configures the client.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	PageSize   int
	HTTPClient *http.Client
	Observer   Observer
}

// Client reads grade data from the host gradebook REST API.
type Client struct {
	baseURL  string
	token    string
	pageSize int
	http     *http.Client
	observe  Observer
}

// New builds a client.
func New(cfg Config) *Client {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}
	observe := cfg.Observer
	if observe == nil {
		observe = func(string, time.Duration, error) {}
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		pageSize: pageSize,
		http:     client,
		observe:  observe,
	}
}

// GradeListing fetches the bulk grade listing of a user for one course.
func (c *Client) GradeListing(ctx context.Context, userID, courseID string) (*models.GradeListing, error) {
	endpoint := fmt.Sprintf("%s/users/%s/grades?section_id=%s", c.baseURL, url.PathEscape(userID), url.QueryEscape(courseID))
	var listing models.GradeListing
	if err := c.getJSON(ctx, EndpointGradeListing, endpoint, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// AssignmentDetail fetches a single assignment. Only max points are used.
func (c *Client) AssignmentDetail(ctx context.Context, courseID, assignmentID string) (*models.AssignmentDetail, error) {
	endpoint := fmt.Sprintf("%s/sections/%s/assignments/%s", c.baseURL, url.PathEscape(courseID), url.PathEscape(assignmentID))
	var detail models.AssignmentDetail
	if err := c.getJSON(ctx, EndpointAssignmentDetail, endpoint, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// SectionAssignments walks the paginated assignment list of a course,
// following links.next until it is absent.
func (c *Client) SectionAssignments(ctx context.Context, courseID string) ([]models.AssignmentMeta, error) {
	next := fmt.Sprintf("%s/sections/%s/assignments?start=0&limit=%d", c.baseURL, url.PathEscape(courseID), c.pageSize)
	var all []models.AssignmentMeta
	for page := 0; next != ""; page++ {
		if page >= maxPages {
			return all, appErrors.Clone(appErrors.ErrFetch, fmt.Sprintf("assignment list for %s exceeded %d pages", courseID, maxPages))
		}
		var body models.AssignmentPage
		if err := c.getJSON(ctx, EndpointSectionAssignment, next, &body); err != nil {
			return all, err
		}
		all = append(all, body.Assignment...)
		next = c.resolve(body.Links.Next)
	}
	return all, nil
}

func (c *Client) resolve(link string) string {
	if link == "" || strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return c.baseURL + "/" + strings.TrimLeft(link, "/")
}

func (c *Client) getJSON(ctx context.Context, name, endpoint string, dest interface{}) (err error) {
	start := time.Now()
	defer func() { c.observe(name, time.Since(start), err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrFetch.Code, appErrors.ErrFetch.Status, "build upstream request")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrFetch.Code, appErrors.ErrFetch.Status, name+" request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return appErrors.Clone(appErrors.ErrFetch, fmt.Sprintf("%s returned %d %s", name, resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrFetch.Code, appErrors.ErrFetch.Status, "decode "+name)
	}
	return nil
}
