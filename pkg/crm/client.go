// Package crm is a read-only client for the studio CRM's student registry.
package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/pkg/config"
)

// StatusError is a non-2xx answer from the CRM
type StatusError struct {
	StatusCode int
	Page       int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("crm returned status %d for page %d", e.StatusCode, e.Page)
}

// Retryable reports whether the request may succeed if repeated
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// RetryPolicy bounds the exponential backoff around a page request
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// studentPage is one page of GET /students
type studentPage struct {
	Data     []studentRecord `json:"data"`
	NextPage *int            `json:"next_page"`
}

type studentRecord struct {
	ID     studentID   `json:"id"`
	Name   string      `json:"name"`
	Active *bool       `json:"active"`
	Phone  *string     `json:"phone"`
}

// Client reads the CRM student registry
type Client struct {
	baseURL  string
	token    string
	pageSize int
	retry    RetryPolicy
	client   *http.Client
	logger   *zap.Logger
}

// NewClient creates a CRM client from config
func NewClient(cfg *config.CRMConfig, retry RetryPolicy, logger *zap.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.APIToken,
		pageSize: pageSize,
		retry:    retry,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// ListStudents follows pagination until next_page is null. Each page is
// retried with backoff on transport errors, 5xx and 429; 401/403 and other
// 4xx answers fail immediately.
func (c *Client) ListStudents(ctx context.Context) ([]entities.CRMStudent, error) {
	var students []entities.CRMStudent
	page := 1
	for {
		var result *studentPage
		fetch := func() error {
			p, err := c.fetchPage(ctx, page)
			if err != nil {
				var se *StatusError
				if errors.As(err, &se) && !se.Retryable() {
					return backoff.Permanent(err)
				}
				var perm *backoff.PermanentError
				if errors.As(err, &perm) {
					return err
				}
				if c.logger != nil {
					c.logger.Warn("⚠️ CRM request failed, retrying",
						zap.Int("page", page),
						zap.Error(err),
					)
				}
				return err
			}
			result = p
			return nil
		}

		if err := backoff.Retry(fetch, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
			if c.logger != nil {
				c.logger.Error("❌ Failed to fetch CRM students",
					zap.Int("page", page),
					zap.Error(err),
				)
			}
			return nil, err
		}

		for _, r := range result.Data {
			students = append(students, r.toEntity())
		}
		if result.NextPage == nil || *result.NextPage <= page {
			break
		}
		page = *result.NextPage
	}

	if c.logger != nil {
		c.logger.Info("✅ CRM students fetched", zap.Int("count", len(students)))
	}
	return students, nil
}

func (c *Client) fetchPage(ctx context.Context, page int) (*studentPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/students?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Page: page}
	}

	var p studentPage
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode crm page %d: %w", page, err))
	}
	return &p, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	if c.retry.InitialInterval > 0 {
		bo.InitialInterval = c.retry.InitialInterval
	}
	if c.retry.MaxInterval > 0 {
		bo.MaxInterval = c.retry.MaxInterval
	}
	if c.retry.MaxElapsedTime > 0 {
		bo.MaxElapsedTime = c.retry.MaxElapsedTime
	}
	return bo
}

// studentID accepts both numeric and string ids
type studentID string

func (id *studentID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = studentID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("crm student id must be a string or number: %w", err)
	}
	*id = studentID(n.String())
	return nil
}

// toEntity maps a record; a missing active flag counts as active
func (r studentRecord) toEntity() entities.CRMStudent {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return entities.CRMStudent{
		ID:     string(r.ID),
		Name:   strings.TrimSpace(r.Name),
		Active: active,
		Phone:  r.Phone,
	}
}
