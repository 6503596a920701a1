// Package apiclient talks to the assessment endpoints of the governance
// platform REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Client provides the assessment calls the evaluation workflow needs.
type Client interface {
	// GetTargetList returns one page of assessment targets.
	GetTargetList(ctx context.Context, q TargetQuery) (*TargetPage, error)

	// GetTargetEvaluationDetail returns a target together with all its plans.
	GetTargetEvaluationDetail(ctx context.Context, targetID string) (*domain.Target, error)

	// UpdateTargetAssessmentPlan edits a plan's descriptive fields.
	UpdateTargetAssessmentPlan(ctx context.Context, planID string, u PlanUpdate) error

	// SubmitEvaluation writes actual values for plans of one target.
	SubmitEvaluation(ctx context.Context, targetID string, subs []ActualSubmission) error
}

// Config holds connection settings.
type Config struct {
	Endpoint   string
	Token      string
	Timeout    time.Duration
	MaxRetries int

	// RetryWaitMin and RetryWaitMax bound the backoff between attempts.
	// Zero uses the retryablehttp defaults.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// TargetQuery filters the target list.
type TargetQuery struct {
	Offset  int
	Limit   int
	Keyword string
	Status  domain.TargetStatus
}

// TargetPage is one page of the target list.
type TargetPage struct {
	Entries    []domain.Target
	TotalCount int
}

// PlanUpdate carries the descriptive plan fields. Empty fields are left
// unchanged by the platform.
type PlanUpdate struct {
	Owner       string `json:"owner,omitempty"`
	PlanName    string `json:"plan_name,omitempty"`
	Description string `json:"description,omitempty"`
}

// ActualSubmission is the actual values for one plan, keyed by actual column.
type ActualSubmission struct {
	PlanID string
	Values map[string]int
}

// MarshalJSON flattens the values next to the plan id, the shape the
// platform expects: {"id":"…","actual_quantity":8}.
func (s ActualSubmission) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(s.Values)+1)
	for k, v := range s.Values {
		m[k] = v
	}
	m["id"] = s.PlanID
	return json.Marshal(m)
}

type httpClient struct {
	cfg      Config
	base     string
	http     *retryablehttp.Client
	observer Observer
}

// New creates a Client for the platform at cfg.Endpoint.
func New(cfg Config, log logrus.FieldLogger, observer Observer) Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if log != nil {
		rc.Logger = leveledLogger{log: log}
	} else {
		rc.Logger = nil
	}

	return &httpClient{
		cfg:      cfg,
		base:     strings.TrimRight(cfg.Endpoint, "/"),
		http:     rc,
		observer: observer,
	}
}

func (c *httpClient) GetTargetList(ctx context.Context, q TargetQuery) (*TargetPage, error) {
	params := url.Values{}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Keyword != "" {
		params.Set("keyword", q.Keyword)
	}
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}
	path := "/api/v1/assessment/targets"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	body, err := c.call(ctx, "get_target_list", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeTargetPage(body)
}

func (c *httpClient) GetTargetEvaluationDetail(ctx context.Context, targetID string) (*domain.Target, error) {
	path := "/api/v1/assessment/targets/" + url.PathEscape(targetID) + "/evaluation"
	body, err := c.call(ctx, "get_target_evaluation_detail", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	t, err := decodeTarget(gjson.ParseBytes(body))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *httpClient) UpdateTargetAssessmentPlan(ctx context.Context, planID string, u PlanUpdate) error {
	path := "/api/v1/assessment/plans/" + url.PathEscape(planID)
	_, err := c.call(ctx, "update_target_assessment_plan", http.MethodPut, path, u)
	return err
}

func (c *httpClient) SubmitEvaluation(ctx context.Context, targetID string, subs []ActualSubmission) error {
	path := "/api/v1/assessment/targets/" + url.PathEscape(targetID) + "/evaluation"
	payload := struct {
		Plans []ActualSubmission `json:"plans"`
	}{Plans: subs}
	_, err := c.call(ctx, "submit_evaluation", http.MethodPost, path, payload)
	return err
}

// call performs one logical request, retries included, and reports it to the
// observer. The body of a 2xx response is returned.
func (c *httpClient) call(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	status, body, err := c.doRequest(ctx, method, path, payload)
	if err == nil && ctx.Err() == nil && !gjson.ValidBytes(body) && len(bytes.TrimSpace(body)) > 0 {
		err = fmt.Errorf("%w: %s %s", ErrInvalidResponse, method, path)
	}
	if err != nil {
		err = c.classify(ctx, err)
	}

	c.observer.OnCallComplete(APICallEvent{
		Operation: op,
		Method:    method,
		Path:      path,
		Status:    status,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
		ErrorCode: errorCode(err),
	})
	return body, err
}

func (c *httpClient) doRequest(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reqBody any
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = data
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, nil, decodeProblem(resp.StatusCode, respBody)
	}
	return resp.StatusCode, respBody, nil
}

// classify maps transport failures onto the package sentinels. API errors
// pass through unchanged.
func (c *httpClient) classify(ctx context.Context, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) || errors.Is(err, ErrInvalidResponse) {
		return err
	}
	if ctx.Err() != nil {
		return ErrTimeout
	}
	if isConnectionError(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
