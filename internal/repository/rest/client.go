// Package rest talks to the judge backend's JSON API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
	"github.com/C021025/DSASimulator-OJ/internal/repository"
)

// Backend error codes carried in the envelope.
const (
	CodeOK           = 0
	CodeParamsError  = 40000
	CodeNotLogin     = 40100
	CodeNoAuth       = 40101
	CodeNotFound     = 40400
	CodeSystemError  = 50000
	CodeOperationErr = 50001
)

// Paths relative to the base URL.
const (
	pathRun            = "/judge/run"
	pathSubmit         = "/question/question_submit/do"
	pathListSubmission = "/question/question_submit/list/page"
	pathGetSubmission  = "/question/question_submit/get/vo"
	pathGetQuestion    = "/question/get/vo/safe"
)

const maxResponseBytes = 4 << 20

var (
	_ repository.JudgeService    = (*Client)(nil)
	_ repository.SubmissionQuery = (*Client)(nil)
	_ repository.QuestionService = (*Client)(nil)
)

// envelope is the response wrapper used by every backend endpoint.
type envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Client is an HTTP client for the judge backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	header  http.Header
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithHeader adds a header to every request, e.g. a session cookie.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Add(key, value) }
}

// NewClient creates a client for baseURL, such as http://localhost:8101/api.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		header:  make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Run(ctx context.Context, req *domain.RunRequest) (*domain.RunResult, error) {
	var out struct {
		Input  string `json:"input"`
		Output string `json:"output"`
	}
	if err := c.do(ctx, "run", http.MethodPost, pathRun, nil, req, &out); err != nil {
		return nil, err
	}
	return &domain.RunResult{Input: out.Input, Output: out.Output}, nil
}

func (c *Client) Submit(ctx context.Context, req *domain.SubmitRequest) (*domain.SubmissionHandle, error) {
	var out domain.SubmissionHandle
	if err := c.do(ctx, "submit", http.MethodPost, pathSubmit, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSubmission(ctx context.Context, id int64) (*domain.SubmissionRecord, error) {
	var out *domain.SubmissionRecord
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	err := c.do(ctx, "get submission", http.MethodGet, pathGetSubmission, q, nil, &out)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrSubmissionNotFound)
	}
	if out == nil {
		return nil, domain.ErrSubmissionNotFound
	}
	return out, nil
}

func (c *Client) ListSubmissions(ctx context.Context, questionID int64, page, pageSize int) (*domain.SubmissionPage, error) {
	body := struct {
		QuestionID int64 `json:"questionId"`
		Current    int   `json:"current"`
		PageSize   int   `json:"pageSize"`
	}{questionID, page, pageSize}

	var out domain.SubmissionPage
	if err := c.do(ctx, "list submissions", http.MethodPost, pathListSubmission, nil, body, &out); err != nil {
		return nil, err
	}
	if out.Records == nil {
		out.Records = []domain.SubmissionRecord{}
	}
	return &out, nil
}

func (c *Client) GetQuestion(ctx context.Context, id int64) (*domain.Question, error) {
	var out *domain.Question
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	err := c.do(ctx, "get question", http.MethodGet, pathGetQuestion, q, nil, &out)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrQuestionNotFound)
	}
	// The backend answers unknown ids with code 0 and null data.
	if out == nil {
		return nil, domain.ErrQuestionNotFound
	}
	return out, nil
}

// do performs one request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("Backend request failed",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return &domain.RemoteError{Op: op, Err: fmt.Errorf("%w: %v", domain.ErrJudgeUnavailable, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &domain.RemoteError{Op: op, HTTPStatus: resp.StatusCode, Err: err}
	}

	c.logger.Debug("Backend request",
		zap.String("op", op),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		re := &domain.RemoteError{Op: op, HTTPStatus: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.Message != "" {
			re.Code = env.Code
			re.Message = env.Message
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			re.Err = domain.ErrJudgeUnavailable
		}
		return re
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &domain.RemoteError{Op: op, HTTPStatus: resp.StatusCode, Message: "malformed response", Err: err}
	}
	if env.Code != CodeOK {
		re := &domain.RemoteError{Op: op, Code: env.Code, HTTPStatus: resp.StatusCode, Message: env.Message}
		switch env.Code {
		case CodeNotLogin, CodeNoAuth:
			re.Err = domain.ErrUnauthenticated
		case CodeSystemError:
			re.Err = domain.ErrJudgeUnavailable
		}
		return re
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &domain.RemoteError{Op: op, HTTPStatus: resp.StatusCode, Message: "malformed data", Err: err}
	}
	return nil
}

// notFoundAs maps a backend not-found answer onto target.
func notFoundAs(err error, target error) error {
	var re *domain.RemoteError
	if errors.As(err, &re) && (re.Code == CodeNotFound || re.HTTPStatus == http.StatusNotFound) {
		return target
	}
	return err
}
