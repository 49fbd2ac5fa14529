// Package abzapi is a client for the users API behind the sign-up form:
// token issue, position listing and user creation.
package abzapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/abzagency/signup-api/internal/models"
	apperrors "github.com/abzagency/signup-api/pkg/errors"
	"github.com/abzagency/signup-api/pkg/httpclient"
	"github.com/abzagency/signup-api/pkg/logger"
	"github.com/abzagency/signup-api/pkg/metrics"
	"github.com/abzagency/signup-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	TokenPath     = "/api/v1/token"
	PositionsPath = "/api/v1/positions"
	UsersPath     = "/api/v1/users"

	// TokenHeader carries the one-time token on user creation
	TokenHeader = "Token"

	serviceName = "users_api"

	// maxResponseBytes bounds how much of an upstream body is read
	maxResponseBytes = 1 << 20
)

// Client talks to the users API. Calls are made once; failures are returned
// to the caller and never retried.
type Client struct {
	baseURL    string
	httpClient httpclient.Client
}

// NewClient creates a users API client rooted at baseURL
func NewClient(baseURL string, httpClient httpclient.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// GetToken fetches a one-time registration token
func (c *Client) GetToken(ctx context.Context) (string, error) {
	var body TokenResponse
	status, err := c.getJSON(ctx, "getToken", TokenPath, &body)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 || !body.Success {
		return "", apperrors.UpstreamError("getToken", fmt.Errorf("status %d, success=%t", status, body.Success))
	}
	return body.Token, nil
}

// GetPositions fetches the selectable job positions, in server order
func (c *Client) GetPositions(ctx context.Context) ([]models.Position, error) {
	var body PositionsResponse
	status, err := c.getJSON(ctx, "getPositions", PositionsPath, &body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 || !body.Success {
		return nil, apperrors.UpstreamError("getPositions", fmt.Errorf("status %d, success=%t", status, body.Success))
	}
	return body.Positions, nil
}

// CreateUser submits record as multipart form data with the token header.
//
// A 2xx response with success=true returns the decoded body. A response that
// decodes but reports failure returns *ResponseError. Transport errors and
// undecodable bodies return a plain error.
func (c *Client) CreateUser(ctx context.Context, token string, record models.FormRecord) (*CreateUserResponse, error) {
	operation := "createUser"
	ctx, span := tracing.StartSpan(ctx, "users_api.createUser",
		attribute.Bool("has_photo", record.Photo != nil))
	var spanErr error
	defer func() { tracing.EndSpan(span, spanErr) }()

	payload, contentType, err := EncodeRecord(record)
	if err != nil {
		spanErr = err
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+UsersPath, payload)
	if err != nil {
		spanErr = err
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(TokenHeader, token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(ctx, operation, "error", start, zap.Error(err))
		spanErr = err
		return nil, fmt.Errorf("failed to submit user: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	var body CreateUserResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		c.observe(ctx, operation, "error", start, zap.Int("status_code", resp.StatusCode), zap.Error(err))
		spanErr = err
		return nil, fmt.Errorf("failed to decode users api response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !body.Success {
		respErr := &ResponseError{
			StatusCode: resp.StatusCode,
			Message:    body.Message,
			Fails:      body.Fails,
		}
		c.observe(ctx, operation, "rejected", start, zap.Int("status_code", resp.StatusCode), zap.String("message", body.Message))
		spanErr = respErr
		return nil, respErr
	}

	c.observe(ctx, operation, "success", start, zap.Int("status_code", resp.StatusCode), zap.Int("user_id", body.UserID))
	return &body, nil
}

func (c *Client) getJSON(ctx context.Context, operation, path string, out any) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "users_api."+operation)
	var spanErr error
	defer func() { tracing.EndSpan(span, spanErr) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		spanErr = err
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(ctx, operation, "error", start, zap.Error(err))
		spanErr = err
		return 0, apperrors.UpstreamError(operation, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		c.observe(ctx, operation, "error", start, zap.Int("status_code", resp.StatusCode), zap.Error(err))
		spanErr = err
		return resp.StatusCode, apperrors.UpstreamError(operation, err)
	}

	status := "success"
	if resp.StatusCode >= 300 {
		status = "rejected"
	}
	c.observe(ctx, operation, status, start, zap.Int("status_code", resp.StatusCode))
	return resp.StatusCode, nil
}

func (c *Client) observe(ctx context.Context, operation, status string, start time.Time, fields ...zap.Field) {
	duration := metrics.MeasureDuration(start)
	metrics.UpstreamRequestDuration.WithLabelValues(operation, status).Observe(duration)
	metrics.UpstreamRequestTotal.WithLabelValues(operation, status).Inc()

	logStatus := status
	if status == "rejected" {
		logStatus = "error"
	}
	logger.LogAPICall(ctx, serviceName, operation, logStatus, duration, fields...)
}

// EncodeRecord serialises record as multipart/form-data with the parts name,
// email, phone, position_id and photo. The photo part is omitted when no
// photo is set.
func EncodeRecord(record models.FormRecord) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, field := range []models.Field{models.FieldName, models.FieldEmail, models.FieldPhone, models.FieldPositionID} {
		if err := w.WriteField(string(field), record.Text(field)); err != nil {
			return nil, "", fmt.Errorf("failed to write %s: %w", field, err)
		}
	}

	if photo := record.Photo; photo != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			models.FieldPhoto, escapeQuotes(photo.FileName)))
		header.Set("Content-Type", photo.ContentType)

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create photo part: %w", err)
		}
		if _, err := part.Write(photo.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write photo: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
