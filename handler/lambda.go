package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Handle serves an API Gateway proxy event through the same router as
// ServeHTTP.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := proxyRequest(ctx, event)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	rw := newBufferedResponse()
	h.echo.ServeHTTP(rw, req)
	return rw.proxyResponse(), nil
}

func proxyRequest(ctx context.Context, event events.APIGatewayProxyRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("handler: decode base64 body: %w", err)
		}
		body = decoded
	}

	path := event.Path
	if path == "" {
		path = "/"
	}
	target := url.URL{Path: path, RawQuery: proxyQuery(event).Encode()}

	req, err := http.NewRequestWithContext(ctx, event.HTTPMethod, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("handler: build request: %w", err)
	}
	if len(event.MultiValueHeaders) > 0 {
		for k, vs := range event.MultiValueHeaders {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	} else {
		for k, v := range event.Headers {
			req.Header.Set(k, v)
		}
	}
	if ip := event.RequestContext.Identity.SourceIP; ip != "" {
		req.RemoteAddr = ip
	}
	return req, nil
}

func proxyQuery(event events.APIGatewayProxyRequest) url.Values {
	q := url.Values{}
	if len(event.MultiValueQueryStringParameters) > 0 {
		for k, vs := range event.MultiValueQueryStringParameters {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		return q
	}
	for k, v := range event.QueryStringParameters {
		q.Set(k, v)
	}
	return q
}

// bufferedResponse collects a response in memory for the Lambda runtime.
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: http.Header{}}
}

func (b *bufferedResponse) Header() http.Header {
	return b.header
}

func (b *bufferedResponse) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedResponse) proxyResponse() events.APIGatewayProxyResponse {
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	headers := make(map[string]string, len(b.header))
	for k, vs := range b.header {
		headers[k] = strings.Join(vs, ",")
	}
	return events.APIGatewayProxyResponse{
		StatusCode:        status,
		Headers:           headers,
		MultiValueHeaders: b.header,
		Body:              b.body.String(),
	}
}
