package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/mandirseva/mandir-platform/internal/app/bootstrap"
	appconfig "github.com/mandirseva/mandir-platform/internal/config"
	"github.com/mandirseva/mandir-platform/pkg/logging"
)

// Serves the same chi router as cmd/api, but behind an API Gateway HTTP API.
// The stack is built once per cold start and reused across invocations.
func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	api, err := bootstrap.BuildAPI(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build API", "error", err)
		panic(err)
	}

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, api.Handler, evt)
	})
}

func handle(ctx context.Context, handler http.Handler, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	req, err := toHTTPRequest(ctx, evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid request"}, nil
	}

	rec := &responseRecorder{status: http.StatusOK, header: http.Header{}}
	handler.ServeHTTP(rec, req)

	return rec.toResponse(), nil
}

func toHTTPRequest(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	if method == "" {
		method = http.MethodGet
	}

	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = "/"
	}

	body, err := decodeBody(evt)
	if err != nil {
		return nil, err
	}

	u := url.URL{Path: path, RawQuery: evt.RawQueryString}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	for k, v := range evt.Headers {
		req.Header.Set(k, v)
	}
	for _, c := range evt.Cookies {
		req.Header.Add("Cookie", c)
	}
	if host := strings.TrimSpace(evt.RequestContext.DomainName); host != "" {
		req.Host = host
	}
	if ip := strings.TrimSpace(evt.RequestContext.HTTP.SourceIP); ip != "" {
		req.RemoteAddr = ip + ":0"
	}

	return req, nil
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

// responseRecorder captures the handler's response so it can be repackaged
// into the API Gateway shape.
type responseRecorder struct {
	status      int
	header      http.Header
	body        bytes.Buffer
	wroteHeader bool
}

func (r *responseRecorder) Header() http.Header {
	return r.header
}

func (r *responseRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.body.Write(p)
}

func (r *responseRecorder) toResponse() events.APIGatewayV2HTTPResponse {
	headers := make(map[string]string, len(r.header))
	var cookies []string
	for k, vs := range r.header {
		if strings.EqualFold(k, "Set-Cookie") {
			cookies = append(cookies, vs...)
			continue
		}
		headers[k] = strings.Join(vs, ",")
	}

	out := events.APIGatewayV2HTTPResponse{
		StatusCode: r.status,
		Headers:    headers,
		Cookies:    cookies,
	}

	raw := r.body.Bytes()
	if utf8.Valid(raw) {
		out.Body = string(raw)
	} else {
		out.Body = base64.StdEncoding.EncodeToString(raw)
		out.IsBase64Encoded = true
	}
	return out
}
