package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	apiPathTemplateConstant             = "/api/%s/%s"
	signInPathConstant                  = "auth/signin"
	signOutPathConstant                 = "auth/signout"
	switchSitePathConstant              = "auth/switchSite"
	authenticationHeaderConstant        = "X-Tableau-Auth"
	acceptHeaderConstant                = "Accept"
	contentTypeHeaderConstant           = "Content-Type"
	jsonMediaTypeConstant               = "application/json"
	requestBuildErrorTemplateConstant   = "build request: %w"
	requestEncodeErrorTemplateConstant  = "encode request: %w"
	responseDecodeErrorTemplateConstant = "decode response: %w"
	requestMethodFieldNameConstant      = "method"
	requestPathFieldNameConstant        = "path"
	responseStatusFieldNameConstant     = "status"
	durationFieldNameConstant           = "duration"
	requestCompletedMessageConstant     = "REST request completed"
	rateLimitErrorTemplateConstant      = "rate limit: %w"
	rateLimitBurstConstant              = 1
	defaultPageSizeConstant             = 100
	defaultRequestTimeoutConstant       = 60 * time.Second
	maximumErrorBodyBytesConstant       = 64 * 1024
)

// MaximumPageSize is the largest page the server honors; larger requests are capped.
const MaximumPageSize = 1000

// ClientConfiguration describes how to reach one server.
// RequestsPerSecond caps outgoing calls; zero or less disables the cap.
type ClientConfiguration struct {
	BaseURL           string
	APIVersion        string
	PageSize          int
	RequestTimeout    time.Duration
	RequestsPerSecond float64
}

// Client issues REST calls. It holds no session state.
type Client struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
	apiVersion string
	pageSize   int
	limiter    *rate.Limiter
}

// NewClient constructs a Client. A nil httpClient results in a client with the configured timeout.
func NewClient(configuration ClientConfiguration, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(configuration.BaseURL), "/")
	if len(baseURL) == 0 {
		return nil, ErrBaseURLRequired
	}
	apiVersion := strings.TrimSpace(configuration.APIVersion)
	if len(apiVersion) == 0 {
		return nil, ErrAPIVersionRequired
	}

	if httpClient == nil {
		requestTimeout := configuration.RequestTimeout
		if requestTimeout <= 0 {
			requestTimeout = defaultRequestTimeoutConstant
		}
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pageSize := configuration.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSizeConstant
	}
	if pageSize > MaximumPageSize {
		pageSize = MaximumPageSize
	}

	var limiter *rate.Limiter
	if configuration.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(configuration.RequestsPerSecond), rateLimitBurstConstant)
	}

	return &Client{
		logger:     logger,
		httpClient: httpClient,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		pageSize:   pageSize,
		limiter:    limiter,
	}, nil
}

type sitePayload struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	ContentURL string `json:"contentUrl"`
}

type credentialsPayload struct {
	Name                      string      `json:"name,omitempty"`
	Password                  string      `json:"password,omitempty"`
	PersonalAccessTokenName   string      `json:"personalAccessTokenName,omitempty"`
	PersonalAccessTokenSecret string      `json:"personalAccessTokenSecret,omitempty"`
	Site                      sitePayload `json:"site"`
}

type signInRequest struct {
	Credentials credentialsPayload `json:"credentials"`
}

type switchSiteRequest struct {
	Site sitePayload `json:"site"`
}

type authenticationResponse struct {
	Credentials struct {
		Token string      `json:"token"`
		Site  sitePayload `json:"site"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"credentials"`
}

func (response authenticationResponse) session() Session {
	return Session{
		Token:          response.Credentials.Token,
		SiteID:         response.Credentials.Site.ID,
		SiteContentURL: response.Credentials.Site.ContentURL,
		UserID:         response.Credentials.User.ID,
	}
}

// SignIn authenticates against the site identified by siteContentURL. An empty value selects the default site.
func (client *Client) SignIn(executionContext context.Context, credential Credential, siteContentURL string) (Session, error) {
	payload := credentialsPayload{Site: sitePayload{ContentURL: strings.TrimSpace(siteContentURL)}}
	switch {
	case credential.UsesToken():
		payload.PersonalAccessTokenName = strings.TrimSpace(credential.TokenName)
		payload.PersonalAccessTokenSecret = credential.TokenValue
	case credential.UsesPassword():
		payload.Name = strings.TrimSpace(credential.Username)
		payload.Password = credential.Password
	default:
		return Session{}, ErrCredentialIncomplete
	}

	var response authenticationResponse
	if requestError := client.doJSON(executionContext, OperationSignIn, resourceReference{}, Session{}, http.MethodPost, client.apiPath(signInPathConstant), nil, signInRequest{Credentials: payload}, &response); requestError != nil {
		return Session{}, requestError
	}
	return response.session(), nil
}

// SwitchSite exchanges session for a new session bound to siteContentURL.
func (client *Client) SwitchSite(executionContext context.Context, session Session, siteContentURL string) (Session, error) {
	if len(session.Token) == 0 {
		return Session{}, ErrSessionRequired
	}
	request := switchSiteRequest{Site: sitePayload{ContentURL: strings.TrimSpace(siteContentURL)}}
	var response authenticationResponse
	if requestError := client.doJSON(executionContext, OperationSwitchSite, resourceReference{}, session, http.MethodPost, client.apiPath(switchSitePathConstant), nil, request, &response); requestError != nil {
		return Session{}, requestError
	}
	return response.session(), nil
}

// SignOut invalidates session.
func (client *Client) SignOut(executionContext context.Context, session Session) error {
	if len(session.Token) == 0 {
		return ErrSessionRequired
	}
	return client.doJSON(executionContext, OperationSignOut, resourceReference{}, session, http.MethodPost, client.apiPath(signOutPathConstant), nil, nil, nil)
}

func (client *Client) apiPath(relativePath string) string {
	return fmt.Sprintf(apiPathTemplateConstant, client.apiVersion, relativePath)
}

func (client *Client) sitePath(session Session, segments ...string) string {
	escapedSegments := make([]string, 0, len(segments)+2)
	escapedSegments = append(escapedSegments, "sites", url.PathEscape(session.SiteID))
	for _, segment := range segments {
		escapedSegments = append(escapedSegments, url.PathEscape(segment))
	}
	return client.apiPath(strings.Join(escapedSegments, "/"))
}

func (client *Client) newRequest(executionContext context.Context, session Session, method string, path string, query url.Values, body io.Reader) (*http.Request, error) {
	requestURL := client.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}
	request, requestError := http.NewRequestWithContext(executionContext, method, requestURL, body)
	if requestError != nil {
		return nil, fmt.Errorf(requestBuildErrorTemplateConstant, requestError)
	}
	request.Header.Set(acceptHeaderConstant, jsonMediaTypeConstant)
	if len(session.Token) > 0 {
		request.Header.Set(authenticationHeaderConstant, session.Token)
	}
	return request, nil
}

// execute sends the request and converts non-success statuses into typed errors.
func (client *Client) execute(request *http.Request, operation OperationName, resource resourceReference) (*http.Response, error) {
	if client.limiter != nil {
		if waitError := client.limiter.Wait(request.Context()); waitError != nil {
			return nil, OperationError{Operation: operation, Cause: fmt.Errorf(rateLimitErrorTemplateConstant, waitError)}
		}
	}

	startedAt := time.Now()
	response, sendError := client.httpClient.Do(request)
	if sendError != nil {
		return nil, OperationError{Operation: operation, Cause: sendError}
	}

	client.logger.Debug(
		requestCompletedMessageConstant,
		zap.String(requestMethodFieldNameConstant, request.Method),
		zap.String(requestPathFieldNameConstant, request.URL.Path),
		zap.Int(responseStatusFieldNameConstant, response.StatusCode),
		zap.Duration(durationFieldNameConstant, time.Since(startedAt)),
	)

	if response.StatusCode >= http.StatusBadRequest {
		defer response.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(response.Body, maximumErrorBodyBytesConstant))
		return nil, classifyFailure(operation, resource, response.StatusCode, body)
	}
	return response, nil
}

func (client *Client) doJSON(executionContext context.Context, operation OperationName, resource resourceReference, session Session, method string, path string, query url.Values, requestBody any, responseBody any) error {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, encodeError := json.Marshal(requestBody)
		if encodeError != nil {
			return OperationError{Operation: operation, Cause: fmt.Errorf(requestEncodeErrorTemplateConstant, encodeError)}
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, requestError := client.newRequest(executionContext, session, method, path, query, bodyReader)
	if requestError != nil {
		return OperationError{Operation: operation, Cause: requestError}
	}
	if requestBody != nil {
		request.Header.Set(contentTypeHeaderConstant, jsonMediaTypeConstant)
	}

	response, executeError := client.execute(request, operation, resource)
	if executeError != nil {
		return executeError
	}
	defer response.Body.Close()

	if responseBody == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	if decodeError := json.NewDecoder(response.Body).Decode(responseBody); decodeError != nil {
		return OperationError{Operation: operation, StatusCode: response.StatusCode, Cause: fmt.Errorf(responseDecodeErrorTemplateConstant, decodeError)}
	}
	return nil
}
