package settingsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tidwall/gjson"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxErrorBody       = 512

	pathAuthCheck    = "/api/auth/check"
	pathAuthAny      = "/api/auth/any"
	pathAuthLogin    = "/api/auth/login"
	pathAuthRegister = "/api/auth/register"
	pathDomains      = "/api/approved-domains"
	pathContents     = "/api/contents"
	pathPlugins      = "/api/plugins"
)

var requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "filterdesk",
	Subsystem: "settings_api",
	Name:      "requests_total",
	Help:      "Requests sent to the settings API by path, method and result.",
}, []string{"path", "method", "result"})

func init() {
	prometheus.MustRegister(requestsTotal)
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
	Log       *slog.Logger
}

// Client talks to one settings API on behalf of one operator. It keeps its
// own cookie jar so the session cookie set by login is replayed.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: opts.Transport,
			Jar:       jar,
		},
		log: log,
	}, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CheckAuth reports whether the current session cookie is authenticated.
// The API answers 403 with {"authenticated": false}, so the body is decoded
// whatever the status.
func (c *Client) CheckAuth(ctx context.Context) (bool, error) {
	resp, err := c.send(ctx, http.MethodGet, pathAuthCheck, "", nil)
	if err != nil {
		return false, err
	}
	var check authCheck
	if err := json.Unmarshal(resp.body, &check); err != nil {
		return false, fmt.Errorf("decode %s: %w", pathAuthCheck, err)
	}
	return check.Authenticated, nil
}

// AnyRegistered reports whether an account exists. Any non-2xx answer means no.
func (c *Client) AnyRegistered(ctx context.Context) (bool, error) {
	resp, err := c.send(ctx, http.MethodGet, pathAuthAny, "", nil)
	if err != nil {
		return false, err
	}
	return resp.ok(), nil
}

// Login submits credentials. The session cookie lands in the client's jar.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	return c.doJSON(ctx, http.MethodPost, pathAuthLogin, creds, nil)
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, creds Credentials) error {
	return c.doJSON(ctx, http.MethodPost, pathAuthRegister, creds, nil)
}

// Domains returns the approved domains in server order.
func (c *Client) Domains(ctx context.Context) ([]string, error) {
	var domains []string
	if err := c.doJSON(ctx, http.MethodGet, pathDomains, nil, &domains); err != nil {
		return nil, err
	}
	return domains, nil
}

// AddDomain approves a domain.
func (c *Client) AddDomain(ctx context.Context, domain string) error {
	return c.doJSON(ctx, http.MethodPost, pathDomains, domainBody{Domain: domain}, nil)
}

// DeleteDomain removes a domain and returns the list the server holds afterwards.
func (c *Client) DeleteDomain(ctx context.Context, domain string) ([]string, error) {
	var domains []string
	if err := c.doJSON(ctx, http.MethodDelete, pathDomains, domainBody{Domain: domain}, &domains); err != nil {
		return nil, err
	}
	return domains, nil
}

// Contents returns every content policy.
func (c *Client) Contents(ctx context.Context) ([]Content, error) {
	var contents []Content
	if err := c.doJSON(ctx, http.MethodGet, pathContents, nil, &contents); err != nil {
		return nil, err
	}
	return contents, nil
}

// AddContent allows a content type for a domain.
func (c *Client) AddContent(ctx context.Context, domain, content string) error {
	return c.doJSON(ctx, http.MethodPost, pathContents, contentBody{DomainName: domain, Content: content}, nil)
}

// DeleteContent revokes a content type for a domain.
func (c *Client) DeleteContent(ctx context.Context, domain, content string) error {
	return c.doJSON(ctx, http.MethodDelete, pathContents, contentBody{DomainName: domain, Content: content}, nil)
}

// Plugins returns both plugin stages. The API answers with an array holding
// one object per stage; a missing stage yields ErrIncompleteLists together
// with whatever was found.
func (c *Client) Plugins(ctx context.Context) (PluginLists, error) {
	resp, err := c.send(ctx, http.MethodGet, pathPlugins, "", nil)
	if err != nil {
		return PluginLists{}, err
	}
	if !resp.ok() {
		return PluginLists{}, resp.statusError(http.MethodGet, pathPlugins)
	}
	if !gjson.ValidBytes(resp.body) {
		return PluginLists{}, fmt.Errorf("decode %s: invalid json", pathPlugins)
	}
	root := gjson.ParseBytes(resp.body)
	if !root.IsArray() {
		return PluginLists{}, fmt.Errorf("decode %s: expected an array", pathPlugins)
	}

	var request, response gjson.Result
	root.ForEach(func(_, item gjson.Result) bool {
		if v := item.Get("request_plugins_list"); v.Exists() && !request.Exists() {
			request = v
		}
		if v := item.Get("response_plugins_list"); v.Exists() && !response.Exists() {
			response = v
		}
		return true
	})

	lists := PluginLists{
		Request:  stringArray(request),
		Response: stringArray(response),
	}
	if !request.IsArray() || !response.IsArray() {
		return lists, ErrIncompleteLists
	}
	return lists, nil
}

// UploadPlugin sends a plugin source file as multipart form field "file".
func (c *Client) UploadPlugin(ctx context.Context, filename string, src io.Reader) error {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	header.Set("Content-Type", "text/x-python")
	part, err := form.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy plugin file: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, pathPlugins, form.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return resp.statusError(http.MethodPost, pathPlugins)
	}
	return nil
}

// DeletePlugin removes a plugin file and drops it from both stages server side.
func (c *Client) DeletePlugin(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodDelete, pathPlugins, pluginBody{PluginName: name}, nil)
}

// SavePluginOrder overwrites both stages on the server.
func (c *Client) SavePluginOrder(ctx context.Context, lists PluginLists) error {
	if lists.Request == nil {
		lists.Request = []string{}
	}
	if lists.Response == nil {
		lists.Response = []string{}
	}
	return c.doJSON(ctx, http.MethodPut, pathPlugins, lists, nil)
}

func stringArray(value gjson.Result) []string {
	if !value.IsArray() {
		return []string{}
	}
	items := value.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}
	return out
}
