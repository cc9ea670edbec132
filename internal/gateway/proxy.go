package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/petlens/core/internal/middleware"
	"github.com/petlens/core/internal/pkg/response"
	"go.uber.org/zap"
)

// Route maps a path prefix to a backend base URL. KeepCookies marks the
// identity prefix: the identity service reads auth cookies itself.
type Route struct {
	Prefix      string
	Target      *url.URL
	KeepCookies bool
}

// hopHeaders are stripped from both directions of a forwarded exchange.
var hopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

// Proxy forwards requests to backend services with header rewriting and
// response envelope normalization.
type Proxy struct {
	routes []Route
	client *http.Client
	log    *zap.Logger
}

// NewProxy builds a proxy over a static prefix table. Order matters: the
// first matching prefix wins.
func NewProxy(routes []Route, client *http.Client, log *zap.Logger) *Proxy {
	if client == nil {
		client = http.DefaultClient
	}
	return &Proxy{routes: routes, client: client, log: log}
}

func (p *Proxy) resolve(path string) *Route {
	for i := range p.routes {
		if strings.HasPrefix(path, p.routes[i].Prefix) {
			return &p.routes[i]
		}
	}
	return nil
}

// Forward proxies the request to the routed backend. Requests with no
// matching prefix receive a normalized 404 envelope.
func (p *Proxy) Forward(c *gin.Context) {
	route := p.resolve(c.Request.URL.Path)
	if route == nil {
		response.NotFound(c, "no route for path")
		return
	}

	outURL := *route.Target
	outURL.Path = strings.TrimSuffix(route.Target.Path, "/") + c.Request.URL.Path
	outURL.RawQuery = c.Request.URL.RawQuery

	req, err := http.NewRequestWithContext(c.Request.Context(),
		c.Request.Method, outURL.String(), c.Request.Body)
	if err != nil {
		response.InternalError(c)
		return
	}
	req.ContentLength = c.Request.ContentLength

	copyRequestHeaders(req, c.Request, route.KeepCookies)
	req.Header.Set(middleware.HeaderRequestID, middleware.CurrentRequestID(c))
	req.Header.Set(middleware.HeaderCorrelationID, middleware.CurrentCorrelationID(c))
	if userID := middleware.CurrentUserID(c); userID != "" {
		req.Header.Set(middleware.HeaderUserID, userID)
		req.Header.Set(middleware.HeaderUserRole, middleware.CurrentUserRole(c))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warn("backend unreachable",
			zap.String("prefix", route.Prefix),
			zap.String("target", route.Target.String()),
			zap.Error(err))
		response.Fail(c, http.StatusServiceUnavailable,
			response.CodeServiceUnavailable, "upstream service unavailable")
		return
	}
	defer resp.Body.Close()

	p.writeResponse(c, resp)
}

func copyRequestHeaders(out *http.Request, in *http.Request, keepCookies bool) {
	for name, values := range in.Header {
		canonical := http.CanonicalHeaderKey(name)
		if canonical == "Host" {
			continue
		}
		if canonical == "Cookie" && !keepCookies {
			continue
		}
		if isHopHeader(canonical) {
			continue
		}
		for _, v := range values {
			out.Header.Add(name, v)
		}
	}
}

func isHopHeader(name string) bool {
	for _, h := range hopHeaders {
		if h == name {
			return true
		}
	}
	return false
}

// writeResponse relays the backend response, preserving each Set-Cookie
// header individually and wrapping non-conforming error bodies into the
// envelope as a last line of defense.
func (p *Proxy) writeResponse(c *gin.Context, resp *http.Response) {
	for _, cookie := range resp.Header.Values("Set-Cookie") {
		c.Writer.Header().Add("Set-Cookie", cookie)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		response.Fail(c, http.StatusBadGateway, response.CodeHTTPError, "upstream read failed")
		return
	}

	if resp.StatusCode >= http.StatusBadRequest && !isEnvelope(body) {
		c.JSON(resp.StatusCode, response.Failure(
			response.CodeHTTPError,
			fmt.Sprintf("upstream returned status %d", resp.StatusCode),
			map[string]interface{}{"status": resp.StatusCode},
		))
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, body)
}

// isEnvelope reports whether body already conforms to the response envelope.
func isEnvelope(body []byte) bool {
	var probe struct {
		Success   *bool  `json:"success"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	return probe.Success != nil && probe.Timestamp != ""
}
