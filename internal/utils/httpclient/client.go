// Package httpclient builds the outbound HTTP clients used to talk to OpenRouter.
// Both the catalog client (resty) and the chat-completions client (openai-go) sit on
// top of the same proxy-aware *http.Client.
package httpclient

import (
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// UserAgent is sent on every catalog request
const UserAgent = "openrouter-models/1.0"

// ProxyEnvironmentVariables defines the order of preference for proxy environment variables,
// following the conventions used by curl and wget
var ProxyEnvironmentVariables = []string{
	"HTTPS_PROXY",
	"https_proxy",
	"HTTP_PROXY",
	"http_proxy",
}

// NewHTTPClient creates an HTTP client with the given timeout. A proxy is configured
// only when one of ProxyEnvironmentVariables is set. logger may be nil.
func NewHTTPClient(timeout time.Duration, logger *logrus.Logger) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL := getProxyURL(); proxyURL != "" {
		if parsedProxy, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsedProxy)
			if logger != nil {
				logger.WithField("proxy_url", redactProxyCredentials(proxyURL)).Debug("HTTP client configured with proxy")
			}
		} else if logger != nil {
			logger.WithError(err).WithField("proxy_url", redactProxyCredentials(proxyURL)).Warn("Failed to parse proxy URL, using direct connection")
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// NewRestyClient wraps NewHTTPClient in a resty client that logs every response at
// debug level under the given client name
func NewRestyClient(clientName string, timeout time.Duration, logger *logrus.Logger) *resty.Client {
	client := resty.NewWithClient(NewHTTPClient(timeout, logger))
	client.SetHeader("User-Agent", UserAgent)

	if logger == nil {
		return client
	}

	client.AddResponseMiddleware(func(c *resty.Client, r *resty.Response) error {
		fields := logrus.Fields{
			"client":  clientName,
			"status":  r.StatusCode(),
			"latency": r.Duration().String(),
		}
		if raw := r.Request.RawRequest; raw != nil {
			fields["method"] = raw.Method
			fields["path"] = raw.URL.Path
		}
		logger.WithFields(fields).Debug("HTTP client request")
		return nil
	})

	return client
}

// getProxyURL returns the first usable proxy URL from the environment, or ""
func getProxyURL() string {
	for _, envVar := range ProxyEnvironmentVariables {
		if proxyURL := os.Getenv(envVar); proxyURL != "" {
			// Skip placeholder values that some tools use
			if proxyURL != "$HTTPS_PROXY" && proxyURL != "$HTTP_PROXY" {
				return proxyURL
			}
		}
	}
	return ""
}

// redactProxyCredentials removes credentials from proxy URL for safe logging
func redactProxyCredentials(proxyURL string) string {
	if parsed, err := url.Parse(proxyURL); err == nil {
		if parsed.User != nil {
			parsed.User = url.UserPassword("***", "***")
		}
		return parsed.String()
	}
	return "[invalid-url]"
}
