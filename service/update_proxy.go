package service

import (
	"context"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"zodiac/database"
)

const updateProxySettingKey = "update_proxy_url"

// ProxyEnv holds the proxy-related environment variables in effect.
type ProxyEnv struct {
	HTTPProxy  string
	HTTPSProxy string
	AllProxy   string
	NoProxy    string
}

func ReadProxyEnv() ProxyEnv {
	httpProxy := strings.TrimSpace(os.Getenv("HTTP_PROXY"))
	if httpProxy == "" {
		httpProxy = strings.TrimSpace(os.Getenv("http_proxy"))
	}
	httpsProxy := strings.TrimSpace(os.Getenv("HTTPS_PROXY"))
	if httpsProxy == "" {
		httpsProxy = strings.TrimSpace(os.Getenv("https_proxy"))
	}
	noProxy := strings.TrimSpace(os.Getenv("NO_PROXY"))
	if noProxy == "" {
		noProxy = strings.TrimSpace(os.Getenv("no_proxy"))
	}
	allProxy := strings.TrimSpace(os.Getenv("ALL_PROXY"))
	if allProxy == "" {
		allProxy = strings.TrimSpace(os.Getenv("all_proxy"))
	}
	return ProxyEnv{
		HTTPProxy:  httpProxy,
		HTTPSProxy: httpsProxy,
		AllProxy:   allProxy,
		NoProxy:    noProxy,
	}
}

func ChooseEffectiveProxy(manual string, env ProxyEnv) (effective, source string) {
	if strings.TrimSpace(manual) != "" {
		return manual, "manual"
	}
	if strings.TrimSpace(env.HTTPSProxy) != "" {
		return env.HTTPSProxy, "env"
	}
	if strings.TrimSpace(env.HTTPProxy) != "" {
		return env.HTTPProxy, "env"
	}
	if strings.TrimSpace(env.AllProxy) != "" {
		return env.AllProxy, "env"
	}
	return "", "none"
}

func ManualUpdateProxyURL() (string, bool) {
	v, ok, err := database.GetSetting(updateProxySettingKey)
	if err != nil {
		return "", false
	}
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// SetManualUpdateProxyURL persists a manual proxy URL for update HTTP
// requests. An empty value clears it.
func SetManualUpdateProxyURL(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return database.DeleteSetting(updateProxySettingKey)
	}
	return database.SetSetting(updateProxySettingKey, value)
}

// RedactProxy strips credentials from a proxy URL for logging.
func RedactProxy(raw string) string {
	if raw == "" {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.User == nil {
		return raw
	}
	parsed.User = nil
	return parsed.String()
}

func logProxyEnv(prefix string) {
	manual, _ := ManualUpdateProxyURL()
	env := ReadProxyEnv()

	if manual == "" && env.HTTPProxy == "" && env.HTTPSProxy == "" && env.AllProxy == "" && env.NoProxy == "" {
		log.Printf("%s proxy: (none)", prefix)
		return
	}
	log.Printf(
		"%s proxy: manual=%s HTTP_PROXY=%s HTTPS_PROXY=%s ALL_PROXY=%s NO_PROXY=%s",
		prefix,
		RedactProxy(manual),
		RedactProxy(env.HTTPProxy),
		RedactProxy(env.HTTPSProxy),
		RedactProxy(env.AllProxy),
		env.NoProxy,
	)
}

// NewUpdateHTTPClient builds an HTTP client honoring the manual proxy
// setting first, then the environment proxies. SOCKS5 proxies need a
// custom dialer because net/http's Proxy field only speaks HTTP CONNECT.
func NewUpdateHTTPClient(timeout time.Duration) *http.Client {
	manual, _ := ManualUpdateProxyURL()
	env := ReadProxyEnv()
	effective, _ := ChooseEffectiveProxy(manual, env)

	base, okType := http.DefaultTransport.(*http.Transport)
	var tr *http.Transport
	if okType {
		tr = base.Clone()
	} else {
		tr = &http.Transport{}
	}

	if strings.TrimSpace(effective) == "" {
		tr.Proxy = http.ProxyFromEnvironment
		return &http.Client{
			Timeout:   timeout,
			Transport: tr,
		}
	}

	pu, err := url.Parse(effective)
	if err != nil {
		tr.Proxy = http.ProxyFromEnvironment
		return &http.Client{
			Timeout:   timeout,
			Transport: tr,
		}
	}

	switch strings.ToLower(pu.Scheme) {
	case "http", "https":
		tr.Proxy = http.ProxyURL(pu)
	case "socks5", "socks5h":
		tr.Proxy = nil
		if strings.EqualFold(pu.Scheme, "socks5h") {
			pu.Scheme = "socks5"
		}
		dialer, err := proxy.FromURL(pu, proxy.Direct)
		if err == nil {
			tr.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				type dialContext interface {
					DialContext(context.Context, string, string) (net.Conn, error)
				}
				if dctx, ok := dialer.(dialContext); ok {
					return dctx.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			}
		}
	default:
		tr.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: tr,
	}
}
