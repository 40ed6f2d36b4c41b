package orders

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	tls2 "github.com/refraction-networking/utls"
	"golang.org/x/net/proxy"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxCSVBytes caps the orders file size.
const maxCSVBytes = 10 * 1024 * 1024

// downloader fetches the orders file over a transport whose TLS handshake
// carries a Chrome fingerprint, so the CSV request looks like the browser
// that later drives the form.
type downloader struct {
	client *http.Client
}

// newDownloader builds the transport once. proxyAddr may be an http(s) proxy,
// handled by net/http, or a socks5 proxy, handled by the dialer.
func newDownloader(proxyAddr string) *downloader {
	dial := (&net.Dialer{}).DialContext
	transport := &http.Transport{}

	if proxyAddr != "" {
		if u, err := url.Parse(proxyAddr); err == nil {
			switch u.Scheme {
			case "http", "https":
				transport.Proxy = http.ProxyURL(u)
			case "socks5", "socks5h":
				if d, err := proxy.FromURL(u, proxy.Direct); err == nil {
					if cd, ok := d.(proxy.ContextDialer); ok {
						dial = cd.DialContext
					}
				}
			}
		}
	}

	transport.DialContext = dial
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		raw, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		return chromeHandshake(ctx, raw, addr)
	}
	return &downloader{client: &http.Client{Transport: transport}}
}

// fetch retrieves targetURL and returns its body. Any status other than
// 200 is an error.
func (d *downloader) fetch(ctx context.Context, targetURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("download: build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/csv,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: HTTP %d for %s", resp.StatusCode, targetURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCSVBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download: read body: %w", err)
	}
	if len(body) > maxCSVBytes {
		return nil, fmt.Errorf("download: orders file exceeds %d bytes", maxCSVBytes)
	}
	return body, nil
}

// chromeHandshake runs a utls client handshake over raw with a Chrome hello.
// ALPN is pinned to http/1.1: net/http cannot speak h2 over a non-crypto/tls
// connection.
func chromeHandshake(ctx context.Context, raw net.Conn, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	spec, err := tls2.UTLSIdToSpec(tls2.HelloChrome_Auto)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("tls hello spec: %w", err)
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls2.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}

	conn := tls2.UClient(raw, &tls2.Config{ServerName: host}, tls2.HelloCustom)
	if err := conn.ApplyPreset(&spec); err != nil {
		raw.Close()
		return nil, fmt.Errorf("tls hello preset: %w", err)
	}
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", host, err)
	}
	return conn, nil
}
