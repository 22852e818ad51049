package core

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"inventory/logger"

	"github.com/andybalholm/brotli"
)

const maxRedirects = 5

// Fetcher downloads remote files on behalf of a user. Unless private
// networks are allowed, every address it connects to is checked, including
// redirect targets and re-resolved DNS names.
type Fetcher struct {
	client       *http.Client
	resolver     *net.Resolver
	allowPrivate bool
}

func NewFetcher(timeout time.Duration, allowPrivate bool) *Fetcher {
	f := &Fetcher{resolver: net.DefaultResolver, allowPrivate: allowPrivate}
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: func(network, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if ip := net.ParseIP(host); ip == nil || !f.allowedIP(ip) {
				return fmt.Errorf("%w: %s", ErrUnsafeURL, host)
			}
			return nil
		},
	}
	f.client = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               nil,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return fmt.Errorf("%w: redirect to %s", ErrInvalidURL, req.URL.Scheme)
			}
			return nil
		},
	}
	return f
}

func (f *Fetcher) allowedIP(ip net.IP) bool {
	if f.allowPrivate {
		return true
	}
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast())
}

// ParseFetchURL accepts absolute http and https URLs only.
func ParseFetchURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}

// checkHost resolves the host up front so an unsafe target is reported as
// such instead of as a generic connection failure.
func (f *Fetcher) checkHost(ctx context.Context, host string) error {
	if f.allowPrivate {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil {
		if !f.allowedIP(ip) {
			return fmt.Errorf("%w: %s", ErrUnsafeURL, host)
		}
		return nil
	}
	addrs, err := f.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("%w: resolving %s: %v", ErrFetchFailed, host, err)
	}
	for _, a := range addrs {
		if !f.allowedIP(a.IP) {
			return fmt.Errorf("%w: %s resolves to %s", ErrUnsafeURL, host, a.IP)
		}
	}
	return nil
}

// Fetch GETs u and returns the decoded body. Read errors from the body are
// reported as ErrFetchFailed.
func (f *Fetcher) Fetch(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	if err := f.checkHost(ctx, u.Hostname()); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", "inventory-datasheet-fetcher/1.0")
	req.Header.Set("Accept-Encoding", "br, gzip")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrUnsafeURL) || errors.Is(err, ErrInvalidURL) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: remote answered %s", ErrFetchFailed, resp.Status)
	}

	fb := &fetchBody{r: resp.Body, c: []io.Closer{resp.Body}}
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "br":
		logger.Debug("Fetch: decoding brotli body from %s", u.Host)
		fb.r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: bad gzip stream: %v", ErrFetchFailed, err)
		}
		fb.r = gz
		fb.c = []io.Closer{gz, resp.Body}
	}
	return fb, nil
}

type fetchBody struct {
	r io.Reader
	c []io.Closer
}

func (b *fetchBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return n, err
}

// Close closes the decoder, if any, and then the response body.
func (b *fetchBody) Close() error {
	var errs []error
	for _, c := range b.c {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// datasheetExtension takes the extension from the URL path, defaulting to pdf.
func datasheetExtension(u *url.URL) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if ext == "" {
		return "pdf"
	}
	return ext
}

// SaveDatasheetFromURL downloads a document and stores it like an upload.
func (u *Uploader) SaveDatasheetFromURL(ctx context.Context, rawURL string) (string, error) {
	target, err := ParseFetchURL(rawURL)
	if err != nil {
		return "", err
	}
	ext := datasheetExtension(target)
	if !slices.Contains(u.cfg.AllowedDatasheetExtensions, ext) {
		return "", fmt.Errorf("%w: .%s", ErrInvalidFileType, ext)
	}

	body, err := u.fetcher.Fetch(ctx, target)
	if err != nil {
		logger.Warn("SaveDatasheetFromURL: %s: %v", target.Redacted(), err)
		return "", err
	}
	defer body.Close()

	filename := u.uniqueFilename("." + ext)
	if err := u.writeFile(filepath.Join(u.cfg.DatasheetsDir, filename), body); err != nil {
		return "", err
	}
	logger.Info("Stored datasheet %s from %s", filename, target.Redacted())
	return filename, nil
}
