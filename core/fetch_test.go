package core

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

var pdfBody = []byte("%PDF-1.4 fake datasheet body")

func datasheetServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/plain.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfBody)
	})
	mux.HandleFunc("/brotli.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		bw.Write(pdfBody)
		bw.Close()
	})
	mux.HandleFunc("/gzip.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gw := gzip.NewWriter(w)
		gw.Write(pdfBody)
		gw.Close()
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfBody)
	})
	mux.HandleFunc("/huge.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("x"), 128*1024))
	})
	mux.HandleFunc("/redirect.pdf", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/plain.pdf", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSaveDatasheetFromURL(t *testing.T) {
	srv := datasheetServer(t)
	cfg := testUploadConfig(t)
	cfg.AllowPrivateNetworks = true
	u := NewUploader(cfg)

	for _, p := range []string{"/plain.pdf", "/brotli.pdf", "/gzip.pdf", "/download", "/redirect.pdf"} {
		t.Run(p, func(t *testing.T) {
			name, err := u.SaveDatasheetFromURL(context.Background(), srv.URL+p)
			if err != nil {
				t.Fatalf("fetch: %v", err)
			}
			if filepath.Ext(name) != ".pdf" {
				t.Fatalf("extension of %q, want .pdf", name)
			}
			got, err := os.ReadFile(filepath.Join(cfg.DatasheetsDir, name))
			if err != nil {
				t.Fatalf("read stored file: %v", err)
			}
			if !bytes.Equal(got, pdfBody) {
				t.Fatalf("stored body = %q", got)
			}
		})
	}
}

func TestSaveDatasheetFromURLFailures(t *testing.T) {
	srv := datasheetServer(t)
	cfg := testUploadConfig(t)
	cfg.AllowPrivateNetworks = true
	u := NewUploader(cfg)

	tests := []struct {
		url  string
		want error
	}{
		{srv.URL + "/missing.pdf", ErrFetchFailed},
		{srv.URL + "/huge.pdf", ErrFileTooLarge},
		{srv.URL + "/tool.exe", ErrInvalidFileType},
		{"ftp://example.com/a.pdf", ErrInvalidURL},
		{"not a url", ErrInvalidURL},
		{"/relative.pdf", ErrInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if _, err := u.SaveDatasheetFromURL(context.Background(), tt.url); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
	if n := len(dirEntries(t, cfg.DatasheetsDir)); n != 0 {
		t.Fatalf("failed downloads left %d files", n)
	}
}

func TestFetchRejectsPrivateTargets(t *testing.T) {
	srv := datasheetServer(t)
	cfg := testUploadConfig(t)
	u := NewUploader(cfg)

	for _, target := range []string{
		srv.URL + "/plain.pdf",
		"http://10.1.2.3/a.pdf",
		"http://192.168.0.1/a.pdf",
		"http://169.254.169.254/latest/meta-data.pdf",
		"http://[::1]/a.pdf",
		"http://0.0.0.0/a.pdf",
	} {
		t.Run(target, func(t *testing.T) {
			if _, err := u.SaveDatasheetFromURL(context.Background(), target); !errors.Is(err, ErrUnsafeURL) {
				t.Fatalf("got %v, want ErrUnsafeURL", err)
			}
		})
	}
}

func TestDialerBlocksRedirectToPrivateAddress(t *testing.T) {
	f := NewFetcher(0, false)
	u, err := ParseFetchURL("http://127.0.0.1:1/a.pdf")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	// Skip the up-front check to exercise the dial-time guard alone.
	req, _ := http.NewRequest(http.MethodGet, u.String(), nil)
	_, err = f.client.Do(req)
	if !errors.Is(err, ErrUnsafeURL) {
		t.Fatalf("got %v, want ErrUnsafeURL from dialer", err)
	}
}

type recordingCloser struct {
	name  string
	order *[]string
	err   error
}

func (c recordingCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func TestFetchBodyClosesDecoderAndResponse(t *testing.T) {
	var order []string
	boom := errors.New("boom")
	b := &fetchBody{
		r: strings.NewReader(""),
		c: []io.Closer{
			recordingCloser{name: "gzip", order: &order, err: boom},
			recordingCloser{name: "body", order: &order},
		},
	}
	if err := b.Close(); !errors.Is(err, boom) {
		t.Errorf("Close err = %v, want boom", err)
	}
	if strings.Join(order, ",") != "gzip,body" {
		t.Errorf("close order = %v, want gzip then body", order)
	}
}
