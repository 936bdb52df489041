package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestNewValidates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"no endpoint", Config{Bucket: "b", Key: "k"}, "endpoint is required"},
		{"no key", Config{Endpoint: "localhost:9000", Bucket: "b"}, "bucket and key are required"},
		{"bad url", Config{Endpoint: "https://", Bucket: "b", Key: "k"}, "has no host"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tc.cfg)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("New() error = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestParseEndpoint(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw        string
		ssl        bool
		wantHost   string
		wantSecure bool
	}{
		{"minio:9000", false, "minio:9000", false},
		{"minio:9000", true, "minio:9000", true},
		{"https://s3.example.com", false, "s3.example.com", true},
		{"http://127.0.0.1:9000", false, "127.0.0.1:9000", false},
	}
	for _, tc := range cases {
		host, secure, err := parseEndpoint(tc.raw, tc.ssl)
		if err != nil {
			t.Fatalf("parseEndpoint(%q) error = %v", tc.raw, err)
		}
		if host != tc.wantHost || secure != tc.wantSecure {
			t.Errorf("parseEndpoint(%q, %v) = (%q, %v), want (%q, %v)",
				tc.raw, tc.ssl, host, secure, tc.wantHost, tc.wantSecure)
		}
	}
}

// fakeS3 serves one object with path-style addressing.
func fakeS3(t *testing.T, bucket, key, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/"+bucket+"/"+key {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method != http.MethodHead {
				_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			}
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("ETag", `"0123456789abcdef"`)
		w.Header().Set("Last-Modified", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_, _ = io.WriteString(w, body)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenStreamsObject(t *testing.T) {
	t.Parallel()

	const body = "id,name\n1,a\n"
	srv := fakeS3(t, "imports", "people.csv", body)

	obj, err := New(Config{
		Endpoint:  srv.URL,
		AccessKey: "ak",
		SecretKey: "sk",
		Region:    "us-east-1",
		Bucket:    "imports",
		Key:       "people.csv",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rc, err := obj.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != body {
		t.Fatalf("body = %q, want %q", got, body)
	}
}

func TestOpenMissingObject(t *testing.T) {
	t.Parallel()

	srv := fakeS3(t, "imports", "people.csv", "x")
	obj, err := New(Config{
		Endpoint:  srv.URL,
		AccessKey: "ak",
		SecretKey: "sk",
		Region:    "us-east-1",
		Bucket:    "imports",
		Key:       "other.csv",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := obj.Open(context.Background()); err == nil {
		t.Fatalf("Open(missing) error = nil")
	}
}
