package middleware

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

// analyticsPayload resembles a dashboard response with long trend columns.
func analyticsPayload(n int) string {
	var b strings.Builder
	b.WriteString(`{"success":true,"data":{"vitalSignsTrends":{"labels":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `"2024-01-%02d"`, i%28+1)
	}
	b.WriteString(`],"heartRate":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%d", 60+i%40)
	}
	b.WriteString(`]}}}`)
	return b.String()
}

func TestNegotiateEncoding(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"gzip", "gzip"},
		{"br", "br"},
		{"gzip, deflate, br", "br"},
		{"br;q=0, gzip", "gzip"},
		{"gzip;q=0", ""},
		{"gzip;q=0.5", "gzip"},
		{"deflate", ""},
	}
	for _, tt := range tests {
		if got := negotiateEncoding(tt.header); got != tt.want {
			t.Errorf("negotiateEncoding(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestCompress(t *testing.T) {
	payload := analyticsPayload(1000)
	handler := Compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))

	tests := []struct {
		name           string
		acceptEncoding string
		wantEncoding   string
		decode         func(io.Reader) (io.Reader, error)
	}{
		{"identity", "", "", func(r io.Reader) (io.Reader, error) { return r, nil }},
		{"gzip", "gzip", "gzip", func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }},
		{"brotli", "gzip, br", "br", func(r io.Reader) (io.Reader, error) { return brotli.NewReader(r), nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/analytics", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if got := rr.Header().Get("Content-Encoding"); got != tt.wantEncoding {
				t.Fatalf("Content-Encoding = %q, want %q", got, tt.wantEncoding)
			}
			compressedSize := rr.Body.Len()

			r, err := tt.decode(rr.Body)
			if err != nil {
				t.Fatalf("decoder: %v", err)
			}
			body, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if string(body) != payload {
				t.Fatal("decoded body does not match payload")
			}

			if tt.wantEncoding != "" {
				if ratio := float64(compressedSize) / float64(len(payload)); ratio > 0.3 {
					t.Errorf("compression ratio %.2f, want <= 0.30", ratio)
				}
			}
		})
	}
}

func TestCompress_BodilessStatusesAreNotEncoded(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusNotModified} {
		handler := Compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		for _, accept := range []string{"gzip", "br"} {
			req := httptest.NewRequest("GET", "/api/patients", nil)
			req.Header.Set("Accept-Encoding", accept)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != status {
				t.Fatalf("status = %d, want %d", rr.Code, status)
			}
			if got := rr.Header().Get("Content-Encoding"); got != "" {
				t.Errorf("%d with %s: Content-Encoding = %q", status, accept, got)
			}
			if rr.Body.Len() != 0 {
				t.Errorf("%d with %s: wrote %d body bytes", status, accept, rr.Body.Len())
			}
		}
	}
}

func TestCompress_SkipsWebsocketUpgrade(t *testing.T) {
	handler := Compress(okHandler())

	req := httptest.NewRequest("GET", "/api/perf/stream", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Upgrade", "websocket")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("Content-Encoding") != "" {
		t.Error("websocket upgrade must not be compressed")
	}
}

func BenchmarkCompress(b *testing.B) {
	payload := []byte(analyticsPayload(2000))
	handler := Compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))

	for _, enc := range []string{"gzip", "br"} {
		b.Run(enc, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				req := httptest.NewRequest("GET", "/api/analytics", nil)
				req.Header.Set("Accept-Encoding", enc)
				handler.ServeHTTP(httptest.NewRecorder(), req)
			}
		})
	}
}
