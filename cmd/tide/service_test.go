package tide

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<data><metadata id="9410170" name="San Diego, San Diego Bay" lat="32.7142" lon="-117.1736"/>
<observations><wl t="2025-06-01 18:42" v="4.321" s="0.020" f="0,0,0,0" q="p"/></observations></data>`

func TestParseHeight(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    float64
		wantErr error
	}{
		{"XML", sampleXML, 4.321, nil},
		{"Negative", `<wl v="-0.57" />`, -0.57, nil},
		{"Exponent", `v="1.5e0"`, 1.5, nil},
		{"NoMarker", `<error>No data was found</error>`, 0, ErrParse},
		{"EmptyValue", `<wl v="" />`, 0, ErrParse},
		{"Malformed", `<wl v="1.2.3" />`, 0, ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeight(tt.body, `v="`)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHeight() err=%v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestNoaaService_Fetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(sampleXML))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	h, err := NewService(cfg).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() err=%v", err)
	}
	if h != 4.321 {
		t.Fatalf("height = %v, want 4.321", h)
	}
	for _, want := range []string{"station=9410170", "product=water_level", "datum=MLLW", "date=latest", "format=xml"} {
		if !strings.Contains(gotQuery, want) {
			t.Fatalf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestNoaaService_FetchErrors(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer notFound.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = notFound.URL
	if _, err := NewService(cfg).Fetch(context.Background()); !errors.Is(err, ErrConnectivity) {
		t.Fatalf("expected ErrConnectivity for 503, got %v", err)
	}

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"No data was found."}}`))
	}))
	defer garbage.Close()

	cfg.BaseURL = garbage.URL
	if _, err := NewService(cfg).Fetch(context.Background()); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestNoaaService_TimeoutIsBounded(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	cfg := DefaultConfig()
	cfg.BaseURL = slow.URL
	cfg.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := NewService(cfg).Fetch(context.Background())
	if !errors.Is(err, ErrConnectivity) {
		t.Fatalf("expected ErrConnectivity, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("fetch took %s, timeout not applied", elapsed)
	}
}
