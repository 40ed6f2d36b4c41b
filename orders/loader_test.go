package orders

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/use-agent/orderbot/config"
	"github.com/use-agent/orderbot/models"
)

const twoOrders = "Order number,Head,Body,Legs,Address\n" +
	"1,2,3,4,1 Main St\n" +
	"2,5,1,7,\"2 Oak Ave\"\n"

func TestParse_PreservesOrderAndHeaders(t *testing.T) {
	in := "Order number,Head,Body,Legs,Address,Note\n" +
		"10,1,2,3,\"Street 1, Town\",first\n" +
		"3,6,6,9,Road 2,\n"

	got, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	want := []models.Order{
		{
			Row: 1, Number: "10", Head: "1", Body: "2", Legs: "3", Address: "Street 1, Town",
			Columns: map[string]string{
				"Order number": "10", "Head": "1", "Body": "2", "Legs": "3",
				"Address": "Street 1, Town", "Note": "first",
			},
		},
		{
			Row: 2, Number: "3", Head: "6", Body: "6", Legs: "9", Address: "Road 2",
			Columns: map[string]string{
				"Order number": "3", "Head": "6", "Body": "6", "Legs": "9",
				"Address": "Road 2", "Note": "",
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_StripsBOM(t *testing.T) {
	got, err := Parse(strings.NewReader("\ufeff" + twoOrders))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got[0].Number != "1" {
		t.Errorf("Number = %q, want 1", got[0].Number)
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	got, err := Parse(strings.NewReader("Order number,Head,Body,Legs,Address\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d orders, want 0", len(got))
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"missing column", "Order number,Head,Body,Legs\n1,2,3,4\n"},
		{"duplicate column", "Order number,Head,Head,Body,Legs,Address\n1,2,2,3,4,x\n"},
		{"short row", "Order number,Head,Body,Legs,Address\n1,2,3\n"},
		{"bad quote", "Order number,Head,Body,Legs,Address\n1,2,3,4,\"unterminated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.in)); err == nil {
				t.Error("Parse() should fail")
			}
		})
	}
}

func TestLoader_DownloadsAndOverwrites(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent header")
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(twoOrders))
	}))
	defer srv.Close()

	file := filepath.Join(t.TempDir(), "orders.csv")
	if err := os.WriteFile(file, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(config.OrdersConfig{URL: srv.URL + "/orders.csv", File: file}, 5*time.Second)
	got, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(got) != 2 || got[1].Address != "2 Oak Ave" {
		t.Errorf("unexpected orders: %+v", got)
	}

	saved, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if string(saved) != twoOrders {
		t.Errorf("saved file = %q, want downloaded body", saved)
	}
}

func TestLoader_DownloadFailureWritesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	file := filepath.Join(t.TempDir(), "orders.csv")
	l := NewLoader(config.OrdersConfig{URL: srv.URL, File: file}, 5*time.Second)

	_, err := l.Load(context.Background())
	if err == nil {
		t.Fatal("Load() should fail on HTTP 404")
	}
	if code := models.CodeOf(err); code != models.ErrCodeDownload {
		t.Errorf("code = %q, want %q", code, models.ErrCodeDownload)
	}
	if _, statErr := os.Stat(file); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("orders file should not exist, stat error: %v", statErr)
	}
}

func TestLoader_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	l := NewLoader(config.OrdersConfig{URL: url, File: filepath.Join(t.TempDir(), "o.csv")}, time.Second)
	if _, err := l.Load(context.Background()); models.CodeOf(err) != models.ErrCodeDownload {
		t.Errorf("Load() error = %v, want %s", err, models.ErrCodeDownload)
	}
}

func TestLoader_ParseFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not csv</html>"))
	}))
	defer srv.Close()

	l := NewLoader(config.OrdersConfig{URL: srv.URL, File: filepath.Join(t.TempDir(), "o.csv")}, time.Second)
	if _, err := l.Load(context.Background()); models.CodeOf(err) != models.ErrCodeParse {
		t.Errorf("Load() error = %v, want %s", err, models.ErrCodeParse)
	}
}

func TestNewDownloader_Proxy(t *testing.T) {
	tests := []struct {
		proxy     string
		httpProxy bool
	}{
		{"", false},
		{"http://127.0.0.1:3128", true},
		{"socks5://127.0.0.1:1080", false},
		{"::not a url", false},
	}
	for _, tt := range tests {
		d := newDownloader(tt.proxy)
		tr, ok := d.client.Transport.(*http.Transport)
		if !ok {
			t.Fatalf("newDownloader(%q): transport is %T", tt.proxy, d.client.Transport)
		}
		if got := tr.Proxy != nil; got != tt.httpProxy {
			t.Errorf("newDownloader(%q): http proxy set = %v, want %v", tt.proxy, got, tt.httpProxy)
		}
		if tr.DialContext == nil || tr.DialTLSContext == nil {
			t.Errorf("newDownloader(%q): dialers not installed", tt.proxy)
		}
	}
}
