package detector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func servePage(t *testing.T, header http.Header, body string) string {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, vs := range header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts.URL + "/"
}

func localFetcher() *Fetcher {
	return NewFetcher(FetcherOptions{AllowPrivate: true})
}

func TestJSBehaviorDetector(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
		conf int
	}{
		{"miner", `<script src="https://coinhive.com/lib/coinhive.min.js"></script>`, true, 90},
		{"keylogger", `<script>document.onkeypress = function(e){ fetch("/k?c="+e.key) }</script>`, true, 80},
		{"password exfil", `<form><input type="password" id="p"></form><script>navigator.sendBeacon("/x", p.value)</script>`, true, 75},
		{"forced redirect", `<script>window.location.href = "https://elsewhere.example";</script>`, true, 60},
		{"benign", `<html><body><p>Hello</p></body></html>`, false, 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := jsBehaviorDetector{fetcher: localFetcher()}
			ev := detectURL(t, d, servePage(t, nil, tt.body))
			if ev.Detected != tt.want || ev.Confidence != tt.conf {
				t.Errorf("got %+v", ev)
			}
		})
	}
}

func TestExternalResourcesDetector(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
		conf int
	}{
		{"raw ip script", `<script src="http://198.51.100.7/kit.js"></script>`, true, 80},
		{"foreign form", `<form action="https://collector.evil-host.com/submit" method="post"></form>`, true, 75},
		{"foreign iframe", `<iframe src="https://frames.other-site.com/x"></iframe>`, true, 60},
		{"relative resources", `<form action="/login"></form><img src="/logo.png">`, false, 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := externalResourcesDetector{fetcher: localFetcher()}
			ev := detectURL(t, d, servePage(t, nil, tt.body))
			if ev.Detected != tt.want || ev.Confidence != tt.conf {
				t.Errorf("got %+v", ev)
			}
		})
	}
}

func TestMalwarePatternsDetector(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
		conf int
	}{
		{"eval atob", `<script>eval(atob("YWxlcnQoMSk="))</script>`, true, 90},
		{"packer", `<script>eval(function(p,a,c,k,e,d){return p})</script>`, true, 90},
		{"encoded powershell", `<pre>powershell.exe -NoProfile -enc SQBFAFgA</pre>`, true, 90},
		{"auto download", `<meta http-equiv="refresh" content="0; url=/files/setup.exe">`, true, 90},
		{"plain exe link", `<a href="/downloads/tool.exe">Download</a>`, false, 55},
		{"clean", `<p>nothing here</p>`, false, 75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := malwarePatternsDetector{fetcher: localFetcher()}
			ev := detectURL(t, d, servePage(t, nil, tt.body))
			if ev.Detected != tt.want || ev.Confidence != tt.conf {
				t.Errorf("got %+v", ev)
			}
		})
	}
}

func TestSecurityHeadersDetector(t *testing.T) {
	d := securityHeadersDetector{fetcher: localFetcher()}

	ev := detectURL(t, d, servePage(t, nil, "<p>bare</p>"))
	if !ev.Detected || ev.Confidence != 60 {
		t.Errorf("missing headers: got %+v", ev)
	}

	hardened := http.Header{
		"Content-Security-Policy": {"default-src 'self'; frame-ancestors 'none'"},
	}
	ev = detectURL(t, securityHeadersDetector{fetcher: localFetcher()}, servePage(t, hardened, "<p>ok</p>"))
	if ev.Detected {
		t.Errorf("hardened page: got %+v", ev)
	}
}

func TestRedirectDetector(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/js":
			w.Header().Set("Location", "javascript:alert(document.cookie)")
			w.WriteHeader(http.StatusFound)
		case "/ip":
			w.Header().Set("Location", "http://203.0.113.9/landing")
			w.WriteHeader(http.StatusMovedPermanently)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer ts.Close()

	d := redirectDetector{fetcher: localFetcher()}
	if ev := detectURL(t, d, ts.URL+"/js"); !ev.Detected || ev.Confidence != 90 {
		t.Errorf("javascript redirect: got %+v", ev)
	}
	if ev := detectURL(t, d, ts.URL+"/"); ev.Detected {
		t.Errorf("no redirect: got %+v", ev)
	}
	// The test server itself is an IP, so a redirect to another IP is not
	// a domain-to-IP hop.
	if ev := detectURL(t, d, ts.URL+"/ip"); ev.Detected {
		t.Errorf("ip to ip redirect: got %+v", ev)
	}
}

func TestLiveCollectorsDegradeWhenOffline(t *testing.T) {
	offline := NewFetcher(FetcherOptions{Offline: true})
	for _, d := range []Detector{
		redirectDetector{fetcher: offline},
		jsBehaviorDetector{fetcher: offline},
		externalResourcesDetector{fetcher: offline},
		malwarePatternsDetector{fetcher: offline},
		securityHeadersDetector{fetcher: offline},
	} {
		ev := detectURL(t, d, "https://example.com/")
		src := Stamp(d.Info(), ev)
		if src.Detected || src.IsReal {
			t.Errorf("%s: expected degraded source, got %+v", src.ID, src)
		}
		if !strings.Contains(src.Reason, "could not be fetched") {
			t.Errorf("%s: unexpected reason %q", src.ID, src.Reason)
		}
	}
}

func TestFetcherRefusesPrivateTargets(t *testing.T) {
	f := NewFetcher(FetcherOptions{})
	_, err := f.Page(context.Background(), "http://127.0.0.1:9/")
	if !errors.Is(err, ErrPrivateTarget) {
		t.Fatalf("expected ErrPrivateTarget, got %v", err)
	}
}

func TestFetcherSharesPages(t *testing.T) {
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("<p>once</p>"))
	}))
	defer ts.Close()

	f := localFetcher()
	for i := 0; i < 3; i++ {
		if _, err := f.Page(context.Background(), ts.URL); err != nil {
			t.Fatalf("page: %v", err)
		}
	}
	if hits != 1 {
		t.Errorf("expected one download, got %d", hits)
	}
}

func TestIsPrivateIP(t *testing.T) {
	for ip, want := range map[string]bool{
		"10.0.0.1":      true,
		"127.0.0.1":     true,
		"169.254.1.1":   true,
		"100.64.0.1":    true,
		"192.0.0.8":     true,
		"198.18.0.1":    true,
		"8.8.8.8":       false,
		"203.0.113.10":  false,
		"not-an-ip":     false,
		"::1":           true,
		"2001:4860::88": false,
	} {
		if got := IsPrivateIP(ip); got != want {
			t.Errorf("IsPrivateIP(%q): got %v, want %v", ip, got, want)
		}
	}
}
