package client

import "testing"

func TestStreamURL(t *testing.T) {
	tests := []struct {
		name    string
		page    string
		want    string
		wantErr bool
	}{
		{name: "http maps to ws", page: "http://example.com/index.html", want: "ws://example.com/stream"},
		{name: "https maps to wss", page: "https://example.com/", want: "wss://example.com/stream"},
		{name: "port kept", page: "http://localhost:8000", want: "ws://localhost:8000/stream"},
		{name: "secure port kept", page: "https://example.com:8443/app", want: "wss://example.com:8443/stream"},
		{name: "ipv6 host", page: "http://[::1]:8000/x", want: "ws://[::1]:8000/stream"},
		{name: "upper case scheme", page: "HTTPS://Example.com/", want: "wss://Example.com/stream"},
		{name: "userinfo query and fragment dropped", page: "https://u:p@h:1/a?b#c", want: "wss://h:1/stream"},
		{name: "file scheme maps to ws", page: "file://host/page.html", want: "ws://host/stream"},
		{name: "unparsable", page: "http://[::1", wantErr: true},
		{name: "missing host", page: "/index.html", wantErr: true},
		{name: "empty", page: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StreamURL(tt.page)
			if (err != nil) != tt.wantErr {
				t.Fatalf("StreamURL(%q) err=%v, wantErr %v", tt.page, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("StreamURL(%q) = %q, want %q", tt.page, got, tt.want)
			}
		})
	}
}
