package mcpmgr

import (
	"testing"
)

func TestConfigHelpersDirect(t *testing.T) {
	t.Parallel()

	stdio := ServerDescriptor{Name: "math", Command: "node", Args: []string{"server.js"}}
	stream := ServerDescriptor{Name: "remote", Transport: TransportNetworkStream, URL: "http://localhost:9000/sse"}

	if IsNetworkStream(stdio) {
		t.Fatalf("IsNetworkStream(stdio) = true")
	}
	if !IsNetworkStream(stream) {
		t.Fatalf("IsNetworkStream(sse) = false")
	}
	if TransportOf(stdio) != TransportLocalProcess {
		t.Fatalf("TransportOf(stdio) = %q", TransportOf(stdio))
	}
	if TransportOf(stream) != TransportNetworkStream {
		t.Fatalf("TransportOf(stream) = %q", TransportOf(stream))
	}
}

func TestParseTransport(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw       string
		kind      TransportKind
		streaming bool
		ok        bool
	}{
		{"", TransportLocalProcess, false, true},
		{"stdio", TransportLocalProcess, false, true},
		{"sse", TransportNetworkStream, false, true},
		{"http", TransportNetworkStream, true, true},
		{"streamable-http", TransportNetworkStream, true, true},
		{"websocket", TransportKind("websocket"), false, false},
	}
	for _, tc := range cases {
		kind, streaming, ok := parseTransport(tc.raw)
		if kind != tc.kind || streaming != tc.streaming || ok != tc.ok {
			t.Fatalf("parseTransport(%q) = (%q, %v, %v), want (%q, %v, %v)",
				tc.raw, kind, streaming, ok, tc.kind, tc.streaming, tc.ok)
		}
	}
}

func TestDescriptorCloneIsDeep(t *testing.T) {
	t.Parallel()

	orig := ServerDescriptor{Name: "math", Command: "node", Args: []string{"a"}, Env: map[string]string{"K": "V"}}
	clone := orig.Clone()
	clone.Args[0] = "b"
	clone.Env["K"] = "changed"
	if orig.Args[0] != "a" || orig.Env["K"] != "V" {
		t.Fatalf("Clone shares state with original: %#v", orig)
	}
}
