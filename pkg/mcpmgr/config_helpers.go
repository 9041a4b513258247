package mcpmgr

// Lightweight helpers for branching on a descriptor's transport without a
// switch at every call site.

// TransportOf returns the effective transport kind for a descriptor,
// defaulting an empty value to TransportLocalProcess.
func TransportOf(d ServerDescriptor) TransportKind {
	if d.Transport == "" {
		return TransportLocalProcess
	}
	return d.Transport
}

// IsNetworkStream reports whether d connects to a remote endpoint.
func IsNetworkStream(d ServerDescriptor) bool {
	return TransportOf(d) == TransportNetworkStream
}

// parseTransport maps config-file transport spellings onto a TransportKind.
// The second return value reports whether Streamable HTTP should be tried
// before SSE.
func parseTransport(raw string) (TransportKind, bool, bool) {
	switch raw {
	case "", "stdio":
		return TransportLocalProcess, false, true
	case "sse":
		return TransportNetworkStream, false, true
	case "http", "streamable-http":
		return TransportNetworkStream, true, true
	default:
		return TransportKind(raw), false, false
	}
}

// findDescriptor looks name up in descriptors.
func findDescriptor(descriptors []ServerDescriptor, name string) (ServerDescriptor, bool) {
	for _, d := range descriptors {
		if d.Name == name {
			return d, true
		}
	}
	return ServerDescriptor{}, false
}

func descriptorNames(descriptors []ServerDescriptor) []string {
	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		names = append(names, d.Name)
	}
	return names
}
