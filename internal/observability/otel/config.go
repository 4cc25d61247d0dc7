// Package otel exports hardenplan spans over OTLP. Nothing is exported
// unless --otel is given.
package otel

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

const (
	ProtocolHTTP = "otlphttp"
	ProtocolGRPC = "otlpgrpc"
)

const (
	envEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envServiceName = "OTEL_SERVICE_NAME"

	defaultServiceName  = "hardenplan"
	defaultGRPCEndpoint = "localhost:4317"
	defaultHTTPEndpoint = "localhost:4318"
)

// Config of the trace exporter.
type Config struct {
	Enabled bool
	// Endpoint is host:port, or an http(s) URL whose scheme picks TLS.
	Endpoint    string
	Protocol    string
	Insecure    bool
	ServiceName string
	SampleRatio float64
}

// DefaultConfig has tracing off; the service name honors OTEL_SERVICE_NAME.
func DefaultConfig() Config {
	name := os.Getenv(envServiceName)
	if name == "" {
		name = defaultServiceName
	}
	return Config{
		Protocol:    ProtocolHTTP,
		ServiceName: name,
		SampleRatio: 1.0,
	}
}

// Validate is a no-op while tracing is disabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	var errs []error
	if c.Protocol != ProtocolHTTP && c.Protocol != ProtocolGRPC {
		errs = append(errs, fmt.Errorf("otel: unknown protocol %q (use %s or %s)", c.Protocol, ProtocolHTTP, ProtocolGRPC))
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("otel: sample ratio %v outside 0..1", c.SampleRatio))
	}
	if c.Endpoint != "" {
		if _, err := parseEndpoint(c.Endpoint); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// endpoint is what both OTLP exporters take: a bare host:port plus TLS choice.
type endpoint struct {
	hostPort string
	insecure bool
}

// parseEndpoint accepts "host:port" or an http/https URL. URL paths are
// dropped; the exporters use their standard signal paths.
func parseEndpoint(raw string) (endpoint, error) {
	if !strings.Contains(raw, "://") {
		if raw == "" || strings.ContainsAny(raw, "/ ") {
			return endpoint{}, fmt.Errorf("otel: invalid endpoint %q", raw)
		}
		return endpoint{hostPort: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return endpoint{}, fmt.Errorf("otel: invalid endpoint %q: %w", raw, err)
	}
	if u.Host == "" {
		return endpoint{}, fmt.Errorf("otel: endpoint %q has no host", raw)
	}
	switch u.Scheme {
	case "http":
		return endpoint{hostPort: u.Host, insecure: true}, nil
	case "https":
		return endpoint{hostPort: u.Host}, nil
	default:
		return endpoint{}, fmt.Errorf("otel: unsupported endpoint scheme %q", u.Scheme)
	}
}

// resolveEndpoint: flag, then OTEL_EXPORTER_OTLP_ENDPOINT, then the local
// collector port of the protocol. --otel-insecure forces plaintext.
func (c Config) resolveEndpoint() (endpoint, error) {
	raw := c.Endpoint
	if raw == "" {
		raw = os.Getenv(envEndpoint)
	}
	if raw == "" {
		raw = defaultHTTPEndpoint
		if c.Protocol == ProtocolGRPC {
			raw = defaultGRPCEndpoint
		}
	}

	ep, err := parseEndpoint(raw)
	if err != nil {
		return endpoint{}, err
	}
	ep.insecure = ep.insecure || c.Insecure
	return ep, nil
}
