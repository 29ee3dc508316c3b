package telemetry

// Config configures tracing.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector, e.g. "localhost:4317".
	Endpoint string
	Insecure bool

	// SampleRate is the fraction of runs traced, 0 to 1.
	SampleRate float64

	// Attributes are added to the resource of every span, e.g. the share
	// being processed.
	Attributes map[string]string
}

// DefaultConfig returns tracing disabled with a local collector endpoint.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "kidwatch",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
