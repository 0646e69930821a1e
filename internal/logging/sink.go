package logging

import "time"

// ProxyLogRecord is one proxied AI request, written to S3 as JSON Lines.
type ProxyLogRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
	UserID     string    `json:"user_id"`
	Endpoint   string    `json:"endpoint"`
	Provider   string    `json:"provider,omitempty"`
	Model      string    `json:"model,omitempty"`
	StatusCode int       `json:"status_code"`
	TokensUsed int       `json:"tokens_used"`
	GatewayMs  int64     `json:"gateway_ms"`
	Error      string    `json:"error,omitempty"`
}

// Sink receives log records from the HTTP layer. Enqueue must never block
// the request path.
type Sink interface {
	Enqueue(rec *ProxyLogRecord)
	Close()
}

// NoopSink discards records; used when the log sink is disabled.
type NoopSink struct{}

func NewNoopSink() *NoopSink { return &NoopSink{} }

func (s *NoopSink) Enqueue(rec *ProxyLogRecord) {}

func (s *NoopSink) Close() {}
