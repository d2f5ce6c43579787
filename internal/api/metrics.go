package api

import (
	"sync/atomic"
	"time"
)

// Metrics collects in-memory server metrics using atomic counters.
type Metrics struct {
	startTime     time.Time
	requests      atomic.Int64
	serverErrors  atomic.Int64
	clientErrors  atomic.Int64
	logins        atomic.Int64
	loginFailures atomic.Int64
	registrations atomic.Int64
}

// MetricsSnapshot is a point-in-time view of server metrics.
type MetricsSnapshot struct {
	UptimeSeconds float64 `json:"uptimeSeconds"`
	Requests      int64   `json:"requests"`
	ServerErrors  int64   `json:"serverErrors"`
	ClientErrors  int64   `json:"clientErrors"`
	Logins        int64   `json:"logins"`
	LoginFailures int64   `json:"loginFailures"`
	Registrations int64   `json:"registrations"`
}

// NewMetrics creates a new Metrics instance with the current time as start.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordRequest increments the total request counter.
func (m *Metrics) RecordRequest() {
	m.requests.Add(1)
}

// RecordError increments the server error (5xx) counter.
func (m *Metrics) RecordError() {
	m.serverErrors.Add(1)
}

// RecordClientError increments the client error (4xx) counter.
func (m *Metrics) RecordClientError() {
	m.clientErrors.Add(1)
}

// RecordLogin counts a login attempt by outcome.
func (m *Metrics) RecordLogin(ok bool) {
	if ok {
		m.logins.Add(1)
	} else {
		m.loginFailures.Add(1)
	}
}

// RecordRegistration increments the registration counter.
func (m *Metrics) RecordRegistration() {
	m.registrations.Add(1)
}

// Snapshot returns a point-in-time copy of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		UptimeSeconds: time.Since(m.startTime).Seconds(),
		Requests:      m.requests.Load(),
		ServerErrors:  m.serverErrors.Load(),
		ClientErrors:  m.clientErrors.Load(),
		Logins:        m.logins.Load(),
		LoginFailures: m.loginFailures.Load(),
		Registrations: m.registrations.Load(),
	}
}
