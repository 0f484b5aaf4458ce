package domain

// ============================================================
// Health & client metrics
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	Detail      string `json:"detail,omitempty"`
	LastChecked string `json:"lastChecked"`
}

// ClientMetrics summarises this client's own counters for the admin dashboard.
type ClientMetrics struct {
	BackendCalls  int64   `json:"backendCalls"`
	BackendErrors int64   `json:"backendErrors"`
	ErrorRate     float64 `json:"errorRate"`
	CacheHits     int64   `json:"cacheHits"`
	CacheMisses   int64   `json:"cacheMisses"`
	CacheHitRate  float64 `json:"cacheHitRate"`
	LoginSuccess  int64   `json:"loginSuccess"`
	LoginFailure  int64   `json:"loginFailure"`
}
