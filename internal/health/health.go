// Package health reports interface availability and serves health and
// metrics endpoints.
package health

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// InterfaceHealth describes one configured interface class.
type InterfaceHealth struct {
	Class     string   `json:"class"`
	Transport string   `json:"transport"`
	Phase     string   `json:"phase"`
	Interface string   `json:"interface,omitempty"`
	Metered   bool     `json:"metered"`
	MTU       int      `json:"mtu,omitempty"`
	Addrs     []string `json:"addrs,omitempty"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus      `json:"system_status"`
	Available    int               `json:"available"`
	Interfaces   []InterfaceHealth `json:"interfaces"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}
