package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Lead pipeline constants
const (
	// LeadPageSize is the fixed page size for lead listings
	LeadPageSize = 15

	// FollowUpWindow is how long a lead may go without contact before it
	// counts as needing follow-up
	FollowUpWindow = 7 * 24 * time.Hour

	// DashboardRecentLimit is the default number of recent and
	// high-priority leads returned on the dashboard
	DashboardRecentLimit = 5

	// MaxLeadValue is the upper bound for the monetary value of a lead,
	// matching the decimal(12,2) column
	MaxLeadValue = "999999999.99"
)

// ContextKey is the type for request-scoped context keys
type ContextKey string

// Request-scoped context keys for observability
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)
