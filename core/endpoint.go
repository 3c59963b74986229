package core

// Access is the authentication requirement of an endpoint.
type Access int

const (
	// AccessPublic endpoints run no gate.
	AccessPublic Access = iota
	// AccessOptional endpoints attach an identity when one verifies and proceed either way.
	AccessOptional
	// AccessAuthenticated endpoints require a verified token backed by a live session.
	AccessAuthenticated
	// AccessAdmin endpoints require AccessAuthenticated and the admin role.
	AccessAdmin
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessOptional:
		return "optional"
	case AccessAuthenticated:
		return "authenticated"
	case AccessAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Endpoint is a framework-agnostic route declaration. Adapters bind a
// handler to each OperationID and build the gate chain from Access.
type Endpoint struct {
	Path     string
	Method   string
	Access   Access
	Metadata EndpointMetadata
}

type EndpointMetadata struct {
	OperationID string
	Description string
	// RateLimited endpoints sit behind the stricter credential limiter.
	RateLimited bool
}
