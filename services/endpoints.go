package services

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/lborres/tipsapi/core"
)

// Operation ids bound to handlers by the HTTP adapter.
const (
	OpLogin         = "login"
	OpLogout        = "logout"
	OpStatus        = "status"
	OpRegister      = "register"
	OpListTipsters  = "listTipsters"
	OpGetTipster    = "getTipster"
	OpCreateTipster = "createTipster"
	OpUpdateTipster = "updateTipster"
	OpDeleteTipster = "deleteTipster"
	OpListMatches   = "listMatches"
	OpGetMatch      = "getMatch"
)

// BaseEndpoints returns the framework-agnostic route table, relative to
// the API base path. Access decides which gates an adapter mounts in front
// of each handler.
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		{
			Path:   "/auth/login",
			Method: http.MethodPost,
			Access: core.AccessPublic,
			Metadata: core.EndpointMetadata{
				OperationID: OpLogin,
				Description: "Log in with username or email and password",
				RateLimited: true,
			},
		},
		{
			Path:   "/auth/logout",
			Method: http.MethodPost,
			Access: core.AccessPublic,
			Metadata: core.EndpointMetadata{
				OperationID: OpLogout,
				Description: "Invalidate the current session",
			},
		},
		{
			Path:   "/auth/status",
			Method: http.MethodGet,
			Access: core.AccessPublic,
			Metadata: core.EndpointMetadata{
				OperationID: OpStatus,
				Description: "Report whether the caller holds a live session",
			},
		},
		{
			Path:   "/auth/register",
			Method: http.MethodPost,
			Access: core.AccessAdmin,
			Metadata: core.EndpointMetadata{
				OperationID: OpRegister,
				Description: "Create a user account",
				RateLimited: true,
			},
		},
		{
			Path:   "/tipsters",
			Method: http.MethodGet,
			Access: core.AccessOptional,
			Metadata: core.EndpointMetadata{
				OperationID: OpListTipsters,
				Description: "List tipsters with filters and pagination",
			},
		},
		{
			Path:   "/tipsters/:id",
			Method: http.MethodGet,
			Access: core.AccessOptional,
			Metadata: core.EndpointMetadata{
				OperationID: OpGetTipster,
				Description: "Get a tipster by id",
			},
		},
		{
			Path:   "/tipsters",
			Method: http.MethodPost,
			Access: core.AccessAdmin,
			Metadata: core.EndpointMetadata{
				OperationID: OpCreateTipster,
				Description: "Create a tipster",
			},
		},
		{
			Path:   "/tipsters/:id",
			Method: http.MethodPut,
			Access: core.AccessAdmin,
			Metadata: core.EndpointMetadata{
				OperationID: OpUpdateTipster,
				Description: "Update fields of a tipster",
			},
		},
		{
			Path:   "/tipsters/:id",
			Method: http.MethodDelete,
			Access: core.AccessAdmin,
			Metadata: core.EndpointMetadata{
				OperationID: OpDeleteTipster,
				Description: "Delete a tipster",
			},
		},
		{
			Path:   "/matches",
			Method: http.MethodGet,
			Access: core.AccessOptional,
			Metadata: core.EndpointMetadata{
				OperationID: OpListMatches,
				Description: "List matches with filters and pagination",
			},
		},
		{
			Path:   "/matches/:matchId",
			Method: http.MethodGet,
			Access: core.AccessOptional,
			Metadata: core.EndpointMetadata{
				OperationID: OpGetMatch,
				Description: "Get a match with its related tips",
			},
		},
	}
}

// EndpointRegistry holds endpoints keyed by "METHOD:PATH" and rejects
// duplicates.
type EndpointRegistry struct {
	endpoints map[string]*core.Endpoint
}

// NewEndpointRegistry creates a registry with the base endpoints registered.
func NewEndpointRegistry() (*EndpointRegistry, error) {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}
	if err := reg.Add(BaseEndpoints()); err != nil {
		return nil, err
	}
	return reg, nil
}

func endpointKey(method, path string) string {
	return fmt.Sprintf("%s:%s", method, path)
}

// Add registers endpoints. If any endpoint conflicts with a registered one
// or with another in the same batch, nothing is registered.
func (r *EndpointRegistry) Add(endpoints []core.Endpoint) error {
	seen := make(map[string]bool, len(endpoints))
	for i := range endpoints {
		ep := &endpoints[i]
		key := endpointKey(ep.Method, ep.Path)

		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
		}
		if seen[key] {
			return fmt.Errorf("duplicate endpoint in batch: %s %s", ep.Method, ep.Path)
		}
		if ep.Metadata.OperationID == "" {
			return fmt.Errorf("endpoint %s %s has no operation id", ep.Method, ep.Path)
		}
		seen[key] = true
	}

	for i := range endpoints {
		ep := endpoints[i]
		r.endpoints[endpointKey(ep.Method, ep.Path)] = &ep
	}
	return nil
}

// Lookup returns the endpoint registered for method and path.
func (r *EndpointRegistry) Lookup(method, path string) (*core.Endpoint, bool) {
	ep, ok := r.endpoints[endpointKey(method, path)]
	return ep, ok
}

// Endpoints returns every registered endpoint ordered by path, then method.
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		result = append(result, ep)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Path != result[j].Path {
			return result[i].Path < result[j].Path
		}
		return result[i].Method < result[j].Method
	})
	return result
}
