package services

import (
	"net/http"
	"testing"

	"github.com/lborres/tipsapi/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requirement: every route carries the access level its operation needs.
func TestBaseEndpoints_Access(t *testing.T) {
	tests := []struct {
		method      string
		path        string
		wantOp      string
		wantAccess  core.Access
		wantLimited bool
	}{
		{method: http.MethodPost, path: "/auth/login", wantOp: OpLogin, wantAccess: core.AccessPublic, wantLimited: true},
		{method: http.MethodPost, path: "/auth/logout", wantOp: OpLogout, wantAccess: core.AccessPublic},
		{method: http.MethodGet, path: "/auth/status", wantOp: OpStatus, wantAccess: core.AccessPublic},
		{method: http.MethodPost, path: "/auth/register", wantOp: OpRegister, wantAccess: core.AccessAdmin, wantLimited: true},
		{method: http.MethodGet, path: "/tipsters", wantOp: OpListTipsters, wantAccess: core.AccessOptional},
		{method: http.MethodGet, path: "/tipsters/:id", wantOp: OpGetTipster, wantAccess: core.AccessOptional},
		{method: http.MethodPost, path: "/tipsters", wantOp: OpCreateTipster, wantAccess: core.AccessAdmin},
		{method: http.MethodPut, path: "/tipsters/:id", wantOp: OpUpdateTipster, wantAccess: core.AccessAdmin},
		{method: http.MethodDelete, path: "/tipsters/:id", wantOp: OpDeleteTipster, wantAccess: core.AccessAdmin},
		{method: http.MethodGet, path: "/matches", wantOp: OpListMatches, wantAccess: core.AccessOptional},
		{method: http.MethodGet, path: "/matches/:matchId", wantOp: OpGetMatch, wantAccess: core.AccessOptional},
	}

	reg, err := NewEndpointRegistry()
	require.NoError(t, err)
	require.Len(t, reg.Endpoints(), len(tests))

	for _, test := range tests {
		t.Run(test.method+" "+test.path, func(t *testing.T) {
			ep, ok := reg.Lookup(test.method, test.path)

			require.True(t, ok)
			assert.Equal(t, test.wantOp, ep.Metadata.OperationID)
			assert.Equal(t, test.wantAccess, ep.Access)
			assert.Equal(t, test.wantLimited, ep.Metadata.RateLimited)
			assert.NotEmpty(t, ep.Metadata.Description)
		})
	}
}

func TestEndpointRegistry_Add(t *testing.T) {
	tests := []struct {
		name      string
		endpoints []core.Endpoint
		wantErr   string
	}{
		{
			name: "new endpoint",
			endpoints: []core.Endpoint{
				{Path: "/tips", Method: http.MethodGet, Metadata: core.EndpointMetadata{OperationID: "listTips"}},
			},
		},
		{
			name: "conflicts with base endpoint",
			endpoints: []core.Endpoint{
				{Path: "/auth/login", Method: http.MethodPost, Metadata: core.EndpointMetadata{OperationID: "login2"}},
			},
			wantErr: "endpoint conflict",
		},
		{
			name: "duplicate within batch",
			endpoints: []core.Endpoint{
				{Path: "/tips", Method: http.MethodGet, Metadata: core.EndpointMetadata{OperationID: "a"}},
				{Path: "/tips", Method: http.MethodGet, Metadata: core.EndpointMetadata{OperationID: "b"}},
			},
			wantErr: "duplicate endpoint",
		},
		{
			name: "missing operation id",
			endpoints: []core.Endpoint{
				{Path: "/tips", Method: http.MethodGet},
			},
			wantErr: "no operation id",
		},
		{
			name: "same path different method",
			endpoints: []core.Endpoint{
				{Path: "/auth/status", Method: http.MethodPost, Metadata: core.EndpointMetadata{OperationID: "statusPost"}},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			reg, err := NewEndpointRegistry()
			require.NoError(t, err)
			before := len(reg.Endpoints())

			// Act
			err = reg.Add(test.endpoints)

			// Assert
			if test.wantErr != "" {
				require.ErrorContains(t, err, test.wantErr)
				assert.Len(t, reg.Endpoints(), before, "failed batch must not register anything")
				return
			}
			require.NoError(t, err)
			assert.Len(t, reg.Endpoints(), before+len(test.endpoints))
		})
	}
}

func TestEndpointRegistry_EndpointsOrdered(t *testing.T) {
	reg, err := NewEndpointRegistry()
	require.NoError(t, err)

	eps := reg.Endpoints()
	for i := 1; i < len(eps); i++ {
		prev, cur := eps[i-1], eps[i]
		assert.True(t, prev.Path < cur.Path || (prev.Path == cur.Path && prev.Method < cur.Method),
			"%s %s before %s %s", prev.Method, prev.Path, cur.Method, cur.Path)
	}
}

func TestAccess_String(t *testing.T) {
	assert.Equal(t, "public", core.AccessPublic.String())
	assert.Equal(t, "optional", core.AccessOptional.String())
	assert.Equal(t, "authenticated", core.AccessAuthenticated.String())
	assert.Equal(t, "admin", core.AccessAdmin.String())
	assert.Equal(t, "unknown", core.Access(99).String())
}
