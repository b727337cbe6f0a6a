package domain

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPrincipal_InOrg(t *testing.T) {
	org := uuid.New()
	p := NewPrincipal(uuid.New(), uuid.New(), org)

	assert.True(t, p.InOrg(org))
	assert.False(t, p.InOrg(uuid.New()))
	assert.False(t, NewPrincipal(uuid.New()).InOrg(org))
}

func TestRequestInfo_Context(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, RequestInfo{}, GetRequestInfo(ctx))

	info := RequestInfo{RequestID: "req-1", IPAddress: "10.0.0.1", UserAgent: "curl/8.0"}
	ctx = WithRequestInfo(ctx, info)
	assert.Equal(t, info, GetRequestInfo(ctx))
}
