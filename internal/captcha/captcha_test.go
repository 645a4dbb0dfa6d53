package captcha

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourneighborhoodchef/sellbot/internal/client"
)

func TestStatic(t *testing.T) {
	token, err := Static("tok").Solve(context.Background(), "https://anchor")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	_, err = Static("").Solve(context.Background(), "https://anchor")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestService(t *testing.T) {
	var got *client.Request
	svc := &Service{
		Endpoint: "https://solver.local/solve",
		Key:      "k",
		Transport: client.TransportFunc(func(_ context.Context, req *client.Request) (*client.Response, error) {
			got = req
			return &client.Response{StatusCode: 200, Body: []byte(`{"token":"03AGdBq2"}`)}, nil
		}),
	}

	token, err := svc.Solve(context.Background(), "https://anchor")
	require.NoError(t, err)
	assert.Equal(t, "03AGdBq2", token)
	require.NotNil(t, got)
	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, map[string]string{"key": "k", "anchor_url": "https://anchor"}, got.JSON)
}

func TestService_Failures(t *testing.T) {
	tests := []struct {
		name string
		resp *client.Response
	}{
		{"bad status", &client.Response{StatusCode: 500, Body: []byte("oops")}},
		{"missing token", &client.Response{StatusCode: 200, Body: []byte(`{}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &Service{Transport: client.TransportFunc(func(context.Context, *client.Request) (*client.Response, error) {
				return tt.resp, nil
			})}
			_, err := svc.Solve(context.Background(), "https://anchor")
			assert.Error(t, err)
		})
	}
}
