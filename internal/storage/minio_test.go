package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/waste-dispatch/internal/config"
)

func TestObjectURL(t *testing.T) {
	assert.Equal(t,
		"https://cdn.example.com/waste-reports/reports/2026/01/02/a.jpg",
		ObjectURL("https://cdn.example.com/", "waste-reports", "/reports/2026/01/02/a.jpg"),
	)
}

func TestPublicBase(t *testing.T) {
	assert.Equal(t, "http://minio:9000", publicBase(config.MinIOConfig{Endpoint: "minio:9000"}))
	assert.Equal(t, "https://minio:9000", publicBase(config.MinIOConfig{Endpoint: "minio:9000", UseSSL: true}))
	assert.Equal(t, "https://img.example.com", publicBase(config.MinIOConfig{Endpoint: "minio:9000", PublicURL: "https://img.example.com"}))
}

func TestReadPolicyGrantsGetObject(t *testing.T) {
	var policy struct {
		Statement []struct {
			Action   []string
			Resource []string
		}
	}
	require.NoError(t, json.Unmarshal([]byte(readPolicy("waste-reports")), &policy))
	require.Len(t, policy.Statement, 1)
	assert.Equal(t, []string{"s3:GetObject"}, policy.Statement[0].Action)
	assert.Equal(t, []string{"arn:aws:s3:::waste-reports/*"}, policy.Statement[0].Resource)
}
