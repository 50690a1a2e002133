package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/westtrac/parts-insights/internal/config"
)

func validStorageConfig() config.StorageConfig {
	return config.StorageConfig{
		Enabled:   true,
		Endpoint:  "https://objects.example.com/",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "exports",
		Prefix:    "/seasonal/",
	}
}

func TestNewMinioClient_Validation(t *testing.T) {
	cfg := validStorageConfig()
	cfg.Endpoint = ""
	_, err := NewMinioClient(cfg)
	assert.Error(t, err)

	cfg = validStorageConfig()
	cfg.SecretKey = ""
	_, err = NewMinioClient(cfg)
	assert.Error(t, err)

	cfg = validStorageConfig()
	cfg.Bucket = ""
	_, err = NewMinioClient(cfg)
	assert.Error(t, err)

	client, err := NewMinioClient(validStorageConfig())
	require.NoError(t, err)
	assert.Equal(t, "exports", client.bucket)
}

func TestMinioClient_ObjectKey(t *testing.T) {
	client, err := NewMinioClient(validStorageConfig())
	require.NoError(t, err)

	assert.Equal(t, "seasonal/2024/report.xlsx", client.objectKey("/2024/report.xlsx"))
	assert.Equal(t, "seasonal/", client.objectKey(""))

	client.prefix = ""
	assert.Equal(t, "report.xlsx", client.objectKey("report.xlsx"))
}

func TestMinioClient_RelativeKeyRoundTrips(t *testing.T) {
	client, err := NewMinioClient(validStorageConfig())
	require.NoError(t, err)

	for _, key := range []string{"seasonal_patterns_20240105_120000.xlsx", "2024/report.xlsx"} {
		assert.Equal(t, key, client.relativeKey(client.objectKey(key)))
	}
	assert.Equal(t, "other/report.xlsx", client.relativeKey("other/report.xlsx"))

	client.prefix = ""
	assert.Equal(t, "report.xlsx", client.relativeKey(client.objectKey("report.xlsx")))
}

func TestNormalizeEndpoint(t *testing.T) {
	endpoint, secure, err := normalizeEndpoint("http://localhost:9000", true)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", endpoint)
	assert.False(t, secure)

	endpoint, secure, err = normalizeEndpoint("s3.example.com", true)
	require.NoError(t, err)
	assert.Equal(t, "s3.example.com", endpoint)
	assert.True(t, secure)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/octet-stream", contentTypeFor("report"))
	assert.Equal(t, "text/csv", contentTypeFor("usage.CSV"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", contentTypeFor("seasonal/report.xlsx"))
	assert.Equal(t, "application/json", contentTypeFor("analysis.json"))
}
