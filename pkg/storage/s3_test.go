package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResourceKey(t *testing.T) {
	assert.Equal(t, "resources/ai-fundamentals/notes.pdf", ResourceKey("ai-fundamentals", "../tmp/notes.pdf"))
}

func TestContentTypeForFilename(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentTypeForFilename("Slides.PDF"))
	assert.Equal(t, "application/zip", ContentTypeForFilename("starter-code.zip"))
	assert.Equal(t, "application/octet-stream", ContentTypeForFilename("binary"))
}

func TestPresignResourceDownload(t *testing.T) {
	s, err := NewS3(context.Background(), S3Config{
		Region:               "eu-west-1",
		AccessKeyID:          "AKIDEXAMPLE",
		SecretAccessKey:      "secret",
		ResourcesBucket:      "course-resources",
		PresignExpireMinutes: 5,
	}, zap.NewNop())
	require.NoError(t, err)

	url, expire, err := s.PresignResourceDownload(context.Background(), "resources/ai-fundamentals/slides.pdf")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, expire)
	assert.True(t, strings.Contains(url, "course-resources"), url)
	assert.Contains(t, url, "resources/ai-fundamentals/slides.pdf")
	assert.Contains(t, url, "X-Amz-Expires=300")
}
