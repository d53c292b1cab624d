package upload

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	bucket  string
	object  string
	expires time.Duration
	err     error
}

func (f *fakePresigner) PresignedPutObject(_ context.Context, bucket, object string, expires time.Duration) (*url.URL, error) {
	f.bucket, f.object, f.expires = bucket, object, expires
	if f.err != nil {
		return nil, f.err
	}
	return url.Parse("https://storage.example/" + bucket + "/" + object + "?X-Amz-Signature=abc")
}

var uuidPrefix = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

func TestObjectKey(t *testing.T) {
	key := ObjectKey("/topics/42/", "My Diagram.PNG")
	require.True(t, strings.HasPrefix(key, "topics/42/"), key)
	name := strings.TrimPrefix(key, "topics/42/")
	assert.Regexp(t, uuidPrefix, name)
	assert.True(t, strings.HasSuffix(name, "-my-diagram.png"), name)

	bare := ObjectKey("", "")
	assert.Regexp(t, uuidPrefix, bare)
	assert.NotContains(t, bare, "/")

	assert.NotEqual(t, ObjectKey("", "a.png"), ObjectKey("", "a.png"))
	assert.NotContains(t, ObjectKey("../etc", "x.png"), "..")
}

func TestPresign(t *testing.T) {
	fake := &fakePresigner{}
	svc := NewService(fake, "media", "https://cdn.example/", 0)

	out, err := svc.Presign(context.Background(), Request{Filename: "intro.mp4", ContentType: "video/mp4", Folder: "topics/1"})
	require.NoError(t, err)

	assert.Equal(t, "media", fake.bucket)
	assert.Equal(t, DefaultTTL, fake.expires)
	assert.Equal(t, fake.object, out.Key)
	assert.Equal(t, "https://cdn.example/"+out.Key, out.PublicURL)
	assert.Contains(t, out.UploadURL, "X-Amz-Signature")
}

func TestPresignRequiresContentType(t *testing.T) {
	svc := NewService(&fakePresigner{}, "media", "https://cdn.example", time.Minute)

	_, err := svc.Presign(context.Background(), Request{Filename: "a.png"})
	assert.ErrorIs(t, err, ErrContentTypeRequired)
}

func TestPresignWrapsClientError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&fakePresigner{err: boom}, "media", "https://cdn.example", time.Minute)

	_, err := svc.Presign(context.Background(), Request{ContentType: "image/png"})
	assert.ErrorIs(t, err, boom)
}

func TestNewMinioServiceSignsLocally(t *testing.T) {
	_, err := NewMinioService(Config{})
	require.ErrorIs(t, err, ErrNotConfigured)

	svc, err := NewMinioService(Config{
		Endpoint:  "localhost:9000",
		AccessKey: "access",
		SecretKey: "secret-key",
		Bucket:    "media",
		TTL:       time.Minute,
	})
	require.NoError(t, err)

	out, err := svc.Presign(context.Background(), Request{Filename: "a.png", ContentType: "image/png"})
	require.NoError(t, err)

	signed, err := url.Parse(out.UploadURL)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", signed.Host)
	assert.Equal(t, "/media/"+out.Key, signed.Path)
	assert.Equal(t, "60", signed.Query().Get("X-Amz-Expires"))
	assert.Equal(t, "http://localhost:9000/media/"+out.Key, out.PublicURL)
}
