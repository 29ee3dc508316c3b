package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/kidwatch/pkg/sink"
)

// memAPI is an in-memory API with a tiny page size.
type memAPI struct {
	mu        sync.Mutex
	objects   map[string][]byte
	pageSize  int
	deletions int
}

func newMemAPI() *memAPI {
	return &memAPI{objects: make(map[string][]byte), pageSize: 2}
}

func (m *memAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *memAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (m *memAPI) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func (m *memAPI) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) && k > aws.ToString(in.ContinuationToken) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	for i, k := range keys {
		if i == m.pageSize {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = aws.String(keys[i-1])
			break
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (m *memAPI) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletions++
	for _, o := range in.Delete.Objects {
		delete(m.objects, aws.ToString(o.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func TestStore_PutExists(t *testing.T) {
	api := newMemAPI()
	s := New(api, Config{Bucket: "videos", KeyPrefix: "/kidwatch/"})
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "Front/20240819AM/a.mp4", []byte("video")))
	assert.Equal(t, []byte("video"), api.objects["kidwatch/Front/20240819AM/a.mp4"])

	ok, err := s.Exists(ctx, "Front/20240819AM/a.mp4")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "Front/20240819AM/b.mp4")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, "s3://videos/kidwatch/", s.Describe())
}

func TestStore_DeleteByPrefix(t *testing.T) {
	api := newMemAPI()
	s := New(api, Config{Bucket: "videos"})
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, s.Put(ctx, fmt.Sprintf("frames/a/frame_%d.jpg", i), []byte("x")))
	}
	require.NoError(t, s.Put(ctx, "frames/ab/frame_0.jpg", []byte("x")))

	require.NoError(t, s.DeleteByPrefix(ctx, "frames/a"))

	assert.Len(t, api.objects, 1)
	assert.Contains(t, api.objects, "frames/ab/frame_0.jpg")
	assert.Equal(t, 1, api.deletions)
}

func TestStore_RejectsBadKeys(t *testing.T) {
	s := New(newMemAPI(), Config{Bucket: "videos"})
	assert.ErrorIs(t, s.Put(context.Background(), "../x", nil), sink.ErrInvalidKey)
}

func TestStore_Closed(t *testing.T) {
	s := New(newMemAPI(), Config{Bucket: "videos"})
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Put(context.Background(), "a", nil), sink.ErrClosed)
}

func TestIsNotFoundError(t *testing.T) {
	assert.False(t, isNotFoundError(nil))
	assert.True(t, isNotFoundError(&types.NoSuchKey{}))
	assert.True(t, isNotFoundError(fmt.Errorf("wrapped: %w", &types.NotFound{})))
	assert.True(t, isNotFoundError(errors.New("StatusCode: 404")))
	assert.False(t, isNotFoundError(errors.New("access denied")))
}

func TestNewFromConfig_RequiresBucket(t *testing.T) {
	_, err := NewFromConfig(context.Background(), Config{})
	assert.Error(t, err)
}
