package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockS3Client struct {
	mock.Mock
}

func (m *mockS3Client) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	if in.Body != nil {
		io.Copy(io.Discard, in.Body)
	}
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3Client) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.UploadPartOutput)
	return out, args.Error(1)
}

func (m *mockS3Client) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.CreateMultipartUploadOutput)
	return out, args.Error(1)
}

func (m *mockS3Client) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.CompleteMultipartUploadOutput)
	return out, args.Error(1)
}

func (m *mockS3Client) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.AbortMultipartUploadOutput)
	return out, args.Error(1)
}

func (m *mockS3Client) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3Client) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3Client) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

func TestS3_Put(t *testing.T) {
	client := new(mockS3Client)
	store := NewS3(client, "bucket", "exports")

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "bucket" && *in.Key == "exports/search_results_a.csv" &&
			*in.ContentType == "text/csv; charset=utf-8"
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	err := store.Put(context.Background(), "search_results_a.csv", strings.NewReader("a\n1\n"), 4)
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestS3_Open(t *testing.T) {
	client := new(mockS3Client)
	store := NewS3(client, "bucket", "exports")
	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("NotFound", func(t *testing.T) {
		client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
			return *in.Key == "exports/missing.csv"
		})).Return(nil, &types.NoSuchKey{}).Once()

		_, _, err := store.Open(context.Background(), "missing.csv")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Success", func(t *testing.T) {
		client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
			return *in.Bucket == "bucket" && *in.Key == "exports/a.csv"
		})).Return(&s3.GetObjectOutput{
			Body:          io.NopCloser(strings.NewReader("a\n1\n")),
			ContentLength: aws.Int64(4),
			LastModified:  aws.Time(modified),
		}, nil).Once()

		rc, info, err := store.Open(context.Background(), "a.csv")
		require.NoError(t, err)
		defer rc.Close()
		data, _ := io.ReadAll(rc)
		assert.Equal(t, "a\n1\n", string(data))
		assert.Equal(t, ObjectInfo{Name: "a.csv", Size: 4, ModTime: modified}, info)
	})
}

func TestS3_Delete(t *testing.T) {
	client := new(mockS3Client)
	store := NewS3(client, "bucket", "")

	client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return *in.Bucket == "bucket" && *in.Key == "old.xlsx"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()

	require.NoError(t, store.Delete(context.Background(), "old.xlsx"))
	client.AssertExpectations(t)
}

func TestS3_List(t *testing.T) {
	client := new(mockS3Client)
	store := NewS3(client, "bucket", "exports/")

	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return *in.Bucket == "bucket" && *in.Prefix == "exports/"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("exports/z.csv"), Size: aws.Int64(3)},
			{Key: aws.String("exports/a.xlsx"), Size: aws.Int64(10)},
		},
	}, nil).Once()

	objs, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "a.xlsx", objs[0].Name)
	assert.Equal(t, int64(10), objs[0].Size)
	assert.Equal(t, "z.csv", objs[1].Name)
}

func TestS3_RejectsPathNames(t *testing.T) {
	store := NewS3(new(mockS3Client), "bucket", "")
	_, _, err := store.Open(context.Background(), "../secret")
	assert.ErrorIs(t, err, ErrInvalidName)
}
