package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectStore struct {
	puts      []*s3.PutObjectInput
	bodies    [][]byte
	deletes   []*s3.DeleteObjectInput
	putErr    error
	deleteErr error
}

func (f *fakeObjectStore) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectStore) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}

const publicBase = "http://localhost:54321/storage/v1/object/public/"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newAvatarStorage(store ObjectStore) *AvatarStorage {
	return NewAvatarStorage(store, "avatars", publicBase, zerolog.Nop())
}

func TestUploadStoresUnderUserPrefix(t *testing.T) {
	store := &fakeObjectStore{}
	s := newAvatarStorage(store)

	url, err := s.Upload(context.Background(), "u-1", pngHeader)
	require.NoError(t, err)
	require.Len(t, store.puts, 1)

	put := store.puts[0]
	assert.Equal(t, "avatars", *put.Bucket)
	assert.True(t, strings.HasPrefix(*put.Key, "avatars/u-1/"), *put.Key)
	assert.True(t, strings.HasSuffix(*put.Key, ".png"), *put.Key)
	assert.Equal(t, "image/png", *put.ContentType)
	assert.Equal(t, pngHeader, store.bodies[0])
	assert.Equal(t, "http://localhost:54321/storage/v1/object/public/avatars/"+*put.Key, url)
}

func TestUploadDetectsImageTypes(t *testing.T) {
	cases := map[string][]byte{
		".jpg": []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"),
		".gif": []byte("GIF89a\x01\x00\x01\x00"),
	}
	for ext, data := range cases {
		t.Run(ext, func(t *testing.T) {
			store := &fakeObjectStore{}
			_, err := newAvatarStorage(store).Upload(context.Background(), "u-1", data)
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(*store.puts[0].Key, ext))
		})
	}
}

func TestUploadRejectsBeforeSending(t *testing.T) {
	tooLarge := make([]byte, MaxAvatarSize+1)
	copy(tooLarge, pngHeader)

	cases := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrEmptyFile},
		{"too large", tooLarge, ErrFileTooLarge},
		{"text", []byte("definitely not an image"), ErrUnsupportedType},
		{"pdf", []byte("%PDF-1.7\n"), ErrUnsupportedType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeObjectStore{}
			_, err := newAvatarStorage(store).Upload(context.Background(), "u-1", tc.data)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, store.puts)
		})
	}
}

func TestUploadWrapsStoreError(t *testing.T) {
	store := &fakeObjectStore{putErr: errors.New("SignatureDoesNotMatch")}
	_, err := newAvatarStorage(store).Upload(context.Background(), "u-1", pngHeader)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SignatureDoesNotMatch")
}

func TestDeleteOwnURLOnly(t *testing.T) {
	store := &fakeObjectStore{}
	s := newAvatarStorage(store)

	require.NoError(t, s.Delete(context.Background(), s.PublicURL("avatars/u-1/a.png")))
	require.NoError(t, s.Delete(context.Background(), "https://gravatar.com/avatar/abc"))

	require.Len(t, store.deletes, 1)
	assert.Equal(t, "avatars/u-1/a.png", *store.deletes[0].Key)
}

func TestRemoveDisableGzip(t *testing.T) {
	stack := awsmiddleware.NewStack("test", func() interface{} { return nil })
	noop := awsmiddleware.FinalizeMiddlewareFunc("DisableAcceptEncodingGzip",
		func(ctx context.Context, in awsmiddleware.FinalizeInput, next awsmiddleware.FinalizeHandler) (awsmiddleware.FinalizeOutput, awsmiddleware.Metadata, error) {
			return next.HandleFinalize(ctx, in)
		})
	require.NoError(t, stack.Finalize.Add(noop, awsmiddleware.After))

	require.NoError(t, removeDisableGzip()(stack))
	_, ok := stack.Finalize.Get("DisableAcceptEncodingGzip")
	assert.False(t, ok)

	// absent middleware is not an error
	require.NoError(t, removeDisableGzip()(stack))
}
