package blobstore

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3WrapErrorClassification(t *testing.T) {
	store := &S3Store{bucket: "artifacts"}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no such key type", &types.NoSuchKey{}, ErrNotFound},
		{"not found type", &types.NotFound{}, ErrNotFound},
		{"no such bucket type", &types.NoSuchBucket{}, ErrBucketNotFound},
		{"no such key code", &smithy.GenericAPIError{Code: "NoSuchKey"}, ErrNotFound},
		{"not found code", &smithy.GenericAPIError{Code: "NotFound"}, ErrNotFound},
		{"no such bucket code", &smithy.GenericAPIError{Code: "NoSuchBucket"}, ErrBucketNotFound},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, ErrAccessDenied},
		{"forbidden", &smithy.GenericAPIError{Code: "Forbidden"}, ErrAccessDenied},
		{"bad access key", &smithy.GenericAPIError{Code: "InvalidAccessKeyId"}, ErrInvalidCredentials},
		{"bad signature", &smithy.GenericAPIError{Code: "SignatureDoesNotMatch"}, ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.wrapError("Get", "jobs/x/gnss_data.json", tt.err)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var storeErr *StoreError
			require.ErrorAs(t, err, &storeErr)
			assert.Equal(t, "Get", storeErr.Op)
			assert.Equal(t, "jobs/x/gnss_data.json", storeErr.Key)
		})
	}
}

func TestS3WrapErrorUnclassified(t *testing.T) {
	store := &S3Store{bucket: "artifacts"}
	cause := errors.New("connection reset")

	err := store.wrapError("Put", "jobs/x/gnss_data.json", cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrAccessDenied)
	assert.ErrorIs(t, err, cause)
}
