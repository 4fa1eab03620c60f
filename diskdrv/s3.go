package diskdrv

import (
	"context"
	"errors"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"filecache"
)

// S3Disk backs filecache's DiskReader path with objects in an AWS S3
// bucket. Credentials and region resolution follow the standard SDK chain
// (environment, shared config, instance profile); an access key pair may be
// supplied directly through NewS3DiskWithCredentials. Disks built by the ini
// registry loader always use the default chain.
type S3Disk struct {
	name      string
	bucket    string
	keyPrefix string
	client    *s3.Client
}

// NewS3Disk builds an S3Disk for bucket in region, optionally prefixing
// every object key with keyPrefix (so a single bucket can host several
// named disks under different prefixes).
func NewS3Disk(ctx context.Context, name, bucket, region, keyPrefix string) (*S3Disk, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &S3Disk{
		name:      name,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		client:    s3.NewFromConfig(cfg),
	}, nil
}

// NewS3DiskWithCredentials is like NewS3Disk but pins a static access
// key/secret pair instead of deferring to the default credential chain.
func NewS3DiskWithCredentials(ctx context.Context, name, bucket, region, keyPrefix, accessKeyID, secretKey string) (*S3Disk, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretKey, "")),
	)
	if err != nil {
		return nil, err
	}
	return &S3Disk{
		name:      name,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		client:    s3.NewFromConfig(cfg),
	}, nil
}

func (d *S3Disk) Name() string                { return d.name }
func (d *S3Disk) Driver() filecache.DriverKind { return filecache.DriverRemote }
func (d *S3Disk) PathPrefix() (string, bool)  { return "", false }

func (d *S3Disk) key(objectPath string) string {
	return d.keyPrefix + objectPath
}

func (d *S3Disk) OpenReadStream(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &d.bucket,
		Key:    strPtr(d.key(objectPath)),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (d *S3Disk) Exists(ctx context.Context, objectPath string) (bool, error) {
	_, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &d.bucket,
		Key:    strPtr(d.key(objectPath)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (d *S3Disk) MimeType(ctx context.Context, objectPath string) (string, error) {
	out, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &d.bucket,
		Key:    strPtr(d.key(objectPath)),
	})
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", err
	}
	if out.ContentType != nil {
		return *out.ContentType, nil
	}
	return "", nil
}

func (d *S3Disk) Size(ctx context.Context, objectPath string) (int64, error) {
	out, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &d.bucket,
		Key:    strPtr(d.key(objectPath)),
	})
	if err != nil {
		return -1, err
	}
	if out.ContentLength != nil {
		return *out.ContentLength, nil
	}
	return -1, nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func strPtr(s string) *string { return &s }

func init() {
	filecache.RegisterDiskBuilder("s3", func(name, path, bucket, region, prefix string) (filecache.Disk, error) {
		disk, err := NewS3Disk(context.Background(), name, bucket, region, prefix)
		if err != nil {
			return nil, err
		}
		return disk, nil
	})
}
