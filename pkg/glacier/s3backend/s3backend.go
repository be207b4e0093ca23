// Package s3backend implements glacier.Backend against an S3-compatible
// bucket's Glacier/Deep Archive storage-class transitions, standing in
// for the vendor tape/cold-storage driver this core treats as an
// external collaborator.
package s3backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithy "github.com/aws/smithy-go"
	"github.com/nsfscore/nsfsctl/pkg/glacier"
)

// Config configures a Backend.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	// StorageClass is the cold storage class Migrate transitions objects
	// into. Defaults to GLACIER.
	StorageClass types.StorageClass

	// Tier is the restore speed/cost tier Restore requests.
	// Defaults to Standard.
	Tier types.Tier
}

// Backend implements glacier.Backend against an S3-compatible endpoint.
type Backend struct {
	client       *s3.Client
	storageClass types.StorageClass
	tier         types.Tier
}

var _ glacier.Backend = (*Backend)(nil)

// New builds a Backend from cfg, resolving AWS credentials and region
// through the standard SDK chain unless explicitly overridden.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3backend: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	storageClass := cfg.StorageClass
	if storageClass == "" {
		storageClass = types.StorageClassGlacier
	}
	tier := cfg.Tier
	if tier == "" {
		tier = types.TierStandard
	}

	return &Backend{client: client, storageClass: storageClass, tier: tier}, nil
}

// ShouldMigrate reports whether the object's current storage class is not
// already the configured cold tier.
func (b *Backend) ShouldMigrate(ctx context.Context, ref glacier.ObjectRef) (bool, error) {
	head, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		return false, fmt.Errorf("s3backend: head %s/%s: %w", ref.Bucket, ref.Key, err)
	}
	return head.StorageClass != b.storageClass, nil
}

// Migrate copies the object onto itself with the cold storage class,
// which is how S3 performs an in-place storage-class transition outside
// of a lifecycle rule.
func (b *Backend) Migrate(ctx context.Context, ref glacier.ObjectRef) error {
	_, err := b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(ref.Bucket),
		Key:               aws.String(ref.Key),
		CopySource:        aws.String(ref.Bucket + "/" + ref.Key),
		StorageClass:      b.storageClass,
		MetadataDirective: types.MetadataDirectiveCopy,
	})
	if err != nil {
		return fmt.Errorf("s3backend: migrate %s/%s: %w", ref.Bucket, ref.Key, err)
	}
	return nil
}

// Restore issues a temporary restore of a cold-tier object.
func (b *Backend) Restore(ctx context.Context, ref glacier.ObjectRef, availability glacier.ObjectAvailability) error {
	days := int32(availability.Days)
	if days <= 0 {
		days = 1
	}
	_, err := b.client.RestoreObject(ctx, &s3.RestoreObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
		RestoreRequest: &types.RestoreRequest{
			Days: aws.Int32(days),
			GlacierJobParameters: &types.GlacierJobParameters{
				Tier: b.tier,
			},
		},
	})
	// S3 returns a RestoreAlreadyInProgress API error if a restore is
	// already pending; that is not a failure from this backend's
	// perspective, it's the same outcome the caller asked for.
	if err != nil && !isRestoreAlreadyInProgress(err) {
		return fmt.Errorf("s3backend: restore %s/%s: %w", ref.Bucket, ref.Key, err)
	}
	return nil
}

func isRestoreAlreadyInProgress(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "RestoreAlreadyInProgress"
	}
	return false
}

// ProcessExpired re-applies the cold storage class, ending the restored
// window early if S3's own lifecycle rule hasn't already done so.
func (b *Backend) ProcessExpired(ctx context.Context, ref glacier.ObjectRef) error {
	return b.Migrate(ctx, ref)
}
