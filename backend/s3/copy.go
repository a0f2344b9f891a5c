package s3

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"
)

// CopyObject implements slicetypes.Backend, choosing between simple and
// multipart copy by the source object's size.
func (b *Backend) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	head, err := b.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(srcBucket),
		Key:    aws.String(srcKey),
	})
	if err != nil {
		return fmt.Errorf("head source object: %w", classify(err))
	}

	size := aws.ToInt64(head.ContentLength)
	if size > maxSimpleCopySize || size > b.config.MultipartThreshold {
		return b.multipartCopy(ctx, srcBucket, srcKey, dstBucket, dstKey, size)
	}

	return b.simpleCopy(ctx, srcBucket, srcKey, dstBucket, dstKey)
}

// simpleCopy copies the object with a single CopyObject call.
func (b *Backend) simpleCopy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	_, err := b.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(dstBucket),
		Key:               aws.String(dstKey),
		CopySource:        aws.String(copySource(srcBucket, srcKey)),
		MetadataDirective: awstypes.MetadataDirectiveCopy,
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// multipartCopy copies the object in byte ranges with UploadPartCopy.
func (b *Backend) multipartCopy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string, size int64) error {
	partSize := b.partSize(size)
	numParts := calculateParts(size, partSize)

	created, err := b.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(dstBucket),
		Key:    aws.String(dstKey),
	})
	if err != nil {
		return fmt.Errorf("create multipart upload: %w", classify(err))
	}
	uploadID := aws.ToString(created.UploadId)

	b.logger.DebugContext(ctx, "multipart copy",
		"source", srcBucket+"/"+srcKey,
		"destination", dstBucket+"/"+dstKey,
		"size", size,
		"parts", numParts)

	parts, err := b.copyParts(ctx, srcBucket, srcKey, dstBucket, dstKey, uploadID, size, partSize, numParts)
	if err != nil {
		b.abortMultipartUpload(dstBucket, dstKey, uploadID)
		return err
	}

	_, err = b.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(dstBucket),
		Key:      aws.String(dstKey),
		UploadId: aws.String(uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{
			Parts: parts,
		},
	})
	if err != nil {
		b.abortMultipartUpload(dstBucket, dstKey, uploadID)
		return fmt.Errorf("complete multipart upload: %w", classify(err))
	}

	return nil
}

// copyParts copies all parts with at most PartConcurrency in flight.
func (b *Backend) copyParts(
	ctx context.Context,
	srcBucket, srcKey, dstBucket, dstKey, uploadID string,
	size, partSize int64,
	numParts int,
) ([]awstypes.CompletedPart, error) {
	parts := make([]awstypes.CompletedPart, numParts)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(b.config.PartConcurrency)

	for i := 0; i < numParts; i++ {
		partNumber := int32(i + 1)
		offset := int64(i) * partSize
		length := min(partSize, size-offset)

		group.Go(func() error {
			out, err := b.api.UploadPartCopy(ctx, &s3.UploadPartCopyInput{
				Bucket:          aws.String(dstBucket),
				Key:             aws.String(dstKey),
				CopySource:      aws.String(copySource(srcBucket, srcKey)),
				CopySourceRange: aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)),
				UploadId:        aws.String(uploadID),
				PartNumber:      aws.Int32(partNumber),
			})
			if err != nil {
				return fmt.Errorf("copy part %d: %w", partNumber, classify(err))
			}

			var etag *string
			if out.CopyPartResult != nil {
				etag = out.CopyPartResult.ETag
			}
			// each goroutine writes its own index
			parts[partNumber-1] = awstypes.CompletedPart{
				ETag:       etag,
				PartNumber: aws.Int32(partNumber),
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

// abortMultipartUpload cleans up a failed multipart copy. It runs on a fresh
// context so a canceled run still releases the upload.
func (b *Backend) abortMultipartUpload(bucket, key, uploadID string) {
	_, err := b.api.AbortMultipartUpload(context.Background(), &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		b.logger.Warn("abort multipart upload failed",
			"bucket", bucket,
			"key", key,
			"upload_id", uploadID,
			"error", err)
	}
}

// partSize returns the configured part size, grown so the object fits in maxParts parts.
func (b *Backend) partSize(size int64) int64 {
	partSize := b.config.PartSize
	if least := (size + maxParts - 1) / maxParts; partSize < least {
		partSize = least
	}
	return partSize
}

// calculateParts calculates the number of parts needed.
func calculateParts(size, partSize int64) int {
	if size == 0 {
		return 1
	}
	return int((size + partSize - 1) / partSize)
}

// copySource formats the x-amz-copy-source value, URL-encoding each key segment.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return bucket + "/" + strings.Join(segments, "/")
}
