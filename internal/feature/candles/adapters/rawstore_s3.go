package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/usecase"
)

// errCodePreconditionFailed は If-None-Match 付き PutObject が既存キーに当たったときのコードです。
const errCodePreconditionFailed = "PreconditionFailed"

// rawStoreS3 は Raw/Prices/{date}/raw_*.json を S3 バケットに読み書きする RawStore です。
// ドキュメントは書き込み後に変更されません。
type rawStoreS3 struct {
	client s3iface.S3API
	bucket string
}

var _ usecase.RawStore = (*rawStoreS3)(nil)

func NewRawStoreS3(client s3iface.S3API, bucket string) *rawStoreS3 {
	return &rawStoreS3{client: client, bucket: bucket}
}

func (r *rawStoreS3) Put(ctx context.Context, doc entity.RawFetchDocument) (string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal raw document: %w", err)
	}
	key := doc.Key()
	_, err = r.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}, request.WithSetRequestHeaders(map[string]string{"If-None-Match": "*"}))
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == errCodePreconditionFailed {
			return "", fmt.Errorf("%w: s3://%s/%s", domain.ErrAlreadyExists, r.bucket, key)
		}
		return "", fmt.Errorf("put s3://%s/%s: %w", r.bucket, key, err)
	}
	return key, nil
}

// ListKeys は日付プレフィックスが [from, to] のキーを返します。
// S3 はキーを辞書順で返すため、to を超えた時点で走査を打ち切ります。
func (r *rawStoreS3) ListKeys(ctx context.Context, from, to string) ([]string, error) {
	var keys []string
	input := &s3.ListObjectsV2Input{
		Bucket:     aws.String(r.bucket),
		Prefix:     aws.String(entity.RawPrefix),
		StartAfter: aws.String(entity.RawPrefix + from),
	}
	err := r.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			d, ok := entity.RawKeyDate(key)
			if !ok || d < from {
				continue
			}
			if d > to {
				return false
			}
			keys = append(keys, key)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list s3://%s/%s: %w", r.bucket, entity.RawPrefix, err)
	}
	return keys, nil
}

func (r *rawStoreS3) Get(ctx context.Context, key string) (entity.RawFetchDocument, error) {
	out, err := r.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return entity.RawFetchDocument{}, fmt.Errorf("%w: %s", domain.ErrNotFound, key)
		}
		return entity.RawFetchDocument{}, fmt.Errorf("get s3://%s/%s: %w", r.bucket, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return entity.RawFetchDocument{}, fmt.Errorf("read %s: %w", key, err)
	}
	var doc entity.RawFetchDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return entity.RawFetchDocument{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return doc, nil
}
