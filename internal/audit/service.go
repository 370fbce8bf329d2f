package audit

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"voicelane.com/billing/models"
)

// Service archives period-close records to S3 so closed postpaid periods
// stay auditable after the live counters are zeroed.
type Service struct {
	region    string
	bucket    string
	accessKey string
	secretKey string
}

func NewService(region string, bucket string, accessKey string, secretKey string) *Service {
	return &Service{
		region:    region,
		bucket:    bucket,
		accessKey: accessKey,
		secretKey: secretKey,
	}
}

func (s *Service) ArchivePostpaidClose(snapshot *models.PostpaidSnapshot) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(s.region),
		Credentials: credentials.NewStaticCredentials(s.accessKey, s.secretKey, ""),
	})
	if err != nil {
		return err
	}

	key := fmt.Sprintf("postpaid-closes/%s/%d.json", snapshot.ExternalSubscriptionId, snapshot.ClosedAt.Unix())
	uploader := s3manager.NewUploader(sess)
	_, err = uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	return err
}
