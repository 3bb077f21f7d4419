package test

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// FakeS3Client is an in-memory implementation of the S3 adapter's client
// interface. Listings are paged PageSize keys at a time.
type FakeS3Client struct {
	mu       sync.Mutex
	objects  map[string]map[string]struct{}
	PageSize int
	// ListCalls counts ListObjectsV2 requests.
	ListCalls int
}

// NewFakeS3Client creates an empty fake with a page size of 2.
func NewFakeS3Client() *FakeS3Client {
	return &FakeS3Client{objects: make(map[string]map[string]struct{}), PageSize: 2}
}

// Put adds keys to bucket.
func (c *FakeS3Client) Put(bucket string, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.objects[bucket] == nil {
		c.objects[bucket] = make(map[string]struct{})
	}
	for _, k := range keys {
		c.objects[bucket][k] = struct{}{}
	}
}

// ListObjectsV2 implements s3.ListObjectsV2APIClient.
func (c *FakeS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ListCalls++

	var keys []string
	for k := range c.objects[aws.ToString(params.Bucket)] {
		if strings.HasPrefix(k, aws.ToString(params.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if token := aws.ToString(params.ContinuationToken); token != "" {
		start, _ = strconv.Atoi(token)
	}
	end := start + c.PageSize
	if end > len(keys) {
		end = len(keys)
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

// HeadObject returns types.NotFound for missing keys.
func (c *FakeS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.objects[aws.ToString(params.Bucket)][aws.ToString(params.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}
