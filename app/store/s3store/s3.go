// Package s3store keeps raw content on an S3 compatible object store. Only the
// key-value kind is provided. Objects live at [prefix/]<workspace>/<namespace>/<id>.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

const BackendName = "s3"

type Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PathStyle bool
	Prefix    string
}

type Provider struct {
	opts Options
	cli  *s3.Client
}

func Setup(ctx context.Context, opts Options) (*Provider, error) {
	p := &Provider{opts: opts}
	if err := p.defaultConfig(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) defaultConfig(ctx context.Context) error {
	loaders := []func(*config.LoadOptions) error{
		config.WithRegion(p.opts.Region),
	}
	if p.opts.AccessKey != "" {
		loaders = append(loaders, config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID: p.opts.AccessKey, SecretAccessKey: p.opts.SecretKey,
			},
		}))
	}
	if p.opts.Endpoint != "" {
		loaders = append(loaders, config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           p.opts.Endpoint,
				SigningRegion: p.opts.Region,
			}, nil
		})))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return err
	}

	p.cli = s3.NewFromConfig(cfg, func(o *s3.Options) {
		// MinIO and most self hosted stores need endpoint/bucket URLs
		o.UsePathStyle = p.opts.PathStyle
	})
	return nil
}

func (p *Provider) Name() string {
	return BackendName
}

func (p *Provider) KV(ns types.Namespace) (store.KeyValueStore, error) {
	return &KVStore{p: p, ns: ns}, nil
}

func (p *Provider) DocStatus() (store.DocStatusStore, error) {
	return nil, store.ErrUnsupportedOperation
}

func (p *Provider) Vector(ns types.Namespace) (store.VectorStore, error) {
	return nil, store.ErrUnsupportedOperation
}

func (p *Provider) Graph() (store.GraphStore, error) {
	return nil, store.ErrUnsupportedOperation
}

func (p *Provider) Close() error {
	return nil
}

func (p *Provider) prefix(ws types.Workspace, ns types.Namespace) string {
	prefix := ws.String() + "/" + ns.String() + "/"
	if p.opts.Prefix != "" {
		prefix = strings.TrimSuffix(p.opts.Prefix, "/") + "/" + prefix
	}
	return prefix
}

func (p *Provider) objectKey(ws types.Workspace, ns types.Namespace, id string) string {
	return p.prefix(ws, ns) + id
}

func (p *Provider) getObject(ctx context.Context, key string) ([]byte, error) {
	resp, err := p.cli.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapErr(err)
	}
	return raw, nil
}

func (p *Provider) upload(ctx context.Context, key string, body []byte) error {
	_, err := manager.NewUploader(p.cli).Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.opts.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	return wrapErr(err)
}

func (p *Provider) deleteObjects(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	objects := make([]s3types.ObjectIdentifier, 0, len(keys))
	for _, k := range keys {
		objects = append(objects, s3types.ObjectIdentifier{Key: aws.String(k)})
	}
	_, err := p.cli.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(p.opts.Bucket),
		Delete: &s3types.Delete{Objects: objects, Quiet: true},
	})
	return wrapErr(err)
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var noKey *s3types.NoSuchKey
	if errors.As(err, &noKey) {
		return store.ErrNotFound
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return store.Unavailable(err)
	}
	return err
}
