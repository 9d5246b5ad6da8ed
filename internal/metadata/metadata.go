package metadata

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
)

// PublicIPv4Path is the metadata category holding the instance's public address.
const PublicIPv4Path = "public-ipv4"

// Resolver looks up the host's public network address.
type Resolver interface {
	PublicAddress(ctx context.Context) (string, error)
}

// IMDSResolver queries the EC2 instance metadata service.
type IMDSResolver struct {
	client *imds.Client
}

// NewIMDSResolver builds a resolver for the metadata service at endpoint.
// Retries are disabled; the caller bounds the lookup with its context.
func NewIMDSResolver(endpoint string) *IMDSResolver {
	client := imds.New(imds.Options{
		Endpoint: endpoint,
		Retryer:  aws.NopRetryer{},
	})
	return &IMDSResolver{client: client}
}

func (r *IMDSResolver) PublicAddress(ctx context.Context) (string, error) {
	out, err := r.client.GetMetadata(ctx, &imds.GetMetadataInput{Path: PublicIPv4Path})
	if err != nil {
		return "", fmt.Errorf("metadata request failed: %w", err)
	}
	defer out.Content.Close()

	body, err := io.ReadAll(io.LimitReader(out.Content, 256))
	if err != nil {
		return "", fmt.Errorf("failed to read metadata response: %w", err)
	}

	addr := strings.TrimSpace(string(body))
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("metadata returned %q, not an IPv4 address", addr)
	}
	return ip.String(), nil
}

// Discover resolves the public address within timeout, falling back to placeholder.
// The returned error explains the fallback and is never fatal.
func Discover(ctx context.Context, resolver Resolver, timeout time.Duration, placeholder string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr, err := resolver.PublicAddress(ctx)
	if err != nil {
		return placeholder, err
	}
	return addr, nil
}
