package provider

import (
	"context"
	"errors"
	"fmt"
)

// Provider names accepted by New
const (
	Route53    = "route53"
	Cloudflare = "cloudflare"
	Aliyun     = "aliyun"
	Tencent    = "tencent"
	Memory     = "memory"
)

const (
	defaultRecordTTLSeconds = 3600

	recordTypeA = "A"
)

var (
	// ErrRecordNotFound is returned by DeleteRecord when the provider has no A record for the
	// hostname. Callers treat it as a successful delete.
	ErrRecordNotFound  = errors.New("dns record not found")
	ErrUnknownProvider = errors.New("unknown dns provider")
)

// Provider is the authoritative DNS service that records are reconciled into. Hostnames are
// single labels relative to the provider's zone. Both operations must be safe to repeat.
type Provider interface {
	Name() string
	// UpsertRecord creates the A record for hostname or overwrites its address.
	UpsertRecord(ctx context.Context, hostname, ipAddress string) error
	// DeleteRecord removes the A record for hostname, returning ErrRecordNotFound if there is none.
	DeleteRecord(ctx context.Context, hostname string) error
}

type Config struct {
	Name             string
	RecordTTLSeconds int64

	// Route53
	ZoneID string

	// Cloudflare, Aliyun and Tencent address the zone by name
	ZoneName           string
	CloudflareAPIToken string
	AliyunAccessKeyID  string
	AliyunAccessSecret string
	TencentSecretID    string
	TencentSecretKey   string
}

// New builds the provider named in the config.
func New(cfg Config) (Provider, error) {
	if cfg.RecordTTLSeconds <= 0 {
		cfg.RecordTTLSeconds = defaultRecordTTLSeconds
	}

	switch cfg.Name {
	case Route53:
		if cfg.ZoneID == "" {
			return nil, fmt.Errorf("route53 requires a zone id")
		}
		return NewRoute53Provider(cfg.ZoneID, cfg.RecordTTLSeconds)
	case Cloudflare:
		if cfg.ZoneName == "" || cfg.CloudflareAPIToken == "" {
			return nil, fmt.Errorf("cloudflare requires a zone name and an api token")
		}
		return NewCloudflareProvider(cfg.CloudflareAPIToken, cfg.ZoneName, cfg.RecordTTLSeconds), nil
	case Aliyun:
		if cfg.ZoneName == "" || cfg.AliyunAccessKeyID == "" || cfg.AliyunAccessSecret == "" {
			return nil, fmt.Errorf("aliyun requires a zone name and an access key")
		}
		return NewAliyunProvider(cfg.AliyunAccessKeyID, cfg.AliyunAccessSecret, cfg.ZoneName, cfg.RecordTTLSeconds)
	case Tencent:
		if cfg.ZoneName == "" || cfg.TencentSecretID == "" || cfg.TencentSecretKey == "" {
			return nil, fmt.Errorf("tencent requires a zone name and a secret id/key")
		}
		return NewTencentProvider(cfg.TencentSecretID, cfg.TencentSecretKey, cfg.ZoneName, cfg.RecordTTLSeconds)
	case Memory:
		return NewMemoryProvider(), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Name)
}
