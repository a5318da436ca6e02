package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudflare/cloudflare-go/v2"
	"github.com/cloudflare/cloudflare-go/v2/dns"
	"github.com/cloudflare/cloudflare-go/v2/option"
	"github.com/cloudflare/cloudflare-go/v2/zones"
)

type cloudflareProvider struct {
	client           *cloudflare.Client
	zoneName         string
	recordTTLSeconds int64

	zoneLock sync.Mutex
	zoneID   string
}

func NewCloudflareProvider(apiToken, zoneName string, recordTTLSecs int64) Provider {
	return newCloudflareProvider(zoneName, recordTTLSecs, option.WithAPIToken(apiToken))
}

func newCloudflareProvider(zoneName string, recordTTLSecs int64, opts ...option.RequestOption) *cloudflareProvider {
	return &cloudflareProvider{
		client:           cloudflare.NewClient(opts...),
		zoneName:         zoneName,
		recordTTLSeconds: recordTTLSecs,
	}
}

func (p *cloudflareProvider) Name() string {
	return Cloudflare
}

func (p *cloudflareProvider) getZoneID(ctx context.Context) (string, error) {
	p.zoneLock.Lock()
	defer p.zoneLock.Unlock()

	if p.zoneID != "" {
		return p.zoneID, nil
	}

	resp, err := p.client.Zones.List(ctx, zones.ZoneListParams{
		Name: cloudflare.F(p.zoneName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to list zones: %w", err)
	}
	if len(resp.Result) == 0 {
		return "", fmt.Errorf("cloudflare zone %v not found", p.zoneName)
	}
	p.zoneID = resp.Result[0].ID
	return p.zoneID, nil
}

// findRecord returns the id and content of the A record named hostname, or an empty id.
func (p *cloudflareProvider) findRecord(ctx context.Context, zoneID, fqdn string) (string, string, error) {
	pager := p.client.DNS.Records.ListAutoPaging(ctx, dns.RecordListParams{
		ZoneID: cloudflare.F(zoneID),
		Name:   cloudflare.F(fqdn),
		Type:   cloudflare.F(dns.RecordListParamsType(recordTypeA)),
	})
	for pager.Next() {
		record := pager.Current()
		if !strings.EqualFold(record.Name, fqdn) {
			continue
		}
		content, _ := record.Content.(string)
		return record.ID, content, nil
	}
	if err := pager.Err(); err != nil {
		return "", "", fmt.Errorf("failed to list records: %w", err)
	}
	return "", "", nil
}

func (p *cloudflareProvider) UpsertRecord(ctx context.Context, hostname, ipAddress string) error {
	zoneID, err := p.getZoneID(ctx)
	if err != nil {
		return err
	}

	fqdn := hostname + "." + p.zoneName
	recordID, content, err := p.findRecord(ctx, zoneID, fqdn)
	if err != nil {
		return err
	}

	record := dns.ARecordParam{
		Name:    cloudflare.F(fqdn),
		Type:    cloudflare.F(dns.ARecordType(recordTypeA)),
		Content: cloudflare.F(ipAddress),
		TTL:     cloudflare.F(dns.TTL(p.recordTTLSeconds)),
	}

	switch {
	case recordID == "":
		_, err = p.client.DNS.Records.New(ctx, dns.RecordNewParams{
			ZoneID: cloudflare.F(zoneID),
			Record: record,
		})
	case content != ipAddress:
		_, err = p.client.DNS.Records.Edit(ctx, recordID, dns.RecordEditParams{
			ZoneID: cloudflare.F(zoneID),
			Record: record,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to upsert cloudflare record %v: %w", fqdn, err)
	}
	return nil
}

func (p *cloudflareProvider) DeleteRecord(ctx context.Context, hostname string) error {
	zoneID, err := p.getZoneID(ctx)
	if err != nil {
		return err
	}

	fqdn := hostname + "." + p.zoneName
	recordID, _, err := p.findRecord(ctx, zoneID, fqdn)
	if err != nil {
		return err
	}
	if recordID == "" {
		return ErrRecordNotFound
	}

	_, err = p.client.DNS.Records.Delete(ctx, recordID, dns.RecordDeleteParams{
		ZoneID: cloudflare.F(zoneID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete cloudflare record %v: %w", fqdn, err)
	}
	return nil
}
