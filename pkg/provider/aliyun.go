package provider

import (
	"context"
	"fmt"

	alidns "github.com/alibabacloud-go/alidns-20150109/v4/client"
	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	"github.com/alibabacloud-go/tea/tea"
)

type aliyunProvider struct {
	client           *alidns.Client
	zoneName         string
	recordTTLSeconds int64
}

func NewAliyunProvider(accessKeyID, accessKeySecret, zoneName string, recordTTLSecs int64) (Provider, error) {
	config := &openapi.Config{
		AccessKeyId:     tea.String(accessKeyID),
		AccessKeySecret: tea.String(accessKeySecret),
	}
	config.Endpoint = tea.String("dns.aliyuncs.com")
	client, err := alidns.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("create aliyun dns client: %w", err)
	}
	return &aliyunProvider{
		client:           client,
		zoneName:         zoneName,
		recordTTLSeconds: recordTTLSecs,
	}, nil
}

func (p *aliyunProvider) Name() string {
	return Aliyun
}

// findRecord returns the id and value of the A record whose RR is exactly hostname. RRKeyWord
// is a fuzzy match, so results are filtered again here.
func (p *aliyunProvider) findRecord(hostname string) (string, string, error) {
	resp, err := p.client.DescribeDomainRecords(&alidns.DescribeDomainRecordsRequest{
		DomainName: tea.String(p.zoneName),
		RRKeyWord:  tea.String(hostname),
		Type:       tea.String(recordTypeA),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to list records: %w", err)
	}

	if resp.Body != nil && resp.Body.DomainRecords != nil {
		for _, r := range resp.Body.DomainRecords.Record {
			if tea.StringValue(r.RR) == hostname && tea.StringValue(r.Type) == recordTypeA {
				return tea.StringValue(r.RecordId), tea.StringValue(r.Value), nil
			}
		}
	}
	return "", "", nil
}

func (p *aliyunProvider) UpsertRecord(ctx context.Context, hostname, ipAddress string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	recordID, value, err := p.findRecord(hostname)
	if err != nil {
		return err
	}

	switch {
	case recordID == "":
		_, err = p.client.AddDomainRecord(&alidns.AddDomainRecordRequest{
			DomainName: tea.String(p.zoneName),
			RR:         tea.String(hostname),
			Type:       tea.String(recordTypeA),
			Value:      tea.String(ipAddress),
			TTL:        tea.Int64(p.recordTTLSeconds),
		})
	case value != ipAddress:
		// Aliyun rejects an update that doesn't change anything, hence the value check
		_, err = p.client.UpdateDomainRecord(&alidns.UpdateDomainRecordRequest{
			RecordId: tea.String(recordID),
			RR:       tea.String(hostname),
			Type:     tea.String(recordTypeA),
			Value:    tea.String(ipAddress),
			TTL:      tea.Int64(p.recordTTLSeconds),
		})
	}
	if err != nil {
		return fmt.Errorf("failed to upsert aliyun record %v: %w", hostname, err)
	}
	return nil
}

func (p *aliyunProvider) DeleteRecord(ctx context.Context, hostname string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	recordID, _, err := p.findRecord(hostname)
	if err != nil {
		return err
	}
	if recordID == "" {
		return ErrRecordNotFound
	}

	if _, err := p.client.DeleteDomainRecord(&alidns.DeleteDomainRecordRequest{
		RecordId: tea.String(recordID),
	}); err != nil {
		return fmt.Errorf("failed to delete aliyun record %v: %w", hostname, err)
	}
	return nil
}
