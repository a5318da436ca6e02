package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	sdkerrors "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	dnspod "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/dnspod/v20210323"
)

const (
	tencentDefaultLine     = "默认"
	tencentNoRecordErrCode = "ResourceNotFound.NoDataOfRecord"
)

type tencentProvider struct {
	client           *dnspod.Client
	zoneName         string
	recordTTLSeconds int64
}

func NewTencentProvider(secretID, secretKey, zoneName string, recordTTLSecs int64) (Provider, error) {
	credential := common.NewCredential(secretID, secretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "dnspod.tencentcloudapi.com"
	client, err := dnspod.NewClient(credential, "", cpf)
	if err != nil {
		return nil, fmt.Errorf("create tencent dns client: %w", err)
	}
	return &tencentProvider{
		client:           client,
		zoneName:         zoneName,
		recordTTLSeconds: recordTTLSecs,
	}, nil
}

func (p *tencentProvider) Name() string {
	return Tencent
}

// findRecord returns the id and value of the A record for hostname. DNSPod answers an empty
// listing with an error code rather than an empty list.
func (p *tencentProvider) findRecord(ctx context.Context, hostname string) (*uint64, string, error) {
	req := dnspod.NewDescribeRecordListRequest()
	req.Domain = common.StringPtr(p.zoneName)
	req.Subdomain = common.StringPtr(hostname)
	req.RecordType = common.StringPtr(recordTypeA)

	resp, err := p.client.DescribeRecordListWithContext(ctx, req)
	if err != nil {
		var sdkErr *sdkerrors.TencentCloudSDKError
		if errors.As(err, &sdkErr) && sdkErr.GetCode() == tencentNoRecordErrCode {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to list records: %w", err)
	}

	if resp.Response != nil {
		for _, r := range resp.Response.RecordList {
			if r.Name != nil && *r.Name == hostname && r.Type != nil && *r.Type == recordTypeA {
				value := ""
				if r.Value != nil {
					value = *r.Value
				}
				return r.RecordId, value, nil
			}
		}
	}
	return nil, "", nil
}

func (p *tencentProvider) UpsertRecord(ctx context.Context, hostname, ipAddress string) error {
	recordID, value, err := p.findRecord(ctx, hostname)
	if err != nil {
		return err
	}

	switch {
	case recordID == nil:
		req := dnspod.NewCreateRecordRequest()
		req.Domain = common.StringPtr(p.zoneName)
		req.SubDomain = common.StringPtr(hostname)
		req.RecordType = common.StringPtr(recordTypeA)
		req.RecordLine = common.StringPtr(tencentDefaultLine)
		req.Value = common.StringPtr(ipAddress)
		req.TTL = common.Uint64Ptr(uint64(p.recordTTLSeconds))
		_, err = p.client.CreateRecordWithContext(ctx, req)
	case value != ipAddress:
		req := dnspod.NewModifyRecordRequest()
		req.Domain = common.StringPtr(p.zoneName)
		req.RecordId = recordID
		req.SubDomain = common.StringPtr(hostname)
		req.RecordType = common.StringPtr(recordTypeA)
		req.RecordLine = common.StringPtr(tencentDefaultLine)
		req.Value = common.StringPtr(ipAddress)
		req.TTL = common.Uint64Ptr(uint64(p.recordTTLSeconds))
		_, err = p.client.ModifyRecordWithContext(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert tencent record %v: %w", hostname, err)
	}
	return nil
}

func (p *tencentProvider) DeleteRecord(ctx context.Context, hostname string) error {
	recordID, _, err := p.findRecord(ctx, hostname)
	if err != nil {
		return err
	}
	if recordID == nil {
		return ErrRecordNotFound
	}

	req := dnspod.NewDeleteRecordRequest()
	req.Domain = common.StringPtr(p.zoneName)
	req.RecordId = recordID
	if _, err := p.client.DeleteRecordWithContext(ctx, req); err != nil {
		return fmt.Errorf("failed to delete tencent record %v: %w", hostname, err)
	}
	return nil
}
