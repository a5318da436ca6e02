package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/route53"
	"github.com/aws/aws-sdk-go/service/route53/route53iface"
	"github.com/sirupsen/logrus"
)

type route53Provider struct {
	baseDomain       string
	zoneID           string
	recordTTLSeconds int64

	svc route53iface.Route53API
}

// NewRoute53Provider connects to the hosted zone using the default AWS credential chain.
func NewRoute53Provider(zoneID string, recordTTLSecs int64) (Provider, error) {
	s, err := session.NewSession()
	if err != nil {
		return nil, err
	}

	svc := route53.New(s, &aws.Config{
		MaxRetries: aws.Int(3),
	})

	return newRoute53Provider(svc, zoneID, recordTTLSecs)
}

func newRoute53Provider(svc route53iface.Route53API, zoneID string, recordTTLSecs int64) (*route53Provider, error) {
	z, err := svc.GetHostedZone(&route53.GetHostedZoneInput{
		Id: aws.String(zoneID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get route53 hosted zone %v: %w", zoneID, err)
	}

	p := &route53Provider{
		baseDomain:       strings.TrimSuffix(aws.StringValue(z.HostedZone.Name), "."),
		zoneID:           aws.StringValue(z.HostedZone.Id),
		recordTTLSeconds: recordTTLSecs,
		svc:              svc,
	}
	logrus.Infof("using route53 hosted zone %v (%v)", p.zoneID, p.baseDomain)
	return p, nil
}

func (p *route53Provider) Name() string {
	return Route53
}

func (p *route53Provider) fqdn(hostname string) string {
	return hostname + "." + p.baseDomain
}

func (p *route53Provider) UpsertRecord(ctx context.Context, hostname, ipAddress string) error {
	fqdn := p.fqdn(hostname)
	rrs := &route53.ResourceRecordSet{
		Type: aws.String(recordTypeA),
		Name: aws.String(fqdn),
		ResourceRecords: []*route53.ResourceRecord{
			{Value: aws.String(ipAddress)},
		},
		TTL: aws.Int64(p.recordTTLSeconds),
	}

	if err := p.change(ctx, "UPSERT", rrs); err != nil {
		return fmt.Errorf("failed to upsert route53 record %v: %w", fqdn, err)
	}
	return nil
}

// DeleteRecord looks up the live record set first because Route53 only deletes a set when the
// request repeats its exact TTL and values.
func (p *route53Provider) DeleteRecord(ctx context.Context, hostname string) error {
	fqdn := p.fqdn(hostname)

	out, err := p.svc.ListResourceRecordSetsWithContext(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(p.zoneID),
		StartRecordName: aws.String(fqdn),
		StartRecordType: aws.String(recordTypeA),
		MaxItems:        aws.String("1"),
	})
	if err != nil {
		return fmt.Errorf("failed to look up route53 record %v: %w", fqdn, err)
	}

	var existing *route53.ResourceRecordSet
	for _, rrs := range out.ResourceRecordSets {
		name := strings.TrimSuffix(aws.StringValue(rrs.Name), ".")
		if strings.EqualFold(name, fqdn) && aws.StringValue(rrs.Type) == recordTypeA {
			existing = rrs
			break
		}
	}
	if existing == nil {
		return ErrRecordNotFound
	}

	if err := p.change(ctx, "DELETE", existing); err != nil {
		return fmt.Errorf("failed to delete route53 record %v: %w", fqdn, err)
	}
	return nil
}

func (p *route53Provider) change(ctx context.Context, action string, rrs *route53.ResourceRecordSet) error {
	rrsInput := route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(p.zoneID),
		ChangeBatch: &route53.ChangeBatch{
			Changes: []*route53.Change{
				{
					Action:            aws.String(action),
					ResourceRecordSet: rrs,
				},
			},
		},
	}

	_, err := p.svc.ChangeResourceRecordSetsWithContext(ctx, &rrsInput)
	return err
}
