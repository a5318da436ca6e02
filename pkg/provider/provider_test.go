package provider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/acorn-io/acorn-ddns/pkg/provider"
	"github.com/stretchr/testify/assert"
)

func TestNewProvider(t *testing.T) {
	assert := assert.New(t)

	p, err := provider.New(provider.Config{Name: "memory"})
	assert.Nil(err)
	assert.Equal("memory", p.Name())

	_, err = provider.New(provider.Config{Name: "bind9"})
	assert.ErrorIs(err, provider.ErrUnknownProvider)

	// Each real provider refuses to start without its zone and credentials
	for _, name := range []string{"route53", "cloudflare", "aliyun", "tencent"} {
		_, err = provider.New(provider.Config{Name: name})
		assert.Error(err, name)
	}

	p, err = provider.New(provider.Config{Name: "cloudflare", ZoneName: "example.com", CloudflareAPIToken: "token"})
	assert.Nil(err)
	assert.Equal("cloudflare", p.Name())
}

func TestMemoryProvider(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	uut := provider.NewMemoryProvider()

	assert.Nil(uut.UpsertRecord(ctx, "home", "1.2.3.4"))
	assert.Nil(uut.UpsertRecord(ctx, "home", "1.2.3.4"))
	ip, ok := uut.Lookup("home")
	assert.True(ok)
	assert.Equal("1.2.3.4", ip)

	assert.Nil(uut.UpsertRecord(ctx, "home", "9.9.9.9"))
	ip, _ = uut.Lookup("home")
	assert.Equal("9.9.9.9", ip)

	assert.Nil(uut.DeleteRecord(ctx, "home"))
	assert.ErrorIs(uut.DeleteRecord(ctx, "home"), provider.ErrRecordNotFound)

	boom := errors.New("provider unavailable")
	uut.FailOn("office", boom)
	assert.ErrorIs(uut.UpsertRecord(ctx, "office", "1.1.1.1"), boom)
	assert.ErrorIs(uut.DeleteRecord(ctx, "office"), boom)
	_, ok = uut.Lookup("office")
	assert.False(ok)

	uut.FailOn("office", nil)
	assert.Nil(uut.UpsertRecord(ctx, "office", "1.1.1.1"))
}
