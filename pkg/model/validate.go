package model

import (
	"net/netip"
	"reflect"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	dnsLabelRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks a request payload against its `validate` struct tags.
func Validate(s interface{}) error {
	validateOnce.Do(func() {
		validate = validator.New()
		if err := RegisterWithValidator(validate); err != nil {
			panic(err)
		}
	})
	return validate.Struct(s)
}

// RegisterWithValidator adds the custom tags used by the request payloads.
func RegisterWithValidator(v *validator.Validate) error {
	if err := v.RegisterValidation("dns_label", validateDNSLabel); err != nil {
		return err
	}
	if err := v.RegisterValidation("ipv4_addr", validateIPv4Addr); err != nil {
		return err
	}
	return v.RegisterValidation("record_state", validateRecordState)
}

// validateDNSLabel accepts a single lower case RFC 1123 label. Hostnames are always relative
// to the configured zone, so dots are rejected.
func validateDNSLabel(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	return dnsLabelRegex.MatchString(fl.Field().String())
}

// validateIPv4Addr accepts dotted quad IPv4 only. The built in ipv4 tag also lets through
// IPv4-mapped IPv6 text like ::ffff:1.2.3.4, which no provider takes as an A record value.
func validateIPv4Addr(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	addr, err := netip.ParseAddr(fl.Field().String())
	return err == nil && addr.Is4()
}

func validateRecordState(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	return RecordState(fl.Field().String()).IsValid() == nil
}
