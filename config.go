package authflow

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	// DefaultTokenParam is the query parameter that carries a fresh token
	DefaultTokenParam = "jwt"
	// DefaultStoreKey is the store slot holding the token
	DefaultStoreKey = "jwt"
	// DefaultRoutePrefix is prepended to state routes
	DefaultRoutePrefix = "/"
)

var _ Config = ResolverConfig{}

// ResolverConfig is the default Config implementation
type ResolverConfig struct {
	TokenParam  string `json:"token_param" yaml:"token_param"`
	StoreKey    string `json:"store_key" yaml:"store_key"`
	RoutePrefix string `json:"route_prefix" yaml:"route_prefix"`
}

// DefaultResolverConfig returns the configuration used when none is given
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		TokenParam:  DefaultTokenParam,
		StoreKey:    DefaultStoreKey,
		RoutePrefix: DefaultRoutePrefix,
	}
}

func (c ResolverConfig) GetTokenParam() string {
	if c.TokenParam == "" {
		return DefaultTokenParam
	}
	return c.TokenParam
}

func (c ResolverConfig) GetStoreKey() string {
	if c.StoreKey == "" {
		return DefaultStoreKey
	}
	return c.StoreKey
}

func (c ResolverConfig) GetRoutePrefix() string {
	if c.RoutePrefix == "" {
		return DefaultRoutePrefix
	}
	return c.RoutePrefix
}

// Validate will run validation rules
func (c ResolverConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(
			&c.TokenParam,
			validation.Required,
			validation.By(noWhitespace),
		),
		validation.Field(
			&c.StoreKey,
			validation.Required,
			validation.By(noWhitespace),
		),
		validation.Field(
			&c.RoutePrefix,
			validation.By(absolutePath),
		),
	)
}

// ValidateConfig runs Validate when cfg supports it
func ValidateConfig(cfg Config) error {
	if v, ok := cfg.(validation.Validatable); ok {
		return v.Validate()
	}
	return nil
}

func noWhitespace(value any) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, " \t\r\n") {
		return errors.New("must not contain whitespace")
	}
	return nil
}

func absolutePath(value any) error {
	s, _ := value.(string)
	if s != "" && !strings.HasPrefix(s, "/") {
		return errors.New("must start with /")
	}
	return nil
}
