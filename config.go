package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration environment variable
const EnvPrefix = "AUTH"

// Settings is the service configuration. It implements Config.
type Settings struct {
	SigningKey      string   `mapstructure:"signing_key"`
	SigningMethod   string   `mapstructure:"signing_method"`
	TokenExpiration int      `mapstructure:"token_expiration"`
	Issuer          string   `mapstructure:"issuer"`
	Audience        []string `mapstructure:"audience"`
	BcryptCost      int      `mapstructure:"bcrypt_cost"`
	ContextKey      string   `mapstructure:"context_key"`
	TokenLookup     string   `mapstructure:"token_lookup"`
	AuthScheme      string   `mapstructure:"auth_scheme"`
	HTTPAddr        string   `mapstructure:"http_addr"`
	DatabaseURL     string   `mapstructure:"database_url"`
	Debug           bool     `mapstructure:"debug"`
}

var _ Config = (*Settings)(nil)

func setDefaults(v *viper.Viper) {
	v.SetDefault("signing_key", "")
	v.SetDefault("signing_method", "HS256")
	v.SetDefault("token_expiration", DefaultTokenExpiration)
	v.SetDefault("issuer", "")
	v.SetDefault("audience", "")
	v.SetDefault("bcrypt_cost", DefaultBcryptCost)
	v.SetDefault("context_key", DefaultContextKey)
	v.SetDefault("token_lookup", "header:Authorization")
	v.SetDefault("auth_scheme", "Bearer")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("database_url", "file:auth.db?cache=shared")
	v.SetDefault("debug", false)
}

// LoadSettings reads the optional config file at path, then environment
// variables prefixed with AUTH_. Environment values win.
func LoadSettings(path string) (*Settings, error) {
	return LoadSettingsWith(viper.New(), path)
}

// LoadSettingsWith is LoadSettings over a caller provided viper instance,
// so flags bound on v take part in the lookup.
func LoadSettingsWith(v *viper.Viper, path string) (*Settings, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read config file").
				WithMetadata(map[string]any{"path": path})
		}
	}

	cfg := &Settings{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode config")
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (s *Settings) normalize() {
	audience := make([]string, 0, len(s.Audience))
	for _, part := range s.Audience {
		for _, a := range strings.Split(part, ",") {
			if a = strings.TrimSpace(a); a != "" {
				audience = append(audience, a)
			}
		}
	}
	s.Audience = audience

	if s.TokenExpiration <= 0 {
		s.TokenExpiration = DefaultTokenExpiration
	}
	if s.BcryptCost == 0 {
		s.BcryptCost = DefaultBcryptCost
	}
}

// Validate checks the settings
func (s *Settings) Validate() error {
	err := validation.ValidateStruct(s,
		validation.Field(&s.SigningKey,
			validation.Required.Error("signing key is required"),
			validation.Length(MinSigningKeyLength, 0).Error("signing key must be at least 32 bytes"),
		),
		validation.Field(&s.SigningMethod, validation.In("HS256").Error("only HS256 is supported")),
		validation.Field(&s.BcryptCost, validation.Min(4), validation.Max(31)),
		validation.Field(&s.HTTPAddr, validation.Required),
		validation.Field(&s.DatabaseURL, validation.Required),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid configuration")
	}
	return nil
}

func (s *Settings) GetSigningKey() string    { return s.SigningKey }
func (s *Settings) GetSigningMethod() string { return s.SigningMethod }
func (s *Settings) GetContextKey() string    { return s.ContextKey }
func (s *Settings) GetTokenExpiration() int  { return s.TokenExpiration }
func (s *Settings) GetTokenLookup() string   { return s.TokenLookup }
func (s *Settings) GetAuthScheme() string    { return s.AuthScheme }
func (s *Settings) GetIssuer() string        { return s.Issuer }
func (s *Settings) GetAudience() []string    { return s.Audience }
func (s *Settings) GetBcryptCost() int       { return s.BcryptCost }
