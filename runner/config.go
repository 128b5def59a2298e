package runner

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"parkgo/driver"
)

// ErrInvalidLookupKey is returned for lookup keys that are not four digits.
var ErrInvalidLookupKey = errors.New("lookup key must be 4 digits")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Credentials holds the member account used to sign in.
type Credentials struct {
	Username string `yaml:"username" json:"username" validate:"required"`
	Password string `yaml:"password" json:"-" validate:"required"`
}

// Timeouts bounds every wait performed against the site.
type Timeouts struct {
	Element      time.Duration `yaml:"element" json:"element" validate:"gt=0"`
	Dialog       time.Duration `yaml:"dialog" json:"dialog" validate:"gt=0"`
	ConfirmPause time.Duration `yaml:"confirm_pause" json:"confirm_pause" validate:"gte=0"`
}

// DialogConfig describes one interstitial dialog by its dismiss labels.
type DialogConfig struct {
	Name   string   `yaml:"name" json:"name" validate:"required"`
	Labels []string `yaml:"labels" json:"labels" validate:"required,min=1,dive,required"`
}

// UI holds the site copy the steps locate elements by.
type UI struct {
	InitialDialogs []DialogConfig `yaml:"initial_dialogs" validate:"dive"`
	LoginDialogs   []DialogConfig `yaml:"login_dialogs" validate:"dive"`
	ConfirmDialogs []DialogConfig `yaml:"confirm_dialogs" validate:"dive"`

	UsernamePlaceholder string `yaml:"username_placeholder" validate:"required"`
	PasswordPlaceholder string `yaml:"password_placeholder" validate:"required"`
	SearchPlaceholder   string `yaml:"search_placeholder" validate:"required"`

	LoginButton  []string `yaml:"login_button" validate:"required,min=1"`
	SearchButton []string `yaml:"search_button" validate:"required,min=1"`
	SelectButton []string `yaml:"select_button" validate:"required,min=1"`
	ApplyButton  []string `yaml:"apply_button" validate:"required,min=1"`
}

// SiteConfig is everything the step executor needs to drive the site.
type SiteConfig struct {
	EntryURL    string      `yaml:"entry_url" validate:"required,url"`
	LookupKey   string      `yaml:"lookup_key" validate:"required,number,len=4"`
	Credentials Credentials `yaml:"credentials"`
	Timeouts    Timeouts    `yaml:"timeouts"`
	UI          UI          `yaml:"ui"`
}

// DefaultSiteConfig returns the configuration for the live member site.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		EntryURL:  "http://members.iparking.co.kr",
		LookupKey: "1255",
		Timeouts: Timeouts{
			Element:      10 * time.Second,
			Dialog:       5 * time.Second,
			ConfirmPause: time.Second,
		},
		UI: UI{
			InitialDialogs: []DialogConfig{
				{Name: "skip", Labels: []string{"Skip"}},
				{Name: "support notice", Labels: []string{"다시 보지 않기"}},
			},
			LoginDialogs: []DialogConfig{
				{Name: "first notice", Labels: []string{"닫기"}},
				{Name: "second notice", Labels: []string{"닫기"}},
			},
			ConfirmDialogs: []DialogConfig{
				{Name: "apply confirmation", Labels: []string{"확인"}},
				{Name: "applied notice", Labels: []string{"확인"}},
			},
			UsernamePlaceholder: "아이디",
			PasswordPlaceholder: "비밀번호",
			SearchPlaceholder:   "1234",
			LoginButton:         []string{"로그인"},
			SearchButton:        []string{"검색"},
			SelectButton:        []string{"차량 선택"},
			ApplyButton:         []string{"적용"},
		},
	}
}

// LoadSiteConfig reads a yaml file over the defaults. A missing file yields
// the defaults unchanged.
func LoadSiteConfig(path string) (SiteConfig, error) {
	cfg := DefaultSiteConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read site config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse site config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration is complete enough to run.
func (c SiteConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid site config: %w", err)
	}
	return nil
}

// ValidateLookupKey checks a lookup key has the four-digit plate format.
func ValidateLookupKey(key string) error {
	if err := validate.Var(key, "required,number,len=4"); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLookupKey, key)
	}
	return nil
}

// dialogsFrom builds resolver descriptors. Every dialog after the first
// waits for pause before it is looked for.
func dialogsFrom(configs []DialogConfig, pause time.Duration) []Dialog {
	dialogs := make([]Dialog, 0, len(configs))
	for i, c := range configs {
		d := Dialog{Name: c.Name, Dismiss: driver.Button(c.Labels...)}
		if i > 0 {
			d.Delay = pause
		}
		dialogs = append(dialogs, d)
	}
	return dialogs
}
