package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/OpenPeeDeeP/xdg"
	yaml "github.com/jesseduffield/yaml"
)

// AppConfig contains the base configuration fields required for lazygpg.
type AppConfig struct {
	Debug       bool   `long:"debug" env:"DEBUG" default:"false"`
	Version     string `long:"version" env:"VERSION" default:"unversioned"`
	Commit      string `long:"commit" env:"COMMIT"`
	BuildDate   string `long:"build-date" env:"BUILD_DATE"`
	Name        string `long:"name" env:"NAME" default:"lazygpg"`
	BuildSource string `long:"build-source" env:"BUILD_SOURCE" default:""`
	UserConfig  *UserConfig
	ConfigDir   string
}

// UserConfig holds all of the user-configurable options. The fields here are all in PascalCase but in your actual config.yml they'll be in camelCase. You can view the default config with `lazygpg --config`.
type UserConfig struct {
	// Language is the language prompts and messages are shown in. 'auto' picks it up from your environment
	Language string `yaml:"language,omitempty"`

	// Gpg determines how the gpg executable gets invoked
	Gpg GpgConfig `yaml:"gpg,omitempty"`

	// Passphrase determines where passphrases come from when gpg asks for one
	Passphrase PassphraseConfig `yaml:"passphrase,omitempty"`

	// MetricsFile, if set, is where operation counts and timings are written in the Prometheus text format when lazygpg exits. Point node_exporter's textfile collector at it
	MetricsFile string `yaml:"metricsFile,omitempty"`
}

// GpgConfig determines how gpg gets invoked and how long we are prepared to wait on it
type GpgConfig struct {
	// Path is the gpg executable. If it contains no slash it is looked up on your PATH
	Path string `yaml:"path,omitempty"`

	// HomeDir is passed to gpg as --homedir. Leave it blank to use GnuPG's default (~/.gnupg or $GNUPGHOME)
	HomeDir string `yaml:"homeDir,omitempty"`

	// ExtraArgs are appended to every gpg invocation before the operation's own flags, e.g. "--trust-model tofu+pgp"
	ExtraArgs string `yaml:"extraArgs,omitempty"`

	// Armor makes signatures, ciphertext and exported keys ASCII armored
	Armor bool `yaml:"armor,omitempty"`

	// AlwaysTrust skips the key validation step when encrypting. Only use this if you manage trust some other way
	AlwaysTrust bool `yaml:"alwaysTrust,omitempty"`

	// DigestAlgo is the hash used when signing. Only MD2, MD5, SHA1 and RIPEMD160 are passed on to gpg, anything else leaves the choice to gpg
	DigestAlgo string `yaml:"digestAlgo,omitempty"`

	// Offline stops gpg from fetching missing keys from a keyserver while verifying
	Offline bool `yaml:"offline,omitempty"`

	// PollTimeout is how long we wait for gpg to do anything at all before checking again whether we've been cancelled
	PollTimeout time.Duration `yaml:"pollTimeout,omitempty"`

	// TerminateGrace is how long gpg gets to exit after SIGTERM before it gets SIGKILL
	TerminateGrace time.Duration `yaml:"terminateGrace,omitempty"`

	// WaitTimeout is how long we wait for gpg to exit once it has closed all its output before we terminate it
	WaitTimeout time.Duration `yaml:"waitTimeout,omitempty"`

	// Charset overrides the charset detected from your locale. Passphrases are re-encoded into it and gpg's diagnostics decoded from it
	Charset string `yaml:"charset,omitempty"`

	// InsecureMemory keeps passphrases in ordinary memory even when locked memory is available
	InsecureMemory bool `yaml:"insecureMemory,omitempty"`
}

// PassphraseConfig determines where passphrases come from
type PassphraseConfig struct {
	// Cache remembers a passphrase for the rest of the run once gpg has accepted it
	Cache bool `yaml:"cache,omitempty"`

	// Env names an environment variable to read the passphrase from instead of asking on the terminal. Handy for scripts
	Env string `yaml:"env,omitempty"`
}

// GetDefaultConfig returns the application default configuration
// NOTE (to contributors, not users): do not default a boolean to true, because false is the boolean zero value and this will be ignored when parsing the user's config
func GetDefaultConfig() UserConfig {
	return UserConfig{
		Language: "auto",
		Gpg: GpgConfig{
			Path:           "gpg",
			HomeDir:        "",
			ExtraArgs:      "",
			Armor:          false,
			AlwaysTrust:    false,
			DigestAlgo:     "",
			Offline:        false,
			PollTimeout:    30 * time.Second,
			TerminateGrace: time.Second,
			WaitTimeout:    time.Second,
			Charset:        "",
			InsecureMemory: false,
		},
		Passphrase: PassphraseConfig{
			Cache: false,
			Env:   "",
		},
		MetricsFile: "",
	}
}

// NewAppConfig makes a new app config
func NewAppConfig(name, version, commit, date string, buildSource string, debuggingFlag bool) (*AppConfig, error) {
	configDir, err := findOrCreateConfigDir(name)
	if err != nil {
		return nil, err
	}

	userConfig, err := loadUserConfigWithDefaults(configDir)
	if err != nil {
		return nil, err
	}

	appConfig := &AppConfig{
		Name:        name,
		Version:     version,
		Commit:      commit,
		BuildDate:   date,
		Debug:       debuggingFlag || os.Getenv("DEBUG") == "TRUE",
		BuildSource: buildSource,
		UserConfig:  userConfig,
		ConfigDir:   configDir,
	}

	return appConfig, nil
}

func configDirForVendor(vendor string, projectName string) string {
	envConfigDir := os.Getenv("CONFIG_DIR")
	if envConfigDir != "" {
		return envConfigDir
	}
	configDirs := xdg.New(vendor, projectName)
	return configDirs.ConfigHome()
}

func findOrCreateConfigDir(projectName string) (string, error) {
	folder := configDirForVendor("jesseduffield", projectName)

	return folder, os.MkdirAll(folder, 0o755)
}

func loadUserConfigWithDefaults(configDir string) (*UserConfig, error) {
	config := GetDefaultConfig()

	return loadUserConfig(configDir, &config)
}

func loadUserConfig(configDir string, base *UserConfig) (*UserConfig, error) {
	fileName := filepath.Join(configDir, "config.yml")

	if _, err := os.Stat(fileName); err != nil {
		if os.IsNotExist(err) {
			file, err := os.Create(fileName)
			if err != nil {
				return nil, err
			}
			file.Close()
		} else {
			return nil, err
		}
	}

	content, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(content, base); err != nil {
		return nil, err
	}

	return base, nil
}

// ConfigFilename returns the filename of the current config file
func (c *AppConfig) ConfigFilename() string {
	return filepath.Join(c.ConfigDir, "config.yml")
}
