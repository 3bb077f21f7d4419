package config

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	dbconfig "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/config"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

const moduleName = "config"

const (
	// EnvPrefix is prepended to every configuration key looked up in the environment.
	EnvPrefix = "process_tracking_"
	// DefaultSchema is the schema holding the tracker tables.
	DefaultSchema = "process_tracker"

	configDirName  = ".process_tracker"
	configFileName = "process_tracker_config.ini"
	iniSection     = "DEFAULT"
)

// Keys resolved by the loader, without EnvPrefix.
const (
	keyDataStoreType     = "data_store_type"
	keyDataStoreUsername = "data_store_username"
	keyDataStorePassword = "data_store_password"
	keyDataStoreHost     = "data_store_host"
	keyDataStorePort     = "data_store_port"
	keyDataStoreName     = "data_store_name"
	keyDataStoreSchema   = "data_store_schema"
	keyDataStoreSslmode  = "data_store_sslmode"
	keyLogLevel          = "log_level"
	keyMetricsBackend    = "metrics_backend"
	keyMetricsTextfile   = "metrics_textfile"
)

var requiredDataStoreKeys = []string{
	keyDataStoreType,
	keyDataStoreUsername,
	keyDataStorePassword,
	keyDataStoreHost,
	keyDataStorePort,
	keyDataStoreName,
}

// storeTypeAliases maps accepted data store type names to dialector names.
var storeTypeAliases = map[string]string{
	"postgresql": "postgres",
	"postgres":   "postgres",
	"mysql":      "mysql",
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
}

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// EnvFilePath is the .env file to read. Empty means ".env" in the working directory.
	EnvFilePath string
	// ConfigFilePath is the INI file to read. Empty means the file under the user's home directory.
	ConfigFilePath string
	// LookupEnv replaces os.LookupEnv, mainly for tests.
	LookupEnv func(key string) (string, bool)
}

// DefaultConfigFilePath returns ~/.process_tracker/process_tracker_config.ini.
func DefaultConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(configDirName, configFileName)
	}
	return filepath.Join(home, configDirName, configFileName)
}

// resolver answers key lookups from the three configuration sources in priority order.
type resolver struct {
	lookupEnv func(string) (string, bool)
	dotenv    map[string]string
	file      *viper.Viper
}

func (r *resolver) get(key string) (string, bool) {
	full := EnvPrefix + key
	for _, name := range []string{full, strings.ToUpper(full)} {
		if v, ok := r.lookupEnv(name); ok && v != "" {
			return v, true
		}
	}
	for _, name := range []string{full, strings.ToUpper(full)} {
		if v, ok := r.dotenv[name]; ok && v != "" {
			return v, true
		}
	}
	if r.file != nil {
		// viper lowercases keys; INI files may omit the prefix.
		for _, name := range []string{full, key} {
			if r.file.IsSet(name) {
				if v := r.file.GetString(name); v != "" {
					return v, true
				}
			}
		}
	}
	return "", false
}

// Load resolves every configuration key and returns the immutable Config.
// A missing required key fails with a ConfigMissing error naming all missing keys.
func Load(opts LoadOptions) (*Config, error) {
	r := &resolver{lookupEnv: opts.LookupEnv}
	if r.lookupEnv == nil {
		r.lookupEnv = os.LookupEnv
	}

	envFile := opts.EnvFilePath
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if opts.EnvFilePath != "" {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFile, err)
		} else {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
		dotenv = map[string]string{}
	}
	r.dotenv = dotenv

	iniPath := opts.ConfigFilePath
	if iniPath == "" {
		iniPath = DefaultConfigFilePath()
	}
	file, err := readINI(iniPath)
	if err != nil {
		return nil, exception.Wrap(exception.ErrConfigMissing, moduleName, "failed to read configuration file "+iniPath, err)
	}
	r.file = file

	return build(r)
}

func build(r *resolver) (*Config, error) {
	cfg := NewConfig()

	raw := map[string]interface{}{}
	storeType, ok := r.get(keyDataStoreType)
	if !ok {
		return nil, missingKeysError(requiredDataStoreKeys, r)
	}
	dialect, ok := storeTypeAliases[strings.ToLower(storeType)]
	if !ok {
		return nil, exception.Newf(exception.ErrConfigMissing, moduleName, "unsupported data store type %q", storeType)
	}
	raw["type"] = dialect

	required := requiredDataStoreKeys
	if dialect == "sqlite" {
		required = []string{keyDataStoreType, keyDataStoreName}
	}
	if err := missingKeysError(required, r); err != nil {
		return nil, err
	}

	for key, field := range map[string]string{
		keyDataStoreUsername: "username",
		keyDataStorePassword: "password",
		keyDataStoreHost:     "host",
		keyDataStorePort:     "port",
		keyDataStoreName:     "name",
		keyDataStoreSchema:   "schema",
		keyDataStoreSslmode:  "sslmode",
	} {
		if v, ok := r.get(key); ok {
			raw[field] = v
		}
	}

	db := cfg.Database
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &db,
	})
	if err != nil {
		return nil, exception.Wrap(exception.ErrConfigMissing, moduleName, "failed to create configuration decoder", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, exception.Wrap(exception.ErrConfigMissing, moduleName, "failed to decode data store configuration", err)
	}
	cfg.Database = db

	if v, ok := r.get(keyLogLevel); ok {
		if _, valid := logger.ParseLevel(v); valid {
			cfg.LogLevel = strings.ToUpper(v)
		} else {
			logger.Warnf("Unknown log level %q, keeping %s.", v, cfg.LogLevel)
		}
	}
	if v, ok := r.get(keyMetricsBackend); ok {
		switch b := strings.ToLower(v); b {
		case MetricsBackendNone, MetricsBackendPrometheus, MetricsBackendOtel:
			cfg.Metrics.Backend = b
		default:
			return nil, exception.Newf(exception.ErrConfigMissing, moduleName, "unsupported metrics backend %q", v)
		}
	}
	if v, ok := r.get(keyMetricsTextfile); ok {
		cfg.Metrics.Textfile = v
	}
	return cfg, nil
}

// missingKeysError returns nil when every key resolves.
func missingKeysError(keys []string, r *resolver) error {
	var missing []string
	for _, k := range keys {
		if _, ok := r.get(k); !ok {
			missing = append(missing, EnvPrefix+k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return exception.Newf(exception.ErrConfigMissing, moduleName, "missing required configuration: %s", strings.Join(missing, ", "))
}

// readINI loads the [DEFAULT] section of an INI file into a viper instance.
// A missing file yields a nil viper and no error.
func readINI(path string) (*viper.Viper, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debugf("Configuration file %s not found, using environment only.", path)
			return nil, nil
		}
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("env")
	if err := v.ReadConfig(bytes.NewReader(defaultSection(content))); err != nil {
		return nil, err
	}
	logger.Debugf("Loaded configuration file %s.", path)
	return v, nil
}

// defaultSection returns the key/value lines of the [DEFAULT] section (and any
// lines before the first section header) in dotenv form.
func defaultSection(content []byte) []byte {
	var out bytes.Buffer
	inDefault := true
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "", strings.HasPrefix(line, "#"), strings.HasPrefix(line, ";"):
			continue
		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			inDefault = strings.EqualFold(strings.Trim(line, "[]"), iniSection)
			continue
		}
		if !inDefault {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			key, value, found = strings.Cut(line, ":")
		}
		if !found {
			continue
		}
		out.WriteString(strings.TrimSpace(key))
		out.WriteString("=")
		out.WriteString(quoteValue(strings.TrimSpace(value)))
		out.WriteString("\n")
	}
	return out.Bytes()
}

func quoteValue(v string) string {
	if strings.HasPrefix(v, `"`) || strings.HasPrefix(v, `'`) {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}

// NewConfigProvider loads the configuration and applies the configured log level.
func NewConfigProvider(opts LoadOptions) (*Config, error) {
	cfg, err := Load(opts)
	if err != nil {
		return nil, err
	}
	logger.SetLogLevel(cfg.LogLevel)
	logger.Debugf("Log level set to: %s", cfg.LogLevel)
	return cfg, nil
}

// NewDatabaseConfigProvider extracts the data store settings from *Config.
func NewDatabaseConfigProvider(cfg *Config) dbconfig.DatabaseConfig {
	return cfg.Database
}
