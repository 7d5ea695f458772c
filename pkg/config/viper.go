package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// FileEnv names the variable that points at an explicit config file,
// bypassing the search paths.
const FileEnv = "PLANTPAL_CONFIG"

// Source describes where configuration is read from.
type Source struct {
	Name  string   // file name without extension
	Paths []string // directories searched in order
}

// Load returns a viper instance layered as file < environment. Keys map to
// variables by replacing dots with underscores (database.host is
// DATABASE_HOST). If FileEnv is set that file must exist; otherwise a
// missing file in the search paths is fine.
func Load(src Source) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := os.Getenv(FileEnv); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
		return v, nil
	}

	v.SetConfigName(src.Name)
	v.SetConfigType("yaml")
	for _, p := range src.Paths {
		v.AddConfigPath(p)
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil, errors.As(err, &notFound):
		return v, nil
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}
}
